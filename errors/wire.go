// MIT License
//
// Copyright (c) 2023-2026 Rivet Gaming, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package errors

// Wire is the structural serialization of an error chain. The durable host
// boundary does not preserve Go error identity, so errors are encoded into
// this shape on one side and reconstructed on the other. Nested causes
// recurse through the same shape.
type Wire struct {
	Code     Code              `msgpack:"code" json:"code"`
	Message  string            `msgpack:"message" json:"message"`
	Metadata map[string]string `msgpack:"metadata,omitempty" json:"metadata,omitempty"`
	Cause    *Wire             `msgpack:"cause,omitempty" json:"cause,omitempty"`
}

// Encode structurally serializes an error chain. Coded errors keep their
// code, message, metadata and recursively encoded cause. Any non-coded error
// in the chain is flattened to CodeInternal with a generic message so raw
// causes are never leaked to untrusted callers; full detail stays in the
// captured log stream on the emitting side.
func Encode(err error) *Wire {
	if err == nil {
		return nil
	}
	var coded *Error
	if !As(err, &coded) {
		return &Wire{Code: CodeInternal, Message: "internal error"}
	}
	wire := &Wire{
		Code:    coded.code,
		Message: coded.message,
	}
	if len(coded.metadata) > 0 {
		wire.Metadata = make(map[string]string, len(coded.metadata))
		for k, v := range coded.metadata {
			wire.Metadata[k] = v
		}
	}
	if coded.cause != nil {
		wire.Cause = Encode(coded.cause)
	}
	return wire
}

// Decode reconstructs an error chain from its wire form. The result is a
// coded error whose code, message, metadata and nested causes match the
// encoded original, so errors.Is and CodeOf behave identically on both sides
// of the boundary.
func Decode(wire *Wire) error {
	if wire == nil {
		return nil
	}
	out := &Error{
		code:    wire.Code,
		message: wire.Message,
	}
	if len(wire.Metadata) > 0 {
		out.metadata = make(map[string]string, len(wire.Metadata))
		for k, v := range wire.Metadata {
			out.metadata[k] = v
		}
	}
	if wire.Cause != nil {
		out.cause = Decode(wire.Cause)
	}
	return out
}
