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

// Package errors defines the error taxonomy shared by the actor runtime and
// its consumers.
//
// Errors fall into four groups: domain failures carrying a stable Code that
// are expected outcomes and safe to surface to callers, unreachable-state
// failures raised when a tagged-variant match falls through an exhaustiveness
// check, validation failures, and unclassified internal failures that are
// flattened to a generic message before crossing a trust boundary.
package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error code. Codes are part of the public
// contract: they never change once published even when messages do.
type Code string

const (
	// CodeActorNotFound indicates a call against an actor instance that was
	// never created or has been destroyed.
	CodeActorNotFound Code = "actor_not_found"
	// CodeActorAlreadyExists indicates a create against an actor instance
	// that has already been initialized.
	CodeActorAlreadyExists Code = "actor_already_exists"
	// CodeActorDestroyed indicates a suspended operation resumed after the
	// owning instance was destroyed (generation mismatch). Terminal.
	CodeActorDestroyed Code = "actor_destroyed"
	// CodeMethodNotFound indicates a call to a method the actor does not
	// dispatch.
	CodeMethodNotFound Code = "method_not_found"
	// CodeStateInvalid indicates actor state that cannot be serialized or
	// migrated.
	CodeStateInvalid Code = "state_invalid"
	// CodeScheduleEntryInvalid indicates a persisted schedule entry that can
	// no longer be decoded.
	CodeScheduleEntryInvalid Code = "schedule_entry_invalid"

	// CodeLobbyNotFound indicates a lobby id that does not exist.
	CodeLobbyNotFound Code = "lobby_not_found"
	// CodeLobbyAborted indicates a lobby that was destroyed while a caller
	// was waiting for it to become ready.
	CodeLobbyAborted Code = "lobby_aborted"
	// CodeLobbyFull indicates an admission that would exceed the lobby
	// capacity.
	CodeLobbyFull Code = "lobby_full"
	// CodeNoMatchingLobbies indicates a matchmaking query with no candidate.
	CodeNoMatchingLobbies Code = "no_matching_lobbies"
	// CodeRegionNotFound indicates a region outside the configured set.
	CodeRegionNotFound Code = "region_not_found"
	// CodeBuildNotFound indicates no build matched the configured tags.
	CodeBuildNotFound Code = "build_not_found"
	// CodeForbidden indicates an operation the merged lobby config disables.
	CodeForbidden Code = "forbidden"
	// CodeTokenInvalid indicates a bearer token that failed verification.
	CodeTokenInvalid Code = "token_invalid"
	// CodeLobbyTokenMismatch indicates a valid token scoped to another lobby.
	CodeLobbyTokenMismatch Code = "lobby_token_mismatch"
	// CodeTooManyPlayersForIP indicates a per-IP admission cap that eviction
	// could not satisfy.
	CodeTooManyPlayersForIP Code = "too_many_players_for_ip"
	// CodePlayerNotFound indicates a player id that does not exist.
	CodePlayerNotFound Code = "player_not_found"
	// CodeServerNotFound indicates a server id that does not exist.
	CodeServerNotFound Code = "server_not_found"
	// CodeLobbyReadyRepeated indicates setLobbyReady on an already ready
	// lobby whose backend does not tolerate repeats.
	CodeLobbyReadyRepeated Code = "lobby_ready_repeated"

	// CodeUnreachable indicates an exhaustiveness check fall-through. Always
	// internal and non-recoverable.
	CodeUnreachable Code = "unreachable"
	// CodeInternal is the generic code unclassified failures are flattened
	// to before leaving a trust boundary.
	CodeInternal Code = "internal"
)

// Error is a coded failure. Domain failures surface their code and message to
// callers unchanged; anything else is flattened to CodeInternal by the wire
// codec before leaving the host.
type Error struct {
	code     Code
	message  string
	metadata map[string]string
	cause    error
}

// enforce compilation error
var _ error = (*Error)(nil)

// New creates a coded error with the given message.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Unreachable creates a CodeUnreachable error for a tagged-variant match that
// fell through its exhaustiveness check.
func Unreachable(what string, value any) *Error {
	return Newf(CodeUnreachable, "unreachable %s variant: %v", what, value)
}

// Internal wraps an arbitrary error into a CodeInternal error.
func Internal(err error) *Error {
	return &Error{code: CodeInternal, message: "internal error", cause: err}
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Code returns the stable code.
func (e *Error) Code() Code {
	return e.code
}

// Message returns the human readable message without the code prefix.
func (e *Error) Message() string {
	return e.message
}

// Metadata returns the attached metadata. The returned map must not be
// mutated.
func (e *Error) Metadata() map[string]string {
	return e.metadata
}

// WithMetadata returns a copy of the error carrying the given key-value pair.
func (e *Error) WithMetadata(key, value string) *Error {
	out := e.clone()
	if out.metadata == nil {
		out.metadata = make(map[string]string, 1)
	}
	out.metadata[key] = value
	return out
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	out := e.clone()
	out.cause = cause
	return out
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is a coded error with the same code, so that
// errors.Is matches sentinels regardless of message or metadata.
func (e *Error) Is(target error) bool {
	var coded *Error
	if errors.As(target, &coded) {
		return coded.code == e.code
	}
	return false
}

func (e *Error) clone() *Error {
	out := &Error{code: e.code, message: e.message, cause: e.cause}
	if len(e.metadata) > 0 {
		out.metadata = make(map[string]string, len(e.metadata))
		for k, v := range e.metadata {
			out.metadata[k] = v
		}
	}
	return out
}

// CodeOf returns the code of the first coded error in the chain, or
// CodeInternal when the chain carries none.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.code
	}
	return CodeInternal
}

// IsCode reports whether the chain carries a coded error with the given code.
func IsCode(err error, code Code) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.code == code
	}
	return false
}

// As is a convenience re-export of the standard errors.As.
func As(err error, target any) bool { return errors.As(err, target) }

// Is is a convenience re-export of the standard errors.Is.
func Is(err, target error) bool { return errors.Is(err, target) }
