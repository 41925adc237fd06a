/*
 * MIT License
 *
 * Copyright (c) 2023-2026  Rivet Gaming, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package actor

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/rivet-gg/modules/errors"
)

// stateEnvelope wraps persisted actor state with the schema version it was
// written under. The version is read back on activation and handed to the
// kind's StateMigrator when it no longer matches the current version.
type stateEnvelope struct {
	Version int    `msgpack:"v"`
	Data    []byte `msgpack:"d"`
}

// encodeState serializes the actor state into a versioned envelope.
func encodeState(actor Actor, state any) ([]byte, error) {
	data, err := msgpack.Marshal(state)
	if err != nil {
		return nil, errors.New(errors.CodeStateInvalid, "failed to serialize actor state").WithCause(err)
	}
	envelope := stateEnvelope{
		Version: stateVersion(actor),
		Data:    data,
	}
	bytea, err := msgpack.Marshal(&envelope)
	if err != nil {
		return nil, errors.New(errors.CodeStateInvalid, "failed to serialize state envelope").WithCause(err)
	}
	return bytea, nil
}

// decodeState deserializes a versioned envelope back into actor state.
//
// When the persisted version differs from the kind's current version the
// kind must implement StateMigrator, and its MigrateState is given the raw
// persisted bytes to upgrade. A version mismatch on a kind without a
// migrator is a hard failure rather than a silent reinterpretation.
func decodeState(actor Actor, bytea []byte) (any, error) {
	envelope := new(stateEnvelope)
	if err := msgpack.Unmarshal(bytea, envelope); err != nil {
		return nil, errors.New(errors.CodeStateInvalid, "failed to deserialize state envelope").WithCause(err)
	}

	if envelope.Version != stateVersion(actor) {
		migrator, ok := actor.(StateMigrator)
		if !ok {
			return nil, errors.Newf(errors.CodeStateInvalid,
				"state version %d does not match current version %d and kind %s has no migrator",
				envelope.Version, stateVersion(actor), actor.Kind())
		}
		state, err := migrator.MigrateState(envelope.Version, envelope.Data)
		if err != nil {
			return nil, errors.Newf(errors.CodeStateInvalid, "failed to migrate state from version %d", envelope.Version).WithCause(err)
		}
		return state, nil
	}

	state := actor.NewState()
	if err := msgpack.Unmarshal(envelope.Data, state); err != nil {
		return nil, errors.New(errors.CodeStateInvalid, "failed to deserialize actor state").WithCause(err)
	}
	return state, nil
}
