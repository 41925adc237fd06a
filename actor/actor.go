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

// Package actor implements a runtime for named, stateful actor instances.
//
// Every instance is addressed by an Identity (module, kind, instance name),
// owns a durable versioned state and a private key/value storage, and
// processes one call at a time: the host never runs two calls against the
// same instance concurrently. Two host drivers satisfy the same Driver
// contract with identical observable semantics: an in-memory host for tests
// and single-process use, and a durable host persisting to an embedded
// key/value store.
//
// ## Key Properties
//   - **Named identity:** Instances are addressed by (module, kind, name),
//     not by process or network location. Identities are content-addressed
//     before being handed to storage.
//   - **Single-threaded execution:** Each instance processes one call at a
//     time, so state mutation needs no locks.
//   - **Durable versioned state:** State is persisted under an integer
//     schema version and migrated on load when the shape evolved.
//   - **Generation guard:** Destroying an instance invalidates every
//     suspended continuation for it. Stale continuations fail fast with an
//     actor-destroyed error instead of corrupting a successor's state.
//   - **Background tasks:** Long side effects triggered by a call run as
//     tracked tasks that log, and never propagate, their failures.
//
// ## Implementation Guidelines
//   - Implement `Initialize` to build the initial state from the creation
//     input. It is called exactly once per instance.
//   - Implement `Handle` to dispatch named methods; return a coded error for
//     unknown methods.
//   - Keep all state reachable from the value returned by `NewState` and
//     serializable; the hosts round-trip it through the state codec.
//   - Do not retain the *Context beyond the call; background work goes
//     through Spawn.
package actor

// Actor defines the portable behavior contract of an actor kind.
//
// A single Actor value is constructed per live instance by the registered
// factory. The hosts call Initialize exactly once when the instance is
// created and Handle for every subsequent method call, always one call at a
// time.
type Actor interface {
	// Kind returns the stable kind name used in identities and routing.
	Kind() string
	// NewState returns a pointer to a zero state value used as the decoding
	// target when the instance is rehydrated from storage.
	NewState() any
	// Initialize builds the initial state from the creation input. Errors
	// abort the creation and nothing is persisted.
	Initialize(ctx *Context, input any) (any, error)
	// Handle dispatches a named method against the current state. Scheduled
	// invocations deliver their payload as raw bytes; direct calls deliver
	// the caller's request value unchanged.
	Handle(ctx *Context, method string, request any) (any, error)
}

// StateMigrator is implemented by actors whose persisted state shape has
// evolved. When the persisted version is older than StateVersion, the host
// calls MigrateState with the persisted version and raw state bytes before
// exposing the state to current code.
type StateMigrator interface {
	// StateVersion returns the current schema version. Actors that do not
	// implement StateMigrator persist version 1.
	StateVersion() int
	// MigrateState transforms a persisted state of an older version into the
	// current shape.
	MigrateState(version int, data []byte) (any, error)
}

// stateVersion returns the schema version an actor persists.
func stateVersion(actor Actor) int {
	if migrator, ok := actor.(StateMigrator); ok {
		return migrator.StateVersion()
	}
	return 1
}
