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

import "context"

// Driver hosts actor instances and routes operations to them. Every driver
// enforces the same contract:
//
//   - At most one Initialize or Handle invocation runs per instance at any
//     time. Callers queue behind the instance's logical thread.
//   - State mutations made by a handler are persisted atomically after the
//     handler returns without error.
//   - Destroy invalidates the instance's generation so that suspended
//     operations observing the old generation fail instead of resurrecting
//     the instance.
//
// Two implementations exist: MemoryDriver keeps everything in process and
// is meant for tests and local development, DurableDriver persists to disk
// and survives restarts. Code written against Driver behaves identically on
// both.
type Driver interface {
	// Create activates a new instance and runs its Initialize handler.
	// It returns a CodeActorAlreadyExists error when the instance exists.
	Create(ctx context.Context, id Identity, input any) error

	// Call invokes a method on an existing instance and returns the
	// handler's response. It returns a CodeActorNotFound error when the
	// instance does not exist.
	Call(ctx context.Context, id Identity, method string, request any) (any, error)

	// GetOrCreateAndCall atomically creates the instance when it does not
	// exist, then invokes the method. Concurrent callers racing on the
	// create all succeed and observe a single Initialize.
	GetOrCreateAndCall(ctx context.Context, id Identity, input any, method string, request any) (any, error)

	// Exists reports whether the instance has been created and not
	// destroyed.
	Exists(ctx context.Context, id Identity) (bool, error)

	// Destroy removes the instance, its state, storage and schedule, and
	// bumps its generation. Destroying a missing instance is a no-op.
	Destroy(ctx context.Context, id Identity) error

	// WaitTasks blocks until the instance's tracked background tasks have
	// finished, or the context is canceled. Mainly used by tests to settle
	// asynchronous work.
	WaitTasks(ctx context.Context, id Identity) error

	// Stop shuts the driver down, waiting for in-flight handlers and
	// tracked tasks to settle.
	Stop(ctx context.Context) error
}
