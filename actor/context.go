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
	"context"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/log"
)

// hooks is the driver-side surface a Context and a Background operate
// through. Each driver supplies its own implementation.
type hooks interface {
	storageGet(id Identity, key string) ([]byte, bool, error)
	storagePut(id Identity, key string, value []byte) error
	storageDelete(id Identity, key string) error
	scheduleAt(id Identity, at time.Time, method string, payload []byte) error
	persistState(id Identity, bytea []byte) error
	spawn(id Identity, generation uint64, task func(*Background)) error
	call(ctx context.Context, id Identity, method string, request any) (any, error)
	generation(id Identity) (uint64, bool)
	logger() log.Logger
}

// Context is handed to Initialize and Handle and is the actor's only window
// onto its runtime. It carries the live state, the per instance key-value
// storage, the wake-up scheduler and the background task spawner.
//
// A Context is only valid for the duration of the handler invocation it was
// created for. Handlers must not retain it. Work that outlives the handler
// goes through Spawn, which hands the task a Background instead.
//
// Every operation on the Context is guarded by the instance's generation:
// once the instance is destroyed, operations fail with a CodeActorDestroyed
// error rather than acting on behalf of a dead actor.
type Context struct {
	ctx        context.Context
	driver     hooks
	id         Identity
	generation uint64
	actor      Actor
	state      any
	logger     log.Logger
}

// newContext builds the handler context for one invocation. The logger is
// passed explicitly because durable hosts substitute a capturing logger for
// the duration of the handler.
func newContext(ctx context.Context, driver hooks, id Identity, generation uint64, actor Actor, state any, logger log.Logger) *Context {
	return &Context{
		ctx:        ctx,
		driver:     driver,
		id:         id,
		generation: generation,
		actor:      actor,
		state:      state,
		logger:     logger.With("actor", id.String()),
	}
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context {
	return c.ctx
}

// Identity returns the identity of the actor being invoked.
func (c *Context) Identity() Identity {
	return c.id
}

// Logger returns a logger scoped to the actor instance.
func (c *Context) Logger() log.Logger {
	return c.logger
}

// State returns the actor's live state. Handlers mutate it in place and the
// driver persists it atomically after the handler returns without error.
func (c *Context) State() any {
	return c.state
}

// SetState replaces the live state wholesale. The replacement is what gets
// persisted when the handler returns.
func (c *Context) SetState(state any) {
	c.state = state
}

// Alive reports whether the instance still exists at the generation this
// invocation started under. Handlers call it after external suspension
// points to abandon work for a destroyed actor.
func (c *Context) Alive() bool {
	return c.alive() == nil
}

// ForceSave persists the current state immediately instead of waiting for
// the handler to return. Long-running handlers use it to checkpoint.
func (c *Context) ForceSave() error {
	if err := c.alive(); err != nil {
		return err
	}
	bytea, err := encodeState(c.actor, c.state)
	if err != nil {
		return err
	}
	return c.driver.persistState(c.id, bytea)
}

// StorageGet reads a value from the instance's key-value storage. The
// second return value reports whether the key exists.
func (c *Context) StorageGet(key string) ([]byte, bool, error) {
	if err := c.alive(); err != nil {
		return nil, false, err
	}
	return c.driver.storageGet(c.id, key)
}

// StoragePut writes a value into the instance's key-value storage.
func (c *Context) StoragePut(key string, value []byte) error {
	if err := c.alive(); err != nil {
		return err
	}
	return c.driver.storagePut(c.id, key, value)
}

// StorageDelete removes a key from the instance's key-value storage.
// Deleting a missing key is a no-op.
func (c *Context) StorageDelete(key string) error {
	if err := c.alive(); err != nil {
		return err
	}
	return c.driver.storageDelete(c.id, key)
}

// Schedule arranges for the given method to be invoked on this instance
// after the delay. The payload is serialized immediately and the handler
// receives the serialized bytes as its request, so scheduled methods decode
// their own payloads. Schedules survive restarts on durable drivers.
func (c *Context) Schedule(delay time.Duration, method string, payload any) error {
	return c.ScheduleAt(time.Now().Add(delay), method, payload)
}

// ScheduleAt is Schedule with an absolute wall-clock trigger time.
func (c *Context) ScheduleAt(at time.Time, method string, payload any) error {
	if err := c.alive(); err != nil {
		return err
	}
	bytea, err := msgpack.Marshal(payload)
	if err != nil {
		return errors.New(errors.CodeStateInvalid, "failed to serialize schedule payload").WithCause(err)
	}
	return c.driver.scheduleAt(c.id, at, method, bytea)
}

// Spawn starts a tracked background task. The task runs on its own
// goroutine after the current handler completes its persist, and is counted
// by Driver.WaitTasks. The task receives a Background bound to the
// generation current at spawn time, so a destroy between spawn and
// execution turns its driver operations into CodeActorDestroyed errors.
func (c *Context) Spawn(task func(*Background)) error {
	if err := c.alive(); err != nil {
		return err
	}
	return c.driver.spawn(c.id, c.generation, task)
}

// alive checks the generation guard.
func (c *Context) alive() error {
	generation, ok := c.driver.generation(c.id)
	if !ok || generation != c.generation {
		return errors.Newf(errors.CodeActorDestroyed, "actor %s was destroyed", c.id.String())
	}
	return nil
}

// Background is handed to tasks started with Context.Spawn. Unlike Context
// it carries no live state. Tasks feed their results back into the actor
// through Call, which re-enters the instance's logical thread like any
// external caller.
type Background struct {
	ctx        context.Context
	driver     hooks
	id         Identity
	generation uint64
	logger     log.Logger
}

// Context returns the task's context. It is canceled when the driver shuts
// down.
func (b *Background) Context() context.Context {
	return b.ctx
}

// Identity returns the identity of the actor that spawned the task.
func (b *Background) Identity() Identity {
	return b.id
}

// Logger returns a logger scoped to the spawning actor instance.
func (b *Background) Logger() log.Logger {
	return b.logger
}

// Alive reports whether the spawning instance still exists at the
// generation the task was spawned under. Long-running tasks poll this to
// abandon work for destroyed actors.
func (b *Background) Alive() bool {
	generation, ok := b.driver.generation(b.id)
	return ok && generation == b.generation
}

// Call invokes a method on the spawning actor. It fails with a
// CodeActorDestroyed error when the instance was destroyed after the task
// was spawned, even if an instance with the same identity was recreated
// since.
func (b *Background) Call(method string, request any) (any, error) {
	if !b.Alive() {
		return nil, errors.Newf(errors.CodeActorDestroyed, "actor %s was destroyed", b.id.String())
	}
	return b.driver.call(b.ctx, b.id, method, request)
}
