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
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/log"
)

func newTestMemoryDriver(t *testing.T, registry *Registry) Driver {
	t.Helper()
	driver, err := NewMemoryDriver(registry, WithMemoryLogger(log.DiscardLogger))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, driver.Stop(context.Background()))
	})
	return driver
}

func newTestDurableDriver(t *testing.T, registry *Registry) Driver {
	t.Helper()
	driver := NewDurableDriver(registry, filepath.Join(t.TempDir(), "actors.db"), WithDurableLogger(log.DiscardLogger))
	require.NoError(t, driver.Start(context.Background()))
	t.Cleanup(func() {
		require.NoError(t, driver.Stop(context.Background()))
	})
	return driver
}

func TestMemoryDriver(t *testing.T) {
	testDriverContract(t, newTestMemoryDriver)
}

func TestDurableDriver(t *testing.T) {
	testDriverContract(t, newTestDurableDriver)
}

// testDriverContract runs the behavior shared by every driver.
func testDriverContract(t *testing.T, makeDriver func(t *testing.T, registry *Registry) Driver) {
	t.Run("With create and call", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, initialized := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		require.NoError(t, driver.Create(ctx, id, 10))
		assert.EqualValues(t, 1, initialized.Load())

		response, err := driver.Call(ctx, id, "increment", nil)
		require.NoError(t, err)
		assert.Equal(t, 11, response)

		response, err = driver.Call(ctx, id, "get", nil)
		require.NoError(t, err)
		assert.Equal(t, 11, response)

		exists, err := driver.Exists(ctx, id)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("With duplicate create", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, initialized := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		require.NoError(t, driver.Create(ctx, id, 0))
		err := driver.Create(ctx, id, 0)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeActorAlreadyExists))
		assert.EqualValues(t, 1, initialized.Load())
	})

	t.Run("With call on a missing actor", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		_, err := driver.Call(ctx, NewIdentity("test", "counter", "nope"), "get", nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeActorNotFound))
	})

	t.Run("With an unregistered kind", func(t *testing.T) {
		ctx := context.Background()
		driver := makeDriver(t, NewRegistry())

		err := driver.Create(ctx, NewIdentity("test", "ghost", "a"), nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeActorNotFound))
	})

	t.Run("With concurrent get-or-create-and-call", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, initialized := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		const callers = 20
		var wg sync.WaitGroup
		failures := atomic.NewInt64(0)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := driver.GetOrCreateAndCall(ctx, id, 0, "increment", nil); err != nil {
					failures.Inc()
				}
			}()
		}
		wg.Wait()

		assert.Zero(t, failures.Load())
		assert.EqualValues(t, 1, initialized.Load(), "exactly one Initialize must run")
		response, err := driver.Call(ctx, id, "get", nil)
		require.NoError(t, err)
		assert.Equal(t, callers, response)
	})

	t.Run("With destroy", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, initialized := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		require.NoError(t, driver.Create(ctx, id, 5))
		require.NoError(t, driver.Destroy(ctx, id))

		exists, err := driver.Exists(ctx, id)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = driver.Call(ctx, id, "get", nil)
		assert.True(t, errors.IsCode(err, errors.CodeActorNotFound))

		// destroying a missing instance is a no-op
		require.NoError(t, driver.Destroy(ctx, id))

		// recreating after destroy starts from a blank state
		require.NoError(t, driver.Create(ctx, id, 0))
		assert.EqualValues(t, 2, initialized.Load())
		response, err := driver.Call(ctx, id, "get", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, response)
	})

	t.Run("With the generation guard on background tasks", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		instance := &counterActor{
			initialized: atomic.NewInt64(0),
			gate:        make(chan struct{}),
			taskErr:     make(chan error, 1),
		}
		require.NoError(t, registry.Register("test", func() Actor { return instance }))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		require.NoError(t, driver.Create(ctx, id, 0))
		_, err := driver.Call(ctx, id, "spawnGatedIncrement", nil)
		require.NoError(t, err)

		// destroy and even recreate before the task resumes: the stale
		// continuation must not touch the successor
		require.NoError(t, driver.Destroy(ctx, id))
		require.NoError(t, driver.Create(ctx, id, 100))
		close(instance.gate)

		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		require.NoError(t, driver.WaitTasks(waitCtx, id))

		taskErr := <-instance.taskErr
		require.Error(t, taskErr)
		assert.True(t, errors.IsCode(taskErr, errors.CodeActorDestroyed))

		response, err := driver.Call(ctx, id, "get", nil)
		require.NoError(t, err)
		assert.Equal(t, 100, response, "the successor state must be untouched")
	})

	t.Run("With coded errors crossing the boundary", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		require.NoError(t, driver.Create(ctx, id, 3))

		_, err := driver.Call(ctx, id, "fail", nil)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeForbidden))

		_, err = driver.Call(ctx, id, "noSuchMethod", nil)
		assert.True(t, errors.IsCode(err, errors.CodeMethodNotFound))
	})

	t.Run("With a failing handler leaving state untouched", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		require.NoError(t, driver.Create(ctx, id, 7))
		_, err := driver.Call(ctx, id, "fail", nil)
		require.Error(t, err)

		response, err := driver.Call(ctx, id, "get", nil)
		require.NoError(t, err)
		assert.Equal(t, 7, response)
	})

	t.Run("With per-instance storage", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		require.NoError(t, driver.Create(ctx, id, 0))

		_, err := driver.Call(ctx, id, "putNote", "hello")
		require.NoError(t, err)
		response, err := driver.Call(ctx, id, "getNote", nil)
		require.NoError(t, err)
		assert.Equal(t, "hello", response)

		_, err = driver.Call(ctx, id, "dropNote", nil)
		require.NoError(t, err)
		response, err = driver.Call(ctx, id, "getNote", nil)
		require.NoError(t, err)
		assert.Equal(t, "", response)
	})

	t.Run("With storage isolated between instances", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		first := NewIdentity("test", "counter", "room-1")
		second := NewIdentity("test", "counter", "room-2")
		require.NoError(t, driver.Create(ctx, first, 0))
		require.NoError(t, driver.Create(ctx, second, 0))

		_, err := driver.Call(ctx, first, "putNote", "only room-1")
		require.NoError(t, err)
		response, err := driver.Call(ctx, second, "getNote", nil)
		require.NoError(t, err)
		assert.Equal(t, "", response)
	})

	t.Run("With a scheduled wake-up", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		require.NoError(t, driver.Create(ctx, id, 0))
		_, err := driver.Call(ctx, id, "scheduleIncrement", 50*time.Millisecond)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			response, err := driver.Call(ctx, id, "get", nil)
			return err == nil && response == 1
		}, 3*time.Second, 20*time.Millisecond)
	})

	t.Run("With a wake-up canceled by destroy", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, initialized := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "counter", "room-1")
		require.NoError(t, driver.Create(ctx, id, 0))
		_, err := driver.Call(ctx, id, "scheduleIncrement", 50*time.Millisecond)
		require.NoError(t, err)
		require.NoError(t, driver.Destroy(ctx, id))
		require.NoError(t, driver.Create(ctx, id, 0))

		// give the stale wake-up ample room to misfire
		time.Sleep(300 * time.Millisecond)
		assert.EqualValues(t, 2, initialized.Load())
		response, err := driver.Call(ctx, id, "get", nil)
		require.NoError(t, err)
		assert.Equal(t, 0, response, "a destroyed instance's wake-up must not fire on its successor")
	})

	t.Run("With wake-ups firing in timestamp order", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		require.NoError(t, registry.Register("test", func() Actor { return new(orderActor) }))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "order", "room-1")
		require.NoError(t, driver.Create(ctx, id, nil))

		labels := []string{"m0", "m1", "m2", "m3", "m4", "m5", "m6", "m7"}
		_, err := driver.Call(ctx, id, "planMarks", labels)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			response, seenErr := driver.Call(ctx, id, "seen", nil)
			return seenErr == nil && len(response.([]string)) == len(labels)
		}, 3*time.Second, 20*time.Millisecond)
		response, err := driver.Call(ctx, id, "seen", nil)
		require.NoError(t, err)
		assert.Equal(t, labels, response)
	})

	t.Run("With a failing wake-up not blocking later ones", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		require.NoError(t, registry.Register("test", func() Actor { return new(orderActor) }))
		driver := makeDriver(t, registry)

		id := NewIdentity("test", "order", "room-1")
		require.NoError(t, driver.Create(ctx, id, nil))

		_, err := driver.Call(ctx, id, "planMarks", []string{"early", "bad", "late"})
		require.NoError(t, err)

		// the bad mark errors before its state persists, so only the two
		// healthy marks are ever visible
		require.Eventually(t, func() bool {
			response, seenErr := driver.Call(ctx, id, "seen", nil)
			return seenErr == nil && len(response.([]string)) == 2
		}, 3*time.Second, 20*time.Millisecond)
		response, err := driver.Call(ctx, id, "seen", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"early", "late"}, response)
	})

	t.Run("With an invalid instance name", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := makeDriver(t, registry)

		err := driver.Create(ctx, NewIdentity("test", "counter", "bad name"), 0)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeStateInvalid))
	})
}
