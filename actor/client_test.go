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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivet-gg/modules/log"
)

func TestClient(t *testing.T) {
	t.Run("With ref operations", func(t *testing.T) {
		ctx := context.Background()
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		driver := newTestMemoryDriver(t, registry)
		client := NewClient(driver, "test", WithClientLogger(log.DiscardLogger))

		ref := client.Actor("counter", "room-1")
		assert.Equal(t, "test/counter/room-1", ref.Identity().String())

		require.NoError(t, ref.Create(ctx, 1))
		response, err := ref.Call(ctx, "increment", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, response)

		response, err = ref.GetOrCreateAndCall(ctx, 0, "increment", nil)
		require.NoError(t, err)
		assert.Equal(t, 3, response)

		exists, err := ref.Exists(ctx)
		require.NoError(t, err)
		assert.True(t, exists)

		require.NoError(t, ref.WaitTasks(ctx))
		require.NoError(t, ref.Destroy(ctx))
		exists, err = ref.Exists(ctx)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("With request ids", func(t *testing.T) {
		ctx := context.Background()
		assert.Empty(t, RequestID(ctx))

		stamped := withRequestID(ctx)
		assert.NotEmpty(t, RequestID(stamped))
		assert.Equal(t, RequestID(stamped), RequestID(withRequestID(stamped)), "existing ids must be preserved")
	})
}
