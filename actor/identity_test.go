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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	t.Run("With a valid identity", func(t *testing.T) {
		id := NewIdentity("lobby", "lobbies", "default")
		require.NoError(t, id.Validate())
		assert.Equal(t, "lobby", id.Module())
		assert.Equal(t, "lobbies", id.Kind())
		assert.Equal(t, "default", id.Instance())
		assert.Equal(t, "lobby/lobbies/default", id.String())
	})

	t.Run("With invalid identities", func(t *testing.T) {
		assert.Error(t, NewIdentity("", "lobbies", "default").Validate())
		assert.Error(t, NewIdentity("lobby", "", "default").Validate())
		assert.Error(t, NewIdentity("lobby", "lobbies", "").Validate())
		assert.Error(t, NewIdentity("lobby", "lobbies", "has space").Validate())
		assert.Error(t, NewIdentity("lobby", "lobbies", "-leading").Validate())
	})

	t.Run("With storage keys", func(t *testing.T) {
		id := NewIdentity("lobby", "lobbies", "default")
		key := id.storageKey("", "")
		assert.Len(t, key, 32)
		assert.Equal(t, key, id.storageKey("", ""), "keys must be deterministic")
		assert.NotEqual(t, key, NewIdentity("lobby", "lobbies", "other").storageKey("", ""))

		// aliases pin the key space across renames
		renamed := NewIdentity("matchmaking", "lobbies", "default")
		assert.Equal(t, key, renamed.storageKey("lobby", ""))
		assert.NotEqual(t, key, renamed.storageKey("", ""))
	})
}

func TestRegistry(t *testing.T) {
	t.Run("With duplicate registration", func(t *testing.T) {
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory))
		require.Error(t, registry.Register("test", factory))
	})

	t.Run("With a kind storage alias", func(t *testing.T) {
		registry := NewRegistry()
		factory, _ := newCounterFactory()
		require.NoError(t, registry.Register("test", factory, WithStorageAlias("legacy-counter")))

		reg, err := registry.lookup("test", "counter")
		require.NoError(t, err)
		id := NewIdentity("test", "counter", "a")
		assert.Equal(t, id.storageKey("", "legacy-counter"), reg.key(id))
	})
}
