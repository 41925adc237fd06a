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

package lobby

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagsSubset(t *testing.T) {
	t.Run("With empty wanted tags", func(t *testing.T) {
		assert.True(t, tagsSubset(nil, nil))
		assert.True(t, tagsSubset(nil, map[string]string{"a": "1"}))
	})
	t.Run("With a strict subset", func(t *testing.T) {
		assert.True(t, tagsSubset(
			map[string]string{"mode": "duel"},
			map[string]string{"mode": "duel", "map": "castle"},
		))
	})
	t.Run("With a differing value", func(t *testing.T) {
		assert.False(t, tagsSubset(
			map[string]string{"mode": "duel"},
			map[string]string{"mode": "ffa"},
		))
	})
	t.Run("With a missing key", func(t *testing.T) {
		assert.False(t, tagsSubset(
			map[string]string{"mode": "duel", "map": "castle"},
			map[string]string{"mode": "duel"},
		))
	})
}

// testLobby builds a ready in-memory lobby with count synthetic players.
func testLobby(id string, createdAt int64, count, maxPlayers int, tags map[string]string) *Lobby {
	lobby := &Lobby{
		ID:         id,
		Version:    "1.0.0",
		Region:     "local",
		Tags:       tags,
		CreatedAt:  createdAt,
		ReadyAt:    nanoRef(createdAt),
		Players:    make(map[string]*Player),
		MaxPlayers: maxPlayers,
		Backend:    Backend{Test: &BackendTest{}},
	}
	for i := 0; i < count; i++ {
		playerID := fmt.Sprintf("%s-p%d", id, i)
		lobby.Players[playerID] = &Player{ID: playerID, LobbyID: id, CreatedAt: createdAt}
	}
	return lobby
}

func TestFindLobbyComparator(t *testing.T) {
	query := func(players int) *FindLobbyRequest {
		return &FindLobbyRequest{
			Version: "1.0.0",
			Regions: []string{"local"},
			Players: make([]PlayerRequest, players),
		}
	}

	t.Run("With the fuller lobby preferred", func(t *testing.T) {
		state := newState()
		state.Lobbies["older"] = testLobby("older", 100, 2, 8, nil)
		state.Lobbies["newer"] = testLobby("newer", 200, 5, 8, nil)
		found := state.findLobby(query(1))
		require.NotNil(t, found)
		assert.Equal(t, "newer", found.ID)
	})
	t.Run("With ties broken toward the most recently created", func(t *testing.T) {
		state := newState()
		state.Lobbies["older"] = testLobby("older", 100, 3, 8, nil)
		state.Lobbies["newer"] = testLobby("newer", 200, 3, 8, nil)
		found := state.findLobby(query(1))
		require.NotNil(t, found)
		assert.Equal(t, "newer", found.ID)
	})
	t.Run("With full lobbies skipped", func(t *testing.T) {
		state := newState()
		state.Lobbies["full"] = testLobby("full", 200, 8, 8, nil)
		state.Lobbies["open"] = testLobby("open", 100, 1, 8, nil)
		found := state.findLobby(query(1))
		require.NotNil(t, found)
		assert.Equal(t, "open", found.ID)
	})
	t.Run("With remaining capacity honoring the party size", func(t *testing.T) {
		state := newState()
		state.Lobbies["tight"] = testLobby("tight", 200, 6, 8, nil)
		state.Lobbies["roomy"] = testLobby("roomy", 100, 2, 8, nil)
		found := state.findLobby(query(3))
		require.NotNil(t, found)
		assert.Equal(t, "roomy", found.ID)
	})
	t.Run("With version mismatches excluded", func(t *testing.T) {
		state := newState()
		state.Lobbies["l"] = testLobby("l", 100, 1, 8, nil)
		req := query(1)
		req.Version = "2.0.0"
		assert.Nil(t, state.findLobby(req))
	})
	t.Run("With any version and region accepted by local development", func(t *testing.T) {
		state := newState()
		lobby := testLobby("l", 100, 1, 8, nil)
		lobby.Backend = Backend{LocalDevelopment: &BackendLocalDevelopment{Hostname: "127.0.0.1"}}
		state.Lobbies["l"] = lobby
		req := query(1)
		req.Version = "2.0.0"
		require.NotNil(t, state.findLobby(req))
		req.Regions = []string{"eu-west"}
		require.NotNil(t, state.findLobby(req))
	})
	t.Run("With region membership enforced", func(t *testing.T) {
		state := newState()
		state.Lobbies["l"] = testLobby("l", 100, 1, 8, nil)
		req := query(1)
		req.Regions = []string{"eu-west"}
		assert.Nil(t, state.findLobby(req))
	})
	t.Run("With tag subset matching", func(t *testing.T) {
		state := newState()
		state.Lobbies["duel"] = testLobby("duel", 100, 1, 8, map[string]string{"mode": "duel", "map": "castle"})
		state.Lobbies["ffa"] = testLobby("ffa", 200, 1, 8, map[string]string{"mode": "ffa"})
		req := query(1)
		req.Tags = map[string]string{"mode": "duel"}
		found := state.findLobby(req)
		require.NotNil(t, found)
		assert.Equal(t, "duel", found.ID)
	})
}
