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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivet-gg/modules/errors"
)

func TestParseConfig(t *testing.T) {
	t.Run("With empty input yielding defaults", func(t *testing.T) {
		cfg, err := ParseConfig(nil)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
		assert.NotNil(t, cfg.Lobbies.Backend.Test)
	})
	t.Run("With partial overrides merged onto defaults", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`
lobbies:
  regions: [eu-west, us-east]
  maxPlayers: 16
tickInterval: 250ms
`))
		require.NoError(t, err)
		assert.Equal(t, []string{"eu-west", "us-east"}, cfg.Lobbies.Regions)
		assert.Equal(t, 16, cfg.Lobbies.MaxPlayers)
		assert.Equal(t, 250*time.Millisecond, cfg.TickInterval.D())
		// untouched fields keep their defaults
		assert.Equal(t, 8, cfg.Players.MaxPerIP)
		assert.Equal(t, 15*time.Second, cfg.GCInterval.D())
	})
	t.Run("With an explicit backend not grafted with the default", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`
lobbies:
  backend:
    localDevelopment:
      hostname: 127.0.0.1
      ports:
        game:
          protocol: udp
          port: 7777
`))
		require.NoError(t, err)
		assert.Nil(t, cfg.Lobbies.Backend.Test)
		require.NotNil(t, cfg.Lobbies.Backend.LocalDevelopment)
		assert.Equal(t, "127.0.0.1", cfg.Lobbies.Backend.LocalDevelopment.Hostname)
		assert.Equal(t, 7777, cfg.Lobbies.Backend.LocalDevelopment.Ports["game"].Port)
	})
	t.Run("With duration strings", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`
lobbies:
  destroyOnEmptyAfter: 90s
players:
  autoDestroyAfter: 2h
`))
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Lobbies.DestroyOnEmptyAfter.D())
		assert.Equal(t, 2*time.Hour, cfg.Players.AutoDestroyAfter.D())
	})
	t.Run("With malformed yaml", func(t *testing.T) {
		_, err := ParseConfig([]byte("lobbies: ["))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeStateInvalid))
	})
	t.Run("With invalid values rejected", func(t *testing.T) {
		_, err := ParseConfig([]byte(`
lobbies:
  maxPlayers: 4
  maxPlayersDirect: 9
`))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeStateInvalid))
		assert.ErrorContains(t, err, "maxPlayersDirect cannot exceed maxPlayers")
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("With two backends set", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Lobbies.Backend.Server = &BackendServerConfig{}
		require.ErrorContains(t, cfg.Validate(), "exactly one backend")
	})
	t.Run("With a server backend missing build tags", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Lobbies.Backend = BackendConfig{Server: &BackendServerConfig{}}
		err := cfg.Validate()
		require.ErrorContains(t, err, "buildTags")
		require.ErrorContains(t, err, "ports")
	})
	t.Run("With no regions", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Lobbies.Regions = nil
		require.ErrorContains(t, cfg.Validate(), "at least one region")
	})
}

func TestConfigForTags(t *testing.T) {
	base := DefaultConfig()
	base.Lobbies.MaxPlayers = 10
	base.Lobbies.MaxPlayersDirect = 10
	four := 4
	six := 6
	disabled := false
	base.LobbyRules = []LobbyRule{
		{Tags: map[string]string{"mode": "duel"}, Config: RuleOverride{MaxPlayers: &four, MaxPlayersDirect: &four}},
		{Tags: map[string]string{"mode": "duel", "arena": "small"}, Config: RuleOverride{MaxPlayers: &six, EnableJoin: &disabled}},
	}

	t.Run("With no matching rule", func(t *testing.T) {
		merged := base.ForTags(map[string]string{"mode": "battle-royale"})
		assert.Equal(t, 10, merged.MaxPlayers)
		assert.True(t, merged.EnableJoin)
	})
	t.Run("With the first matching rule applied", func(t *testing.T) {
		merged := base.ForTags(map[string]string{"mode": "duel", "map": "castle"})
		assert.Equal(t, 4, merged.MaxPlayers)
		assert.Equal(t, 4, merged.MaxPlayersDirect)
	})
	t.Run("With later matching rules ignored", func(t *testing.T) {
		// both rules match; only the first applies
		merged := base.ForTags(map[string]string{"mode": "duel", "arena": "small"})
		assert.Equal(t, 4, merged.MaxPlayers)
		assert.True(t, merged.EnableJoin)
	})
	t.Run("With unset override fields keeping base values", func(t *testing.T) {
		merged := base.ForTags(map[string]string{"mode": "duel"})
		assert.Equal(t, base.Lobbies.Regions, merged.Regions)
		assert.True(t, merged.EnableCreate)
	})
}
