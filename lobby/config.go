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
	"os"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/fleet"
	"github.com/rivet-gg/modules/internal/validation"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// ensure Duration implements the yaml.Unmarshaler interface
var _ yaml.Unmarshaler = (*Duration)(nil)

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// D returns the wrapped time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

// Config is the orchestrator configuration.
type Config struct {
	Lobbies            LobbiesConfig `yaml:"lobbies"`
	Players            PlayersConfig `yaml:"players"`
	LobbyRules         []LobbyRule   `yaml:"lobbyRules"`
	TickInterval       Duration      `yaml:"tickInterval"`
	GCInterval         Duration      `yaml:"gcInterval"`
	ServerPollInterval Duration      `yaml:"serverPollInterval"`
}

// LobbiesConfig governs lobby capacity, lifetime and permitted operations.
type LobbiesConfig struct {
	Regions             []string      `yaml:"regions"`
	MaxPlayers          int           `yaml:"maxPlayers"`
	MaxPlayersDirect    int           `yaml:"maxPlayersDirect"`
	DestroyOnEmptyAfter Duration      `yaml:"destroyOnEmptyAfter"`
	UnreadyExpireAfter  Duration      `yaml:"unreadyExpireAfter"`
	EnableCreate        bool          `yaml:"enableCreate"`
	EnableDestroy       bool          `yaml:"enableDestroy"`
	EnableFind          bool          `yaml:"enableFind"`
	EnableFindOrCreate  bool          `yaml:"enableFindOrCreate"`
	EnableJoin          bool          `yaml:"enableJoin"`
	Backend             BackendConfig `yaml:"backend"`
}

// PlayersConfig governs player admission control and expiry.
type PlayersConfig struct {
	MaxPerIP               int      `yaml:"maxPerIp"`
	MaxUnconnected         int      `yaml:"maxUnconnected"`
	UnconnectedExpireAfter Duration `yaml:"unconnectedExpireAfter"`
	AutoDestroyAfter       Duration `yaml:"autoDestroyAfter"`
}

// BackendConfig selects how created lobbies get their compute. Exactly one
// field is set.
type BackendConfig struct {
	Test             *BackendTestConfig     `yaml:"test"`
	LocalDevelopment *BackendLocalDevConfig `yaml:"localDevelopment"`
	Server           *BackendServerConfig   `yaml:"server"`
}

// BackendTestConfig is the stub backend for tests.
type BackendTestConfig struct{}

// BackendLocalDevConfig is the static local-development backend.
type BackendLocalDevConfig struct {
	Hostname string               `yaml:"hostname"`
	Ports    map[string]LocalPort `yaml:"ports"`
}

// BackendServerConfig provisions a real server per lobby.
type BackendServerConfig struct {
	BuildTags   map[string]string            `yaml:"buildTags"`
	Arguments   []string                     `yaml:"arguments"`
	Environment map[string]string            `yaml:"environment"`
	NetworkMode string                       `yaml:"networkMode"`
	Ports       map[string]fleet.PortRequest `yaml:"ports"`
	Resources   fleet.Resources              `yaml:"resources"`
}

// LobbyRule is a tag-scoped partial override. The first rule whose tags are
// a subset of a lobby's tags wins; later rules are ignored.
type LobbyRule struct {
	Tags   map[string]string `yaml:"tags"`
	Config RuleOverride      `yaml:"config"`
}

// RuleOverride holds the overridable subset of LobbiesConfig. Nil fields
// leave the base value in place.
type RuleOverride struct {
	Regions             []string  `yaml:"regions"`
	MaxPlayers          *int      `yaml:"maxPlayers"`
	MaxPlayersDirect    *int      `yaml:"maxPlayersDirect"`
	DestroyOnEmptyAfter *Duration `yaml:"destroyOnEmptyAfter"`
	UnreadyExpireAfter  *Duration `yaml:"unreadyExpireAfter"`
	EnableCreate        *bool     `yaml:"enableCreate"`
	EnableDestroy       *bool     `yaml:"enableDestroy"`
	EnableFind          *bool     `yaml:"enableFind"`
	EnableFindOrCreate  *bool     `yaml:"enableFindOrCreate"`
	EnableJoin          *bool     `yaml:"enableJoin"`
}

// DefaultConfig returns the configuration used when fields are left unset.
func DefaultConfig() Config {
	return Config{
		Lobbies: LobbiesConfig{
			Regions:             []string{"local"},
			MaxPlayers:          8,
			MaxPlayersDirect:    8,
			DestroyOnEmptyAfter: Duration(time.Minute),
			UnreadyExpireAfter:  Duration(5 * time.Minute),
			EnableCreate:        true,
			EnableDestroy:       true,
			EnableFind:          true,
			EnableFindOrCreate:  true,
			EnableJoin:          true,
			Backend: BackendConfig{
				Test: &BackendTestConfig{},
			},
		},
		Players: PlayersConfig{
			MaxPerIP:               8,
			MaxUnconnected:         128,
			UnconnectedExpireAfter: Duration(time.Minute),
			AutoDestroyAfter:       Duration(12 * time.Hour),
		},
		TickInterval:       Duration(time.Second),
		GCInterval:         Duration(15 * time.Second),
		ServerPollInterval: Duration(time.Minute),
	}
}

// LoadConfig reads a YAML config file, fills defaults and validates.
func LoadConfig(path string) (Config, error) {
	bytea, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Internal(err)
	}
	return ParseConfig(bytea)
}

// ParseConfig parses YAML config bytes, fills defaults and validates.
func ParseConfig(bytea []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(bytea, &cfg); err != nil {
		return Config{}, errors.New(errors.CodeStateInvalid, "failed to parse lobby config").WithCause(err)
	}
	// the backend default only applies when no backend was chosen at all,
	// otherwise merging would graft the default onto an explicit choice
	defaults := DefaultConfig()
	defaults.Lobbies.Backend = BackendConfig{}
	if err := mergo.Merge(&cfg, defaults); err != nil {
		return Config{}, errors.Internal(err)
	}
	if cfg.Lobbies.Backend.countSet() == 0 {
		cfg.Lobbies.Backend.Test = &BackendTestConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.New(errors.CodeStateInvalid, "invalid lobby config").WithCause(err)
	}
	return cfg, nil
}

func (b BackendConfig) countSet() int {
	count := 0
	if b.Test != nil {
		count++
	}
	if b.LocalDevelopment != nil {
		count++
	}
	if b.Server != nil {
		count++
	}
	return count
}

// Validate implements validation.Validator.
func (c Config) Validate() error {
	chain := validation.
		New(validation.AllErrors()).
		AddAssertion(len(c.Lobbies.Regions) > 0, "at least one region is required").
		AddAssertion(c.Lobbies.MaxPlayers > 0, "maxPlayers must be positive").
		AddAssertion(c.Lobbies.MaxPlayersDirect > 0, "maxPlayersDirect must be positive").
		AddAssertion(c.Lobbies.MaxPlayersDirect <= c.Lobbies.MaxPlayers, "maxPlayersDirect cannot exceed maxPlayers").
		AddAssertion(c.Players.MaxPerIP > 0, "maxPerIp must be positive").
		AddAssertion(c.Players.MaxUnconnected > 0, "maxUnconnected must be positive").
		AddAssertion(c.TickInterval.D() > 0, "tickInterval must be positive").
		AddAssertion(c.GCInterval.D() > 0, "gcInterval must be positive").
		AddAssertion(c.ServerPollInterval.D() > 0, "serverPollInterval must be positive").
		AddAssertion(c.Lobbies.Backend.countSet() == 1, "exactly one backend must be set")
	if c.Lobbies.Backend.Server != nil {
		chain.AddAssertion(len(c.Lobbies.Backend.Server.BuildTags) > 0, "server backend requires buildTags").
			AddAssertion(len(c.Lobbies.Backend.Server.Ports) > 0, "server backend requires ports")
	}
	return chain.Validate()
}

// ForTags resolves the effective lobby configuration for a lobby's tags:
// the base config with the first matching rule's overrides applied to a
// copy.
func (c Config) ForTags(tags map[string]string) LobbiesConfig {
	merged := c.Lobbies
	for _, rule := range c.LobbyRules {
		if !tagsSubset(rule.Tags, tags) {
			continue
		}
		rule.Config.apply(&merged)
		break
	}
	return merged
}

func (o RuleOverride) apply(cfg *LobbiesConfig) {
	if len(o.Regions) > 0 {
		cfg.Regions = o.Regions
	}
	if o.MaxPlayers != nil {
		cfg.MaxPlayers = *o.MaxPlayers
	}
	if o.MaxPlayersDirect != nil {
		cfg.MaxPlayersDirect = *o.MaxPlayersDirect
	}
	if o.DestroyOnEmptyAfter != nil {
		cfg.DestroyOnEmptyAfter = *o.DestroyOnEmptyAfter
	}
	if o.UnreadyExpireAfter != nil {
		cfg.UnreadyExpireAfter = *o.UnreadyExpireAfter
	}
	if o.EnableCreate != nil {
		cfg.EnableCreate = *o.EnableCreate
	}
	if o.EnableDestroy != nil {
		cfg.EnableDestroy = *o.EnableDestroy
	}
	if o.EnableFind != nil {
		cfg.EnableFind = *o.EnableFind
	}
	if o.EnableFindOrCreate != nil {
		cfg.EnableFindOrCreate = *o.EnableFindOrCreate
	}
	if o.EnableJoin != nil {
		cfg.EnableJoin = *o.EnableJoin
	}
}

// hasRegion reports whether the config allows the given region.
func (c LobbiesConfig) hasRegion(region string) bool {
	for _, candidate := range c.Regions {
		if candidate == region {
			return true
		}
	}
	return false
}
