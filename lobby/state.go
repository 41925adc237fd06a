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

// Package lobby implements the lobby orchestrator: the authoritative owner
// of game lobbies, their players and their backing compute servers, hosted
// as a single actor instance.
package lobby

import (
	"maps"
	"time"

	"github.com/rivet-gg/modules/fleet"
)

const (
	// Module is the module name the orchestrator registers under.
	Module = "lobby"
	// KindLobbies is the orchestrator actor kind.
	KindLobbies = "lobbies"
	// DefaultInstance is the single global instance name. Sharding (for
	// example per region) is possible by addressing other instance names.
	DefaultInstance = "default"
)

// State is the orchestrator's persisted state, version 1.
type State struct {
	Lobbies          map[string]*Lobby  `msgpack:"lobbies"`
	Servers          map[string]*Server `msgpack:"servers"`
	LastGCAt         int64              `msgpack:"lastGcAt"`
	LastServerPollAt int64              `msgpack:"lastServerPollAt"`
}

func newState() *State {
	return &State{
		Lobbies: make(map[string]*Lobby),
		Servers: make(map[string]*Server),
	}
}

// Lobby is one matchmaking session. Timestamps are unix nanoseconds.
type Lobby struct {
	ID               string             `msgpack:"id"`
	Version          string             `msgpack:"version"`
	Region           string             `msgpack:"region"`
	Tags             map[string]string  `msgpack:"tags"`
	CreatedAt        int64              `msgpack:"createdAt"`
	ReadyAt          *int64             `msgpack:"readyAt"`
	EmptyAt          *int64             `msgpack:"emptyAt"`
	Players          map[string]*Player `msgpack:"players"`
	MaxPlayers       int                `msgpack:"maxPlayers"`
	MaxPlayersDirect int                `msgpack:"maxPlayersDirect"`
	Backend          Backend            `msgpack:"backend"`
}

// Ready reports whether the lobby has been marked ready.
func (l *Lobby) Ready() bool {
	return l.ReadyAt != nil
}

// PlayerCount returns the number of admitted players.
func (l *Lobby) PlayerCount() int {
	return len(l.Players)
}

// RemainingCapacity returns how many more players fit.
func (l *Lobby) RemainingCapacity() int {
	return l.MaxPlayers - len(l.Players)
}

// Player is one admitted player. A player is unconnected until a connect
// event lands.
type Player struct {
	ID          string  `msgpack:"id"`
	LobbyID     string  `msgpack:"lobbyId"`
	CreatedAt   int64   `msgpack:"createdAt"`
	ConnectedAt *int64  `msgpack:"connectedAt"`
	PublicIP    *string `msgpack:"publicIp"`
}

// Connected reports whether the player has connected to the game server.
func (p *Player) Connected() bool {
	return p.ConnectedAt != nil
}

// Backend is the tagged variant describing how a lobby's compute is
// realized. Exactly one field is set.
type Backend struct {
	Test             *BackendTest             `msgpack:"test"`
	LocalDevelopment *BackendLocalDevelopment `msgpack:"localDevelopment"`
	Server           *BackendServer           `msgpack:"server"`
}

// BackendTest is a stub backend for tests. Always ready, no compute.
type BackendTest struct{}

// BackendLocalDevelopment points players at a developer-run process on
// static ports. Always ready, accepts any version and region, and waives
// token checks.
type BackendLocalDevelopment struct {
	Hostname string               `msgpack:"hostname"`
	Ports    map[string]LocalPort `msgpack:"ports"`
}

// LocalPort is one statically assigned local-development port.
type LocalPort struct {
	Protocol string `msgpack:"protocol"`
	Port     int    `msgpack:"port"`
}

// BackendServer references the provisioned compute of a server-backed
// lobby.
type BackendServer struct {
	ServerID string `msgpack:"serverId"`
}

// acceptsAnyVersionOrRegion reports whether matchmaking may ignore the version and
// region filters for this lobby.
func (b Backend) acceptsAnyVersionOrRegion() bool {
	return b.LocalDevelopment != nil
}

// waivesToken reports whether lobby-scoped operations skip the token gate.
func (b Backend) waivesToken() bool {
	return b.LocalDevelopment != nil
}

// alwaysReady reports whether the lobby is ready from birth.
func (b Backend) alwaysReady() bool {
	return b.Test != nil || b.LocalDevelopment != nil
}

// Server is the orchestrator's record of one provisioned compute server.
// RemoteID and Remote are filled once the provisioning call returns;
// Remote is refreshed by polling.
type Server struct {
	ID           string        `msgpack:"id"`
	LobbyID      string        `msgpack:"lobbyId"`
	CreatedAt    int64         `msgpack:"createdAt"`
	CompleteAt   *int64        `msgpack:"completeAt"`
	LastPolledAt *int64        `msgpack:"lastPolledAt"`
	DestroyedAt  *int64        `msgpack:"destroyedAt"`
	RemoteID     string        `msgpack:"remoteId"`
	Remote       *fleet.Server `msgpack:"remote"`
}

// Provisioned reports whether the provisioning call has completed.
func (s *Server) Provisioned() bool {
	return s.CompleteAt != nil
}

// clone returns a deep copy. Responses hand out clones because callers read
// them outside the actor's logical thread.
func (l *Lobby) clone() *Lobby {
	out := *l
	out.Tags = maps.Clone(l.Tags)
	out.ReadyAt = clonePtr(l.ReadyAt)
	out.EmptyAt = clonePtr(l.EmptyAt)
	out.Players = make(map[string]*Player, len(l.Players))
	for id, player := range l.Players {
		out.Players[id] = player.clone()
	}
	out.Backend = l.Backend.clone()
	return &out
}

func (p *Player) clone() *Player {
	out := *p
	out.ConnectedAt = clonePtr(p.ConnectedAt)
	out.PublicIP = clonePtr(p.PublicIP)
	return &out
}

func (b Backend) clone() Backend {
	out := b
	out.Test = clonePtr(b.Test)
	out.Server = clonePtr(b.Server)
	if b.LocalDevelopment != nil {
		local := *b.LocalDevelopment
		local.Ports = maps.Clone(b.LocalDevelopment.Ports)
		out.LocalDevelopment = &local
	}
	return out
}

func (s *Server) clone() *Server {
	out := *s
	out.CompleteAt = clonePtr(s.CompleteAt)
	out.LastPolledAt = clonePtr(s.LastPolledAt)
	out.DestroyedAt = clonePtr(s.DestroyedAt)
	out.Remote = clonePtr(s.Remote)
	return &out
}

func clonePlayers(players []*Player) []*Player {
	out := make([]*Player, 0, len(players))
	for _, player := range players {
		out = append(out, player.clone())
	}
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func nowNano() int64 {
	return time.Now().UnixNano()
}

func nanoRef(at int64) *int64 {
	return &at
}
