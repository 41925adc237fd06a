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
	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/fleet"
)

// Orchestrator method names. External methods are called through
// lobby.Client; internal ones only by the orchestrator's own wake-ups and
// background tasks.
const (
	methodCreateLobby         = "createLobby"
	methodFindLobby           = "findLobby"
	methodFindOrCreateLobby   = "findOrCreateLobby"
	methodJoinLobby           = "joinLobby"
	methodSetLobbyReady       = "setLobbyReady"
	methodSetPlayersConnected = "setPlayersConnected"
	methodDestroyPlayers      = "destroyPlayers"
	methodDestroyLobby        = "destroyLobby"
	methodListLobbies         = "listLobbies"
	methodListServers         = "listServers"
	methodCheckLobbyReady     = "checkLobbyReady"
	methodTick                = "tick"
	methodCompleteProvision   = "completeServerProvision"
	methodFailProvision       = "failServerProvision"
)

// PlayerRequest describes one player to admit.
type PlayerRequest struct {
	PublicIP *string `msgpack:"publicIp"`
}

// CreateLobbyRequest creates a lobby and admits its first players. NoWait
// returns immediately instead of blocking until the lobby is ready; it is
// interpreted by the client, not the orchestrator.
type CreateLobbyRequest struct {
	Version    string            `msgpack:"version"`
	Region     string            `msgpack:"region"`
	Tags       map[string]string `msgpack:"tags"`
	MaxPlayers int               `msgpack:"maxPlayers"`
	Players    []PlayerRequest   `msgpack:"players"`
	NoWait     bool              `msgpack:"noWait"`
}

// FindLobbyRequest is a matchmaking query.
type FindLobbyRequest struct {
	Version string            `msgpack:"version"`
	Regions []string          `msgpack:"regions"`
	Tags    map[string]string `msgpack:"tags"`
	Players []PlayerRequest   `msgpack:"players"`
	NoWait  bool              `msgpack:"noWait"`
}

// FindOrCreateLobbyRequest finds a lobby or creates one from the given
// parameters.
type FindOrCreateLobbyRequest struct {
	Find   FindLobbyRequest   `msgpack:"find"`
	Create CreateLobbyRequest `msgpack:"create"`
}

// JoinLobbyRequest admits players into a specific lobby.
type JoinLobbyRequest struct {
	LobbyID string          `msgpack:"lobbyId"`
	Players []PlayerRequest `msgpack:"players"`
	NoWait  bool            `msgpack:"noWait"`
}

// SetLobbyReadyRequest marks a lobby ready. Token-gated unless the backend
// waives it.
type SetLobbyReadyRequest struct {
	LobbyID    string `msgpack:"lobbyId"`
	LobbyToken string `msgpack:"lobbyToken"`
}

// SetPlayersConnectedRequest records connect events for players.
type SetPlayersConnectedRequest struct {
	LobbyID    string   `msgpack:"lobbyId"`
	LobbyToken string   `msgpack:"lobbyToken"`
	PlayerIDs  []string `msgpack:"playerIds"`
}

// DestroyPlayersRequest removes players from a lobby.
type DestroyPlayersRequest struct {
	LobbyID    string   `msgpack:"lobbyId"`
	LobbyToken string   `msgpack:"lobbyToken"`
	PlayerIDs  []string `msgpack:"playerIds"`
}

// DestroyLobbyRequest tears a lobby down.
type DestroyLobbyRequest struct {
	LobbyID string `msgpack:"lobbyId"`
	Reason  string `msgpack:"reason"`
}

// LobbyResponse is returned by create, find, find-or-create and join. The
// token authorizes lobby-scoped follow-up calls and is only minted on
// create paths.
type LobbyResponse struct {
	Lobby      *Lobby    `msgpack:"lobby"`
	Players    []*Player `msgpack:"players"`
	LobbyToken string    `msgpack:"lobbyToken"`
	Created    bool      `msgpack:"created"`
}

// ListLobbiesResponse is a read-only snapshot of all lobbies.
type ListLobbiesResponse struct {
	Lobbies []*Lobby `msgpack:"lobbies"`
}

// ListServersResponse is a read-only snapshot of all server records.
type ListServersResponse struct {
	Servers []*Server `msgpack:"servers"`
}

// checkLobbyReadyRequest asks for a lobby's current readiness. Waiters call
// it once after subscribing to the lobby topic to close the race between
// the triggering call and the subscription. A lobby destroyed moments ago
// fails with its captured destroy cause instead of a bare not-found.
type checkLobbyReadyRequest struct {
	LobbyID string `msgpack:"lobbyId"`
}

type checkLobbyReadyResponse struct {
	Ready bool `msgpack:"ready"`
}

// completeProvisionRequest is the background provisioning task reporting
// success.
type completeProvisionRequest struct {
	LobbyID  string        `msgpack:"lobbyId"`
	ServerID string        `msgpack:"serverId"`
	RemoteID string        `msgpack:"remoteId"`
	Remote   *fleet.Server `msgpack:"remote"`
}

// failProvisionRequest is the background provisioning task reporting
// failure. The cause is wire-encoded so waiters can observe it.
type failProvisionRequest struct {
	LobbyID  string       `msgpack:"lobbyId"`
	ServerID string       `msgpack:"serverId"`
	Cause    *errors.Wire `msgpack:"cause"`
}

// readyEvent is published on the lobby's event topic whenever readiness
// resolves. Exactly one of Ready or Abort applies.
type readyEvent struct {
	LobbyID string
	Ready   bool
	Abort   error
}

// lobbyTopic is the event topic readiness waiters subscribe to.
func lobbyTopic(lobbyID string) string {
	return "lobby." + lobbyID
}
