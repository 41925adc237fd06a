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
	"github.com/rivet-gg/modules/actor"
	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/fleet"
)

// tick is the self-rescheduling periodic job. The GC sweep and the remote
// server poll run on their own slower cadences within it.
func (a *lobbiesActor) tick(ctx *actor.Context, state *State) error {
	// reschedule first so a failing sweep does not stop the clock
	if err := ctx.Schedule(a.env.Config.TickInterval.D(), methodTick, nil); err != nil {
		return err
	}
	now := nowNano()
	if now-state.LastGCAt >= int64(a.env.Config.GCInterval.D()) {
		state.LastGCAt = now
		a.gc(ctx, state, now)
	}
	if a.env.Config.Lobbies.Backend.Server != nil && now-state.LastServerPollAt >= int64(a.env.Config.ServerPollInterval.D()) {
		state.LastServerPollAt = now
		a.pollServers(ctx, state, now)
	}
	return nil
}

// gc sweeps expired destroy metadata, destroys lobbies that never became
// ready or stayed empty past their deadlines, and evicts players that never
// connected or are simply too old. Running it twice back to back is a
// no-op the second time.
func (a *lobbiesActor) gc(ctx *actor.Context, state *State, now int64) {
	a.env.destroyed.DeleteIf(func(_ string, meta *destroyedLobby) bool {
		return now-meta.At >= int64(a.env.destroyTTL)
	})

	players := a.env.Config.Players
	for _, lobby := range snapshotLobbies(state) {
		if _, ok := state.Lobbies[lobby.ID]; !ok {
			continue
		}
		cfg := a.env.Config.ForTags(lobby.Tags)
		if !lobby.Ready() && cfg.UnreadyExpireAfter.D() > 0 && now-lobby.CreatedAt >= int64(cfg.UnreadyExpireAfter.D()) {
			a.destroyLobby(ctx, state, lobby, "ready_timeout", nil)
			continue
		}
		if lobby.EmptyAt != nil && cfg.DestroyOnEmptyAfter.D() > 0 && now-*lobby.EmptyAt >= int64(cfg.DestroyOnEmptyAfter.D()) {
			a.destroyLobby(ctx, state, lobby, "lobby_empty", nil)
			continue
		}
		for _, player := range snapshotPlayers(lobby) {
			switch {
			case !player.Connected() && players.UnconnectedExpireAfter.D() > 0 && now-player.CreatedAt >= int64(players.UnconnectedExpireAfter.D()):
				ctx.Logger().Debugf("evicting player id=%s lobby=%s never connected", player.ID, player.LobbyID)
				a.removePlayer(ctx, state, player)
			case players.AutoDestroyAfter.D() > 0 && now-player.CreatedAt >= int64(players.AutoDestroyAfter.D()):
				ctx.Logger().Debugf("evicting player id=%s lobby=%s past max age", player.ID, player.LobbyID)
				a.removePlayer(ctx, state, player)
			}
		}
	}
}

// pollServers reconciles local server records against the remote platform:
// refreshes snapshots, flips lobbies ready when their server started,
// destroys lobbies whose server is gone, and tears down orphaned remotes.
func (a *lobbiesActor) pollServers(ctx *actor.Context, state *State, now int64) {
	remotes, err := a.env.Fleet.ListServers(ctx.Context(), ownerTags())
	if err != nil {
		ctx.Logger().Warnf("failed to poll remote servers: %v", err)
		return
	}
	// the list call suspends; re-check liveness before mutating
	if !ctx.Alive() {
		return
	}

	remoteByServerID := make(map[string]*fleet.Server, len(remotes))
	for _, remote := range remotes {
		if id := remote.Tags[tagServerID]; id != "" {
			remoteByServerID[id] = remote
		}
	}

	for _, server := range snapshotServers(state) {
		remote, present := remoteByServerID[server.ID]
		if server.DestroyedAt != nil {
			// teardown already issued; drop the record once the remote is gone
			if !present || remote.Destroyed() {
				delete(state.Servers, server.ID)
			}
			continue
		}
		if !server.Provisioned() {
			// the create call is still in flight
			continue
		}
		if !present || remote.Destroyed() {
			cause := errors.Newf(errors.CodeServerNotFound, "remote server %s is gone", server.RemoteID)
			if lobby, ok := state.Lobbies[server.LobbyID]; ok {
				a.destroyLobby(ctx, state, lobby, "server_gone", cause)
			} else {
				server.DestroyedAt = nanoRef(now)
			}
			if !present {
				delete(state.Servers, server.ID)
			}
			continue
		}

		server.Remote = remote
		server.LastPolledAt = nanoRef(now)
		if remote.Started() {
			if lobby, ok := state.Lobbies[server.LobbyID]; ok && !lobby.Ready() {
				lobby.ReadyAt = nanoRef(now)
				a.env.publishReady(lobby.ID)
				ctx.Logger().Infof("lobby ready id=%s server=%s started", lobby.ID, server.ID)
			}
		}
	}

	for _, remote := range remotes {
		if remote.Destroyed() {
			continue
		}
		if _, ok := state.Servers[remote.Tags[tagServerID]]; !ok {
			ctx.Logger().Warnf("destroying orphaned remote server id=%s", remote.ID)
			a.destroyRemote(ctx, remote.ID)
		}
	}
}

func snapshotLobbies(state *State) []*Lobby {
	lobbies := make([]*Lobby, 0, len(state.Lobbies))
	for _, lobby := range state.Lobbies {
		lobbies = append(lobbies, lobby)
	}
	return lobbies
}

func snapshotServers(state *State) []*Server {
	servers := make([]*Server, 0, len(state.Servers))
	for _, server := range state.Servers {
		servers = append(servers, server)
	}
	return servers
}

func snapshotPlayers(lobby *Lobby) []*Player {
	players := make([]*Player, 0, len(lobby.Players))
	for _, player := range lobby.Players {
		players = append(players, player)
	}
	return players
}
