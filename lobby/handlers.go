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
	"sort"

	"github.com/google/uuid"

	"github.com/rivet-gg/modules/actor"
	"github.com/rivet-gg/modules/errors"
)

func (a *lobbiesActor) createLobby(ctx *actor.Context, state *State, req *CreateLobbyRequest) (*LobbyResponse, error) {
	cfg := a.env.Config.ForTags(req.Tags)
	if !cfg.EnableCreate {
		return nil, errors.New(errors.CodeForbidden, "lobby creation is disabled")
	}
	return a.insertLobby(ctx, state, cfg, req)
}

// insertLobby is the permission-unchecked create path shared by createLobby
// and findOrCreateLobby.
func (a *lobbiesActor) insertLobby(ctx *actor.Context, state *State, cfg LobbiesConfig, req *CreateLobbyRequest) (*LobbyResponse, error) {
	backend := backendFromConfig(cfg.Backend)
	if !backend.acceptsAnyVersionOrRegion() && !cfg.hasRegion(req.Region) {
		return nil, errors.Newf(errors.CodeRegionNotFound, "region %s is not configured", req.Region)
	}
	maxPlayers := req.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = cfg.MaxPlayers
	}
	if maxPlayers > cfg.MaxPlayers {
		return nil, errors.Newf(errors.CodeForbidden, "maxPlayers %d exceeds the configured maximum %d", maxPlayers, cfg.MaxPlayers)
	}

	now := nowNano()
	lobby := &Lobby{
		ID:               uuid.NewString(),
		Version:          req.Version,
		Region:           req.Region,
		Tags:             req.Tags,
		CreatedAt:        now,
		Players:          make(map[string]*Player),
		MaxPlayers:       maxPlayers,
		MaxPlayersDirect: min(cfg.MaxPlayersDirect, maxPlayers),
		Backend:          backend,
	}
	if backend.alwaysReady() {
		lobby.ReadyAt = nanoRef(now)
	}
	if len(req.Players) == 0 {
		lobby.EmptyAt = nanoRef(now)
	}
	state.Lobbies[lobby.ID] = lobby

	players, err := a.admitPlayers(ctx, state, lobby, req.Players, false)
	if err != nil {
		delete(state.Lobbies, lobby.ID)
		return nil, err
	}

	// issue the token before provisioning so a token failure never leaves
	// a server record with an in-flight provision behind
	lobbyToken, err := a.env.Tokens.IssueLobbyToken(lobby.ID)
	if err != nil {
		delete(state.Lobbies, lobby.ID)
		return nil, err
	}

	if lobby.Backend.Server != nil {
		server := &Server{ID: lobby.Backend.Server.ServerID, LobbyID: lobby.ID, CreatedAt: now}
		state.Servers[server.ID] = server
		if err := a.startProvision(ctx, lobby, server, cfg); err != nil {
			delete(state.Servers, server.ID)
			delete(state.Lobbies, lobby.ID)
			return nil, err
		}
	}

	ctx.Logger().Infof("created lobby id=%s region=%s players=%d", lobby.ID, lobby.Region, len(players))
	return &LobbyResponse{Lobby: lobby.clone(), Players: clonePlayers(players), LobbyToken: lobbyToken, Created: true}, nil
}

// backendFromConfig resolves the configured backend variant for a new
// lobby. Server backends get a fresh server id; the server record itself is
// created by the caller.
func backendFromConfig(cfg BackendConfig) Backend {
	switch {
	case cfg.LocalDevelopment != nil:
		ports := make(map[string]LocalPort, len(cfg.LocalDevelopment.Ports))
		for name, port := range cfg.LocalDevelopment.Ports {
			ports[name] = port
		}
		return Backend{LocalDevelopment: &BackendLocalDevelopment{
			Hostname: cfg.LocalDevelopment.Hostname,
			Ports:    ports,
		}}
	case cfg.Server != nil:
		return Backend{Server: &BackendServer{ServerID: uuid.NewString()}}
	default:
		return Backend{Test: &BackendTest{}}
	}
}

func (a *lobbiesActor) findLobby(ctx *actor.Context, state *State, req *FindLobbyRequest) (*LobbyResponse, error) {
	cfg := a.env.Config.ForTags(req.Tags)
	if !cfg.EnableFind {
		return nil, errors.New(errors.CodeForbidden, "lobby find is disabled")
	}
	lobby := state.findLobby(req)
	if lobby == nil {
		return nil, errors.New(errors.CodeNoMatchingLobbies, "no lobbies match the query")
	}
	players, err := a.admitPlayers(ctx, state, lobby, req.Players, false)
	if err != nil {
		return nil, err
	}
	return &LobbyResponse{Lobby: lobby.clone(), Players: clonePlayers(players)}, nil
}

func (a *lobbiesActor) findOrCreateLobby(ctx *actor.Context, state *State, req *FindOrCreateLobbyRequest) (*LobbyResponse, error) {
	cfg := a.env.Config.ForTags(req.Find.Tags)
	if !cfg.EnableFindOrCreate {
		return nil, errors.New(errors.CodeForbidden, "lobby find-or-create is disabled")
	}
	if lobby := state.findLobby(&req.Find); lobby != nil {
		players, err := a.admitPlayers(ctx, state, lobby, req.Find.Players, false)
		if err != nil {
			return nil, err
		}
		return &LobbyResponse{Lobby: lobby.clone(), Players: clonePlayers(players)}, nil
	}
	return a.insertLobby(ctx, state, a.env.Config.ForTags(req.Create.Tags), &req.Create)
}

func (a *lobbiesActor) joinLobby(ctx *actor.Context, state *State, req *JoinLobbyRequest) (*LobbyResponse, error) {
	lobby, err := a.lookupLobby(state, req.LobbyID)
	if err != nil {
		return nil, err
	}
	cfg := a.env.Config.ForTags(lobby.Tags)
	if !cfg.EnableJoin {
		return nil, errors.New(errors.CodeForbidden, "lobby join is disabled")
	}
	players, err := a.admitPlayers(ctx, state, lobby, req.Players, true)
	if err != nil {
		return nil, err
	}
	return &LobbyResponse{Lobby: lobby.clone(), Players: clonePlayers(players)}, nil
}

func (a *lobbiesActor) setLobbyReady(ctx *actor.Context, state *State, req *SetLobbyReadyRequest) error {
	lobby, err := a.lookupLobby(state, req.LobbyID)
	if err != nil {
		return err
	}
	if err := a.authorize(lobby, req.LobbyToken); err != nil {
		return err
	}
	if lobby.Ready() {
		// local development restarts its process freely and re-announces
		if lobby.Backend.LocalDevelopment != nil {
			return nil
		}
		return errors.Newf(errors.CodeLobbyReadyRepeated, "lobby %s is already ready", lobby.ID)
	}
	lobby.ReadyAt = nanoRef(nowNano())
	a.env.publishReady(lobby.ID)
	ctx.Logger().Infof("lobby ready id=%s", lobby.ID)
	return nil
}

func (a *lobbiesActor) setPlayersConnected(_ *actor.Context, state *State, req *SetPlayersConnectedRequest) error {
	lobby, err := a.lookupLobby(state, req.LobbyID)
	if err != nil {
		return err
	}
	if err := a.authorize(lobby, req.LobbyToken); err != nil {
		return err
	}
	players := make([]*Player, 0, len(req.PlayerIDs))
	for _, id := range req.PlayerIDs {
		player, ok := lobby.Players[id]
		if !ok {
			return errors.Newf(errors.CodePlayerNotFound, "player %s is not in lobby %s", id, lobby.ID)
		}
		players = append(players, player)
	}
	now := nowNano()
	for _, player := range players {
		if player.ConnectedAt == nil {
			player.ConnectedAt = nanoRef(now)
		}
	}
	return nil
}

func (a *lobbiesActor) destroyPlayers(ctx *actor.Context, state *State, req *DestroyPlayersRequest) error {
	lobby, err := a.lookupLobby(state, req.LobbyID)
	if err != nil {
		return err
	}
	if err := a.authorize(lobby, req.LobbyToken); err != nil {
		return err
	}
	players := make([]*Player, 0, len(req.PlayerIDs))
	for _, id := range req.PlayerIDs {
		player, ok := lobby.Players[id]
		if !ok {
			return errors.Newf(errors.CodePlayerNotFound, "player %s is not in lobby %s", id, lobby.ID)
		}
		players = append(players, player)
	}
	for _, player := range players {
		a.removePlayer(ctx, state, player)
	}
	return nil
}

func (a *lobbiesActor) destroyLobbyByID(ctx *actor.Context, state *State, req *DestroyLobbyRequest) error {
	lobby, err := a.lookupLobby(state, req.LobbyID)
	if err != nil {
		return err
	}
	cfg := a.env.Config.ForTags(lobby.Tags)
	if !cfg.EnableDestroy {
		return errors.New(errors.CodeForbidden, "lobby destroy is disabled")
	}
	reason := req.Reason
	if reason == "" {
		reason = "destroyed"
	}
	a.destroyLobby(ctx, state, lobby, reason, nil)
	return nil
}

// destroyLobby removes a lobby, records its tombstone, rejects readiness
// waiters and tears down server-backed compute in the background.
func (a *lobbiesActor) destroyLobby(ctx *actor.Context, state *State, lobby *Lobby, reason string, cause error) {
	delete(state.Lobbies, lobby.ID)
	meta := &destroyedLobby{Reason: reason, Cause: cause, At: nowNano()}
	a.env.destroyed.Set(lobby.ID, meta)
	a.env.publishAbort(lobby.ID, meta.abortError())

	if lobby.Backend.Server != nil {
		if server, ok := state.Servers[lobby.Backend.Server.ServerID]; ok && server.DestroyedAt == nil {
			server.DestroyedAt = nanoRef(nowNano())
			if server.RemoteID != "" {
				a.destroyRemote(ctx, server.RemoteID)
			}
			// a provision still in flight is cleaned up when it reports back
		}
	}
	ctx.Logger().Infof("destroyed lobby id=%s reason=%s", lobby.ID, reason)
}

// lookupLobby resolves a lobby id.
func (a *lobbiesActor) lookupLobby(state *State, id string) (*Lobby, error) {
	lobby, ok := state.Lobbies[id]
	if !ok {
		return nil, errors.Newf(errors.CodeLobbyNotFound, "lobby %s does not exist", id)
	}
	return lobby, nil
}

// checkLobbyReady is the one read that consults destroy tombstones: a
// waiter racing a destroy gets the captured cause instead of a bare
// not-found.
func (a *lobbiesActor) checkLobbyReady(state *State, req *checkLobbyReadyRequest) (*checkLobbyReadyResponse, error) {
	if lobby, ok := state.Lobbies[req.LobbyID]; ok {
		return &checkLobbyReadyResponse{Ready: lobby.Ready()}, nil
	}
	if meta, ok := a.env.destroyed.Get(req.LobbyID); ok {
		return nil, meta.abortError()
	}
	return nil, errors.Newf(errors.CodeLobbyNotFound, "lobby %s does not exist", req.LobbyID)
}

func (a *lobbiesActor) listLobbies(state *State) *ListLobbiesResponse {
	lobbies := make([]*Lobby, 0, len(state.Lobbies))
	for _, lobby := range state.Lobbies {
		lobbies = append(lobbies, lobby.clone())
	}
	sort.Slice(lobbies, func(i, j int) bool {
		if lobbies[i].CreatedAt != lobbies[j].CreatedAt {
			return lobbies[i].CreatedAt < lobbies[j].CreatedAt
		}
		return lobbies[i].ID < lobbies[j].ID
	})
	return &ListLobbiesResponse{Lobbies: lobbies}
}

func (a *lobbiesActor) listServers(state *State) *ListServersResponse {
	servers := make([]*Server, 0, len(state.Servers))
	for _, server := range state.Servers {
		servers = append(servers, server.clone())
	}
	sort.Slice(servers, func(i, j int) bool {
		if servers[i].CreatedAt != servers[j].CreatedAt {
			return servers[i].CreatedAt < servers[j].CreatedAt
		}
		return servers[i].ID < servers[j].ID
	})
	return &ListServersResponse{Servers: servers}
}
