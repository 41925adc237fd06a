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

// Remote server tags. The owner tag scopes list calls to servers this
// orchestrator created; the server-id tag maps a remote back to its local
// record during poll reconciliation.
const (
	tagOwner      = "owner"
	tagOwnerValue = "lobbies"
	tagLobbyID    = "lobbyId"
	tagServerID   = "serverId"
)

func ownerTags() map[string]string {
	return map[string]string{tagOwner: tagOwnerValue}
}

func serverTags(lobbyID, serverID string) map[string]string {
	return map[string]string{
		tagOwner:    tagOwnerValue,
		tagLobbyID:  lobbyID,
		tagServerID: serverID,
	}
}

// startProvision kicks off remote provisioning for a server-backed lobby as
// a background task so the triggering call returns immediately. The task
// reports back through completeServerProvision or failServerProvision,
// which re-enter the actor like any other caller.
func (a *lobbiesActor) startProvision(ctx *actor.Context, lobby *Lobby, server *Server, cfg LobbiesConfig) error {
	serverCfg := cfg.Backend.Server
	if serverCfg == nil {
		return errors.Unreachable("lobby backend", lobby.Backend)
	}
	lobbyID := lobby.ID
	serverID := server.ID
	region := lobby.Region

	return ctx.Spawn(func(b *actor.Background) {
		remote, err := a.provision(b, serverCfg, region, lobbyID, serverID)
		if err != nil {
			b.Logger().Warnf("provisioning failed lobby=%s: %v", lobbyID, err)
			report := &failProvisionRequest{LobbyID: lobbyID, ServerID: serverID, Cause: errors.Encode(err)}
			if _, callErr := b.Call(methodFailProvision, report); callErr != nil {
				b.Logger().Warnf("failed to report provisioning failure lobby=%s: %v", lobbyID, callErr)
			}
			return
		}

		report := &completeProvisionRequest{
			LobbyID:  lobbyID,
			ServerID: serverID,
			RemoteID: remote.ID,
			Remote:   remote,
		}
		if _, callErr := b.Call(methodCompleteProvision, report); callErr != nil {
			// the orchestrator is gone, so nothing will reconcile this remote
			b.Logger().Warnf("failed to report provisioned server lobby=%s, destroying remote %s: %v", lobbyID, remote.ID, callErr)
			if err := a.env.Fleet.DestroyServer(b.Context(), remote.ID); err != nil && !errors.IsCode(err, errors.CodeServerNotFound) {
				b.Logger().Errorf("failed to destroy orphaned remote server id=%s: %v", remote.ID, err)
			}
		}
	})
}

// provision resolves the build and datacenter, then asks the platform for a
// server.
func (a *lobbiesActor) provision(b *actor.Background, cfg *BackendServerConfig, region, lobbyID, serverID string) (*fleet.Server, error) {
	builds, err := a.env.Fleet.ListBuilds(b.Context(), cfg.BuildTags)
	if err != nil {
		return nil, err
	}
	if len(builds) == 0 {
		return nil, errors.New(errors.CodeBuildNotFound, "no build matches the configured tags")
	}
	build := builds[0]

	datacenters, err := a.env.Fleet.ListDatacenters(b.Context())
	if err != nil {
		return nil, err
	}
	var datacenter *fleet.Datacenter
	for _, candidate := range datacenters {
		if candidate.Slug == region {
			datacenter = candidate
			break
		}
	}
	if datacenter == nil {
		return nil, errors.Newf(errors.CodeRegionNotFound, "no datacenter serves region %s", region)
	}

	return a.env.Fleet.CreateServer(b.Context(), &fleet.CreateServerRequest{
		Datacenter:  datacenter.ID,
		Tags:        serverTags(lobbyID, serverID),
		BuildID:     build.ID,
		Arguments:   cfg.Arguments,
		Environment: cfg.Environment,
		NetworkMode: cfg.NetworkMode,
		Ports:       cfg.Ports,
		Resources:   cfg.Resources,
	})
}

// completeServerProvision records a finished provisioning call. When the
// lobby died in the meantime the fresh remote is torn right back down.
func (a *lobbiesActor) completeServerProvision(ctx *actor.Context, state *State, req *completeProvisionRequest) error {
	now := nowNano()
	server, ok := state.Servers[req.ServerID]
	if !ok {
		a.destroyRemote(ctx, req.RemoteID)
		return nil
	}
	server.CompleteAt = nanoRef(now)
	server.RemoteID = req.RemoteID
	server.Remote = req.Remote
	if server.DestroyedAt != nil {
		a.destroyRemote(ctx, req.RemoteID)
		return nil
	}

	lobby, ok := state.Lobbies[server.LobbyID]
	if !ok {
		server.DestroyedAt = nanoRef(now)
		a.destroyRemote(ctx, req.RemoteID)
		return nil
	}
	ctx.Logger().Infof("server provisioned lobby=%s server=%s remote=%s", lobby.ID, server.ID, req.RemoteID)
	if req.Remote != nil && req.Remote.Started() && !lobby.Ready() {
		lobby.ReadyAt = nanoRef(now)
		a.env.publishReady(lobby.ID)
	}
	return nil
}

// failServerProvision destroys the lobby whose server could not be
// provisioned, attaching the decoded cause so waiters observe it.
func (a *lobbiesActor) failServerProvision(ctx *actor.Context, state *State, req *failProvisionRequest) error {
	cause := errors.Decode(req.Cause)
	delete(state.Servers, req.ServerID)
	if lobby, ok := state.Lobbies[req.LobbyID]; ok {
		a.destroyLobby(ctx, state, lobby, "server_provision_failed", cause)
	}
	return nil
}

// destroyRemote tears a remote server down in the background. A remote the
// platform no longer knows is treated as already gone.
func (a *lobbiesActor) destroyRemote(ctx *actor.Context, remoteID string) {
	err := ctx.Spawn(func(b *actor.Background) {
		if err := a.env.Fleet.DestroyServer(b.Context(), remoteID); err != nil && !errors.IsCode(err, errors.CodeServerNotFound) {
			b.Logger().Errorf("failed to destroy remote server id=%s: %v", remoteID, err)
		}
	})
	if err != nil {
		ctx.Logger().Errorf("failed to spawn remote server teardown id=%s: %v", remoteID, err)
	}
}
