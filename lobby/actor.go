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
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/rivet-gg/modules/actor"
	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/eventstream"
	"github.com/rivet-gg/modules/fleet"
	"github.com/rivet-gg/modules/internal/syncmap"
	"github.com/rivet-gg/modules/token"
)

// destroyMetaTTL bounds how long destroy metadata stays queryable after a
// lobby is gone. Waiters racing a destroy land inside the window; the GC
// sweeps the rest.
const destroyMetaTTL = 30 * time.Second

// Env carries the orchestrator's collaborators. One Env is shared by every
// activation of the lobbies actor, which is what lets destroy metadata and
// readiness events survive an instance passivating and reactivating within
// the same process.
type Env struct {
	Config Config
	Fleet  fleet.API
	Tokens *token.Issuer
	Stream eventstream.Stream

	destroyed  *syncmap.SyncMap[string, *destroyedLobby]
	destroyTTL time.Duration
}

// NewEnv assembles an orchestrator environment.
func NewEnv(cfg Config, fleetAPI fleet.API, tokens *token.Issuer, stream eventstream.Stream) *Env {
	return &Env{
		Config:     cfg,
		Fleet:      fleetAPI,
		Tokens:     tokens,
		Stream:     stream,
		destroyed:  syncmap.New[string, *destroyedLobby](),
		destroyTTL: destroyMetaTTL,
	}
}

// destroyedLobby is the in-memory tombstone of a destroyed lobby. It is
// deliberately not persisted; after a restart waiters get a plain
// not-found.
type destroyedLobby struct {
	Reason string
	Cause  error
	At     int64
}

// abortError is the failure surfaced to callers waiting on the destroyed
// lobby.
func (d *destroyedLobby) abortError() error {
	if d.Cause != nil {
		return d.Cause
	}
	return errors.Newf(errors.CodeLobbyAborted, "lobby was destroyed: %s", d.Reason).
		WithMetadata("reason", d.Reason)
}

// publishReady resolves readiness waiters for the lobby.
func (e *Env) publishReady(lobbyID string) {
	e.Stream.Publish(lobbyTopic(lobbyID), &readyEvent{LobbyID: lobbyID, Ready: true})
}

// publishAbort rejects readiness waiters for the lobby.
func (e *Env) publishAbort(lobbyID string, cause error) {
	e.Stream.Publish(lobbyTopic(lobbyID), &readyEvent{LobbyID: lobbyID, Abort: cause})
}

// Register adds the lobbies actor kind to a registry.
func Register(registry *actor.Registry, env *Env) error {
	return registry.Register(Module, func() actor.Actor {
		return &lobbiesActor{env: env}
	})
}

// lobbiesActor is the orchestrator behavior. All lobby, player and server
// bookkeeping lives in its single State value; the host guarantees one call
// at a time, so handlers mutate it freely.
type lobbiesActor struct {
	env *Env
}

var _ actor.Actor = (*lobbiesActor)(nil)

func (a *lobbiesActor) Kind() string {
	return KindLobbies
}

func (a *lobbiesActor) NewState() any {
	return &State{}
}

// Initialize starts the periodic tick alongside the fresh state.
func (a *lobbiesActor) Initialize(ctx *actor.Context, _ any) (any, error) {
	if err := ctx.Schedule(a.env.Config.TickInterval.D(), methodTick, nil); err != nil {
		return nil, err
	}
	return newState(), nil
}

func (a *lobbiesActor) Handle(ctx *actor.Context, method string, request any) (any, error) {
	state := ctx.State().(*State)
	switch method {
	case methodCreateLobby:
		req, err := decodeRequest[CreateLobbyRequest](request)
		if err != nil {
			return nil, err
		}
		return a.createLobby(ctx, state, req)
	case methodFindLobby:
		req, err := decodeRequest[FindLobbyRequest](request)
		if err != nil {
			return nil, err
		}
		return a.findLobby(ctx, state, req)
	case methodFindOrCreateLobby:
		req, err := decodeRequest[FindOrCreateLobbyRequest](request)
		if err != nil {
			return nil, err
		}
		return a.findOrCreateLobby(ctx, state, req)
	case methodJoinLobby:
		req, err := decodeRequest[JoinLobbyRequest](request)
		if err != nil {
			return nil, err
		}
		return a.joinLobby(ctx, state, req)
	case methodSetLobbyReady:
		req, err := decodeRequest[SetLobbyReadyRequest](request)
		if err != nil {
			return nil, err
		}
		return nil, a.setLobbyReady(ctx, state, req)
	case methodSetPlayersConnected:
		req, err := decodeRequest[SetPlayersConnectedRequest](request)
		if err != nil {
			return nil, err
		}
		return nil, a.setPlayersConnected(ctx, state, req)
	case methodDestroyPlayers:
		req, err := decodeRequest[DestroyPlayersRequest](request)
		if err != nil {
			return nil, err
		}
		return nil, a.destroyPlayers(ctx, state, req)
	case methodDestroyLobby:
		req, err := decodeRequest[DestroyLobbyRequest](request)
		if err != nil {
			return nil, err
		}
		return nil, a.destroyLobbyByID(ctx, state, req)
	case methodListLobbies:
		return a.listLobbies(state), nil
	case methodListServers:
		return a.listServers(state), nil
	case methodCheckLobbyReady:
		req, err := decodeRequest[checkLobbyReadyRequest](request)
		if err != nil {
			return nil, err
		}
		return a.checkLobbyReady(state, req)
	case methodTick:
		return nil, a.tick(ctx, state)
	case methodCompleteProvision:
		req, err := decodeRequest[completeProvisionRequest](request)
		if err != nil {
			return nil, err
		}
		return nil, a.completeServerProvision(ctx, state, req)
	case methodFailProvision:
		req, err := decodeRequest[failProvisionRequest](request)
		if err != nil {
			return nil, err
		}
		return nil, a.failServerProvision(ctx, state, req)
	default:
		return nil, errors.Newf(errors.CodeMethodNotFound, "unknown lobby method %s", method)
	}
}

// authorize gates a lobby-scoped mutation behind the lobby token unless the
// backend waives tokens.
func (a *lobbiesActor) authorize(lobby *Lobby, lobbyToken string) error {
	if lobby.Backend.waivesToken() {
		return nil
	}
	return a.env.Tokens.CheckLobbyToken(lobbyToken, lobby.ID)
}

// decodeRequest coerces a handler request into its concrete type. Direct
// calls deliver the typed value; scheduled wake-ups deliver serialized
// bytes.
func decodeRequest[T any](request any) (*T, error) {
	switch v := request.(type) {
	case *T:
		return v, nil
	case []byte:
		out := new(T)
		if err := msgpack.Unmarshal(v, out); err != nil {
			return nil, errors.New(errors.CodeStateInvalid, "failed to decode request").WithCause(err)
		}
		return out, nil
	case nil:
		return new(T), nil
	default:
		return nil, errors.Newf(errors.CodeStateInvalid, "unexpected request type %T", request)
	}
}
