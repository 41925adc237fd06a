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
	"context"

	"github.com/rivet-gg/modules/actor"
	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/eventstream"
	"github.com/rivet-gg/modules/log"
)

// Client is the caller-facing surface of the lobby orchestrator. The first
// call through a client activates the orchestrator instance.
//
// Calls that admit players block until the lobby is ready unless the
// request opts out with NoWait. The returned lobby snapshot reflects the
// moment of admission; a completed wait only guarantees readiness was
// reached, not that the snapshot shows it.
type Client struct {
	actors   *actor.Client
	stream   eventstream.Stream
	instance string
	log      log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithInstance targets a non-default orchestrator instance. Sharding, for
// example per region, addresses one instance per shard.
func WithInstance(name string) ClientOption {
	return func(c *Client) {
		c.instance = name
	}
}

// WithLogger sets the logger calls are traced with.
func WithLogger(logger log.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

// NewClient creates a lobby client on top of a driver. The environment must
// be the same one the lobbies kind was registered with; its event stream
// carries the readiness events waiters block on.
func NewClient(driver actor.Driver, env *Env, opts ...ClientOption) *Client {
	client := &Client{
		stream:   env.Stream,
		instance: DefaultInstance,
		log:      log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.actors = actor.NewClient(driver, Module, actor.WithClientLogger(client.log))
	return client
}

func (c *Client) ref() *actor.Ref {
	return c.actors.Actor(KindLobbies, c.instance)
}

func (c *Client) call(ctx context.Context, method string, request any) (any, error) {
	return c.ref().GetOrCreateAndCall(ctx, nil, method, request)
}

// CreateLobby creates a lobby and admits its first players.
func (c *Client) CreateLobby(ctx context.Context, req *CreateLobbyRequest) (*LobbyResponse, error) {
	return c.lobbyCall(ctx, methodCreateLobby, req, req.NoWait)
}

// FindLobby matchmakes the players into the best existing lobby.
func (c *Client) FindLobby(ctx context.Context, req *FindLobbyRequest) (*LobbyResponse, error) {
	return c.lobbyCall(ctx, methodFindLobby, req, req.NoWait)
}

// FindOrCreateLobby matchmakes the players, creating a lobby on a miss.
func (c *Client) FindOrCreateLobby(ctx context.Context, req *FindOrCreateLobbyRequest) (*LobbyResponse, error) {
	return c.lobbyCall(ctx, methodFindOrCreateLobby, req, req.Find.NoWait || req.Create.NoWait)
}

// JoinLobby admits players into a specific lobby.
func (c *Client) JoinLobby(ctx context.Context, req *JoinLobbyRequest) (*LobbyResponse, error) {
	return c.lobbyCall(ctx, methodJoinLobby, req, req.NoWait)
}

// SetLobbyReady marks a lobby ready, unblocking its waiters.
func (c *Client) SetLobbyReady(ctx context.Context, req *SetLobbyReadyRequest) error {
	_, err := c.call(ctx, methodSetLobbyReady, req)
	return err
}

// SetPlayersConnected records connect events for players.
func (c *Client) SetPlayersConnected(ctx context.Context, req *SetPlayersConnectedRequest) error {
	_, err := c.call(ctx, methodSetPlayersConnected, req)
	return err
}

// DestroyPlayers removes players from a lobby.
func (c *Client) DestroyPlayers(ctx context.Context, req *DestroyPlayersRequest) error {
	_, err := c.call(ctx, methodDestroyPlayers, req)
	return err
}

// DestroyLobby tears a lobby down.
func (c *Client) DestroyLobby(ctx context.Context, req *DestroyLobbyRequest) error {
	_, err := c.call(ctx, methodDestroyLobby, req)
	return err
}

// ListLobbies returns a snapshot of all lobbies.
func (c *Client) ListLobbies(ctx context.Context) (*ListLobbiesResponse, error) {
	out, err := c.call(ctx, methodListLobbies, nil)
	if err != nil {
		return nil, err
	}
	resp, ok := out.(*ListLobbiesResponse)
	if !ok {
		return nil, errors.Unreachable("list lobbies response", out)
	}
	return resp, nil
}

// ListServers returns a snapshot of all server records.
func (c *Client) ListServers(ctx context.Context) (*ListServersResponse, error) {
	out, err := c.call(ctx, methodListServers, nil)
	if err != nil {
		return nil, err
	}
	resp, ok := out.(*ListServersResponse)
	if !ok {
		return nil, errors.Unreachable("list servers response", out)
	}
	return resp, nil
}

// WaitTasks blocks until the orchestrator's background tasks settle.
// Intended for tests and orderly shutdown.
func (c *Client) WaitTasks(ctx context.Context) error {
	return c.ref().WaitTasks(ctx)
}

func (c *Client) lobbyCall(ctx context.Context, method string, request any, noWait bool) (*LobbyResponse, error) {
	out, err := c.call(ctx, method, request)
	if err != nil {
		return nil, err
	}
	resp, ok := out.(*LobbyResponse)
	if !ok {
		return nil, errors.Unreachable("lobby response", out)
	}
	if noWait || resp.Lobby.Ready() {
		return resp, nil
	}
	if err := c.waitReady(ctx, resp.Lobby.ID); err != nil {
		return nil, err
	}
	return resp, nil
}

// waitReady blocks until the lobby resolves to ready or aborted. There is
// no wait timeout of its own: the orchestrator's GC eventually destroys a
// lobby that never becomes ready, which rejects the wait.
func (c *Client) waitReady(ctx context.Context, lobbyID string) error {
	sub := c.stream.AddSubscriber()
	defer c.stream.RemoveSubscriber(sub)
	c.stream.Subscribe(sub, lobbyTopic(lobbyID))

	// one direct check after subscribing closes the race against events
	// published before the subscription existed
	out, err := c.call(ctx, methodCheckLobbyReady, &checkLobbyReadyRequest{LobbyID: lobbyID})
	if err != nil {
		return err
	}
	if check, ok := out.(*checkLobbyReadyResponse); ok && check.Ready {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return errors.Internal(ctx.Err())
		case msg := <-sub.C():
			event, ok := msg.Payload().(*readyEvent)
			if !ok || event.LobbyID != lobbyID {
				continue
			}
			if event.Ready {
				return nil
			}
			if event.Abort != nil {
				return event.Abort
			}
			return errors.Newf(errors.CodeLobbyAborted, "lobby %s was destroyed", lobbyID)
		}
	}
}
