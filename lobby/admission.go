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
	"strconv"

	"github.com/google/uuid"

	"github.com/rivet-gg/modules/actor"
	"github.com/rivet-gg/modules/errors"
)

// admitPlayers inserts new players into a lobby, enforcing admission
// control in a fixed order:
//
//  1. Per-IP cap. When admitting would push an IP over its cap, that IP's
//     own unconnected players are evicted oldest first to make room. If
//     eviction cannot make enough room the whole admission fails.
//  2. Global unconnected cap. Best effort: the globally oldest unconnected
//     players are evicted to make room, and admission proceeds regardless.
//  3. Lobby capacity. Hard failure; never a partial admission.
//
// Direct joins are capped by the lobby's direct-join limit instead of its
// full capacity.
func (a *lobbiesActor) admitPlayers(ctx *actor.Context, state *State, lobby *Lobby, requests []PlayerRequest, direct bool) ([]*Player, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	players := a.env.Config.Players

	newPerIP := make(map[string]int)
	for _, req := range requests {
		if req.PublicIP != nil {
			newPerIP[*req.PublicIP]++
		}
	}
	for ip, added := range newPerIP {
		existing := playersForIP(state, ip)
		over := len(existing) + added - players.MaxPerIP
		if over <= 0 {
			continue
		}
		evictable := unconnectedOldestFirst(existing)
		if over > len(evictable) {
			return nil, errors.Newf(errors.CodeTooManyPlayersForIP, "too many players for ip %s", ip).
				WithMetadata("ip", ip).
				WithMetadata("max_per_ip", strconv.Itoa(players.MaxPerIP))
		}
		for _, victim := range evictable[:over] {
			ctx.Logger().Debugf("evicting player id=%s lobby=%s over per-ip cap", victim.ID, victim.LobbyID)
			a.removePlayerSparing(ctx, state, victim, lobby.ID)
		}
	}

	unconnected := unconnectedOldestFirst(allPlayers(state))
	if over := len(unconnected) + len(requests) - players.MaxUnconnected; over > 0 {
		for _, victim := range unconnected[:min(over, len(unconnected))] {
			ctx.Logger().Debugf("evicting player id=%s lobby=%s over unconnected cap", victim.ID, victim.LobbyID)
			a.removePlayerSparing(ctx, state, victim, lobby.ID)
		}
	}

	limit := lobby.MaxPlayers
	if direct && lobby.MaxPlayersDirect < limit {
		limit = lobby.MaxPlayersDirect
	}
	if lobby.PlayerCount()+len(requests) > limit {
		return nil, errors.Newf(errors.CodeLobbyFull, "lobby %s cannot fit %d more players", lobby.ID, len(requests)).
			WithMetadata("lobby_id", lobby.ID)
	}

	now := nowNano()
	admitted := make([]*Player, 0, len(requests))
	for _, req := range requests {
		player := &Player{
			ID:        uuid.NewString(),
			LobbyID:   lobby.ID,
			CreatedAt: now,
			PublicIP:  req.PublicIP,
		}
		lobby.Players[player.ID] = player
		admitted = append(admitted, player)
	}
	lobby.EmptyAt = nil
	return admitted, nil
}

// removePlayer takes a player out of its lobby. Removing the last player
// marks the lobby empty and destroys it immediately when its
// destroy-on-empty delay is zero.
func (a *lobbiesActor) removePlayer(ctx *actor.Context, state *State, player *Player) {
	a.removePlayerSparing(ctx, state, player, "")
}

// removePlayerSparing is removePlayer with an exemption: the spared lobby
// is never destroyed even when emptied, because the caller is about to
// admit players into it.
func (a *lobbiesActor) removePlayerSparing(ctx *actor.Context, state *State, player *Player, sparedLobbyID string) {
	lobby, ok := state.Lobbies[player.LobbyID]
	if !ok {
		return
	}
	delete(lobby.Players, player.ID)
	if lobby.PlayerCount() > 0 {
		return
	}
	lobby.EmptyAt = nanoRef(nowNano())
	if lobby.ID == sparedLobbyID {
		return
	}
	if a.env.Config.ForTags(lobby.Tags).DestroyOnEmptyAfter.D() == 0 {
		a.destroyLobby(ctx, state, lobby, "lobby_empty", nil)
	}
}

// playersForIP collects every admitted player with the given public IP
// across all lobbies.
func playersForIP(state *State, ip string) []*Player {
	var matched []*Player
	for _, lobby := range state.Lobbies {
		for _, player := range lobby.Players {
			if player.PublicIP != nil && *player.PublicIP == ip {
				matched = append(matched, player)
			}
		}
	}
	return matched
}

// allPlayers collects every admitted player across all lobbies.
func allPlayers(state *State) []*Player {
	var all []*Player
	for _, lobby := range state.Lobbies {
		for _, player := range lobby.Players {
			all = append(all, player)
		}
	}
	return all
}

// unconnectedOldestFirst filters to unconnected players sorted oldest
// first, the eviction order of both admission caps.
func unconnectedOldestFirst(players []*Player) []*Player {
	var unconnected []*Player
	for _, player := range players {
		if !player.Connected() {
			unconnected = append(unconnected, player)
		}
	}
	sort.Slice(unconnected, func(i, j int) bool {
		if unconnected[i].CreatedAt != unconnected[j].CreatedAt {
			return unconnected[i].CreatedAt < unconnected[j].CreatedAt
		}
		return unconnected[i].ID < unconnected[j].ID
	})
	return unconnected
}
