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
	mapset "github.com/deckarep/golang-set/v2"
)

// tagSet flattens a tag map into a set of "key=value" entries so subset
// checks compose both keys and values.
func tagSet(tags map[string]string) mapset.Set[string] {
	set := mapset.NewThreadUnsafeSet[string]()
	for k, v := range tags {
		set.Add(k + "=" + v)
	}
	return set
}

// tagsSubset reports whether every entry of want appears in have with the
// same value. An empty want matches anything.
func tagsSubset(want, have map[string]string) bool {
	return tagSet(want).IsSubset(tagSet(have))
}

// matchesQuery reports whether a lobby can serve a find request: version
// agreement and region membership (both waived by local-development
// backends, the same way lobby creation waives the region check for them),
// tag subset and enough remaining capacity for the whole party.
func (l *Lobby) matchesQuery(query *FindLobbyRequest) bool {
	anyVersionOrRegion := l.Backend.acceptsAnyVersionOrRegion()
	if !anyVersionOrRegion && l.Version != query.Version {
		return false
	}
	if !anyVersionOrRegion && len(query.Regions) > 0 {
		found := false
		for _, region := range query.Regions {
			if region == l.Region {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !tagsSubset(query.Tags, l.Tags) {
		return false
	}
	return l.RemainingCapacity() >= len(query.Players)
}

// findLobby scans all lobbies and picks the best match for the query, or
// nil when none qualifies. Preference is the fullest lobby, breaking ties
// toward the most recently created one, so traffic packs existing lobbies
// before spilling into fresh ones.
func (s *State) findLobby(query *FindLobbyRequest) *Lobby {
	var best *Lobby
	for _, lobby := range s.Lobbies {
		if !lobby.matchesQuery(query) {
			continue
		}
		if best == nil || lobbyPreferred(lobby, best) {
			best = lobby
		}
	}
	return best
}

// lobbyPreferred reports whether a should be picked over b.
func lobbyPreferred(a, b *Lobby) bool {
	if a.PlayerCount() != b.PlayerCount() {
		return a.PlayerCount() > b.PlayerCount()
	}
	return a.CreatedAt > b.CreatedAt
}
