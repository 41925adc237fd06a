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

package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivet-gg/modules/errors"
)

func TestIssuer(t *testing.T) {
	t.Run("With a round trip", func(t *testing.T) {
		issuer := NewIssuer([]byte("secret"))
		signed, err := issuer.IssueLobbyToken("lobby-1")
		require.NoError(t, err)

		lobbyID, err := issuer.VerifyLobbyToken(signed)
		require.NoError(t, err)
		assert.Equal(t, "lobby-1", lobbyID)
		require.NoError(t, issuer.CheckLobbyToken(signed, "lobby-1"))
	})

	t.Run("With a token for another lobby", func(t *testing.T) {
		issuer := NewIssuer([]byte("secret"))
		signed, err := issuer.IssueLobbyToken("lobby-1")
		require.NoError(t, err)

		err = issuer.CheckLobbyToken(signed, "lobby-2")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeLobbyTokenMismatch))
	})

	t.Run("With a forged token", func(t *testing.T) {
		issuer := NewIssuer([]byte("secret"))
		forger := NewIssuer([]byte("other-secret"))
		signed, err := forger.IssueLobbyToken("lobby-1")
		require.NoError(t, err)

		_, err = issuer.VerifyLobbyToken(signed)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeTokenInvalid))

		_, err = issuer.VerifyLobbyToken("not-even-a-token")
		assert.True(t, errors.IsCode(err, errors.CodeTokenInvalid))
	})

	t.Run("With an expired token", func(t *testing.T) {
		issuer := NewIssuer([]byte("secret"), WithTTL(-time.Minute))
		signed, err := issuer.IssueLobbyToken("lobby-1")
		require.NoError(t, err)

		_, err = issuer.VerifyLobbyToken(signed)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeTokenInvalid))
	})
}
