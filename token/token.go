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

// Package token issues and verifies the bearer tokens game servers use to
// prove they speak for a specific lobby.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rivet-gg/modules/errors"
)

const issuerName = "lobby-orchestrator"

// lobbyClaims are the registered claims plus the lobby binding.
type lobbyClaims struct {
	jwt.RegisteredClaims
	LobbyID string `json:"lobbyId"`
}

// Issuer mints and verifies HMAC-signed lobby tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithTTL bounds the token lifetime. Zero means no expiry, which is the
// default: lobby tokens live exactly as long as the lobby does.
func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		i.ttl = ttl
	}
}

// NewIssuer creates an issuer signing with the given secret.
func NewIssuer(secret []byte, opts ...IssuerOption) *Issuer {
	issuer := &Issuer{secret: secret}
	for _, opt := range opts {
		opt(issuer)
	}
	return issuer
}

// IssueLobbyToken mints a token bound to the given lobby.
func (i *Issuer) IssueLobbyToken(lobbyID string) (string, error) {
	now := time.Now()
	claims := lobbyClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuerName,
			IssuedAt: jwt.NewNumericDate(now),
		},
		LobbyID: lobbyID,
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", errors.Internal(err)
	}
	return signed, nil
}

// VerifyLobbyToken validates a token and returns the lobby it is bound to.
func (i *Issuer) VerifyLobbyToken(token string) (string, error) {
	claims := new(lobbyClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
	)
	if err != nil || !parsed.Valid {
		return "", errors.New(errors.CodeTokenInvalid, "lobby token failed verification").WithCause(err)
	}
	if claims.LobbyID == "" {
		return "", errors.New(errors.CodeTokenInvalid, "lobby token carries no lobby")
	}
	return claims.LobbyID, nil
}

// CheckLobbyToken verifies the token and asserts it is bound to the given
// lobby.
func (i *Issuer) CheckLobbyToken(token, lobbyID string) error {
	boundTo, err := i.VerifyLobbyToken(token)
	if err != nil {
		return err
	}
	if boundTo != lobbyID {
		return errors.Newf(errors.CodeLobbyTokenMismatch, "token is scoped to another lobby").
			WithMetadata("lobby_id", lobbyID)
	}
	return nil
}
