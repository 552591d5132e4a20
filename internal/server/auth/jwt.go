// Package auth mints and verifies holder credentials: HS256 access tokens and
// salted secret hashes.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// HolderClaims is the identity asserted by an access token.
type HolderClaims struct {
	HolderID    string
	DisplayName string
	Role        string
}

func (c HolderClaims) empty() bool {
	return c.HolderID == "" || c.DisplayName == "" || c.Role == ""
}

// Claims is the signed token body: registered claims plus holder identity.
type Claims struct {
	jwt.RegisteredClaims
	HolderID string `json:"hid"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// TokenIssuer signs and parses access tokens for one issuer/audience pair.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
}

func NewTokenIssuer(secret []byte, issuer, audience string) *TokenIssuer {
	return &TokenIssuer{secret: secret, issuer: issuer, audience: audience}
}

// Generate signs claims valid from now for ttl. The output depends only on
// the key, the claims and now.
func (ti *TokenIssuer) Generate(c HolderClaims, ttl time.Duration, now time.Time) (string, error) {
	if c.empty() {
		return "", common.ErrEmptyClaims
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   c.HolderID,
			Audience:  jwt.ClaimStrings{ti.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		HolderID: c.HolderID,
		Name:     c.DisplayName,
		Role:     c.Role,
	})

	tokenString, err := token.SignedString(ti.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Parse verifies signature, issuer, audience and expiry as of now.
func (ti *TokenIssuer) Parse(tokenString string, now time.Time) (*HolderClaims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(ti.issuer),
		jwt.WithAudience(ti.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return &HolderClaims{HolderID: claims.HolderID, DisplayName: claims.Name, Role: claims.Role}, nil
}
