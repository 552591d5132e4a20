package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/dmitrijs2005/librarian/internal/server/auth"
)

func TestIssueAccessToken(t *testing.T) {
	e := newEnv(t)

	claims := auth.HolderClaims{HolderID: "h1", DisplayName: "Alice", Role: common.RoleUser}
	a, err := e.issuer.IssueAccessToken(claims, accessTTL)
	require.NoError(t, err)
	b, err := e.issuer.IssueAccessToken(claims, accessTTL)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same key, claims and time give the same token")

	got, err := e.issuer.ParseAccessToken(a)
	require.NoError(t, err)
	assert.Equal(t, claims, *got)

	_, err = e.issuer.IssueAccessToken(auth.HolderClaims{HolderID: "h1"}, accessTTL)
	assert.ErrorIs(t, err, common.ErrEmptyClaims)
}

func TestIssueRefreshToken_Unique(t *testing.T) {
	e := newEnv(t)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		tok, err := e.issuer.IssueRefreshToken()
		require.NoError(t, err)
		assert.Len(t, tok, 2*refreshTokenBytes)
		assert.False(t, seen[tok])
		seen[tok] = true
	}
}

func TestAuthenticate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	h := e.holder(t, "alice")

	pair, err := e.issuer.Authenticate(ctx, "alice", "pw-alice")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := e.issuer.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, h.ID, claims.HolderID)
	assert.Equal(t, "alice", claims.DisplayName)
	assert.Equal(t, common.RoleUser, claims.Role)

	ok, err := e.rotator.Validate(ctx, h.ID, pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)

	// a second login revokes the first refresh token
	second, err := e.issuer.Authenticate(ctx, "alice", "pw-alice")
	require.NoError(t, err)
	ok, err = e.rotator.Validate(ctx, h.ID, pair.RefreshToken)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = e.rotator.Validate(ctx, h.ID, second.RefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticate_InvalidCredentials(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.holder(t, "alice")

	_, err := e.issuer.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = e.issuer.Authenticate(ctx, "bob", "pw-bob")
	assert.ErrorIs(t, err, common.ErrorInvalidCredentials)
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	h, err := e.issuer.Register(ctx, " carol ", "Carol C", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "carol", h.Login)
	assert.Equal(t, "Carol C", h.DisplayName)
	assert.Equal(t, common.RoleUser, h.Role)
	assert.NotEqual(t, "s3cret", h.SecretHash)

	_, err = e.issuer.Register(ctx, "carol", "", "other")
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = e.issuer.Register(ctx, "", "", "x")
	assert.ErrorIs(t, err, common.ErrorValidation)
	_, err = e.issuer.Register(ctx, "dave", "", "")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.issuer.EnsureAdmin(ctx, "root", "toor"))
	require.NoError(t, e.issuer.EnsureAdmin(ctx, "root", "changed"))

	pair, err := e.issuer.Authenticate(ctx, "root", "toor")
	require.NoError(t, err)
	claims, err := e.issuer.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, common.RoleAdmin, claims.Role)
}
