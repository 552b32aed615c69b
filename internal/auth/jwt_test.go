package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"friendnet/internal/config"
)

type mapBlacklist struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func (b *mapBlacklist) Add(_ context.Context, jti string, exp time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ids == nil {
		b.ids = map[string]time.Time{}
	}
	b.ids[jti] = exp
	return nil
}

func (b *mapBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.ids[jti]
	return ok, nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecretKey:    "test-secret",
		JWTIssuer:       "friendnet-test",
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}
}

func TestIssueAndValidatePair(t *testing.T) {
	ctx := context.Background()
	issuer := NewTokenIssuer(testAuthConfig(), nil)

	pair, err := issuer.IssuePair(7, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := issuer.Validate(ctx, pair.AccessToken, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "friendnet-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	_, err = issuer.Validate(ctx, pair.RefreshToken, AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	claims, err = issuer.Validate(ctx, pair.RefreshToken, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, RefreshToken, claims.TokenType)
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	issuer := NewTokenIssuer(testAuthConfig(), nil)

	other := testAuthConfig()
	other.JWTSecretKey = "another-secret"
	foreign, err := NewTokenIssuer(other, nil).IssueAccess(1, "mallory")
	require.NoError(t, err)
	_, err = issuer.Validate(ctx, foreign, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Validate(ctx, "not-a-jwt", AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err := issuer.IssueAccess(1, "alice")
	require.NoError(t, err)
	issuer.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = issuer.Validate(ctx, token, AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokedTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	bl := &mapBlacklist{}
	issuer := NewTokenIssuer(testAuthConfig(), bl)

	token, err := issuer.IssueAccess(3, "bob")
	require.NoError(t, err)
	claims, err := issuer.Validate(ctx, token, AccessToken)
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(ctx, claims))
	_, err = issuer.Validate(ctx, token, AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPasswordHash("correct horse", hash))
	assert.False(t, CheckPasswordHash("battery staple", hash))
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 9, Username: "zed"})
	id, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, uint(9), id.UserID)
}
