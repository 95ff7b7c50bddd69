package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/blog-api/config"
)

func newTestManager() *TokenManager {
	return NewTokenManager(config.Default().JWT)
}

func TestTokenManager_IssueAndParse(t *testing.T) {
	m := newTestManager()

	pair, err := m.IssuePair(42)
	require.NoError(t, err)

	claims, err := m.Parse(pair.Access, TokenAccess)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	_, err = m.Parse(pair.Refresh, TokenRefresh)
	assert.NoError(t, err)
}

func TestTokenManager_WrongType(t *testing.T) {
	m := newTestManager()
	pair, err := m.IssuePair(1)
	require.NoError(t, err)

	_, err = m.Parse(pair.Refresh, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Parse(pair.Access, TokenRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Expired(t *testing.T) {
	m := newTestManager()
	token, err := m.IssueAccess(1)
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = m.Parse(token, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, err := newTestManager().IssueAccess(1)
	require.NoError(t, err)

	cfg := config.Default().JWT
	cfg.Secret = "another"
	_, err = NewTokenManager(cfg).Parse(token, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = newTestManager().Parse("not-a-token", TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)
	assert.True(t, CheckPassword(hash, "password123"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
