package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/config"
	"github.com/user/pokesphere-go/store"
)

func newTestTokenService() *TokenService {
	return NewTokenService(config.AuthConfig{
		AccessSecret:    "access-test-secret",
		RefreshSecret:   "refresh-test-secret",
		AccessDuration:  time.Hour,
		RefreshDuration: 7 * 24 * time.Hour,
	})
}

func testUser() *store.User {
	return &store.User{UserID: "user-123", Email: "ash@example.com", Name: "Ash"}
}

func TestIssueAndVerifyPair(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()
	pair, err := svc.IssuePair(testUser())
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	access, err := svc.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ash@example.com", access.Email)
	assert.Equal(t, "user-123", access.UserID)

	refresh, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", refresh.UserID)
}

func TestScopesAreNotInterchangeable(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()
	pair, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	// A refresh token must not verify as an access token, and vice versa:
	// the two scopes are signed with distinct secrets.
	_, err = svc.VerifyAccess(pair.RefreshToken)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.VerifyRefresh(pair.AccessToken)
	assert.True(t, apperror.IsForbidden(err))
}

func TestVerifyExpiredTokens(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()
	issued := time.Now()
	svc.now = func() time.Time { return issued }

	pair, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	// One hour and a minute later the access token is dead but the refresh
	// token still verifies.
	svc.now = func() time.Time { return issued.Add(time.Hour + time.Minute) }
	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	// After the seventh day the refresh token fails too.
	svc.now = func() time.Time { return issued.Add(7*24*time.Hour + time.Minute) }
	_, err = svc.VerifyRefresh(pair.RefreshToken)
	assert.True(t, apperror.IsForbidden(err))
}

func TestRefreshMintsNewAccessOnly(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()
	pair, err := svc.IssuePair(testUser())
	require.NoError(t, err)

	claims, err := svc.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)

	access, err := svc.IssueAccess(claims)
	require.NoError(t, err)

	got, err := svc.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "ash@example.com", got.Email)
	assert.Equal(t, "user-123", got.UserID)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	svc := newTestTokenService()
	other := NewTokenService(config.AuthConfig{
		AccessSecret:    "some-other-secret",
		RefreshSecret:   "another-other-secret",
		AccessDuration:  time.Hour,
		RefreshDuration: time.Hour,
	})

	pair, err := other.IssuePair(testUser())
	require.NoError(t, err)

	_, err = svc.VerifyAccess(pair.AccessToken)
	assert.True(t, apperror.IsForbidden(err))

	_, err = svc.VerifyAccess("not.a.jwt")
	assert.True(t, apperror.IsForbidden(err))
}
