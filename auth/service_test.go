package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/config"
	"github.com/user/pokesphere-go/store"
)

// stubProvider satisfies OAuthProvider without talking to GitHub.
type stubProvider struct {
	profile OAuthProfile
	err     error
}

func (p *stubProvider) FetchUser(ctx context.Context, code string) (*OAuthProfile, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &p.profile, nil
}

type serviceFixture struct {
	service  *Service
	tokens   *TokenService
	mem      *store.MemoryStore
	sender   *recordingSender
	provider *stubProvider
	clock    time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	cfg := config.AuthConfig{
		AccessSecret:    "access-secret-for-tests",
		RefreshSecret:   "refresh-secret-for-tests",
		AccessDuration:  time.Hour,
		RefreshDuration: 168 * time.Hour,
		CodeDuration:    10 * time.Minute,
	}

	f := &serviceFixture{
		mem:      store.NewMemoryStore(),
		sender:   &recordingSender{},
		provider: &stubProvider{},
		clock:    time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }
	f.mem.SetClock(now)

	f.tokens = NewTokenService(cfg)
	f.tokens.now = now

	issuer := NewCodeIssuer(f.mem, f.sender, cfg.CodeDuration, zap.NewNop())

	f.service = NewService(f.mem, f.mem, f.tokens, issuer, f.provider, zap.NewNop())
	f.service.now = now
	return f
}

func (f *serviceFixture) seedCode(t *testing.T, email, code string) {
	t.Helper()
	err := f.mem.UpsertCode(context.Background(), email, code, f.clock.Add(10*time.Minute))
	require.NoError(t, err)
}

func TestRegisterSuccess(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()
	f.seedCode(t, "ash@example.com", "AB12CD")

	// Codes are entered by hand, so lowercase input must match.
	pair, err := f.service.Register(ctx, RegisterRequest{
		Name:     "Ash",
		Email:    "ash@example.com",
		Password: "pikachu",
		Code:     "ab12cd",
	})
	require.NoError(t, err)
	require.NotNil(t, pair)

	claims, err := f.tokens.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ash@example.com", claims.Email)

	user, err := f.mem.FindUserByEmail(ctx, "ash@example.com")
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, user.UserID)
	assert.Empty(t, user.LikedIDs)

	// The consumed record stays until its TTL expiry.
	_, err = f.mem.FindCode(ctx, "ash@example.com")
	assert.NoError(t, err)
}

func TestRegisterCodeMissing(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	_, err := f.service.Register(context.Background(), RegisterRequest{
		Name: "Ash", Email: "ash@example.com", Password: "pikachu", Code: "AB12CD",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
	assert.Contains(t, err.Error(), "verification code expired")
}

func TestRegisterCodeExpired(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.seedCode(t, "ash@example.com", "AB12CD")

	f.clock = f.clock.Add(10*time.Minute + time.Second)

	_, err := f.service.Register(context.Background(), RegisterRequest{
		Name: "Ash", Email: "ash@example.com", Password: "pikachu", Code: "AB12CD",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
}

func TestRegisterWrongCode(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.seedCode(t, "ash@example.com", "AB12CD")

	_, err := f.service.Register(context.Background(), RegisterRequest{
		Name: "Ash", Email: "ash@example.com", Password: "pikachu", Code: "FFFFFF",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
	assert.Contains(t, err.Error(), "invalid verification code")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()
	f.seedCode(t, "ash@example.com", "AB12CD")

	req := RegisterRequest{Name: "Ash", Email: "ash@example.com", Password: "pikachu", Code: "AB12CD"}
	_, err := f.service.Register(ctx, req)
	require.NoError(t, err)

	_, err = f.service.Register(ctx, req)
	require.Error(t, err)
	assert.True(t, apperror.IsConflict(err))
}

func TestLogin(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()
	f.seedCode(t, "misty@example.com", "AB12CD")
	_, err := f.service.Register(ctx, RegisterRequest{
		Name: "Misty", Email: "misty@example.com", Password: "psyduck", Code: "AB12CD",
	})
	require.NoError(t, err)

	pair, err := f.service.Login(ctx, LoginRequest{Email: "misty@example.com", Password: "psyduck"})
	require.NoError(t, err)
	_, err = f.tokens.VerifyRefresh(pair.RefreshToken)
	assert.NoError(t, err)

	_, err = f.service.Login(ctx, LoginRequest{Email: "misty@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
	assert.Contains(t, err.Error(), "invalid password")

	_, err = f.service.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "psyduck"})
	require.Error(t, err)
	assert.True(t, apperror.IsAuthError(err))
	assert.Contains(t, err.Error(), "user not found")
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()
	f.seedCode(t, "ash@example.com", "AB12CD")
	pair, err := f.service.Register(ctx, RegisterRequest{
		Name: "Ash", Email: "ash@example.com", Password: "pikachu", Code: "AB12CD",
	})
	require.NoError(t, err)

	// The access token lapses but the refresh token is still good.
	f.clock = f.clock.Add(2 * time.Hour)

	_, err = f.tokens.VerifyAccess(pair.AccessToken)
	require.Error(t, err)

	access, err := f.service.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	claims, err := f.tokens.VerifyAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "ash@example.com", claims.Email)

	_, err = f.service.Refresh("not-a-token")
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestSendVerificationCodeNeedsNoAccount(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	require.NoError(t, f.service.SendVerificationCode(ctx, "new@example.com"))
	assert.Equal(t, "new@example.com", f.sender.to)

	rec, err := f.mem.FindCode(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Contains(t, f.sender.body, rec.Code)
}

func TestForgotPassword(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()

	err := f.service.ForgotPassword(ctx, "nobody@example.com")
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Empty(t, f.sender.to)

	f.seedCode(t, "brock@example.com", "AB12CD")
	_, err = f.service.Register(ctx, RegisterRequest{
		Name: "Brock", Email: "brock@example.com", Password: "onix", Code: "AB12CD",
	})
	require.NoError(t, err)

	require.NoError(t, f.service.ForgotPassword(ctx, "brock@example.com"))
	assert.Equal(t, "brock@example.com", f.sender.to)

	rec, err := f.mem.FindCode(ctx, "brock@example.com")
	require.NoError(t, err)
	assert.Contains(t, f.sender.body, rec.Code)
}

func TestResetPassword(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()
	f.seedCode(t, "brock@example.com", "AB12CD")
	_, err := f.service.Register(ctx, RegisterRequest{
		Name: "Brock", Email: "brock@example.com", Password: "onix", Code: "AB12CD",
	})
	require.NoError(t, err)

	err = f.service.ResetPassword(ctx, ResetPasswordRequest{
		Email: "brock@example.com", Code: "FFFFFF", Password: "geodude",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	err = f.service.ResetPassword(ctx, ResetPasswordRequest{
		Email: "brock@example.com", Code: "ab12cd", Password: "geodude",
	})
	require.NoError(t, err)

	_, err = f.service.Login(ctx, LoginRequest{Email: "brock@example.com", Password: "onix"})
	require.Error(t, err)
	_, err = f.service.Login(ctx, LoginRequest{Email: "brock@example.com", Password: "geodude"})
	assert.NoError(t, err)
}

func TestResetPasswordCodeAbsent(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)

	err := f.service.ResetPassword(context.Background(), ResetPasswordRequest{
		Email: "brock@example.com", Code: "AB12CD", Password: "geodude",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsForbidden(err))
}

func TestLoginWithGitHubCreatesAccount(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	ctx := context.Background()
	f.provider.profile = OAuthProfile{Email: "red.ketchum@example.com", Name: "Red Ketchum"}

	pair, err := f.service.LoginWithGitHub(ctx, "gh-code")
	require.NoError(t, err)
	require.NotNil(t, pair)

	user, err := f.mem.FindUserByEmail(ctx, "red.ketchum@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Red", user.Name)

	// The placeholder password is the email local-part.
	_, err = f.service.Login(ctx, LoginRequest{Email: "red.ketchum@example.com", Password: "red.ketchum"})
	assert.NoError(t, err)

	// A second OAuth login reuses the account instead of creating another.
	_, err = f.service.LoginWithGitHub(ctx, "gh-code")
	require.NoError(t, err)
	again, err := f.mem.FindUserByEmail(ctx, "red.ketchum@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.UserID, again.UserID)
}

func TestLoginWithGitHubProviderFailure(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t)
	f.provider.err = errors.New("github is down")

	_, err := f.service.LoginWithGitHub(context.Background(), "gh-code")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.ExternalServiceError))
}
