package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/store"
)

// bcryptCost is the adaptive hashing cost factor for stored passwords.
const bcryptCost = 10

// Service orchestrates the session-lifecycle protocol over the credential
// store, the token service, the verification-code issuer, and the OAuth
// provider. All dependencies are injected; the service holds no ambient
// state.
type Service struct {
	users  store.UserStore
	codes  store.VerificationStore
	tokens *TokenService
	issuer *CodeIssuer
	oauth  OAuthProvider
	logger *zap.Logger

	now func() time.Time
}

// NewService creates the auth Service.
func NewService(users store.UserStore, codes store.VerificationStore, tokens *TokenService, issuer *CodeIssuer, oauth OAuthProvider, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		codes:  codes,
		tokens: tokens,
		issuer: issuer,
		oauth:  oauth,
		logger: logger,
		now:    time.Now,
	}
}

// Register consumes a verification code and creates the account.
//
// Failure order matches the wire contract: absent code record → code
// expired (the TTL already evicted it), mismatched code → invalid code,
// existing account → duplicate user. The consumed record is deliberately
// left in place until its TTL expiry.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*TokenPair, error) {
	rec, err := s.codes.FindCode(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NewAuthError("verification code expired", nil)
		}
		return nil, apperror.NewDatabaseError("cannot register user, server error", err)
	}
	// The TTL monitor may lag; an evicted-but-still-readable record counts
	// as expired.
	if !rec.Valid(s.now()) {
		return nil, apperror.NewAuthError("verification code expired", nil)
	}
	if strings.ToUpper(req.Code) != rec.Code {
		return nil, apperror.NewAuthError("invalid verification code", nil)
	}

	if _, err := s.users.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, apperror.NewConflictError("user already exists with this e-mail", nil)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NewDatabaseError("cannot register user, server error", err)
	}

	user, err := s.createUser(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("userId", user.UserID))
	return s.issuePair(user)
}

// Login authenticates an email/password pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	user, err := s.users.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NewAuthError("invalid e-mail, user not found", nil)
		}
		return nil, apperror.NewDatabaseError("cannot log in, server error", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.NewAuthError("invalid password", nil)
	}

	return s.issuePair(user)
}

// Refresh verifies a refresh token and mints a new access token. The
// refresh token is not rotated; it stays valid until its natural expiry.
// Verifying the same token twice yields the same claims, so the operation
// is idempotent (though concurrent refreshes are not deduplicated).
func (s *Service) Refresh(refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	access, err := s.tokens.IssueAccess(claims)
	if err != nil {
		return "", apperror.NewInternalError("cannot refresh token, server error", err)
	}
	return access, nil
}

// SendVerificationCode issues a verification code for the registration
// flow. The address does not need an account yet; the register endpoint
// is what rejects duplicates.
func (s *Service) SendVerificationCode(ctx context.Context, email string) error {
	return s.issuer.RequestCode(ctx, email)
}

// ForgotPassword issues a verification code for the reset flow. Unlike the
// register path, the email must belong to an existing account.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if _, err := s.users.FindUserByEmail(ctx, email); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperror.NewNotFoundError("user not found", nil)
		}
		return apperror.NewDatabaseError("cannot request reset code, server error", err)
	}
	return s.issuer.RequestCode(ctx, email)
}

// ResetPassword consumes a verification code and replaces the account
// password. An absent record answers 403, a mismatch 400, mirroring the
// reset form's contract.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	rec, err := s.codes.FindCode(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperror.NewForbiddenError("code is expired", nil)
		}
		return apperror.NewDatabaseError("cannot reset password, server error", err)
	}
	if !rec.Valid(s.now()) {
		return apperror.NewForbiddenError("code is expired", nil)
	}
	if strings.ToUpper(req.Code) != rec.Code {
		return apperror.NewValidationError("invalid code", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return apperror.NewInternalError("cannot reset password, server error", err)
	}
	if err := s.users.UpdatePassword(ctx, req.Email, string(hash)); err != nil {
		return apperror.NewDatabaseError("cannot reset password, server error", err)
	}

	s.logger.Info("password reset", zap.String("email", req.Email))
	return nil
}

// LoginWithGitHub completes the OAuth redirect: exchanges the authorization
// code, fetches the provider profile, and finds or creates the local
// account keyed by the provider email. Accounts created this way get a
// placeholder password derived from the email local-part, since the user
// never enters one.
func (s *Service) LoginWithGitHub(ctx context.Context, code string) (*TokenPair, error) {
	profile, err := s.oauth.FetchUser(ctx, code)
	if err != nil {
		return nil, apperror.NewExternalServiceError("authentication failed, server error", err)
	}

	user, err := s.users.FindUserByEmail(ctx, profile.Email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NewDatabaseError("authentication failed, server error", err)
		}
		localPart := strings.SplitN(profile.Email, "@", 2)[0]
		name := localPart
		if fields := strings.Fields(profile.Name); len(fields) > 0 {
			name = fields[0]
		}
		user, err = s.createUser(ctx, name, profile.Email, localPart)
		if err != nil {
			// A concurrent OAuth login may have created the account between
			// the lookup and the insert; the unique index reports it, and
			// the existing account is the one to log into.
			if apperror.IsConflict(err) {
				user, err = s.users.FindUserByEmail(ctx, profile.Email)
				if err != nil {
					return nil, apperror.NewDatabaseError("authentication failed, server error", err)
				}
			} else {
				return nil, err
			}
		} else {
			s.logger.Info("user created via oauth", zap.String("userId", user.UserID))
		}
	}

	return s.issuePair(user)
}

// createUser hashes the password and inserts the account. The storage
// layer's unique email index is the real duplicate guard; ErrDuplicate maps
// to ConflictError here.
func (s *Service) createUser(ctx context.Context, name, email, password string) (*store.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, apperror.NewInternalError("cannot register user, server error", err)
	}

	user := &store.User{
		UserID:       uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		LikedIDs:     []int{},
		SavedIDs:     []int{},
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperror.NewConflictError("user already exists with this e-mail", nil)
		}
		return nil, apperror.NewDatabaseError("cannot register user, server error", err)
	}
	return user, nil
}

func (s *Service) issuePair(user *store.User) (*TokenPair, error) {
	pair, err := s.tokens.IssuePair(user)
	if err != nil {
		return nil, apperror.NewInternalError("cannot issue tokens, server error", err)
	}
	return pair, nil
}
