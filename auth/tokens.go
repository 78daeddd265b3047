// Package auth implements the session-lifecycle protocol: registration with
// email verification, login, access/refresh token issuance and verification,
// logout, password recovery, and GitHub OAuth login.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/config"
	"github.com/user/pokesphere-go/store"
)

// TokenClaims is the payload carried by both access and refresh tokens.
// Tokens are stateless: possession of a validly-signed, unexpired token is
// treated as proof of identity.
type TokenClaims struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService mints and verifies the two token scopes. Access and refresh
// tokens are signed with distinct secrets, so one can never be presented in
// place of the other.
type TokenService struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessDuration  time.Duration
	refreshDuration time.Duration

	now func() time.Time
}

// NewTokenService creates a TokenService from the auth configuration.
func NewTokenService(cfg config.AuthConfig) *TokenService {
	return &TokenService{
		accessSecret:    []byte(cfg.AccessSecret),
		refreshSecret:   []byte(cfg.RefreshSecret),
		accessDuration:  cfg.AccessDuration,
		refreshDuration: cfg.RefreshDuration,
		now:             time.Now,
	}
}

// TokenPair is the result of a successful authentication.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// IssuePair mints an access token and a refresh token for the user.
func (s *TokenService) IssuePair(user *store.User) (*TokenPair, error) {
	access, err := s.sign(user.Email, user.UserID, s.accessSecret, s.accessDuration)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}
	refresh, err := s.sign(user.Email, user.UserID, s.refreshSecret, s.refreshDuration)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess mints a new access token for previously verified claims. Used
// by the refresh flow, which does not rotate the refresh token.
func (s *TokenService) IssueAccess(claims *TokenClaims) (string, error) {
	access, err := s.sign(claims.Email, claims.UserID, s.accessSecret, s.accessDuration)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return access, nil
}

func (s *TokenService) sign(email, userID string, secret []byte, duration time.Duration) (string, error) {
	issuedAt := s.now()
	claims := &TokenClaims{
		Email:  email,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(duration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// VerifyAccess verifies an access token. Failures come back as
// ForbiddenError so handlers answer 403, which is the signal the client
// session manager reacts to with a refresh attempt.
func (s *TokenService) VerifyAccess(tokenString string) (*TokenClaims, error) {
	claims, err := s.verify(tokenString, s.accessSecret)
	if err != nil {
		return nil, apperror.NewForbiddenError("invalid or expired token", err)
	}
	return claims, nil
}

// VerifyRefresh verifies a refresh token. Failures come back as
// ForbiddenError; the refresh handler additionally clears the cookie.
func (s *TokenService) VerifyRefresh(tokenString string) (*TokenClaims, error) {
	claims, err := s.verify(tokenString, s.refreshSecret)
	if err != nil {
		return nil, apperror.NewForbiddenError("invalid or expired refresh token", err)
	}
	return claims, nil
}

func (s *TokenService) verify(tokenString string, secret []byte) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	return claims, nil
}
