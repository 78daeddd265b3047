package auth

// Request DTOs are filled from form fields and checked with the validator
// before any business logic runs, so a missing or malformed field always
// answers 400 at the boundary.

// RegisterRequest carries the registration form fields.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"required"`
}

// LoginRequest carries the login form fields.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetPasswordRequest carries the reset-password form fields.
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned by every flow that authenticates the caller.
// The refresh token travels separately, in an HttpOnly cookie.
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	Success     bool   `json:"success"`
}

// SuccessResponse is returned by flows with no payload.
type SuccessResponse struct {
	Success bool `json:"success"`
}
