package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/user/pokesphere-go/apperror"
)

// refreshCookieName is the cookie that carries the refresh token between
// the browser and the /api/refreshToken endpoint.
const refreshCookieName = "refreshToken"

// Handler exposes the session-lifecycle endpoints over HTTP.
type Handler struct {
	service       *Service
	validate      *validator.Validate
	logger        *zap.Logger
	secureCookies bool
}

// NewHandler wires the session service into an HTTP handler set.
func NewHandler(service *Service, secureCookies bool, logger *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		validate:      validator.New(),
		logger:        logger,
		secureCookies: secureCookies,
	}
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps an error onto its HTTP status and writes the uniform
// {"error": "..."} body. Unknown errors become 500s.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("internal server error", err)
	}
	WriteJSON(w, appErr.StatusCode(), appErr.ToResponse())
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Register handles POST /api/register. The request carries the e-mail
// verification code obtained via GET /api/forgotpassword beforehand.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, r, apperror.NewValidationError("invalid form body", err))
		return
	}
	req := RegisterRequest{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Code:     r.PostFormValue("code"),
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, r, apperror.NewValidationError("missing or malformed fields", err))
		return
	}

	pair, err := h.service.Register(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: pair.AccessToken, Success: true})
}

// Login handles POST /api/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, r, apperror.NewValidationError("invalid form body", err))
		return
	}
	req := LoginRequest{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, r, apperror.NewValidationError("missing or malformed fields", err))
		return
	}

	pair, err := h.service.Login(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: pair.AccessToken, Success: true})
}

// Logout handles GET /api/logout. It clears the refresh cookie
// unconditionally, so a client with a stale session still ends up logged
// out.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// RefreshToken handles GET /api/refreshToken. The refresh token travels in
// the HttpOnly cookie set at login. A missing cookie is a 401; a cookie
// that fails verification is a 403 and the cookie is cleared so the client
// does not retry with it.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		WriteError(w, r, apperror.NewAuthError("no refresh token", err))
		return
	}

	accessToken, err := h.service.Refresh(cookie.Value)
	if err != nil {
		h.clearRefreshCookie(w)
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: accessToken, Success: true})
}

// SendVerificationEmail handles POST /api/sendVerificationEmail. It mails
// a registration code to the address; no account is required yet.
func (h *Handler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, r, apperror.NewValidationError("invalid form body", err))
		return
	}
	email := r.PostFormValue("email")
	if email == "" {
		WriteError(w, r, apperror.NewValidationError("email is required", nil))
		return
	}

	if err := h.service.SendVerificationCode(r.Context(), email); err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ForgotPassword handles GET /api/forgotpassword?email=. It issues a
// verification code and mails it to the address. The same endpoint backs
// both registration and password recovery.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		WriteError(w, r, apperror.NewValidationError("email is required", nil))
		return
	}

	if err := h.service.ForgotPassword(r.Context(), email); err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// ResetPassword handles POST /api/resetPassword.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, r, apperror.NewValidationError("invalid form body", err))
		return
	}
	req := ResetPasswordRequest{
		Email:    r.PostFormValue("email"),
		Code:     r.PostFormValue("code"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validate.Struct(req); err != nil {
		WriteError(w, r, apperror.NewValidationError("missing or malformed fields", err))
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// GitHubCallback handles GET /auth/github/callback?code=. GitHub redirects
// the browser here after the user approves the OAuth grant.
func (h *Handler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		WriteError(w, r, apperror.NewValidationError("missing authorization code", nil))
		return
	}

	pair, err := h.service.LoginWithGitHub(r.Context(), code)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.RefreshToken)
	WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: pair.AccessToken, Success: true})
}
