package users

import (
	"context"
	"net/http"
	"strconv"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/auth"
	"github.com/user/pokesphere-go/store"
)

// UserResponse wraps the profile returned by GET /api/getUser.
type UserResponse struct {
	User    *store.User `json:"user"`
	Success bool        `json:"success"`
}

// UpdatedUserResponse wraps the profile returned after a favorites change.
type UpdatedUserResponse struct {
	UpdatedUser *store.User `json:"updatedUser"`
	Success     bool        `json:"success"`
}

// Handler exposes the user endpoints over HTTP. All of them sit behind
// auth.RequireAccessToken.
type Handler struct {
	service *Service
}

// NewHandler wires the users service into an HTTP handler set.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetUser handles GET /api/getUser?token=.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		auth.WriteError(w, r, apperror.NewAuthError("unauthorized", nil))
		return
	}

	user, err := h.service.GetByID(r.Context(), claims.UserID)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}

	auth.WriteJSON(w, http.StatusOK, UserResponse{User: user, Success: true})
}

// LikePokemon handles GET /api/likePokemon?id=&token=.
func (h *Handler) LikePokemon(w http.ResponseWriter, r *http.Request) {
	h.updateFavorite(w, r, store.LikedSet, h.service.AddFavorite)
}

// UnlikePokemon handles GET /api/unlikePokemon?id=&token=.
func (h *Handler) UnlikePokemon(w http.ResponseWriter, r *http.Request) {
	h.updateFavorite(w, r, store.LikedSet, h.service.RemoveFavorite)
}

// SavePokemon handles GET /api/savePokemon?id=&token=.
func (h *Handler) SavePokemon(w http.ResponseWriter, r *http.Request) {
	h.updateFavorite(w, r, store.SavedSet, h.service.AddFavorite)
}

// UnsavePokemon handles GET /api/unsavePokemon?id=&token=.
func (h *Handler) UnsavePokemon(w http.ResponseWriter, r *http.Request) {
	h.updateFavorite(w, r, store.SavedSet, h.service.RemoveFavorite)
}

type favoriteOp func(ctx context.Context, userID string, set store.FavoriteSet, id int) (*store.User, error)

func (h *Handler) updateFavorite(w http.ResponseWriter, r *http.Request, set store.FavoriteSet, op favoriteOp) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		auth.WriteError(w, r, apperror.NewAuthError("unauthorized", nil))
		return
	}

	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		auth.WriteError(w, r, apperror.NewValidationError("id must be an integer", err))
		return
	}

	user, err := op(r.Context(), claims.UserID, set, id)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}

	auth.WriteJSON(w, http.StatusOK, UpdatedUserResponse{UpdatedUser: user, Success: true})
}
