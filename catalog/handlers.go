package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/user/pokesphere-go/apperror"
	"github.com/user/pokesphere-go/auth"
	"github.com/user/pokesphere-go/store"
)

// ListResponse wraps every catalog listing.
type ListResponse struct {
	Pokemons []store.CatalogItem `json:"pokemons"`
	Success  bool                `json:"success"`
}

// Handler exposes the catalog endpoints over HTTP.
type Handler struct {
	service     *Service
	broadcaster *Broadcaster
}

// NewHandler wires the catalog service into an HTTP handler set.
func NewHandler(service *Service, broadcaster *Broadcaster) *Handler {
	return &Handler{service: service, broadcaster: broadcaster}
}

// FetchAllPokemons handles GET /api/fetchAllPokemons. All query params are
// optional: q, type, ability, weight, height, sort.
func (h *Handler) FetchAllPokemons(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}

	items, err := h.service.FetchAll(r.Context(), q)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}

	auth.WriteJSON(w, http.StatusOK, ListResponse{Pokemons: items, Success: true})
}

// FetchLikedPokemons handles POST /api/fetchLikedPokemons. The form field
// likedPokemons carries a comma-separated id list.
func (h *Handler) FetchLikedPokemons(w http.ResponseWriter, r *http.Request) {
	h.fetchByIDs(w, r, "likedPokemons")
}

// FetchSavedPokemons handles POST /api/fetchSavedPokemons. The form field
// savedPokemons carries a comma-separated id list.
func (h *Handler) FetchSavedPokemons(w http.ResponseWriter, r *http.Request) {
	h.fetchByIDs(w, r, "savedPokemons")
}

func (h *Handler) fetchByIDs(w http.ResponseWriter, r *http.Request, field string) {
	if err := r.ParseForm(); err != nil {
		auth.WriteError(w, r, apperror.NewValidationError("invalid form body", err))
		return
	}

	ids, err := parseIDList(r.PostFormValue(field))
	if err != nil {
		auth.WriteError(w, r, apperror.NewValidationError(
			fmt.Sprintf("%s must be a comma-separated id list", field), err))
		return
	}

	items, err := h.service.FetchByIDs(r.Context(), ids)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}

	auth.WriteJSON(w, http.StatusOK, ListResponse{Pokemons: items, Success: true})
}

// SyncProgress handles GET /api/syncProgress as a server-sent event
// stream. Each sync progress update arrives as one `data:` line holding
// the JSON-encoded event; the stream closes when the client disconnects.
func (h *Handler) SyncProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		auth.WriteError(w, r, apperror.NewInternalError("streaming unsupported", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, events := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func queryFromRequest(r *http.Request) (Query, error) {
	params := r.URL.Query()
	q := Query{
		Search:  params.Get("q"),
		Type:    params.Get("type"),
		Ability: params.Get("ability"),
		Sort:    params.Get("sort"),
	}

	var err error
	if q.Weight, err = optionalInt(params.Get("weight")); err != nil {
		return Query{}, apperror.NewValidationError("weight must be an integer", err)
	}
	if q.Height, err = optionalInt(params.Get("height")); err != nil {
		return Query{}, apperror.NewValidationError("height must be an integer", err)
	}
	if q.Sort != "" && q.Sort != SortAscending && q.Sort != SortDescending {
		return Query{}, apperror.NewValidationError("sort must be Ascending or Descending", nil)
	}
	return q, nil
}

func optionalInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func parseIDList(raw string) ([]int, error) {
	if raw == "" {
		return []int{}, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
