// Package client is a Go consumer of the PokéSphere API. It keeps the
// session state a browser would: the access token in memory, the refresh
// token in a cookie jar, and the signed-in user's profile cached locally.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/user/pokesphere-go/auth"
	"github.com/user/pokesphere-go/catalog"
	"github.com/user/pokesphere-go/store"
	"github.com/user/pokesphere-go/users"
)

// ErrNoSession is returned by calls that need authentication when the
// client has never signed in.
var ErrNoSession = errors.New("client: no active session")

// ErrSessionExpired is returned when the access token was rejected and the
// refresh flow could not produce a new one. Local session state is cleared
// first, so the caller can go straight back to Login.
var ErrSessionExpired = errors.New("client: session expired")

// Client talks to one PokéSphere server on behalf of one user.
type Client struct {
	baseURL string
	http    *http.Client

	mu          sync.Mutex
	accessToken string
	user        *store.User
}

// New creates a Client with an empty session. The cookie jar holds the
// HttpOnly refresh cookie between calls, the way a browser would.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
	}, nil
}

// NewWithToken resumes a session from a stored access token and fetches
// the profile immediately. If the token already lapsed and no refresh
// cookie is available, the call reports ErrSessionExpired; the returned
// Client is still usable for Login.
func NewWithToken(ctx context.Context, baseURL, accessToken string) (*Client, error) {
	c, err := New(baseURL)
	if err != nil {
		return nil, err
	}
	c.accessToken = accessToken
	_, err = c.GetUser(ctx)
	return c, err
}

// apiError mirrors the server's uniform error body.
type apiError struct {
	Error string `json:"error"`
}

// httpError carries the status of a non-2xx response through the retry
// logic.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.status, e.message)
}

// Register creates an account with a verification code previously mailed
// via RequestRegistrationCode and signs in as it.
func (c *Client) Register(ctx context.Context, name, email, password, code string) error {
	return c.startSession(ctx, "/api/register", url.Values{
		"name": {name}, "email": {email}, "password": {password}, "code": {code},
	})
}

// Login signs in with an email/password pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.startSession(ctx, "/api/login", url.Values{
		"email": {email}, "password": {password},
	})
}

func (c *Client) startSession(ctx context.Context, path string, form url.Values) error {
	var resp auth.TokenResponse
	if err := c.postForm(ctx, path, form, &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.mu.Unlock()

	// Prime the profile cache; the session is already established even if
	// this first fetch fails.
	_, err := c.GetUser(ctx)
	return err
}

// RequestRegistrationCode asks the server to mail a verification code for
// a new account; the address does not need to exist yet.
func (c *Client) RequestRegistrationCode(ctx context.Context, email string) error {
	var resp auth.SuccessResponse
	return c.postForm(ctx, "/api/sendVerificationEmail", url.Values{"email": {email}}, &resp)
}

// RequestCode asks the server to mail a password-reset code to email. The
// account must exist.
func (c *Client) RequestCode(ctx context.Context, email string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/forgotpassword?email="+url.QueryEscape(email), nil)
	if err != nil {
		return err
	}
	return c.expectSuccess(req)
}

// ResetPassword replaces the account password using a mailed code.
func (c *Client) ResetPassword(ctx context.Context, email, code, password string) error {
	var resp auth.SuccessResponse
	return c.postForm(ctx, "/api/resetPassword", url.Values{
		"email": {email}, "code": {code}, "password": {password},
	}, &resp)
}

// Logout drops the server cookie and all local session state.
func (c *Client) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/logout", nil)
	if err != nil {
		return err
	}
	err = c.expectSuccess(req)

	c.mu.Lock()
	c.accessToken = ""
	c.user = nil
	c.mu.Unlock()
	return err
}

// GetUser fetches the signed-in user's profile and refreshes the cache.
func (c *Client) GetUser(ctx context.Context) (*store.User, error) {
	var resp users.UserResponse
	if err := c.getAuthed(ctx, "/api/getUser", url.Values{}, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.user = resp.User
	c.mu.Unlock()
	return resp.User, nil
}

// CachedUser returns the profile from the last successful fetch, if any.
func (c *Client) CachedUser() (*store.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user, c.user != nil
}

// LikePokemon adds id to the liked set.
func (c *Client) LikePokemon(ctx context.Context, id int) (*store.User, error) {
	return c.updateFavorite(ctx, "/api/likePokemon", id)
}

// UnlikePokemon removes id from the liked set.
func (c *Client) UnlikePokemon(ctx context.Context, id int) (*store.User, error) {
	return c.updateFavorite(ctx, "/api/unlikePokemon", id)
}

// SavePokemon adds id to the saved set.
func (c *Client) SavePokemon(ctx context.Context, id int) (*store.User, error) {
	return c.updateFavorite(ctx, "/api/savePokemon", id)
}

// UnsavePokemon removes id from the saved set.
func (c *Client) UnsavePokemon(ctx context.Context, id int) (*store.User, error) {
	return c.updateFavorite(ctx, "/api/unsavePokemon", id)
}

func (c *Client) updateFavorite(ctx context.Context, path string, id int) (*store.User, error) {
	params := url.Values{"id": {strconv.Itoa(id)}}

	var resp users.UpdatedUserResponse
	if err := c.getAuthed(ctx, path, params, &resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.user = resp.UpdatedUser
	c.mu.Unlock()
	return resp.UpdatedUser, nil
}

// FetchAllPokemons lists the catalog with the query applied server-side.
func (c *Client) FetchAllPokemons(ctx context.Context, q catalog.Query) ([]store.CatalogItem, error) {
	params := url.Values{}
	if q.Search != "" {
		params.Set("q", q.Search)
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Ability != "" {
		params.Set("ability", q.Ability)
	}
	if q.Weight > 0 {
		params.Set("weight", strconv.Itoa(q.Weight))
	}
	if q.Height > 0 {
		params.Set("height", strconv.Itoa(q.Height))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/fetchAllPokemons?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp catalog.ListResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Pokemons, nil
}

// FetchLikedPokemons resolves the cached user's liked set into items.
func (c *Client) FetchLikedPokemons(ctx context.Context) ([]store.CatalogItem, error) {
	return c.fetchFavorites(ctx, "/api/fetchLikedPokemons", "likedPokemons",
		func(u *store.User) []int { return u.LikedIDs })
}

// FetchSavedPokemons resolves the cached user's saved set into items.
func (c *Client) FetchSavedPokemons(ctx context.Context) ([]store.CatalogItem, error) {
	return c.fetchFavorites(ctx, "/api/fetchSavedPokemons", "savedPokemons",
		func(u *store.User) []int { return u.SavedIDs })
}

func (c *Client) fetchFavorites(ctx context.Context, path, field string, pick func(*store.User) []int) ([]store.CatalogItem, error) {
	user, ok := c.CachedUser()
	if !ok {
		return nil, ErrNoSession
	}

	ids := pick(user)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	form := url.Values{field: {strings.Join(parts, ",")}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp catalog.ListResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Pokemons, nil
}

// getAuthed issues an authenticated GET. A 403 answer means the access
// token lapsed: the client runs the refresh flow once and retries; if the
// refresh also fails, the session is cleared and ErrSessionExpired
// returned.
func (c *Client) getAuthed(ctx context.Context, path string, params url.Values, v any) error {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token == "" {
		return ErrNoSession
	}

	err := c.getWithToken(ctx, path, params, token, v)
	var httpErr *httpError
	if !errors.As(err, &httpErr) || httpErr.status != http.StatusForbidden {
		return err
	}

	token, err = c.refresh(ctx)
	if err != nil {
		c.mu.Lock()
		c.accessToken = ""
		c.user = nil
		c.mu.Unlock()
		return ErrSessionExpired
	}

	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
	return c.getWithToken(ctx, path, params, token, v)
}

func (c *Client) getWithToken(ctx context.Context, path string, params url.Values, token string, v any) error {
	withToken := url.Values{}
	for key, vals := range params {
		withToken[key] = vals
	}
	withToken.Set("token", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+withToken.Encode(), nil)
	if err != nil {
		return err
	}
	return c.do(req, v)
}

func (c *Client) refresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/refreshToken", nil)
	if err != nil {
		return "", err
	}

	var resp auth.TokenResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, v)
}

func (c *Client) expectSuccess(req *http.Request) error {
	var resp auth.SuccessResponse
	return c.do(req, &resp)
}

func (c *Client) do(req *http.Request, v any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &httpError{status: resp.StatusCode, message: apiErr.Error}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
