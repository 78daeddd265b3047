package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/user/pokesphere-go/config"
)

// OAuthProfile is the subset of a provider profile the session protocol
// needs: an email to key the local account on and a display name.
type OAuthProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// OAuthProvider exchanges an authorization code for a provider profile.
// GitHubProvider is the production implementation; tests use a stub.
type OAuthProvider interface {
	FetchUser(ctx context.Context, code string) (*OAuthProfile, error)
}

// GitHubProvider implements OAuthProvider against GitHub.
type GitHubProvider struct {
	cfg *oauth2.Config

	// userURL is the profile endpoint. Overridable for tests.
	userURL string
}

// NewGitHubProvider creates a GitHubProvider from the OAuth configuration.
func NewGitHubProvider(cfg config.OAuthConfig) *GitHubProvider {
	return &GitHubProvider{
		cfg: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		},
		userURL: "https://api.github.com/user",
	}
}

// AuthCodeURL returns the provider page to redirect the browser to.
func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

// FetchUser exchanges the authorization code for a provider access token
// and fetches the user's profile with it.
func (p *GitHubProvider) FetchUser(ctx context.Context, code string) (*OAuthProfile, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	client := p.cfg.Client(ctx, token)
	resp, err := client.Get(p.userURL)
	if err != nil {
		return nil, fmt.Errorf("fetching provider profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider profile request failed with status %d", resp.StatusCode)
	}

	var profile OAuthProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decoding provider profile: %w", err)
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("provider profile has no public email")
	}
	return &profile, nil
}
