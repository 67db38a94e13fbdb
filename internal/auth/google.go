package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/drcartoon/cartoonbox/internal/config"
	"github.com/drcartoon/cartoonbox/pkg/models"
)

// Google OAuth2 endpoints for the authorization-code flow.
const (
	authorizationEndpoint = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint         = "https://oauth2.googleapis.com/token"
	userinfoEndpoint      = "https://openidconnect.googleapis.com/v1/userinfo"
)

// Resolver turns a completed Google sign-in into a stable uid and a minimal
// profile. It is the only component that speaks OAuth; the rest of the
// backend consumes the resolved identity.
type Resolver struct {
	oauth    *oauth2.Config
	userinfo string
}

// NewResolver builds the resolver from auth configuration.
func NewResolver(cfg config.AuthConfig) *Resolver {
	return &Resolver{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  authorizationEndpoint,
				TokenURL: tokenEndpoint,
			},
		},
		userinfo: userinfoEndpoint,
	}
}

// NewState returns a random state token for CSRF protection.
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// AuthURL returns the Google consent-screen URL for the given state.
func (r *Resolver) AuthURL(state string) string {
	return r.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

type userinfoResponse struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Resolve exchanges the authorization code and fetches userinfo. A response
// missing sub or email is rejected; everything else is optional.
func (r *Resolver) Resolve(ctx context.Context, code string) (models.Session, error) {
	token, err := r.oauth.Exchange(ctx, code)
	if err != nil {
		return models.Session{}, fmt.Errorf("token exchange failed: %w", err)
	}

	client := r.oauth.Client(ctx, token)
	resp, err := client.Get(r.userinfo)
	if err != nil {
		return models.Session{}, fmt.Errorf("userinfo fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Session{}, fmt.Errorf("userinfo fetch failed: status %d", resp.StatusCode)
	}

	var info userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.Session{}, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	if info.Sub == "" || info.Email == "" {
		return models.Session{}, fmt.Errorf("userinfo missing sub or email")
	}

	return models.Session{
		UID: info.Sub,
		Profile: models.Profile{
			Email:       info.Email,
			DisplayName: info.Name,
			AvatarURL:   info.Picture,
		},
	}, nil
}

// SetUserinfoEndpoint overrides the userinfo URL. Tests point it at a local
// server.
func (r *Resolver) SetUserinfoEndpoint(url string) {
	r.userinfo = url
}

// SetTokenEndpoint overrides the token URL. Tests point it at a local server.
func (r *Resolver) SetTokenEndpoint(url string) {
	r.oauth.Endpoint.TokenURL = url
}
