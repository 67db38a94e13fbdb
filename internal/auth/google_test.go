package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/drcartoon/cartoonbox/internal/config"
)

func testResolver() *Resolver {
	return NewResolver(config.AuthConfig{
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		RedirectURL:        "http://localhost:8080/auth/callback",
	})
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	b, err := NewState()
	if err != nil {
		t.Fatalf("NewState failed: %v", err)
	}
	if a == b {
		t.Error("States must be unique")
	}
	if len(a) != 32 {
		t.Errorf("Expected 32 hex chars, got %d", len(a))
	}
}

func TestAuthURL(t *testing.T) {
	r := testResolver()

	rawURL := r.AuthURL("state-123")
	if !strings.HasPrefix(rawURL, "https://accounts.google.com/o/oauth2/v2/auth") {
		t.Errorf("Unexpected consent URL: %s", rawURL)
	}
	for _, want := range []string{"state=state-123", "client_id=client-id", "prompt=consent", "access_type=offline"} {
		if !strings.Contains(rawURL, want) {
			t.Errorf("Consent URL missing %s: %s", want, rawURL)
		}
	}
}

func oauthTestServers(t *testing.T, userinfo string) *Resolver {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "test-access-token", "token_type": "Bearer", "expires_in": 3600}`))
	}))
	t.Cleanup(tokenSrv.Close)

	userinfoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(userinfo))
	}))
	t.Cleanup(userinfoSrv.Close)

	r := testResolver()
	r.SetTokenEndpoint(tokenSrv.URL)
	r.SetUserinfoEndpoint(userinfoSrv.URL)
	return r
}

func TestResolve(t *testing.T) {
	r := oauthTestServers(t, `{
		"sub": "google-uid-1",
		"email": "kid@example.com",
		"name": "Kid",
		"picture": "https://img/a.png"
	}`)

	sess, err := r.Resolve(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if sess.UID != "google-uid-1" {
		t.Errorf("Unexpected uid: %s", sess.UID)
	}
	if sess.Profile.Email != "kid@example.com" || sess.Profile.DisplayName != "Kid" {
		t.Errorf("Unexpected profile: %+v", sess.Profile)
	}
	if !sess.Authenticated() {
		t.Error("Resolved session should be authenticated")
	}
}

func TestResolveRejectsIncompleteUserinfo(t *testing.T) {
	tests := []struct {
		name     string
		userinfo string
	}{
		{"missing sub", `{"email": "kid@example.com"}`},
		{"missing email", `{"sub": "google-uid-1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := oauthTestServers(t, tt.userinfo)
			if _, err := r.Resolve(context.Background(), "auth-code"); err == nil {
				t.Error("Expected rejection of incomplete userinfo")
			}
		})
	}
}
