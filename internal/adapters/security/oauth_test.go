package security

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestAuthorizeURLUsesGithubDefaults(t *testing.T) {
	t.Parallel()
	client := NewOAuthClient(OAuthClientConfig{
		Providers: map[string]OAuthProviderConfig{
			"github": {ClientID: "client-123", ClientSecret: "secret"},
		},
	})

	raw, err := client.AuthorizeURL(context.Background(), "github", "state-1")
	if err != nil {
		t.Fatalf("AuthorizeURL returned error: %v", err)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse authorize url: %v", err)
	}
	if parsed.Host != "github.com" {
		t.Fatalf("expected github.com host, got %q", parsed.Host)
	}
	if parsed.Path != "/login/oauth/authorize" {
		t.Fatalf("expected /login/oauth/authorize path, got %q", parsed.Path)
	}
	query := parsed.Query()
	if query.Get("client_id") != "client-123" {
		t.Fatalf("expected client_id in query, got %q", query.Get("client_id"))
	}
	if query.Get("state") != "state-1" {
		t.Fatalf("expected state in query, got %q", query.Get("state"))
	}
	if !strings.Contains(query.Get("scope"), "read:user") {
		t.Fatalf("expected default github scopes, got %q", query.Get("scope"))
	}
}

func TestAuthorizeURLRejectsUnknownProvider(t *testing.T) {
	t.Parallel()
	client := NewOAuthClient(OAuthClientConfig{
		Providers: map[string]OAuthProviderConfig{
			"github": {ClientID: "client-123"},
		},
	})

	if _, err := client.AuthorizeURL(context.Background(), "myspace", "state-1"); err == nil {
		t.Fatalf("expected an error for a provider outside the configuration")
	}
}

func TestAuthorizeURLRejectsIncompleteConfiguration(t *testing.T) {
	t.Parallel()
	client := NewOAuthClient(OAuthClientConfig{
		Providers: map[string]OAuthProviderConfig{
			// No built-in defaults exist for this name, so endpoints are missing.
			"gitlab": {ClientID: "client-123"},
			// Endpoints default, but the credential is absent.
			"github": {},
		},
	})

	if _, err := client.AuthorizeURL(context.Background(), "gitlab", "state-1"); err == nil || !strings.Contains(err.Error(), "endpoints") {
		t.Fatalf("expected a missing-endpoints error, got %v", err)
	}
	if _, err := client.AuthorizeURL(context.Background(), "github", "state-1"); err == nil || !strings.Contains(err.Error(), "client_id") {
		t.Fatalf("expected a missing-client_id error, got %v", err)
	}
}

func TestAuthorizeURLRequiresState(t *testing.T) {
	t.Parallel()
	client := NewOAuthClient(OAuthClientConfig{
		Providers: map[string]OAuthProviderConfig{
			"github": {ClientID: "client-123"},
		},
	})

	if _, err := client.AuthorizeURL(context.Background(), "github", "  "); err == nil {
		t.Fatalf("expected an error for a blank state")
	}
}

func TestExchangeMapsNumericProviderIDs(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse token form: %v", err)
			}
			if r.PostFormValue("code") != "code-1" || r.PostFormValue("client_id") != "client-123" {
				t.Errorf("unexpected token request form: %v", r.PostForm)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "upstream-access",
				"refresh_token": "upstream-refresh",
				"token_type":    "bearer",
			})
		case "/user":
			if r.Header.Get("Authorization") != "Bearer upstream-access" {
				t.Errorf("unexpected authorization header %q", r.Header.Get("Authorization"))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":         12345,
				"login":      "octo",
				"name":       "Octo Cat",
				"email":      "Octo@Example.com",
				"avatar_url": "https://avatars.example.com/u/12345",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewOAuthClient(OAuthClientConfig{
		HTTPClient: server.Client(),
		Providers: map[string]OAuthProviderConfig{
			"github": {
				ClientID:     "client-123",
				ClientSecret: "secret",
				TokenURL:     server.URL + "/token",
				UserInfoURL:  server.URL + "/user",
			},
		},
	})

	profile, err := client.Exchange(context.Background(), "github", "code-1")
	if err != nil {
		t.Fatalf("Exchange returned error: %v", err)
	}
	if profile.ExternalID != "12345" {
		t.Fatalf("numeric provider id must map to a string, got %q", profile.ExternalID)
	}
	if profile.Nickname != "octo" || profile.Name != "Octo Cat" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if profile.Email != "octo@example.com" {
		t.Fatalf("email must be lowercased, got %q", profile.Email)
	}
	if profile.AccessToken != "upstream-access" || profile.RefreshToken != "upstream-refresh" {
		t.Fatalf("provider tokens must be carried on the profile")
	}
}

func TestExchangeSurfacesProviderError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "bad_verification_code"})
	}))
	defer server.Close()

	client := NewOAuthClient(OAuthClientConfig{
		HTTPClient: server.Client(),
		Providers: map[string]OAuthProviderConfig{
			"github": {
				ClientID:     "client-123",
				ClientSecret: "secret",
				TokenURL:     server.URL + "/token",
				UserInfoURL:  server.URL + "/user",
			},
		},
	})

	if _, err := client.Exchange(context.Background(), "github", "expired-code"); err == nil || !strings.Contains(err.Error(), "bad_verification_code") {
		t.Fatalf("expected the provider error to surface, got %v", err)
	}
}
