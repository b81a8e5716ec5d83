package security

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ikidnapmyself/pp-api/internal/ports"
)

// OAuthProviderConfig describes one upstream provider. Endpoints default to
// the provider's published values when the name is recognized, so a minimal
// config only needs client_id and client_secret.
type OAuthProviderConfig struct {
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

type OAuthClientConfig struct {
	HTTPClient *http.Client
	Providers  map[string]OAuthProviderConfig
}

// OAuthClient implements the provider port over plain OAuth2 authorization-code
// endpoints with a userinfo fetch, which covers github and compatible providers.
type OAuthClient struct {
	httpClient *http.Client
	providers  map[string]OAuthProviderConfig
}

type oauthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Error        string `json:"error"`
}

func NewOAuthClient(cfg OAuthClientConfig) *OAuthClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 8 * time.Second}
	}
	providers := make(map[string]OAuthProviderConfig, len(cfg.Providers))
	for name, provider := range cfg.Providers {
		name = strings.ToLower(strings.TrimSpace(name))
		providers[name] = withProviderDefaults(name, provider)
	}
	return &OAuthClient{
		httpClient: httpClient,
		providers:  providers,
	}
}

func withProviderDefaults(name string, cfg OAuthProviderConfig) OAuthProviderConfig {
	if name == "github" {
		if strings.TrimSpace(cfg.AuthorizeURL) == "" {
			cfg.AuthorizeURL = "https://github.com/login/oauth/authorize"
		}
		if strings.TrimSpace(cfg.TokenURL) == "" {
			cfg.TokenURL = "https://github.com/login/oauth/access_token"
		}
		if strings.TrimSpace(cfg.UserInfoURL) == "" {
			cfg.UserInfoURL = "https://api.github.com/user"
		}
		if len(cfg.Scopes) == 0 {
			cfg.Scopes = []string{"read:user", "user:email"}
		}
	}
	return cfg
}

func (c *OAuthClient) AuthorizeURL(_ context.Context, provider, state string) (string, error) {
	providerCfg, err := c.providerConfig(provider)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(state) == "" {
		return "", fmt.Errorf("state is required")
	}

	q := url.Values{}
	q.Set("client_id", providerCfg.ClientID)
	q.Set("response_type", "code")
	q.Set("state", state)
	if len(providerCfg.Scopes) > 0 {
		q.Set("scope", strings.Join(providerCfg.Scopes, " "))
	}
	if strings.TrimSpace(providerCfg.RedirectURI) != "" {
		q.Set("redirect_uri", providerCfg.RedirectURI)
	}
	return providerCfg.AuthorizeURL + "?" + q.Encode(), nil
}

func (c *OAuthClient) Exchange(ctx context.Context, provider, code string) (ports.ExternalProfile, error) {
	providerCfg, err := c.providerConfig(provider)
	if err != nil {
		return ports.ExternalProfile{}, err
	}
	if strings.TrimSpace(code) == "" {
		return ports.ExternalProfile{}, fmt.Errorf("authorization code is required")
	}

	token, err := c.exchangeCode(ctx, providerCfg, code)
	if err != nil {
		return ports.ExternalProfile{}, err
	}
	profile, err := c.fetchUserInfo(ctx, providerCfg, token.AccessToken)
	if err != nil {
		return ports.ExternalProfile{}, err
	}
	profile.AccessToken = token.AccessToken
	profile.RefreshToken = token.RefreshToken
	return profile, nil
}

func (c *OAuthClient) providerConfig(provider string) (OAuthProviderConfig, error) {
	name := strings.ToLower(strings.TrimSpace(provider))
	cfg, ok := c.providers[name]
	if !ok {
		return OAuthProviderConfig{}, fmt.Errorf("unsupported provider: %s", provider)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return OAuthProviderConfig{}, fmt.Errorf("provider %s is not configured (missing client_id)", provider)
	}
	if strings.TrimSpace(cfg.AuthorizeURL) == "" || strings.TrimSpace(cfg.TokenURL) == "" || strings.TrimSpace(cfg.UserInfoURL) == "" {
		return OAuthProviderConfig{}, fmt.Errorf("provider %s is not configured (missing endpoints)", provider)
	}
	return cfg, nil
}

func (c *OAuthClient) exchangeCode(ctx context.Context, providerCfg OAuthProviderConfig, code string) (oauthTokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", providerCfg.ClientID)
	form.Set("client_secret", providerCfg.ClientSecret)
	if strings.TrimSpace(providerCfg.RedirectURI) != "" {
		form.Set("redirect_uri", providerCfg.RedirectURI)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, providerCfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return oauthTokenResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oauthTokenResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return oauthTokenResponse{}, fmt.Errorf("code exchange failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token oauthTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return oauthTokenResponse{}, fmt.Errorf("decode token response: %w", err)
	}
	if strings.TrimSpace(token.Error) != "" {
		return oauthTokenResponse{}, fmt.Errorf("code exchange failed: %s", token.Error)
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return oauthTokenResponse{}, fmt.Errorf("access_token missing in token response")
	}
	return token, nil
}

func (c *OAuthClient) fetchUserInfo(ctx context.Context, providerCfg OAuthProviderConfig, accessToken string) (ports.ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, providerCfg.UserInfoURL, nil)
	if err != nil {
		return ports.ExternalProfile{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.ExternalProfile{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ports.ExternalProfile{}, fmt.Errorf("userinfo fetch failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return ports.ExternalProfile{}, fmt.Errorf("decode userinfo: %w", err)
	}

	externalID := stringAttr(raw, "id")
	if externalID == "" {
		externalID = stringAttr(raw, "sub")
	}
	if externalID == "" {
		return ports.ExternalProfile{}, fmt.Errorf("userinfo missing id")
	}
	return ports.ExternalProfile{
		ExternalID: externalID,
		Name:       stringAttr(raw, "name"),
		Email:      strings.ToLower(stringAttr(raw, "email")),
		Nickname:   stringAttr(raw, "login"),
		AvatarURL:  stringAttr(raw, "avatar_url"),
	}, nil
}

// stringAttr tolerates numeric ids: github serializes id as a JSON number.
func stringAttr(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
