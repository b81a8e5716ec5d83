package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
	"github.com/ikidnapmyself/pp-api/internal/ports"
)

// LoginConfig carries the login-flow tunables. Providers is the allow-list;
// anything outside it is rejected before any provider traffic happens.
type LoginConfig struct {
	Providers               []string
	StateTTL                time.Duration
	AccessTokenTTL          time.Duration
	RefreshTokenTTL         time.Duration
	RedirectRateThreshold   int
	RedirectRateLimitWindow time.Duration
}

// LoginService runs the per-attempt state machine:
// redirect -> provider callback -> user resolved -> credential issued.
type LoginService struct {
	cfg      LoginConfig
	users    ports.UserRepository
	clients  ports.ClientRepository
	state    ports.LoginStateStore
	limiter  ports.RateLimitStore
	provider ports.OAuthProvider
	signer   ports.TokenSigner
	hasher   ports.SecretHasher
	nowFn    func() time.Time
}

type LoginDependencies struct {
	Config   LoginConfig
	Users    ports.UserRepository
	Clients  ports.ClientRepository
	State    ports.LoginStateStore
	Limiter  ports.RateLimitStore
	Provider ports.OAuthProvider
	Signer   ports.TokenSigner
	Hasher   ports.SecretHasher
}

func NewLoginService(deps LoginDependencies) *LoginService {
	cfg := deps.Config
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = 10 * time.Minute
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 24 * time.Hour
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	return &LoginService{
		cfg:      cfg,
		users:    deps.Users,
		clients:  deps.Clients,
		state:    deps.State,
		limiter:  deps.Limiter,
		provider: deps.Provider,
		signer:   deps.Signer,
		hasher:   deps.Hasher,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *LoginService) providerAllowed(name string) bool {
	for _, candidate := range s.cfg.Providers {
		if strings.EqualFold(candidate, name) {
			return true
		}
	}
	return false
}

// Redirect validates the provider against the allow-list and builds the
// authorization redirect, persisting the anti-CSRF state for the callback.
func (s *LoginService) Redirect(ctx context.Context, providerName, redirectURI, ipAddress string) (RedirectDirective, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	if !s.providerAllowed(providerName) {
		return RedirectDirective{}, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, providerName)
	}
	if err := s.enforceRedirectRate(ctx, ipAddress); err != nil {
		return RedirectDirective{}, err
	}

	now := s.nowFn()
	state := uuid.NewString()
	if err := s.state.Put(ctx, state, ports.LoginState{
		Provider:    providerName,
		RedirectURI: strings.TrimSpace(redirectURI),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.StateTTL),
	}, s.cfg.StateTTL); err != nil {
		return RedirectDirective{}, err
	}

	authorizeURL, err := s.provider.AuthorizeURL(ctx, providerName, state)
	if err != nil {
		return RedirectDirective{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return RedirectDirective{AuthorizeURL: authorizeURL, State: state}, nil
}

// Callback exchanges the authorization code, resolves the local user and
// issues the client registration plus an access/refresh token pair.
func (s *LoginService) Callback(ctx context.Context, providerName, code, state string) (AuthResult, error) {
	providerName = strings.ToLower(strings.TrimSpace(providerName))
	if !s.providerAllowed(providerName) {
		return AuthResult{}, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, providerName)
	}
	if strings.TrimSpace(code) == "" || strings.TrimSpace(state) == "" {
		return AuthResult{}, fmt.Errorf("%w: code and state are required", domain.ErrInvalidInput)
	}

	loginState, err := s.state.Get(ctx, state)
	if err != nil {
		return AuthResult{}, err
	}
	if loginState == nil || loginState.Provider != providerName || loginState.ExpiresAt.Before(s.nowFn()) {
		slog.Default().WarnContext(ctx, "login callback state mismatch",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "login_callback",
			"outcome", "failure",
			"provider", providerName,
		)
		return AuthResult{}, domain.ErrUnauthorized
	}
	_ = s.state.Delete(ctx, state)

	profile, err := s.provider.Exchange(ctx, providerName, code)
	if err != nil {
		slog.Default().WarnContext(ctx, "provider code exchange failed",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "login_callback",
			"outcome", "failure",
			"provider", providerName,
			"error", err,
		)
		return AuthResult{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(profile.ExternalID) == "" {
		return AuthResult{}, domain.ErrUnauthorized
	}

	user, err := s.ResolveUser(ctx, providerName, profile)
	if err != nil {
		return AuthResult{}, err
	}

	client, err := s.IssueClient(ctx, user, ClientInput{State: state, RedirectURI: loginState.RedirectURI})
	if err != nil {
		return AuthResult{}, err
	}

	tokens, err := s.issueTokenPair(user, client.Name)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Client: client, Tokens: tokens}, nil
}

// ResolveUser maps a provider identity onto a local user. First login creates
// the row; later logins refresh name, profile and tokens in place, keeping the
// id stable. Idempotent for identical profiles.
func (s *LoginService) ResolveUser(ctx context.Context, providerName string, profile ports.ExternalProfile) (domain.User, error) {
	name := domain.DisplayName(profile.Name, profile.Nickname)
	attributes := map[string]any{
		"external_id": profile.ExternalID,
		"name":        profile.Name,
		"email":       profile.Email,
		"nickname":    profile.Nickname,
		"avatar_url":  profile.AvatarURL,
	}
	now := s.nowFn()

	existing, err := s.users.GetByProviderIdentity(ctx, providerName, profile.ExternalID)
	if err == nil {
		return s.users.Update(ctx, ports.UserUpdateParams{
			UserID:       existing.UserID,
			Name:         name,
			Email:        profile.Email,
			AccessToken:  profile.AccessToken,
			RefreshToken: profile.RefreshToken,
			Profile:      attributes,
			UpdatedAt:    now,
		})
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	created, err := s.users.Create(ctx, ports.UserCreateParams{
		Name:         name,
		Email:        profile.Email,
		ProviderName: providerName,
		ProviderID:   profile.ExternalID,
		AccessToken:  profile.AccessToken,
		RefreshToken: profile.RefreshToken,
		Profile:      attributes,
		NotifyVia:    []string{"mail"},
		CreatedAt:    now,
	})
	if err == nil {
		slog.Default().InfoContext(ctx, "provider identity created local user",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "resolve_user",
			"outcome", "success",
			"user_id", created.UserID.String(),
			"provider", providerName,
		)
		return created, nil
	}
	// Lost a first-login race: the pair now exists, resolve to the winner.
	if errors.Is(err, domain.ErrConflict) {
		return s.users.GetByProviderIdentity(ctx, providerName, profile.ExternalID)
	}
	return domain.User{}, err
}

// IssueClient returns the user's client registration, creating it on first
// login. The registration name is deterministic: "{provider_name}-{provider_id}".
// The plaintext secret is returned exactly once, at creation.
func (s *LoginService) IssueClient(ctx context.Context, user domain.User, input ClientInput) (ClientCredential, error) {
	name := user.ClientName()

	existing, err := s.clients.GetByName(ctx, name)
	if err == nil {
		return ClientCredential{ClientID: existing.ClientID, Name: existing.Name}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return ClientCredential{}, err
	}

	secret, err := randomHex(32)
	if err != nil {
		return ClientCredential{}, fmt.Errorf("generate client secret: %w", err)
	}
	secretHash, err := s.hasher.Hash(secret)
	if err != nil {
		return ClientCredential{}, fmt.Errorf("hash client secret: %w", err)
	}
	now := s.nowFn()
	created, err := s.clients.Create(ctx, domain.Client{
		UserID:      user.UserID,
		Name:        name,
		SecretHash:  secretHash,
		RedirectURI: input.RedirectURI,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			winner, getErr := s.clients.GetByName(ctx, name)
			if getErr == nil {
				return ClientCredential{ClientID: winner.ClientID, Name: winner.Name}, nil
			}
		}
		return ClientCredential{}, err
	}
	return ClientCredential{ClientID: created.ClientID, Name: created.Name, Secret: secret}, nil
}

// CurrentUser resolves the acting user from a bearer access token.
func (s *LoginService) CurrentUser(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.signer.ParseAndValidate(token)
	if err != nil || claims.TokenUse != ports.TokenUseAccess {
		return domain.User{}, domain.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	return user, nil
}

// RefreshCredentials exchanges a valid refresh token for a fresh pair.
func (s *LoginService) RefreshCredentials(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.signer.ParseAndValidate(refreshToken)
	if err != nil || claims.TokenUse != ports.TokenUseRefresh {
		return TokenPair{}, domain.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, domain.ErrUnauthorized
		}
		return TokenPair{}, err
	}
	return s.issueTokenPair(user, claims.Client)
}

func (s *LoginService) issueTokenPair(user domain.User, clientName string) (TokenPair, error) {
	now := s.nowFn()
	access, err := s.signer.Sign(ports.AuthClaims{
		UserID:    user.UserID,
		Name:      user.Name,
		Client:    clientName,
		TokenUse:  ports.TokenUseAccess,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.signer.Sign(ports.AuthClaims{
		UserID:    user.UserID,
		Name:      user.Name,
		Client:    clientName,
		TokenUse:  ports.TokenUseRefresh,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func (s *LoginService) enforceRedirectRate(ctx context.Context, ipAddress string) error {
	if s.limiter == nil || s.cfg.RedirectRateThreshold <= 0 {
		return nil
	}
	ip := strings.TrimSpace(ipAddress)
	if ip == "" {
		return nil
	}
	count, err := s.limiter.Incr(ctx, "login-redirect:ip:"+ip, s.cfg.RedirectRateLimitWindow)
	if err != nil {
		slog.Default().WarnContext(ctx, "rate-limit state unavailable",
			"service", serviceName,
			"module", "application",
			"layer", "application",
			"operation", "login_redirect",
			"outcome", "warning",
			"error", err,
		)
		return nil
	}
	if count > s.cfg.RedirectRateThreshold {
		return domain.ErrRateLimited
	}
	return nil
}
