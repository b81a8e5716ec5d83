package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TokenUseAccess  = "access"
	TokenUseRefresh = "refresh"
)

// AuthClaims is the issued-credential payload. TokenUse distinguishes the
// access token from its refresh counterpart.
type AuthClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Client    string    `json:"client"`
	TokenUse  string    `json:"token_use"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenSigner signs and validates the locally issued credential pair.
type TokenSigner interface {
	Sign(claims AuthClaims) (string, error)
	ParseAndValidate(token string) (AuthClaims, error)
}

// SecretHasher protects issued client secrets at rest.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) error
}

// ExternalProfile is the identity attribute set returned by a provider after
// a successful code exchange.
type ExternalProfile struct {
	ExternalID   string
	Name         string
	Email        string
	Nickname     string
	AvatarURL    string
	AccessToken  string
	RefreshToken string
}

// OAuthProvider is the consumed provider-client interface: build the
// authorization redirect, then exchange the callback code for a profile.
type OAuthProvider interface {
	AuthorizeURL(ctx context.Context, provider, state string) (string, error)
	Exchange(ctx context.Context, provider, code string) (ExternalProfile, error)
}
