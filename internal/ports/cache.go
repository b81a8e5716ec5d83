package ports

import (
	"context"
	"time"
)

// LoginState stores the anti-CSRF envelope between redirect and callback.
type LoginState struct {
	Provider    string    `json:"provider"`
	RedirectURI string    `json:"redirect_uri,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LoginStateStore manages temporary login-attempt state. Get returns nil
// without error when the state is unknown or already consumed.
type LoginStateStore interface {
	Put(ctx context.Context, state string, value LoginState, ttl time.Duration) error
	Get(ctx context.Context, state string) (*LoginState, error)
	Delete(ctx context.Context, state string) error
}

// RateLimitStore counts hits per key within a rolling window.
// It is cache-backed so redirect spam never touches the relational store.
type RateLimitStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int, error)
}
