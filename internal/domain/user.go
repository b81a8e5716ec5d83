package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the local identity linked to exactly one external provider account.
// The (ProviderName, ProviderID) pair is unique; a repeated login with the same
// pair updates the row instead of creating a second identity.
type User struct {
	UserID       uuid.UUID
	Name         string
	Email        string
	ProviderName string
	ProviderID   string
	// AccessToken and RefreshToken are the provider-issued credentials captured
	// at login. AccessToken is never serialized to API consumers.
	AccessToken  string
	RefreshToken *string
	Profile      map[string]any
	NotifyVia    []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ClientName is the deterministic external-system registration key for the user.
func (u User) ClientName() string {
	return u.ProviderName + "-" + u.ProviderID
}

// Client is an OAuth client registration issued for a user, keyed by the
// "{provider_name}-{provider_id}" name so repeated logins reuse one registration.
type Client struct {
	ClientID    uuid.UUID
	UserID      uuid.UUID
	Name        string
	SecretHash  string
	RedirectURI string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DisplayName picks the profile name, falling back to the nickname when blank.
func DisplayName(name, nickname string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return nickname
}
