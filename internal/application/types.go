package application

import (
	"github.com/google/uuid"
	"github.com/ikidnapmyself/pp-api/internal/domain"
)

// ThreadPage is a paginated thread listing with the unfiltered total.
type ThreadPage struct {
	Threads  []domain.Thread
	Total    int
	Page     int
	PageSize int
}

// UserPage is a paginated user listing with the unfiltered total.
type UserPage struct {
	Users    []domain.User
	Total    int
	Page     int
	PageSize int
}

// RedirectDirective tells the presentation layer where to send the browser
// and which anti-CSRF state accompanies the attempt.
type RedirectDirective struct {
	AuthorizeURL string `json:"authorize_url"`
	State        string `json:"state"`
}

// ClientInput carries the callback parameters used for client registration.
type ClientInput struct {
	State       string
	RedirectURI string
}

// ClientCredential is the external-system registration for a user. Secret is
// populated only on first issuance; lookups return it blank.
type ClientCredential struct {
	ClientID uuid.UUID `json:"client_id"`
	Name     string    `json:"name"`
	Secret   string    `json:"secret,omitempty"`
}

// TokenPair is the locally issued access/refresh credential pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthResult is the outcome of a completed login callback.
type AuthResult struct {
	User   domain.User
	Client ClientCredential
	Tokens TokenPair
}
