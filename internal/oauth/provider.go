// provider.go -- OAuth provider interface and shared types.
package oauth

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a provider is missing required client or endpoint settings.
// Treated as a configuration error: login stays disabled until the operator fixes the env.
var ErrNotConfigured = errors.New("oauth provider not configured")

// ErrIncompleteIdentity is returned when the userinfo response has no usable id or username.
// Users are never created with an empty identity key.
var ErrIncompleteIdentity = errors.New("userinfo missing id or username")

// Identity is the remote profile returned by the identity provider.
// AvatarURL is optional -- empty string means not provided.
type Identity struct {
	ExternalID  string // provider-specific stable user ID
	DisplayName string
	AvatarURL   string
}

// Provider is an OAuth2 authorization-code identity provider.
// Implementations bound every outbound call with their own timeout.
type Provider interface {
	// Name returns the provider identifier used in logs.
	Name() string

	// AuthCodeURL returns the provider consent URL with state embedded.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string) (string, error)

	// FetchIdentity loads the remote profile for an access token.
	FetchIdentity(ctx context.Context, accessToken string) (*Identity, error)
}
