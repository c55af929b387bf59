// discovery.go -- OIDC issuer discovery for provider endpoints.
package oauth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Endpoints are the provider URLs the authorization-code flow needs.
type Endpoints struct {
	AuthURL     string
	TokenURL    string
	UserinfoURL string
}

// Discover fetches issuer + "/.well-known/openid-configuration" and returns its endpoints.
// Makes an outbound HTTP request; callers bound it with ctx.
func Discover(ctx context.Context, issuer string) (Endpoints, error) {
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return Endpoints{}, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}

	var extra struct {
		UserinfoURL string `json:"userinfo_endpoint"`
	}
	if err := p.Claims(&extra); err != nil {
		return Endpoints{}, fmt.Errorf("reading discovery document: %w", err)
	}

	ep := p.Endpoint()
	return Endpoints{
		AuthURL:     ep.AuthURL,
		TokenURL:    ep.TokenURL,
		UserinfoURL: extra.UserinfoURL,
	}, nil
}

// Fill copies discovered endpoints into cfg wherever cfg has none.
// Explicitly configured URLs always win.
func (e Endpoints) Fill(cfg *LinuxDoConfig) {
	if cfg.AuthURL == "" {
		cfg.AuthURL = e.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = e.TokenURL
	}
	if cfg.UserinfoURL == "" {
		cfg.UserinfoURL = e.UserinfoURL
	}
}
