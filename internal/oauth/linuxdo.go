// linuxdo.go -- Linux DO Connect OAuth2 provider implementation.
package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// CallbackPath is where the provider redirects back to, relative to the app base URL.
const CallbackPath = "/linux"

// maxUserinfoBytes caps how much of a userinfo response is read.
const maxUserinfoBytes = 1 << 20

// Candidate claim names, tried in order. Providers disagree on naming.
var (
	idClaims     = []string{"sub", "id", "user_id"}
	nameClaims   = []string{"username", "name", "login"}
	avatarClaims = []string{"avatar_url", "avatar"}
)

// LinuxDoConfig holds everything needed to talk to Linux DO Connect.
// All string fields are required.
type LinuxDoConfig struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserinfoURL  string
	BaseURL      string // public origin of this app, no trailing slash

	// Timeout bounds each outbound call. Zero means 10s.
	Timeout time.Duration
	// HTTPClient is used for token + userinfo calls. Nil means a fresh client.
	HTTPClient *http.Client
}

// LinuxDoProvider implements Provider for Linux DO Connect.
// Client credentials are sent in the token request body, not via basic auth.
type LinuxDoProvider struct {
	config      *oauth2.Config
	userinfoURL string
	timeout     time.Duration
	client      *http.Client
}

// NewLinuxDoProvider validates cfg and returns a ready provider.
// Returns an error wrapping ErrNotConfigured that names every missing setting.
func NewLinuxDoProvider(cfg LinuxDoConfig) (*LinuxDoProvider, error) {
	var missing []string
	for _, f := range []struct{ name, val string }{
		{"client id", cfg.ClientID},
		{"client secret", cfg.ClientSecret},
		{"authorization url", cfg.AuthURL},
		{"token url", cfg.TokenURL},
		{"userinfo url", cfg.UserinfoURL},
		{"base url", cfg.BaseURL},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &LinuxDoProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + CallbackPath,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"openid", "profile"},
		},
		userinfoURL: cfg.UserinfoURL,
		timeout:     timeout,
		client:      client,
	}, nil
}

// Name returns "linuxdo".
func (p *LinuxDoProvider) Name() string { return "linuxdo" }

// RedirectURL returns the callback URI registered with the provider.
func (p *LinuxDoProvider) RedirectURL() string { return p.config.RedirectURL }

// AuthCodeURL builds the consent page URL: response_type=code, client_id, redirect_uri, scope, state.
func (p *LinuxDoProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange POSTs the authorization code to the token endpoint and returns the access token.
// Non-2xx responses are reported with their status and body.
func (p *LinuxDoProvider) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return "", fmt.Errorf("token endpoint returned %d: %s", re.Response.StatusCode, strings.TrimSpace(string(re.Body)))
		}
		return "", fmt.Errorf("exchanging code: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return token.AccessToken, nil
}

// FetchIdentity GETs the userinfo endpoint with a bearer token and extracts the identity.
func (p *LinuxDoProvider) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserinfoBytes))
	if err != nil {
		return nil, fmt.Errorf("reading userinfo: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("userinfo endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing userinfo: %w", err)
	}

	return ExtractIdentity(raw)
}

// ExtractIdentity maps a decoded userinfo object onto Identity using the candidate claim lists.
// The first non-blank candidate wins. Returns ErrIncompleteIdentity if id or username stays empty.
func ExtractIdentity(raw map[string]any) (*Identity, error) {
	id := firstClaim(raw, idClaims)
	name := firstClaim(raw, nameClaims)
	if id == "" || name == "" {
		return nil, ErrIncompleteIdentity
	}
	return &Identity{
		ExternalID:  id,
		DisplayName: name,
		AvatarURL:   firstClaim(raw, avatarClaims),
	}, nil
}

// firstClaim returns the first candidate that holds a non-blank string or number.
func firstClaim(raw map[string]any, keys []string) string {
	for _, k := range keys {
		if s := claimString(raw[k]); s != "" {
			return s
		}
	}
	return ""
}

// claimString renders string and numeric claims; anything else counts as absent.
// Numeric ids come through as json.Number when decoded with UseNumber.
func claimString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
