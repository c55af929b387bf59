// session.go

// Signed session tokens and cookie management.
//
// Sessions are stateless: the fs_session cookie carries an HS256 JWT with the
// user id and admin flag. Nothing is stored server-side, so a token stays valid
// until it expires.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "fs_session"

// DefaultSessionTTL is the validity window of an issued session.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Claim names inside the token.
const (
	claimUserID  = "uid"
	claimIsAdmin = "isAdmin"
)

// ErrMissingSessionSecret is returned by NewSessionCodec when no signing secret is configured.
var ErrMissingSessionSecret = errors.New("session secret not configured")

// Payload is the identity + privilege carried by a session.
// The zero value is an unauthenticated visitor.
type Payload struct {
	UserID  string // empty when not logged in
	IsAdmin bool
}

// Authenticated reports whether the payload names a user.
func (p Payload) Authenticated() bool { return p.UserID != "" }

// SessionCodec signs and verifies session tokens and reads/writes the session cookie.
// Safe for concurrent use.
type SessionCodec struct {
	secret []byte
	secure bool
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionCodec returns a codec signing with secret.
// secure sets the cookie Secure attribute; ttl <= 0 means DefaultSessionTTL.
func NewSessionCodec(secret []byte, secure bool, ttl time.Duration) (*SessionCodec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSessionSecret
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCodec{
		secret: secret,
		secure: secure,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the session validity window.
func (c *SessionCodec) TTL() time.Duration { return c.ttl }

// Encode signs p into a token with iat = now and exp = now + TTL.
// uid is omitted when empty; isAdmin is only written when true.
func (c *SessionCodec) Encode(p Payload) (string, error) {
	now := c.now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(c.ttl).Unix(),
	}
	if p.UserID != "" {
		claims[claimUserID] = p.UserID
	}
	if p.IsAdmin {
		claims[claimIsAdmin] = true
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing session: %w", err)
	}
	return signed, nil
}

// Decode verifies token and returns its payload.
// Fails on anything but a well-formed, unexpired HS256 token signed with our secret.
// A non-string uid is dropped; only a JSON boolean true grants admin.
func (c *SessionCodec) Decode(token string) (Payload, error) {
	parsed, err := jwt.Parse(token,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Payload{}, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Payload{}, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}

	var p Payload
	p.UserID, _ = claims[claimUserID].(string)
	p.IsAdmin, _ = claims[claimIsAdmin].(bool)
	return p, nil
}

// Issue encodes p and writes it to the session cookie with MaxAge matching the TTL.
func (c *SessionCodec) Issue(w http.ResponseWriter, p Payload) error {
	token, err := c.Encode(p)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.ttl.Seconds()),
	})
	return nil
}

// Read returns the session carried by r.
// Absent, malformed, tampered or expired tokens all yield the zero Payload; Read never fails.
func (c *SessionCodec) Read(r *http.Request) Payload {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Payload{}
	}
	p, err := c.Decode(cookie.Value)
	if err != nil {
		logDebug(r, "session token rejected", "error", err)
		return Payload{}
	}
	return p
}

// Clear overwrites the session cookie with MaxAge=-1 to trigger browser deletion.
func (c *SessionCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
