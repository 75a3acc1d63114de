// Package identity turns the bearer token issued by the identity provider into the authenticated
// user the ledger acts for. Token issuance and refresh stay with the provider.
package identity

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bookverse/borrowledger/core"
)

var (
	ErrMissingToken = errors.New("no token")
	ErrTokenExpired = errors.New("token is expired")
	ErrNoSubject    = errors.New("token has neither subject nor email")
)

// Identity is an authenticated user together with the token to present to the API.
type Identity struct {
	Subject   core.BorrowerIDString
	Email     string
	Name      string
	Token     string
	ExpiresAt time.Time
}

// BorrowerID is the identity loans are recorded under.
func (i Identity) BorrowerID() core.BorrowerIDString {
	if i.Subject != "" {
		return i.Subject
	}

	return i.Email
}

// Authenticated reports whether the identity can be used at now.
func (i Identity) Authenticated(now time.Time) bool {
	return i.Token != "" && i.BorrowerID() != "" && (i.ExpiresAt.IsZero() || i.ExpiresAt.After(now))
}

type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Verifier reads identities from tokens. Without a key it only decodes the claims and leaves
// signature checks to the API, which is enough for a client deciding what to offer.
type Verifier struct {
	Ed25519Key ed25519.PublicKey
	HMACSecret []byte
	Issuer     string
	Now        func() time.Time
}

// Parse returns the Identity carried by token. All failures wrap core.ErrUnauthenticated.
func (v Verifier) Parse(token string) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Identity{}, errors.Join(core.ErrUnauthenticated, ErrMissingToken)
	}

	parsed := claims{}

	if err := v.parseInto(token, &parsed); err != nil {
		return Identity{}, errors.Join(core.ErrUnauthenticated, err)
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	identity := Identity{
		Subject: parsed.Subject,
		Email:   parsed.Email,
		Name:    parsed.Name,
		Token:   token,
	}

	if parsed.ExpiresAt != nil {
		identity.ExpiresAt = parsed.ExpiresAt.Time.UTC()
		if !identity.ExpiresAt.After(now().UTC()) {
			return Identity{}, errors.Join(core.ErrUnauthenticated, ErrTokenExpired)
		}
	}

	if v.Issuer != "" && parsed.Issuer != v.Issuer {
		return Identity{}, errors.Join(core.ErrUnauthenticated, fmt.Errorf("unexpected issuer %q", parsed.Issuer))
	}

	if identity.BorrowerID() == "" {
		return Identity{}, errors.Join(core.ErrUnauthenticated, ErrNoSubject)
	}

	return identity, nil
}

func (v Verifier) parseInto(token string, parsed *claims) error {
	switch {
	case len(v.Ed25519Key) == ed25519.PublicKeySize:
		_, err := jwt.ParseWithClaims(token, parsed, func(*jwt.Token) (any, error) {
			return v.Ed25519Key, nil
		}, jwt.WithValidMethods([]string{"EdDSA"}), jwt.WithoutClaimsValidation())

		return err

	case len(v.HMACSecret) > 0:
		_, err := jwt.ParseWithClaims(token, parsed, func(*jwt.Token) (any, error) {
			return v.HMACSecret, nil
		}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}), jwt.WithoutClaimsValidation())

		return err

	default:
		_, _, err := jwt.NewParser().ParseUnverified(token, parsed)

		return err
	}
}

// Source supplies the identity of the current user.
type Source interface {
	Current(ctx context.Context) (Identity, error)
}

// StaticSource holds one token, e.g. from the environment or a CLI flag. The token is parsed on
// every call so expiry is noticed.
type StaticSource struct {
	Token    string
	Verifier Verifier
}

func (s StaticSource) Current(_ context.Context) (Identity, error) {
	return s.Verifier.Parse(s.Token)
}

// Anonymous is a Source without a user.
type Anonymous struct{}

func (Anonymous) Current(_ context.Context) (Identity, error) {
	return Identity{}, errors.Join(core.ErrUnauthenticated, ErrMissingToken)
}
