package identity_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookverse/borrowledger/core"
	"github.com/bookverse/borrowledger/identity"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func givenClaims(expiresAt time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "reader-1",
		"email": "reader@example.org",
		"name":  "Ada Reader",
		"iss":   "bookverse",
		"exp":   expiresAt.Unix(),
	}
}

func givenHS256Token(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	return token
}

func Test_Parse_Unverified_Reads_Claims(t *testing.T) {
	// arrange
	token := givenHS256Token(t, []byte("whatever"), givenClaims(now.Add(time.Hour)))
	verifier := identity.Verifier{Now: func() time.Time { return now }}

	// act
	id, err := verifier.Parse("Bearer " + token)

	// assert
	require.NoError(t, err)
	assert.Equal(t, "reader-1", id.BorrowerID())
	assert.Equal(t, "reader@example.org", id.Email)
	assert.Equal(t, "Ada Reader", id.Name)
	assert.Equal(t, token, id.Token)
	assert.True(t, id.Authenticated(now))
	assert.False(t, id.Authenticated(now.Add(2*time.Hour)))
}

func Test_Parse_Expired_Token_Is_Unauthenticated(t *testing.T) {
	token := givenHS256Token(t, []byte("whatever"), givenClaims(now.Add(-time.Minute)))

	_, err := identity.Verifier{Now: func() time.Time { return now }}.Parse(token)

	assert.ErrorIs(t, err, core.ErrUnauthenticated)
	assert.ErrorIs(t, err, identity.ErrTokenExpired)
}

func Test_Parse_Verifies_HMAC_Signature(t *testing.T) {
	token := givenHS256Token(t, []byte("wrong-secret"), givenClaims(now.Add(time.Hour)))
	verifier := identity.Verifier{HMACSecret: []byte("right-secret"), Now: func() time.Time { return now }}

	_, err := verifier.Parse(token)

	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func Test_Parse_Verifies_Ed25519_Signature(t *testing.T) {
	// arrange
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, givenClaims(now.Add(time.Hour))).SignedString(privateKey)
	require.NoError(t, err)
	verifier := identity.Verifier{Ed25519Key: publicKey, Issuer: "bookverse", Now: func() time.Time { return now }}

	// act
	id, parseErr := verifier.Parse(token)

	// assert
	require.NoError(t, parseErr)
	assert.Equal(t, "reader-1", id.Subject)
}

func Test_Parse_Rejects_Foreign_Issuer(t *testing.T) {
	token := givenHS256Token(t, []byte("s"), givenClaims(now.Add(time.Hour)))

	_, err := identity.Verifier{Issuer: "someone-else", Now: func() time.Time { return now }}.Parse(token)

	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func Test_Sources(t *testing.T) {
	_, err := identity.Anonymous{}.Current(t.Context())
	assert.ErrorIs(t, err, core.ErrUnauthenticated)

	_, err = identity.StaticSource{}.Current(t.Context())
	assert.ErrorIs(t, err, identity.ErrMissingToken)

	token := givenHS256Token(t, []byte("s"), givenClaims(now.Add(time.Hour)))
	id, err := identity.StaticSource{Token: token, Verifier: identity.Verifier{Now: func() time.Time { return now }}}.Current(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "reader-1", id.BorrowerID())
}
