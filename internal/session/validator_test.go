package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"listing-generator/internal/session"
)

const (
	testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"
	testIssuer = "https://abcd.supabase.co/auth/v1"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":  testIssuer,
		"aud":  "authenticated",
		"ref":  "abcd",
		"sub":  "5f1d7c1e-8d7a-4a7e-9f55-3c2b0e6c1a11",
		"role": "authenticated",
		"exp":  fixedNow.Add(time.Hour).Unix(),
	}
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func newValidator() *session.Validator {
	return session.NewValidator(session.Expectation{
		Issuer:     testIssuer,
		ProjectRef: "abcd",
	}, session.WithClock(func() time.Time { return fixedNow }))
}

func TestValidate_Accepts(t *testing.T) {
	claims, err := newValidator().Validate(sign(t, baseClaims()))

	require.NoError(t, err)
	assert.Equal(t, "5f1d7c1e-8d7a-4a7e-9f55-3c2b0e6c1a11", claims.Subject)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestValidate_EachCheckFailsIndependently(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(jwt.MapClaims)
		reason session.Reason
	}{
		{"issuer mismatch", func(c jwt.MapClaims) { c["iss"] = "https://other.supabase.co/auth/v1" }, session.ReasonIssuerMismatch},
		{"audience mismatch", func(c jwt.MapClaims) { c["aud"] = "anon" }, session.ReasonAudienceMismatch},
		{"project ref mismatch", func(c jwt.MapClaims) { c["ref"] = "wxyz" }, session.ReasonAudienceMismatch},
		{"missing subject", func(c jwt.MapClaims) { delete(c, "sub") }, session.ReasonMissingSubject},
		{"anon role", func(c jwt.MapClaims) { c["role"] = "anon" }, session.ReasonInvalidRole},
		{"expired", func(c jwt.MapClaims) { c["exp"] = fixedNow.Add(-time.Minute).Unix() }, session.ReasonExpired},
		{"expires exactly now", func(c jwt.MapClaims) { c["exp"] = fixedNow.Unix() }, session.ReasonExpired},
		{"no expiry", func(c jwt.MapClaims) { delete(c, "exp") }, session.ReasonExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			tt.mutate(claims)

			_, err := newValidator().Validate(sign(t, claims))

			require.Error(t, err)
			assert.True(t, errors.Is(err, session.ErrSessionInvalidated))
			reason, ok := session.ReasonOf(err)
			assert.True(t, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestValidate_ChecksRunInOrder(t *testing.T) {
	claims := baseClaims()
	claims["iss"] = "https://evil.example.com"
	claims["role"] = "anon"
	claims["exp"] = fixedNow.Add(-time.Hour).Unix()

	_, err := newValidator().Validate(sign(t, claims))

	reason, _ := session.ReasonOf(err)
	assert.Equal(t, session.ReasonIssuerMismatch, reason)
}

func TestValidate_Malformed(t *testing.T) {
	_, err := newValidator().Validate("invalid-token")

	reason, ok := session.ReasonOf(err)
	assert.True(t, ok)
	assert.Equal(t, session.ReasonMalformed, reason)
}

func TestVerify_RejectsWrongSecret(t *testing.T) {
	token := sign(t, baseClaims())

	_, err := newValidator().Verify(token, []byte("another-secret-entirely-different-from-the-signer"))

	reason, _ := session.ReasonOf(err)
	assert.Equal(t, session.ReasonInvalidSignature, reason)
}

func TestVerify_RunsClaimChecksAfterSignature(t *testing.T) {
	claims := baseClaims()
	claims["exp"] = fixedNow.Add(-time.Second).Unix()

	_, err := newValidator().Verify(sign(t, claims), []byte(testSecret))

	reason, _ := session.ReasonOf(err)
	assert.Equal(t, session.ReasonExpired, reason)
}

func TestVerify_Accepts(t *testing.T) {
	claims, err := newValidator().Verify(sign(t, baseClaims()), []byte(testSecret))

	require.NoError(t, err)
	assert.Equal(t, "abcd", claims.Ref)
}

func TestIssuerFor(t *testing.T) {
	assert.Equal(t, testIssuer, session.IssuerFor("https://abcd.supabase.co/"))
}
