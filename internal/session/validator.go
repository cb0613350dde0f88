package session

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Reason records which claim check rejected a credential. It is for logs only;
// callers treat every reason as ErrSessionInvalidated.
type Reason string

const (
	ReasonMalformed        Reason = "malformed"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonIssuerMismatch   Reason = "issuer_mismatch"
	ReasonAudienceMismatch Reason = "audience_mismatch"
	ReasonMissingSubject   Reason = "missing_subject"
	ReasonInvalidRole      Reason = "invalid_role"
	ReasonExpired          Reason = "expired"

	// Raised by clients rather than the validator: no stored credential, or the
	// service answered 401 to a credential that passed local checks.
	ReasonMissingSession Reason = "missing_session"
	ReasonRejected       Reason = "rejected"
)

const (
	AuthenticatedRole = "authenticated"
	DefaultAudience   = "authenticated"
)

var ErrSessionInvalidated = errors.New("session invalidated")

type InvalidatedError struct {
	Reason Reason
	Err    error
}

func (e *InvalidatedError) Error() string {
	if e.Err != nil {
		return "session invalidated: " + string(e.Reason) + ": " + e.Err.Error()
	}
	return "session invalidated: " + string(e.Reason)
}

func (e *InvalidatedError) Is(target error) bool {
	return target == ErrSessionInvalidated
}

func (e *InvalidatedError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the rejection reason from an error chain.
func ReasonOf(err error) (Reason, bool) {
	var invalid *InvalidatedError
	if errors.As(err, &invalid) {
		return invalid.Reason, true
	}
	return "", false
}

func invalidate(reason Reason, err error) error {
	return &InvalidatedError{Reason: reason, Err: err}
}

// Claims are the Supabase access token claims the generator relies on.
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Ref   string `json:"ref,omitempty"`
	Email string `json:"email,omitempty"`
}

// Expectation describes the authority a credential must come from.
// ProjectRef is only compared when set.
type Expectation struct {
	Issuer     string
	Audience   string
	ProjectRef string
	Role       string
}

// IssuerFor returns the GoTrue issuer URL for a Supabase project URL.
func IssuerFor(supabaseURL string) string {
	return strings.TrimRight(supabaseURL, "/") + "/auth/v1"
}

type Validator struct {
	expect Expectation
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Validator)

// WithClock overrides the time source used for the expiry check.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		v.now = now
	}
}

func NewValidator(expect Expectation, opts ...Option) *Validator {
	if expect.Audience == "" {
		expect.Audience = DefaultAudience
	}
	if expect.Role == "" {
		expect.Role = AuthenticatedRole
	}

	v := &Validator{
		expect: expect,
		now:    time.Now,
		parser: jwt.NewParser(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate decodes a credential without verifying its signature and runs the claim checks.
// Clients use it before privileged calls; the backend verifies separately.
func (v *Validator) Validate(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := v.parser.ParseUnverified(token, claims); err != nil {
		return nil, invalidate(ReasonMalformed, err)
	}
	if err := v.Check(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Verify checks the HS256 signature with the project secret, then runs the claim checks.
func (v *Validator) Verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if len(secret) == 0 {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, invalidate(ReasonMalformed, err)
		}
		return nil, invalidate(ReasonInvalidSignature, err)
	}
	if err := v.Check(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Check applies the claim rules in order and stops at the first failure.
func (v *Validator) Check(c *Claims) error {
	if c.Issuer != v.expect.Issuer {
		return invalidate(ReasonIssuerMismatch, nil)
	}
	if !slices.Contains(c.Audience, v.expect.Audience) {
		return invalidate(ReasonAudienceMismatch, nil)
	}
	if v.expect.ProjectRef != "" && c.Ref != v.expect.ProjectRef {
		return invalidate(ReasonAudienceMismatch, nil)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return invalidate(ReasonMissingSubject, nil)
	}
	if c.Role != v.expect.Role {
		return invalidate(ReasonInvalidRole, nil)
	}
	if c.ExpiresAt == nil || !v.now().Before(c.ExpiresAt.Time) {
		return invalidate(ReasonExpired, nil)
	}
	return nil
}
