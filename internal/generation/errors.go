package generation

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

// Code classifies a failed generation for clients.
type Code string

const (
	CodeQuotaExceeded   Code = "QUOTA_EXCEEDED"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeRequestFailed   Code = "REQUEST_FAILED"
	CodeInvalidResponse Code = "INVALID_RESPONSE"
)

const (
	maxDetailsLength = 500
	noDetails        = "No error details were provided."
)

// ProviderError is the only error type Generate returns.
// Details is a string for provider failures and a list of issues for invalid payloads.
type ProviderError struct {
	Code      Code
	Status    int
	Retryable bool
	Message   string
	Details   any
}

func (e *ProviderError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Code, e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// CallError is how a Provider reports an HTTP-level failure from the AI backend.
type CallError struct {
	Status  int
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("provider call failed with status %d: %s", e.Status, e.Message)
}

// describeCallError returns the status and bounded diagnostic text of a failed call.
// Errors that are not a *CallError have status 0.
func describeCallError(err error) (int, string) {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Status, truncateDetails(callErr.Message)
	}
	return 0, truncateDetails(err.Error())
}

func truncateDetails(details string) string {
	details = strings.TrimSpace(details)
	if details == "" {
		return noDetails
	}
	if utf8.RuneCountInString(details) <= maxDetailsLength {
		return details
	}
	return string([]rune(details)[:maxDetailsLength])
}

// ClassificationRule maps a failed provider call to a client-facing error.
// A rule matches when the call status is listed in Statuses or Pattern matches the details.
type ClassificationRule struct {
	Pattern   *regexp.Regexp
	Statuses  []int
	Code      Code
	Status    int
	Retryable bool
	Message   string
}

func (r ClassificationRule) Matches(status int, details string) bool {
	if slices.Contains(r.Statuses, status) {
		return true
	}
	return r.Pattern != nil && r.Pattern.MatchString(details)
}

// Rules is evaluated in order; the first matching rule wins.
type Rules []ClassificationRule

// DefaultRules checks rate-limit phrasing before quota signals, since a
// resource exhaustion response also carries status 429.
func DefaultRules() Rules {
	return Rules{
		{
			Pattern:   regexp.MustCompile(`(?i)rate limit|too many requests|resource_exhausted`),
			Code:      CodeRateLimited,
			Status:    http.StatusTooManyRequests,
			Retryable: true,
			Message:   "AI provider rate-limited the request. Please retry in a moment.",
		},
		{
			Pattern:   regexp.MustCompile(`(?i)quota exceeded|free_tier_requests|billing details|limit:\s*0`),
			Statuses:  []int{http.StatusTooManyRequests},
			Code:      CodeQuotaExceeded,
			Status:    http.StatusTooManyRequests,
			Retryable: true,
			Message:   "AI provider quota exceeded. Please try again later.",
		},
	}
}

// Classify returns the first matching rule's error, or REQUEST_FAILED when none match.
func (rs Rules) Classify(status int, details string) *ProviderError {
	for _, rule := range rs {
		if rule.Matches(status, details) {
			return &ProviderError{
				Code:      rule.Code,
				Status:    rule.Status,
				Retryable: rule.Retryable,
				Message:   rule.Message,
				Details:   details,
			}
		}
	}
	return &ProviderError{
		Code:    CodeRequestFailed,
		Status:  http.StatusBadGateway,
		Message: "AI provider request failed.",
		Details: details,
	}
}

// DefaultSchemaRejectionPatterns match provider complaints about the structured output schema.
var DefaultSchemaRejectionPatterns = []string{
	`response[_ ]?json[_ ]?schema`,
	`response[_ ]?schema`,
	`invalid json payload`,
	`unknown name`,
}

// SchemaRejection decides whether a failed call should be retried without a schema.
type SchemaRejection struct {
	status   int
	patterns []*regexp.Regexp
}

// NewSchemaRejection compiles case-insensitive patterns that apply to 400 responses.
func NewSchemaRejection(patterns []string) (*SchemaRejection, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid schema rejection pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return &SchemaRejection{status: http.StatusBadRequest, patterns: compiled}, nil
}

func (s *SchemaRejection) Matches(status int, details string) bool {
	if s == nil || status != s.status {
		return false
	}
	for _, re := range s.patterns {
		if re.MatchString(details) {
			return true
		}
	}
	return false
}
