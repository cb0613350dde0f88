// Package apiclient calls the listing generation service over HTTP.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"listing-generator/internal/generation"
	"listing-generator/internal/listing"
	"listing-generator/internal/session"
)

const (
	generatePath   = "/generate-listing"
	defaultTimeout = 90 * time.Second
)

type generateResponse struct {
	Draft json.RawMessage `json:"draft"`
}

type errorBody struct {
	Error     string          `json:"error"`
	Code      string          `json:"code"`
	Details   json.RawMessage `json:"details"`
	Retryable bool            `json:"retryable"`
}

type Client struct {
	httpClient *resty.Client
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.SetTimeout(timeout) }
}

// New returns a client for the service at baseURL. apiKey is sent as the apikey
// header expected by the Supabase functions gateway.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(defaultTimeout).
			SetHeaders(map[string]string{
				"apikey":       apiKey,
				"Content-Type": "application/json",
				"Accept":       "application/json",
			}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate requests a draft for payload. Failures are *generation.ProviderError,
// or a session.InvalidatedError when the service rejects the credential.
func (c *Client) Generate(ctx context.Context, accessToken string, payload listing.Payload) (listing.Draft, error) {
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(payload).
		Post(generatePath)
	if err != nil {
		return listing.Draft{}, &generation.ProviderError{
			Code:    generation.CodeRequestFailed,
			Status:  http.StatusBadGateway,
			Message: "Listing generation request failed.",
			Details: err.Error(),
		}
	}

	switch {
	case res.StatusCode() == http.StatusUnauthorized:
		return listing.Draft{}, &session.InvalidatedError{
			Reason: session.ReasonRejected,
			Err:    fmt.Errorf("generation service answered 401"),
		}
	case res.IsError():
		return listing.Draft{}, decodeFailure(res.StatusCode(), res.Body())
	}

	var body generateResponse
	if err := json.Unmarshal(res.Body(), &body); err != nil || len(body.Draft) == 0 {
		return listing.Draft{}, invalidDraft("response did not contain a draft")
	}
	draft, err := listing.Parse(body.Draft)
	if err != nil {
		var vErr *listing.ValidationError
		if errors.As(err, &vErr) {
			return listing.Draft{}, invalidDraft(vErr.Issues)
		}
		return listing.Draft{}, invalidDraft(err.Error())
	}
	return draft, nil
}

func invalidDraft(details any) *generation.ProviderError {
	return &generation.ProviderError{
		Code:    generation.CodeInvalidResponse,
		Status:  http.StatusBadGateway,
		Message: "Generation service returned an invalid draft.",
		Details: details,
	}
}

func decodeFailure(status int, raw []byte) *generation.ProviderError {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &generation.ProviderError{
			Code:    generation.CodeRequestFailed,
			Status:  status,
			Message: "Listing generation failed.",
			Details: strings.TrimSpace(string(raw)),
		}
	}

	code := generation.Code(body.Code)
	if code == "" {
		code = generation.CodeRequestFailed
	}
	var details any
	if len(body.Details) > 0 {
		if err := json.Unmarshal(body.Details, &details); err != nil {
			details = string(body.Details)
		}
	}
	return &generation.ProviderError{
		Code:      code,
		Status:    status,
		Retryable: body.Retryable,
		Message:   body.Error,
		Details:   details,
	}
}
