package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrInvalidCredentials is returned when the auth service rejects an email/password
// pair or a refresh token.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is an issued pair of access and refresh tokens.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (r tokenResponse) session(now time.Time) *Session {
	expiresAt := time.Unix(r.ExpiresAt, 0)
	if r.ExpiresAt == 0 {
		expiresAt = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return &Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt,
		UserID:       r.User.ID,
		Email:        r.User.Email,
	}
}

type authError struct {
	Code             string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e *authError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Code} {
		if s != "" {
			return s
		}
	}
	return ""
}

// AuthClient talks to the Supabase auth (GoTrue) REST API.
type AuthClient struct {
	httpClient *resty.Client
}

func NewAuthClient(supabaseURL, anonKey string) *AuthClient {
	return &AuthClient{
		httpClient: resty.New().
			SetBaseURL(strings.TrimRight(supabaseURL, "/")+"/auth/v1").
			SetTimeout(30*time.Second).
			SetHeaders(map[string]string{
				"apikey":       anonKey,
				"Content-Type": "application/json",
			}),
	}
}

// SignInWithPassword issues a session for an email/password pair.
func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Refresh exchanges a refresh token for a new session.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	return c.token(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

// SignOut revokes the session behind accessToken.
func (c *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetError(&authError{}).
		Post("/logout")
	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("failed to sign out: status %d: %s", res.StatusCode(), errorText(res))
	}
	return nil
}

func (c *AuthClient) token(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	result := &tokenResponse{}
	res, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("grant_type", grantType).
		SetBody(body).
		SetResult(result).
		SetError(&authError{}).
		Post("/token")
	if err != nil {
		return nil, fmt.Errorf("failed to request %s grant: %w", grantType, err)
	}
	if res.StatusCode() == 400 || res.StatusCode() == 401 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, errorText(res))
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to request %s grant: status %d: %s", grantType, res.StatusCode(), errorText(res))
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("failed to request %s grant: response carried no access token", grantType)
	}
	return result.session(time.Now()), nil
}

func errorText(res *resty.Response) string {
	if e, ok := res.Error().(*authError); ok && e.text() != "" {
		return e.text()
	}
	return strings.TrimSpace(res.String())
}
