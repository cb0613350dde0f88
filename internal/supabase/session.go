package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrNoSession is returned when nobody is signed in.
var ErrNoSession = errors.New("no active session")

const sessionSecretKey = "supabase-session"

// SecretStore persists small encrypted values.
type SecretStore interface {
	GetSecret(ctx context.Context, key string) ([]byte, bool, error)
	SetSecret(ctx context.Context, key string, value []byte) error
	DeleteSecret(ctx context.Context, key string) error
}

// SessionManager keeps the signed-in session in a SecretStore and rotates it through
// the auth service.
type SessionManager struct {
	auth  *AuthClient
	store SecretStore
	mu    sync.Mutex
}

func NewSessionManager(auth *AuthClient, store SecretStore) *SessionManager {
	return &SessionManager{auth: auth, store: store}
}

func (m *SessionManager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	session, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Current returns the stored access token.
func (m *SessionManager) Current(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

// AccessToken is Current under the name storage and database adapters expect.
func (m *SessionManager) AccessToken(ctx context.Context) (string, error) {
	return m.Current(ctx)
}

// Refresh rotates the stored session and returns the new access token.
func (m *SessionManager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.load(ctx)
	if err != nil {
		return "", err
	}
	if session.RefreshToken == "" {
		return "", fmt.Errorf("failed to refresh session: %w", ErrNoSession)
	}

	refreshed, err := m.auth.Refresh(ctx, session.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh session: %w", err)
	}
	if err := m.save(ctx, refreshed); err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// SignOut revokes the session remotely when possible and always forgets it locally.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.load(ctx)
	if err == nil {
		if err := m.auth.SignOut(ctx, session.AccessToken); err != nil {
			log.Warn().Err(err).Msg("remote sign-out failed, clearing local session")
		}
	} else if !errors.Is(err, ErrNoSession) {
		log.Warn().Err(err).Msg("could not read local session before sign-out")
	}

	if err := m.store.DeleteSecret(ctx, sessionSecretKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (m *SessionManager) load(ctx context.Context) (*Session, error) {
	raw, found, err := m.store.GetSecret(ctx, sessionSecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !found {
		return nil, ErrNoSession
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &session, nil
}

func (m *SessionManager) save(ctx context.Context, session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.store.SetSecret(ctx, sessionSecretKey, raw); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}
