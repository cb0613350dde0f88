// Package localstate keeps the command-line client's state in a local SQLite file:
// plain key/value entries for drafts and encrypted entries for session tokens.
package localstate

import (
	"context"
	"crypto/cipher"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrPassphraseMismatch is returned by Open when the passphrase differs from the one
// the database was created with.
var ErrPassphraseMismatch = errors.New("state passphrase does not match")

const verifierPlaintext = "listing-generator"

// Store is a SQLite-backed key/value store.
type Store struct {
	db   *sql.DB
	aead cipher.AEAD
	mu   sync.RWMutex
}

// Open opens or creates the state database at path. Secrets are sealed with a key
// derived from passphrase.
func Open(path, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("state passphrase is required")
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(passphrase); err != nil {
		db.Close()
		return nil, err
	}

	if err := os.Chmod(path, 0600); err != nil && !os.IsNotExist(err) {
		db.Close()
		return nil, fmt.Errorf("failed to restrict state file permissions: %w", err)
	}
	return s, nil
}

func (s *Store) init(passphrase string) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		name TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS secrets (
		key TEXT PRIMARY KEY,
		ciphertext TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	var salt []byte
	err := s.db.QueryRow("SELECT value FROM meta WHERE name = 'salt'").Scan(&salt)
	fresh := errors.Is(err, sql.ErrNoRows)
	if fresh {
		if salt, err = newSalt(); err != nil {
			return err
		}
		if _, err := s.db.Exec("INSERT INTO meta (name, value) VALUES ('salt', ?)", salt); err != nil {
			return fmt.Errorf("failed to store salt: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to read salt: %w", err)
	}

	aead, err := newAEAD(deriveKey(passphrase, salt))
	if err != nil {
		return err
	}
	s.aead = aead

	if fresh {
		verifier, err := seal(aead, []byte(verifierPlaintext), []byte("verifier"))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec("INSERT INTO meta (name, value) VALUES ('verifier', ?)", verifier); err != nil {
			return fmt.Errorf("failed to store verifier: %w", err)
		}
		return nil
	}

	var verifier string
	if err := s.db.QueryRow("SELECT value FROM meta WHERE name = 'verifier'").Scan(&verifier); err != nil {
		return fmt.Errorf("failed to read verifier: %w", err)
	}
	if _, err := open(aead, verifier, []byte("verifier")); err != nil {
		return ErrPassphraseMismatch
	}
	return nil
}

// Get returns the value stored under key. found is false when the key is absent.
func (s *Store) Get(ctx context.Context, key string) (value string, found bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRowContext(ctx, "SELECT value FROM entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// GetSecret decrypts the secret stored under key.
func (s *Store) GetSecret(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ciphertext string
	err := s.db.QueryRowContext(ctx, "SELECT ciphertext FROM secrets WHERE key = ?", key).Scan(&ciphertext)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read secret %s: %w", key, err)
	}

	plaintext, err := open(s.aead, ciphertext, []byte(key))
	if err != nil {
		return nil, false, fmt.Errorf("failed to open secret %s: %w", key, err)
	}
	return plaintext, true, nil
}

// SetSecret encrypts and stores value under key. The key is bound to the ciphertext.
func (s *Store) SetSecret(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ciphertext, err := seal(s.aead, value, []byte(key))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO secrets (key, ciphertext, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			ciphertext = excluded.ciphertext,
			updated_at = excluded.updated_at
	`, key, ciphertext)
	if err != nil {
		return fmt.Errorf("failed to write secret %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteSecret(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM secrets WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete secret %s: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
