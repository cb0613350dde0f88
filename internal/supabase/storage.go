package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	storage "github.com/supabase-community/storage-go"
	"listing-generator/internal/session"
)

// DefaultBucket holds uploaded generation inputs.
const DefaultBucket = "listing-inputs"

// authRejection matches storage API failures caused by the caller's credential, as
// opposed to bucket, policy or transport failures.
var authRejection = regexp.MustCompile(`(?i)\bjwt\b|unauthorized|invalid signature|invalid token`)

// TokenSource supplies the signed-in user's access token.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// StorageClient uploads objects as the signed-in user.
type StorageClient struct {
	baseURL string
	anonKey string
	bucket  string
	tokens  TokenSource
}

func NewStorageClient(supabaseURL, anonKey, bucket string, tokens TokenSource) *StorageClient {
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &StorageClient{
		baseURL: strings.TrimRight(supabaseURL, "/"),
		anonKey: anonKey,
		bucket:  bucket,
		tokens:  tokens,
	}
}

// Upload stores data at path without overwriting and returns its public URL.
func (s *StorageClient) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return "", &session.InvalidatedError{Reason: session.ReasonMissingSession, Err: err}
		}
		return "", fmt.Errorf("failed to get access token: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := storage.NewClient(s.baseURL+"/storage/v1", token, map[string]string{"apikey": s.anonKey})
	upsert := false
	_, err = client.UploadFile(s.bucket, path, bytes.NewReader(data), storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", uploadError(err)
	}

	return s.PublicURL(path), nil
}

func (s *StorageClient) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, path)
}

// uploadError reports a rejected credential as a session invalidation so callers
// sign the user out instead of showing an upload failure.
func uploadError(err error) error {
	if authRejection.MatchString(err.Error()) {
		return &session.InvalidatedError{Reason: session.ReasonRejected, Err: err}
	}
	return fmt.Errorf("failed to upload file: %w", err)
}
