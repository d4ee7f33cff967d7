// Package secrets stores credentials such as the cloud OAuth token. Values
// are encrypted at rest and reads fall back from the local store to a remote
// one and finally to the last value seen in this process.
package secrets

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no store holds the key.
var ErrNotFound = errors.New("secret not found")

// Store reads and writes named secrets.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// KV is a plain key/value backend. storage.SecretStore satisfies it.
type KV interface {
	GetSecret(ctx context.Context, key string) (string, error)
	PutSecret(ctx context.Context, key, value string) error
}

// Well-known keys.
const (
	KeyGoogleOAuthToken = "google_oauth_token"
)
