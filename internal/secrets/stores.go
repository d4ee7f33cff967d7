package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"finplan/internal/storage"
)

// EncryptedStore encrypts values before handing them to a KV backend.
type EncryptedStore struct {
	kv     KV
	cipher *Cipher
}

func NewEncryptedStore(kv KV, c *Cipher) *EncryptedStore {
	return &EncryptedStore{kv: kv, cipher: c}
}

func (s *EncryptedStore) Get(ctx context.Context, key string) (string, error) {
	enc, err := s.kv.GetSecret(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return s.cipher.Decrypt(enc)
}

func (s *EncryptedStore) Set(ctx context.Context, key, value string) error {
	enc, err := s.cipher.Encrypt(value)
	if err != nil {
		return fmt.Errorf("encrypt %s: %w", key, err)
	}
	return s.kv.PutSecret(ctx, key, enc)
}

// FileStore maps keys to files, such as the OAuth token file written by
// oauth-init. Unmapped keys are not found.
type FileStore struct {
	paths map[string]string
}

func NewFileStore(paths map[string]string) *FileStore {
	clean := make(map[string]string, len(paths))
	for k, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			clean[k] = p
		}
	}
	return &FileStore{paths: clean}
}

func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	path, ok := s.paths[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	path, ok := s.paths[key]
	if !ok {
		return fmt.Errorf("no file configured for %s", key)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(value), 0o600)
}

// FallbackStore reads Local, then Remote, then the last value seen. A value
// found remotely is copied back to Local. Writes go to Local then Remote; a
// Remote failure is logged and does not fail the write.
type FallbackStore struct {
	Local  Store
	Remote Store

	mu   sync.Mutex
	last map[string]string
}

func NewFallbackStore(local, remote Store) *FallbackStore {
	return &FallbackStore{Local: local, Remote: remote, last: map[string]string{}}
}

func (s *FallbackStore) Get(ctx context.Context, key string) (string, error) {
	if s.Local != nil {
		v, err := s.Local.Get(ctx, key)
		if err == nil {
			s.remember(key, v)
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			slog.WarnContext(ctx, "Local secret store read failed", "key", key, "error", err)
		}
	}

	if s.Remote != nil {
		v, err := s.Remote.Get(ctx, key)
		if err == nil {
			s.remember(key, v)
			if s.Local != nil {
				if err := s.Local.Set(ctx, key, v); err != nil {
					slog.WarnContext(ctx, "Failed to copy remote secret to local store", "key", key, "error", err)
				}
			}
			return v, nil
		}
		if !errors.Is(err, ErrNotFound) {
			slog.WarnContext(ctx, "Remote secret store read failed", "key", key, "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.last[key]; ok {
		slog.WarnContext(ctx, "Using last known secret value", "key", key)
		return v, nil
	}
	return "", fmt.Errorf("%s: %w", key, ErrNotFound)
}

func (s *FallbackStore) Set(ctx context.Context, key, value string) error {
	if s.Local != nil {
		if err := s.Local.Set(ctx, key, value); err != nil {
			return fmt.Errorf("local secret store: %w", err)
		}
	}
	s.remember(key, value)
	if s.Remote != nil {
		if err := s.Remote.Set(ctx, key, value); err != nil {
			slog.WarnContext(ctx, "Remote secret store write failed", "key", key, "error", err)
		}
	}
	return nil
}

func (s *FallbackStore) remember(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = map[string]string{}
	}
	s.last[key] = value
}
