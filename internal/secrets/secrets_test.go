package secrets

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"finplan/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher("correct horse battery staple")
	require.NoError(t, err)

	a, err := c.Encrypt(`{"access_token":"x"}`)
	require.NoError(t, err)
	b, err := c.Encrypt(`{"access_token":"x"}`)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must differ between seals")
	assert.NotContains(t, a, "access_token")

	plain, err := c.Decrypt(a)
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"x"}`, plain)

	other, err := NewCipher("another key")
	require.NoError(t, err)
	_, err = other.Decrypt(a)
	assert.Error(t, err)

	_, err = c.Decrypt("AAAA")
	assert.Error(t, err)
}

func TestNewCipherRequiresKey(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}

func TestEncryptedStore(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	c, err := NewCipher("k")
	require.NoError(t, err)
	s := NewEncryptedStore(kv, c)

	_, err = s.Get(ctx, "token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "token", "secret-value"))
	raw, err := kv.GetSecret(ctx, "token")
	require.NoError(t, err)
	assert.False(t, strings.Contains(raw, "secret-value"))

	v, err := s.Get(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, "secret-value", v)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	s := NewFileStore(map[string]string{KeyGoogleOAuthToken: path, "blank": " "})

	_, err := s.Get(ctx, KeyGoogleOAuthToken)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "blank")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyGoogleOAuthToken, "tok\n"))
	v, err := s.Get(ctx, KeyGoogleOAuthToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	assert.Error(t, s.Set(ctx, "unmapped", "x"))
}

// mapStore is a Store that can be told to fail.
type mapStore struct {
	values map[string]string
	err    error
	writes int
}

func newMapStore() *mapStore { return &mapStore{values: map[string]string{}} }

func (m *mapStore) Get(_ context.Context, key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *mapStore) Set(_ context.Context, key, value string) error {
	if m.err != nil {
		return m.err
	}
	m.writes++
	m.values[key] = value
	return nil
}

func TestFallbackStoreReadOrder(t *testing.T) {
	ctx := context.Background()
	local, remote := newMapStore(), newMapStore()
	s := NewFallbackStore(local, remote)

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	remote.values["k"] = "from-remote"
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from-remote", v)
	assert.Equal(t, "from-remote", local.values["k"], "remote value is copied to local")

	local.values["k"] = "from-local"
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from-local", v)

	down := errors.New("unreachable")
	local.err, remote.err = down, down
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from-local", v, "last known value is served when both stores fail")
}

func TestFallbackStoreWrites(t *testing.T) {
	ctx := context.Background()
	local, remote := newMapStore(), newMapStore()
	s := NewFallbackStore(local, remote)

	require.NoError(t, s.Set(ctx, "k", "v1"))
	assert.Equal(t, "v1", local.values["k"])
	assert.Equal(t, "v1", remote.values["k"])

	remote.err = errors.New("offline")
	require.NoError(t, s.Set(ctx, "k", "v2"), "remote failure must not fail the write")
	assert.Equal(t, "v2", local.values["k"])

	local.err = errors.New("disk full")
	assert.Error(t, s.Set(ctx, "k", "v3"))
}
