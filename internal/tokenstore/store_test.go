package tokenstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemStore_RoundTrip(t *testing.T) {
	s := NewMemStore()

	_, err := s.Get(KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Set(KeyAccessToken, "a1"))
	v, err := s.Get(KeyAccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "a1", v)

	assert.NoError(t, s.Delete(KeyAccessToken))
	_, err = s.Get(KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemStore_ClearRemovesAuthKeysOnly(t *testing.T) {
	s := NewMemStore()
	for _, k := range AuthKeys {
		assert.NoError(t, s.Set(k, "x"))
	}
	assert.NoError(t, s.Set(KeyCartCache, "[]"))

	assert.NoError(t, s.Clear())

	for _, k := range AuthKeys {
		_, err := s.Get(k)
		assert.ErrorIs(t, err, ErrNotFound, k)
	}
	// the cart cache is not an auth key
	v, err := s.Get(KeyCartCache)
	assert.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.enc")

	s1, err := NewFileStore(path, "passphrase")
	assert.NoError(t, err)
	assert.NoError(t, s1.Set(KeyAccessToken, "a1"))
	assert.NoError(t, s1.Set(KeyUsername, "alice"))

	s2, err := NewFileStore(path, "passphrase")
	assert.NoError(t, err)

	v, err := s2.Get(KeyAccessToken)
	assert.NoError(t, err)
	assert.Equal(t, "a1", v)
	assert.Equal(t, "alice", GetOr(s2, KeyUsername, ""))
}

func TestFileStore_MissingFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.enc")

	s, err := NewFileStore(path, "passphrase")
	assert.NoError(t, err)
	_, err = s.Get(KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_WrongPassphraseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.enc")

	s1, err := NewFileStore(path, "right")
	assert.NoError(t, err)
	assert.NoError(t, s1.Set(KeyAccessToken, "a1"))

	_, err = NewFileStore(path, "wrong")
	assert.Error(t, err)
}

func TestFileStore_FileIsNotPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.enc")

	s, err := NewFileStore(path, "passphrase")
	assert.NoError(t, err)
	assert.NoError(t, s.Set(KeyAccessToken, "super-secret-token"))

	blob, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.NotContains(t, string(blob), "super-secret-token")
}

func TestFileStore_Clear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.enc")

	s, err := NewFileStore(path, "passphrase")
	assert.NoError(t, err)
	assert.NoError(t, s.Set(KeyAccessToken, "a1"))
	assert.NoError(t, s.Set(KeyCartCache, "[]"))

	assert.NoError(t, s.Clear())

	_, err = s.Get(KeyAccessToken)
	assert.ErrorIs(t, err, ErrNotFound)
	v, err := s.Get(KeyCartCache)
	assert.NoError(t, err)
	assert.Equal(t, "[]", v)
}
