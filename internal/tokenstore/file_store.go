package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/scrypt"
)

const (
	saltLen = 16

	// scrypt cost parameters. N is modest on purpose: this runs on
	// every Set, not once at login.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// FileStore persists the key-value map as a single JSON file
// encrypted with AES-GCM. The key is derived from a passphrase via
// scrypt; the salt and nonce are stored in the file header.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
	values     map[string]string
}

// NewFileStore opens (or creates) the store at path. A missing file
// is an empty store, not an error.
func NewFileStore(path string, passphrase string) (*FileStore, error) {
	fs := &FileStore{
		path:       path,
		passphrase: []byte(passphrase),
		values:     make(map[string]string),
	}

	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("tokenstore: read %s: %w", path, err)
	}

	plain, err := fs.decrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: decrypt %s: %w", path, err)
	}
	if err := json.Unmarshal(plain, &fs.values); err != nil {
		return nil, fmt.Errorf("tokenstore: parse %s: %w", path, err)
	}

	return fs, nil
}

func (f *FileStore) Get(key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileStore) Set(key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.values[key] = value
	return f.flush()
}

func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.values, key)
	return f.flush()
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, k := range AuthKeys {
		delete(f.values, k)
	}
	return f.flush()
}

// flush writes the encrypted map atomically (temp file + rename).
// Caller holds f.mu.
func (f *FileStore) flush() error {
	plain, err := json.Marshal(f.values)
	if err != nil {
		return err
	}

	blob, err := f.encrypt(plain)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// encrypt produces salt || nonce || ciphertext.
func (f *FileStore) encrypt(plain []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	gcm, err := f.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltLen+len(nonce)+len(plain)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plain, nil), nil
}

func (f *FileStore) decrypt(blob []byte) ([]byte, error) {
	if len(blob) < saltLen {
		return nil, fmt.Errorf("file too short")
	}
	salt := blob[:saltLen]

	gcm, err := f.aead(salt)
	if err != nil {
		return nil, err
	}

	rest := blob[saltLen:]
	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("file too short")
	}
	nonce, ct := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ct, nil)
}

func (f *FileStore) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(f.passphrase, salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
