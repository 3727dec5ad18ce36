package securestore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 12
	keySize   = 32
)

// scrypt parameters, interactive-login strength
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// EncryptedFileStore persists entries as AES-256-GCM encrypted files, one
// file per (service, key), under a base directory. The encryption key is
// derived from a passphrase with scrypt using a per-file random salt.
// Writes go through a temp file and rename so a crash mid-write never
// leaves a truncated snapshot behind.
type EncryptedFileStore struct {
	dir        string
	passphrase []byte
}

// NewEncryptedFileStore creates a store rooted at dir
func NewEncryptedFileStore(dir, passphrase string) (*EncryptedFileStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("securestore: passphrase must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("securestore: failed to create dir: %w", err)
	}
	return &EncryptedFileStore{
		dir:        dir,
		passphrase: []byte(passphrase),
	}, nil
}

// Set stores value under (service, key)
func (s *EncryptedFileStore) Set(ctx context.Context, service, key, value string) error {
	blob, err := s.seal([]byte(value))
	if err != nil {
		return err
	}

	dir := s.serviceDir(service)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("securestore: failed to create service dir: %w", err)
	}

	path := s.entryPath(service, key)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("securestore: failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("securestore: failed to write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("securestore: failed to close entry: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("securestore: failed to replace entry: %w", err)
	}
	return nil
}

// Get retrieves the value under (service, key)
func (s *EncryptedFileStore) Get(ctx context.Context, service, key string) (string, error) {
	blob, err := os.ReadFile(s.entryPath(service, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("securestore: failed to read entry: %w", err)
	}

	plain, err := s.open(blob)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Reset removes every key stored under service
func (s *EncryptedFileStore) Reset(ctx context.Context, service string) error {
	if err := os.RemoveAll(s.serviceDir(service)); err != nil {
		return fmt.Errorf("securestore: failed to reset service: %w", err)
	}
	return nil
}

func (s *EncryptedFileStore) serviceDir(service string) string {
	return filepath.Join(s.dir, encodeName(service))
}

func (s *EncryptedFileStore) entryPath(service, key string) string {
	return filepath.Join(s.serviceDir(service), encodeName(key)+".bin")
}

// encodeName makes an arbitrary service or key name filesystem-safe
func encodeName(name string) string {
	return base64.URLEncoding.EncodeToString([]byte(name))
}

// seal encrypts plaintext into salt || nonce || ciphertext
func (s *EncryptedFileStore) seal(plain []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("securestore: failed to generate salt: %w", err)
	}

	aead, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("securestore: failed to generate nonce: %w", err)
	}

	blob := make([]byte, 0, saltSize+nonceSize+len(plain)+aead.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = aead.Seal(blob, nonce, plain, nil)
	return blob, nil
}

// open decrypts a salt || nonce || ciphertext blob
func (s *EncryptedFileStore) open(blob []byte) ([]byte, error) {
	if len(blob) < saltSize+nonceSize {
		return nil, fmt.Errorf("securestore: entry too short")
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	aead, err := s.aead(salt)
	if err != nil {
		return nil, err
	}

	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("securestore: failed to decrypt entry: %w", err)
	}
	return plain, nil
}

func (s *EncryptedFileStore) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("securestore: key derivation failed: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("securestore: cipher init failed: %w", err)
	}

	return cipher.NewGCM(block)
}
