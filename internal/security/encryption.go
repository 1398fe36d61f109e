package security

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/boswellbenjamin/migrainauts/internal/repository"
)

// Encryptor handles AES-256-GCM encryption of persisted health data
type Encryptor struct {
	gcm cipher.AEAD
}

// NewEncryptor creates a new encryptor with a 32-byte key for AES-256
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d bytes", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Encryptor{gcm: gcm}, nil
}

// Seal encrypts plaintext and prefixes the random nonce.
// The key is bound as additional data so a value cannot be replayed under another key.
func (e *Encryptor) Seal(key string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return e.gcm.Seal(nonce, nonce, plaintext, []byte(key)), nil
}

// Open reverses Seal
func (e *Encryptor) Open(key string, sealed []byte) ([]byte, error) {
	nonceSize := e.gcm.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// EncryptedStore encrypts values on their way into a KeyValueStore
type EncryptedStore struct {
	inner     repository.KeyValueStore
	encryptor *Encryptor
}

// NewEncryptedStore wraps inner so every stored value is sealed
func NewEncryptedStore(inner repository.KeyValueStore, encryptor *Encryptor) *EncryptedStore {
	return &EncryptedStore{
		inner:     inner,
		encryptor: encryptor,
	}
}

func (s *EncryptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.encryptor.Open(key, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt value for %s: %w", key, err)
	}
	return plaintext, nil
}

func (s *EncryptedStore) Put(ctx context.Context, key string, value []byte) error {
	sealed, err := s.encryptor.Seal(key, value)
	if err != nil {
		return fmt.Errorf("failed to encrypt value for %s: %w", key, err)
	}
	return s.inner.Put(ctx, key, sealed)
}

func (s *EncryptedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

var _ repository.KeyValueStore = (*EncryptedStore)(nil)
