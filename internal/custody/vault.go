package custody

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"election-engine/internal/election"

	"golang.org/x/crypto/argon2"
)

// Vault holds private key material by reference
type Vault interface {
	Put(ctx context.Context, ref string, secret []byte) error
	Get(ctx context.Context, ref string) ([]byte, error)
}

// SecretStore persists opaque blobs. The repositories package provides the SQL one.
type SecretStore interface {
	PutSecret(ctx context.Context, ref string, sealed []byte) error
	GetSecret(ctx context.Context, ref string) ([]byte, error)
}

// MemoryVault keeps secrets in process memory. Used in tests and single-node development.
type MemoryVault struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{secrets: make(map[string][]byte)}
}

func (v *MemoryVault) Put(_ context.Context, ref string, secret []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.secrets[ref]; exists {
		return errors.New("secret already stored")
	}
	v.secrets[ref] = append([]byte(nil), secret...)
	return nil
}

func (v *MemoryVault) Get(_ context.Context, ref string) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	secret, ok := v.secrets[ref]
	if !ok {
		return nil, fmt.Errorf("secret: %w", election.ErrNotFound)
	}
	return append([]byte(nil), secret...), nil
}

// SealedVault encrypts secrets with AES-256-GCM before handing them to a SecretStore.
type SealedVault struct {
	store SecretStore
	aead  cipher.AEAD
}

// DeriveSealingKey stretches the configured master key with argon2id
func DeriveSealingKey(masterKey, salt []byte) []byte {
	return argon2.IDKey(masterKey, salt, 1, 64*1024, 4, 32)
}

// NewSealedVault derives the sealing key once and wraps store.
func NewSealedVault(store SecretStore, masterKey, salt []byte) (*SealedVault, error) {
	if len(masterKey) == 0 {
		return nil, errors.New("vault master key is required")
	}
	key := DeriveSealingKey(masterKey, salt)
	defer wipe(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SealedVault{store: store, aead: aead}, nil
}

// Put seals secret as nonce||ciphertext. The reference is bound as additional data
// so a sealed blob cannot be replayed under another reference.
func (v *SealedVault) Put(ctx context.Context, ref string, secret []byte) error {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("vault nonce: %w", err)
	}
	sealed := v.aead.Seal(nonce, nonce, secret, []byte(ref))
	return v.store.PutSecret(ctx, ref, sealed)
}

func (v *SealedVault) Get(ctx context.Context, ref string) ([]byte, error) {
	sealed, err := v.store.GetSecret(ctx, ref)
	if err != nil {
		return nil, err
	}
	n := v.aead.NonceSize()
	if len(sealed) < n {
		return nil, fmt.Errorf("%w: sealed secret too short", ErrDecrypt)
	}
	secret, err := v.aead.Open(nil, sealed[:n], sealed[n:], []byte(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return secret, nil
}
