// Package custody generates election key pairs, keeps the private halves in a
// vault and performs encryption and decryption on behalf of the engine.
// Private key bytes never leave this package.
package custody

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Custodian is the secret-custody collaborator
type Custodian struct {
	scheme Scheme
	vault  Vault
	rand   io.Reader
	newRef func() string
}

// Option configures a Custodian
type Option func(*Custodian)

// WithRandom replaces the entropy source
func WithRandom(r io.Reader) Option {
	return func(c *Custodian) { c.rand = r }
}

// WithRefGenerator replaces the private key reference generator
func WithRefGenerator(fn func() string) Option {
	return func(c *Custodian) { c.newRef = fn }
}

func New(scheme Scheme, vault Vault, opts ...Option) *Custodian {
	c := &Custodian{
		scheme: scheme,
		vault:  vault,
		rand:   rand.Reader,
		newRef: func() string { return "key_" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SchemeName returns the name of the scheme keys are generated with
func (c *Custodian) SchemeName() string {
	return c.scheme.Name()
}

// GenerateKeyPair creates a key pair, stores the private key and returns the
// public key together with the reference to the stored private key.
func (c *Custodian) GenerateKeyPair(ctx context.Context) ([]byte, string, error) {
	pub, priv, err := c.scheme.GenerateKeyPair(c.rand)
	if err != nil {
		return nil, "", err
	}
	defer wipe(priv)

	ref := c.newRef()
	if err := c.vault.Put(ctx, ref, priv); err != nil {
		return nil, "", fmt.Errorf("store private key: %w", err)
	}
	return pub, ref, nil
}

// Encrypt seals payload for the holder of publicKey
func (c *Custodian) Encrypt(publicKey, payload []byte) ([]byte, error) {
	return c.scheme.Encrypt(c.rand, publicKey, payload)
}

// Decrypt opens ciphertext with the private key stored under privateKeyRef
func (c *Custodian) Decrypt(ctx context.Context, privateKeyRef string, ciphertext []byte) ([]byte, error) {
	priv, err := c.vault.Get(ctx, privateKeyRef)
	if err != nil {
		// flattened: vault failures must not match election.ErrNotFound
		return nil, fmt.Errorf("%w: load private key: %v", ErrDecrypt, err)
	}
	defer wipe(priv)
	return c.scheme.Decrypt(priv, ciphertext)
}
