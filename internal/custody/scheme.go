package custody

import (
	"errors"
	"fmt"
	"io"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
	"golang.org/x/crypto/nacl/box"
)

const (
	SchemeNaclBox = "naclbox"
	SchemeECIES   = "ecies"
)

var (
	ErrUnknownScheme = errors.New("custody: unknown encryption scheme")
	ErrInvalidKey    = errors.New("custody: malformed key")
	ErrDecrypt       = errors.New("custody: decryption failed")
)

// Scheme is an asymmetric encryption scheme. Implementations never keep key material.
type Scheme interface {
	Name() string
	GenerateKeyPair(rand io.Reader) (publicKey, privateKey []byte, err error)
	Encrypt(rand io.Reader, publicKey, plaintext []byte) ([]byte, error)
	Decrypt(privateKey, ciphertext []byte) ([]byte, error)
}

// SchemeByName resolves a configured scheme name
func SchemeByName(name string) (Scheme, error) {
	switch strings.ToLower(name) {
	case SchemeNaclBox, "":
		return NaclBox{}, nil
	case SchemeECIES:
		return ECIES{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// NaclBox seals ballots as anonymous Curve25519/XSalsa20-Poly1305 boxes.
// The private key blob is the private key followed by the public key, since
// opening a sealed box needs both.
type NaclBox struct{}

const naclKeySize = 32

func (NaclBox) Name() string { return SchemeNaclBox }

func (NaclBox) GenerateKeyPair(rand io.Reader) ([]byte, []byte, error) {
	pub, priv, err := box.GenerateKey(rand)
	if err != nil {
		return nil, nil, fmt.Errorf("generate curve25519 key: %w", err)
	}
	private := make([]byte, 0, 2*naclKeySize)
	private = append(private, priv[:]...)
	private = append(private, pub[:]...)
	wipe(priv[:])
	return append([]byte(nil), pub[:]...), private, nil
}

func (NaclBox) Encrypt(rand io.Reader, publicKey, plaintext []byte) ([]byte, error) {
	if len(publicKey) != naclKeySize {
		return nil, fmt.Errorf("%w: public key must be %d bytes", ErrInvalidKey, naclKeySize)
	}
	var recipient [naclKeySize]byte
	copy(recipient[:], publicKey)
	return box.SealAnonymous(nil, plaintext, &recipient, rand)
}

func (NaclBox) Decrypt(privateKey, ciphertext []byte) ([]byte, error) {
	if len(privateKey) != 2*naclKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes", ErrInvalidKey, 2*naclKeySize)
	}
	var priv, pub [naclKeySize]byte
	copy(priv[:], privateKey[:naclKeySize])
	copy(pub[:], privateKey[naclKeySize:])
	defer wipe(priv[:])

	out, ok := box.OpenAnonymous(nil, ciphertext, &pub, &priv)
	if !ok {
		return nil, ErrDecrypt
	}
	return out, nil
}

// ECIES encrypts ballots with ECIES over secp256k1 (AES-128-CTR, HMAC-SHA256).
// Public keys are 65-byte uncompressed points, private keys 32-byte scalars.
type ECIES struct{}

func (ECIES) Name() string { return SchemeECIES }

func (ECIES) GenerateKeyPair(rand io.Reader) ([]byte, []byte, error) {
	prv, err := ecies.GenerateKey(rand, ethcrypto.S256(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("generate secp256k1 key: %w", err)
	}
	pub := ethcrypto.FromECDSAPub(prv.PublicKey.ExportECDSA())
	return pub, ethcrypto.FromECDSA(prv.ExportECDSA()), nil
}

func (ECIES) Encrypt(rand io.Reader, publicKey, plaintext []byte) ([]byte, error) {
	pub, err := ethcrypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return ecies.Encrypt(rand, ecies.ImportECDSAPublic(pub), plaintext, nil, nil)
}

func (ECIES) Decrypt(privateKey, ciphertext []byte) ([]byte, error) {
	key, err := ethcrypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	out, err := ecies.ImportECDSA(key).Decrypt(ciphertext, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return out, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
