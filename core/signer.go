package core

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// Signer produces signatures on behalf of a single account.
type Signer interface {
	Address() string
	Sign(msg []byte) ([]byte, error)
}

// Verifier checks that sig over msg was produced by address.
type Verifier interface {
	Verify(address string, msg, sig []byte) error
}

// Ed25519Signer signs with an ed25519 private key. Its address is the
// hex-encoded public key.
type Ed25519Signer struct {
	priv ed25519.PrivateKey
}

// NewEd25519Signer wraps an existing private key.
func NewEd25519Signer(priv ed25519.PrivateKey) (*Ed25519Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.New("invalid Ed25519 private key size")
	}
	return &Ed25519Signer{priv: priv}, nil
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner() (*Ed25519Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Ed25519Signer{priv: priv}, nil
}

func (s *Ed25519Signer) Address() string {
	return AddressFromPublicKey(s.PublicKey())
}

func (s *Ed25519Signer) PublicKey() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

func (s *Ed25519Signer) PrivateKey() ed25519.PrivateKey {
	return s.priv
}

func (s *Ed25519Signer) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(s.priv, msg), nil
}

// AddressFromPublicKey encodes an ed25519 public key as an account address.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	return hex.EncodeToString(pub)
}

// Ed25519Verifier verifies signatures whose address is a hex ed25519 public key.
type Ed25519Verifier struct{}

func (Ed25519Verifier) Verify(address string, msg, sig []byte) error {
	if len(sig) == 0 {
		return fmt.Errorf("%w: missing signature", ErrInvalidSignature)
	}
	pub, err := hex.DecodeString(address)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: address %q is not an ed25519 public key", ErrInvalidSignature, address)
	}
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, sig) {
		return fmt.Errorf("%w: signature does not match %s", ErrInvalidSignature, address)
	}
	return nil
}
