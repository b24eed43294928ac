package auth

import (
	"crypto"
	"errors"
	"fmt"
)

var ErrNoKey = errors.New("no verification key")

// KeyProvider returns the key that verifies tokens carrying kid.
type KeyProvider interface {
	GetKey(kid string) (interface{}, error)
}

// HMACKeyProvider verifies HS256 tokens with a shared secret.
type HMACKeyProvider struct {
	Secret []byte
}

func (p *HMACKeyProvider) GetKey(string) (interface{}, error) {
	if len(p.Secret) == 0 {
		return nil, ErrNoKey
	}
	return p.Secret, nil
}

// PublicKeyProvider maps key IDs to public keys (ed25519.PublicKey for
// EdDSA tokens).
type PublicKeyProvider struct {
	Keys map[string]crypto.PublicKey
}

func (p *PublicKeyProvider) GetKey(kid string) (interface{}, error) {
	key, ok := p.Keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: kid %q", ErrNoKey, kid)
	}
	return key, nil
}
