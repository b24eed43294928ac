package core

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	PrivKeyFile = "node_ed25519.priv"
	PubKeyFile  = "node_ed25519.pub"
)

// GenerateAndSaveKeypair loads the keypair in dir, generating and saving
// a new one if none exists.
func GenerateAndSaveKeypair(dir string) (*Ed25519Signer, error) {
	signer, err := LoadKeypair(dir)
	if err == nil {
		return signer, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	signer, err = GenerateSigner()
	if err != nil {
		return nil, err
	}
	if err := SaveKeypair(dir, signer); err != nil {
		return nil, err
	}
	return signer, nil
}

// SaveKeypair writes the hex-encoded keypair into dir.
func SaveKeypair(dir string, signer *Ed25519Signer) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	privPath := filepath.Join(dir, PrivKeyFile)
	if err := os.WriteFile(privPath, []byte(hex.EncodeToString(signer.PrivateKey())), 0o600); err != nil {
		return err
	}
	pubPath := filepath.Join(dir, PubKeyFile)
	return os.WriteFile(pubPath, []byte(hex.EncodeToString(signer.PublicKey())), 0o644)
}

// LoadKeypair loads the keypair stored in dir.
func LoadKeypair(dir string) (*Ed25519Signer, error) {
	return LoadPrivateKeyFile(filepath.Join(dir, PrivKeyFile))
}

// LoadPrivateKeyFile reads a hex-encoded ed25519 private key.
func LoadPrivateKeyFile(path string) (*Ed25519Signer, error) {
	privHex, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePrivateKey(string(privHex))
}

// ParsePrivateKey decodes a hex-encoded ed25519 private key or seed.
func ParsePrivateKey(s string) (*Ed25519Signer, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(raw) == ed25519.SeedSize {
		raw = ed25519.NewKeyFromSeed(raw)
	}
	return NewEd25519Signer(ed25519.PrivateKey(raw))
}
