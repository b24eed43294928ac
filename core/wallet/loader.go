package wallet

import (
	"errors"
	"fmt"

	"emberchain/core"
)

var ErrNoKey = errors.New("no signing key configured")

// WalletLoader produces a signing key from some key source.
type WalletLoader interface {
	LoadWallet() (*core.Ed25519Signer, error)
}

// FileWalletLoader reads a hex-encoded private key or seed from Path.
type FileWalletLoader struct {
	Path string
}

func (l *FileWalletLoader) LoadWallet() (*core.Ed25519Signer, error) {
	if l.Path == "" {
		return nil, ErrNoKey
	}
	signer, err := core.LoadPrivateKeyFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", l.Path, err)
	}
	return signer, nil
}

// ChainLoader tries each loader in turn and returns the first key found.
// Loaders reporting ErrNoKey are skipped; any other error stops the search.
type ChainLoader []WalletLoader

func (c ChainLoader) LoadWallet() (*core.Ed25519Signer, error) {
	for _, l := range c {
		signer, err := l.LoadWallet()
		if errors.Is(err, ErrNoKey) {
			continue
		}
		return signer, err
	}
	return nil, ErrNoKey
}
