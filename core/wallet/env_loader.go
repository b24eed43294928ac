package wallet

import (
	"fmt"
	"os"

	"emberchain/core"
)

const DefaultSignerEnv = "EMBER_SIGNER_PRIVKEY"

// EnvWalletLoader reads a hex-encoded private key from an environment
// variable, DefaultSignerEnv unless Var is set.
type EnvWalletLoader struct {
	Var string
}

func (l *EnvWalletLoader) LoadWallet() (*core.Ed25519Signer, error) {
	name := l.Var
	if name == "" {
		name = DefaultSignerEnv
	}
	privKey := os.Getenv(name)
	if privKey == "" {
		return nil, fmt.Errorf("%w: %s not set in environment", ErrNoKey, name)
	}
	signer, err := core.ParsePrivateKey(privKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return signer, nil
}
