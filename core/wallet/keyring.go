package wallet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"emberchain/core"
)

// LoadKeyring loads every keypair stored in a direct subdirectory of dir,
// plus one stored in dir itself. Signers are ordered by address.
func LoadKeyring(dir string) ([]*core.Ed25519Signer, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	candidates := []string{dir}
	for _, e := range entries {
		if e.IsDir() {
			candidates = append(candidates, filepath.Join(dir, e.Name()))
		}
	}

	var signers []*core.Ed25519Signer
	seen := make(map[string]struct{})
	for _, path := range candidates {
		signer, err := core.LoadKeypair(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load keypair in %s: %w", path, err)
		}
		if _, dup := seen[signer.Address()]; dup {
			continue
		}
		seen[signer.Address()] = struct{}{}
		signers = append(signers, signer)
	}
	sort.Slice(signers, func(i, j int) bool { return signers[i].Address() < signers[j].Address() })
	return signers, nil
}

// Signers narrows a keyring to the keys whose address satisfies keep.
func Signers(ring []*core.Ed25519Signer, keep func(addr string) bool) []core.Signer {
	var out []core.Signer
	for _, s := range ring {
		if keep(s.Address()) {
			out = append(out, s)
		}
	}
	return out
}
