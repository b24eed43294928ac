package wallet

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"emberchain/core"
)

func TestEnvWalletLoader(t *testing.T) {
	signer, err := core.GenerateSigner()
	require.NoError(t, err)

	t.Setenv("TEST_EMBER_KEY", hex.EncodeToString(signer.PrivateKey().Seed()))
	loaded, err := (&EnvWalletLoader{Var: "TEST_EMBER_KEY"}).LoadWallet()
	require.NoError(t, err)
	require.Equal(t, signer.Address(), loaded.Address())

	t.Setenv("TEST_EMBER_KEY", "zz")
	_, err = (&EnvWalletLoader{Var: "TEST_EMBER_KEY"}).LoadWallet()
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNoKey)

	t.Setenv(DefaultSignerEnv, "")
	_, err = (&EnvWalletLoader{}).LoadWallet()
	require.ErrorIs(t, err, ErrNoKey)
}

func TestChainLoaderFallsBack(t *testing.T) {
	dir := t.TempDir()
	signer, err := core.GenerateAndSaveKeypair(dir)
	require.NoError(t, err)

	t.Setenv("TEST_EMBER_UNSET", "")
	loader := ChainLoader{
		&EnvWalletLoader{Var: "TEST_EMBER_UNSET"},
		&FileWalletLoader{Path: filepath.Join(dir, core.PrivKeyFile)},
	}
	loaded, err := loader.LoadWallet()
	require.NoError(t, err)
	require.Equal(t, signer.Address(), loaded.Address())

	_, err = ChainLoader{&FileWalletLoader{}}.LoadWallet()
	require.ErrorIs(t, err, ErrNoKey)

	_, err = ChainLoader{&FileWalletLoader{Path: filepath.Join(dir, "missing")}}.LoadWallet()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadKeyring(t *testing.T) {
	dir := t.TempDir()
	var addrs []string
	for _, name := range []string{"v1", "v2", "v3"} {
		s, err := core.GenerateAndSaveKeypair(filepath.Join(dir, name))
		require.NoError(t, err)
		addrs = append(addrs, s.Address())
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o700))

	ring, err := LoadKeyring(dir)
	require.NoError(t, err)
	require.Len(t, ring, 3)
	for i := 1; i < len(ring); i++ {
		require.Less(t, ring[i-1].Address(), ring[i].Address())
	}

	keep := map[string]bool{addrs[0]: true, addrs[2]: true}
	signers := Signers(ring, func(addr string) bool { return keep[addr] })
	require.Len(t, signers, 2)
}
