package storage

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"emberchain/core"
	"emberchain/core/block"
)

var genesisTime = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func testChain(t *testing.T, n int) []*block.Block {
	t.Helper()
	signer, err := core.GenerateSigner()
	require.NoError(t, err)
	blocks := []*block.Block{block.NewGenesisBlock(genesisTime)}
	for i := 1; i < n; i++ {
		prev := blocks[i-1]
		tx := block.NewTransaction(signer.Address(), "bob", uint64(i), 1, genesisTime.Add(time.Duration(i)*time.Second))
		require.NoError(t, tx.Sign(signer))
		blocks = append(blocks, block.NewBlock(prev.Index+1, prev.Hash.String(), []block.Transaction{*tx}, signer.Address(), tx.Timestamp))
	}
	return blocks
}

func openStore(t *testing.T, dir string, opts Options) *Storage {
	t.Helper()
	s, err := NewStorage(dir, opts)
	require.NoError(t, err)
	return s
}

func TestSaveAndLoadBlocks(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir, Options{})

	has, err := s.HasGenesisBlock()
	require.NoError(t, err)
	require.False(t, has)
	_, ok, err := s.GetChainHeight()
	require.NoError(t, err)
	require.False(t, ok)

	// Twelve blocks so that index 10 must sort after index 9.
	blocks := testChain(t, 12)
	for _, blk := range blocks {
		require.NoError(t, s.SaveBlock(blk))
	}
	require.NoError(t, s.Close())

	s = openStore(t, dir, Options{CacheSize: 2})
	defer s.Close()

	loaded, err := s.LoadBlocks()
	require.NoError(t, err)
	require.Len(t, loaded, len(blocks))
	for i, blk := range loaded {
		require.Equal(t, blocks[i].Hash, blk.Hash)
		require.NoError(t, blk.Verify())
	}

	height, ok, err := s.GetChainHeight()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(11), height)

	byHash, err := s.GetBlockByHash(blocks[7].Hash)
	require.NoError(t, err)
	require.Equal(t, uint64(7), byHash.Index)

	_, err = s.GetBlockByHeight(99)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetBlockByHash(block.EmptyMerkleRoot)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEncryptedStorage(t *testing.T) {
	dir := t.TempDir()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	parsed, err := ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)

	s := openStore(t, dir, Options{EncryptionKey: parsed})
	blocks := testChain(t, 3)
	for _, blk := range blocks {
		require.NoError(t, s.SaveBlock(blk))
	}

	raw, err := s.db.Get(blockKey(1), nil)
	require.NoError(t, err)
	_, err = block.Deserialize(raw)
	require.Error(t, err, "stored block should not be plaintext JSON")
	require.NoError(t, s.Close())

	s = openStore(t, dir, Options{EncryptionKey: parsed})
	loaded, err := s.LoadBlocks()
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	require.Equal(t, blocks[2].Hash, loaded[2].Hash)
	require.NoError(t, s.Close())

	wrong := make([]byte, 32)
	s = openStore(t, dir, Options{EncryptionKey: wrong})
	defer s.Close()
	_, err = s.LoadBlocks()
	require.Error(t, err)
}

func TestParseKey(t *testing.T) {
	key, err := ParseKey("")
	require.NoError(t, err)
	require.Nil(t, key)

	_, err = ParseKey("not base64!")
	require.Error(t, err)

	_, err = ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	require.ErrorIs(t, err, ErrBadKey)
}

func TestListRecentBlocks(t *testing.T) {
	s := openStore(t, t.TempDir(), Options{})
	defer s.Close()
	blocks := testChain(t, 5)
	for _, blk := range blocks {
		require.NoError(t, s.SaveBlock(blk))
	}

	recent, err := s.ListRecentBlocks(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, uint64(4), recent[0].Index)
	require.Equal(t, uint64(3), recent[1].Index)
	require.Equal(t, 1, recent[0].Txs)
	require.Equal(t, Summarize(blocks[4]), recent[0])
}

func TestJournalEntries(t *testing.T) {
	dir := t.TempDir()
	key := make([]byte, 32)
	key[0] = 7
	s := openStore(t, dir, Options{EncryptionKey: key})

	entries, err := s.LoadEntries()
	require.NoError(t, err)
	require.Empty(t, entries)

	// More than ten so that entry 10 must sort after entry 9.
	for i := 0; i < 11; i++ {
		require.NoError(t, s.AppendEntry([]byte(`{"n":`+string(rune('a'+i))+`}`)))
	}
	require.NoError(t, s.SaveBlock(testChain(t, 1)[0]))
	require.NoError(t, s.Close())

	s = openStore(t, dir, Options{EncryptionKey: key})
	require.NoError(t, s.AppendEntry([]byte("last")))
	entries, err = s.LoadEntries()
	require.NoError(t, err)
	require.Len(t, entries, 12)
	require.Equal(t, `{"n":a}`, string(entries[0]))
	require.Equal(t, `{"n":k}`, string(entries[10]))
	require.Equal(t, "last", string(entries[11]))

	blocks, err := s.LoadBlocks()
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.NoError(t, s.Close())

	other := make([]byte, 32)
	s = openStore(t, dir, Options{EncryptionKey: other})
	defer s.Close()
	_, err = s.LoadEntries()
	require.Error(t, err)
}
