package storage

import (
	"bytes"
	"crypto/cipher"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"emberchain/core/block"
	"emberchain/types/ids"
)

const (
	blockPrefix      = "block:"
	hashPrefix       = "hash:"
	entryPrefix      = "entry:"
	heightKey        = "height"
	DefaultCacheSize = 256
)

var ErrNotFound = errors.New("block not found in storage")

type Options struct {
	// EncryptionKey enables AES-256-GCM for stored blocks when set.
	EncryptionKey []byte
	CacheSize     int
}

// Storage keeps committed blocks in LevelDB keyed by zero-padded index,
// with a hash index and a cache of decoded blocks. Journal entries are
// kept in append order under their own prefix.
type Storage struct {
	db        *leveldb.DB
	gcm       cipher.AEAD
	cache     *lru.Cache
	mu        sync.Mutex
	nextEntry uint64
}

func NewStorage(path string, opts Options) (*Storage, error) {
	var gcm cipher.AEAD
	if opts.EncryptionKey != nil {
		var err error
		if gcm, err = newAEAD(opts.EncryptionKey); err != nil {
			return nil, err
		}
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	s := &Storage{db: db, gcm: gcm, cache: cache}
	if s.nextEntry, err = s.lastEntrySeq(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) lastEntrySeq() (uint64, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(entryPrefix)), nil)
	defer iter.Release()
	if !iter.Last() {
		return 0, iter.Error()
	}
	seq, err := strconv.ParseUint(strings.TrimPrefix(string(iter.Key()), entryPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad entry key %q: %w", iter.Key(), err)
	}
	return seq + 1, nil
}

func entryKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", entryPrefix, seq))
}

func blockKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", blockPrefix, index))
}

func indexBytes(index uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], index)
	return b[:]
}

// SaveBlock writes the block, its hash index entry and the new height in
// one batch.
func (s *Storage) SaveBlock(blk *block.Block) error {
	data, err := blk.Serialize()
	if err != nil {
		return err
	}
	if data, err = s.seal(data); err != nil {
		return err
	}
	batch := new(leveldb.Batch)
	batch.Put(blockKey(blk.Index), data)
	batch.Put([]byte(hashPrefix+blk.Hash.String()), indexBytes(blk.Index))
	batch.Put([]byte(heightKey), indexBytes(blk.Index))
	if err := s.db.Write(batch, nil); err != nil {
		return err
	}
	s.cache.Add(blk.Index, blk)
	return nil
}

func (s *Storage) seal(data []byte) ([]byte, error) {
	if s.gcm == nil {
		return data, nil
	}
	return encrypt(s.gcm, data)
}

func (s *Storage) open(raw []byte) ([]byte, error) {
	if s.gcm == nil {
		return raw, nil
	}
	return decrypt(s.gcm, raw)
}

func (s *Storage) decode(raw []byte) (*block.Block, error) {
	data, err := s.open(raw)
	if err != nil {
		return nil, err
	}
	return block.Deserialize(data)
}

// AppendEntry stores an opaque journal entry after every earlier one.
func (s *Storage) AppendEntry(data []byte) error {
	sealed, err := s.seal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Put(entryKey(s.nextEntry), sealed, nil); err != nil {
		return err
	}
	s.nextEntry++
	return nil
}

// LoadEntries returns every journal entry in append order.
func (s *Storage) LoadEntries() ([][]byte, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(entryPrefix)), nil)
	defer iter.Release()

	var entries [][]byte
	for iter.Next() {
		data, err := s.open(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		entries = append(entries, bytes.Clone(data))
	}
	return entries, iter.Error()
}

// GetBlockByHeight uses the index key for O(1) lookup
func (s *Storage) GetBlockByHeight(height uint64) (*block.Block, error) {
	if cached, ok := s.cache.Get(height); ok {
		return cached.(*block.Block), nil
	}
	raw, err := s.db.Get(blockKey(height), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: height %d", ErrNotFound, height)
	}
	if err != nil {
		return nil, err
	}
	blk, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	s.cache.Add(height, blk)
	return blk, nil
}

func (s *Storage) GetBlockByHash(hash ids.ID) (*block.Block, error) {
	raw, err := s.db.Get([]byte(hashPrefix+hash.String()), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: hash %s", ErrNotFound, hash)
	}
	if err != nil {
		return nil, err
	}
	return s.GetBlockByHeight(binary.BigEndian.Uint64(raw))
}

// GetChainHeight returns the highest stored index and false when the
// store is empty.
func (s *Storage) GetChainHeight() (uint64, bool, error) {
	raw, err := s.db.Get([]byte(heightKey), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

func (s *Storage) HasGenesisBlock() (bool, error) {
	return s.db.Has(blockKey(0), nil)
}

// LoadBlocks returns every stored block in index order.
func (s *Storage) LoadBlocks() ([]*block.Block, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(blockPrefix)), nil)
	defer iter.Release()

	var blocks []*block.Block
	for iter.Next() {
		blk, err := s.decode(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		blocks = append(blocks, blk)
	}
	return blocks, iter.Error()
}

// BlockSummary is a short description of a stored block.
type BlockSummary struct {
	Index     uint64 `json:"index"`
	Hash      string `json:"hash"`
	PrevHash  string `json:"prevHash"`
	Proposer  string `json:"proposer,omitempty"`
	Txs       int    `json:"txs"`
	Timestamp string `json:"timestamp"`
}

func Summarize(blk *block.Block) BlockSummary {
	return BlockSummary{
		Index:     blk.Index,
		Hash:      blk.Hash.String(),
		PrevHash:  blk.PrevHash,
		Proposer:  blk.Proposer,
		Txs:       len(blk.Transactions),
		Timestamp: blk.Timestamp.UTC().Format(time.RFC3339),
	}
}

// ListRecentBlocks summarizes up to limit blocks, newest first. Blocks that
// fail to decode are skipped.
func (s *Storage) ListRecentBlocks(limit int) ([]BlockSummary, error) {
	var summaries []BlockSummary

	iter := s.db.NewIterator(util.BytesPrefix([]byte(blockPrefix)), nil)
	defer iter.Release()

	for ok := iter.Last(); ok && len(summaries) < limit; ok = iter.Prev() {
		blk, err := s.decode(iter.Value())
		if err != nil {
			continue
		}
		summaries = append(summaries, Summarize(blk))
	}

	if err := iter.Error(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
