package leveldbstore

import (
	"context"
	"encoding/binary"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/vmihailenco/msgpack"

	"github.com/hashlink/core/chain"
	"github.com/hashlink/core/hash"
)

// Key prefixes:
// - block: body keyed by hash hex
// - prev:  hash hex of the block linking to the keyed hash
// - index: hash hex of the block at the keyed position (uint64 BE)
// - meta:  per-chain metadata keyed by name
const (
	prefixBlock = "block:"
	prefixPrev  = "prev:"
	prefixIndex = "index:"
	prefixMeta  = "meta:"
)

// LevelDBStore persists blocks and chain metadata in a LevelDB
// database. The prev index makes successor lookups a single read, which
// keeps chain walks cheap.
type LevelDBStore struct {
	db *leveldb.DB
}

// New opens (or creates) the database at dir
func New(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(filepath.Clean(dir), nil)
	if err != nil {
		return nil, err
	}
	log.WithField("db", dir).Debug("Opened leveldb store")
	return &LevelDBStore{db: db}, nil
}

func indexKey(position uint64) []byte {
	k := make([]byte, len(prefixIndex)+8)
	copy(k, prefixIndex)
	binary.BigEndian.PutUint64(k[len(prefixIndex):], position)
	return k
}

func (s *LevelDBStore) get(key []byte, miss error) ([]byte, error) {
	raw, err := s.db.Get(key, nil)
	if err == lerrors.ErrNotFound {
		return nil, miss
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *LevelDBStore) decode(key []byte, miss error) (*chain.Block, error) {
	raw, err := s.get(key, miss)
	if err != nil {
		return nil, err
	}
	return chain.DecodeBlock(raw)
}

// FindByHash returns the block with the given hash
func (s *LevelDBStore) FindByHash(_ context.Context, h hash.Digest) (*chain.Block, error) {
	return s.decode([]byte(prefixBlock+h.String()), chain.ErrHashNotFound)
}

// FindByIndex returns the block persisted at the given position
func (s *LevelDBStore) FindByIndex(ctx context.Context, index uint64) (*chain.Block, error) {
	ref, err := s.get(indexKey(index), chain.ErrIndexNotFound)
	if err != nil {
		return nil, err
	}
	b, err := s.decode(append([]byte(prefixBlock), ref...), chain.ErrIndexNotFound)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FindByPrevious returns the block linking to the given hash via the
// prev index
func (s *LevelDBStore) FindByPrevious(_ context.Context, h hash.Digest) (*chain.Block, error) {
	ref, err := s.get([]byte(prefixPrev+h.String()), chain.ErrHashNotFound)
	if err != nil {
		return nil, err
	}
	return s.decode(append([]byte(prefixBlock), ref...), chain.ErrHashNotFound)
}

// Persist writes the block body plus its prev and position entries in
// one batch
func (s *LevelDBStore) Persist(_ context.Context, b *chain.Block, position uint64) (string, error) {
	enc, err := b.Serialize()
	if err != nil {
		return "", err
	}
	key := b.Digest.String()
	batch := new(leveldb.Batch)
	batch.Put([]byte(prefixBlock+key), enc)
	batch.Put([]byte(prefixPrev+b.Previous.String()), []byte(key))
	batch.Put(indexKey(position), []byte(key))
	if err := s.db.Write(batch, nil); err != nil {
		return "", err
	}
	return key, nil
}

// Delete removes the block body and its prev entry
func (s *LevelDBStore) Delete(_ context.Context, h hash.Digest) (string, error) {
	key := h.String()
	raw, err := s.get([]byte(prefixBlock+key), chain.ErrHashNotFound)
	if err != nil {
		return "", err
	}
	b, err := chain.DecodeBlock(raw)
	if err != nil {
		return "", err
	}
	batch := new(leveldb.Batch)
	batch.Delete([]byte(prefixBlock + key))
	batch.Delete([]byte(prefixPrev + b.Previous.String()))
	if err := s.db.Write(batch, nil); err != nil {
		return "", err
	}
	return key, nil
}

// LoadMetadata restores the chain metadata saved under name
func (s *LevelDBStore) LoadMetadata(_ context.Context, name string) (chain.Metadata, error) {
	raw, err := s.get([]byte(prefixMeta+name), chain.ErrChainNotFound)
	if err != nil {
		return chain.Metadata{}, err
	}
	m := chain.Metadata{}
	if err := msgpack.Unmarshal(raw, &m); err != nil {
		return chain.Metadata{}, err
	}
	return m, nil
}

// SaveMetadata persists the chain metadata under its name
func (s *LevelDBStore) SaveMetadata(_ context.Context, m chain.Metadata) error {
	enc, err := msgpack.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(prefixMeta+m.Name), enc, nil)
}

// Close closes the underlying database
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
