package boltstore

import (
	"context"
	"encoding/binary"

	bolt "github.com/coreos/bbolt"
	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack"

	"github.com/hashlink/core/chain"
	"github.com/hashlink/core/hash"
)

var (
	blockBucket = []byte("blocks")
	indexBucket = []byte("index")
	metaBucket  = []byte("meta")
)

// BoltStore persists blocks in a boltdb key value store. Bodies live in
// the blocks bucket keyed by hash, the index bucket maps positions to
// hashes and the meta bucket holds per-chain metadata.
type BoltStore struct {
	db *bolt.DB
}

// New opens the database and creates the buckets
func New(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{blockBucket, indexBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.WithField("db", path).Debug("Opened bolt store")
	return &BoltStore{db: db}, nil
}

func indexKey(position uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, position)
	return k
}

// FindByHash returns the block with the given hash
func (s *BoltStore) FindByHash(_ context.Context, h hash.Digest) (*chain.Block, error) {
	var b *chain.Block
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(blockBucket).Get([]byte(h.String()))
		if raw == nil {
			return chain.ErrHashNotFound
		}
		var err error
		b, err = chain.DecodeBlock(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FindByIndex returns the block persisted at the given position
func (s *BoltStore) FindByIndex(ctx context.Context, index uint64) (*chain.Block, error) {
	var key hash.Digest
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(indexBucket).Get(indexKey(index))
		if raw == nil {
			return chain.ErrIndexNotFound
		}
		key = hash.Digest(raw).Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.FindByHash(ctx, key)
}

// FindByPrevious scans for the block linking to the given hash
func (s *BoltStore) FindByPrevious(_ context.Context, h hash.Digest) (*chain.Block, error) {
	var found *chain.Block
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(blockBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			b, err := chain.DecodeBlock(v)
			if err != nil {
				return err
			}
			if b.Previous.Equal(h) {
				found = b
				return nil
			}
		}
		return chain.ErrHashNotFound
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Persist writes the block body and its position entry
func (s *BoltStore) Persist(_ context.Context, b *chain.Block, position uint64) (string, error) {
	enc, err := b.Serialize()
	if err != nil {
		return "", err
	}
	key := b.Digest.String()
	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(blockBucket).Put([]byte(key), enc); err != nil {
			return err
		}
		return tx.Bucket(indexBucket).Put(indexKey(position), b.Digest)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Delete removes the block body and any position entry pointing at it
func (s *BoltStore) Delete(_ context.Context, h hash.Digest) (string, error) {
	key := h.String()
	err := s.db.Update(func(tx *bolt.Tx) error {
		blocks := tx.Bucket(blockBucket)
		if blocks.Get([]byte(key)) == nil {
			return chain.ErrHashNotFound
		}
		if err := blocks.Delete([]byte(key)); err != nil {
			return err
		}
		c := tx.Bucket(indexBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if hash.Digest(v).Equal(h) {
				return c.Delete()
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// LoadMetadata restores the chain metadata saved under name
func (s *BoltStore) LoadMetadata(_ context.Context, name string) (chain.Metadata, error) {
	m := chain.Metadata{}
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(metaBucket).Get([]byte(name))
		if raw == nil {
			return chain.ErrChainNotFound
		}
		return msgpack.Unmarshal(raw, &m)
	})
	if err != nil {
		return chain.Metadata{}, err
	}
	return m, nil
}

// SaveMetadata persists the chain metadata under its name
func (s *BoltStore) SaveMetadata(_ context.Context, m chain.Metadata) error {
	enc, err := msgpack.Marshal(m)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put([]byte(m.Name), enc)
	})
}

// Close closes the underlying database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
