package chain

import (
	"context"

	"github.com/hashlink/core/hash"
)

// Metadata is the chain-level state kept by a store, separate from the
// block bodies
type Metadata struct {
	Name   string `json:"name" msgpack:"name"`
	Height uint64 `json:"height" msgpack:"height"`
}

// Store is the persistence contract for chains. Lookup misses are
// reported as ErrHashNotFound / ErrIndexNotFound so callers can tell a
// normal end of chain from an adapter failure.
type Store interface {
	// FindByHash returns the block with the given hash
	FindByHash(ctx context.Context, h hash.Digest) (*Block, error)
	// FindByIndex returns the block persisted at the given position
	FindByIndex(ctx context.Context, index uint64) (*Block, error)
	// FindByPrevious returns the block linking to the given hash
	FindByPrevious(ctx context.Context, h hash.Digest) (*Block, error)
	// Persist writes a block at the given position hint and returns an
	// opaque storage id
	Persist(ctx context.Context, b *Block, position uint64) (string, error)
	// Delete removes the block with the given hash
	Delete(ctx context.Context, h hash.Digest) (string, error)
	// LoadMetadata restores the chain metadata saved under name
	LoadMetadata(ctx context.Context, name string) (Metadata, error)
	// SaveMetadata persists the chain metadata under its name
	SaveMetadata(ctx context.Context, m Metadata) error
	// Close releases the underlying resources
	Close() error
}
