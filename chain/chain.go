package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/hashlink/core/hash"
)

// Chain is an ordered arena of hash-linked blocks. Blocks never point
// back at the chain, linkage is purely by hash value. A chain built
// only through Add is ordered by construction; one preloaded from an
// unordered block set is reordered lazily, exactly once.
type Chain struct {
	name  string
	fn    hash.Func
	store Store

	// mu guards blocks and ordered. Readers snapshot the slice header
	// under it; mutations always replace the backing array so a
	// snapshot stays immutable after release.
	mu      sync.RWMutex
	blocks  []*Block
	ordered bool

	sf singleflight.Group

	pending  []Operation
	pendMu   sync.Mutex
	commitMu sync.Mutex

	auto *autocommit
}

// Option configures a chain at creation
type Option func(*Chain)

// WithStore injects the persistence adapter used by Commit and by
// traversal fallback lookups
func WithStore(s Store) Option {
	return func(c *Chain) {
		c.store = s
	}
}

// WithChainHashFunc selects the digest function for the sentinel and
// for blocks the chain constructs, default is hash.SHA256
func WithChainHashFunc(f hash.Func) Option {
	return func(c *Chain) {
		c.fn = f
	}
}

// WithBlocks preloads an unordered block set. The chain reorders it on
// first use.
func WithBlocks(blocks []*Block) Option {
	return func(c *Chain) {
		c.blocks = append(c.blocks, blocks...)
		c.ordered = false
	}
}

// WithAutocommit debounces a Commit after every successful Add. Only
// the most recent add fires, commits never overlap.
func WithAutocommit(d time.Duration) Option {
	return func(c *Chain) {
		c.auto = &autocommit{delay: d}
	}
}

// New initializes a chain
func New(name string, opts ...Option) *Chain {
	c := &Chain{name: name, ordered: true}
	for _, o := range opts {
		o(c)
	}
	if c.fn == nil {
		c.fn = hash.SHA256
	}
	return c
}

// Name returns the chain identifier used as the persistence key
func (c *Chain) Name() string {
	return c.name
}

// Height returns the number of blocks
func (c *Chain) Height() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint64(len(c.blocks))
}

// Sentinel returns the genesis marker for this chains digest function
func (c *Chain) Sentinel() hash.Digest {
	return hash.Sentinel(c.fn)
}

// NewBlock mines a block linked to the current head, using the chains
// digest function
func (c *Chain) NewBlock(ctx context.Context, data []byte) (*Block, error) {
	if err := c.Order(ctx); err != nil {
		return nil, err
	}
	prev := c.Sentinel()
	c.mu.RLock()
	if h := c.head(); h != nil {
		prev = h.Digest
	}
	c.mu.RUnlock()
	return NewBlock(data, prev, WithHashFunc(c.fn))
}

// head expects mu to be held
func (c *Chain) head() *Block {
	if len(c.blocks) == 0 {
		return nil
	}
	return c.blocks[len(c.blocks)-1]
}

// Head returns the last block in canonical order, or nil for an empty
// chain
func (c *Chain) Head(ctx context.Context) (*Block, error) {
	if err := c.Order(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.head(), nil
}

// Add validates the blocks previous link against the current head and
// appends it, recording a pending add operation
func (c *Chain) Add(ctx context.Context, b *Block) error {
	if b == nil {
		return ErrInvalidArgument
	}
	if err := c.Order(ctx); err != nil {
		return err
	}
	want := c.Sentinel()
	c.mu.Lock()
	if h := c.head(); h != nil {
		want = h.Digest
	}
	if !b.Previous.Equal(want) {
		c.mu.Unlock()
		return ErrInvalidPreviousLink
	}
	c.blocks = append(c.blocks, b)
	c.record(Operation{Kind: OpAdd, Blocks: []*Block{b}, Index: len(c.blocks) - 1})
	c.mu.Unlock()
	if c.auto != nil {
		c.bumpAutocommit()
	}
	return nil
}

// Get returns the block with the given hash, falling back to the store
// when the arena does not hold it
func (c *Chain) Get(ctx context.Context, h hash.Digest) (*Block, error) {
	c.mu.RLock()
	for _, b := range c.blocks {
		if b.Digest.Equal(h) {
			c.mu.RUnlock()
			return b, nil
		}
	}
	c.mu.RUnlock()
	if c.store != nil {
		b, err := c.store.FindByHash(ctx, h)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrHashNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return nil, ErrHashNotFound
}

// GetIndex returns the block at the given canonical position
func (c *Chain) GetIndex(ctx context.Context, index uint64) (*Block, error) {
	if err := c.Order(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	if index < uint64(len(c.blocks)) {
		b := c.blocks[index]
		c.mu.RUnlock()
		return b, nil
	}
	c.mu.RUnlock()
	if c.store != nil {
		b, err := c.store.FindByIndex(ctx, index)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrStorage, err)
		}
	}
	return nil, ErrIndexNotFound
}

// Order rearranges a preloaded block set into genesis to head order in
// place. Concurrent callers share a single in-flight pass and no caller
// can observe the arena mid-reorder; once a chain is ordered it never
// reorders, appends preserve order by construction.
func (c *Chain) Order(ctx context.Context) error {
	c.mu.RLock()
	done := c.ordered
	c.mu.RUnlock()
	if done {
		return nil
	}
	_, err, _ := c.sf.Do("order", func() (interface{}, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.ordered {
			return nil, nil
		}
		if err := c.order(); err != nil {
			return nil, err
		}
		c.ordered = true
		return nil, nil
	})
	return err
}

func (c *Chain) order() error {
	n := len(c.blocks)
	if n == 0 {
		return nil
	}
	g := -1
	for i, b := range c.blocks {
		if b.Previous.IsSentinel() {
			g = i
			break
		}
	}
	if g < 0 {
		return ErrNoGenesisBlock
	}
	c.blocks[0], c.blocks[g] = c.blocks[g], c.blocks[0]
	for i := 0; i < n-1; i++ {
		if c.blocks[i+1].Previous.Equal(c.blocks[i].Digest) {
			continue
		}
		for j := i + 2; j < n; j++ {
			if c.blocks[j].Previous.Equal(c.blocks[i].Digest) {
				c.blocks[i+1], c.blocks[j] = c.blocks[j], c.blocks[i+1]
				break
			}
		}
		// an unresolvable position is a genuine break in the chain,
		// surfaced by Verify rather than here
	}
	return nil
}

// Verify checks every block and every link in canonical order. quick
// uses the suffix-only block check.
func (c *Chain) Verify(ctx context.Context, quick bool) bool {
	if err := c.Order(ctx); err != nil {
		log.WithField("chain", c.name).Debug(err)
		return false
	}
	c.mu.RLock()
	blocks := c.blocks
	c.mu.RUnlock()
	for i, b := range blocks {
		if !b.Verify(quick) {
			return false
		}
		if i == 0 {
			if !b.Previous.IsSentinel() {
				return false
			}
			continue
		}
		if !b.Previous.Equal(blocks[i-1].Digest) {
			return false
		}
	}
	return true
}

// WalkOptions bounds a traversal. The zero value walks the full chain
// from genesis.
type WalkOptions struct {
	// Start is the hash whose successor begins the walk, default is the
	// genesis sentinel
	Start hash.Digest
	// End stops the walk after visiting the block with this hash
	End hash.Digest
	// Limit caps the number of visited blocks, zero means unbounded
	Limit int
}

// Walk traverses the chain in link order, applying op to every block
// and collecting the results. Running out of successors is the normal
// end of chain and returns whatever was collected; only adapter
// failures and op errors abort.
func Walk[T any](ctx context.Context, c *Chain, o WalkOptions, op func(*Block) (T, error)) ([]T, error) {
	cur := o.Start
	if len(cur) == 0 {
		cur = c.Sentinel()
	}
	out := []T{}
	for {
		if o.Limit > 0 && len(out) >= o.Limit {
			return out, nil
		}
		b, err := c.successor(ctx, cur)
		if err != nil {
			return out, err
		}
		if b == nil {
			return out, nil
		}
		v, err := op(b)
		if err != nil {
			return out, err
		}
		out = append(out, v)
		if len(o.End) > 0 && b.Digest.Equal(o.End) {
			return out, nil
		}
		cur = b.Digest
	}
}

// successor finds the block linking to h, consulting the store when
// the arena has no match. A miss on both is a nil block, the normal end
// of chain.
func (c *Chain) successor(ctx context.Context, h hash.Digest) (*Block, error) {
	c.mu.RLock()
	for _, b := range c.blocks {
		if b.Previous.Equal(h) {
			c.mu.RUnlock()
			return b, nil
		}
	}
	c.mu.RUnlock()
	if c.store == nil {
		return nil, nil
	}
	b, err := c.store.FindByPrevious(ctx, h)
	if errors.Is(err, ErrHashNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return b, nil
}

// Blocks returns the blocks in canonical order
func (c *Chain) Blocks(ctx context.Context) ([]*Block, error) {
	if err := c.Order(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Block(nil), c.blocks...), nil
}

// Clone returns an independent chain with a copied block sequence and a
// fresh empty operation log. The clone shares no mutable state with the
// original and carries no store.
func (c *Chain) Clone(ctx context.Context) (*Chain, error) {
	if err := c.Order(ctx); err != nil {
		return nil, err
	}
	n := New(c.name, WithChainHashFunc(c.fn))
	c.mu.RLock()
	for _, b := range c.blocks {
		n.blocks = append(n.blocks, b.Clone())
	}
	c.mu.RUnlock()
	return n, nil
}

// Load rebuilds a chain from a store by walking successor links from
// the genesis sentinel. The restored blocks are trusted as ordered.
func Load(ctx context.Context, name string, s Store, opts ...Option) (*Chain, error) {
	meta, err := s.LoadMetadata(ctx, name)
	if errors.Is(err, ErrChainNotFound) {
		return nil, ErrChainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	c := New(name, append(opts, WithStore(s))...)
	blocks, err := Walk(ctx, c, WalkOptions{}, func(b *Block) (*Block, error) {
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.blocks = blocks
	c.mu.Unlock()
	if uint64(len(blocks)) != meta.Height {
		log.WithFields(log.Fields{
			"chain":  name,
			"height": meta.Height,
			"loaded": len(blocks),
		}).Warn("Stored height disagrees with walked chain")
	}
	return c, nil
}
