package chain

import (
	"context"

	"github.com/hashlink/core/hash"
)

// Rollback removes blocks from the tail of the chain. With a target
// hash, everything strictly after the target is deleted and the target
// becomes the new head. Without one, the chain is scanned from genesis
// for the first corrupt block or broken link, and that block plus
// everything after it is deleted; a fully valid chain fails with
// ErrNothingToRollback. Deletions are recorded in the pending log, not
// applied to storage until Commit.
func (c *Chain) Rollback(ctx context.Context, target hash.Digest) error {
	if err := c.Order(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.blocks) == 0 {
		return nil
	}
	if len(target) > 0 {
		for i, b := range c.blocks {
			if b.Digest.Equal(target) {
				c.truncate(i + 1)
				return nil
			}
		}
		return ErrHashNotFound
	}
	for i, b := range c.blocks {
		broken := !b.Verify(false)
		if !broken {
			if i == 0 {
				broken = !b.Previous.IsSentinel()
			} else {
				broken = !b.Previous.Equal(c.blocks[i-1].Digest)
			}
		}
		if broken {
			c.truncate(i)
			return nil
		}
	}
	return ErrNothingToRollback
}

// truncate drops every block at position i and after, recording one
// delete operation for the removed run. It expects mu to be held and
// copies the retained prefix so snapshots taken earlier stay intact.
func (c *Chain) truncate(i int) {
	if i >= len(c.blocks) {
		return
	}
	removed := append([]*Block(nil), c.blocks[i:]...)
	c.blocks = append([]*Block(nil), c.blocks[:i]...)
	c.record(Operation{Kind: OpDelete, Blocks: removed, Index: i})
}

// deleteRange expects mu to be held
func (c *Chain) deleteRange(index, length int) error {
	if index < 0 || index+length > len(c.blocks) {
		return ErrIndexNotFound
	}
	removed := append([]*Block(nil), c.blocks[index:index+length]...)
	kept := append([]*Block(nil), c.blocks[:index]...)
	c.blocks = append(kept, c.blocks[index+length:]...)
	c.record(Operation{Kind: OpDelete, Blocks: removed, Index: index})
	return nil
}

// DeleteRange removes a contiguous run of blocks by position and
// length, recording a delete operation
func (c *Chain) DeleteRange(ctx context.Context, index, length int) error {
	if length <= 0 {
		return ErrInvalidArgument
	}
	if err := c.Order(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteRange(index, length)
}

// DeleteBlock removes the block with the given hash, recording a
// delete operation
func (c *Chain) DeleteBlock(ctx context.Context, h hash.Digest) error {
	if err := c.Order(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range c.blocks {
		if b.Digest.Equal(h) {
			return c.deleteRange(i, 1)
		}
	}
	return ErrHashNotFound
}
