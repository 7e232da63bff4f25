package chain

import (
	"context"
)

// Diff compares two chains positionally. It assumes one chains ordered
// sequence is a prefix of the other; for forked chains the result is
// best effort. The returned slice is indexed like the longer chain: a
// nil entry means both chains agree at that position, a block entry
// marks where they diverge and everything past it.
func (c *Chain) Diff(ctx context.Context, other *Chain) ([]*Block, error) {
	if other == nil {
		return nil, ErrInvalidArgument
	}
	if err := c.Order(ctx); err != nil {
		return nil, err
	}
	if err := other.Order(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	cb := c.blocks
	c.mu.RUnlock()
	other.mu.RLock()
	ob := other.blocks
	other.mu.RUnlock()
	long, short := cb, ob
	if len(ob) > len(cb) {
		long, short = ob, cb
	}
	out := make([]*Block, 0, len(long))
	if len(short) == 0 {
		return append(out, long...), nil
	}
	start := len(long)
	for i, b := range long {
		if b.Digest.Equal(short[0].Digest) {
			start = i
			break
		}
	}
	if start == len(long) {
		// total fork, nothing aligns
		return append(out, long...), nil
	}
	for k := 0; k < start; k++ {
		out = append(out, nil)
	}
	matched := true
	si := 0
	for k := start; k < len(long); k++ {
		if matched && si < len(short) && long[k].Digest.Equal(short[si].Digest) {
			out = append(out, nil)
			si++
			continue
		}
		matched = false
		out = append(out, long[k])
	}
	return out, nil
}
