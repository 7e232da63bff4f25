package chain

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Commit replays the pending operations in record order against the
// injected store, then persists the chain metadata and clears the log.
// Commit is not atomic: on failure the unapplied operations, including
// the failed one, stay in the log for retry and the error is returned.
// Concurrent commits on the same chain are serialized.
func (c *Chain) Commit(ctx context.Context) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()
	if c.store == nil {
		return fmt.Errorf("%w: no store configured", ErrStorage)
	}
	for {
		c.pendMu.Lock()
		if len(c.pending) == 0 {
			c.pendMu.Unlock()
			break
		}
		op := c.pending[0]
		c.pendMu.Unlock()
		if err := c.apply(ctx, op); err != nil {
			return fmt.Errorf("%w: %s operation: %v", ErrStorage, op.Kind, err)
		}
		c.pendMu.Lock()
		c.pending = c.pending[1:]
		c.pendMu.Unlock()
	}
	m := Metadata{Name: c.name, Height: c.Height()}
	if err := c.store.SaveMetadata(ctx, m); err != nil {
		return fmt.Errorf("%w: metadata: %v", ErrStorage, err)
	}
	return nil
}

func (c *Chain) apply(ctx context.Context, op Operation) error {
	switch op.Kind {
	case OpAdd:
		for i, b := range op.Blocks {
			if _, err := c.store.Persist(ctx, b, uint64(op.Index+i)); err != nil {
				return err
			}
		}
	case OpDelete:
		for _, b := range op.Blocks {
			if _, err := c.store.Delete(ctx, b.Digest); err != nil {
				return err
			}
		}
	}
	return nil
}

// autocommit debounces commits after adds. Every bump restarts the
// timer, so only the latest add in a burst fires.
type autocommit struct {
	delay time.Duration
	mu    sync.Mutex
	timer *time.Timer
}

func (c *Chain) bumpAutocommit() {
	a := c.auto
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() {
		if err := c.Commit(context.Background()); err != nil {
			log.WithField("chain", c.name).Error(err)
		}
	})
}
