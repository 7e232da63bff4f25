package chain

// OpKind distinguishes pending operations
type OpKind int

const (
	// OpAdd persists its blocks on commit
	OpAdd OpKind = iota
	// OpDelete removes its blocks on commit
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Operation is one uncommitted mutation. Index is the chain position of
// the first block at the time the operation was recorded, used as the
// persistence position hint.
type Operation struct {
	Kind   OpKind
	Blocks []*Block
	Index  int
}

// Pending returns a copy of the uncommitted operations in record order
func (c *Chain) Pending() []Operation {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	return append([]Operation(nil), c.pending...)
}

func (c *Chain) record(op Operation) {
	c.pendMu.Lock()
	defer c.pendMu.Unlock()
	c.pending = append(c.pending, op)
}
