package chain

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"text/template"

	log "github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack"

	"github.com/hashlink/core/hash"
)

// Block is a single mined unit of the chain. Data is opaque to the
// engine; Previous links to the predecessor by hash, or to the all-zero
// sentinel for the genesis block. Salt is fixed at creation and defeats
// precomputed nonce tables across blocks with identical payloads.
// Mutating fields directly invalidates Digest; use SetData/SetPrevious
// which re-mine.
type Block struct {
	Data     []byte      `json:"data" msgpack:"data"`
	Digest   hash.Digest `json:"hash" msgpack:"hash"`
	Nonce    uint64      `json:"nonce" msgpack:"nonce"`
	Previous hash.Digest `json:"previous" msgpack:"previous"`
	Salt     uint64      `json:"salt" msgpack:"salt"`

	fn      hash.Func
	saltSet bool
}

// Comparator decides block equality for Equals
type Comparator func(a, b *Block) bool

// BlockOption configures block construction
type BlockOption func(*Block)

// WithSalt fixes the salt instead of drawing a random one
func WithSalt(s uint64) BlockOption {
	return func(b *Block) {
		b.Salt = s
		b.saltSet = true
	}
}

// WithHashFunc selects the digest function, default is hash.SHA256
func WithHashFunc(f hash.Func) BlockOption {
	return func(b *Block) {
		b.fn = f
	}
}

var preimage = template.Must(template.New("block").Parse("D{{printf \"%x\" .Data}}N{{.Nonce}}P{{.Previous}}S{{.Salt}}"))

// NewBlock mines a block for the given payload and previous hash
func NewBlock(data []byte, previous hash.Digest, opts ...BlockOption) (*Block, error) {
	b := &Block{Data: data, Previous: previous}
	for _, o := range opts {
		o(b)
	}
	if b.fn == nil {
		b.fn = hash.SHA256
	}
	if !b.saltSet {
		s, err := randomSalt()
		if err != nil {
			return nil, err
		}
		b.Salt = s
	}
	if err := b.Mine(); err != nil {
		return nil, err
	}
	return b, nil
}

func randomSalt() (uint64, error) {
	var raw [8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(raw[:]), nil
}

func (b *Block) hashFunc() hash.Func {
	if b.fn == nil {
		return hash.SHA256
	}
	return b.fn
}

func (b *Block) sum() hash.Digest {
	w := &bytes.Buffer{}
	if err := preimage.Execute(w, b); err != nil {
		log.Error(err)
	}
	return b.hashFunc()(w.Bytes())
}

// Mine searches the smallest nonce whose hash ends in the difficulty
// suffix, starting from zero. The search is exhaustive, so re-mining
// identical inputs always finds the same nonce.
func (b *Block) Mine() error {
	return b.mine(math.MaxUint64)
}

func (b *Block) mine(limit uint64) error {
	for b.Nonce = 0; ; b.Nonce++ {
		if d := b.sum(); d.Sealed() {
			b.Digest = d
			return nil
		}
		if b.Nonce == limit {
			return ErrMiningExhausted
		}
	}
}

// SetData replaces the payload and re-mines
func (b *Block) SetData(data []byte) error {
	b.Data = data
	return b.Mine()
}

// SetPrevious replaces the predecessor link and re-mines
func (b *Block) SetPrevious(previous hash.Digest) error {
	b.Previous = previous
	return b.Mine()
}

// Verify checks block integrity. quick only confirms the difficulty
// suffix on the stored hash, which misses payload tampering that keeps
// the suffix intact. The full check recomputes the hash.
func (b *Block) Verify(quick bool) bool {
	if quick {
		return b.Digest.Sealed()
	}
	d := b.sum()
	return d.Sealed() && d.Equal(b.Digest)
}

// Equals compares two blocks. quick compares hashes only, the full
// comparison also matches payload bytes. A custom comparator replaces
// the default entirely.
func (b *Block) Equals(other *Block, quick bool, cmp ...Comparator) (bool, error) {
	if other == nil {
		return false, ErrInvalidArgument
	}
	if len(cmp) > 0 {
		return cmp[0](b, other), nil
	}
	if !b.Digest.Equal(other.Digest) {
		return false, nil
	}
	if quick {
		return true, nil
	}
	return bytes.Equal(b.Data, other.Data), nil
}

// Clone returns an independent copy of the block
func (b *Block) Clone() *Block {
	c := &Block{
		Data:     append([]byte(nil), b.Data...),
		Digest:   b.Digest.Clone(),
		Nonce:    b.Nonce,
		Previous: b.Previous.Clone(),
		Salt:     b.Salt,
		fn:       b.fn,
		saltSet:  b.saltSet,
	}
	return c
}

// Serialize converts the block to its at-rest form
func (b *Block) Serialize() ([]byte, error) {
	return msgpack.Marshal(b)
}

// Deserialize restores the block from its at-rest form
func (b *Block) Deserialize(data []byte) error {
	if err := msgpack.Unmarshal(data, b); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedBlock, err)
	}
	if len(b.Digest) == 0 || len(b.Previous) == 0 {
		return fmt.Errorf("%w: missing hash fields", ErrMalformedBlock)
	}
	return nil
}

// DecodeBlock restores a block from its at-rest form
func DecodeBlock(data []byte, opts ...BlockOption) (*Block, error) {
	b := &Block{}
	if err := b.Deserialize(data); err != nil {
		return nil, err
	}
	for _, o := range opts {
		o(b)
	}
	b.saltSet = true
	return b, nil
}
