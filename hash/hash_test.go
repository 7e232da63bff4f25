package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSealed(t *testing.T) {
	assert.True(t, Digest{0xde, 0xad, 0, 0}.Sealed())
	assert.False(t, Digest{0xde, 0xad, 0, 1}.Sealed())
	assert.False(t, Digest{0xde, 0xad, 1, 0}.Sealed())
	assert.False(t, Digest{0}.Sealed())
	assert.False(t, Digest{}.Sealed())
}

func TestSentinel(t *testing.T) {
	s := Sentinel(SHA256)
	assert.Len(t, s, 32)
	assert.True(t, s.IsSentinel())
	assert.False(t, Digest{}.IsSentinel())
	assert.False(t, SHA256([]byte("x")).IsSentinel())
}

func TestHexRoundtrip(t *testing.T) {
	d := SHA256([]byte("roundtrip"))
	r, err := FromHex(d.String())
	assert.NoError(t, err)
	assert.True(t, d.Equal(r))
	_, err = FromHex("not hex")
	assert.Error(t, err)
}

func TestFuncs(t *testing.T) {
	assert.Len(t, SHA256(nil), 32)
	assert.Len(t, Blake2b(nil), 32)
	assert.False(t, SHA256([]byte("a")).Equal(SHA256([]byte("b"))))
	assert.False(t, SHA256([]byte("a")).Equal(Blake2b([]byte("a"))))
}

func TestDiff(t *testing.T) {
	a := SHA256([]byte("a"))
	b := SHA256([]byte("b"))
	c := SHA256([]byte("c"))
	add, del := Diff([]Digest{a, b}, []Digest{b, c})
	assert.Len(t, add, 1)
	assert.True(t, add[0].Equal(c))
	assert.Len(t, del, 1)
	assert.True(t, del[0].Equal(a))

	add, del = Diff([]Digest{a}, []Digest{a})
	assert.Empty(t, add)
	assert.Empty(t, del)
}
