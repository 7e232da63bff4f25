package diskstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashlink/core/chain"
	"github.com/hashlink/core/hash"
)

func testBlocks(t *testing.T, n int) []*chain.Block {
	t.Helper()
	blocks := []*chain.Block{}
	prev := hash.Sentinel(hash.SHA256)
	for i := 0; i < n; i++ {
		b, err := chain.NewBlock([]byte{byte('a' + i)}, prev)
		require.NoError(t, err)
		blocks = append(blocks, b)
		prev = b.Digest
	}
	return blocks
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	blocks := testBlocks(t, 3)
	for i, b := range blocks {
		id, err := s.Persist(ctx, b, uint64(i))
		require.NoError(t, err)
		assert.Contains(t, id, b.Digest.String())
	}

	got, err := s.FindByHash(ctx, blocks[1].Digest)
	require.NoError(t, err)
	ok, err := got.Equals(blocks[1], false)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = s.FindByIndex(ctx, 2)
	require.NoError(t, err)
	assert.True(t, got.Digest.Equal(blocks[2].Digest))

	got, err = s.FindByPrevious(ctx, blocks[0].Digest)
	require.NoError(t, err)
	assert.True(t, got.Digest.Equal(blocks[1].Digest))

	_, err = s.FindByHash(ctx, hash.SHA256([]byte("missing")))
	assert.Equal(t, chain.ErrHashNotFound, err)
	_, err = s.FindByIndex(ctx, 9)
	assert.Equal(t, chain.ErrIndexNotFound, err)

	_, err = s.Delete(ctx, blocks[2].Digest)
	require.NoError(t, err)
	_, err = s.FindByHash(ctx, blocks[2].Digest)
	assert.Equal(t, chain.ErrHashNotFound, err)

	_, err = s.LoadMetadata(ctx, "main")
	assert.Equal(t, chain.ErrChainNotFound, err)
	require.NoError(t, s.SaveMetadata(ctx, chain.Metadata{Name: "main", Height: 2}))
	m, err := s.LoadMetadata(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, chain.Metadata{Name: "main", Height: 2}, m)
}

func TestChainRoundtrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	defer s.Close()

	c := chain.New("main", chain.WithStore(s))
	for _, data := range []string{"one", "two", "three"} {
		b, err := c.NewBlock(ctx, []byte(data))
		require.NoError(t, err)
		require.NoError(t, c.Add(ctx, b))
	}
	require.NoError(t, c.Commit(ctx))

	// a second store over the same directory sees the same chain
	reopened, err := New(dir)
	require.NoError(t, err)
	r, err := chain.Load(ctx, "main", reopened)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.Height())
	assert.True(t, r.Verify(ctx, false))
}
