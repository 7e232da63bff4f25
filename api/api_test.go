package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashlink/core/chain"
	"github.com/hashlink/core/config"
	"github.com/hashlink/core/hash"
	"github.com/hashlink/core/store/memorystore"
)

func instant(b []byte) hash.Digest {
	d := hash.SHA256(b)
	d[len(d)-2], d[len(d)-1] = 0, 0
	return d
}

func testAPI(t *testing.T, n int) *API {
	t.Helper()
	ctx := context.Background()
	c := chain.New("apitest", chain.WithChainHashFunc(instant), chain.WithStore(memorystore.New()))
	for i := 0; i < n; i++ {
		b, err := c.NewBlock(ctx, []byte{byte('a' + i)})
		require.NoError(t, err)
		require.NoError(t, c.Add(ctx, b))
	}
	return New(config.Defaults(), c)
}

func request(a *API, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.engine().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	a := testAPI(t, 2)
	rec := request(a, http.MethodGet, "/api/v1/status", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	s := jsonStatus{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	assert.Equal(t, "apitest", s.Name)
	assert.Equal(t, uint64(2), s.Height)
	assert.True(t, s.Valid)
	assert.NotEmpty(t, s.Head)
}

func TestGetBlock(t *testing.T) {
	a := testAPI(t, 2)
	head, err := a.chain.Head(context.Background())
	require.NoError(t, err)

	rec := request(a, http.MethodGet, "/api/v1/blocks/"+head.Digest.String(), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	b := jsonBlock{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, head.Digest.String(), b.Hash)
	assert.NotEmpty(t, b.BubbleBabble)

	rec = request(a, http.MethodGet, "/api/v1/blocks/nothex", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = request(a, http.MethodGet, "/api/v1/blocks/"+hash.SHA256([]byte("missing")).String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPosition(t *testing.T) {
	a := testAPI(t, 3)
	rec := request(a, http.MethodGet, "/api/v1/positions/0", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	b := jsonBlock{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	sentinel, err := hash.FromHex(b.Previous)
	require.NoError(t, err)
	assert.True(t, sentinel.IsSentinel())

	rec = request(a, http.MethodGet, "/api/v1/positions/99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddBlock(t *testing.T) {
	a := testAPI(t, 1)
	rec := request(a, http.MethodPost, "/api/v1/blocks", `{"data":"hello"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, uint64(2), a.chain.Height())
}

func TestVerify(t *testing.T) {
	a := testAPI(t, 2)
	rec := request(a, http.MethodGet, "/api/v1/verify?quick=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	out := map[string]bool{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out["valid"])
}

func TestDiff(t *testing.T) {
	a := testAPI(t, 3)
	blocks, err := a.chain.Blocks(context.Background())
	require.NoError(t, err)

	// a remote that only holds the genesis block is missing the rest
	body, err := json.Marshal([]jsonBlock{jsonize(blocks[0])})
	require.NoError(t, err)
	rec := request(a, http.MethodPost, "/api/v1/diff", string(body))
	assert.Equal(t, http.StatusOK, rec.Code)
	out := []*jsonBlock{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 3)
	assert.Nil(t, out[0])
	require.NotNil(t, out[1])
	assert.Equal(t, blocks[1].Digest.String(), out[1].Hash)
	require.NotNil(t, out[2])
	assert.Equal(t, blocks[2].Digest.String(), out[2].Hash)
}

func TestRollbackAndCommit(t *testing.T) {
	a := testAPI(t, 3)
	g, err := a.chain.GetIndex(context.Background(), 0)
	require.NoError(t, err)

	rec := request(a, http.MethodPost, "/api/v1/rollback", `{"target":"`+g.Digest.String()+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1), a.chain.Height())

	rec = request(a, http.MethodPost, "/api/v1/commit", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, a.chain.Pending())

	// a second rollback has nothing left to undo
	rec = request(a, http.MethodPost, "/api/v1/rollback", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
