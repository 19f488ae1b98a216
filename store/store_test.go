package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-corpus-engine/model"
)

func openMemoryBackend(t *testing.T) *Backend {
	t.Helper()
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return backend
}

func TestOpenBackend(t *testing.T) {
	backend, err := OpenBackend(filepath.Join(t.TempDir(), "store"), false, nil)
	require.NoError(t, err)
	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}

func TestForwardIndex(t *testing.T) {
	ctx := context.Background()
	fi := NewForwardIndex(openMemoryBackend(t))

	values := [][]string{{"The"}, {"cat"}, {"sat", "sits"}, {"down"}}
	require.NoError(t, fi.Put(ctx, 7, "contents%word", values))
	require.NoError(t, fi.PutAll(ctx, 8, map[string][][]string{
		"contents%word":  {{"Hi"}},
		"contents%lemma": {{"hi"}},
	}))

	tests := []struct {
		name       string
		doc        uint32
		annotation string
		start, end int
		want       [][]string
	}{
		{"full range", 7, "contents%word", 0, -1, values},
		{"window", 7, "contents%word", 1, 3, [][]string{{"cat"}, {"sat", "sits"}}},
		{"clamped", 7, "contents%word", -4, 100, values},
		{"empty window", 7, "contents%word", 3, 3, nil},
		{"other document", 8, "contents%lemma", 0, 1, [][]string{{"hi"}}},
		{"missing annotation", 7, "contents%pos", 0, -1, nil},
		{"missing document", 99, "contents%word", 0, -1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fi.Get(ctx, tt.doc, tt.annotation, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	n, err := fi.Length(ctx, 7, "contents%word")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, fi.Delete(ctx, 7))
	got, err := fi.Get(ctx, 7, "contents%word", 0, -1)
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = fi.Get(ctx, 8, "contents%word", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Hi"}}, got, "other documents are kept")
}

func TestContentStore(t *testing.T) {
	ctx := context.Background()
	cs := NewContentStore(openMemoryBackend(t))

	markup := []string{`<w>The</w>`, `<w>cat</w>`}
	require.NoError(t, cs.PutTokens(ctx, 1, "contents", markup))
	require.NoError(t, cs.PutDocument(ctx, 1, `<doc><w>The</w> <w>cat</w></doc>`))

	got, err := cs.Tokens(ctx, 1, "contents", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{`<w>cat</w>`}, got)

	doc, found, err := cs.Document(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Contains(t, doc, "<doc>")

	require.NoError(t, cs.Delete(ctx, 1))
	_, found, err = cs.Document(ctx, 1)
	require.NoError(t, err)
	assert.False(t, found)
	got, err = cs.Tokens(ctx, 1, "contents", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDocumentStore(t *testing.T) {
	ds := NewDocumentStore()

	id1, _, replaced := ds.Add(&model.DocumentInfo{PID: "a", Metadata: map[string][]string{"title": {"First"}}})
	assert.False(t, replaced)
	id2, _, _ := ds.Add(&model.DocumentInfo{})
	assert.NotEqual(t, id1, id2)

	info, ok := ds.Get(id2)
	require.True(t, ok)
	assert.Equal(t, "doc-1", info.PID, "documents without pid get a generated one")

	id3, old, replaced := ds.Add(&model.DocumentInfo{PID: "a"})
	assert.True(t, replaced)
	assert.Equal(t, id1, old)
	_, ok = ds.Get(id1)
	assert.False(t, ok)
	byPID, ok := ds.ByPID("a")
	require.True(t, ok)
	assert.Equal(t, id3, byPID.DocID)
	assert.Equal(t, 2, ds.Count())

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(ds))
	decoded := &DocumentStore{}
	require.NoError(t, gob.NewDecoder(&buf).Decode(decoded))
	assert.Equal(t, ds.NextID, decoded.NextID)
	assert.Len(t, decoded.All(), 2)

	deleted, ok := decoded.Delete("a")
	assert.True(t, ok)
	assert.Equal(t, id3, deleted)
	assert.Equal(t, 1, decoded.Count())
}
