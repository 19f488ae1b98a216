package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string
	Counts map[string]int
}

func TestSaveLoadGob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.gob")
	in := sample{Name: "contents", Counts: map[string]int{"word": 6}}
	require.NoError(t, SaveGob(path, in))

	var out sample
	require.NoError(t, LoadGob(path, &out))
	assert.Equal(t, in, out)

	// Overwrite leaves no temporary files behind
	require.NoError(t, SaveGob(path, sample{Name: "other"}))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLoadGob_Missing(t *testing.T) {
	var out sample
	err := LoadGob(filepath.Join(t.TempDir(), "missing.gob"), &out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadGob_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.gob")
	require.NoError(t, os.WriteFile(path, []byte("not gob"), 0600))
	var out sample
	err := LoadGob(path, &out)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, os.ErrNotExist)
}
