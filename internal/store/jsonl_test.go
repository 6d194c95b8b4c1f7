package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONLMissingFile(t *testing.T) {
	recs, err := ReadJSONL(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestJSONLRoundTripSkipsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "documents.jsonl")
	require.NoError(t, WriteJSONL(path, []json.RawMessage{
		json.RawMessage(`{"id":"a"}`),
		json.RawMessage(`{"id":"b"}`),
	}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n\n{\"id\":\"c\"}\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	recs, err := ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.JSONEq(t, `{"id":"c"}`, string(recs[2]))
}

func TestWriteFileAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.json")
	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}
