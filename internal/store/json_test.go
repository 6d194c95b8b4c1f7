package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/inkwell/internal/chain"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

func TestDecodeLegacy(t *testing.T) {
	data := []byte(`[
  {"id": 1700000000002, "timestamp": 1700000000002, "content": "B", "documentType": "post", "slug": "hello"},
  {"id": "v1", "timestamp": "2023-11-14T22:13:20Z", "content": "A", "documentType": "post", "slug": "hello", "summary": "first"}
]`)
	rec, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, rec.Format)
	require.Len(t, rec.Legacy, 2)
	assert.Equal(t, "1700000000002", rec.Legacy[0].ID)
	assert.Equal(t, int64(1700000000002), rec.Legacy[0].Timestamp)
	assert.Equal(t, "v1", rec.Legacy[1].ID)
	assert.Equal(t, int64(1700000000000), rec.Legacy[1].Timestamp)
	assert.Equal(t, "first", rec.Legacy[1].Summary)
}

func TestDecodeEmptyLegacyArray(t *testing.T) {
	rec, err := Decode([]byte("  []\n"))
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, rec.Format)
	assert.Empty(t, rec.Legacy)
}

func TestDecodeBlank(t *testing.T) {
	rec, err := Decode([]byte(" \n"))
	require.NoError(t, err)
	assert.Equal(t, FormatEmpty, rec.Format)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown format version", `{"formatVersion": 3, "usesDelta": true, "entries": []}`},
		{"missing format version", `{"entries": []}`},
		{"scalar", `"hello"`},
		{"broken array", `[{"id": }]`},
		{"broken object", `{"formatVersion": 2,`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data))
			assert.ErrorIs(t, err, types.ErrUnsupportedFormat)
		})
	}
}

func TestEncodeDecodeChain(t *testing.T) {
	e := chain.New()
	c := e.ConvertLegacy([]types.LegacyEntry{
		{ID: "v3", Timestamp: 3, Content: "line one\nline two\n", DocumentType: types.DocumentPost, Slug: "s"},
		{ID: "v2", Timestamp: 2, Content: "line one\n", DocumentType: types.DocumentPost, Slug: "s", Summary: "edit"},
		{ID: "v1", Timestamp: 1, Content: "", DocumentType: types.DocumentPost, Slug: "s"},
	})

	data, err := Encode(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"formatVersion": 2`)
	assert.Contains(t, string(data), `"usesDelta": true`)
	assert.Contains(t, string(data), `"patchText"`)
	assert.Contains(t, string(data), `"fullContent": ""`)

	rec, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, FormatCurrent, rec.Format)
	assert.Equal(t, c, rec.Chain)

	for _, id := range []string{"v1", "v2", "v3"} {
		_, err := e.Reconstruct(rec.Chain, id)
		assert.NoError(t, err, id)
	}
}

func TestReadWriteChain(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	e := chain.New()

	_, _, err = ReadChain(s, e, "absent")
	assert.True(t, IsNotFound(err))

	require.NoError(t, s.Put("legacy", []byte(`[{"id":"b","timestamp":2,"content":"B","documentType":"page","slug":"legacy"},{"id":"a","timestamp":1,"content":"A","documentType":"page","slug":"legacy"}]`)))
	c, format, err := ReadChain(s, e, "legacy")
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, format)
	require.Len(t, c, 2)
	assert.True(t, c[1].IsBase)

	require.NoError(t, WriteChain(s, "legacy", c))
	c2, format, err := ReadChain(s, e, "legacy")
	require.NoError(t, err)
	assert.Equal(t, FormatCurrent, format)
	assert.Equal(t, c, c2)

	got, err := e.Reconstruct(c2, "b")
	require.NoError(t, err)
	assert.Equal(t, "B", got)
}
