package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/inkwell/internal/chain"
	"github.com/mesh-intelligence/inkwell/internal/registry"
	"github.com/mesh-intelligence/inkwell/internal/store"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

const legacyHello = `[
  {"id": 2, "timestamp": 2000, "content": "v2", "documentType": "post", "slug": "hello"},
  {"id": 1, "timestamp": 1000, "content": "v1", "documentType": "post", "slug": "hello"}
]`

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func detailFor(t *testing.T, r types.MigrationReport, key string) types.MigrationDetail {
	t.Helper()
	for _, d := range r.Details {
		if d.Key == key {
			return d
		}
	}
	t.Fatalf("no detail for %s", key)
	return types.MigrationDetail{}
}

func seedIdentityStore(t *testing.T) (store.Store, *registry.Memory, []byte) {
	t.Helper()
	s := newStore(t)
	e := chain.New()

	require.NoError(t, s.Put("hello", []byte(legacyHello)))
	require.NoError(t, s.Put("about", []byte(legacyHello)))
	require.NoError(t, s.Put("orphan", []byte(legacyHello)))
	require.NoError(t, s.Put("blank", []byte(`[]`)))
	require.NoError(t, s.Put("broken", []byte(`{"formatVersion": 9}`)))

	existing := e.ConvertLegacy([]types.LegacyEntry{{ID: "x", Timestamp: 5, Content: "kept", DocumentType: types.DocumentPage, Slug: "about"}})
	require.NoError(t, store.WriteChain(s, "doc_about", existing))
	before, err := s.Get("doc_about")
	require.NoError(t, err)

	reg := registry.NewMemory(
		types.Document{ID: "doc_hello", Slug: "hello"},
		types.Document{ID: "doc_about", Slug: "about"},
		types.Document{ID: "doc_blank", Slug: "blank"},
		types.Document{ID: "doc_broken", Slug: "broken"},
	)
	return s, reg, before
}

func TestKeysToIDs(t *testing.T) {
	s, reg, before := seedIdentityStore(t)
	e := chain.New()

	report, err := KeysToIDs(s, reg, e, Options{IDPrefixes: []string{"doc_"}})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 4, report.Skipped)
	assert.Equal(t, 1, report.Failed)

	hello := detailFor(t, report, "hello")
	assert.Equal(t, types.StatusMigrated, hello.Status)
	assert.Equal(t, "doc_hello", hello.TargetKey)
	assert.Equal(t, 2, hello.Entries)

	assert.Equal(t, types.SkipIDHistoryExists, detailFor(t, report, "about").Reason)
	assert.Equal(t, types.SkipNoArticleID, detailFor(t, report, "orphan").Reason)
	assert.Equal(t, types.SkipEmptyHistory, detailFor(t, report, "blank").Reason)
	assert.Equal(t, types.SkipAlreadyID, detailFor(t, report, "doc_about").Reason)
	assert.Equal(t, types.StatusFailed, detailFor(t, report, "broken").Status)

	// The target holds a current-format chain and the slug record remains.
	c, format, err := store.ReadChain(s, e, "doc_hello")
	require.NoError(t, err)
	assert.Equal(t, store.FormatCurrent, format)
	got, err := e.Reconstruct(c, "2")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	ok, err := s.Exists("hello")
	require.NoError(t, err)
	assert.True(t, ok)

	after, err := s.Get("doc_about")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestKeysToIDsIsIdempotent(t *testing.T) {
	s, reg, _ := seedIdentityStore(t)
	e := chain.New()

	_, err := KeysToIDs(s, reg, e, Options{IDPrefixes: []string{"doc_"}})
	require.NoError(t, err)
	written, err := s.Get("doc_hello")
	require.NoError(t, err)

	report, err := KeysToIDs(s, reg, e, Options{IDPrefixes: []string{"doc_"}})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Migrated)
	assert.Equal(t, types.SkipIDHistoryExists, detailFor(t, report, "hello").Reason)

	again, err := s.Get("doc_hello")
	require.NoError(t, err)
	assert.Equal(t, written, again)
}

func TestKeysToIDsDryRunMatchesRealRun(t *testing.T) {
	dryStore, reg, _ := seedIdentityStore(t)
	realStore, _, _ := seedIdentityStore(t)
	e := chain.New()

	dry, err := KeysToIDs(dryStore, reg, e, Options{DryRun: true, IDPrefixes: []string{"doc_"}})
	require.NoError(t, err)
	real, err := KeysToIDs(realStore, reg, e, Options{IDPrefixes: []string{"doc_"}})
	require.NoError(t, err)

	assert.True(t, dry.DryRun)
	assert.Equal(t, real.Migrated, dry.Migrated)
	assert.Equal(t, real.Skipped, dry.Skipped)
	assert.Equal(t, real.Failed, dry.Failed)
	require.Len(t, dry.Details, len(real.Details))
	for i := range real.Details {
		assert.Equal(t, real.Details[i].Status, dry.Details[i].Status)
		assert.Equal(t, real.Details[i].Reason, dry.Details[i].Reason)
	}

	ok, err := dryStore.Exists("doc_hello")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFormat(t *testing.T) {
	s := newStore(t)
	e := chain.New()

	require.NoError(t, s.Put("hello", []byte(legacyHello)))
	require.NoError(t, s.Put("blank", []byte("[]")))
	require.NoError(t, s.Put("junk", []byte("<html>")))
	current := e.ConvertLegacy([]types.LegacyEntry{{ID: "a", Content: "A", DocumentType: types.DocumentPost, Slug: "done"}})
	require.NoError(t, store.WriteChain(s, "done", current))

	dry, err := Format(s, e, Options{DryRun: true})
	require.NoError(t, err)
	raw, err := s.Get("hello")
	require.NoError(t, err)
	assert.Equal(t, legacyHello, string(raw))

	report, err := Format(s, e, Options{})
	require.NoError(t, err)
	assert.Equal(t, dry.Migrated, report.Migrated)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, types.SkipAlreadyCurrent, detailFor(t, report, "done").Reason)
	assert.Equal(t, types.SkipEmptyHistory, detailFor(t, report, "blank").Reason)

	c, format, err := store.ReadChain(s, e, "hello")
	require.NoError(t, err)
	assert.Equal(t, store.FormatCurrent, format)
	for id, want := range map[string]string{"1": "v1", "2": "v2"} {
		got, err := e.Reconstruct(c, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	second, err := Format(s, e, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Migrated)
}

func TestCompact(t *testing.T) {
	s := newStore(t)
	e := chain.New(chain.WithMaxChainLength(10))

	var c types.Chain
	contents := map[string]string{}
	for i := 0; i < 6; i++ {
		content := strings.Repeat("a stable line of body text\n", 40) + fmt.Sprintf("edit %d\n", i)
		res, err := e.Append(c, types.Snapshot{ID: string(rune('A' + i)), DocumentType: types.DocumentPost, Slug: "long", Content: content})
		require.NoError(t, err)
		c = res.Chain
		contents[res.Entry.ID] = content
	}
	require.Equal(t, 5, c.HeadRun())
	require.NoError(t, store.WriteChain(s, "long", c))
	short := e.ConvertLegacy([]types.LegacyEntry{{ID: "z", Content: "Z", DocumentType: types.DocumentPage, Slug: "short"}})
	require.NoError(t, store.WriteChain(s, "short", short))

	report, err := Compact(s, e, 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, types.StatusCompacted, detailFor(t, report, "long").Status)
	assert.Equal(t, types.StatusUnchanged, detailFor(t, report, "short").Status)

	compacted, _, err := store.ReadChain(s, e, "long")
	require.NoError(t, err)
	for id, want := range contents {
		got, err := e.Reconstruct(compacted, id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	again, err := Compact(s, e, 2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Migrated)
}

func TestDriversReportInvalidKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".draft.json"), []byte(legacyHello), 0o644))
	require.NoError(t, s.Put("hello", []byte(legacyHello)))
	e := chain.New()

	ids, err := KeysToIDs(s, registry.NewMemory(types.Document{ID: "doc_hello", Slug: "hello"}), e, Options{IDPrefixes: []string{"doc_"}})
	require.NoError(t, err)
	format, err := Format(s, e, Options{DryRun: true})
	require.NoError(t, err)
	compact, err := Compact(s, e, 2, Options{DryRun: true})
	require.NoError(t, err)

	for name, report := range map[string]types.MigrationReport{"ids": ids, "format": format, "compact": compact} {
		d := detailFor(t, report, ".draft")
		assert.Equal(t, types.StatusSkipped, d.Status, name)
		assert.Equal(t, types.SkipInvalidSlug, d.Reason, name)
		assert.Zero(t, report.Failed, name)
	}
	assert.Equal(t, 1, ids.Migrated)
}

func TestKeysToIDsRefusesChainThatDoesNotVerify(t *testing.T) {
	s := newStore(t)
	e := chain.New()
	unreadable := types.Chain{
		{ID: "2", Timestamp: 2, DocumentType: types.DocumentPost, Slug: "draft"},
		types.NewBase("1", 1, types.DocumentPost, "draft", "", "first"),
	}
	require.NoError(t, store.WriteChain(s, "draft", unreadable))

	report, err := KeysToIDs(s, registry.NewMemory(types.Document{ID: "doc_draft", Slug: "draft"}), e, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, detailFor(t, report, "draft").Error, "does not verify")

	ok, err := s.Exists("doc_draft")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFormatKeepsLegacyThatDoesNotVerify(t *testing.T) {
	s := newStore(t)
	e := chain.New()
	duplicated := `[
  {"id": 1, "timestamp": 2000, "content": "second", "documentType": "post", "slug": "dup"},
  {"id": 1, "timestamp": 1000, "content": "first", "documentType": "post", "slug": "dup"}
]`
	require.NoError(t, s.Put("dup", []byte(duplicated)))

	report, err := Format(s, e, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, types.StatusFailed, detailFor(t, report, "dup").Status)

	raw, err := s.Get("dup")
	require.NoError(t, err)
	assert.Equal(t, duplicated, string(raw))
}
