package delta

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// recorder collects integrity warnings.
type recorder struct {
	warnings []Warning
}

func (r *recorder) IntegrityWarning(w Warning) {
	r.warnings = append(r.warnings, w)
}

func numberedLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	return b.String()
}

func TestRoundTrip(t *testing.T) {
	long := numberedLines(40)
	tests := []struct {
		name string
		old  string
		new  string
	}{
		{name: "empty to text", old: "", new: "Hello"},
		{name: "text to empty", old: "Hello", new: ""},
		{name: "append word", old: "Hello", new: "Hello world"},
		{name: "add trailing newline", old: "a\nb", new: "a\nb\n"},
		{name: "drop trailing newline", old: "a\nb\n", new: "a\nb"},
		{name: "only newlines", old: "\n\n\n", new: "\n"},
		{name: "crlf endings", old: "a\r\nb\r\nc\r\n", new: "a\r\nB\r\nc\r\n"},
		{name: "lines that look like headers", old: "--- a\n+++ b\n@@ x\n", new: "-- a\n++ b\n@@ y\n"},
		{name: "unicode", old: "naïve café\nżółw\n", new: "naïve café\nżółwie 🐢\n"},
		{name: "middle edit in long text", old: long, new: strings.Replace(long, "line 20\n", "line twenty\n", 1)},
		{name: "multiple hunks", old: long, new: strings.Replace(strings.Replace(long, "line 2\n", "", 1), "line 38\n", "line 38\nextra\n", 1)},
		{name: "full rewrite", old: "one\ntwo\nthree", new: "uno\ndos\ntres\ncuatro"},
		{name: "yaml to toml front matter", old: "---\ntitle: x\n---\nbody\n", new: "+++\ntitle = \"x\"\n+++\nbody\n"},
		{name: "removed dashes next to added pluses", old: "intro\n-- x\nend\n", new: "intro\n++ y\nend\n"},
		{name: "removed header pair", old: "-- a\n++ b\nrest\n", new: "rest\n"},
		{name: "hunk marker and backslash lines", old: "@@ -1 +1 @@\n\\ No newline\nx\n", new: "@@ -2 +2 @@\n\\ No newline\ny\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			c := New(types.DefaultContextLines, rec)

			p := c.Create(tt.old, tt.new)
			assert.Equal(t, len(tt.old), p.SourceLength)
			assert.Equal(t, len(tt.new), p.TargetLength)
			assert.NotEmpty(t, p.Patch)

			got, err := c.Apply(tt.old, p)
			require.NoError(t, err)
			assert.Equal(t, tt.new, got)
			assert.Empty(t, rec.warnings)
		})
	}
}

func TestIdenticalContentProducesEmptyPatch(t *testing.T) {
	rec := &recorder{}
	c := New(0, rec)

	p := c.Create("abc", "abc")
	assert.Equal(t, "", p.Patch)
	assert.Equal(t, 3, p.SourceLength)
	assert.Equal(t, 3, p.TargetLength)

	got, err := c.Apply("abc", p)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
	assert.Empty(t, rec.warnings)
}

func TestPackageLevelHelpers(t *testing.T) {
	p := Create("Hello", "Hello world")
	got, err := Apply("Hello", p)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got)
}

func TestApplyWithOffsetWarnsButSucceeds(t *testing.T) {
	old := numberedLines(20)
	updated := strings.Replace(old, "line 15\n", "line fifteen\n", 1)
	p := Create(old, updated)

	rec := &recorder{}
	c := New(0, rec)
	drifted := "preface\nmore preface\n" + old

	got, err := c.Apply(drifted, p)
	require.NoError(t, err)
	assert.Equal(t, "preface\nmore preface\n"+updated, got)

	require.Len(t, rec.warnings, 2)
	assert.Equal(t, SourceLengthMismatch, rec.warnings[0].Kind)
	assert.Equal(t, len(old), rec.warnings[0].Expected)
	assert.Equal(t, len(drifted), rec.warnings[0].Actual)
	assert.Equal(t, TargetLengthMismatch, rec.warnings[1].Kind)
	assert.Contains(t, rec.warnings[1].String(), "target-length")
}

func TestApplyTargetLengthMismatchIsNonFatal(t *testing.T) {
	p := Create("a\nb\n", "a\nc\n")
	p.TargetLength = 99

	rec := &recorder{}
	got, err := New(0, rec).Apply("a\nb\n", p)
	require.NoError(t, err)
	assert.Equal(t, "a\nc\n", got)
	require.Len(t, rec.warnings, 1)
	assert.Equal(t, TargetLengthMismatch, rec.warnings[0].Kind)
	assert.Equal(t, 99, rec.warnings[0].Expected)
}

func TestApplyFailures(t *testing.T) {
	valid := Create("alpha\nbeta\ngamma\n", "alpha\nBETA\ngamma\n")
	tests := []struct {
		name    string
		content string
		patch   types.DeltaPatch
	}{
		{
			name:    "context missing",
			content: "something else entirely\n",
			patch:   valid,
		},
		{
			name:    "garbage patch text",
			content: "alpha\n",
			patch:   types.DeltaPatch{Patch: "not a diff\n"},
		},
		{
			name:    "truncated hunk body",
			content: "alpha\nbeta\n",
			patch:   types.DeltaPatch{Patch: "@@ -1,2 +1,2 @@\n alpha\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.content, tt.patch)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrPatchApplyFailed)
			assert.Empty(t, got)
		})
	}
}

func TestObserverFunc(t *testing.T) {
	var kinds []WarningKind
	c := New(0, ObserverFunc(func(w Warning) { kinds = append(kinds, w.Kind) }))

	p := c.Create("x", "y")
	_, err := c.Apply("xx\n", types.DeltaPatch{Patch: p.Patch, SourceLength: 1, TargetLength: 1})
	// The hunk expects "x" so the drifted content cannot be patched, but the
	// source check runs first.
	require.ErrorIs(t, err, types.ErrPatchApplyFailed)
	assert.Equal(t, []WarningKind{SourceLengthMismatch}, kinds)
}

func TestStat(t *testing.T) {
	p := Create("a\nb\nc\n", "a\nB\nc\nd\n")
	added, removed, err := Stat(p)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, removed)

	added, removed, err = Stat(types.DeltaPatch{})
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Zero(t, removed)
}

func TestSplitJoinInverse(t *testing.T) {
	for _, s := range []string{"", "a", "a\n", "\n", "a\nb", "a\r\nb\r\n"} {
		assert.Equal(t, s, joinLines(splitLines(s)), "input %q", s)
	}
}

// diffLikeLines are line bodies that collide with unified diff syntax once
// prefixed with ' ', '-' or '+'.
var diffLikeLines = []string{
	"", "-", "+", "--", "++", "---", "+++", "-- x", "++ y", "--- a", "+++ b",
	"@@", "@@ -1 +1 @@", "\\", "\\ No newline at end of file", " ", "\r", "x\r",
	"plain", "title: x", "title = \"x\"",
}

// randomDocument joins n lines drawn from diffLikeLines, sometimes without a
// trailing newline.
func randomDocument(r *rand.Rand, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(diffLikeLines[r.IntN(len(diffLikeLines))])
		b.WriteByte('\n')
	}
	s := b.String()
	if r.IntN(3) == 0 {
		s = strings.TrimSuffix(s, "\n")
	}
	return s
}

func TestRoundTripDiffLikeLines(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	c := New(types.DefaultContextLines, nil)

	for i := 0; i < 2000; i++ {
		old := randomDocument(r, r.IntN(12))
		updated := randomDocument(r, r.IntN(12))
		p := c.Create(old, updated)
		got, err := c.Apply(old, p)
		require.NoError(t, err, "old %q new %q", old, updated)
		require.Equal(t, updated, got, "old %q new %q", old, updated)
	}
}

func FuzzRoundTrip(f *testing.F) {
	f.Add("---\ntitle: x\n---\nbody\n", "+++\ntitle = \"x\"\n+++\nbody\n")
	f.Add("-- a\n++ b\n", "++ b\n-- a\n")
	f.Add("@@ -1 +1 @@\n", "\\ No newline at end of file\n")
	f.Add("a\r\nb\r\n", "a\r\nc")
	f.Add("", "x")

	f.Fuzz(func(t *testing.T, old, updated string) {
		c := New(0, nil)
		got, err := c.Apply(old, c.Create(old, updated))
		if err != nil {
			t.Fatalf("apply: %v (old %q new %q)", err, old, updated)
		}
		if got != updated {
			t.Fatalf("round trip: got %q, want %q", got, updated)
		}
	})
}
