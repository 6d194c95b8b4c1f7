// Package delta computes and applies unified-diff patches between two text
// contents. Patches are produced with go-difflib and their hunk headers are
// decoded with sourcegraph/go-diff. Application tolerates hunks that moved
// (offset matching) and reports length drift to an Observer instead of
// failing.
package delta

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// WarningKind names the integrity check that failed.
type WarningKind string

// Integrity warning kinds.
const (
	SourceLengthMismatch WarningKind = "source-length"
	TargetLengthMismatch WarningKind = "target-length"
)

// Warning is a non-fatal integrity finding raised while applying a patch.
type Warning struct {
	Kind     WarningKind
	Expected int
	Actual   int
}

func (w Warning) String() string {
	return fmt.Sprintf("%s mismatch: expected %d bytes, got %d", w.Kind, w.Expected, w.Actual)
}

// Observer receives integrity warnings.
type Observer interface {
	IntegrityWarning(w Warning)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(w Warning)

// IntegrityWarning calls f(w).
func (f ObserverFunc) IntegrityWarning(w Warning) { f(w) }

// Codec creates and applies patches. The zero value uses the default context
// window and discards warnings. A Codec is safe for concurrent use if its
// Observer is.
type Codec struct {
	ContextLines int
	Observer     Observer
}

// New returns a Codec with the given context window and observer.
func New(contextLines int, observer Observer) Codec {
	return Codec{ContextLines: contextLines, Observer: observer}
}

var defaultCodec Codec

// Create computes the patch turning oldContent into newContent using the
// default context window.
func Create(oldContent, newContent string) types.DeltaPatch {
	return defaultCodec.Create(oldContent, newContent)
}

// Apply applies p to content with a Codec that discards warnings.
func Apply(content string, p types.DeltaPatch) (string, error) {
	return defaultCodec.Apply(content, p)
}

func (c Codec) contextLines() int {
	if c.ContextLines <= 0 {
		return types.DefaultContextLines
	}
	return c.ContextLines
}

func (c Codec) warn(kind WarningKind, expected, actual int) {
	if c.Observer == nil {
		return
	}
	c.Observer.IntegrityWarning(Warning{Kind: kind, Expected: expected, Actual: actual})
}

// Create computes the patch turning oldContent into newContent. Identical
// contents produce an empty patch text.
func (c Codec) Create(oldContent, newContent string) types.DeltaPatch {
	p := types.DeltaPatch{
		SourceLength: len(oldContent),
		TargetLength: len(newContent),
	}
	if oldContent == newContent {
		return p
	}
	// Writing to an in-memory buffer cannot fail.
	text, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:       splitLines(oldContent),
		B:       splitLines(newContent),
		Context: c.contextLines(),
	})
	p.Patch = stripFileHeader(text)
	return p
}

// Apply applies p to content. A source or target length mismatch is reported
// to the Observer and does not fail the call. A hunk that cannot be located
// returns an error matching types.ErrPatchApplyFailed and no content.
func (c Codec) Apply(content string, p types.DeltaPatch) (string, error) {
	if len(content) != p.SourceLength {
		c.warn(SourceLengthMismatch, p.SourceLength, len(content))
	}

	result, err := applyPatch(content, p.Patch)
	if err != nil {
		return "", err
	}

	if len(result) != p.TargetLength {
		c.warn(TargetLengthMismatch, p.TargetLength, len(result))
	}
	return result, nil
}

// Stat returns the number of added and removed lines in p.
func Stat(p types.DeltaPatch) (added, removed int, err error) {
	if p.Patch == "" {
		return 0, 0, nil
	}
	hunks, err := parseHunks(p.Patch)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", types.ErrPatchApplyFailed, err)
	}
	for _, h := range hunks {
		added += h.added
		removed += h.removed
	}
	return added, removed, nil
}

// splitLines splits s the way difflib does: every line keeps its newline and
// the last line gets one appended, so joinLines(splitLines(s)) == s for any s.
func splitLines(s string) []string {
	return difflib.SplitLines(s)
}

func joinLines(lines []string) string {
	return strings.TrimSuffix(strings.Join(lines, ""), "\n")
}
