package delta

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// hunk is one decoded patch hunk. start is the 0-based line index in the
// source where old begins.
type hunk struct {
	start   int
	old     []string
	new     []string
	added   int
	removed int
}

// parseHunks validates the patch and decodes hunk ranges with go-diff. Hunk
// bodies are sliced from the raw text so that carriage returns and lines
// that look like file headers survive unchanged.
func parseHunks(patch string) ([]hunk, error) {
	patch = stripFileHeader(patch)
	parsed, err := diff.ParseHunks(headerSkeleton(patch))
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, errors.New("no hunks in patch")
	}

	raw := strings.SplitAfter(patch, "\n")
	hunks := make([]hunk, 0, len(parsed))
	i := 0
	for n, ph := range parsed {
		for i < len(raw) && !strings.HasPrefix(raw[i], "@@ ") {
			i++
		}
		if i == len(raw) {
			return nil, fmt.Errorf("hunk %d: header not found", n+1)
		}
		i++

		h := hunk{start: int(ph.OrigStartLine) - 1}
		if ph.OrigLines == 0 {
			// Empty ranges name the line before the insertion point.
			h.start = int(ph.OrigStartLine)
		}
		origLeft, newLeft := int(ph.OrigLines), int(ph.NewLines)
		for origLeft > 0 || newLeft > 0 {
			if i >= len(raw) || raw[i] == "" {
				return nil, fmt.Errorf("hunk %d: truncated body", n+1)
			}
			line := raw[i]
			i++
			body := line[1:]
			switch line[0] {
			case ' ':
				h.old = append(h.old, body)
				h.new = append(h.new, body)
				origLeft--
				newLeft--
			case '-':
				h.old = append(h.old, body)
				h.removed++
				origLeft--
			case '+':
				h.new = append(h.new, body)
				h.added++
				newLeft--
			case '\\':
				// "\ No newline at end of file" carries no content.
			default:
				return nil, fmt.Errorf("hunk %d: unexpected line %q", n+1, strings.TrimSuffix(line, "\n"))
			}
			if origLeft < 0 || newLeft < 0 {
				return nil, fmt.Errorf("hunk %d: body longer than header ranges", n+1)
			}
		}
		hunks = append(hunks, h)
	}
	return hunks, nil
}

// headerSkeleton keeps the "@@" lines of patch and cuts every body line
// down to its one-byte prefix. go-diff then sees the same hunk ranges but
// cannot mistake body lines such as "----" followed by "+++ x" for the file
// header of a following diff.
func headerSkeleton(patch string) []byte {
	var b strings.Builder
	b.Grow(len(patch))
	for _, line := range strings.SplitAfter(patch, "\n") {
		switch {
		case line == "":
		case strings.HasPrefix(line, "@@"):
			b.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				b.WriteByte('\n')
			}
		case line[0] == '\\':
			b.WriteString("\\ No newline at end of file\n")
		default:
			b.WriteByte(line[0])
			b.WriteByte('\n')
		}
	}
	return []byte(b.String())
}

// stripFileHeader drops any "---"/"+++" lines before the first hunk header.
func stripFileHeader(patch string) string {
	if strings.HasPrefix(patch, "@@ ") {
		return patch
	}
	if i := strings.Index(patch, "\n@@ "); i >= 0 {
		return patch[i+1:]
	}
	return patch
}

// applyPatch applies patch to content. Each hunk is tried at its recorded
// position shifted by the drift of the previous hunk, then at increasing
// distances from it. Hunks never overlap or move backwards.
func applyPatch(content, patch string) (string, error) {
	if patch == "" {
		return content, nil
	}
	hunks, err := parseHunks(patch)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrPatchApplyFailed, err)
	}

	lines := splitLines(content)
	out := make([]string, 0, len(lines))
	cursor, offset := 0, 0
	for n, h := range hunks {
		pos := locate(lines, h.old, h.start+offset, cursor)
		if pos < 0 {
			return "", fmt.Errorf("%w: hunk %d at line %d: context not found", types.ErrPatchApplyFailed, n+1, h.start+1)
		}
		out = append(out, lines[cursor:pos]...)
		out = append(out, h.new...)
		cursor = pos + len(h.old)
		offset = pos - h.start
	}
	out = append(out, lines[cursor:]...)
	return joinLines(out), nil
}

// locate returns the index nearest to want, not below floor, at which lines
// contains old, or -1.
func locate(lines, old []string, want, floor int) int {
	last := len(lines) - len(old)
	if last < floor {
		return -1
	}
	want = min(max(want, floor), last)
	for d := 0; ; d++ {
		lo, hi := want-d, want+d
		if lo < floor && hi > last {
			return -1
		}
		if lo >= floor && matchAt(lines, old, lo) {
			return lo
		}
		if d > 0 && hi <= last && matchAt(lines, old, hi) {
			return hi
		}
	}
}

func matchAt(lines, old []string, at int) bool {
	for i, l := range old {
		if lines[at+i] != l {
			return false
		}
	}
	return true
}
