package types

import (
	"errors"
	"fmt"
)

// FormatVersion is the persisted format tag written for delta chains.
const FormatVersion = 2

// DeltaPatch is an immutable unified-diff patch between two contents.
// SourceLength and TargetLength are byte counts of the un-diffed strings,
// used only as integrity checks.
type DeltaPatch struct {
	Patch        string
	SourceLength int
	TargetLength int
}

// VersionEntry is one node in a document's chain. A base entry carries
// FullContent and no Delta; a delta entry carries Delta and no FullContent.
type VersionEntry struct {
	ID           string       // Version identifier, unique within the chain.
	Timestamp    int64        // Unix milliseconds at write time.
	DocumentType DocumentType // post or page.
	Slug         string       // Slug at the time of write.
	Summary      string       // Optional change summary.
	IsBase       bool
	FullContent  *string
	Delta        *DeltaPatch
}

// Chain is the ordered version list of one document, newest first. A delta
// at position i transforms the content of entry i+1 into the content of
// entry i.
type Chain []VersionEntry

// Chain integrity errors. ErrNoBaseFound, ErrMissingDelta and
// ErrMissingContent all match ErrCorruptChain with errors.Is.
var (
	ErrCorruptChain     = errors.New("corrupt chain")
	ErrNoBaseFound      = fmt.Errorf("%w: no base entry", ErrCorruptChain)
	ErrMissingDelta     = fmt.Errorf("%w: delta entry without patch", ErrCorruptChain)
	ErrMissingContent   = fmt.Errorf("%w: base entry without content", ErrCorruptChain)
	ErrInvalidEntry     = fmt.Errorf("%w: invalid entry", ErrCorruptChain)
	ErrVersionNotFound  = errors.New("version not found")
	ErrPatchApplyFailed = errors.New("patch does not apply")
	ErrPatchFailed      = errors.New("reconstruction patch failed")
	ErrHistoryNotFound  = errors.New("history not found")
)

// ChainError reports a chain operation failure for a specific version.
// Err is one of the sentinels above; Cause is the underlying error, if any.
type ChainError struct {
	VersionID string
	Err       error
	Cause     error
}

func (e *ChainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("version %s: %v: %v", e.VersionID, e.Err, e.Cause)
	}
	return fmt.Sprintf("version %s: %v", e.VersionID, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// NewBase returns a base entry holding content.
func NewBase(id string, ts int64, docType DocumentType, slug, summary, content string) VersionEntry {
	return VersionEntry{
		ID:           id,
		Timestamp:    ts,
		DocumentType: docType,
		Slug:         slug,
		Summary:      summary,
		IsBase:       true,
		FullContent:  &content,
	}
}

// NewDelta returns a delta entry holding patch.
func NewDelta(id string, ts int64, docType DocumentType, slug, summary string, patch DeltaPatch) VersionEntry {
	return VersionEntry{
		ID:           id,
		Timestamp:    ts,
		DocumentType: docType,
		Slug:         slug,
		Summary:      summary,
		Delta:        &patch,
	}
}

// Validate checks the base/delta invariant of a single entry.
func (e VersionEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEntry)
	}
	if e.IsBase {
		if e.FullContent == nil {
			return &ChainError{VersionID: e.ID, Err: ErrMissingContent}
		}
		if e.Delta != nil {
			return &ChainError{VersionID: e.ID, Err: ErrInvalidEntry, Cause: errors.New("base entry carries a delta")}
		}
		return nil
	}
	if e.Delta == nil {
		return &ChainError{VersionID: e.ID, Err: ErrMissingDelta}
	}
	if e.FullContent != nil {
		return &ChainError{VersionID: e.ID, Err: ErrInvalidEntry, Cause: errors.New("delta entry carries full content")}
	}
	return nil
}

// AsBase returns a copy of e converted to a base entry holding content.
// Identity fields are preserved.
func (e VersionEntry) AsBase(content string) VersionEntry {
	e.IsBase = true
	e.FullContent = &content
	e.Delta = nil
	return e
}

// IndexOf returns the position of the entry with the given id, or -1.
func (c Chain) IndexOf(id string) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a copy of the chain. Entries are values; the content and
// delta pointers are shared, which is safe because neither is mutated.
func (c Chain) Clone() Chain {
	if c == nil {
		return nil
	}
	out := make(Chain, len(c))
	copy(out, c)
	return out
}

// HeadRun returns the number of consecutive delta entries at the newest end
// of the chain.
func (c Chain) HeadRun() int {
	n := 0
	for _, e := range c {
		if e.IsBase {
			break
		}
		n++
	}
	return n
}

// LegacyEntry is a pre-delta history record holding full content.
type LegacyEntry struct {
	ID           string
	Timestamp    int64
	Content      string
	DocumentType DocumentType
	Slug         string
	Summary      string
}

// Snapshot is a full-content write submitted to Archive.Append. Empty ID and
// zero Timestamp are filled in by the writer.
type Snapshot struct {
	ID           string
	Timestamp    int64
	DocumentType DocumentType
	Slug         string
	Summary      string
	Content      string
}

// VerifyIssue describes one problem found while verifying a chain.
type VerifyIssue struct {
	VersionID string `json:"version_id"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}
