package chain

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

var errDuplicateID = errors.New("duplicate version id")

// BaseReason explains why Append stored a snapshot as a base.
type BaseReason string

// Reasons for storing a base.
const (
	BaseFirst        BaseReason = "first"
	BaseRunLimit     BaseReason = "run-limit"
	BaseSmaller      BaseReason = "smaller-than-delta"
	BaseHeadUnusable BaseReason = "head-unreadable"
	BaseUnverified   BaseReason = "patch-unverified"
)

// AppendResult describes the entry written by Append.
type AppendResult struct {
	Chain  types.Chain
	Entry  types.VersionEntry
	Reason BaseReason // Empty when the entry is a delta.
	// HeadErr is set when the previous newest version could not be
	// reconstructed and the snapshot was stored as a base instead.
	HeadErr error
}

// Append prepends snap to c and returns the new chain. The snapshot is stored
// as a delta against the current newest version unless the chain is empty,
// the head delta run already holds the engine's MaxChainLength deltas, the
// patch would not be smaller than the full content, or the newest version
// cannot be reconstructed, or the patch does not reproduce the snapshot.
func (e *Engine) Append(c types.Chain, snap types.Snapshot) (AppendResult, error) {
	if snap.DocumentType != "" && !snap.DocumentType.Valid() {
		return AppendResult{}, fmt.Errorf("%w: %q", types.ErrInvalidDocumentType, snap.DocumentType)
	}
	if snap.ID == "" {
		snap.ID = e.newID()
	}
	if c.IndexOf(snap.ID) >= 0 {
		return AppendResult{}, &types.ChainError{VersionID: snap.ID, Err: types.ErrInvalidEntry, Cause: errDuplicateID}
	}
	if snap.Timestamp == 0 {
		snap.Timestamp = e.now().UnixMilli()
	}

	base := types.NewBase(snap.ID, snap.Timestamp, snap.DocumentType, snap.Slug, snap.Summary, snap.Content)
	res := AppendResult{Entry: base}

	switch {
	case len(c) == 0:
		res.Reason = BaseFirst
	case c.HeadRun() >= e.maxChainLength:
		res.Reason = BaseRunLimit
	default:
		prev, err := e.Reconstruct(c, c[0].ID)
		if err != nil {
			res.Reason = BaseHeadUnusable
			res.HeadErr = err
			break
		}
		patch := e.diff(prev, snap.Content)
		if len(patch.Patch) >= len(snap.Content) {
			res.Reason = BaseSmaller
			break
		}
		if !e.reproduces(prev, patch, snap.Content) {
			res.Reason = BaseUnverified
			break
		}
		res.Entry = types.NewDelta(snap.ID, snap.Timestamp, snap.DocumentType, snap.Slug, snap.Summary, patch)
	}

	out := make(types.Chain, 0, len(c)+1)
	out = append(out, res.Entry)
	out = append(out, c...)
	res.Chain = out
	return res, nil
}

// reproduces reports whether applying p to from yields exactly want. The
// check runs without the codec's observer so it raises no warnings.
func (e *Engine) reproduces(from string, p types.DeltaPatch, want string) bool {
	check := e.codec
	check.Observer = nil
	got, err := check.Apply(from, p)
	return err == nil && got == want
}
