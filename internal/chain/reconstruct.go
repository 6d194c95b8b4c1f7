package chain

import (
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Reconstruct rebuilds the content of version id. It seeds from the nearest
// base at or after the target (toward older entries) and replays deltas from
// that base toward the target.
//
// Errors are *types.ChainError values matching types.ErrVersionNotFound,
// types.ErrCorruptChain (ErrNoBaseFound, ErrMissingDelta, ErrMissingContent)
// or types.ErrPatchFailed.
func (e *Engine) Reconstruct(c types.Chain, id string) (string, error) {
	target := c.IndexOf(id)
	if target < 0 {
		return "", &types.ChainError{VersionID: id, Err: types.ErrVersionNotFound}
	}

	base := -1
	for i := target; i < len(c); i++ {
		if c[i].IsBase {
			base = i
			break
		}
	}
	if base < 0 {
		return "", &types.ChainError{VersionID: id, Err: types.ErrNoBaseFound}
	}
	if c[base].FullContent == nil {
		return "", &types.ChainError{VersionID: c[base].ID, Err: types.ErrMissingContent}
	}

	content := *c[base].FullContent
	for i := base - 1; i >= target; i-- {
		entry := c[i]
		if entry.Delta == nil {
			return "", &types.ChainError{VersionID: entry.ID, Err: types.ErrMissingDelta}
		}
		next, err := e.codec.Apply(content, *entry.Delta)
		if err != nil {
			return "", &types.ChainError{VersionID: entry.ID, Err: types.ErrPatchFailed, Cause: err}
		}
		content = next
	}
	return content, nil
}

// Verify checks every entry's base/delta invariant, rejects duplicate ids,
// and reconstructs every version. It returns one issue per problem found.
func (e *Engine) Verify(c types.Chain) []types.VerifyIssue {
	var issues []types.VerifyIssue
	add := func(id string, err error) {
		issues = append(issues, types.VerifyIssue{VersionID: id, Err: err, Message: err.Error()})
	}

	seen := make(map[string]bool, len(c))
	for _, entry := range c {
		if err := entry.Validate(); err != nil {
			add(entry.ID, err)
		}
		if seen[entry.ID] {
			add(entry.ID, &types.ChainError{VersionID: entry.ID, Err: types.ErrInvalidEntry, Cause: errDuplicateID})
		}
		seen[entry.ID] = true
	}
	if len(issues) > 0 {
		return issues
	}

	for _, entry := range c {
		if _, err := e.Reconstruct(c, entry.ID); err != nil {
			add(entry.ID, err)
		}
	}
	return issues
}
