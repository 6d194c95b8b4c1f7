package chain

import (
	"slices"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// ConvertLegacy turns newest-first full-content records into a newest-first
// chain: the oldest record becomes the base and every newer record a delta
// against the record before it. A record whose patch does not reproduce its
// content is kept as a base. An empty input yields an empty chain.
func (e *Engine) ConvertLegacy(legacy []types.LegacyEntry) types.Chain {
	out := make(types.Chain, 0, len(legacy))
	oldestFirst := slices.Clone(legacy)
	slices.Reverse(oldestFirst)

	for i, rec := range oldestFirst {
		if i == 0 {
			out = append(out, types.NewBase(rec.ID, rec.Timestamp, rec.DocumentType, rec.Slug, rec.Summary, rec.Content))
			continue
		}
		prev := oldestFirst[i-1].Content
		patch := e.diff(prev, rec.Content)
		if !e.reproduces(prev, patch, rec.Content) {
			out = append(out, types.NewBase(rec.ID, rec.Timestamp, rec.DocumentType, rec.Slug, rec.Summary, rec.Content))
			continue
		}
		out = append(out, types.NewDelta(rec.ID, rec.Timestamp, rec.DocumentType, rec.Slug, rec.Summary, patch))
	}

	slices.Reverse(out)
	return out
}
