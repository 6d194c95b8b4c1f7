package chain

import (
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Compact returns a copy of c in which no run of consecutive deltas following
// a base is longer than maxChainLength. Walking from the oldest entry toward
// the newest, a delta reached when the run already holds maxChainLength
// deltas is reconstructed against c and stored as a base. A delta that cannot
// be reconstructed stays a delta and is listed in the report; compaction never
// discards history to satisfy the bound.
//
// Ids, timestamps, order and count are preserved, and c is not modified.
// maxChainLength below 1 selects types.DefaultMaxChainLength.
func (e *Engine) Compact(c types.Chain, maxChainLength int) (types.Chain, types.CompactReport) {
	var report types.CompactReport
	if maxChainLength < 1 {
		maxChainLength = types.DefaultMaxChainLength
	}
	out := c.Clone()
	if len(c) < 2 {
		return out, report
	}

	run := 0
	for i := len(c) - 1; i >= 0; i-- {
		entry := c[i]
		if entry.IsBase {
			run = 0
			continue
		}
		if run < maxChainLength {
			run++
			continue
		}
		content, err := e.Reconstruct(c, entry.ID)
		if err != nil {
			report.Failed = append(report.Failed, types.CompactFailure{VersionID: entry.ID, Error: err.Error()})
			run++
			continue
		}
		out[i] = entry.AsBase(content)
		report.Converted = append(report.Converted, entry.ID)
		run = 0
	}
	return out, report
}
