package types

// SkipReason explains why a maintenance routine left a key untouched.
// Skips are expected outcomes, never errors.
type SkipReason string

// Skip reasons reported by the identity and format migrations.
const (
	SkipAlreadyID       SkipReason = "already-id"
	SkipNoArticleID     SkipReason = "no-article-id"
	SkipEmptyHistory    SkipReason = "empty-history"
	SkipIDHistoryExists SkipReason = "id-history-exists"
	SkipInvalidSlug     SkipReason = "invalid-slug"
	SkipAlreadyCurrent  SkipReason = "already-current"
)

// Per-key outcome of a maintenance run.
const (
	StatusMigrated  = "migrated"
	StatusCompacted = "compacted"
	StatusUnchanged = "unchanged"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// MigrationDetail is the outcome for one stored key.
type MigrationDetail struct {
	Key       string     `json:"key"`
	TargetKey string     `json:"target_key,omitempty"`
	Status    string     `json:"status"`
	Reason    SkipReason `json:"reason,omitempty"`
	Entries   int        `json:"entries,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// MigrationReport aggregates a batch run. DryRun runs report the same counts
// and classification as real runs.
type MigrationReport struct {
	DryRun   bool              `json:"dry_run"`
	Migrated int               `json:"migrated"`
	Skipped  int               `json:"skipped"`
	Failed   int               `json:"failed"`
	Details  []MigrationDetail `json:"details"`
}

// Add records d and updates the counters.
func (r *MigrationReport) Add(d MigrationDetail) {
	switch d.Status {
	case StatusMigrated, StatusCompacted:
		r.Migrated++
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
	r.Details = append(r.Details, d)
}

// CompactFailure records a delta that could not be converted to a base.
type CompactFailure struct {
	VersionID string `json:"version_id"`
	Error     string `json:"error"`
}

// CompactReport lists the entries converted by one compaction pass.
type CompactReport struct {
	Converted []string         `json:"converted"`
	Failed    []CompactFailure `json:"failed,omitempty"`
}

// Changed reports whether the pass converted any entry.
func (r CompactReport) Changed() bool {
	return len(r.Converted) > 0
}
