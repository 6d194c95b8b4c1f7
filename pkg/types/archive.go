package types

import "errors"

// Archive defines the interface for document history storage. Callers
// attach to a backend, append full-content snapshots, read any version back,
// and detach when done.
type Archive interface {
	// Attach connects the Archive to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrArchiveDetached.
	Detach() error

	// History returns the chain stored under key, newest first. Legacy
	// records are converted on read. Returns ErrHistoryNotFound if the key
	// has no history.
	History(key string) (Chain, error)

	// Append stores snap as the newest version under key and returns the
	// entry written. The writer decides between a base and a delta.
	Append(key string, snap Snapshot) (VersionEntry, error)

	// Version reconstructs the content of version id under key.
	Version(key, id string) (string, error)

	// Latest returns the newest entry under key and its content.
	Latest(key string) (VersionEntry, string, error)

	// Compact bounds the delta runs of the chain under key.
	Compact(key string, dryRun bool) (CompactReport, error)

	// Verify reconstructs every version under key and reports problems.
	Verify(key string) ([]VerifyIssue, error)

	// Keys lists every key with stored history, sorted.
	Keys() ([]string, error)

	// CompactAll compacts every stored chain. Changed chains are written
	// unless dryRun is set.
	CompactAll(dryRun bool) (MigrationReport, error)

	// MigrateFormat rewrites legacy full-content records in the current
	// delta format.
	MigrateFormat(dryRun bool) (MigrationReport, error)

	// MigrateKeysToIDs copies slug-keyed histories to the stable document
	// ids that resolver returns. Source keys are never removed.
	MigrateKeysToIDs(resolver DocumentResolver, dryRun bool) (MigrationReport, error)
}

// DocumentResolver looks up a document by slug or id. A miss is
// (zero, false, nil).
type DocumentResolver interface {
	Resolve(ref string) (Document, bool, error)
}

// Archive lifecycle errors.
var (
	ErrArchiveDetached   = errors.New("archive is detached")
	ErrAlreadyAttached   = errors.New("archive is already attached")
	ErrUnsupportedFormat = errors.New("unsupported history format")
)
