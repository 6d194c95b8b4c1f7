// Package migrate holds the batch maintenance routines over a history
// store: rewriting legacy records in the delta format, moving slug-keyed
// histories to stable document ids, and compacting every stored chain.
//
// Each routine visits every key once, records a per-key outcome in a
// types.MigrationReport, and keeps going when a single key fails. Dry runs
// classify exactly as real runs but write nothing.
package migrate

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/inkwell/internal/store"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Action is the outcome of an identity migration decision.
type Action string

// Actions.
const (
	ActionMigrate Action = "migrate"
	ActionSkip    Action = "skip"
)

// Input is everything the identity decision looks at for one key.
type Input struct {
	Key        string         // Storage key of the history being considered.
	Document   types.Document // Registry record for Key; zero on a miss.
	Chain      types.Chain    // History under Key, legacy already converted.
	Existing   types.Chain    // History already stored under Document.ID, if any.
	IDPrefixes []string       // Prefixes that mark a key as an id.
}

// Decision is the result of Decide. TargetKey is set only for ActionMigrate.
type Decision struct {
	Action    Action
	Reason    types.SkipReason
	TargetKey string
}

// Decide classifies one key for identity migration. Checks run in a fixed
// order and the first match wins: invalid-slug, already-id, no-article-id,
// empty-history, id-history-exists; otherwise the key migrates to the
// document id.
func Decide(in Input) Decision {
	if r, skip := keySkip(in.Key, in.Document, in.IDPrefixes); skip {
		return Decision{Action: ActionSkip, Reason: r}
	}
	if in.Document.ID == "" {
		return Decision{Action: ActionSkip, Reason: types.SkipNoArticleID}
	}
	if len(in.Chain) == 0 {
		return Decision{Action: ActionSkip, Reason: types.SkipEmptyHistory}
	}
	if len(in.Existing) > 0 {
		return Decision{Action: ActionSkip, Reason: types.SkipIDHistoryExists}
	}
	return Decision{Action: ActionMigrate, TargetKey: in.Document.ID}
}

// keySkip runs the checks that need only the key and its registry record.
func keySkip(key string, doc types.Document, prefixes []string) (types.SkipReason, bool) {
	if !store.ValidKey(key) {
		return types.SkipInvalidSlug, true
	}
	if LooksLikeID(key, prefixes) || (doc.ID != "" && doc.ID == key) {
		return types.SkipAlreadyID, true
	}
	return "", false
}

// LooksLikeID reports whether key is shaped like a document id: a canonical
// UUID, or a string carrying one of the configured id prefixes.
func LooksLikeID(key string, prefixes []string) bool {
	if len(key) == 36 {
		if _, err := uuid.Parse(key); err == nil {
			return true
		}
	}
	return slices.ContainsFunc(prefixes, func(p string) bool {
		return p != "" && strings.HasPrefix(key, p)
	})
}
