package migrate

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/inkwell/internal/chain"
	"github.com/mesh-intelligence/inkwell/internal/metrics"
	"github.com/mesh-intelligence/inkwell/internal/registry"
	"github.com/mesh-intelligence/inkwell/internal/store"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Metric kind labels.
const (
	kindFormat  = "format"
	kindIDs     = "ids"
	kindCompact = "compact"
)

// Options controls a maintenance run.
type Options struct {
	DryRun     bool
	IDPrefixes []string
	Logger     *zerolog.Logger
}

func (o Options) logger() zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return *o.Logger
}

func record(r *types.MigrationReport, log zerolog.Logger, kind string, d types.MigrationDetail) {
	r.Add(d)
	metrics.Migration(kind, d.Status, string(d.Reason))

	ev := log.Info()
	if d.Status == types.StatusFailed {
		ev = log.Warn()
	}
	ev.Str("kind", kind).
		Str("key", d.Key).
		Str("status", d.Status).
		Bool("dry_run", r.DryRun)
	if d.TargetKey != "" {
		ev = ev.Str("target_key", d.TargetKey)
	}
	if d.Reason != "" {
		ev = ev.Str("reason", string(d.Reason))
	}
	if d.Error != "" {
		ev = ev.Str("error", d.Error)
	}
	ev.Msg("migration outcome")
}

func failed(key string, err error) types.MigrationDetail {
	return types.MigrationDetail{Key: key, Status: types.StatusFailed, Error: err.Error()}
}

func skipped(key string, reason types.SkipReason) types.MigrationDetail {
	return types.MigrationDetail{Key: key, Status: types.StatusSkipped, Reason: reason}
}

// verified returns an error naming the first problem Verify finds in c.
// Drivers check every chain they are about to write so that an unreadable
// chain never replaces or duplicates a readable record.
func verified(e *chain.Engine, c types.Chain) error {
	issues := e.Verify(c)
	if len(issues) == 0 {
		return nil
	}
	return errors.Errorf("chain does not verify: version %s: %s (%d problems)", issues[0].VersionID, issues[0].Message, len(issues))
}

// KeysToIDs moves every slug-keyed history to its document id. The chain is
// written under the id in the current format; the slug record is left in
// place and an id record that already holds versions is never overwritten.
func KeysToIDs(s store.Store, reg registry.Registry, e *chain.Engine, opts Options) (types.MigrationReport, error) {
	log := opts.logger()
	report := types.MigrationReport{DryRun: opts.DryRun, Details: []types.MigrationDetail{}}

	keys, err := s.Keys()
	if err != nil {
		return report, errors.Wrap(err, "identity migration: list keys")
	}

	for _, key := range keys {
		doc, _, err := reg.Resolve(key)
		if err != nil {
			record(&report, log, kindIDs, failed(key, errors.Wrap(err, "resolve document")))
			continue
		}
		if reason, skip := keySkip(key, doc, opts.IDPrefixes); skip {
			record(&report, log, kindIDs, skipped(key, reason))
			continue
		}

		c, _, err := store.ReadChain(s, e, key)
		if err != nil {
			record(&report, log, kindIDs, failed(key, err))
			continue
		}

		var existing types.Chain
		if doc.ID != "" {
			ok, err := s.Exists(doc.ID)
			if err == nil && ok {
				existing, _, err = store.ReadChain(s, e, doc.ID)
			}
			if err != nil {
				record(&report, log, kindIDs, failed(key, errors.Wrapf(err, "read target %s", doc.ID)))
				continue
			}
		}

		dec := Decide(Input{Key: key, Document: doc, Chain: c, Existing: existing, IDPrefixes: opts.IDPrefixes})
		if dec.Action == ActionSkip {
			record(&report, log, kindIDs, skipped(key, dec.Reason))
			continue
		}

		if err := verified(e, c); err != nil {
			record(&report, log, kindIDs, failed(key, err))
			continue
		}
		if !opts.DryRun {
			if err := store.WriteChain(s, dec.TargetKey, c); err != nil {
				record(&report, log, kindIDs, failed(key, errors.Wrapf(err, "write target %s", dec.TargetKey)))
				continue
			}
		}
		record(&report, log, kindIDs, types.MigrationDetail{
			Key:       key,
			TargetKey: dec.TargetKey,
			Status:    types.StatusMigrated,
			Entries:   len(c),
		})
	}
	return report, nil
}

// Format rewrites every legacy record as a delta chain under the same key.
// Records already in the current format are skipped, and a converted chain
// that does not verify is reported as failed and the legacy record is kept.
func Format(s store.Store, e *chain.Engine, opts Options) (types.MigrationReport, error) {
	log := opts.logger()
	report := types.MigrationReport{DryRun: opts.DryRun, Details: []types.MigrationDetail{}}

	keys, err := s.Keys()
	if err != nil {
		return report, errors.Wrap(err, "format migration: list keys")
	}

	for _, key := range keys {
		if !store.ValidKey(key) {
			record(&report, log, kindFormat, skipped(key, types.SkipInvalidSlug))
			continue
		}
		data, err := s.Get(key)
		if err != nil {
			record(&report, log, kindFormat, failed(key, err))
			continue
		}
		rec, err := store.Decode(data)
		if err != nil {
			record(&report, log, kindFormat, failed(key, err))
			continue
		}

		switch {
		case rec.Format == store.FormatCurrent:
			record(&report, log, kindFormat, skipped(key, types.SkipAlreadyCurrent))
			continue
		case len(rec.Legacy) == 0:
			record(&report, log, kindFormat, skipped(key, types.SkipEmptyHistory))
			continue
		}

		c := e.ConvertLegacy(rec.Legacy)
		if err := verified(e, c); err != nil {
			record(&report, log, kindFormat, failed(key, err))
			continue
		}
		if !opts.DryRun {
			if err := store.WriteChain(s, key, c); err != nil {
				record(&report, log, kindFormat, failed(key, err))
				continue
			}
		}
		record(&report, log, kindFormat, types.MigrationDetail{
			Key:     key,
			Status:  types.StatusMigrated,
			Entries: len(c),
		})
	}
	return report, nil
}

// Compact runs compaction over every stored chain and writes back only the
// chains that changed. Legacy records are converted first, so a changed
// legacy record is also upgraded to the current format.
func Compact(s store.Store, e *chain.Engine, maxChainLength int, opts Options) (types.MigrationReport, error) {
	log := opts.logger()
	report := types.MigrationReport{DryRun: opts.DryRun, Details: []types.MigrationDetail{}}

	keys, err := s.Keys()
	if err != nil {
		return report, errors.Wrap(err, "compaction: list keys")
	}

	for _, key := range keys {
		if !store.ValidKey(key) {
			record(&report, log, kindCompact, skipped(key, types.SkipInvalidSlug))
			continue
		}
		c, _, err := store.ReadChain(s, e, key)
		if err != nil {
			record(&report, log, kindCompact, failed(key, err))
			continue
		}

		out, cr := e.Compact(c, maxChainLength)
		metrics.Compaction(len(cr.Converted), len(cr.Failed))
		for _, f := range cr.Failed {
			log.Warn().Str("key", key).Str("version_id", f.VersionID).Str("error", f.Error).Msg("compaction left delta in place")
		}

		d := types.MigrationDetail{Key: key, Status: types.StatusUnchanged}
		if len(cr.Failed) > 0 {
			d.Error = cr.Failed[0].Error
		}
		if cr.Changed() {
			if !opts.DryRun {
				if err := store.WriteChain(s, key, out); err != nil {
					record(&report, log, kindCompact, failed(key, err))
					continue
				}
			}
			d.Status = types.StatusCompacted
			d.Entries = len(cr.Converted)
		}
		record(&report, log, kindCompact, d)
	}
	return report, nil
}
