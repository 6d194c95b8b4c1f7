// Package archive implements types.Archive on top of a history store and the
// chain engine. It owns the read-modify-write cycle for each document:
// load the stored record (converting legacy records on read), apply the
// chain operation, and write the chain back in the current format.
//
// Per-key operations run concurrently across keys and are serialized per
// key. Batch maintenance excludes all other operations while it runs.
package archive

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/inkwell/internal/chain"
	"github.com/mesh-intelligence/inkwell/internal/delta"
	"github.com/mesh-intelligence/inkwell/internal/metrics"
	"github.com/mesh-intelligence/inkwell/internal/migrate"
	"github.com/mesh-intelligence/inkwell/internal/registry"
	"github.com/mesh-intelligence/inkwell/internal/store"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Archive is the store-backed implementation of types.Archive.
type Archive struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	store    store.Store
	engine   *chain.Engine
	keys     keyLocks

	log       zerolog.Logger
	openStore func(types.Config) (store.Store, error)
	now       func() time.Time
	newID     func() string
}

var _ types.Archive = (*Archive)(nil)

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger for integrity warnings and maintenance events.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Archive) { a.log = l }
}

// WithStore makes Attach use s instead of opening the configured backend.
// The archive closes s on Detach.
func WithStore(s store.Store) Option {
	return func(a *Archive) {
		a.openStore = func(types.Config) (store.Store, error) { return s, nil }
	}
}

// WithClock sets the time source for version timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) { a.now = now }
}

// WithIDGenerator sets the version id generator.
func WithIDGenerator(gen func() string) Option {
	return func(a *Archive) { a.newID = gen }
}

// New creates a detached Archive. Call Attach before use.
func New(opts ...Option) *Archive {
	a := &Archive{
		log:       zerolog.Nop(),
		openStore: store.Open,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Attach opens the configured store and builds the chain engine from
// config. Returns types.ErrAlreadyAttached if already attached.
func (a *Archive) Attach(config types.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	s, err := a.openStore(config)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", config.Backend, err)
	}

	codec := delta.New(config.GetContextLines(), delta.ObserverFunc(a.integrityWarning))
	opts := []chain.Option{
		chain.WithCodec(codec),
		chain.WithMaxChainLength(config.GetMaxChainLength()),
	}
	if a.now != nil {
		opts = append(opts, chain.WithClock(a.now))
	}
	if a.newID != nil {
		opts = append(opts, chain.WithIDGenerator(a.newID))
	}

	a.store = s
	a.engine = chain.New(opts...)
	a.config = config
	a.attached = true
	a.log.Debug().Str("backend", config.Backend).Str("data_dir", config.DataDir).Msg("archive attached")
	return nil
}

// Detach closes the store. Idempotent.
func (a *Archive) Detach() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.attached {
		return nil
	}
	a.attached = false
	err := a.store.Close()
	a.store = nil
	a.engine = nil
	return err
}

func (a *Archive) integrityWarning(w delta.Warning) {
	metrics.IntegrityWarning(string(w.Kind))
	a.log.Warn().
		Str("kind", string(w.Kind)).
		Int("expected", w.Expected).
		Int("actual", w.Actual).
		Msg("patch integrity warning")
}

// read acquires the shared lock and the key lock. The caller must call the
// returned release function.
func (a *Archive) read(key string) (func(), error) {
	a.mu.RLock()
	if !a.attached {
		a.mu.RUnlock()
		return nil, types.ErrArchiveDetached
	}
	unlock := a.keys.lock(key)
	return func() {
		unlock()
		a.mu.RUnlock()
	}, nil
}

func (a *Archive) load(key string) (types.Chain, error) {
	c, _, err := store.ReadChain(a.store, a.engine, key)
	return c, err
}

// History returns the chain under key, newest first.
func (a *Archive) History(key string) (types.Chain, error) {
	release, err := a.read(key)
	if err != nil {
		return nil, err
	}
	defer release()
	return a.load(key)
}

// Keys lists every stored history key.
func (a *Archive) Keys() ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.attached {
		return nil, types.ErrArchiveDetached
	}
	return a.store.Keys()
}

// Append stores snap as the newest version under key. An empty snapshot slug
// defaults to key.
func (a *Archive) Append(key string, snap types.Snapshot) (types.VersionEntry, error) {
	if !store.ValidKey(key) {
		return types.VersionEntry{}, fmt.Errorf("%w: %q", types.ErrInvalidKey, key)
	}
	release, err := a.read(key)
	if err != nil {
		return types.VersionEntry{}, err
	}
	defer release()

	c, err := a.load(key)
	if err != nil && !store.IsNotFound(err) {
		return types.VersionEntry{}, err
	}
	if snap.Slug == "" {
		snap.Slug = key
	}

	res, err := a.engine.Append(c, snap)
	if err != nil {
		return types.VersionEntry{}, err
	}
	if res.HeadErr != nil {
		metrics.Reconstruction(res.HeadErr)
		a.log.Warn().Err(res.HeadErr).Str("key", key).Msg("head version unreadable, storing full content")
	}
	if err := store.WriteChain(a.store, key, res.Chain); err != nil {
		return types.VersionEntry{}, err
	}

	a.log.Debug().
		Str("key", key).
		Str("version_id", res.Entry.ID).
		Bool("is_base", res.Entry.IsBase).
		Str("reason", string(res.Reason)).
		Msg("version appended")
	return res.Entry, nil
}

// Version reconstructs the content of version id under key.
func (a *Archive) Version(key, id string) (string, error) {
	release, err := a.read(key)
	if err != nil {
		return "", err
	}
	defer release()

	c, err := a.load(key)
	if err != nil {
		return "", err
	}
	return a.reconstruct(key, c, id)
}

// Latest returns the newest entry under key and its content.
func (a *Archive) Latest(key string) (types.VersionEntry, string, error) {
	release, err := a.read(key)
	if err != nil {
		return types.VersionEntry{}, "", err
	}
	defer release()

	c, err := a.load(key)
	if err != nil {
		return types.VersionEntry{}, "", err
	}
	if len(c) == 0 {
		return types.VersionEntry{}, "", fmt.Errorf("%w: %s is empty", types.ErrHistoryNotFound, key)
	}
	content, err := a.reconstruct(key, c, c[0].ID)
	if err != nil {
		return types.VersionEntry{}, "", err
	}
	return c[0], content, nil
}

func (a *Archive) reconstruct(key string, c types.Chain, id string) (string, error) {
	content, err := a.engine.Reconstruct(c, id)
	metrics.Reconstruction(err)
	if err != nil && !errors.Is(err, types.ErrVersionNotFound) {
		a.log.Error().Err(err).Str("key", key).Str("version_id", id).Msg("reconstruction failed")
	}
	return content, err
}

// Compact bounds the delta runs under key by the configured
// MaxChainLength. The chain is written back only when entries were
// converted and dryRun is false.
func (a *Archive) Compact(key string, dryRun bool) (types.CompactReport, error) {
	release, err := a.read(key)
	if err != nil {
		return types.CompactReport{}, err
	}
	defer release()

	c, err := a.load(key)
	if err != nil {
		return types.CompactReport{}, err
	}

	out, report := a.engine.Compact(c, a.config.GetMaxChainLength())
	metrics.Compaction(len(report.Converted), len(report.Failed))
	for _, f := range report.Failed {
		a.log.Warn().Str("key", key).Str("version_id", f.VersionID).Str("error", f.Error).Msg("compaction left delta in place")
	}
	if !report.Changed() || dryRun {
		return report, nil
	}
	if err := store.WriteChain(a.store, key, out); err != nil {
		return report, err
	}
	a.log.Info().Str("key", key).Strs("converted", report.Converted).Msg("chain compacted")
	return report, nil
}

// Verify reconstructs every version under key and returns the problems
// found. A clean chain yields no issues.
func (a *Archive) Verify(key string) ([]types.VerifyIssue, error) {
	release, err := a.read(key)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := a.load(key)
	if err != nil {
		return nil, err
	}
	issues := a.engine.Verify(c)
	for _, is := range issues {
		a.log.Warn().Str("key", key).Str("version_id", is.VersionID).Msg(is.Message)
	}
	return issues, nil
}

// exclusive takes the archive's write lock for batch maintenance.
func (a *Archive) exclusive() (func(), error) {
	a.mu.Lock()
	if !a.attached {
		a.mu.Unlock()
		return nil, types.ErrArchiveDetached
	}
	return a.mu.Unlock, nil
}

func (a *Archive) migrateOptions(dryRun bool) migrate.Options {
	return migrate.Options{
		DryRun:     dryRun,
		IDPrefixes: a.config.GetIDPrefixes(),
		Logger:     &a.log,
	}
}

// CompactAll compacts every stored chain.
func (a *Archive) CompactAll(dryRun bool) (types.MigrationReport, error) {
	release, err := a.exclusive()
	if err != nil {
		return types.MigrationReport{}, err
	}
	defer release()
	return migrate.Compact(a.store, a.engine, a.config.GetMaxChainLength(), a.migrateOptions(dryRun))
}

// MigrateFormat rewrites every legacy record in the current format.
func (a *Archive) MigrateFormat(dryRun bool) (types.MigrationReport, error) {
	release, err := a.exclusive()
	if err != nil {
		return types.MigrationReport{}, err
	}
	defer release()
	return migrate.Format(a.store, a.engine, a.migrateOptions(dryRun))
}

// MigrateKeysToIDs copies slug-keyed histories to the document ids that reg
// resolves them to.
func (a *Archive) MigrateKeysToIDs(reg registry.Registry, dryRun bool) (types.MigrationReport, error) {
	release, err := a.exclusive()
	if err != nil {
		return types.MigrationReport{}, err
	}
	defer release()
	return migrate.KeysToIDs(a.store, reg, a.engine, a.migrateOptions(dryRun))
}
