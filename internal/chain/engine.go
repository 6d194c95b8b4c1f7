// Package chain implements the operations over a document's version chain:
// reconstruction of any version, compaction of delta runs, conversion of
// legacy full-content history, and appending new snapshots.
//
// All operations are synchronous and pure: they never perform I/O and never
// mutate their input chain. Callers serialize writers per document.
package chain

import (
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/inkwell/internal/delta"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Engine holds the codec and write policy used by chain operations.
type Engine struct {
	codec          delta.Codec
	maxChainLength int
	now            func() time.Time
	newID          func() string
	// diff creates the patches Append and ConvertLegacy store. It is
	// codec.Create unless a test replaces it.
	diff func(oldContent, newContent string) types.DeltaPatch
}

// Option configures an Engine.
type Option func(*Engine)

// WithCodec sets the patch codec.
func WithCodec(c delta.Codec) Option {
	return func(e *Engine) { e.codec = c }
}

// WithMaxChainLength sets the delta run bound used by Append.
func WithMaxChainLength(n int) Option {
	return func(e *Engine) { e.maxChainLength = n }
}

// WithClock sets the time source for generated timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator sets the version id generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New returns an Engine with default settings overridden by opts.
func New(opts ...Option) *Engine {
	e := &Engine{
		maxChainLength: types.DefaultMaxChainLength,
		now:            time.Now,
		newID:          generateUUID,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.maxChainLength < 1 {
		e.maxChainLength = types.DefaultMaxChainLength
	}
	e.diff = e.codec.Create
	return e
}

// Codec returns the engine's patch codec.
func (e *Engine) Codec() delta.Codec {
	return e.codec
}

// MaxChainLength returns the delta run bound used by Append.
func (e *Engine) MaxChainLength() int {
	return e.maxChainLength
}

// generateUUID generates a new UUID v7 for version IDs.
func generateUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}
