package types

import "errors"

// Config holds backend selection and engine parameters for Archive.Attach.
type Config struct {
	Backend        string   `json:"backend" yaml:"backend"`
	DataDir        string   `json:"data_dir" yaml:"data_dir"`
	MaxChainLength int      `json:"max_chain_length,omitempty" yaml:"max_chain_length,omitempty"`
	ContextLines   int      `json:"context_lines,omitempty" yaml:"context_lines,omitempty"`
	RegistryFile   string   `json:"registry_file,omitempty" yaml:"registry_file,omitempty"`
	IDPrefixes     []string `json:"id_prefixes,omitempty" yaml:"id_prefixes,omitempty"`
}

// Supported backend names.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Engine defaults.
const (
	DefaultMaxChainLength = 5
	DefaultContextLines   = 3
	DefaultRegistryFile   = "documents.jsonl"
)

// DefaultIDPrefixes lists key prefixes that mark a legacy stable identifier.
var DefaultIDPrefixes = []string{"doc_"}

// Config validation errors.
var (
	ErrBackendEmpty          = errors.New("backend must not be empty")
	ErrBackendUnknown        = errors.New("unknown backend")
	ErrMaxChainLengthInvalid = errors.New("max chain length must not be negative")
	ErrContextLinesInvalid   = errors.New("context lines must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendFile:   true,
	BackendSQLite: true,
	BackendBadger: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure. Zero numeric fields are valid and select the
// defaults.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.MaxChainLength < 0 {
		return ErrMaxChainLengthInvalid
	}
	if c.ContextLines < 0 {
		return ErrContextLinesInvalid
	}
	return nil
}

// GetMaxChainLength returns the configured run bound, or the default when unset.
func (c Config) GetMaxChainLength() int {
	if c.MaxChainLength <= 0 {
		return DefaultMaxChainLength
	}
	return c.MaxChainLength
}

// GetContextLines returns the diff context window, or the default when unset.
func (c Config) GetContextLines() int {
	if c.ContextLines <= 0 {
		return DefaultContextLines
	}
	return c.ContextLines
}

// GetRegistryFile returns the registry file name relative to DataDir unless
// it is absolute.
func (c Config) GetRegistryFile() string {
	if c.RegistryFile == "" {
		return DefaultRegistryFile
	}
	return c.RegistryFile
}

// GetIDPrefixes returns the legacy identifier prefixes.
func (c Config) GetIDPrefixes() []string {
	if len(c.IDPrefixes) == 0 {
		return DefaultIDPrefixes
	}
	return c.IDPrefixes
}
