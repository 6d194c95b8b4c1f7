package registry

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/inkwell/internal/store"
	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// File is a registry backed by a JSONL file, one document per line. The
// file is loaded on open and rewritten atomically on every Put.
type File struct {
	path string
	mem  *Memory
}

var _ Registry = (*File)(nil)

// OpenFile loads the registry at path. A missing file is an empty registry.
func OpenFile(path string) (*File, error) {
	records, err := store.ReadJSONL(path)
	if err != nil {
		return nil, err
	}
	mem := NewMemory()
	for _, rec := range records {
		var doc types.Document
		if err := json.Unmarshal(rec, &doc); err != nil {
			continue
		}
		if validate(doc) != nil {
			continue
		}
		mem.put(doc)
	}
	return &File{path: path, mem: mem}, nil
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Resolve matches ref against ids first, then slugs.
func (f *File) Resolve(ref string) (types.Document, bool, error) {
	return f.mem.Resolve(ref)
}

// Documents returns all registered documents.
func (f *File) Documents() []types.Document {
	return f.mem.Documents()
}

// Put adds or replaces doc and persists the registry.
func (f *File) Put(doc types.Document) error {
	if err := validate(doc); err != nil {
		return err
	}
	f.mem.mu.Lock()
	defer f.mem.mu.Unlock()

	prev := append([]types.Document(nil), f.mem.docs...)
	f.mem.put(doc)

	records := make([]json.RawMessage, 0, len(f.mem.docs))
	for _, d := range f.mem.docs {
		b, err := json.Marshal(d)
		if err != nil {
			f.mem.docs = prev
			return fmt.Errorf("encoding document %s: %w", d.Slug, err)
		}
		records = append(records, b)
	}
	if err := store.WriteJSONL(f.path, records); err != nil {
		f.mem.docs = prev
		return fmt.Errorf("writing registry: %w", err)
	}
	return nil
}
