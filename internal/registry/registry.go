// Package registry resolves document references (slugs or ids) to document
// records. The identity migrator uses it to find the stable id a slug-keyed
// history should move to.
package registry

import (
	"slices"
	"strings"
	"sync"

	"github.com/mesh-intelligence/inkwell/pkg/types"
)

// Registry looks up documents by slug or id. A miss is (zero, false, nil);
// errors are reserved for lookup failures.
type Registry = types.DocumentResolver

// Memory is an in-memory registry.
type Memory struct {
	mu   sync.RWMutex
	docs []types.Document
}

var _ Registry = (*Memory)(nil)

// NewMemory returns a registry holding docs.
func NewMemory(docs ...types.Document) *Memory {
	m := &Memory{}
	for _, d := range docs {
		m.put(d)
	}
	return m
}

// Resolve matches ref against ids first, then slugs.
func (m *Memory) Resolve(ref string) (types.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := find(m.docs, ref)
	return d, ok, nil
}

// Put adds doc or replaces the entry with the same id, or with the same slug
// when doc has no id.
func (m *Memory) Put(doc types.Document) error {
	if err := validate(doc); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(doc)
	return nil
}

// Documents returns a copy of all documents.
func (m *Memory) Documents() []types.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.docs)
}

func (m *Memory) put(doc types.Document) {
	i := slices.IndexFunc(m.docs, func(d types.Document) bool {
		if doc.ID != "" && d.ID == doc.ID {
			return true
		}
		return d.Slug == doc.Slug
	})
	if i >= 0 {
		m.docs[i] = doc
		return
	}
	m.docs = append(m.docs, doc)
}

func find(docs []types.Document, ref string) (types.Document, bool) {
	if ref == "" {
		return types.Document{}, false
	}
	for _, d := range docs {
		if d.ID == ref {
			return d, true
		}
	}
	for _, d := range docs {
		if d.Slug == ref {
			return d, true
		}
	}
	return types.Document{}, false
}

func validate(doc types.Document) error {
	if strings.TrimSpace(doc.Slug) == "" {
		return types.ErrInvalidKey
	}
	if doc.Type != "" && !doc.Type.Valid() {
		return types.ErrInvalidDocumentType
	}
	return nil
}
