package types

import "errors"

// DocumentType distinguishes blog posts from static pages.
type DocumentType string

// Document types.
const (
	DocumentPost DocumentType = "post"
	DocumentPage DocumentType = "page"
)

// Valid reports whether t is a recognized document type.
func (t DocumentType) Valid() bool {
	return t == DocumentPost || t == DocumentPage
}

// Document is a registry record: the stable identifier of a document and
// its current, human-editable slug.
type Document struct {
	ID   string       `json:"id"`
	Slug string       `json:"slug"`
	Type DocumentType `json:"type,omitempty"`
}

// Document errors.
var (
	ErrInvalidDocumentType = errors.New("invalid document type")
	ErrInvalidKey          = errors.New("invalid history key")
)
