package document

import (
	"errors"
)

// ErrIdentityNotResolved is returned when an operation requires a document
// identity that has not been assigned yet.
var ErrIdentityNotResolved = errors.New("document: identity not resolved")

// ID is the opaque identity of a stored document. It is minted by a document
// store on insertion; the zero value means "not persisted yet".
type ID string

// IsZero reports whether the identity is unset.
func (id ID) IsZero() bool { return id == "" }

// String returns the identity as a string.
func (id ID) String() string { return string(id) }

// Fields holds the named payload values of a document. No schema is assumed.
type Fields map[string]interface{}

// Document is the unit of storage moving between the document store, the
// vector store and the text extractor.
type Document struct {
	// ID is empty until the document store assigns it.
	ID ID `json:"id,omitempty"`

	// Fields is the open payload, e.g. {"text": "...", "title": "..."}.
	Fields Fields `json:"fields,omitempty"`
}

// New creates an unpersisted document holding the given fields.
func New(fields Fields) Document {
	return Document{Fields: fields}
}

// NewText creates an unpersisted document with a single text field.
func NewText(text string) Document {
	return Document{Fields: Fields{"text": text}}
}

// HasID reports whether the document identity has been resolved.
func (d Document) HasID() bool { return !d.ID.IsZero() }

// Get returns the value of a payload field.
func (d Document) Get(key string) (interface{}, bool) {
	if d.Fields == nil {
		return nil, false
	}
	v, ok := d.Fields[key]
	return v, ok
}

// WithID returns a copy of the document carrying id. The receiver is not
// modified; the Fields map is shared with the copy.
func (d Document) WithID(id ID) Document {
	d.ID = id
	return d
}

// RequireID returns ErrIdentityNotResolved when the identity is unset.
func (d Document) RequireID() error {
	if !d.HasID() {
		return ErrIdentityNotResolved
	}
	return nil
}

// IDs returns the identities of docs in order.
func IDs(docs []Document) []ID {
	out := make([]ID, len(docs))
	for i := range docs {
		out[i] = docs[i].ID
	}
	return out
}

// Strings converts identities to plain strings.
func Strings(ids []ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// FromStrings converts plain strings to identities.
func FromStrings(values []string) []ID {
	out := make([]ID, len(values))
	for i, v := range values {
		out[i] = ID(v)
	}
	return out
}
