// Package extract converts documents into the text used for embedding and
// similarity search.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/viant/sqlite-kb/document"
)

// DefaultField is the payload field holding embeddable text.
const DefaultField = "text"

// ErrInvalidInput is returned when extraction is attempted on a value that is
// not a document.
var ErrInvalidInput = errors.New("extract: invalid input")

// Extractor reads embeddable text from a configured document field.
type Extractor struct {
	field string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithField overrides the text field name.
func WithField(name string) Option {
	return func(e *Extractor) {
		if name != "" {
			e.field = name
		}
	}
}

// New creates an Extractor reading DefaultField unless overridden.
func New(opts ...Option) *Extractor {
	e := &Extractor{field: DefaultField}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Field returns the payload field the extractor reads.
func (e *Extractor) Field() string { return e.field }

// Text returns the embeddable text of v, which must be a document.Document
// or a non-nil *document.Document. The boolean is false when the document
// carries no usable text; that is not an error.
func (e *Extractor) Text(v interface{}) (string, bool, error) {
	switch doc := v.(type) {
	case document.Document:
		text, ok := e.text(doc)
		return text, ok, nil
	case *document.Document:
		if doc == nil {
			return "", false, fmt.Errorf("%w: nil *document.Document", ErrInvalidInput)
		}
		text, ok := e.text(*doc)
		return text, ok, nil
	default:
		return "", false, fmt.Errorf("%w: %T is not a document", ErrInvalidInput, v)
	}
}

// Batch holds the result of batch extraction. Texts and IDs are parallel:
// Texts[i] was extracted from the document identified by IDs[i].
type Batch struct {
	Texts []string
	IDs   []document.ID

	// Skipped lists, in input order, identities of documents without text.
	Skipped []document.ID
}

// Len returns the number of extracted documents.
func (b Batch) Len() int { return len(b.Texts) }

// Batch extracts text from docs, dropping documents with no text from both
// Texts and IDs while preserving the relative input order.
func (e *Extractor) Batch(docs []document.Document) Batch {
	out := Batch{
		Texts: make([]string, 0, len(docs)),
		IDs:   make([]document.ID, 0, len(docs)),
	}
	for _, doc := range docs {
		text, ok := e.text(doc)
		if !ok {
			out.Skipped = append(out.Skipped, doc.ID)
			continue
		}
		out.Texts = append(out.Texts, text)
		out.IDs = append(out.IDs, doc.ID)
	}
	return out
}

func (e *Extractor) text(doc document.Document) (string, bool) {
	raw, ok := doc.Get(e.field)
	if !ok || raw == nil {
		return "", false
	}
	var text string
	switch actual := raw.(type) {
	case string:
		text = actual
	case []byte:
		text = string(actual)
	case fmt.Stringer:
		text = actual.String()
	default:
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}
