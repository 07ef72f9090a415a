package extract

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-kb/document"
)

type label string

func (l label) String() string { return "label:" + string(l) }

func TestExtractor_Text(t *testing.T) {
	ext := New()
	var testCases = []struct {
		description string
		input       interface{}
		expectText  string
		expectOK    bool
		expectErr   error
	}{
		{description: "string field", input: document.NewText("hello"), expectText: "hello", expectOK: true},
		{description: "pointer", input: &document.Document{Fields: document.Fields{"text": "ptr"}}, expectText: "ptr", expectOK: true},
		{description: "bytes", input: document.New(document.Fields{"text": []byte("raw")}), expectText: "raw", expectOK: true},
		{description: "stringer", input: document.New(document.Fields{"text": label("x")}), expectText: "label:x", expectOK: true},
		{description: "missing field", input: document.New(document.Fields{"title": "t"}), expectOK: false},
		{description: "nil fields", input: document.Document{}, expectOK: false},
		{description: "blank text", input: document.NewText("  \n"), expectOK: false},
		{description: "non text value", input: document.New(document.Fields{"text": 42}), expectOK: false},
		{description: "nil pointer", input: (*document.Document)(nil), expectErr: ErrInvalidInput},
		{description: "not a document", input: "plain string", expectErr: ErrInvalidInput},
		{description: "map value", input: map[string]interface{}{"text": "x"}, expectErr: ErrInvalidInput},
	}

	for _, testCase := range testCases {
		text, ok, err := ext.Text(testCase.input)
		if testCase.expectErr != nil {
			assert.True(t, errors.Is(err, testCase.expectErr), testCase.description)
			continue
		}
		require.NoError(t, err, testCase.description)
		assert.Equal(t, testCase.expectOK, ok, testCase.description)
		assert.Equal(t, testCase.expectText, text, testCase.description)
	}
}

func TestExtractor_WithField(t *testing.T) {
	ext := New(WithField("body"))
	assert.Equal(t, "body", ext.Field())
	text, ok, err := ext.Text(document.New(document.Fields{"body": "b", "text": "t"}))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", text)

	assert.Equal(t, DefaultField, New(WithField("")).Field())
}

func TestExtractor_Batch(t *testing.T) {
	ext := New()
	docs := []document.Document{
		{ID: "a", Fields: document.Fields{"text": "alpha"}},
		{ID: "b", Fields: document.Fields{"title": "no text"}},
		{ID: "c", Fields: document.Fields{"text": "gamma"}},
	}
	batch := ext.Batch(docs)
	assert.Equal(t, []string{"alpha", "gamma"}, batch.Texts)
	assert.Equal(t, []document.ID{"a", "c"}, batch.IDs)
	assert.Equal(t, []document.ID{"b"}, batch.Skipped)
	assert.Equal(t, 2, batch.Len())
}

// TestExtractor_BatchDropsAnyPosition drops the single text-less document at
// every position of the batch and checks alignment of the outputs.
func TestExtractor_BatchDropsAnyPosition(t *testing.T) {
	ext := New()
	const n = 5
	for k := 0; k < n; k++ {
		docs := make([]document.Document, n)
		for i := 0; i < n; i++ {
			id := document.ID(fmt.Sprintf("id-%d", i))
			docs[i] = document.Document{ID: id, Fields: document.Fields{"text": fmt.Sprintf("text-%d", i)}}
			if i == k {
				docs[i].Fields = document.Fields{}
			}
		}
		batch := ext.Batch(docs)
		require.Len(t, batch.Texts, n-1, "k=%d", k)
		require.Len(t, batch.IDs, n-1, "k=%d", k)
		assert.NotContains(t, batch.IDs, document.ID(fmt.Sprintf("id-%d", k)))
		for i, id := range batch.IDs {
			assert.Equal(t, "text-"+string(id)[3:], batch.Texts[i])
		}
	}
}

func TestExtractor_BatchEmpty(t *testing.T) {
	batch := New().Batch(nil)
	assert.Equal(t, 0, batch.Len())
	assert.Empty(t, batch.IDs)
	assert.Empty(t, batch.Skipped)
}
