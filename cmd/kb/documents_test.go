package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/sqlite-kb/document"
)

func TestReadDocuments(t *testing.T) {
	docs, err := readDocuments(strings.NewReader(`{"text":"alpha","tag":"a"}

{"title":"no text"}
`))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	text, _ := docs[0].Get("text")
	assert.Equal(t, "alpha", text)
	assert.False(t, docs[1].HasID())

	_, err = readDocuments(strings.NewReader("{\"text\":\"a\"}\nnot json\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestWriteDocuments(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeDocuments(&buf, []document.Document{document.NewText("a").WithID("1")}))
	assert.Equal(t, `{"id":"1","fields":{"text":"a"}}`+"\n", buf.String())
}
