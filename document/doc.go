// Package document defines the Document model shared by the document store,
// the vector store and the text extractor:
//   - ID: opaque identity minted by a document store
//   - Fields: open payload, including the embeddable text field
//   - Document: identity plus payload
package document
