// Package blocks finds annotated blocks in a document and assigns source
// records to them.
//
// Matching is greedy: blocks are resolved in document order, sources in store
// order, and the first match wins. Each consumed source receives the next
// consumption index, which names both the image file and the stanza that
// replaces the block. Without an input document, ContactSheet emits one
// stanza per source instead.
package blocks
