package lsp

import (
	"sort"
	"sync"

	"github.com/jarredhawkins/gherkin-lsp/internal/workspace"
)

// DocumentStore manages open text documents
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// Document represents an open text document
type Document struct {
	URI     string
	Version int
	Content string
}

// Lines splits the content into lines
func (d *Document) Lines() []string {
	return workspace.SplitLines(d.Content)
}

// NewDocumentStore creates a new document store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[string]*Document),
	}
}

// Open adds or updates a document
func (ds *DocumentStore) Open(uri string, version int, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.docs[uri] = &Document{
		URI:     uri,
		Version: version,
		Content: content,
	}
}

// Update updates a document's content
func (ds *DocumentStore) Update(uri string, version int, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if doc, ok := ds.docs[uri]; ok {
		doc.Version = version
		doc.Content = content
	}
}

// Close removes a document
func (ds *DocumentStore) Close(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	delete(ds.docs, uri)
}

// Get returns an open document
func (ds *DocumentStore) Get(uri string) (*Document, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	doc, ok := ds.docs[uri]
	if !ok {
		return nil, false
	}
	copied := *doc
	return &copied, true
}

// URIs lists open documents in sorted order
func (ds *DocumentStore) URIs() []string {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	uris := make([]string, 0, len(ds.docs))
	for uri := range ds.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
