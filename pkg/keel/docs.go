package keel

import (
	"slices"
	"sync"
)

// HandlerDoc is the documentation extracted from a handler's doc comment by
// `keel docgen`
type HandlerDoc struct {
	// Description is the doc comment text without directive lines
	Description string
	// Summary comes from a `keel::summary` directive
	Summary string
	// Deprecated is set by a `keel::deprecated` directive
	Deprecated bool
	// Tags come from `keel::tag` directives
	Tags []string
}

var docs = struct {
	sync.RWMutex
	table map[string]HandlerDoc
}{table: make(map[string]HandlerDoc)}

// RegisterDoc records the documentation of a handler. name is the handler's
// runtime function name, e.g. "example.com/app/controllers.(*UserController).Get".
// Generated zz_keel_docs.go files call it from init.
func RegisterDoc(name string, doc HandlerDoc) {
	docs.Lock()
	defer docs.Unlock()
	doc.Tags = slices.Clone(doc.Tags)
	docs.table[name] = doc
}

// Doc returns the documentation registered for a handler
func Doc(name string) (HandlerDoc, bool) {
	docs.RLock()
	defer docs.RUnlock()
	doc, ok := docs.table[name]
	doc.Tags = slices.Clone(doc.Tags)
	return doc, ok
}
