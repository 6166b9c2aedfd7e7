package source

import (
	"sync"

	"github.com/c360studio/semcrate/consolidate"
)

// locator remembers where the crate of each consolidated namespace lives.
// Locations are directories for FSLoader and base URLs for URLLoader.
type locator struct {
	mu    sync.RWMutex
	bases map[string]string
}

func (l *locator) set(namespace, location string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bases == nil {
		l.bases = make(map[string]string)
	}
	l.bases[namespace] = location
}

func (l *locator) get(namespace string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	loc, ok := l.bases[namespace]
	return loc, ok
}

// childNamespace mirrors the namespace the consolidator assigns to a
// subcrate so that its own subcrates resolve against the right location.
func childNamespace(subcrateID, parentNamespace string) string {
	return consolidate.ChildNamespace(parentNamespace, consolidate.NamespaceFromFolderID(subcrateID))
}
