package source

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/c360studio/semcrate/consolidate"
	"github.com/c360studio/semcrate/jsonld"
	"github.com/c360studio/semcrate/source/weburl"
)

// namespaceOwner is implemented by loaders that track which namespaces they
// have loaded.
type namespaceOwner interface {
	Owns(namespace string) bool
}

// MultiLoader routes subcrate loads to the loader that can serve them.
//
// Loads below a mounted namespace go to the mounted loader, with the mount
// point stripped from the parent namespace. Otherwise absolute http(s) ids,
// and relative ids inside a remotely loaded crate, go to Remote; everything
// else goes to Local.
type MultiLoader struct {
	Local  consolidate.Loader
	Remote consolidate.Loader

	mu     sync.RWMutex
	mounts map[string]consolidate.Loader
}

// Mount serves every subcrate found below namespace with l. Explicitly
// merged crates are mounted at the namespace of their folder.
func (m *MultiLoader) Mount(namespace string, l consolidate.Loader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mounts == nil {
		m.mounts = make(map[string]consolidate.Loader)
	}
	m.mounts[namespace] = l
}

// Load implements consolidate.Loader.
func (m *MultiLoader) Load(ctx context.Context, subcrateID, parentNamespace string) (jsonld.Graph, error) {
	l, ns, err := m.route(subcrateID, parentNamespace)
	if err != nil {
		return nil, err
	}
	return l.Load(ctx, subcrateID, ns)
}

// LoadReference implements consolidate.ReferenceLoader.
func (m *MultiLoader) LoadReference(ctx context.Context, subcrateID string, ref *jsonld.Object, parentNamespace string) (jsonld.Graph, error) {
	l, ns, err := m.route(subcrateID, parentNamespace)
	if err != nil {
		return nil, err
	}
	if rl, ok := l.(consolidate.ReferenceLoader); ok {
		return rl.LoadReference(ctx, subcrateID, ref, ns)
	}
	return l.Load(ctx, subcrateID, ns)
}

// Owns reports whether any routed loader knows namespace.
func (m *MultiLoader) Owns(namespace string) bool {
	l, ns, err := m.route("", namespace)
	if err != nil {
		return false
	}
	if o, ok := l.(namespaceOwner); ok {
		return o.Owns(ns)
	}
	return false
}

func (m *MultiLoader) route(subcrateID, parentNamespace string) (consolidate.Loader, string, error) {
	m.mu.RLock()
	var (
		mounted consolidate.Loader
		point   string
	)
	for ns, l := range m.mounts {
		if (parentNamespace == ns || strings.HasPrefix(parentNamespace, ns+"/")) && (mounted == nil || len(ns) > len(point)) {
			mounted, point = l, ns
		}
	}
	m.mu.RUnlock()

	if mounted != nil {
		rel := strings.TrimPrefix(strings.TrimPrefix(parentNamespace, point), "/")
		return mounted, rel, nil
	}

	var l consolidate.Loader
	switch {
	case weburl.IsHTTP(subcrateID):
		l = m.Remote
	case m.remoteOwns(parentNamespace):
		l = m.Remote
	default:
		l = m.Local
	}
	if l == nil {
		return nil, "", &consolidate.LoadError{
			SubcrateID:      subcrateID,
			ParentNamespace: parentNamespace,
			Err:             fmt.Errorf("%w: no loader for this source", consolidate.ErrLoaderDisabled),
		}
	}
	return l, parentNamespace, nil
}

func (m *MultiLoader) remoteOwns(namespace string) bool {
	o, ok := m.Remote.(namespaceOwner)
	return ok && o.Owns(namespace)
}
