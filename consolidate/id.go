package consolidate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/c360studio/semcrate/vocabulary/rocrate"
)

// IDKind classifies an entity identifier.
type IDKind int

// Identifier kinds.
const (
	KindRelative IDKind = iota
	KindRoot
	KindFragment
	KindAbsolute
	KindMetadataDescriptor
)

// String returns the kind name.
func (k IDKind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindRelative:
		return "relative"
	case KindFragment:
		return "fragment"
	case KindAbsolute:
		return "absolute"
	case KindMetadataDescriptor:
		return "metadata-descriptor"
	default:
		return "unknown"
	}
}

var absoluteSchemes = []string{"http://", "https://", "urn:", "mailto:", "arcp:"}

// Classify returns the kind of id.
func Classify(id string) IDKind {
	switch {
	case id == rocrate.RootID:
		return KindRoot
	case strings.HasSuffix(id, rocrate.MetadataDescriptorID):
		return KindMetadataDescriptor
	case strings.HasPrefix(id, "#"):
		return KindFragment
	case isAbsolute(id):
		return KindAbsolute
	default:
		return KindRelative
	}
}

func isAbsolute(id string) bool {
	for _, scheme := range absoluteSchemes {
		if strings.HasPrefix(id, scheme) {
			return true
		}
	}
	return false
}

func isHTTPURL(id string) bool {
	return strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
}

// FragmentRegistry records every fragment identifier handed out during one
// consolidation run. It is not safe for concurrent use.
type FragmentRegistry struct {
	used map[string]struct{}
}

// NewFragmentRegistry returns an empty registry.
func NewFragmentRegistry() *FragmentRegistry {
	return &FragmentRegistry{used: make(map[string]struct{})}
}

// Contains reports whether fragment has been allocated.
func (r *FragmentRegistry) Contains(fragment string) bool {
	_, ok := r.used[fragment]
	return ok
}

// Register allocates fragment.
func (r *FragmentRegistry) Register(fragment string) {
	r.used[fragment] = struct{}{}
}

// Len returns the number of allocated fragments.
func (r *FragmentRegistry) Len() int {
	return len(r.used)
}

// Rewrite returns id placed under namespace and whether it changed.
// An empty namespace is the identity, but its fragments are still
// registered. Fragments keep their bare form the first time they are seen
// in the run; later occurrences become "#{namespace}-{name}".
func Rewrite(id, namespace string, reg *FragmentRegistry) (string, bool) {
	if namespace == "" {
		if Classify(id) == KindFragment {
			reg.Register(id)
		}
		return id, false
	}

	switch Classify(id) {
	case KindRoot:
		return "./" + namespace + "/", true
	case KindRelative:
		return "./" + namespace + "/" + strings.TrimPrefix(id, "./"), true
	case KindFragment:
		if reg.Contains(id) {
			renamed := "#" + namespace + "-" + id[1:]
			reg.Register(renamed)
			return renamed, true
		}
		reg.Register(id)
		return id, false
	default:
		return id, false
	}
}

// IDMap maps original identifiers to their rewritten form. Identifiers that
// do not change have no entry.
type IDMap map[string]string

// Lookup returns the rewritten form of id, or id itself.
func (m IDMap) Lookup(id string) string {
	if mapped, ok := m[id]; ok {
		return mapped
	}
	return id
}

// BuildIDMap rewrites every id under namespace. An id listed more than once
// is rewritten once, so a repeated fragment does not collide with itself.
func BuildIDMap(ids []string, namespace string, reg *FragmentRegistry) IDMap {
	m := make(IDMap)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if rewritten, changed := Rewrite(id, namespace, reg); changed {
			m[id] = rewritten
		}
	}
	return m
}

// NamespaceFromFolderID derives a namespace from a folder-style identifier.
// For an http(s) URL it is the last non-empty path segment; otherwise the
// id with any leading "./" and trailing "/" removed.
func NamespaceFromFolderID(id string) string {
	if isHTTPURL(id) {
		u, err := url.Parse(id)
		if err != nil {
			return strings.TrimRight(id, "/")
		}
		path := strings.TrimRight(u.Path, "/")
		if i := strings.LastIndex(path, "/"); i >= 0 && i < len(path)-1 {
			return path[i+1:]
		}
		if path != "" {
			return path
		}
		return u.Host
	}
	return strings.TrimRight(strings.TrimPrefix(id, "./"), "/")
}

// ChildNamespace joins a parent namespace and a child name.
func ChildNamespace(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// ValidateFolderID checks an explicitly supplied folder id.
func ValidateFolderID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: folder id cannot be empty", ErrInvalidFolderID)
	case id == rocrate.RootID:
		return fmt.Errorf("%w: folder id cannot be the root %q", ErrInvalidFolderID, id)
	case !strings.HasSuffix(id, "/"):
		return fmt.Errorf("%w: folder id must end with '/': %q", ErrInvalidFolderID, id)
	case isAbsolute(id):
		return fmt.Errorf("%w: folder id cannot be an absolute URI: %q", ErrInvalidFolderID, id)
	}
	return nil
}

// inNamespace reports whether ns is root or nested beneath it.
func inNamespace(ns, root string) bool {
	return ns == root || strings.HasPrefix(ns, root+"/")
}
