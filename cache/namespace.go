package cache

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// KeySeparator defines the delimiter between a namespace and an identifier.
const KeySeparator = ":"

// Namespace scopes cache keys for one entity family.
type Namespace string

// Namespaces shared by the whole application. Every family owns exactly one.
const (
	NamespaceUser              Namespace = "user-data"
	NamespaceTeam              Namespace = "team-data"
	NamespaceOrganization      Namespace = "org-data"
	NamespaceProjectDetails    Namespace = "project-details"
	NamespaceProjectListItem   Namespace = "project-list-item"
	NamespaceProjectVersions   Namespace = "project-versions"
	NamespaceCollection        Namespace = "collection-data"
	NamespaceFile              Namespace = "file-data"
	NamespaceUserProjects      Namespace = "user-projects"
	NamespaceUserOrganizations Namespace = "user-organizations"
	NamespaceUserCollections   Namespace = "user-collections"
)

var (
	// ErrDuplicateNamespace is returned when a namespace is registered twice.
	ErrDuplicateNamespace = errors.New("cache: duplicate namespace")
	// ErrUnknownNamespace is returned for namespaces missing from the registry.
	ErrUnknownNamespace = errors.New("cache: unknown namespace")
	// ErrInvalidNamespace is returned for empty names or names containing the separator.
	ErrInvalidNamespace = errors.New("cache: invalid namespace")
)

var registry = struct {
	mu    sync.RWMutex
	names map[Namespace]struct{}
}{names: make(map[Namespace]struct{})}

func init() {
	for _, ns := range []Namespace{
		NamespaceUser,
		NamespaceTeam,
		NamespaceOrganization,
		NamespaceProjectDetails,
		NamespaceProjectListItem,
		NamespaceProjectVersions,
		NamespaceCollection,
		NamespaceFile,
		NamespaceUserProjects,
		NamespaceUserOrganizations,
		NamespaceUserCollections,
	} {
		if err := Register(ns); err != nil {
			panic(err)
		}
	}
}

// Register adds ns to the namespace registry. Colliding names are rejected
// so two entity families can never share a key space.
func Register(ns Namespace) error {
	if ns == "" || strings.Contains(string(ns), KeySeparator) {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, ns)
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, ok := registry.names[ns]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateNamespace, ns)
	}
	registry.names[ns] = struct{}{}
	return nil
}

// IsRegistered reports whether ns is part of the registry.
func IsRegistered(ns Namespace) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	_, ok := registry.names[ns]
	return ok
}

// Namespaces returns every registered namespace in lexical order.
func Namespaces() []Namespace {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	out := make([]Namespace, 0, len(registry.names))
	for ns := range registry.names {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate returns ErrUnknownNamespace when ns has not been registered.
func (ns Namespace) Validate() error {
	if !IsRegistered(ns) {
		return fmt.Errorf("%w: %q", ErrUnknownNamespace, ns)
	}
	return nil
}

// Key builds the cache key for identifier inside ns.
func (ns Namespace) Key(identifier string) string {
	return Key(ns, identifier)
}

// Key returns "{namespace}:{identifier}". The identifier is used verbatim;
// normalize human chosen identifiers with NormalizeIdentifier first.
func Key(ns Namespace, identifier string) string {
	return string(ns) + KeySeparator + identifier
}

// NormalizeIdentifier lowercases a human chosen identifier such as a slug or a
// username so lookups are case insensitive. Ids must not be normalized.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (ns Namespace) String() string {
	return string(ns)
}
