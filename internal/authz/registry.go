package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Definition describes a catalog entry: a resource/action pair and the scopes
// at which it may be granted. The catalog is the source of truth both for
// validating checks and for seeding the permission table.
type Definition struct {
	Resource    string
	Action      string
	Scopes      []Scope
	Category    string
	Description string
}

// Key returns the resource.action pair identifying the definition.
func (d Definition) Key() string {
	return d.Resource + "." + d.Action
}

type definitionRegistry struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
}

var globalRegistry = &definitionRegistry{
	definitions: make(map[string]*Definition),
}

var (
	errNilDefinition  = errors.New("authz: nil definition")
	errEmptyResource  = errors.New("authz: resource and action are required")
	errNoScopes       = errors.New("authz: at least one scope is required")
	errDuplicateEntry = errors.New("authz: already registered")
)

// Register adds a permission definition to the global registry.
func Register(def *Definition) error {
	if def == nil {
		return errNilDefinition
	}

	entry := *def
	entry.Resource = strings.ToLower(strings.TrimSpace(entry.Resource))
	entry.Action = strings.ToLower(strings.TrimSpace(entry.Action))
	entry.Category = strings.TrimSpace(entry.Category)
	if entry.Resource == "" || entry.Action == "" {
		return errEmptyResource
	}

	scopes, err := normaliseScopes(entry.Scopes)
	if err != nil {
		return err
	}
	entry.Scopes = scopes

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	key := entry.Key()
	if _, exists := globalRegistry.definitions[key]; exists {
		return fmt.Errorf("%w: %s", errDuplicateEntry, key)
	}

	globalRegistry.definitions[key] = &entry
	return nil
}

// Lookup returns the definition for a resource/action pair when registered.
func Lookup(resource, action string) (*Definition, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	def, ok := globalRegistry.definitions[strings.ToLower(resource)+"."+strings.ToLower(action)]
	if !ok {
		return nil, false
	}
	return cloneDefinition(def), true
}

// Defined reports whether the triple is legal per the catalog: the
// resource/action pair exists and the scope is allowed for it.
func Defined(t Triple) bool {
	def, ok := Lookup(t.Resource, t.Action)
	if !ok {
		return false
	}
	for _, scope := range def.Scopes {
		if scope == t.Scope {
			return true
		}
	}
	return false
}

// All returns every registered definition sorted by key.
func All() []*Definition {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	out := make([]*Definition, 0, len(globalRegistry.definitions))
	for _, def := range globalRegistry.definitions {
		out = append(out, cloneDefinition(def))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// ByCategory gathers definitions registered under the specified category.
func ByCategory(category string) []*Definition {
	category = strings.TrimSpace(category)

	var defs []*Definition
	for _, def := range All() {
		if def.Category == category {
			defs = append(defs, def)
		}
	}
	return defs
}

// Triples expands every definition into its full list of grantable triples,
// sorted by canonical string.
func Triples() []Triple {
	var out []Triple
	for _, def := range All() {
		for _, scope := range def.Scopes {
			out = append(out, Triple{Resource: def.Resource, Action: def.Action, Scope: scope})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func cloneDefinition(def *Definition) *Definition {
	if def == nil {
		return nil
	}
	cp := *def
	if len(def.Scopes) > 0 {
		cp.Scopes = append([]Scope(nil), def.Scopes...)
	}
	return &cp
}

func normaliseScopes(scopes []Scope) ([]Scope, error) {
	if len(scopes) == 0 {
		return nil, errNoScopes
	}

	seen := make(map[Scope]struct{}, len(scopes))
	result := make([]Scope, 0, len(scopes))
	for _, scope := range scopes {
		if !scope.Valid() {
			return nil, fmt.Errorf("%w %q", ErrUnknownScope, scope)
		}
		if _, exists := seen[scope]; exists {
			continue
		}
		seen[scope] = struct{}{}
		result = append(result, scope)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Rank() < result[j].Rank() })
	return result, nil
}

// reset clears registry entries. Intended for testing only.
func reset() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.definitions = make(map[string]*Definition)
}
