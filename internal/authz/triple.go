package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownScope indicates a scope outside the five-element hierarchy.
	ErrUnknownScope = errors.New("authz: unknown scope")
	// ErrMalformedPermission indicates a string that is not resource.action.scope.
	ErrMalformedPermission = errors.New("authz: malformed permission")
	// ErrUnknownPermission indicates a triple the catalog does not define.
	ErrUnknownPermission = errors.New("authz: unknown permission")
)

// Triple is a parsed resource.action.scope permission.
type Triple struct {
	Resource string
	Action   string
	Scope    Scope
}

// ParseTriple parses the canonical dotted form, e.g. "schedule.approve.department".
func ParseTriple(value string) (Triple, error) {
	parts := strings.Split(strings.TrimSpace(value), ".")
	if len(parts) != 3 {
		return Triple{}, fmt.Errorf("%w %q", ErrMalformedPermission, value)
	}

	resource := strings.ToLower(strings.TrimSpace(parts[0]))
	action := strings.ToLower(strings.TrimSpace(parts[1]))
	if resource == "" || action == "" {
		return Triple{}, fmt.Errorf("%w %q", ErrMalformedPermission, value)
	}

	scope, err := ParseScope(parts[2])
	if err != nil {
		return Triple{}, err
	}

	return Triple{Resource: resource, Action: action, Scope: scope}, nil
}

// String renders the canonical dotted form.
func (t Triple) String() string {
	return t.Resource + "." + t.Action + "." + t.Scope.String()
}

// Covers reports whether this granted triple satisfies the requested one:
// same resource and action, and a scope at least as wide.
func (t Triple) Covers(requested Triple) bool {
	return t.Resource == requested.Resource &&
		t.Action == requested.Action &&
		t.Scope.Covers(requested.Scope)
}

// Set is a collection of granted triples keyed by their canonical string form.
type Set map[string]Triple

// NewSet builds a Set from parsed triples.
func NewSet(triples ...Triple) Set {
	set := make(Set, len(triples))
	for _, t := range triples {
		set[t.String()] = t
	}
	return set
}

// Add inserts a triple into the set.
func (s Set) Add(t Triple) {
	s[t.String()] = t
}

// Remove deletes the exact triple from the set.
func (s Set) Remove(t Triple) {
	delete(s, t.String())
}

// Contains reports whether the exact triple is present.
func (s Set) Contains(t Triple) bool {
	_, ok := s[t.String()]
	return ok
}

// Covers reports whether any member of the set covers the requested triple.
func (s Set) Covers(requested Triple) bool {
	_, ok := s.CoveringGrant(requested)
	return ok
}

// CoveringGrant returns the widest member covering the requested triple.
func (s Set) CoveringGrant(requested Triple) (Triple, bool) {
	var best Triple
	found := false
	for _, granted := range s {
		if !granted.Covers(requested) {
			continue
		}
		if !found || granted.Scope.Rank() > best.Scope.Rank() {
			best = granted
			found = true
		}
	}
	return best, found
}

// Strings returns the sorted canonical forms of every member.
func (s Set) Strings() []string {
	out := make([]string, 0, len(s))
	for key := range s {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
