package authz

import (
	"fmt"
	"strings"
)

// Scope bounds how far a granted permission reaches through the tenancy tree.
type Scope string

const (
	ScopeOwn          Scope = "own"
	ScopeDepartment   Scope = "department"
	ScopeProperty     Scope = "property"
	ScopeOrganization Scope = "organization"
	ScopeAll          Scope = "all"
)

// scopeRanks orders scopes from narrowest to widest. A grant at a given rank
// covers every request at the same or a lower rank.
var scopeRanks = map[Scope]int{
	ScopeOwn:          0,
	ScopeDepartment:   1,
	ScopeProperty:     2,
	ScopeOrganization: 3,
	ScopeAll:          4,
}

// Scopes lists all valid scopes from narrowest to widest.
func Scopes() []Scope {
	return []Scope{ScopeOwn, ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll}
}

// ParseScope validates a scope string.
func ParseScope(value string) (Scope, error) {
	scope := Scope(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := scopeRanks[scope]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownScope, value)
	}
	return scope, nil
}

// Valid reports whether the scope is one of the five known values.
func (s Scope) Valid() bool {
	_, ok := scopeRanks[s]
	return ok
}

// Rank returns the position of the scope in the hierarchy; wider scopes rank higher.
func (s Scope) Rank() int {
	return scopeRanks[s]
}

// Covers reports whether a grant at scope s satisfies a request at scope
// requested. Both scopes must be valid.
func (s Scope) Covers(requested Scope) bool {
	if !s.Valid() || !requested.Valid() {
		return false
	}
	return s.Rank() >= requested.Rank()
}

func (s Scope) String() string {
	return string(s)
}
