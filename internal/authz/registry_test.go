package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterValidation(t *testing.T) {
	t.Cleanup(func() {
		reset()
		registerCatalog()
	})
	reset()

	require.Error(t, Register(nil))
	require.Error(t, Register(&Definition{Action: "read", Scopes: []Scope{ScopeOwn}}))
	require.Error(t, Register(&Definition{Resource: "report", Action: "read"}))
	require.ErrorIs(t,
		Register(&Definition{Resource: "report", Action: "read", Scopes: []Scope{Scope("region")}}),
		ErrUnknownScope)

	require.NoError(t, Register(&Definition{
		Resource: "Report",
		Action:   " Read ",
		Scopes:   []Scope{ScopeAll, ScopeOwn, ScopeOwn},
	}))

	// Duplicate resource/action pairs are rejected.
	require.Error(t, Register(&Definition{
		Resource: "report",
		Action:   "read",
		Scopes:   []Scope{ScopeOwn},
	}))

	def, ok := Lookup("report", "read")
	require.True(t, ok)
	require.Equal(t, "report", def.Resource)
	require.Equal(t, "read", def.Action)
	// Scopes are deduplicated and sorted narrow to wide.
	require.Equal(t, []Scope{ScopeOwn, ScopeAll}, def.Scopes)
}

func TestDefinedRespectsAllowedScopes(t *testing.T) {
	require.True(t, Defined(Triple{Resource: "user", Action: "read", Scope: ScopeOwn}))
	require.True(t, Defined(Triple{Resource: "user", Action: "read", Scope: ScopeAll}))

	// user.create is not grantable at own scope.
	require.False(t, Defined(Triple{Resource: "user", Action: "create", Scope: ScopeOwn}))
	require.False(t, Defined(Triple{Resource: "booking", Action: "read", Scope: ScopeOwn}))
}

func TestCatalogInvariants(t *testing.T) {
	defs := All()
	require.NotEmpty(t, defs)

	total := 0
	for _, def := range defs {
		require.NotEmpty(t, def.Scopes, def.Key())
		require.NotEmpty(t, def.Category, def.Key())
		total += len(def.Scopes)
	}

	triples := Triples()
	require.Len(t, triples, total)
	for _, triple := range triples {
		require.True(t, Defined(triple), triple.String())
	}
}

func TestByCategory(t *testing.T) {
	core := ByCategory("core")
	require.NotEmpty(t, core)
	for _, def := range core {
		require.Equal(t, "core", def.Category)
	}

	require.Empty(t, ByCategory("nope"))
}

func TestLookupReturnsCopy(t *testing.T) {
	def, ok := Lookup("user", "read")
	require.True(t, ok)

	def.Scopes[0] = ScopeAll
	fresh, ok := Lookup("user", "read")
	require.True(t, ok)
	require.Equal(t, ScopeOwn, fresh.Scopes[0])
}
