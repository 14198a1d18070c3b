package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTriple(t *testing.T) {
	triple, err := ParseTriple("schedule.read.property")
	require.NoError(t, err)
	require.Equal(t, "schedule", triple.Resource)
	require.Equal(t, "read", triple.Action)
	require.Equal(t, ScopeProperty, triple.Scope)
	require.Equal(t, "schedule.read.property", triple.String())

	_, err = ParseTriple("schedule.read")
	require.ErrorIs(t, err, ErrMalformedPermission)

	_, err = ParseTriple("")
	require.ErrorIs(t, err, ErrMalformedPermission)

	_, err = ParseTriple("schedule.read.region")
	require.ErrorIs(t, err, ErrUnknownScope)
}

func TestTripleCovers(t *testing.T) {
	grant := Triple{Resource: "schedule", Action: "read", Scope: ScopeProperty}

	require.True(t, grant.Covers(Triple{Resource: "schedule", Action: "read", Scope: ScopeOwn}))
	require.True(t, grant.Covers(Triple{Resource: "schedule", Action: "read", Scope: ScopeProperty}))
	require.False(t, grant.Covers(Triple{Resource: "schedule", Action: "read", Scope: ScopeOrganization}))
	require.False(t, grant.Covers(Triple{Resource: "schedule", Action: "update", Scope: ScopeOwn}))
	require.False(t, grant.Covers(Triple{Resource: "shift", Action: "read", Scope: ScopeOwn}))
}

func TestSetAddRemoveContains(t *testing.T) {
	set := make(Set)
	triple := Triple{Resource: "leave", Action: "approve", Scope: ScopeDepartment}

	require.False(t, set.Contains(triple))
	set.Add(triple)
	require.True(t, set.Contains(triple))
	set.Remove(triple)
	require.False(t, set.Contains(triple))
}

func TestSetCoveringGrantPrefersWidest(t *testing.T) {
	set := NewSet(
		Triple{Resource: "user", Action: "read", Scope: ScopeDepartment},
		Triple{Resource: "user", Action: "read", Scope: ScopeOrganization},
	)

	grant, ok := set.CoveringGrant(Triple{Resource: "user", Action: "read", Scope: ScopeOwn})
	require.True(t, ok)
	require.Equal(t, ScopeOrganization, grant.Scope)

	_, ok = set.CoveringGrant(Triple{Resource: "user", Action: "read", Scope: ScopeAll})
	require.False(t, ok)

	_, ok = set.CoveringGrant(Triple{Resource: "user", Action: "delete", Scope: ScopeOwn})
	require.False(t, ok)
}

func TestSetStringsSorted(t *testing.T) {
	set := NewSet(
		Triple{Resource: "user", Action: "read", Scope: ScopeOwn},
		Triple{Resource: "leave", Action: "approve", Scope: ScopeDepartment},
		Triple{Resource: "shift", Action: "swap", Scope: ScopeOwn},
	)

	require.Equal(t, []string{
		"leave.approve.department",
		"shift.swap.own",
		"user.read.own",
	}, set.Strings())
}
