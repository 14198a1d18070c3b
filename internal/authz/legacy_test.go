package authz

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/staydesk/staydesk/internal/models"
)

func TestLegacyGrantsAreCatalogDefined(t *testing.T) {
	for _, role := range LegacyRoleNames() {
		set := LegacyGrants(role)
		require.NotEmpty(t, set, string(role))
		for _, value := range set.Strings() {
			triple, err := ParseTriple(value)
			require.NoError(t, err, "%s grants %s", role, value)
			require.True(t, Defined(triple), "%s grants %s", role, value)
		}
	}
}

func TestLegacyGrantsUnknownRoleIsEmpty(t *testing.T) {
	require.Empty(t, LegacyGrants(models.LegacyRole("concierge")))
	require.Empty(t, LegacyGrants(models.LegacyRolePlatformAdmin))
}

func TestLegacyGrantsWidenUpTheHierarchy(t *testing.T) {
	staff := LegacyGrants(models.LegacyRoleStaff)
	deptAdmin := LegacyGrants(models.LegacyRoleDepartmentAdmin)
	manager := LegacyGrants(models.LegacyRolePropertyManager)
	orgAdmin := LegacyGrants(models.LegacyRoleOrgAdmin)
	orgOwner := LegacyGrants(models.LegacyRoleOrgOwner)

	requested := Triple{Resource: "schedule", Action: "read", Scope: ScopeOwn}
	for _, set := range []Set{staff, deptAdmin, manager, orgAdmin, orgOwner} {
		require.True(t, set.Covers(requested))
	}

	approveDept := Triple{Resource: "leave", Action: "approve", Scope: ScopeDepartment}
	require.False(t, staff.Covers(approveDept))
	require.True(t, deptAdmin.Covers(approveDept))
	require.True(t, manager.Covers(approveDept))

	orgUsers := Triple{Resource: "user", Action: "create", Scope: ScopeOrganization}
	require.False(t, manager.Covers(orgUsers))
	require.True(t, orgAdmin.Covers(orgUsers))
	require.True(t, orgOwner.Covers(orgUsers))
}
