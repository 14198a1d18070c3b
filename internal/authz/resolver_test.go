package authz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/staydesk/staydesk/internal/models"
)

func TestResolveLegacyFallback(t *testing.T) {
	db := setupAuthzTestDB(t)
	user := createTestUser(t, db, "front-desk", models.LegacyRoleStaff)

	resolver, err := NewResolver(db)
	require.NoError(t, err)

	set, err := resolver.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, LegacyGrants(models.LegacyRoleStaff).Strings(), set.Strings())
}

func TestResolvePlatformAdminGetsFullCatalog(t *testing.T) {
	db := setupAuthzTestDB(t)
	user := createTestUser(t, db, "root", models.LegacyRolePlatformAdmin)

	resolver, err := NewResolver(db)
	require.NoError(t, err)

	set, err := resolver.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, set, len(Triples()))
}

func TestResolveUnionsRolePermissions(t *testing.T) {
	db := setupAuthzTestDB(t)
	user := createTestUser(t, db, "supervisor", models.LegacyRoleStaff)

	attachRole(t, db, user, "scheduler", "schedule.read.department", "schedule.update.department")
	attachRole(t, db, user, "leave-approver", "leave.read.department", "leave.approve.department", "schedule.read.department")

	resolver, err := NewResolver(db)
	require.NoError(t, err)

	set, err := resolver.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, []string{
		"leave.approve.department",
		"leave.read.department",
		"schedule.read.department",
		"schedule.update.department",
	}, set.Strings())
}

func TestResolveDirectGrantSuppressesLegacyFallback(t *testing.T) {
	db := setupAuthzTestDB(t)
	user := createTestUser(t, db, "contractor", models.LegacyRoleStaff)

	addOverride(t, db, user, "audit.read.property", true, nil)

	resolver, err := NewResolver(db)
	require.NoError(t, err)

	set, err := resolver.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"audit.read.property"}, set.Strings())
}

func TestResolveExpiredOverridesAreIgnored(t *testing.T) {
	db := setupAuthzTestDB(t)
	user := createTestUser(t, db, "temp", models.LegacyRoleStaff)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	addOverride(t, db, user, "audit.read.property", true, &past)

	resolver, err := NewResolver(db)
	require.NoError(t, err)
	resolver.WithClock(func() time.Time { return now })

	// The only override has lapsed, so the legacy fallback applies again.
	set, err := resolver.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, LegacyGrants(models.LegacyRoleStaff).Strings(), set.Strings())
}

func TestResolveDenialRemovesExactTripleOnly(t *testing.T) {
	db := setupAuthzTestDB(t)
	user := createTestUser(t, db, "analyst", models.LegacyRoleStaff)

	attachRole(t, db, user, "hr-reader", "user.read.own", "user.read.organization")
	addOverride(t, db, user, "user.read.own", false, nil)

	resolver, err := NewResolver(db)
	require.NoError(t, err)

	set, err := resolver.Resolve(context.Background(), user.ID)
	require.NoError(t, err)

	require.False(t, set.Contains(Triple{Resource: "user", Action: "read", Scope: ScopeOwn}))
	require.True(t, set.Contains(Triple{Resource: "user", Action: "read", Scope: ScopeOrganization}))

	// The wider grant still covers the denied narrower triple: denial cuts a
	// single triple out of the set, it does not veto the check.
	require.True(t, set.Covers(Triple{Resource: "user", Action: "read", Scope: ScopeOwn}))
}

func TestResolveDenialBeatsDirectGrantOfSameTriple(t *testing.T) {
	db := setupAuthzTestDB(t)
	user := createTestUser(t, db, "suspended", models.LegacyRoleStaff)

	attachRole(t, db, user, "payroll-reader", "payroll.read.department")
	addOverride(t, db, user, "payroll.read.department", false, nil)
	addOverride(t, db, user, "payroll.read.own", true, nil)

	resolver, err := NewResolver(db)
	require.NoError(t, err)

	set, err := resolver.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"payroll.read.own"}, set.Strings())
}

func TestResolveRejectsMissingAndInactiveUsers(t *testing.T) {
	db := setupAuthzTestDB(t)

	resolver, err := NewResolver(db)
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = resolver.Resolve(context.Background(), "00000000-0000-0000-0000-000000000000")
	require.ErrorIs(t, err, ErrUserNotFound)

	user := createTestUser(t, db, "departed", models.LegacyRoleStaff)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

	_, err = resolver.Resolve(context.Background(), user.ID)
	require.ErrorIs(t, err, ErrUserInactive)
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role models.LegacyRole) *models.User {
	t.Helper()

	user := &models.User{
		Username:   username,
		Email:      username + "@staydesk.test",
		Password:   "secret",
		LegacyRole: role,
		IsActive:   true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func attachRole(t *testing.T, db *gorm.DB, user *models.User, name string, permissions ...string) *models.CustomRole {
	t.Helper()

	role := &models.CustomRole{Name: name}
	require.NoError(t, db.Create(role).Error)

	for _, value := range permissions {
		perm := findPermission(t, db, value)
		require.NoError(t, db.Model(role).Association("Permissions").Append(&perm))
	}
	require.NoError(t, db.Model(user).Association("CustomRoles").Append(role))
	return role
}

func addOverride(t *testing.T, db *gorm.DB, user *models.User, permission string, granted bool, expiresAt *time.Time) {
	t.Helper()

	perm := findPermission(t, db, permission)
	override := models.UserPermission{
		UserID:       user.ID,
		PermissionID: perm.ID,
		Granted:      granted,
		ExpiresAt:    expiresAt,
	}
	require.NoError(t, db.Create(&override).Error)
}

func findPermission(t *testing.T, db *gorm.DB, value string) models.Permission {
	t.Helper()

	triple, err := ParseTriple(value)
	require.NoError(t, err)

	var perm models.Permission
	require.NoError(t, db.First(&perm, "resource = ? AND action = ? AND scope = ?",
		triple.Resource, triple.Action, string(triple.Scope)).Error)
	return perm
}
