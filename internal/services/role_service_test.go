package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/staydesk/staydesk/internal/authz"
	testutil "github.com/staydesk/staydesk/internal/database/testutil"
	"github.com/staydesk/staydesk/internal/models"
)

func TestCreateRoleWithPermissions(t *testing.T) {
	db, svc, _ := setupRoleService(t)
	org := &models.Organization{Name: "Harbour Group", Slug: "harbour"}
	require.NoError(t, db.Create(org).Error)

	role, err := svc.Create(context.Background(), CreateRoleInput{
		Name:           "night-audit",
		Description:    "Night audit staff",
		OrganizationID: &org.ID,
		Permissions:    []string{"audit.read.property", "payroll.read.property"},
	})
	require.NoError(t, err)
	require.Len(t, role.Permissions, 2)
	require.False(t, role.IsSystem)

	_, err = svc.Create(context.Background(), CreateRoleInput{
		Name:           "night-audit",
		OrganizationID: &org.ID,
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateRoleInput{
		Name:        "bad-perm",
		Permissions: []string{"booking.read.own"},
	})
	require.Error(t, err)

	_, err = svc.Create(context.Background(), CreateRoleInput{Name: "  "})
	require.Error(t, err)
}

func TestSetPermissionsInvalidatesMemberCaches(t *testing.T) {
	db, svc, permCache := setupRoleService(t)

	role, err := svc.Create(context.Background(), CreateRoleInput{
		Name:        "rota-admin",
		Permissions: []string{"schedule.read.property"},
	})
	require.NoError(t, err)

	member := &models.User{
		Username:   "member",
		Email:      "member@example.com",
		Password:   "hash",
		LegacyRole: models.LegacyRoleStaff,
		IsActive:   true,
	}
	require.NoError(t, db.Create(member).Error)
	require.NoError(t, db.Model(member).Association("CustomRoles").Append(role))

	warmCache(t, permCache, member.ID)

	updated, err := svc.SetPermissions(context.Background(), role.ID,
		[]string{"schedule.read.property", "schedule.update.property"})
	require.NoError(t, err)
	require.Len(t, updated.Permissions, 2)

	assertCacheMiss(t, permCache, member.ID)
}

func TestSystemRolesAreImmutable(t *testing.T) {
	db, svc, _ := setupRoleService(t)

	var system models.CustomRole
	require.NoError(t, db.First(&system, "name = ? AND is_system = ?", "staff", true).Error)

	name := "renamed"
	_, err := svc.Update(context.Background(), system.ID, UpdateRoleInput{Name: &name})
	require.ErrorIs(t, err, ErrSystemRoleImmutable)

	_, err = svc.SetPermissions(context.Background(), system.ID, []string{"user.read.own"})
	require.ErrorIs(t, err, ErrSystemRoleImmutable)

	require.ErrorIs(t, svc.Delete(context.Background(), system.ID), ErrSystemRoleImmutable)
}

func TestDeleteRoleClearsMembership(t *testing.T) {
	db, svc, permCache := setupRoleService(t)

	role, err := svc.Create(context.Background(), CreateRoleInput{
		Name:        "temporary",
		Permissions: []string{"user.read.own"},
	})
	require.NoError(t, err)

	member := &models.User{
		Username:   "detached",
		Email:      "detached@example.com",
		Password:   "hash",
		LegacyRole: models.LegacyRoleStaff,
		IsActive:   true,
	}
	require.NoError(t, db.Create(member).Error)
	require.NoError(t, db.Model(member).Association("CustomRoles").Append(role))

	warmCache(t, permCache, member.ID)

	require.NoError(t, svc.Delete(context.Background(), role.ID))
	assertCacheMiss(t, permCache, member.ID)

	count := db.Model(member).Association("CustomRoles").Count()
	require.Zero(t, count)

	_, err = svc.GetByID(context.Background(), role.ID)
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestListRolesScopesToOrganization(t *testing.T) {
	db, svc, _ := setupRoleService(t)

	org := &models.Organization{Name: "Harbour Group", Slug: "harbour"}
	require.NoError(t, db.Create(org).Error)
	other := &models.Organization{Name: "Other Group", Slug: "other"}
	require.NoError(t, db.Create(other).Error)

	_, err := svc.Create(context.Background(), CreateRoleInput{Name: "harbour-only", OrganizationID: &org.ID})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateRoleInput{Name: "other-only", OrganizationID: &other.ID})
	require.NoError(t, err)

	roles, err := svc.List(context.Background(), ListRolesOptions{OrganizationID: org.ID})
	require.NoError(t, err)

	names := make(map[string]bool, len(roles))
	for _, role := range roles {
		names[role.Name] = true
	}
	require.True(t, names["harbour-only"])
	require.False(t, names["other-only"])
	// System roles ride along for every organization.
	require.True(t, names["staff"])
}

func setupRoleService(t *testing.T) (*gorm.DB, *RoleService, *authz.Cache) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	permCache, err := authz.NewCache(db, nil, time.Minute)
	require.NoError(t, err)

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewRoleService(db, permCache, audit)
	require.NoError(t, err)

	return db, svc, permCache
}
