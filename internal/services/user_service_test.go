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

func TestCreateUserWithPlacement(t *testing.T) {
	db, svc, _ := setupUserService(t)
	org, property, department := createTenancy(t, db)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username:       "frontdesk",
		Email:          "FrontDesk@Example.com",
		Password:       "secret-password",
		FirstName:      "Dana",
		LegacyRole:     "staff",
		OrganizationID: &org.ID,
		PropertyID:     &property.ID,
		DepartmentID:   &department.ID,
	})
	require.NoError(t, err)
	require.Equal(t, "frontdesk", user.Username)
	require.Equal(t, "frontdesk@example.com", user.Email)
	require.Equal(t, models.LegacyRoleStaff, user.LegacyRole)
	require.NotNil(t, user.OrganizationID)
	require.Equal(t, org.ID, *user.OrganizationID)
	require.NotNil(t, user.DepartmentID)
	require.True(t, user.IsActive)

	// The password is stored hashed.
	require.NotEqual(t, "secret-password", user.Password)

	_, err = svc.Create(context.Background(), CreateUserInput{
		Username: "frontdesk",
		Email:    "other@example.com",
		Password: "secret-password",
	})
	require.Error(t, err)
}

func TestCreateUserRejectsBadPlacement(t *testing.T) {
	db, svc, _ := setupUserService(t)
	org, property, _ := createTenancy(t, db)

	otherOrg := &models.Organization{Name: "Other Group", Slug: "other"}
	require.NoError(t, db.Create(otherOrg).Error)

	_, err := svc.Create(context.Background(), CreateUserInput{
		Username:       "misplaced",
		Email:          "misplaced@example.com",
		Password:       "secret-password",
		OrganizationID: &otherOrg.ID,
		PropertyID:     &property.ID,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "property does not belong")

	_, err = svc.Create(context.Background(), CreateUserInput{
		Username:   "unknown-role",
		Email:      "unknown-role@example.com",
		Password:   "secret-password",
		LegacyRole: "concierge",
	})
	require.Error(t, err)

	_ = org
}

func TestSetRolesInvalidatesPermissionCache(t *testing.T) {
	db, svc, permCache := setupUserService(t)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "promotee",
		Email:    "promotee@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	warmCache(t, permCache, user.ID)

	var role models.CustomRole
	require.NoError(t, db.First(&role, "name = ?", "department_admin").Error)

	updated, err := svc.SetRoles(context.Background(), user.ID, []string{role.ID})
	require.NoError(t, err)
	require.Len(t, updated.CustomRoles, 1)

	assertCacheMiss(t, permCache, user.ID)

	_, err = svc.SetRoles(context.Background(), user.ID, []string{"missing-role"})
	require.Error(t, err)
}

func TestSetOverrideAndRemove(t *testing.T) {
	db, svc, permCache := setupUserService(t)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "overridden",
		Email:    "overridden@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	warmCache(t, permCache, user.ID)

	expires := time.Now().Add(24 * time.Hour)
	override, err := svc.SetOverride(context.Background(), user.ID, OverrideInput{
		Permission: "audit.read.property",
		Granted:    true,
		ExpiresAt:  &expires,
	})
	require.NoError(t, err)
	require.True(t, override.Granted)
	require.NotNil(t, override.Permission)
	require.Equal(t, "audit.read.property", override.Permission.String())

	assertCacheMiss(t, permCache, user.ID)

	// Re-setting the same triple flips it in place instead of duplicating.
	denial, err := svc.SetOverride(context.Background(), user.ID, OverrideInput{
		Permission: "audit.read.property",
		Granted:    false,
	})
	require.NoError(t, err)
	require.False(t, denial.Granted)

	var count int64
	require.NoError(t, db.Model(&models.UserPermission{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)

	var stored models.UserPermission
	require.NoError(t, db.First(&stored, "user_id = ?", user.ID).Error)
	require.False(t, stored.Granted, "denial must survive the round trip to the database")

	_, err = svc.SetOverride(context.Background(), user.ID, OverrideInput{Permission: "booking.read.own"})
	require.Error(t, err)

	require.NoError(t, svc.RemoveOverride(context.Background(), user.ID, "audit.read.property"))
	require.Error(t, svc.RemoveOverride(context.Background(), user.ID, "audit.read.property"))
}

func TestSetOverrideDenialInsertsAsDenial(t *testing.T) {
	db, svc, _ := setupUserService(t)

	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "restricted",
		Email:    "restricted@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	// A denial written as the first row for the pair must not pick up a
	// column default on insert.
	denial, err := svc.SetOverride(context.Background(), user.ID, OverrideInput{
		Permission: "schedule.read.own",
		Granted:    false,
	})
	require.NoError(t, err)
	require.False(t, denial.Granted)

	var stored models.UserPermission
	require.NoError(t, db.First(&stored, "user_id = ?", user.ID).Error)
	require.False(t, stored.Granted)
}

func TestCreateInactiveUserPersistsInactive(t *testing.T) {
	db, svc, _ := setupUserService(t)

	inactive := false
	user, err := svc.Create(context.Background(), CreateUserInput{
		Username: "suspended",
		Email:    "suspended@example.com",
		Password: "secret-password",
		IsActive: &inactive,
	})
	require.NoError(t, err)
	require.False(t, user.IsActive)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	require.False(t, stored.IsActive)
}

func TestSetActiveGuardsPlatformAdmin(t *testing.T) {
	_, svc, _ := setupUserService(t)

	admin, err := svc.Create(context.Background(), CreateUserInput{
		Username:   "root",
		Email:      "root@example.com",
		Password:   "secret-password",
		LegacyRole: string(models.LegacyRolePlatformAdmin),
	})
	require.NoError(t, err)

	require.ErrorIs(t, svc.SetActive(context.Background(), admin.ID, false), ErrPlatformAdminImmutable)
	require.ErrorIs(t, svc.Delete(context.Background(), admin.ID), ErrPlatformAdminImmutable)

	staff, err := svc.Create(context.Background(), CreateUserInput{
		Username: "leaver",
		Email:    "leaver@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	require.NoError(t, svc.SetActive(context.Background(), staff.ID, false))
	require.NoError(t, svc.Delete(context.Background(), staff.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), staff.ID), ErrUserNotFound)
}

func TestListUsersFilters(t *testing.T) {
	db, svc, _ := setupUserService(t)
	org, property, _ := createTenancy(t, db)

	_, err := svc.Create(context.Background(), CreateUserInput{
		Username:       "at-harbour",
		Email:          "at-harbour@example.com",
		Password:       "secret-password",
		OrganizationID: &org.ID,
		PropertyID:     &property.ID,
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateUserInput{
		Username: "floating",
		Email:    "floating@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)

	users, total, err := svc.List(context.Background(), ListUsersOptions{
		Filters: UserFilters{PropertyID: property.ID},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "at-harbour", users[0].Username)

	users, total, err = svc.List(context.Background(), ListUsersOptions{
		Filters: UserFilters{Query: "float"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "floating", users[0].Username)
}

func setupUserService(t *testing.T) (*gorm.DB, *UserService, *authz.Cache) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())

	permCache, err := authz.NewCache(db, nil, time.Minute)
	require.NoError(t, err)

	audit, err := NewAuditService(db)
	require.NoError(t, err)

	svc, err := NewUserService(db, permCache, audit)
	require.NoError(t, err)

	return db, svc, permCache
}

func createTenancy(t *testing.T, db *gorm.DB) (*models.Organization, *models.Property, *models.Department) {
	t.Helper()

	org := &models.Organization{Name: "Harbour Group", Slug: "harbour"}
	require.NoError(t, db.Create(org).Error)

	property := &models.Property{OrganizationID: org.ID, Name: "Harbour Hotel", Code: "HBR"}
	require.NoError(t, db.Create(property).Error)

	department := &models.Department{PropertyID: property.ID, Name: "Front Office", Code: "FO"}
	require.NoError(t, db.Create(department).Error)

	return org, property, department
}

func warmCache(t *testing.T, permCache *authz.Cache, userID string) {
	t.Helper()

	set := authz.NewSet(authz.Triple{Resource: "user", Action: "read", Scope: authz.ScopeOwn})
	require.NoError(t, permCache.Put(context.Background(), userID, set))

	_, hit, err := permCache.Get(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, hit)
}

func assertCacheMiss(t *testing.T, permCache *authz.Cache, userID string) {
	t.Helper()

	_, hit, err := permCache.Get(context.Background(), userID)
	require.NoError(t, err)
	require.False(t, hit)
}
