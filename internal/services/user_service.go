package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staydesk/staydesk/internal/authz"
	"github.com/staydesk/staydesk/internal/models"
	"github.com/staydesk/staydesk/pkg/crypto"
	apperrors "github.com/staydesk/staydesk/pkg/errors"
)

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrPlatformAdminImmutable guards the platform admin account against
	// deactivation and deletion.
	ErrPlatformAdminImmutable = apperrors.New("USER_PLATFORM_ADMIN_IMMUTABLE", "Platform admin cannot perform this operation", http.StatusBadRequest)
)

// CreateUserInput describes the fields accepted when creating a user.
type CreateUserInput struct {
	Username       string
	Email          string
	Password       string
	FirstName      string
	LastName       string
	LegacyRole     string
	OrganizationID *string
	PropertyID     *string
	DepartmentID   *string
	RoleIDs        []string
	IsActive       *bool
}

// UpdateUserInput enumerates mutable user attributes.
type UpdateUserInput struct {
	Username   *string
	Email      *string
	FirstName  *string
	LastName   *string
	LegacyRole *string
}

// OverrideInput describes a direct grant or denial for a single user.
type OverrideInput struct {
	Permission string
	Granted    bool
	GrantedBy  string
	ExpiresAt  *time.Time
}

// UserFilters captures listing filters.
type UserFilters struct {
	OrganizationID string
	PropertyID     string
	DepartmentID   string
	LegacyRole     string
	IsActive       *bool
	Query          string
}

// ListUsersOptions controls pagination for user listing.
type ListUsersOptions struct {
	Page     int
	PageSize int
	Filters  UserFilters
}

// UserService manages the user lifecycle: provisioning, tenancy placement,
// role assignment, and direct permission overrides. Every mutation that can
// change a user's resolved permissions drops their cached set.
type UserService struct {
	db           *gorm.DB
	permCache    *authz.Cache
	auditService *AuditService
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, permCache *authz.Cache, auditService *AuditService) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if permCache == nil {
		return nil, errors.New("user service: permission cache is required")
	}
	return &UserService{
		db:           db,
		permCache:    permCache,
		auditService: auditService,
	}, nil
}

// Create provisions a new user with a hashed password and tenancy placement.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	username := strings.TrimSpace(input.Username)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if username == "" {
		return nil, apperrors.NewBadRequest("username is required")
	}
	if email == "" {
		return nil, apperrors.NewBadRequest("email is required")
	}
	if strings.TrimSpace(input.Password) == "" {
		return nil, apperrors.NewBadRequest("password is required")
	}

	legacyRole := models.LegacyRole(strings.TrimSpace(input.LegacyRole))
	if legacyRole == "" {
		legacyRole = models.LegacyRoleStaff
	}
	if !validLegacyRole(legacyRole) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown legacy role %q", input.LegacyRole))
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Username:   username,
		Email:      email,
		Password:   hashed,
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		LegacyRole: legacyRole,
		IsActive:   true,
	}

	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.applyPlacement(tx, user, input.OrganizationID, input.PropertyID, input.DepartmentID); err != nil {
			return err
		}

		if err := tx.Create(user).Error; err != nil {
			return err
		}

		roleIDs := normaliseIDs(input.RoleIDs)
		if len(roleIDs) == 0 {
			return nil
		}

		roles, err := loadRoles(tx, roleIDs)
		if err != nil {
			return err
		}
		if err := tx.Model(user).Association("CustomRoles").Append(toAnySlice(roles)...); err != nil {
			return fmt.Errorf("user service: assign roles: %w", err)
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email already exists")
		}
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.create",
		Resource: user.ID,
		Result:   "success",
		Metadata: map[string]any{
			"username":    user.Username,
			"email":       user.Email,
			"legacy_role": string(user.LegacyRole),
		},
	})

	return user, nil
}

// GetByID loads a user by identifier including role and override associations.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).
		Preload("Organization").
		Preload("Property").
		Preload("Department").
		Preload("CustomRoles.Permissions").
		Preload("Permissions.Permission").
		First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	return &user, nil
}

// List retrieves users matching the supplied filters with pagination.
func (s *UserService) List(ctx context.Context, opts ListUsersOptions) ([]models.User, int64, error) {
	ctx = ensureContext(ctx)

	page := opts.Page
	if page <= 0 {
		page = 1
	}
	perPage := opts.PageSize
	if perPage <= 0 || perPage > 200 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&models.User{})
	if opts.Filters.OrganizationID != "" {
		query = query.Where("organization_id = ?", opts.Filters.OrganizationID)
	}
	if opts.Filters.PropertyID != "" {
		query = query.Where("property_id = ?", opts.Filters.PropertyID)
	}
	if opts.Filters.DepartmentID != "" {
		query = query.Where("department_id = ?", opts.Filters.DepartmentID)
	}
	if opts.Filters.LegacyRole != "" {
		query = query.Where("legacy_role = ?", opts.Filters.LegacyRole)
	}
	if opts.Filters.IsActive != nil {
		query = query.Where("is_active = ?", *opts.Filters.IsActive)
	}
	if q := strings.TrimSpace(opts.Filters.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: count users: %w", err)
	}

	var users []models.User
	if err := query.
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Preload("CustomRoles").
		Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("user service: list users: %w", err)
	}

	return users, total, nil
}

// Update persists mutable attributes for an existing user. A legacy role
// change invalidates the user's cached permission set.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}

	updates := map[string]any{}

	if input.Username != nil {
		if name := strings.TrimSpace(*input.Username); name != "" && name != user.Username {
			updates["username"] = name
		}
	}
	if input.Email != nil {
		if email := strings.ToLower(strings.TrimSpace(*input.Email)); email != "" && email != user.Email {
			updates["email"] = email
		}
	}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}

	roleChanged := false
	if input.LegacyRole != nil {
		role := models.LegacyRole(strings.TrimSpace(*input.LegacyRole))
		if !validLegacyRole(role) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown legacy role %q", *input.LegacyRole))
		}
		if role != user.LegacyRole {
			updates["legacy_role"] = string(role)
			roleChanged = true
		}
	}

	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("username or email already exists")
		}
		return nil, fmt.Errorf("user service: update user: %w", err)
	}

	if roleChanged {
		if err := s.permCache.Invalidate(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("user service: reload user: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.update",
		Resource: user.ID,
		Result:   "success",
		Metadata: updates,
	})

	return &user, nil
}

// SetRoles replaces custom role assignments for the specified user and drops
// their cached permission set.
func (s *UserService) SetRoles(ctx context.Context, id string, roleIDs []string) (*models.User, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(id)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	cleanIDs := normaliseIDs(roleIDs)

	var result *models.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Preload("CustomRoles").First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("user service: load user: %w", err)
		}

		var roles []models.CustomRole
		if len(cleanIDs) > 0 {
			loaded, err := loadRoles(tx, cleanIDs)
			if err != nil {
				return err
			}
			roles = loaded
		}

		if err := tx.Model(&user).Association("CustomRoles").Replace(toAnySlice(roles)...); err != nil {
			return fmt.Errorf("user service: replace roles: %w", err)
		}

		if err := tx.
			Preload("CustomRoles.Permissions").
			First(&user, "id = ?", userID).Error; err != nil {
			return fmt.Errorf("user service: reload user: %w", err)
		}

		result = &user
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.permCache.Invalidate(ctx, userID); err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.set_roles",
		Resource: userID,
		Result:   "success",
		Metadata: map[string]any{
			"role_ids": cleanIDs,
		},
	})

	return result, nil
}

// SetOverride records a direct grant or denial of a single permission triple
// for the user, replacing any previous override of the same triple.
func (s *UserService) SetOverride(ctx context.Context, id string, input OverrideInput) (*models.UserPermission, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(id)
	if userID == "" {
		return nil, apperrors.NewBadRequest("user id is required")
	}

	triple, err := authz.ParseTriple(input.Permission)
	if err != nil {
		return nil, apperrors.NewBadRequest(err.Error())
	}
	if !authz.Defined(triple) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown permission %q", triple.String()))
	}

	var exists int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("user service: check user: %w", err)
	}
	if exists == 0 {
		return nil, ErrUserNotFound
	}

	var perm models.Permission
	err = s.db.WithContext(ctx).
		First(&perm, "resource = ? AND action = ? AND scope = ?",
			triple.Resource, triple.Action, string(triple.Scope)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("permission %q is not provisioned", triple.String()))
	}
	if err != nil {
		return nil, fmt.Errorf("user service: load permission: %w", err)
	}

	override := models.UserPermission{
		UserID:       userID,
		PermissionID: perm.ID,
		Granted:      input.Granted,
		ExpiresAt:    input.ExpiresAt,
	}
	if by := strings.TrimSpace(input.GrantedBy); by != "" {
		override.GrantedByID = &by
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"granted", "granted_by_id", "expires_at", "updated_at"}),
		}).Create(&override).Error
	if err != nil {
		return nil, fmt.Errorf("user service: save override: %w", err)
	}

	if err := s.permCache.Invalidate(ctx, userID); err != nil {
		return nil, err
	}

	action := "user.grant"
	if !input.Granted {
		action = "user.deny"
	}
	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   action,
		Resource: userID,
		Result:   "success",
		Metadata: map[string]any{
			"permission": triple.String(),
			"granted":    input.Granted,
		},
	})

	override.Permission = &perm
	return &override, nil
}

// RemoveOverride deletes the user's override of the given permission triple.
func (s *UserService) RemoveOverride(ctx context.Context, id, permission string) error {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(id)
	if userID == "" {
		return apperrors.NewBadRequest("user id is required")
	}

	triple, err := authz.ParseTriple(permission)
	if err != nil {
		return apperrors.NewBadRequest(err.Error())
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND permission_id IN (?)",
			userID,
			s.db.Model(&models.Permission{}).Select("id").
				Where("resource = ? AND action = ? AND scope = ?", triple.Resource, triple.Action, string(triple.Scope)),
		).
		Delete(&models.UserPermission{})
	if result.Error != nil {
		return fmt.Errorf("user service: remove override: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}

	if err := s.permCache.Invalidate(ctx, userID); err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.remove_override",
		Resource: userID,
		Result:   "success",
		Metadata: map[string]any{
			"permission": triple.String(),
		},
	})

	return nil
}

// SetActive toggles the active state of an account.
func (s *UserService) SetActive(ctx context.Context, id string, active bool) error {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("user service: load user: %w", err)
	}

	if user.IsPlatformAdmin() && !active {
		return ErrPlatformAdminImmutable
	}

	if err := s.db.WithContext(ctx).Model(&user).Update("is_active", active).Error; err != nil {
		return fmt.Errorf("user service: update active state: %w", err)
	}

	if err := s.permCache.Invalidate(ctx, user.ID); err != nil {
		return err
	}

	action := "user.activate"
	if !active {
		action = "user.deactivate"
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   action,
		Resource: user.ID,
		Result:   "success",
	})

	return nil
}

// Delete removes a user unless the account is the platform admin.
func (s *UserService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("user service: load user: %w", err)
	}

	if user.IsPlatformAdmin() {
		return ErrPlatformAdminImmutable
	}

	if err := s.db.WithContext(ctx).Model(&user).Association("CustomRoles").Clear(); err != nil {
		return fmt.Errorf("user service: clear user roles: %w", err)
	}
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Delete(&models.UserPermission{}).Error; err != nil {
		return fmt.Errorf("user service: clear user overrides: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&user).Error; err != nil {
		return fmt.Errorf("user service: delete user: %w", err)
	}

	if err := s.permCache.Invalidate(ctx, user.ID); err != nil {
		return err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "user.delete",
		Resource: user.ID,
		Result:   "success",
	})

	return nil
}

// applyPlacement validates and sets tenancy references: a property must
// belong to the user's organization, and a department to the property.
func (s *UserService) applyPlacement(tx *gorm.DB, user *models.User, orgID, propertyID, departmentID *string) error {
	if orgID != nil && strings.TrimSpace(*orgID) != "" {
		id := strings.TrimSpace(*orgID)
		var count int64
		if err := tx.Model(&models.Organization{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("user service: check organization: %w", err)
		}
		if count == 0 {
			return apperrors.NewBadRequest("organization not found")
		}
		user.OrganizationID = &id
	}

	if propertyID != nil && strings.TrimSpace(*propertyID) != "" {
		id := strings.TrimSpace(*propertyID)
		var property models.Property
		if err := tx.First(&property, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewBadRequest("property not found")
			}
			return fmt.Errorf("user service: check property: %w", err)
		}
		if user.OrganizationID != nil && property.OrganizationID != *user.OrganizationID {
			return apperrors.NewBadRequest("property does not belong to the organization")
		}
		user.PropertyID = &id
		if user.OrganizationID == nil {
			user.OrganizationID = &property.OrganizationID
		}
	}

	if departmentID != nil && strings.TrimSpace(*departmentID) != "" {
		id := strings.TrimSpace(*departmentID)
		var department models.Department
		if err := tx.First(&department, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewBadRequest("department not found")
			}
			return fmt.Errorf("user service: check department: %w", err)
		}
		if user.PropertyID != nil && department.PropertyID != *user.PropertyID {
			return apperrors.NewBadRequest("department does not belong to the property")
		}
		user.DepartmentID = &id
		if user.PropertyID == nil {
			user.PropertyID = &department.PropertyID
		}
	}

	return nil
}

func loadRoles(tx *gorm.DB, ids []string) ([]models.CustomRole, error) {
	var roles []models.CustomRole
	if err := tx.Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("user service: load roles: %w", err)
	}
	if len(roles) != len(ids) {
		return nil, apperrors.NewBadRequest("one or more roles were not found")
	}
	return roles, nil
}

func toAnySlice(roles []models.CustomRole) []any {
	out := make([]any, len(roles))
	for i := range roles {
		out[i] = &roles[i]
	}
	return out
}

func validLegacyRole(role models.LegacyRole) bool {
	switch role {
	case models.LegacyRolePlatformAdmin,
		models.LegacyRoleOrgOwner,
		models.LegacyRoleOrgAdmin,
		models.LegacyRolePropertyManager,
		models.LegacyRoleDepartmentAdmin,
		models.LegacyRoleStaff:
		return true
	default:
		return false
	}
}
