package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/staydesk/staydesk/internal/authz"
	"github.com/staydesk/staydesk/internal/models"
	apperrors "github.com/staydesk/staydesk/pkg/errors"
)

var (
	// ErrRoleNotFound indicates the requested role does not exist.
	ErrRoleNotFound = apperrors.New("ROLE_NOT_FOUND", "Role not found", http.StatusNotFound)
	// ErrSystemRoleImmutable guards seeded system roles against edits and deletion.
	ErrSystemRoleImmutable = apperrors.New("ROLE_SYSTEM_IMMUTABLE", "System roles cannot be modified", http.StatusBadRequest)
)

// CreateRoleInput describes the fields accepted when creating a role.
type CreateRoleInput struct {
	Name           string
	Description    string
	OrganizationID *string
	Permissions    []string
}

// UpdateRoleInput enumerates mutable role attributes.
type UpdateRoleInput struct {
	Name        *string
	Description *string
}

// ListRolesOptions controls filtering for role listing. System roles are
// always included alongside the organization's own roles.
type ListRolesOptions struct {
	OrganizationID string
}

// RoleService manages custom roles and their permission sets. Changing a
// role's permissions drops the cached sets of every member.
type RoleService struct {
	db           *gorm.DB
	permCache    *authz.Cache
	auditService *AuditService
}

// NewRoleService constructs a RoleService instance.
func NewRoleService(db *gorm.DB, permCache *authz.Cache, auditService *AuditService) (*RoleService, error) {
	if db == nil {
		return nil, errors.New("role service: db is required")
	}
	if permCache == nil {
		return nil, errors.New("role service: permission cache is required")
	}
	return &RoleService{
		db:           db,
		permCache:    permCache,
		auditService: auditService,
	}, nil
}

// Create provisions a new role, optionally with an initial permission set.
func (s *RoleService) Create(ctx context.Context, input CreateRoleInput) (*models.CustomRole, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("role name is required")
	}

	role := &models.CustomRole{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
	}
	if input.OrganizationID != nil && strings.TrimSpace(*input.OrganizationID) != "" {
		id := strings.TrimSpace(*input.OrganizationID)
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("role service: check organization: %w", err)
		}
		if count == 0 {
			return nil, apperrors.NewBadRequest("organization not found")
		}
		role.OrganizationID = &id
	}

	permissions, err := s.resolvePermissions(ctx, input.Permissions)
	if err != nil {
		return nil, err
	}
	role.Permissions = permissions

	if err := s.db.WithContext(ctx).Create(role).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("a role with this name already exists")
		}
		return nil, fmt.Errorf("role service: create role: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.create",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{
			"name":        role.Name,
			"permissions": len(role.Permissions),
		},
	})

	return role, nil
}

// GetByID loads a role including its permission set.
func (s *RoleService) GetByID(ctx context.Context, id string) (*models.CustomRole, error) {
	ctx = ensureContext(ctx)

	var role models.CustomRole
	err := s.db.WithContext(ctx).
		Preload("Permissions").
		First(&role, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("role service: get role: %w", err)
	}
	return &role, nil
}

// List returns the system roles plus, when an organization is given, that
// organization's own roles.
func (s *RoleService) List(ctx context.Context, opts ListRolesOptions) ([]models.CustomRole, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Preload("Permissions").Order("name ASC")
	if orgID := strings.TrimSpace(opts.OrganizationID); orgID != "" {
		query = query.Where("organization_id IS NULL OR organization_id = ?", orgID)
	}

	var roles []models.CustomRole
	if err := query.Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("role service: list roles: %w", err)
	}
	return roles, nil
}

// Update renames or re-describes a role. System roles are immutable.
func (s *RoleService) Update(ctx context.Context, id string, input UpdateRoleInput) (*models.CustomRole, error) {
	ctx = ensureContext(ctx)

	role, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, ErrSystemRoleImmutable
	}

	updates := map[string]any{}
	if input.Name != nil {
		if name := strings.TrimSpace(*input.Name); name != "" && name != role.Name {
			updates["name"] = name
		}
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}

	if len(updates) == 0 {
		return role, nil
	}

	if err := s.db.WithContext(ctx).Model(role).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewBadRequest("a role with this name already exists")
		}
		return nil, fmt.Errorf("role service: update role: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.update",
		Resource: role.ID,
		Result:   "success",
		Metadata: updates,
	})

	return s.GetByID(ctx, id)
}

// SetPermissions replaces the role's permission set and invalidates every
// member's cached permissions.
func (s *RoleService) SetPermissions(ctx context.Context, id string, permissionStrings []string) (*models.CustomRole, error) {
	ctx = ensureContext(ctx)

	role, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, ErrSystemRoleImmutable
	}

	permissions, err := s.resolvePermissions(ctx, permissionStrings)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(role).Association("Permissions").Replace(toPermissionAnySlice(permissions)...); err != nil {
		return nil, fmt.Errorf("role service: replace permissions: %w", err)
	}

	if err := s.permCache.InvalidateRole(ctx, role.ID); err != nil {
		return nil, err
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.set_permissions",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{
			"permissions": permissionStrings,
		},
	})

	return s.GetByID(ctx, id)
}

// Delete removes a role. Members fall back to their remaining roles (or the
// legacy enum) the next time their permissions resolve.
func (s *RoleService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	role, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrSystemRoleImmutable
	}

	// Capture members before the association is cleared.
	if err := s.permCache.InvalidateRole(ctx, role.ID); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(role).Association("Users").Clear(); err != nil {
		return fmt.Errorf("role service: clear members: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(role).Association("Permissions").Clear(); err != nil {
		return fmt.Errorf("role service: clear permissions: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(role).Error; err != nil {
		return fmt.Errorf("role service: delete role: %w", err)
	}

	recordAudit(s.auditService, ctx, AuditEntry{
		Action:   "role.delete",
		Resource: role.ID,
		Result:   "success",
		Metadata: map[string]any{
			"name": role.Name,
		},
	})

	return nil
}

// resolvePermissions validates triple strings against the catalog and loads
// the matching rows.
func (s *RoleService) resolvePermissions(ctx context.Context, values []string) ([]models.Permission, error) {
	values = normaliseIDs(values)
	if len(values) == 0 {
		return nil, nil
	}

	permissions := make([]models.Permission, 0, len(values))
	for _, value := range values {
		triple, err := authz.ParseTriple(value)
		if err != nil {
			return nil, apperrors.NewBadRequest(err.Error())
		}
		if !authz.Defined(triple) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("unknown permission %q", triple.String()))
		}

		var perm models.Permission
		err = s.db.WithContext(ctx).
			First(&perm, "resource = ? AND action = ? AND scope = ?",
				triple.Resource, triple.Action, string(triple.Scope)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewBadRequest(fmt.Sprintf("permission %q is not provisioned", triple.String()))
		}
		if err != nil {
			return nil, fmt.Errorf("role service: load permission: %w", err)
		}
		permissions = append(permissions, perm)
	}

	return permissions, nil
}

func toPermissionAnySlice(permissions []models.Permission) []any {
	out := make([]any, len(permissions))
	for i := range permissions {
		out[i] = &permissions[i]
	}
	return out
}
