package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/staydesk/staydesk/internal/authz"
	"github.com/staydesk/staydesk/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organization{},
		&models.Property{},
		&models.Department{},
		&models.User{},
		&models.Permission{},
		&models.CustomRole{},
		&models.UserPermission{},
		&models.PermissionCache{},
		&models.Session{},
		&models.AuditLog{},
		&models.MFASecret{},
		&models.CacheEntry{},
	)
}

// SeedData synchronises the permission catalog into the database and creates
// the system roles mirroring the legacy enum.
func SeedData(db *gorm.DB) error {
	if err := syncPermissionCatalog(db); err != nil {
		return err
	}
	return seedSystemRoles(db)
}

// syncPermissionCatalog upserts one Permission row per registered
// (resource, action, scope) triple. Category and description follow the
// catalog on re-seed so doc changes propagate without migrations.
func syncPermissionCatalog(db *gorm.DB) error {
	for _, def := range authz.All() {
		for _, scope := range def.Scopes {
			perm := models.Permission{
				Resource:    def.Resource,
				Action:      def.Action,
				Scope:       string(scope),
				Category:    def.Category,
				Description: def.Description,
			}
			err := db.Clauses(clause.OnConflict{
				Columns: []clause.Column{
					{Name: "resource"},
					{Name: "action"},
					{Name: "scope"},
				},
				DoUpdates: clause.AssignmentColumns([]string{"category", "description"}),
			}).Create(&perm).Error
			if err != nil {
				return fmt.Errorf("seed permission %s: %w", perm.String(), err)
			}
		}
	}
	return nil
}

// seedSystemRoles creates one immutable role per legacy enum value, carrying
// the same grant set the enum fallback resolves to. Existing system roles are
// left untouched so operators may not accidentally widen them on restart.
func seedSystemRoles(db *gorm.DB) error {
	for _, legacy := range authz.LegacyRoleNames() {
		name := string(legacy)

		var count int64
		if err := db.Model(&models.CustomRole{}).
			Where("name = ? AND organization_id IS NULL", name).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		grants := authz.LegacyGrants(legacy)
		permissions, err := permissionsForTriples(db, grants)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}

		role := models.CustomRole{
			Name:        name,
			Description: fmt.Sprintf("System role mirroring the legacy %s enum", name),
			IsSystem:    true,
			Permissions: permissions,
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}

func permissionsForTriples(db *gorm.DB, set authz.Set) ([]models.Permission, error) {
	permissions := make([]models.Permission, 0, len(set))
	for _, value := range set.Strings() {
		triple, err := authz.ParseTriple(value)
		if err != nil {
			return nil, err
		}

		var perm models.Permission
		err = db.Where("resource = ? AND action = ? AND scope = ?",
			triple.Resource, triple.Action, string(triple.Scope)).First(&perm).Error
		if err != nil {
			return nil, fmt.Errorf("permission %s not in catalog: %w", value, err)
		}
		permissions = append(permissions, perm)
	}
	return permissions, nil
}
