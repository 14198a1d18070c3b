package authz

import "github.com/staydesk/staydesk/internal/models"

// legacyRoleGrants maps each legacy enum role to its default permission
// strings. The sets mirror what the original seed data granted before custom
// roles existed; they only apply to users with no custom roles and no direct
// overrides. Platform admins never reach this table: evaluation
// short-circuits to the full catalog for them.
var legacyRoleGrants = map[models.LegacyRole][]string{
	models.LegacyRoleOrgOwner: {
		"organization.read.organization",
		"organization.update.organization",
		"property.read.organization",
		"property.update.organization",
		"department.read.organization",
		"department.update.organization",
		"user.read.organization",
		"user.create.organization",
		"user.update.organization",
		"user.delete.organization",
		"role.read.organization",
		"role.create.organization",
		"role.update.organization",
		"role.delete.organization",
		"role.assign.organization",
		"permission.read.organization",
		"permission.manage.organization",
		"schedule.read.organization",
		"schedule.create.organization",
		"schedule.update.organization",
		"schedule.approve.organization",
		"shift.read.organization",
		"leave.read.organization",
		"leave.approve.organization",
		"payroll.read.organization",
		"payroll.approve.organization",
		"audit.read.organization",
		"audit.export.organization",
	},
	models.LegacyRoleOrgAdmin: {
		"organization.read.organization",
		"property.read.organization",
		"property.update.organization",
		"department.read.organization",
		"department.update.organization",
		"user.read.organization",
		"user.create.organization",
		"user.update.organization",
		"role.read.organization",
		"role.assign.organization",
		"permission.read.organization",
		"schedule.read.organization",
		"schedule.create.organization",
		"schedule.update.organization",
		"schedule.approve.organization",
		"shift.read.organization",
		"leave.read.organization",
		"leave.approve.organization",
		"payroll.read.organization",
		"audit.read.organization",
	},
	models.LegacyRolePropertyManager: {
		"property.read.property",
		"property.update.property",
		"department.read.property",
		"department.update.property",
		"user.read.property",
		"user.create.property",
		"user.update.property",
		"role.read.property",
		"role.assign.property",
		"schedule.read.property",
		"schedule.create.property",
		"schedule.update.property",
		"schedule.approve.property",
		"shift.read.property",
		"leave.read.property",
		"leave.approve.property",
		"payroll.read.property",
		"payroll.approve.property",
		"audit.read.property",
	},
	models.LegacyRoleDepartmentAdmin: {
		"department.read.department",
		"user.read.department",
		"user.update.department",
		"schedule.read.department",
		"schedule.create.department",
		"schedule.update.department",
		"schedule.approve.department",
		"shift.read.department",
		"shift.swap.department",
		"leave.read.department",
		"leave.approve.department",
		"payroll.read.department",
	},
	models.LegacyRoleStaff: {
		"user.read.own",
		"user.update.own",
		"schedule.read.own",
		"shift.read.own",
		"shift.swap.own",
		"leave.request.own",
		"leave.read.own",
		"payroll.read.own",
	},
}

// LegacyGrants resolves the default permission set for a legacy enum role.
// Unknown roles produce an empty set rather than an error: the original
// treated unrecognised enum values as zero grants.
func LegacyGrants(role models.LegacyRole) Set {
	set := make(Set)
	for _, value := range legacyRoleGrants[role] {
		triple, err := ParseTriple(value)
		if err != nil {
			continue
		}
		set.Add(triple)
	}
	return set
}

// LegacyRoleNames lists the legacy roles with seeded grant sets, used when
// creating the matching system roles.
func LegacyRoleNames() []models.LegacyRole {
	return []models.LegacyRole{
		models.LegacyRoleOrgOwner,
		models.LegacyRoleOrgAdmin,
		models.LegacyRolePropertyManager,
		models.LegacyRoleDepartmentAdmin,
		models.LegacyRoleStaff,
	}
}
