package authz

func init() {
	registerCatalog()
}

// registerCatalog loads the platform permission catalog. Split out of init so
// tests can rebuild the registry after clearing it.
func registerCatalog() {
	defs := []*Definition{
		{
			Resource:    "user",
			Action:      "read",
			Scopes:      []Scope{ScopeOwn, ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "View staff profiles",
		},
		{
			Resource:    "user",
			Action:      "create",
			Scopes:      []Scope{ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "Create staff accounts",
		},
		{
			Resource:    "user",
			Action:      "update",
			Scopes:      []Scope{ScopeOwn, ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "Edit staff accounts",
		},
		{
			Resource:    "user",
			Action:      "delete",
			Scopes:      []Scope{ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "Deactivate staff accounts",
		},
		{
			Resource:    "role",
			Action:      "read",
			Scopes:      []Scope{ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "View custom roles",
		},
		{
			Resource:    "role",
			Action:      "create",
			Scopes:      []Scope{ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "Create custom roles",
		},
		{
			Resource:    "role",
			Action:      "update",
			Scopes:      []Scope{ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "Edit custom roles and their permissions",
		},
		{
			Resource:    "role",
			Action:      "delete",
			Scopes:      []Scope{ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "Delete custom roles",
		},
		{
			Resource:    "role",
			Action:      "assign",
			Scopes:      []Scope{ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "Assign roles to users",
		},
		{
			Resource:    "permission",
			Action:      "read",
			Scopes:      []Scope{ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "View the permission catalog and resolved grants",
		},
		{
			Resource:    "permission",
			Action:      "manage",
			Scopes:      []Scope{ScopeOrganization, ScopeAll},
			Category:    "core",
			Description: "Grant, deny, and refresh permissions",
		},
		{
			Resource:    "organization",
			Action:      "read",
			Scopes:      []Scope{ScopeOrganization, ScopeAll},
			Category:    "tenancy",
			Description: "View organization settings",
		},
		{
			Resource:    "organization",
			Action:      "update",
			Scopes:      []Scope{ScopeOrganization, ScopeAll},
			Category:    "tenancy",
			Description: "Edit organization settings",
		},
		{
			Resource:    "property",
			Action:      "read",
			Scopes:      []Scope{ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "tenancy",
			Description: "View properties",
		},
		{
			Resource:    "property",
			Action:      "update",
			Scopes:      []Scope{ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "tenancy",
			Description: "Edit properties",
		},
		{
			Resource:    "department",
			Action:      "read",
			Scopes:      []Scope{ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "tenancy",
			Description: "View departments",
		},
		{
			Resource:    "department",
			Action:      "update",
			Scopes:      []Scope{ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "tenancy",
			Description: "Edit departments",
		},
		{
			Resource:    "schedule",
			Action:      "read",
			Scopes:      []Scope{ScopeOwn, ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "workforce",
			Description: "View work schedules",
		},
		{
			Resource:    "schedule",
			Action:      "create",
			Scopes:      []Scope{ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "workforce",
			Description: "Create work schedules",
		},
		{
			Resource:    "schedule",
			Action:      "update",
			Scopes:      []Scope{ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "workforce",
			Description: "Edit work schedules",
		},
		{
			Resource:    "schedule",
			Action:      "approve",
			Scopes:      []Scope{ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "workforce",
			Description: "Approve work schedules",
		},
		{
			Resource:    "shift",
			Action:      "read",
			Scopes:      []Scope{ScopeOwn, ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "workforce",
			Description: "View shifts",
		},
		{
			Resource:    "shift",
			Action:      "swap",
			Scopes:      []Scope{ScopeOwn, ScopeDepartment},
			Category:    "workforce",
			Description: "Request and accept shift swaps",
		},
		{
			Resource:    "leave",
			Action:      "request",
			Scopes:      []Scope{ScopeOwn},
			Category:    "hr",
			Description: "Submit leave requests",
		},
		{
			Resource:    "leave",
			Action:      "read",
			Scopes:      []Scope{ScopeOwn, ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "hr",
			Description: "View leave requests",
		},
		{
			Resource:    "leave",
			Action:      "approve",
			Scopes:      []Scope{ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "hr",
			Description: "Approve leave requests",
		},
		{
			Resource:    "payroll",
			Action:      "read",
			Scopes:      []Scope{ScopeOwn, ScopeDepartment, ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "hr",
			Description: "View payroll data",
		},
		{
			Resource:    "payroll",
			Action:      "approve",
			Scopes:      []Scope{ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "hr",
			Description: "Approve payroll runs",
		},
		{
			Resource:    "audit",
			Action:      "read",
			Scopes:      []Scope{ScopeProperty, ScopeOrganization, ScopeAll},
			Category:    "admin",
			Description: "View audit logs",
		},
		{
			Resource:    "audit",
			Action:      "export",
			Scopes:      []Scope{ScopeOrganization, ScopeAll},
			Category:    "admin",
			Description: "Export audit logs",
		},
	}

	for _, def := range defs {
		if err := Register(def); err != nil {
			panic(err)
		}
	}
}
