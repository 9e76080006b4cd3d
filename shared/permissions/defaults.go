package permissions

import (
	"sort"

	"github.com/visioncare/optometry-backend/shared/models"
)

// Module names subject to capability checks. Pages carry the same names.
const (
	ModuleDashboard    = "dashboard"
	ModuleCustomers    = "customers"
	ModuleRecords      = "records"
	ModuleAppointments = "appointments"
	ModuleBilling      = "billing"
	ModuleInventory    = "inventory"
	ModuleReports      = "reports"
	ModuleSettings     = "settings"
	ModuleUsers        = "users"
	ModulePermissions  = "permissions"
)

// KnownModules is the closed set of module names. Capability maps are
// validated against it at the boundary so a typo cannot create a dead entry.
var KnownModules = []string{
	ModuleDashboard,
	ModuleCustomers,
	ModuleRecords,
	ModuleAppointments,
	ModuleBilling,
	ModuleInventory,
	ModuleReports,
	ModuleSettings,
	ModuleUsers,
	ModulePermissions,
}

// Capability action names.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionExport = "export"
	ActionImport = "import"
	ActionManage = "manage"
)

// KnownActions is the closed set of capability flags.
var KnownActions = []string{
	ActionView, ActionCreate, ActionEdit, ActionDelete,
	ActionExport, ActionImport, ActionManage,
}

func fullCapability() models.Capability {
	return models.Capability{View: true, Create: true, Edit: true, Delete: true, Export: true, Import: true, Manage: true}
}

// roleDefaults is the static default-permission table. It is fixed
// configuration: a role's page access is exactly the key set of its entry.
var roleDefaults = map[models.UserRole]models.CapabilityMap{
	models.RoleAdmin: {
		ModuleDashboard:    fullCapability(),
		ModuleCustomers:    fullCapability(),
		ModuleRecords:      fullCapability(),
		ModuleAppointments: fullCapability(),
		ModuleBilling:      fullCapability(),
		ModuleInventory:    fullCapability(),
		ModuleReports:      fullCapability(),
		ModuleSettings:     fullCapability(),
		ModuleUsers:        fullCapability(),
		ModulePermissions:  fullCapability(),
	},
	models.RoleShopOwner: {
		ModuleDashboard:    {View: true, Export: true},
		ModuleCustomers:    {View: true, Create: true, Edit: true, Delete: true, Export: true, Import: true},
		ModuleRecords:      {View: true, Create: true, Edit: true, Delete: true, Export: true, Import: true},
		ModuleAppointments: {View: true, Create: true, Edit: true, Delete: true, Export: true},
		ModuleBilling:      {View: true, Create: true, Edit: true, Delete: true, Export: true},
		ModuleInventory:    {View: true, Create: true, Edit: true, Delete: true, Export: true, Import: true},
		ModuleReports:      {View: true, Export: true},
		ModuleSettings:     {View: true, Edit: true, Manage: true},
		ModuleUsers:        {View: true, Create: true, Edit: true, Delete: true, Manage: true},
		ModulePermissions:  {View: true, Edit: true, Manage: true},
	},
	models.RoleOptometrist: {
		ModuleDashboard:    {View: true},
		ModuleCustomers:    {View: true, Create: true, Edit: true},
		ModuleRecords:      {View: true, Create: true, Edit: true, Export: true},
		ModuleAppointments: {View: true, Create: true, Edit: true},
		ModuleReports:      {View: true},
	},
	models.RoleAssistant: {
		ModuleDashboard:    {View: true},
		ModuleCustomers:    {View: true, Create: true, Edit: true},
		ModuleRecords:      {View: true, Create: true},
		ModuleAppointments: {View: true, Create: true, Edit: true},
		ModuleInventory:    {View: true},
	},
	models.RoleReceptionist: {
		ModuleDashboard:    {View: true},
		ModuleCustomers:    {View: true, Create: true},
		ModuleAppointments: {View: true, Create: true, Edit: true},
		ModuleBilling:      {View: true, Create: true},
	},
}

// DefaultPermissions returns a copy of the static capability table for a role.
func DefaultPermissions(role models.UserRole) models.CapabilityMap {
	defaults, ok := roleDefaults[role]
	if !ok {
		return models.CapabilityMap{}
	}
	out := make(models.CapabilityMap, len(defaults))
	for module, capability := range defaults {
		out[module] = capability
	}
	return out
}

// DefaultPageAccess returns the default page list for a role: the key set of
// its capability table, sorted for determinism.
func DefaultPageAccess(role models.UserRole) models.StringList {
	defaults, ok := roleDefaults[role]
	if !ok {
		return models.StringList{}
	}
	pages := make(models.StringList, 0, len(defaults))
	for module := range defaults {
		pages = append(pages, module)
	}
	sort.Strings(pages)
	return pages
}

// AllModuleGrants returns every known module with every capability true.
// Used for the hard-coded admin grant, never read from storage.
func AllModuleGrants() models.CapabilityMap {
	out := make(models.CapabilityMap, len(KnownModules))
	for _, module := range KnownModules {
		out[module] = fullCapability()
	}
	return out
}

// AllPages returns every known page name.
func AllPages() models.StringList {
	pages := make(models.StringList, len(KnownModules))
	copy(pages, KnownModules)
	return pages
}

// IsKnownModule reports whether the module name is in the closed set.
func IsKnownModule(module string) bool {
	for _, m := range KnownModules {
		if m == module {
			return true
		}
	}
	return false
}

// IsKnownAction reports whether the action name is a capability flag.
func IsKnownAction(action string) bool {
	for _, a := range KnownActions {
		if a == action {
			return true
		}
	}
	return false
}

// IsKnownPage reports whether the page name is in the closed set.
func IsKnownPage(page string) bool {
	return IsKnownModule(page)
}
