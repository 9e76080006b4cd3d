package permissions

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visioncare/optometry-backend/shared/models"
)

func TestDefaultPermissionsCoverEveryRole(t *testing.T) {
	for _, role := range models.ValidRoles {
		defaults := DefaultPermissions(role)
		assert.NotEmpty(t, defaults, "role %s has no default permissions", role)
		require.NoError(t, ValidateCapabilityMap(defaults), "role %s defaults name an unknown module", role)
	}
}

func TestDefaultPermissionsUnknownRole(t *testing.T) {
	assert.Empty(t, DefaultPermissions(models.UserRole("intern")))
	assert.Empty(t, DefaultPageAccess(models.UserRole("intern")))
}

func TestAdminDefaultsAreFull(t *testing.T) {
	defaults := DefaultPermissions(models.RoleAdmin)
	assert.Len(t, defaults, len(KnownModules))
	for module, capability := range defaults {
		assert.Equal(t, fullCapability(), capability, "admin defaults for %s are not full", module)
	}
}

func TestOptometristRecordDefaults(t *testing.T) {
	defaults := DefaultPermissions(models.RoleOptometrist)
	records, ok := defaults[ModuleRecords]
	require.True(t, ok)

	assert.True(t, records.View)
	assert.True(t, records.Create)
	assert.True(t, records.Edit)
	assert.False(t, records.Delete)
}

func TestReceptionistHasNoRecordsAccess(t *testing.T) {
	defaults := DefaultPermissions(models.RoleReceptionist)
	_, ok := defaults[ModuleRecords]
	assert.False(t, ok)
	assert.NotContains(t, []string(DefaultPageAccess(models.RoleReceptionist)), ModuleRecords)
}

func TestDefaultPageAccessMatchesModuleKeys(t *testing.T) {
	for _, role := range models.ValidRoles {
		defaults := DefaultPermissions(role)
		pages := DefaultPageAccess(role)

		expected := make([]string, 0, len(defaults))
		for module := range defaults {
			expected = append(expected, module)
		}
		sort.Strings(expected)

		assert.Equal(t, models.StringList(expected), pages, "role %s pages diverge from its module keys", role)
		assert.True(t, sort.StringsAreSorted(pages))
	}
}

func TestDefaultPermissionsReturnsCopy(t *testing.T) {
	first := DefaultPermissions(models.RoleAssistant)
	first[ModuleBilling] = fullCapability()

	second := DefaultPermissions(models.RoleAssistant)
	_, ok := second[ModuleBilling]
	assert.False(t, ok, "mutating a returned map leaked into the static table")
}

func TestAllModuleGrantsAndPages(t *testing.T) {
	grants := AllModuleGrants()
	assert.Len(t, grants, len(KnownModules))
	for _, module := range KnownModules {
		assert.Equal(t, fullCapability(), grants[module])
	}
	assert.Equal(t, models.StringList(KnownModules), AllPages())
}

func TestKnownSetMembership(t *testing.T) {
	assert.True(t, IsKnownModule(ModuleInventory))
	assert.False(t, IsKnownModule("payroll"))
	assert.True(t, IsKnownAction(ActionExport))
	assert.False(t, IsKnownAction("approve"))
	assert.True(t, IsKnownPage(ModuleReports))
	assert.False(t, IsKnownPage("payroll"))
}
