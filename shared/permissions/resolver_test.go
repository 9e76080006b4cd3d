package permissions

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visioncare/optometry-backend/shared/models"
)

// stubLookup serves canned permission records keyed by (shop, role).
type stubLookup struct {
	records map[string]*models.Permission
	err     error
}

func (s *stubLookup) ActiveRecord(shopID uuid.UUID, role models.UserRole) (*models.Permission, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records[shopID.String()+"/"+string(role)], nil
}

func lookupWith(shopID uuid.UUID, role models.UserRole, perms models.CapabilityMap, pages models.StringList) *stubLookup {
	return &stubLookup{records: map[string]*models.Permission{
		shopID.String() + "/" + string(role): {
			ShopID:      shopID,
			Role:        role,
			Permissions: perms,
			PageAccess:  pages,
			IsActive:    true,
		},
	}}
}

func boolPtr(b bool) *bool { return &b }

func TestResolveAdminUniversalGrant(t *testing.T) {
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}

	// The lookup must never be consulted for admins, so a failing one proves it.
	resolved, err := Resolve(admin, &stubLookup{err: errors.New("lookup must not be called")})
	require.NoError(t, err)

	assert.Len(t, resolved.Permissions, len(KnownModules))
	for _, module := range KnownModules {
		for _, action := range KnownActions {
			assert.True(t, resolved.Allows(module, action), "admin denied %s.%s", module, action)
		}
	}
	assert.ElementsMatch(t, AllPages(), resolved.AccessiblePages)
}

func TestResolveMissingRecordFailsClosed(t *testing.T) {
	shopID := uuid.New()
	user := &models.User{ID: uuid.New(), Role: models.RoleOptometrist, ShopID: &shopID}

	resolved, err := Resolve(user, &stubLookup{})
	require.NoError(t, err)

	assert.Empty(t, resolved.Permissions)
	assert.Empty(t, resolved.AccessiblePages)
	assert.False(t, resolved.Allows(ModuleCustomers, ActionView))
	assert.False(t, resolved.AllowsPage(ModuleDashboard))
}

func TestResolveNoShopFailsClosed(t *testing.T) {
	user := &models.User{ID: uuid.New(), Role: models.RoleReceptionist}

	resolved, err := Resolve(user, &stubLookup{err: errors.New("lookup must not be called")})
	require.NoError(t, err)

	assert.Empty(t, resolved.Permissions)
	assert.False(t, resolved.Allows(ModuleDashboard, ActionView))
}

func TestResolveFieldLevelOverrideMerge(t *testing.T) {
	shopID := uuid.New()
	lookup := lookupWith(shopID, models.RoleAssistant, models.CapabilityMap{
		ModuleCustomers: {View: true, Create: false},
	}, models.StringList{ModuleDashboard, ModuleCustomers})

	user := &models.User{
		ID:     uuid.New(),
		Role:   models.RoleAssistant,
		ShopID: &shopID,
		Permissions: models.OverrideMap{
			ModuleCustomers: {Create: boolPtr(true)},
		},
	}

	resolved, err := Resolve(user, lookup)
	require.NoError(t, err)

	// The override defines only create; view keeps the role default.
	assert.True(t, resolved.Allows(ModuleCustomers, ActionView))
	assert.True(t, resolved.Allows(ModuleCustomers, ActionCreate))
	assert.False(t, resolved.Allows(ModuleCustomers, ActionEdit))
}

func TestResolveOverrideCanRevoke(t *testing.T) {
	shopID := uuid.New()
	lookup := lookupWith(shopID, models.RoleOptometrist, models.CapabilityMap{
		ModuleRecords: {View: true, Create: true, Edit: true},
	}, models.StringList{ModuleRecords})

	user := &models.User{
		ID:     uuid.New(),
		Role:   models.RoleOptometrist,
		ShopID: &shopID,
		Permissions: models.OverrideMap{
			ModuleRecords: {Edit: boolPtr(false)},
		},
	}

	resolved, err := Resolve(user, lookup)
	require.NoError(t, err)

	assert.True(t, resolved.Allows(ModuleRecords, ActionView))
	assert.True(t, resolved.Allows(ModuleRecords, ActionCreate))
	assert.False(t, resolved.Allows(ModuleRecords, ActionEdit))
}

func TestResolveOverrideOnModuleAbsentFromDefaults(t *testing.T) {
	shopID := uuid.New()
	lookup := lookupWith(shopID, models.RoleReceptionist, models.CapabilityMap{
		ModuleDashboard: {View: true},
	}, models.StringList{ModuleDashboard})

	user := &models.User{
		ID:     uuid.New(),
		Role:   models.RoleReceptionist,
		ShopID: &shopID,
		Permissions: models.OverrideMap{
			ModuleReports: {View: boolPtr(true)},
		},
	}

	resolved, err := Resolve(user, lookup)
	require.NoError(t, err)

	// Overriding a module the defaults never mention starts from zero.
	assert.True(t, resolved.Allows(ModuleReports, ActionView))
	assert.False(t, resolved.Allows(ModuleReports, ActionCreate))
}

func TestResolvePageUnion(t *testing.T) {
	shopID := uuid.New()
	lookup := lookupWith(shopID, models.RoleAssistant, models.CapabilityMap{},
		models.StringList{ModuleDashboard, ModuleCustomers})

	user := &models.User{
		ID:              uuid.New(),
		Role:            models.RoleAssistant,
		ShopID:          &shopID,
		AccessiblePages: models.StringList{ModuleReports, ModuleCustomers},
	}

	resolved, err := Resolve(user, lookup)
	require.NoError(t, err)

	assert.ElementsMatch(t,
		models.StringList{ModuleDashboard, ModuleCustomers, ModuleReports},
		resolved.AccessiblePages)
	assert.True(t, resolved.AllowsPage(ModuleReports))
	assert.False(t, resolved.AllowsPage(ModuleBilling))
}

func TestResolvePropagatesLookupError(t *testing.T) {
	shopID := uuid.New()
	user := &models.User{ID: uuid.New(), Role: models.RoleAssistant, ShopID: &shopID}

	_, err := Resolve(user, &stubLookup{err: errors.New("storage down")})
	assert.Error(t, err)
}

func TestResolvedAllowsUnknownAction(t *testing.T) {
	resolved := &Resolved{Permissions: models.CapabilityMap{
		ModuleCustomers: {View: true},
	}}
	assert.False(t, resolved.Allows(ModuleCustomers, "publish"))
}
