package permissions

import (
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/visioncare/optometry-backend/shared/models"
)

const (
	upsertSQL = `INSERT INTO "permissions" .+ON CONFLICT \("shop_id","role"\) DO UPDATE SET`
	clearSQL  = `UPDATE "users" SET .+WHERE shop_id = \$4 AND role = \$5`
	reloadSQL = `SELECT \* FROM "permissions" WHERE shop_id = \$1 AND role = \$2`
	activeSQL = `SELECT \* FROM "permissions" WHERE shop_id = \$1 AND role = \$2 AND is_active = \$3`
)

func registryMock(t *testing.T) (*Registry, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewRegistry(db), mock
}

func upsertReturning() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "permissions", "page_access", "is_active"}).
		AddRow(uuid.New().String(), []byte(`{}`), []byte(`[]`), true)
}

func recordRow(t *testing.T, shopID uuid.UUID, role models.UserRole, perms models.CapabilityMap, pages models.StringList) *sqlmock.Rows {
	t.Helper()
	permsJSON, err := json.Marshal(perms)
	require.NoError(t, err)
	pagesJSON, err := json.Marshal(pages)
	require.NoError(t, err)
	return sqlmock.NewRows([]string{"id", "shop_id", "role", "permissions", "page_access", "is_active", "created_by"}).
		AddRow(uuid.New().String(), shopID.String(), string(role), permsJSON, pagesJSON, true, nil)
}

func TestRegistryUpdateUpsertsOnShopRoleIndex(t *testing.T) {
	registry, mock := registryMock(t)
	shopID := uuid.New()
	updatedBy := uuid.New()
	perms := models.CapabilityMap{ModuleCustomers: {View: true, Create: true}}
	pages := models.StringList{ModuleCustomers}

	mock.ExpectQuery(upsertSQL).WillReturnRows(upsertReturning())
	mock.ExpectExec(clearSQL).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), shopID, string(models.RoleAssistant)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(reloadSQL).
		WillReturnRows(recordRow(t, shopID, models.RoleAssistant, perms, pages))

	record, err := registry.Update(shopID, models.RoleAssistant, perms, pages, &updatedBy)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAssistant, record.Role)
	assert.True(t, record.Permissions[ModuleCustomers].Create)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryUpdateRejectsUnknownModuleBeforeWriting(t *testing.T) {
	registry, mock := registryMock(t)

	_, err := registry.Update(uuid.New(), models.RoleAssistant,
		models.CapabilityMap{"payroll": {View: true}}, nil, nil)
	assert.ErrorContains(t, err, "unknown module: payroll")

	_, err = registry.Update(uuid.New(), models.RoleAssistant,
		models.CapabilityMap{}, models.StringList{"payroll"}, nil)
	assert.ErrorContains(t, err, "unknown page: payroll")

	// Validation failures never reach the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryResetIsIdempotent(t *testing.T) {
	registry, mock := registryMock(t)
	shopID := uuid.New()
	role := models.RoleOptometrist

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(upsertSQL).WillReturnRows(upsertReturning())
		mock.ExpectExec(clearSQL).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), shopID, string(role)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(reloadSQL).
			WillReturnRows(recordRow(t, shopID, role, DefaultPermissions(role), DefaultPageAccess(role)))
	}

	first, err := registry.Reset(shopID, role, nil)
	require.NoError(t, err)
	second, err := registry.Reset(shopID, role, nil)
	require.NoError(t, err)

	// Resetting twice converges on the same record content.
	assert.Equal(t, first.Permissions, second.Permissions)
	assert.Equal(t, first.PageAccess, second.PageAccess)
	assert.Equal(t, DefaultPermissions(role), second.Permissions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryInitializeSeedsEveryRole(t *testing.T) {
	registry, mock := registryMock(t)

	for range models.ValidRoles {
		mock.ExpectQuery(upsertSQL).WillReturnRows(upsertReturning())
	}

	require.NoError(t, registry.Initialize(uuid.New(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryActiveRecordMissing(t *testing.T) {
	registry, mock := registryMock(t)

	mock.ExpectQuery(activeSQL).
		WillReturnRows(sqlmock.NewRows([]string{"id", "shop_id", "role", "permissions", "page_access", "is_active"}))

	record, err := registry.ActiveRecord(uuid.New(), models.RoleAssistant)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryDeactivateShop(t *testing.T) {
	registry, mock := registryMock(t)
	shopID := uuid.New()

	mock.ExpectExec(`UPDATE "permissions" SET "is_active"=\$1`).
		WithArgs(false, sqlmock.AnyArg(), shopID).
		WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, registry.DeactivateShop(shopID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateCapabilityMap(t *testing.T) {
	assert.NoError(t, ValidateCapabilityMap(models.CapabilityMap{}))
	assert.NoError(t, ValidateCapabilityMap(models.CapabilityMap{
		ModuleCustomers: {View: true},
		ModuleRecords:   {},
	}))

	err := ValidateCapabilityMap(models.CapabilityMap{"payroll": {View: true}})
	assert.ErrorContains(t, err, "unknown module: payroll")
}

func TestValidateOverrideMap(t *testing.T) {
	assert.NoError(t, ValidateOverrideMap(models.OverrideMap{
		ModuleBilling: {View: boolPtr(false)},
	}))

	err := ValidateOverrideMap(models.OverrideMap{"hr": {}})
	assert.ErrorContains(t, err, "unknown module: hr")
}

func TestValidatePages(t *testing.T) {
	assert.NoError(t, ValidatePages(models.StringList{}))
	assert.NoError(t, ValidatePages(models.StringList{ModuleDashboard, ModuleSettings}))

	err := ValidatePages(models.StringList{ModuleDashboard, "payroll"})
	assert.ErrorContains(t, err, "unknown page: payroll")
}
