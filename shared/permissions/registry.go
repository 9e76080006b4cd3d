package permissions

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/visioncare/optometry-backend/shared/models"
)

// Registry manages the per-(shop, role) permission records. The unique index
// on (shop_id, role) plus ON CONFLICT upserts is the only concurrency
// mechanism: two racing initialize or reset calls converge on one row.
type Registry struct {
	db *gorm.DB
}

// NewRegistry returns a registry backed by the given database handle.
func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// ActiveRecord implements RecordLookup. A missing record is (nil, nil).
func (r *Registry) ActiveRecord(shopID uuid.UUID, role models.UserRole) (*models.Permission, error) {
	var record models.Permission
	err := r.db.Where("shop_id = ? AND role = ? AND is_active = ?", shopID, role, true).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListActive returns every active permission record for a shop.
func (r *Registry) ListActive(shopID uuid.UUID) ([]models.Permission, error) {
	var records []models.Permission
	err := r.db.Where("shop_id = ? AND is_active = ?", shopID, true).Order("role ASC").Find(&records).Error
	return records, err
}

// Initialize upserts a permission record for every role from the static
// default table. Runs as a side effect of shop creation and on explicit
// re-initialization.
func (r *Registry) Initialize(shopID uuid.UUID, createdBy *uuid.UUID) error {
	for _, role := range models.ValidRoles {
		record := models.Permission{
			ID:          uuid.New(),
			ShopID:      shopID,
			Role:        role,
			Permissions: DefaultPermissions(role),
			PageAccess:  DefaultPageAccess(role),
			IsActive:    true,
			CreatedBy:   createdBy,
		}
		if err := r.upsert(&record); err != nil {
			return fmt.Errorf("failed to initialize permissions for role %s: %w", role, err)
		}
	}
	return nil
}

// Update replaces a role's capability matrix and page list wholesale. Merging
// with account overrides happens only at resolve time. As a documented side
// effect, per-account overrides for every account with this (shop, role) are
// cleared so the new defaults take full effect; that step runs after the
// registry write and is best-effort.
func (r *Registry) Update(shopID uuid.UUID, role models.UserRole, perms models.CapabilityMap, pages models.StringList, updatedBy *uuid.UUID) (*models.Permission, error) {
	if err := ValidateCapabilityMap(perms); err != nil {
		return nil, err
	}
	if err := ValidatePages(pages); err != nil {
		return nil, err
	}

	record := models.Permission{
		ID:          uuid.New(),
		ShopID:      shopID,
		Role:        role,
		Permissions: perms,
		PageAccess:  pages,
		IsActive:    true,
		CreatedBy:   updatedBy,
	}
	if err := r.upsert(&record); err != nil {
		return nil, err
	}
	r.clearAccountOverrides(shopID, role)
	return r.reload(shopID, role)
}

// Reset restores a role's record to the static default table entry, with the
// same override-clearing side effect as Update. Resetting twice is a no-op
// beyond the first call.
func (r *Registry) Reset(shopID uuid.UUID, role models.UserRole, updatedBy *uuid.UUID) (*models.Permission, error) {
	record := models.Permission{
		ID:          uuid.New(),
		ShopID:      shopID,
		Role:        role,
		Permissions: DefaultPermissions(role),
		PageAccess:  DefaultPageAccess(role),
		IsActive:    true,
		CreatedBy:   updatedBy,
	}
	if err := r.upsert(&record); err != nil {
		return nil, err
	}
	r.clearAccountOverrides(shopID, role)
	return r.reload(shopID, role)
}

// DeactivateShop flips every record of a shop inactive. Resolution then
// fails closed for the shop's accounts. Reversible by a later initialize.
func (r *Registry) DeactivateShop(shopID uuid.UUID) error {
	return r.db.Model(&models.Permission{}).Where("shop_id = ?", shopID).Update("is_active", false).Error
}

// upsert writes the record atomically against the (shop_id, role) unique
// index. Read-modify-write would race; ON CONFLICT does not.
func (r *Registry) upsert(record *models.Permission) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_id"}, {Name: "role"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"permissions": record.Permissions,
			"page_access": record.PageAccess,
			"is_active":   true,
			"created_by":  record.CreatedBy,
			"updated_at":  time.Now(),
		}),
	}).Create(record).Error
}

func (r *Registry) reload(shopID uuid.UUID, role models.UserRole) (*models.Permission, error) {
	var record models.Permission
	if err := r.db.Where("shop_id = ? AND role = ?", shopID, role).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// clearAccountOverrides wipes per-account permission overrides for every
// account with the given (shop, role). Not transactional with the registry
// write; a failure leaves stale overrides until the next update.
func (r *Registry) clearAccountOverrides(shopID uuid.UUID, role models.UserRole) {
	err := r.db.Model(&models.User{}).
		Where("shop_id = ? AND role = ?", shopID, role).
		Updates(map[string]interface{}{
			"permissions":      models.OverrideMap{},
			"accessible_pages": models.StringList{},
		}).Error
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"shop_id": shopID,
			"role":    role,
			"error":   err,
		}).Warn("Failed to clear account permission overrides")
	}
}

// ValidateCapabilityMap rejects capability entries for unknown modules.
func ValidateCapabilityMap(perms models.CapabilityMap) error {
	for module := range perms {
		if !IsKnownModule(module) {
			return fmt.Errorf("unknown module: %s", module)
		}
	}
	return nil
}

// ValidateOverrideMap rejects override entries for unknown modules.
func ValidateOverrideMap(overrides models.OverrideMap) error {
	for module := range overrides {
		if !IsKnownModule(module) {
			return fmt.Errorf("unknown module: %s", module)
		}
	}
	return nil
}

// ValidatePages rejects unknown page names.
func ValidatePages(pages models.StringList) error {
	for _, page := range pages {
		if !IsKnownPage(page) {
			return fmt.Errorf("unknown page: %s", page)
		}
	}
	return nil
}
