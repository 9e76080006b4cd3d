package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Capability is the full set of flags a role grants on one module.
type Capability struct {
	View   bool `json:"view"`
	Create bool `json:"create"`
	Edit   bool `json:"edit"`
	Delete bool `json:"delete"`
	Export bool `json:"export"`
	Import bool `json:"import"`
	Manage bool `json:"manage"`
}

// CapabilityOverride is a per-user override for one module. Pointer fields
// distinguish "not set" (inherit the role default) from an explicit false.
type CapabilityOverride struct {
	View   *bool `json:"view,omitempty"`
	Create *bool `json:"create,omitempty"`
	Edit   *bool `json:"edit,omitempty"`
	Delete *bool `json:"delete,omitempty"`
	Export *bool `json:"export,omitempty"`
	Import *bool `json:"import,omitempty"`
	Manage *bool `json:"manage,omitempty"`
}

// CapabilityMap maps module name -> capabilities, stored as JSONB.
type CapabilityMap map[string]Capability

func (m CapabilityMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(CapabilityMap{})
	}
	return json.Marshal(m)
}

func (m *CapabilityMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// OverrideMap maps module name -> per-user capability overrides, stored as JSONB.
type OverrideMap map[string]CapabilityOverride

func (m OverrideMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(OverrideMap{})
	}
	return json.Marshal(m)
}

func (m *OverrideMap) Scan(value interface{}) error {
	return scanJSON(value, m)
}

// StringList is a JSONB-backed list of page names.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal(StringList{})
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}
}

// Permission holds the default capability matrix and page access list for one
// role within one shop. At most one active record exists per (shop, role),
// enforced by a unique index; all writes go through atomic upserts.
type Permission struct {
	ID          uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ShopID      uuid.UUID     `json:"shop_id" gorm:"type:uuid;not null;uniqueIndex:idx_permissions_shop_role"`
	Role        UserRole      `json:"role" gorm:"type:varchar(30);not null;uniqueIndex:idx_permissions_shop_role"`
	Permissions CapabilityMap `json:"permissions" gorm:"type:jsonb;not null;default:'{}'"`
	PageAccess  StringList    `json:"page_access" gorm:"type:jsonb;not null;default:'[]'"`
	IsActive    bool          `json:"is_active" gorm:"default:true"`
	CreatedBy   *uuid.UUID    `json:"created_by,omitempty" gorm:"type:uuid"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	Shop *Shop `json:"shop,omitempty" gorm:"foreignKey:ShopID"`
}

func (Permission) TableName() string {
	return "permissions"
}
