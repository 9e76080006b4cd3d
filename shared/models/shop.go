package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionPlan is the shop's billing tier. Plan features are stored, not
// enforced; billing logic is out of scope.
type SubscriptionPlan string

const (
	PlanBasic      SubscriptionPlan = "basic"
	PlanPremium    SubscriptionPlan = "premium"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

// SubscriptionStatus tracks whether the shop's subscription is current.
type SubscriptionStatus string

const (
	SubscriptionActive  SubscriptionStatus = "active"
	SubscriptionTrial   SubscriptionStatus = "trial"
	SubscriptionExpired SubscriptionStatus = "expired"
)

// ShopSettings holds tenant-scoped settings, stored as JSONB.
type ShopSettings struct {
	DefaultUserRole     UserRole `json:"default_user_role"`
	AppointmentDuration int      `json:"appointment_duration"` // minutes
	Currency            string   `json:"currency"`
}

func (s ShopSettings) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *ShopSettings) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// DefaultShopSettings returns the settings a new shop starts with.
func DefaultShopSettings() ShopSettings {
	return ShopSettings{
		DefaultUserRole:     RoleReceptionist,
		AppointmentDuration: 30,
		Currency:            "USD",
	}
}

// Shop represents a tenant. Every customer, record, permission record and
// non-admin account belongs to exactly one shop.
type Shop struct {
	ID                 uuid.UUID          `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name               string             `json:"name" gorm:"not null"`
	OwnerID            *uuid.UUID         `json:"owner_id,omitempty" gorm:"type:uuid"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	Address            string             `json:"address"`
	Plan               SubscriptionPlan   `json:"plan" gorm:"type:varchar(20);default:'basic'"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" gorm:"type:varchar(20);default:'trial'"`
	IsActive           bool               `json:"is_active" gorm:"default:true"`
	Settings           ShopSettings       `json:"settings" gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
	DeletedAt          gorm.DeletedAt     `json:"-" gorm:"index"`

	Owner *User  `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Users []User `json:"users,omitempty" gorm:"foreignKey:ShopID"`
}

func (Shop) TableName() string {
	return "shops"
}
