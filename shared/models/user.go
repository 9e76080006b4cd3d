package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole is one of the five fixed staff roles.
type UserRole string

const (
	RoleAdmin        UserRole = "admin"
	RoleShopOwner    UserRole = "shop_owner"
	RoleOptometrist  UserRole = "optometrist"
	RoleAssistant    UserRole = "assistant"
	RoleReceptionist UserRole = "receptionist"
)

// ValidRoles lists every accepted role value.
var ValidRoles = []UserRole{RoleAdmin, RoleShopOwner, RoleOptometrist, RoleAssistant, RoleReceptionist}

// IsValid reports whether the role is one of the five enumerated values.
func (r UserRole) IsValid() bool {
	for _, role := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// User represents a staff account. Platform admins have no shop; every other
// account belongs to exactly one shop.
type User struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name            string         `json:"name" gorm:"not null"`
	Email           string         `json:"email" gorm:"uniqueIndex;not null"`
	Password        string         `json:"-" gorm:"not null"`
	Role            UserRole       `json:"role" gorm:"type:varchar(30);not null;default:'receptionist'"`
	ShopID          *uuid.UUID     `json:"shop_id,omitempty" gorm:"type:uuid;index"`
	IsActive        bool           `json:"is_active" gorm:"default:true"`
	Permissions     OverrideMap    `json:"permissions" gorm:"type:jsonb;not null;default:'{}'"`
	AccessiblePages StringList     `json:"accessible_pages" gorm:"type:jsonb;not null;default:'[]'"`
	RefreshToken    string         `json:"-"`
	LastLoginAt     *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`

	Shop *Shop `json:"shop,omitempty" gorm:"foreignKey:ShopID"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the account is a platform admin.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BelongsToShop reports whether the account is bound to the given shop.
func (u *User) BelongsToShop(shopID uuid.UUID) bool {
	return u.ShopID != nil && *u.ShopID == shopID
}
