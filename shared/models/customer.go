package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer represents a patient belonging to one shop.
type Customer struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ShopID      uuid.UUID      `json:"shop_id" gorm:"type:uuid;not null;index"`
	FirstName   string         `json:"first_name" gorm:"not null"`
	LastName    string         `json:"last_name" gorm:"not null"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	DateOfBirth *time.Time     `json:"date_of_birth,omitempty"`
	Gender      string         `json:"gender"`
	Address     string         `json:"address"`
	Notes       string         `json:"notes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Shop    *Shop             `json:"shop,omitempty" gorm:"foreignKey:ShopID"`
	Records []OptometryRecord `json:"records,omitempty" gorm:"foreignKey:CustomerID"`
}

func (Customer) TableName() string {
	return "customers"
}
