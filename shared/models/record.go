package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EyeMeasurement holds per-eye refraction values.
type EyeMeasurement struct {
	Sphere   float64 `json:"sphere"`
	Cylinder float64 `json:"cylinder"`
	Axis     int     `json:"axis"`
}

// Prescription holds the refraction result for both eyes, stored as JSONB.
type Prescription struct {
	RightEye EyeMeasurement `json:"right_eye"`
	LeftEye  EyeMeasurement `json:"left_eye"`
}

func (p Prescription) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Prescription) Scan(value interface{}) error {
	return scanJSON(value, p)
}

// VisualAcuity holds uncorrected acuity per eye (e.g. "20/40").
type VisualAcuity struct {
	RightEye string `json:"right_eye"`
	LeftEye  string `json:"left_eye"`
}

func (v VisualAcuity) Value() (driver.Value, error) {
	return json.Marshal(v)
}

func (v *VisualAcuity) Scan(value interface{}) error {
	return scanJSON(value, v)
}

// OptometryRecord is one clinical exam for a customer. The customer must
// belong to the same shop as the record.
type OptometryRecord struct {
	ID                  uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	ShopID              uuid.UUID      `json:"shop_id" gorm:"type:uuid;not null;index"`
	CustomerID          uuid.UUID      `json:"customer_id" gorm:"type:uuid;not null;index"`
	ExamDate            time.Time      `json:"exam_date" gorm:"not null"`
	VisualAcuity        VisualAcuity   `json:"visual_acuity" gorm:"type:jsonb;not null;default:'{}'"`
	Prescription        Prescription   `json:"prescription" gorm:"type:jsonb;not null;default:'{}'"`
	PupillaryDistance   float64        `json:"pupillary_distance"`
	IntraocularPressure string         `json:"intraocular_pressure"`
	Diagnosis           string         `json:"diagnosis"`
	Treatment           string         `json:"treatment"`
	Notes               string         `json:"notes"`
	ExaminedBy          *uuid.UUID     `json:"examined_by,omitempty" gorm:"type:uuid"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `json:"-" gorm:"index"`

	Shop     *Shop     `json:"shop,omitempty" gorm:"foreignKey:ShopID"`
	Customer *Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	Examiner *User     `json:"examiner,omitempty" gorm:"foreignKey:ExaminedBy"`
}

func (OptometryRecord) TableName() string {
	return "optometry_records"
}
