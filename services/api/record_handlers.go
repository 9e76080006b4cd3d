package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visioncare/optometry-backend/shared/middleware"
	"github.com/visioncare/optometry-backend/shared/models"
	"github.com/visioncare/optometry-backend/shared/permissions"
	"github.com/visioncare/optometry-backend/shared/utils"
)

// RecordRequest represents the create/update exam record payload.
type RecordRequest struct {
	CustomerID          string              `json:"customer_id" binding:"required"`
	ExamDate            *time.Time          `json:"exam_date"`
	VisualAcuity        models.VisualAcuity `json:"visual_acuity"`
	Prescription        models.Prescription `json:"prescription"`
	PupillaryDistance   float64             `json:"pupillary_distance"`
	IntraocularPressure string              `json:"intraocular_pressure"`
	Diagnosis           string              `json:"diagnosis"`
	Treatment           string              `json:"treatment"`
	Notes               string              `json:"notes"`
}

// handleGetRecords lists the shop's exam records, paginated.
func handleGetRecords(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		shopID, ok := callerShopID(c, caller)
		if !ok {
			return
		}

		page, limit := utils.ParsePagination(c)

		query := db.Model(&models.OptometryRecord{}).Where("shop_id = ?", shopID)

		var total int64
		if err := query.Count(&total).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to count records")
			return
		}

		var records []models.OptometryRecord
		if err := query.Order("exam_date DESC").Offset(utils.Offset(page, limit)).Limit(limit).Find(&records).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch records")
			return
		}

		utils.PagedResponse(c, records, total, page, limit)
	}
}

// handleCreateRecord files an exam record. The customer must belong to the
// same shop as the record.
func handleCreateRecord(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		shopID, ok := callerShopID(c, caller)
		if !ok {
			return
		}

		var req RecordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid customer ID")
			return
		}

		var customer models.Customer
		if err := db.Where("id = ? AND shop_id = ?", customerID, shopID).First(&customer).Error; err != nil {
			utils.NotFoundResponse(c, "Customer not found")
			return
		}

		examDate := time.Now()
		if req.ExamDate != nil {
			examDate = *req.ExamDate
		}

		record := models.OptometryRecord{
			ID:                  uuid.New(),
			ShopID:              shopID,
			CustomerID:          customerID,
			ExamDate:            examDate,
			VisualAcuity:        req.VisualAcuity,
			Prescription:        req.Prescription,
			PupillaryDistance:   req.PupillaryDistance,
			IntraocularPressure: req.IntraocularPressure,
			Diagnosis:           req.Diagnosis,
			Treatment:           req.Treatment,
			Notes:               req.Notes,
			ExaminedBy:          &caller.ID,
		}

		if err := db.Create(&record).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create record")
			return
		}

		utils.CreatedResponse(c, record)
	}
}

func loadScopedRecord(c *gin.Context, db *gorm.DB, gate *permissions.Gate) (*models.OptometryRecord, bool) {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		utils.UnauthorizedResponse(c, "Authentication required")
		return nil, false
	}

	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid record ID")
		return nil, false
	}

	var record models.OptometryRecord
	if err := db.Where("id = ?", recordID).First(&record).Error; err != nil {
		utils.NotFoundResponse(c, "Record not found")
		return nil, false
	}

	if !gate.AuthorizeShop(caller, record.ShopID) {
		utils.NotFoundResponse(c, "Record not found")
		return nil, false
	}

	return &record, true
}

// handleGetRecord returns one exam record.
func handleGetRecord(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, ok := loadScopedRecord(c, db, gate)
		if !ok {
			return
		}
		utils.OKResponse(c, record)
	}
}

// handleUpdateRecord updates an exam record's clinical data.
func handleUpdateRecord(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, ok := loadScopedRecord(c, db, gate)
		if !ok {
			return
		}

		var req RecordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.ExamDate != nil {
			record.ExamDate = *req.ExamDate
		}
		record.VisualAcuity = req.VisualAcuity
		record.Prescription = req.Prescription
		record.PupillaryDistance = req.PupillaryDistance
		record.IntraocularPressure = req.IntraocularPressure
		record.Diagnosis = req.Diagnosis
		record.Treatment = req.Treatment
		record.Notes = req.Notes

		if err := db.Save(record).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update record")
			return
		}

		utils.OKResponse(c, record)
	}
}

// handleDeleteRecord soft-deletes an exam record.
func handleDeleteRecord(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, ok := loadScopedRecord(c, db, gate)
		if !ok {
			return
		}

		if err := db.Delete(record).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete record")
			return
		}

		utils.OKResponse(c, gin.H{"message": "Record deleted"})
	}
}

// handleGetCustomerRecords lists all exam records of one patient.
func handleGetCustomerRecords(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := loadScopedCustomer(c, db, gate)
		if !ok {
			return
		}

		var records []models.OptometryRecord
		if err := db.Where("customer_id = ? AND shop_id = ?", customer.ID, customer.ShopID).
			Order("exam_date DESC").Find(&records).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch records")
			return
		}

		utils.OKResponse(c, records)
	}
}
