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

// CustomerRequest represents the create/update customer payload.
type CustomerRequest struct {
	FirstName   string     `json:"first_name" binding:"required"`
	LastName    string     `json:"last_name" binding:"required"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Gender      string     `json:"gender"`
	Address     string     `json:"address"`
	Notes       string     `json:"notes"`
}

// callerShopID determines the shop scope of a request: the caller's own shop,
// or an explicit shop_id query parameter for admins.
func callerShopID(c *gin.Context, caller *models.User) (uuid.UUID, bool) {
	if caller.IsAdmin() {
		raw := c.Query("shop_id")
		if raw == "" {
			utils.BadRequestResponse(c, "Admin requests must specify shop_id")
			return uuid.Nil, false
		}
		shopID, err := uuid.Parse(raw)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid shop ID")
			return uuid.Nil, false
		}
		return shopID, true
	}
	if caller.ShopID == nil {
		utils.ForbiddenResponse(c, "Account is not bound to a shop")
		return uuid.Nil, false
	}
	return *caller.ShopID, true
}

// handleGetCustomers lists the shop's patients, paginated.
func handleGetCustomers(db *gorm.DB) gin.HandlerFunc {
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

		query := db.Model(&models.Customer{}).Where("shop_id = ?", shopID)
		if search := c.Query("search"); search != "" {
			like := "%" + search + "%"
			query = query.Where("first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?", like, like, like)
		}

		var total int64
		if err := query.Count(&total).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to count customers")
			return
		}

		var customers []models.Customer
		if err := query.Order("created_at DESC").Offset(utils.Offset(page, limit)).Limit(limit).Find(&customers).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch customers")
			return
		}

		utils.PagedResponse(c, customers, total, page, limit)
	}
}

// handleCreateCustomer registers a patient in the caller's shop.
func handleCreateCustomer(db *gorm.DB) gin.HandlerFunc {
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

		var shop models.Shop
		if err := db.Where("id = ?", shopID).First(&shop).Error; err != nil {
			utils.NotFoundResponse(c, "Shop not found")
			return
		}

		var req CustomerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		customer := models.Customer{
			ID:          uuid.New(),
			ShopID:      shopID,
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			Email:       req.Email,
			Phone:       req.Phone,
			DateOfBirth: req.DateOfBirth,
			Gender:      req.Gender,
			Address:     req.Address,
			Notes:       req.Notes,
		}

		if err := db.Create(&customer).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create customer")
			return
		}

		utils.CreatedResponse(c, customer)
	}
}

// loadScopedCustomer fetches a customer enforcing the ownership gate:
// cross-shop lookups read as not found.
func loadScopedCustomer(c *gin.Context, db *gorm.DB, gate *permissions.Gate) (*models.Customer, bool) {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		utils.UnauthorizedResponse(c, "Authentication required")
		return nil, false
	}

	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid customer ID")
		return nil, false
	}

	var customer models.Customer
	if err := db.Where("id = ?", customerID).First(&customer).Error; err != nil {
		utils.NotFoundResponse(c, "Customer not found")
		return nil, false
	}

	if !gate.AuthorizeShop(caller, customer.ShopID) {
		utils.NotFoundResponse(c, "Customer not found")
		return nil, false
	}

	return &customer, true
}

// handleGetCustomer returns one patient.
func handleGetCustomer(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := loadScopedCustomer(c, db, gate)
		if !ok {
			return
		}
		utils.OKResponse(c, customer)
	}
}

// handleUpdateCustomer updates a patient's details.
func handleUpdateCustomer(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := loadScopedCustomer(c, db, gate)
		if !ok {
			return
		}

		var req CustomerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		customer.FirstName = req.FirstName
		customer.LastName = req.LastName
		customer.Email = req.Email
		customer.Phone = req.Phone
		customer.DateOfBirth = req.DateOfBirth
		customer.Gender = req.Gender
		customer.Address = req.Address
		customer.Notes = req.Notes

		if err := db.Save(customer).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update customer")
			return
		}

		utils.OKResponse(c, customer)
	}
}

// handleDeleteCustomer soft-deletes a patient.
func handleDeleteCustomer(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		customer, ok := loadScopedCustomer(c, db, gate)
		if !ok {
			return
		}

		if err := db.Delete(customer).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete customer")
			return
		}

		utils.OKResponse(c, gin.H{"message": "Customer deleted"})
	}
}
