package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/visioncare/optometry-backend/shared/middleware"
	"github.com/visioncare/optometry-backend/shared/models"
	"github.com/visioncare/optometry-backend/shared/permissions"
	"github.com/visioncare/optometry-backend/shared/utils"
)

// CreateShopRequest represents the create shop request.
type CreateShopRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Plan    string `json:"plan"`
	OwnerID string `json:"owner_id,omitempty"`
}

// UpdateShopRequest represents the update shop request.
type UpdateShopRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
	Plan     *string `json:"plan"`
	IsActive *bool   `json:"is_active"`
}

// handleCreateShop creates a shop, seeds its permission registry for all
// five roles, and links the owner account. The sequence is explicit here
// (create, initialize, link) rather than hidden in a persistence hook.
func handleCreateShop(db *gorm.DB, registry *permissions.Registry, audit *AuditProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		var req CreateShopRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		plan := models.PlanBasic
		if req.Plan != "" {
			switch models.SubscriptionPlan(req.Plan) {
			case models.PlanBasic, models.PlanPremium, models.PlanEnterprise:
				plan = models.SubscriptionPlan(req.Plan)
			default:
				utils.ValidationErrorResponse(c, "Invalid plan", map[string]string{
					"plan": "must be one of basic, premium, enterprise",
				})
				return
			}
		}

		shop := models.Shop{
			ID:                 uuid.New(),
			Name:               req.Name,
			Email:              req.Email,
			Phone:              req.Phone,
			Address:            req.Address,
			Plan:               plan,
			SubscriptionStatus: models.SubscriptionTrial,
			IsActive:           true,
			Settings:           models.DefaultShopSettings(),
		}

		if err := db.Create(&shop).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to create shop")
			return
		}

		// Shop creation immediately populates role defaults for all five
		// roles; without this every non-admin account would resolve empty.
		if err := registry.Initialize(shop.ID, &caller.ID); err != nil {
			utils.InternalServerErrorResponse(c, "Failed to initialize shop permissions")
			return
		}

		if req.OwnerID != "" {
			ownerID, err := uuid.Parse(req.OwnerID)
			if err != nil {
				utils.BadRequestResponse(c, "Invalid owner ID")
				return
			}
			var owner models.User
			if err := db.Where("id = ?", ownerID).First(&owner).Error; err != nil {
				utils.NotFoundResponse(c, "Owner account not found")
				return
			}
			db.Model(&models.User{}).Where("id = ?", ownerID).Updates(map[string]interface{}{
				"shop_id": shop.ID,
				"role":    models.RoleShopOwner,
			})
			shop.OwnerID = &ownerID
			db.Model(&models.Shop{}).Where("id = ?", shop.ID).Update("owner_id", ownerID)
		}

		audit.Publish(caller.ID, &shop.ID, AuditShopCreated, map[string]interface{}{"name": shop.Name})

		utils.CreatedResponse(c, shop)
	}
}

// handleGetShops lists all shops (admin only), paginated.
func handleGetShops(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit := utils.ParsePagination(c)

		var total int64
		if err := db.Model(&models.Shop{}).Count(&total).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to count shops")
			return
		}

		var shops []models.Shop
		if err := db.Order("created_at DESC").Offset(utils.Offset(page, limit)).Limit(limit).Find(&shops).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch shops")
			return
		}

		utils.PagedResponse(c, shops, total, page, limit)
	}
}

// handleGetShop returns one shop; non-admins only see their own, anything
// else reads as not found.
func handleGetShop(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		shopID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid shop ID")
			return
		}

		if !gate.AuthorizeShop(user, shopID) {
			utils.NotFoundResponse(c, "Shop not found")
			return
		}

		var shop models.Shop
		if err := db.Where("id = ?", shopID).First(&shop).Error; err != nil {
			utils.NotFoundResponse(c, "Shop not found")
			return
		}

		utils.OKResponse(c, shop)
	}
}

// handleUpdateShop updates shop details; shop owners for their own shop,
// admins anywhere.
func handleUpdateShop(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid shop ID")
			return
		}

		if _, ok := requireShopManagement(c, gate, shopID); !ok {
			return
		}

		var shop models.Shop
		if err := db.Where("id = ?", shopID).First(&shop).Error; err != nil {
			utils.NotFoundResponse(c, "Shop not found")
			return
		}

		var req UpdateShopRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.Name != nil {
			shop.Name = *req.Name
		}
		if req.Email != nil {
			shop.Email = *req.Email
		}
		if req.Phone != nil {
			shop.Phone = *req.Phone
		}
		if req.Address != nil {
			shop.Address = *req.Address
		}
		if req.Plan != nil {
			shop.Plan = models.SubscriptionPlan(*req.Plan)
		}
		if req.IsActive != nil {
			shop.IsActive = *req.IsActive
		}

		if err := db.Save(&shop).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update shop")
			return
		}

		utils.OKResponse(c, shop)
	}
}

// handleDeleteShop soft-deletes a shop and deactivates its permission
// records and accounts so resolution fails closed for orphans.
func handleDeleteShop(db *gorm.DB, registry *permissions.Registry, audit *AuditProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		shopID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid shop ID")
			return
		}

		var shop models.Shop
		if err := db.Where("id = ?", shopID).First(&shop).Error; err != nil {
			utils.NotFoundResponse(c, "Shop not found")
			return
		}

		if err := db.Delete(&shop).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete shop")
			return
		}

		if err := registry.DeactivateShop(shopID); err != nil {
			utils.InternalServerErrorResponse(c, "Failed to deactivate shop permissions")
			return
		}

		db.Model(&models.User{}).Where("shop_id = ?", shopID).Update("is_active", false)

		audit.Publish(caller.ID, &shopID, AuditShopDeleted, nil)

		utils.OKResponse(c, gin.H{"message": "Shop deleted"})
	}
}

// handleGetShopSettings returns a shop's settings to its members.
func handleGetShopSettings(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		shopID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid shop ID")
			return
		}

		if !gate.AuthorizeShop(user, shopID) {
			utils.NotFoundResponse(c, "Shop not found")
			return
		}

		var shop models.Shop
		if err := db.Where("id = ?", shopID).First(&shop).Error; err != nil {
			utils.NotFoundResponse(c, "Shop not found")
			return
		}

		utils.OKResponse(c, shop.Settings)
	}
}

// UpdateShopSettingsRequest represents the settings update payload.
type UpdateShopSettingsRequest struct {
	DefaultUserRole     *string `json:"default_user_role"`
	AppointmentDuration *int    `json:"appointment_duration"`
	Currency            *string `json:"currency"`
}

// handleUpdateShopSettings updates tenant-scoped settings.
func handleUpdateShopSettings(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid shop ID")
			return
		}

		if _, ok := requireShopManagement(c, gate, shopID); !ok {
			return
		}

		var shop models.Shop
		if err := db.Where("id = ?", shopID).First(&shop).Error; err != nil {
			utils.NotFoundResponse(c, "Shop not found")
			return
		}

		var req UpdateShopSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.DefaultUserRole != nil {
			role := models.UserRole(*req.DefaultUserRole)
			if !role.IsValid() || role == models.RoleAdmin {
				utils.ValidationErrorResponse(c, "Invalid default role", map[string]string{
					"default_user_role": "must be a non-admin role",
				})
				return
			}
			shop.Settings.DefaultUserRole = role
		}
		if req.AppointmentDuration != nil {
			shop.Settings.AppointmentDuration = *req.AppointmentDuration
		}
		if req.Currency != nil {
			shop.Settings.Currency = *req.Currency
		}

		if err := db.Model(&models.Shop{}).Where("id = ?", shopID).Update("settings", shop.Settings).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update settings")
			return
		}

		utils.OKResponse(c, shop.Settings)
	}
}
