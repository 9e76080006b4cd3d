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

// handleMyPermissions returns the caller's effective permission view.
func handleMyPermissions(registry *permissions.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		resolved, err := permissions.Resolve(user, registry)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to resolve permissions")
			return
		}

		utils.OKResponse(c, resolved)
	}
}

// handleCheckPermission answers a single (module, action) question for the
// caller.
func handleCheckPermission(gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		module := c.Query("module")
		action := c.Query("action")
		if module == "" || action == "" {
			utils.ValidationErrorResponse(c, "Missing query parameters", map[string]string{
				"module": "required",
				"action": "required",
			})
			return
		}

		allowed, err := gate.Authorize(user, module, action)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to resolve permissions")
			return
		}

		utils.OKResponse(c, gin.H{"module": module, "action": action, "allowed": allowed})
	}
}

// handleCheckPageAccess answers a single page question for the caller.
func handleCheckPageAccess(gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		page := c.Query("page")
		if page == "" {
			utils.ValidationErrorResponse(c, "Missing query parameters", map[string]string{
				"page": "required",
			})
			return
		}

		allowed, err := gate.AuthorizePage(user, page)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to resolve permissions")
			return
		}

		utils.OKResponse(c, gin.H{"page": page, "allowed": allowed})
	}
}

// handleListShopPermissions lists the active permission records of a shop.
func handleListShopPermissions(registry *permissions.Registry, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		shopID, err := uuid.Parse(c.Param("shopId"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid shop ID")
			return
		}

		if !gate.AuthorizeShop(user, shopID) {
			utils.ForbiddenResponse(c, "Access denied to this shop")
			return
		}

		records, err := registry.ListActive(shopID)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch permission records")
			return
		}

		utils.OKResponse(c, records)
	}
}

// RolePermissionsRequest is the full-replacement payload for a role's record.
type RolePermissionsRequest struct {
	Permissions models.CapabilityMap `json:"permissions" binding:"required"`
	PageAccess  models.StringList    `json:"pageAccess"`
}

func shopAndRoleParams(c *gin.Context) (uuid.UUID, models.UserRole, bool) {
	shopID, err := uuid.Parse(c.Param("shopId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid shop ID")
		return uuid.Nil, "", false
	}
	role := models.UserRole(c.Param("role"))
	if !role.IsValid() {
		utils.ValidationErrorResponse(c, "Invalid role", map[string]string{
			"role": "must be one of admin, shop_owner, optometrist, assistant, receptionist",
		})
		return uuid.Nil, "", false
	}
	return shopID, role, true
}

func requireShopManagement(c *gin.Context, gate *permissions.Gate, shopID uuid.UUID) (*models.User, bool) {
	user, err := middleware.CurrentUser(c)
	if err != nil {
		utils.UnauthorizedResponse(c, "Authentication required")
		return nil, false
	}
	if !gate.AuthorizeShopManagement(user, shopID) {
		utils.ForbiddenResponse(c, "Shop owners can only manage their own shop")
		return nil, false
	}
	return user, true
}

// handleUpdateRolePermissions replaces a role's record wholesale and clears
// the matching account-level overrides.
func handleUpdateRolePermissions(registry *permissions.Registry, gate *permissions.Gate, audit *AuditProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, role, ok := shopAndRoleParams(c)
		if !ok {
			return
		}

		user, ok := requireShopManagement(c, gate, shopID)
		if !ok {
			return
		}

		var req RolePermissionsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		record, err := registry.Update(shopID, role, req.Permissions, req.PageAccess, &user.ID)
		if err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		audit.Publish(user.ID, &shopID, AuditPermissionUpdate, map[string]interface{}{"role": string(role)})

		utils.OKResponse(c, record)
	}
}

// handleResetRolePermissions restores a role's record to the static defaults.
func handleResetRolePermissions(registry *permissions.Registry, gate *permissions.Gate, audit *AuditProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		shopID, role, ok := shopAndRoleParams(c)
		if !ok {
			return
		}

		user, ok := requireShopManagement(c, gate, shopID)
		if !ok {
			return
		}

		record, err := registry.Reset(shopID, role, &user.ID)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to reset permissions")
			return
		}

		audit.Publish(user.ID, &shopID, AuditPermissionReset, map[string]interface{}{"role": string(role)})

		utils.OKResponse(c, record)
	}
}

// handleInitializePermissions re-seeds all five roles from the static table.
// Admin only (enforced by route middleware).
func handleInitializePermissions(db *gorm.DB, registry *permissions.Registry, audit *AuditProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		shopID, err := uuid.Parse(c.Param("shopId"))
		if err != nil {
			utils.BadRequestResponse(c, "Invalid shop ID")
			return
		}

		var shop models.Shop
		if err := db.Where("id = ?", shopID).First(&shop).Error; err != nil {
			utils.NotFoundResponse(c, "Shop not found")
			return
		}

		if err := registry.Initialize(shopID, &user.ID); err != nil {
			utils.InternalServerErrorResponse(c, "Failed to initialize permissions")
			return
		}

		audit.Publish(user.ID, &shopID, AuditPermissionInit, nil)

		records, err := registry.ListActive(shopID)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch permission records")
			return
		}

		utils.OKResponse(c, records)
	}
}

// UserOverridesRequest is the per-account override payload.
type UserOverridesRequest struct {
	Permissions     models.OverrideMap `json:"permissions"`
	AccessiblePages models.StringList  `json:"accessible_pages"`
}

func loadManagedUser(c *gin.Context, db *gorm.DB, gate *permissions.Gate) (*models.User, *models.User, bool) {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		utils.UnauthorizedResponse(c, "Authentication required")
		return nil, nil, false
	}

	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID")
		return nil, nil, false
	}

	var target models.User
	if err := db.Where("id = ?", userID).First(&target).Error; err != nil {
		utils.NotFoundResponse(c, "User not found")
		return nil, nil, false
	}

	// Shop owners manage only their own shop's staff; accounts outside any
	// shop are admin territory.
	if target.ShopID == nil {
		if !caller.IsAdmin() {
			utils.NotFoundResponse(c, "User not found")
			return nil, nil, false
		}
	} else if !gate.AuthorizeShopManagement(caller, *target.ShopID) {
		utils.NotFoundResponse(c, "User not found")
		return nil, nil, false
	}

	return caller, &target, true
}

// handleGetUserOverrides returns an account's stored override set.
func handleGetUserOverrides(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, target, ok := loadManagedUser(c, db, gate)
		if !ok {
			return
		}

		utils.OKResponse(c, gin.H{
			"user_id":          target.ID,
			"role":             target.Role,
			"permissions":      target.Permissions,
			"accessible_pages": target.AccessiblePages,
		})
	}
}

// handleSetUserOverrides replaces an account's override set.
func handleSetUserOverrides(db *gorm.DB, gate *permissions.Gate, audit *AuditProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, target, ok := loadManagedUser(c, db, gate)
		if !ok {
			return
		}

		var req UserOverridesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if err := permissions.ValidateOverrideMap(req.Permissions); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}
		if err := permissions.ValidatePages(req.AccessiblePages); err != nil {
			utils.BadRequestResponse(c, err.Error())
			return
		}

		if req.Permissions == nil {
			req.Permissions = models.OverrideMap{}
		}
		if req.AccessiblePages == nil {
			req.AccessiblePages = models.StringList{}
		}

		err := db.Model(&models.User{}).Where("id = ?", target.ID).Updates(map[string]interface{}{
			"permissions":      req.Permissions,
			"accessible_pages": req.AccessiblePages,
		}).Error
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update overrides")
			return
		}

		audit.Publish(caller.ID, target.ShopID, AuditOverrideSet, map[string]interface{}{
			"target_user_id": target.ID.String(),
		})

		utils.OKResponse(c, gin.H{
			"user_id":          target.ID,
			"permissions":      req.Permissions,
			"accessible_pages": req.AccessiblePages,
		})
	}
}
