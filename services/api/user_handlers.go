package main

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/visioncare/optometry-backend/shared/middleware"
	"github.com/visioncare/optometry-backend/shared/models"
	"github.com/visioncare/optometry-backend/shared/permissions"
	"github.com/visioncare/optometry-backend/shared/utils"
)

// CreateUserRequest represents the create staff account request.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
	ShopID   string `json:"shop_id,omitempty"`
}

// UpdateUserRequest represents the update staff account request.
type UpdateUserRequest struct {
	Name *string `json:"name"`
	Role *string `json:"role"`
}

// scopedUserQuery restricts a query to the caller's shop unless the caller
// is an admin.
func scopedUserQuery(db *gorm.DB, caller *models.User) *gorm.DB {
	if caller.IsAdmin() {
		return db.Model(&models.User{})
	}
	return db.Model(&models.User{}).Where("shop_id = ?", caller.ShopID)
}

// handleGetUsers lists staff accounts visible to the caller, paginated.
func handleGetUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		page, limit := utils.ParsePagination(c)

		var total int64
		if err := scopedUserQuery(db, caller).Count(&total).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to count users")
			return
		}

		var users []models.User
		if err := scopedUserQuery(db, caller).Order("created_at DESC").
			Offset(utils.Offset(page, limit)).Limit(limit).Find(&users).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to fetch users")
			return
		}

		utils.PagedResponse(c, users, total, page, limit)
	}
}

// handleCreateUser creates a staff account within the caller's shop. The
// role falls back to the shop's configured default.
func handleCreateUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		var shopID *uuid.UUID
		if caller.IsAdmin() {
			if req.ShopID != "" {
				parsed, err := uuid.Parse(req.ShopID)
				if err != nil {
					utils.BadRequestResponse(c, "Invalid shop ID")
					return
				}
				shopID = &parsed
			}
		} else {
			// Non-admin creators can only add staff to their own shop.
			shopID = caller.ShopID
		}

		role := models.UserRole(req.Role)
		if req.Role == "" && shopID != nil {
			var shop models.Shop
			if err := db.Where("id = ?", shopID).First(&shop).Error; err == nil {
				role = shop.Settings.DefaultUserRole
			}
		}
		if !role.IsValid() {
			utils.ValidationErrorResponse(c, "Invalid role", map[string]string{
				"role": "must be one of admin, shop_owner, optometrist, assistant, receptionist",
			})
			return
		}
		if role == models.RoleAdmin && !caller.IsAdmin() {
			utils.ForbiddenResponse(c, "Only admins can create admin accounts")
			return
		}
		if role != models.RoleAdmin && shopID == nil {
			utils.ValidationErrorResponse(c, "Shop is required for non-admin accounts", map[string]string{
				"shop_id": "required",
			})
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		var existing models.User
		if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
			utils.ConflictResponse(c, "Email already registered")
			return
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to process credentials")
			return
		}

		user := models.User{
			ID:       uuid.New(),
			Name:     req.Name,
			Email:    email,
			Password: string(hashed),
			Role:     role,
			ShopID:   shopID,
			IsActive: true,
		}

		if err := db.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				utils.ConflictResponse(c, "Email already registered")
				return
			}
			utils.InternalServerErrorResponse(c, "Failed to create user")
			return
		}

		utils.CreatedResponse(c, user)
	}
}

func loadScopedUser(c *gin.Context, db *gorm.DB, gate *permissions.Gate) (*models.User, *models.User, bool) {
	caller, err := middleware.CurrentUser(c)
	if err != nil {
		utils.UnauthorizedResponse(c, "Authentication required")
		return nil, nil, false
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID")
		return nil, nil, false
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		utils.NotFoundResponse(c, "User not found")
		return nil, nil, false
	}

	// Cross-shop lookups read as not found: existence is not leaked.
	if user.ShopID != nil {
		if !gate.AuthorizeShop(caller, *user.ShopID) {
			utils.NotFoundResponse(c, "User not found")
			return nil, nil, false
		}
	} else if !caller.IsAdmin() {
		utils.NotFoundResponse(c, "User not found")
		return nil, nil, false
	}

	return caller, &user, true
}

// handleGetUser returns one staff account within the caller's scope.
func handleGetUser(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, user, ok := loadScopedUser(c, db, gate)
		if !ok {
			return
		}
		utils.OKResponse(c, user)
	}
}

// handleUpdateUser updates name or role of a staff account.
func handleUpdateUser(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, user, ok := loadScopedUser(c, db, gate)
		if !ok {
			return
		}

		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.Role != nil {
			role := models.UserRole(*req.Role)
			if !role.IsValid() {
				utils.ValidationErrorResponse(c, "Invalid role", map[string]string{
					"role": "must be one of admin, shop_owner, optometrist, assistant, receptionist",
				})
				return
			}
			if role == models.RoleAdmin && !caller.IsAdmin() {
				utils.ForbiddenResponse(c, "Only admins can grant the admin role")
				return
			}
			user.Role = role
		}

		if err := db.Save(user).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update user")
			return
		}

		utils.OKResponse(c, user)
	}
}

// handleDeleteUser soft-deletes a staff account and revokes its sessions.
func handleDeleteUser(db *gorm.DB, gate *permissions.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, user, ok := loadScopedUser(c, db, gate)
		if !ok {
			return
		}

		if caller.ID == user.ID {
			utils.BadRequestResponse(c, "Cannot delete your own account")
			return
		}

		if err := db.Delete(user).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to delete user")
			return
		}

		_ = utils.RevokeAllUserSessions(user.ID)

		utils.OKResponse(c, gin.H{"message": "User deleted"})
	}
}

// handleSetUserActive flips an account's active flag.
func handleSetUserActive(db *gorm.DB, gate *permissions.Gate, audit *AuditProducer, active bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, user, ok := loadScopedUser(c, db, gate)
		if !ok {
			return
		}

		if caller.ID == user.ID && !active {
			utils.BadRequestResponse(c, "Cannot deactivate your own account")
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", active).Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to update user")
			return
		}

		if !active {
			_ = utils.RevokeAllUserSessions(user.ID)
			audit.Publish(caller.ID, user.ShopID, AuditUserDeactivated, map[string]interface{}{
				"target_user_id": user.ID.String(),
			})
		}

		user.IsActive = active
		utils.OKResponse(c, user)
	}
}
