package main

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/visioncare/optometry-backend/shared/middleware"
	"github.com/visioncare/optometry-backend/shared/models"
	"github.com/visioncare/optometry-backend/shared/utils"
)

// RegisterRequest represents the registration request.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required"`
	ShopID   string `json:"shop_id,omitempty"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenPairResponse carries a freshly issued token pair.
type TokenPairResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	TokenType    string       `json:"token_type"`
	User         *models.User `json:"user,omitempty"`
}

func issueTokenPair(db *gorm.DB, tokens *utils.TokenService, user *models.User) (*TokenPairResponse, error) {
	accessToken, err := tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	// A single active refresh token per account: issuing a new one
	// invalidates the previous by overwrite.
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("refresh_token", refreshToken).Error; err != nil {
		return nil, err
	}

	return &TokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(utils.AccessTokenTTL.Seconds()),
		TokenType:    "Bearer",
		User:         user,
	}, nil
}

// handleRegister creates a staff account with a bcrypt-hashed credential and
// issues an initial token pair.
func handleRegister(db *gorm.DB, tokens *utils.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		role := models.UserRole(req.Role)
		if !role.IsValid() {
			utils.ValidationErrorResponse(c, "Invalid role", map[string]string{
				"role": "must be one of admin, shop_owner, optometrist, assistant, receptionist",
			})
			return
		}

		var shopID *uuid.UUID
		if role != models.RoleAdmin {
			if req.ShopID == "" {
				utils.ValidationErrorResponse(c, "Shop is required for non-admin accounts", map[string]string{
					"shop_id": "required",
				})
				return
			}
			parsed, err := uuid.Parse(req.ShopID)
			if err != nil {
				utils.BadRequestResponse(c, "Invalid shop ID")
				return
			}
			var shop models.Shop
			if err := db.Where("id = ?", parsed).First(&shop).Error; err != nil {
				utils.NotFoundResponse(c, "Shop not found")
				return
			}
			shopID = &parsed
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
			// The read-then-create check races; the unique index is the
			// authoritative duplicate detector.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				utils.ConflictResponse(c, "Email already registered")
				return
			}
			utils.InternalServerErrorResponse(c, "Failed to create account")
			return
		}

		pair, err := issueTokenPair(db, tokens, &user)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to issue tokens")
			return
		}

		utils.CreatedResponse(c, pair)
	}
}

// handleLogin verifies credentials, issues a token pair and records the
// session.
func handleLogin(db *gorm.DB, tokens *utils.TokenService, audit *AuditProducer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		var user models.User
		if err := db.Where("email = ?", email).First(&user).Error; err != nil {
			utils.UnauthorizedResponse(c, "Invalid credentials")
			return
		}

		if !user.IsActive {
			utils.UnauthorizedResponse(c, "Account is deactivated")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			utils.UnauthorizedResponse(c, "Invalid credentials")
			return
		}

		pair, err := issueTokenPair(db, tokens, &user)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to issue tokens")
			return
		}

		now := time.Now()
		db.Model(&models.User{}).Where("id = ?", user.ID).Update("last_login_at", now)

		// Session bookkeeping is best-effort.
		_, _ = utils.CreateAccountSession(pair.AccessToken, user.ID, user.Email, string(user.Role), utils.AccessTokenTTL)

		audit.Publish(user.ID, user.ShopID, AuditLogin, nil)

		utils.OKResponse(c, pair)
	}
}

// handleRefreshToken exchanges a valid, matching stored refresh token for a
// new pair (rotation).
func handleRefreshToken(db *gorm.DB, tokens *utils.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		userID, err := tokens.VerifyRefreshToken(req.RefreshToken)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid refresh token")
			return
		}

		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			utils.UnauthorizedResponse(c, "Invalid refresh token")
			return
		}

		if !user.IsActive {
			utils.UnauthorizedResponse(c, "Account is deactivated")
			return
		}

		// The token must match the single stored value; anything older was
		// invalidated by rotation.
		if user.RefreshToken == "" || user.RefreshToken != req.RefreshToken {
			utils.UnauthorizedResponse(c, "Invalid refresh token")
			return
		}

		pair, err := issueTokenPair(db, tokens, &user)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to issue tokens")
			return
		}
		pair.User = nil

		utils.OKResponse(c, pair)
	}
}

// handleLogout clears the stored refresh token and revokes the session.
func handleLogout(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("refresh_token", "").Error; err != nil {
			utils.InternalServerErrorResponse(c, "Failed to log out")
			return
		}

		if token, exists := c.Get("access_token"); exists {
			_ = utils.RevokeAccountSession(token.(string))
		}

		utils.OKResponse(c, gin.H{"message": "Logged out successfully"})
	}
}

// handleMe returns the caller's profile.
func handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := middleware.CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}
		utils.OKResponse(c, user)
	}
}

// handleGetSessions returns the caller's current session metadata.
func handleGetSessions() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, exists := c.Get("access_token")
		if !exists {
			utils.UnauthorizedResponse(c, "Authentication required")
			return
		}

		session, err := utils.GetAccountSession(token.(string))
		if err != nil {
			utils.OKResponse(c, gin.H{"active_sessions": []interface{}{}, "total_sessions": 0})
			return
		}

		utils.OKResponse(c, gin.H{
			"active_sessions": []interface{}{session},
			"total_sessions":  1,
		})
	}
}
