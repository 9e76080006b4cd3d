package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/visioncare/optometry-backend/shared/models"
	"github.com/visioncare/optometry-backend/shared/permissions"
	"github.com/visioncare/optometry-backend/shared/utils"
)

const contextUserKey = "current_user"

// AuthMiddleware resolves bearer tokens to accounts and enforces the
// permission gate per route.
type AuthMiddleware struct {
	db     *gorm.DB
	tokens *utils.TokenService
	gate   *permissions.Gate
}

// NewAuthMiddleware creates the authentication middleware.
func NewAuthMiddleware(db *gorm.DB, tokens *utils.TokenService, gate *permissions.Gate) *AuthMiddleware {
	return &AuthMiddleware{db: db, tokens: tokens, gate: gate}
}

// RequireAuth validates the access token, loads the account and attaches it
// to the request context. Deactivated accounts are rejected.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			utils.UnauthorizedResponse(c, "Authorization token required")
			c.Abort()
			return
		}

		userID, err := am.tokens.VerifyAccessToken(tokenString)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		var user models.User
		if err := am.db.Where("id = ?", userID).First(&user).Error; err != nil {
			utils.UnauthorizedResponse(c, "Account not found")
			c.Abort()
			return
		}

		if !user.IsActive {
			utils.UnauthorizedResponse(c, "Account is deactivated")
			c.Abort()
			return
		}

		c.Set(contextUserKey, &user)
		c.Set("access_token", tokenString)
		c.Next()
	}
}

// RequirePermission enforces a (module, action) capability through the gate.
func (am *AuthMiddleware) RequirePermission(module, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			c.Abort()
			return
		}

		allowed, err := am.gate.Authorize(user, module, action)
		if err != nil {
			utils.InternalServerErrorResponse(c, "Failed to resolve permissions")
			c.Abort()
			return
		}
		if !allowed {
			utils.ForbiddenResponse(c, fmt.Sprintf("Not authorized to %s %s", action, module))
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin restricts a route to platform admins.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := CurrentUser(c)
		if err != nil {
			utils.UnauthorizedResponse(c, "Authentication required")
			c.Abort()
			return
		}
		if !user.IsAdmin() {
			utils.ForbiddenResponse(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser extracts the authenticated account from the request context.
func CurrentUser(c *gin.Context) (*models.User, error) {
	value, exists := c.Get(contextUserKey)
	if !exists {
		return nil, errors.New("no authenticated user in context")
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil, errors.New("invalid user in context")
	}
	return user, nil
}

// extractToken extracts the JWT token from the Authorization header.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return authHeader
}
