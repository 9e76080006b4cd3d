package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/visioncare/optometry-backend/shared/config"
	"github.com/visioncare/optometry-backend/shared/middleware"
	"github.com/visioncare/optometry-backend/shared/permissions"
	"github.com/visioncare/optometry-backend/shared/utils"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	// Initialize Redis for session bookkeeping
	if err := utils.InitRedis(); err != nil {
		logrus.Warnf("Failed to connect to Redis, session bookkeeping disabled: %v", err)
	}
	defer utils.CloseRedis()

	// Initialize database
	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize token service (two independent signing secrets)
	tokens, err := utils.NewTokenServiceFromEnv()
	if err != nil {
		log.Fatal("Failed to initialize token service:", err)
	}

	// Permission registry and gate
	registry := permissions.NewRegistry(db)
	gate := permissions.NewGate(registry)

	// Audit producer (optional)
	var audit *AuditProducer
	if broker := os.Getenv("KAFKA_BROKER"); broker != "" {
		topic := os.Getenv("KAFKA_AUDIT_TOPIC")
		if topic == "" {
			topic = "audit-events"
		}
		audit = NewAuditProducer(broker, topic)
		defer audit.Shutdown()
	} else {
		logrus.Warn("KAFKA_BROKER not set, audit events disabled")
	}

	// Authentication middleware
	authMiddleware := middleware.NewAuthMiddleware(db, tokens, gate)

	// Initialize Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		utils.OKResponse(c, gin.H{"status": "healthy"})
	})

	api := router.Group("/api")

	// Authentication routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", handleRegister(db, tokens))
		auth.POST("/login", handleLogin(db, tokens, audit))
		auth.POST("/refresh", handleRefreshToken(db, tokens))
		auth.POST("/logout", authMiddleware.RequireAuth(), handleLogout(db))
		auth.GET("/me", authMiddleware.RequireAuth(), handleMe())
		auth.GET("/sessions", authMiddleware.RequireAuth(), handleGetSessions())
	}

	// Permission routes
	perms := api.Group("/permissions")
	perms.Use(authMiddleware.RequireAuth())
	{
		perms.GET("/my-permissions", handleMyPermissions(registry))
		perms.GET("/check-permission", handleCheckPermission(gate))
		perms.GET("/check-page-access", handleCheckPageAccess(gate))

		perms.GET("/shop/:shopId", handleListShopPermissions(registry, gate))
		perms.PUT("/shop/:shopId/role/:role", handleUpdateRolePermissions(registry, gate, audit))
		perms.POST("/shop/:shopId/role/:role/reset", handleResetRolePermissions(registry, gate, audit))
		perms.POST("/shop/:shopId/initialize", authMiddleware.RequireAdmin(), handleInitializePermissions(db, registry, audit))

		perms.GET("/user/:userId", handleGetUserOverrides(db, gate))
		perms.POST("/user/:userId", handleSetUserOverrides(db, gate, audit))
	}

	// Shop routes
	shops := api.Group("/shops")
	shops.Use(authMiddleware.RequireAuth())
	{
		shops.POST("/", authMiddleware.RequireAdmin(), handleCreateShop(db, registry, audit))
		shops.GET("/", authMiddleware.RequireAdmin(), handleGetShops(db))
		shops.GET("/:id", handleGetShop(db, gate))
		shops.PUT("/:id", handleUpdateShop(db, gate))
		shops.DELETE("/:id", authMiddleware.RequireAdmin(), handleDeleteShop(db, registry, audit))
		shops.GET("/:id/settings", handleGetShopSettings(db, gate))
		shops.PUT("/:id/settings", handleUpdateShopSettings(db, gate))
	}

	// Staff account routes
	users := api.Group("/users")
	users.Use(authMiddleware.RequireAuth())
	{
		users.GET("/", authMiddleware.RequirePermission(permissions.ModuleUsers, permissions.ActionView), handleGetUsers(db))
		users.POST("/", authMiddleware.RequirePermission(permissions.ModuleUsers, permissions.ActionCreate), handleCreateUser(db))
		users.GET("/:id", authMiddleware.RequirePermission(permissions.ModuleUsers, permissions.ActionView), handleGetUser(db, gate))
		users.PUT("/:id", authMiddleware.RequirePermission(permissions.ModuleUsers, permissions.ActionEdit), handleUpdateUser(db, gate))
		users.DELETE("/:id", authMiddleware.RequirePermission(permissions.ModuleUsers, permissions.ActionDelete), handleDeleteUser(db, gate))
		users.POST("/:id/activate", authMiddleware.RequirePermission(permissions.ModuleUsers, permissions.ActionManage), handleSetUserActive(db, gate, audit, true))
		users.POST("/:id/deactivate", authMiddleware.RequirePermission(permissions.ModuleUsers, permissions.ActionManage), handleSetUserActive(db, gate, audit, false))
	}

	// Patient routes
	customers := api.Group("/customers")
	customers.Use(authMiddleware.RequireAuth())
	{
		customers.GET("/", authMiddleware.RequirePermission(permissions.ModuleCustomers, permissions.ActionView), handleGetCustomers(db))
		customers.POST("/", authMiddleware.RequirePermission(permissions.ModuleCustomers, permissions.ActionCreate), handleCreateCustomer(db))
		customers.GET("/:id", authMiddleware.RequirePermission(permissions.ModuleCustomers, permissions.ActionView), handleGetCustomer(db, gate))
		customers.PUT("/:id", authMiddleware.RequirePermission(permissions.ModuleCustomers, permissions.ActionEdit), handleUpdateCustomer(db, gate))
		customers.DELETE("/:id", authMiddleware.RequirePermission(permissions.ModuleCustomers, permissions.ActionDelete), handleDeleteCustomer(db, gate))
		customers.GET("/:id/records", authMiddleware.RequirePermission(permissions.ModuleRecords, permissions.ActionView), handleGetCustomerRecords(db, gate))
	}

	// Exam record routes
	records := api.Group("/records")
	records.Use(authMiddleware.RequireAuth())
	{
		records.GET("/", authMiddleware.RequirePermission(permissions.ModuleRecords, permissions.ActionView), handleGetRecords(db))
		records.POST("/", authMiddleware.RequirePermission(permissions.ModuleRecords, permissions.ActionCreate), handleCreateRecord(db, gate))
		records.GET("/:id", authMiddleware.RequirePermission(permissions.ModuleRecords, permissions.ActionView), handleGetRecord(db, gate))
		records.PUT("/:id", authMiddleware.RequirePermission(permissions.ModuleRecords, permissions.ActionEdit), handleUpdateRecord(db, gate))
		records.DELETE("/:id", authMiddleware.RequirePermission(permissions.ModuleRecords, permissions.ActionDelete), handleDeleteRecord(db, gate))
	}

	// Start server
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	logrus.Infof("API server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start API server:", err)
	}
}
