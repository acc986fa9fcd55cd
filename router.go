package main

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabricaconecta/parceria-api/config"
	"github.com/fabricaconecta/parceria-api/controllers"
	"github.com/fabricaconecta/parceria-api/middleware"
	"github.com/fabricaconecta/parceria-api/utils"
)

// setupRouter builds the HTTP API. auth guards every route that needs a signed-in user.
func setupRouter(cfg *config.Config, auth gin.HandlerFunc) *gin.Engine {
	switch {
	case cfg.IsProduction():
		gin.SetMode(gin.ReleaseMode)
	case cfg.IsTest():
		gin.SetMode(gin.TestMode)
	case cfg.IsDevelopment():
		gin.SetMode(gin.DebugMode)
	}

	if err := utils.RegisterBindingValidators(); err != nil {
		config.GetLogger().Warn("custom request validators not registered", zap.Error(err))
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(config.GetLogger()))
	router.Use(cors.New(corsConfig(cfg)))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
		v1.GET("/payment-methods", controllers.ListPaymentMethods)
		v1.GET("/addresses/:cep", controllers.LookupAddress)
	}

	protected := v1.Group("")
	protected.Use(auth)
	{
		protected.POST("/users", controllers.CreateUser)
		protected.GET("/users/me", controllers.GetMyProfile)
		protected.PUT("/users/me", controllers.UpdateMyProfile)

		protected.POST("/connections", controllers.SubmitConnection)
		protected.GET("/connections", controllers.ListConnections)
		protected.GET("/connections/:id", controllers.GetConnection)
		protected.POST("/connections/:id/respond", controllers.RespondConnection)
		protected.PUT("/connections/:id/regions", controllers.UpdateAuthorizedRegions)
		protected.PUT("/connections/:id/cities", controllers.UpdateAuthorizedCities)
		protected.PUT("/connections/:id/cities/:state", controllers.SetStateMode)
		protected.GET("/connections/:id/coverage", controllers.CheckCoverage)
		protected.POST("/connections/:id/commissions", controllers.RequestCommission)
		protected.GET("/connections/:id/commissions", controllers.ListCommissions)
		protected.GET("/connections/:id/commissions/current", controllers.GetCurrentCommission)
		protected.POST("/commissions/:id/respond", controllers.RespondCommission)

		protected.POST("/products", controllers.CreateProduct)
		protected.GET("/factories/:id/products", controllers.ListFactoryProducts)

		protected.POST("/orders", controllers.CreateOrder)
		protected.GET("/orders", controllers.ListOrders)
		protected.GET("/orders/summary", controllers.GetOrderSummary)
		protected.GET("/orders/export", controllers.ExportOrders)
		protected.GET("/orders/:id", controllers.GetOrder)
		protected.PUT("/orders/:id", controllers.UpdateOrder)
		protected.DELETE("/orders/:id", controllers.DeleteOrder)
		protected.POST("/orders/:id/items", controllers.AddOrderItem)
		protected.PUT("/orders/:id/items/:itemId", controllers.UpdateOrderItem)
		protected.DELETE("/orders/:id/items/:itemId", controllers.RemoveOrderItem)
		protected.POST("/orders/:id/submit", controllers.SubmitOrder)
		protected.POST("/orders/:id/approve", controllers.ApproveOrder)
		protected.POST("/orders/:id/reject", controllers.RejectOrder)
		protected.POST("/orders/:id/production", controllers.StartProduction)
		protected.POST("/orders/:id/ship", controllers.ShipOrder)
		protected.POST("/orders/:id/deliver", controllers.ConfirmDelivery)
		protected.POST("/orders/:id/cancel", controllers.CancelOrder)
		protected.PUT("/orders/:id/payment", controllers.SelectPayment)
		protected.POST("/orders/:id/payment/proof", controllers.UploadPaymentProof)
		protected.GET("/orders/:id/payment/proof", controllers.GetPaymentProof)
		protected.POST("/orders/:id/payment/confirm", controllers.ConfirmPayment)
		protected.POST("/orders/:id/messages", controllers.PostOrderMessage)
		protected.GET("/orders/:id/messages", controllers.ListOrderMessages)
	}

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return corsCfg
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Parceria API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Database is not initialized",
			},
		})
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
