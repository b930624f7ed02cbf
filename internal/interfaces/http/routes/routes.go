// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/retail-pos-backend/internal/config"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/handlers"
	"github.com/your-org/retail-pos-backend/internal/interfaces/http/middleware"
)

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h *handlers.AuthHandler, cfg *config.Config) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.RefreshToken)

		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", h.GetProfile)
		}
	}
}

// SetupInventoryRoutes sets up stock record, ledger and transfer routes.
// Absolute adjustments and record deletion are manager operations.
func SetupInventoryRoutes(rg *gin.RouterGroup, h *handlers.InventoryHandler, cfg *config.Config) {
	inv := rg.Group("/inventory")
	inv.Use(middleware.AuthMiddleware(cfg))
	{
		inv.POST("/stock", h.CreateStockRecord)
		inv.GET("/stock/:id", h.GetStockRecord)
		inv.GET("/stock/:id/history", h.GetHistory)
		inv.GET("/branches/:branchId/stock", h.ListByBranch)
		inv.GET("/branches/:branchId/low-stock", h.ListLowStock)
		inv.GET("/products/:productId/stock", h.ListByProduct)

		inv.POST("/reserve", h.Reserve)
		inv.POST("/release", h.Release)
		inv.POST("/deduct", h.Deduct)
		inv.POST("/restore", h.Restore)

		inv.POST("/transfers", h.Transfer)
		inv.POST("/transfers/bulk", h.BulkTransfer)

		managers := inv.Group("")
		managers.Use(middleware.ManagerMiddleware())
		{
			managers.POST("/adjust", h.SetQuantity)
			managers.DELETE("/stock/:id", h.DeleteStockRecord)
		}
	}
}

// SetupSalesRoutes sets up sale, return, exchange and receipt routes
func SetupSalesRoutes(rg *gin.RouterGroup, h *handlers.SalesHandler, cfg *config.Config) {
	sales := rg.Group("/sales")
	sales.Use(middleware.AuthMiddleware(cfg))
	{
		sales.POST("", h.ProcessSale)
		sales.POST("/returns", h.ProcessReturn)
		sales.POST("/exchanges", h.ProcessExchange)

		sales.GET("", h.ListTransactions)
		sales.GET("/:id", h.GetTransaction)
		sales.GET("/:id/receipt", h.GetReceipt)
		sales.GET("/number/:number", h.GetTransactionByNumber)
		sales.POST("/:id/cancel", h.CancelTransaction)
	}
}

// SetupLoyaltyRoutes sets up loyalty account and customer routes.
// Manual point credits are manager operations.
func SetupLoyaltyRoutes(rg *gin.RouterGroup, h *handlers.LoyaltyHandler, cfg *config.Config) {
	loyalty := rg.Group("/loyalty")
	loyalty.Use(middleware.AuthMiddleware(cfg))
	{
		loyalty.POST("/enroll", h.Enroll)
		loyalty.GET("/accounts/:id", h.GetAccount)
		loyalty.GET("/accounts/:id/history", h.GetHistory)
		loyalty.GET("/customers/:customerId/account", h.GetAccountByCustomer)
		loyalty.POST("/redeem", h.RedeemPoints)

		managers := loyalty.Group("")
		managers.Use(middleware.ManagerMiddleware())
		{
			managers.POST("/earn", h.EarnPoints)
		}
	}

	customers := rg.Group("/customers")
	customers.Use(middleware.AuthMiddleware(cfg))
	{
		customers.POST("", h.CreateCustomer)
		customers.GET("", h.GetCustomer)
		customers.GET("/:id", h.GetCustomer)
	}
}
