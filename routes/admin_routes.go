package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/fly8app/fly8_backend/controllers"
	"github.com/fly8app/fly8_backend/middleware"
	"github.com/fly8app/fly8_backend/repositories"
	"github.com/fly8app/fly8_backend/services"
)

// RegisterAdminRoutes sets up the super-admin commission and payout routes
func RegisterAdminRoutes(e *echo.Echo, commissionService *services.CommissionService, payoutService *services.PayoutService, store repositories.Store) {
	commissionController := controllers.NewCommissionController(commissionService)
	payoutController := controllers.NewPayoutController(payoutService)
	settingsController := controllers.NewSettingsController(store)

	admin := e.Group("/api/admin")
	admin.Use(middleware.JWTMiddleware())
	admin.Use(middleware.RequireUserType("super_admin"))

	// Commission ledger
	admin.GET("/commissions", commissionController.GetCommissions)
	admin.POST("/commissions", commissionController.CreateManualCommission)
	admin.POST("/commissions/bulk-approve", commissionController.BulkApproveCommissions)
	admin.PUT("/commissions/:id/approve", commissionController.ApproveCommission)
	admin.PUT("/commissions/:id/reject", commissionController.RejectCommission)
	admin.POST("/commissions/:id/payout", commissionController.MarkCommissionPaid)

	// Payout ledger
	admin.GET("/payouts", payoutController.GetPayouts)
	admin.GET("/payouts/:id", payoutController.GetPayout)
	admin.POST("/payouts/:id/process", payoutController.ProcessPayout)
	admin.POST("/payouts/:id/reject", payoutController.RejectPayout)

	// Platform settings
	admin.GET("/commission-settings", settingsController.GetCommissionSettings)
	admin.PUT("/commission-settings", settingsController.UpdateCommissionSettings)
}
