package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/fly8app/fly8_backend/controllers"
	"github.com/fly8app/fly8_backend/middleware"
	"github.com/fly8app/fly8_backend/repositories"
	"github.com/fly8app/fly8_backend/services"
)

// RegisterAgentRoutes sets up the agent-facing wallet, commission and payout routes
func RegisterAgentRoutes(e *echo.Echo, store repositories.Store, payoutService *services.PayoutService) {
	agentController := controllers.NewAgentController(store, payoutService)

	agent := e.Group("/api/agent")
	agent.Use(middleware.JWTMiddleware())
	agent.Use(middleware.RequireUserType("agent"))

	agent.GET("/wallet", agentController.GetWallet)
	agent.GET("/commissions", agentController.GetMyCommissions)
	agent.GET("/payouts", agentController.GetMyPayouts)
	agent.POST("/payouts", agentController.RequestPayout)
}
