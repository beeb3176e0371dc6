package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/fly8app/fly8_backend/controllers"
	"github.com/fly8app/fly8_backend/middleware"
	"github.com/fly8app/fly8_backend/repositories"
)

// RegisterNotificationRoutes sets up the notification feed routes
func RegisterNotificationRoutes(e *echo.Echo, store repositories.Store) {
	notificationController := controllers.NewNotificationController(store)

	notifications := e.Group("/api/notifications")
	notifications.Use(middleware.JWTMiddleware())
	notifications.Use(middleware.RequireUserType("agent", "super_admin"))

	notifications.GET("", notificationController.GetNotifications)
	notifications.PUT("/:id/read", notificationController.MarkNotificationRead)
}
