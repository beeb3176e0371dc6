package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/fly8app/fly8_backend/middleware"
	"github.com/fly8app/fly8_backend/utils"
	"github.com/fly8app/fly8_backend/websocket"
)

// RegisterWebSocketRoutes sets up the realtime notification socket
func RegisterWebSocketRoutes(e *echo.Echo, hub *websocket.Hub) {
	ws := e.Group("/api/ws")
	ws.Use(middleware.JWTMiddleware())

	ws.GET("", func(c echo.Context) error {
		userID, err := utils.GetUserIDFromToken(c)
		if err != nil {
			return err
		}
		return websocket.HandleWebSocket(c, hub, userID)
	})
}
