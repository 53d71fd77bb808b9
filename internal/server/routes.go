package server

import (
	"github.com/labstack/echo/v4"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	e.GET("/", routes.GetIndexHandler)
	e.GET("/ws", routes.GetConsoleSocketHandler)
	e.GET("/metrics", routes.GetMetricsHandler)
}
