package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/server/middleware"
)

func GetMetricsHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)
	handler := echo.WrapHandler(cc.App.Metrics.Handler())
	return handler(c)
}
