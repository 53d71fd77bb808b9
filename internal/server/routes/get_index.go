package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/web"
)

func GetIndexHandler(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, web.Index())
}
