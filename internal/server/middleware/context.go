package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/metric"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/backend"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/palette"
)

// App holds the process-wide dependencies shared by every console session.
type App struct {
	Backend *backend.Client
	Palette *palette.Palette
	Metrics *metric.Metrics
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
