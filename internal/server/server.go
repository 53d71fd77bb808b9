// Package server hosts the console: the embedded page, the per-session
// websocket, and the operational endpoints.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/metric"
	mid "github.com/CQUPT-CZL/LKG-GEN-sub001/internal/server/middleware"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/util"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/backend"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/logger"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/palette"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init() {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backendURL := util.GetEnv("BACKEND_URL")
	if backendURL == "" {
		logger.Fatal("BACKEND_URL is not set")
	}
	client := backend.New(backend.Params{
		BaseURL: backendURL,
		Timeout: time.Duration(util.GetEnvNumeric("BACKEND_TIMEOUT_SEC", 30)) * time.Second,
	})

	colors := palette.New()
	if file := util.GetEnv("PALETTE_FILE"); file != "" {
		if err := colors.LoadOverrides(file); err != nil {
			logger.Fatal("Failed to load palette overrides", "file", file, "err", err)
		}
	}

	metrics := metric.New()

	e.Use(mid.AppContextMiddleware(&mid.App{
		Backend: client,
		Palette: colors,
		Metrics: metrics,
	}))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Error("Request failed", "method", v.Method, "uri", v.URI, "status", v.Status, "err", v.Error)
				return nil
			}
			logger.Debug("Request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting console", "port", port, "backend", backendURL)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
