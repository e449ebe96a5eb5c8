// Package server exposes the intelligence engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stebou/marketintel/config"
	"github.com/stebou/marketintel/internal/intel/core"
	"github.com/stebou/marketintel/internal/intel/telemetry"
	"github.com/stebou/marketintel/internal/store"
)

// Run wires the engine, optional history store, and HTTP routes, then blocks
// serving on the configured address.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	tele := telemetry.NewTelemetry(cfg.Telemetry, nil)
	engine, err := core.NewEngine(cfg, tele)
	if err != nil {
		return err
	}

	// History store is optional; the engine runs without persistence when
	// Redis is not configured.
	var history *store.Store
	if cfg.Storage.Redis.Host != "" {
		history, err = store.New(context.Background(), cfg.Storage.Redis)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		defer history.Close()
	}

	h := &handler{engine: engine, history: history, tele: tele, logger: baseLogger}
	api := e.Group("/api/v1")
	api.POST("/analysis", h.runAnalysis)
	api.GET("/analysis", h.listAnalyses)
	api.GET("/analysis/:id", h.getAnalysis)
	api.GET("/costs", h.getCosts)

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":10020"
	}
	baseLogger.Printf("listening on %s", addr)
	return e.Start(addr)
}

type handler struct {
	engine  *core.Engine
	history *store.Store
	tele    *telemetry.Telemetry
	logger  *log.Logger
}

func (h *handler) runAnalysis(c echo.Context) error {
	var req core.AnalysisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.engine.Analyze(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidProfile) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if errors.Is(err, context.Canceled) {
			return echo.NewHTTPError(http.StatusRequestTimeout, "analysis cancelled")
		}
		return err
	}

	if h.history != nil {
		if err := h.history.SaveRun(c.Request().Context(), result); err != nil {
			// persistence is best effort, the caller still gets the payload
			h.logger.Printf("save run %s: %v", result.RunID, err)
		}
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) getAnalysis(c echo.Context) error {
	if h.history == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "history store not configured")
	}
	result, err := h.history.GetRun(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "run not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handler) listAnalyses(c echo.Context) error {
	if h.history == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "history store not configured")
	}
	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 200 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be in [1,200]")
		}
		limit = parsed
	}
	results, err := h.history.ListRuns(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": results})
}

func (h *handler) getCosts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.tele.GetCostSummary())
}
