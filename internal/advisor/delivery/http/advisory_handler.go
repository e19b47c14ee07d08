package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"golang-stock-advisor/internal/advisor/dto"
	"golang-stock-advisor/internal/advisor/service"
	"golang-stock-advisor/pkg/logger"
	"golang-stock-advisor/pkg/utils"

	"github.com/labstack/echo/v4"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// AdvisoryHandler handles HTTP requests for advisory runs.
type AdvisoryHandler struct {
	advisoryService service.AdvisoryService
	logger          *logger.Logger
	runCtx          context.Context
}

// NewAdvisoryHandler creates a new AdvisoryHandler. Runs triggered over HTTP
// are bound to runCtx rather than the request, so they survive the client
// disconnecting.
func NewAdvisoryHandler(runCtx context.Context, advisoryService service.AdvisoryService, logger *logger.Logger) *AdvisoryHandler {
	return &AdvisoryHandler{advisoryService: advisoryService, logger: logger, runCtx: runCtx}
}

// RegisterRoutes registers the advisory routes to the Echo group.
func (h *AdvisoryHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/runs", h.TriggerRun)
	g.GET("/runs", h.GetRunHistory)
	g.GET("/runs/status", h.GetRunStatus)
	g.GET("/advisories/latest", h.GetLatestAdvisory)
	g.GET("/holdings", h.GetHoldings)
}

// TriggerRun godoc
// @Summary Trigger an advisory run
// @Description Runs the pipeline now. With async=true the run starts in the background and 202 is returned.
// @Tags runs
// @Produce  json
// @Param   async  query    bool false  "Run in background"
// @Success 200 {object} dto.PortfolioAdvisory
// @Success 202 {object} dto.RunStatusResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runs [post]
func (h *AdvisoryHandler) TriggerRun(c echo.Context) error {
	if c.QueryParam("async") == "true" {
		if h.advisoryService.Running() {
			return c.JSON(http.StatusConflict, echo.Map{"error": dto.ErrRunSkipped.Error()})
		}
		utils.GoSafe(func() {
			if _, err := h.advisoryService.Run(h.runCtx); err != nil && !errors.Is(err, dto.ErrRunSkipped) {
				h.logger.Error("Background advisory run failed", logger.ErrorField(err))
			}
		})
		return c.JSON(http.StatusAccepted, dto.RunStatusResponse{Running: true})
	}

	advisory, err := h.advisoryService.Run(h.runCtx)
	if err != nil {
		if errors.Is(err, dto.ErrRunSkipped) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to run advisory", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, advisory)
}

// GetRunStatus godoc
// @Summary Get run status
// @Description Reports whether a run is in progress
// @Tags runs
// @Produce  json
// @Success 200 {object} dto.RunStatusResponse
// @Router /runs/status [get]
func (h *AdvisoryHandler) GetRunStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, dto.RunStatusResponse{Running: h.advisoryService.Running()})
}

// GetLatestAdvisory godoc
// @Summary Get the latest advisory
// @Description Get the most recently published portfolio advisory
// @Tags advisories
// @Produce  json
// @Success 200 {object} dto.PortfolioAdvisory
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /advisories/latest [get]
func (h *AdvisoryHandler) GetLatestAdvisory(c echo.Context) error {
	advisory, err := h.advisoryService.Latest(c.Request().Context())
	if err != nil {
		if errors.Is(err, dto.ErrNoAdvisory) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to get latest advisory", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get latest advisory"})
	}
	return c.JSON(http.StatusOK, advisory)
}

// GetRunHistory godoc
// @Summary List past runs
// @Description List persisted advisory runs, newest first
// @Tags runs
// @Produce  json
// @Param   limit  query    int false  "Maximum number of runs (default 10, max 100)"
// @Success 200 {array} entity.AdvisoryRun
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runs [get]
func (h *AdvisoryHandler) GetRunHistory(c echo.Context) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid limit"})
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := h.advisoryService.History(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get run history", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get run history"})
	}
	if runs == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, runs)
}

// GetHoldings godoc
// @Summary Get holdings
// @Description Get the positions the advisor runs against
// @Tags holdings
// @Produce  json
// @Success 200 {object} dto.Holdings
// @Failure 500 {object} dto.ErrorResponse
// @Router /holdings [get]
func (h *AdvisoryHandler) GetHoldings(c echo.Context) error {
	holdings, err := h.advisoryService.Holdings(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get holdings", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, holdings)
}
