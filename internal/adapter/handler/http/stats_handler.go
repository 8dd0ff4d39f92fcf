package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/usecase"
)

const (
	defaultHistoricalDays = 30
	maxHistoricalDays     = 365
)

type StatsHandler struct {
	stats  *usecase.StatsService
	logger *zap.Logger
}

func NewStatsHandler(stats *usecase.StatsService, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		stats:  stats,
		logger: logger,
	}
}

// GetBusinessStats returns the dashboard summary (MRR, ARPU, LTV, churn,
// active counts). Served from cache when the cached copy is fresh.
func (h *StatsHandler) GetBusinessStats(c echo.Context) error {
	stats, err := h.stats.BusinessStats(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to compute business stats", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to compute stats"})
	}

	return c.JSON(http.StatusOK, stats)
}

// GetHistoricalStats returns the daily snapshot series for charting.
func (h *StatsHandler) GetHistoricalStats(c echo.Context) error {
	days := defaultHistoricalDays
	if daysStr := c.QueryParam("days"); daysStr != "" {
		parsed, err := strconv.Atoi(daysStr)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid days parameter"})
		}
		days = parsed
	}
	if days > maxHistoricalDays {
		days = maxHistoricalDays
	}

	points, err := h.stats.Historical(c.Request().Context(), days)
	if err != nil {
		h.logger.Error("Failed to load historical stats",
			zap.Int("days", days),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load historical stats"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"days":   days,
		"points": points,
	})
}
