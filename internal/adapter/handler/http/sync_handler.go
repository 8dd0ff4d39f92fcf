package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/usecase"
)

type SyncHandler struct {
	reconciler *usecase.ReconcilerService
	logger     *zap.Logger
}

func NewSyncHandler(reconciler *usecase.ReconcilerService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		reconciler: reconciler,
		logger:     logger,
	}
}

type triggerSyncRequest struct {
	Providers []string `json:"providers" validate:"dive,oneof=stripe paypal paypal_legacy"`
	Discover  bool     `json:"discover"`
}

// TriggerSync runs a reconciliation pass on demand. The run is synchronous;
// the scheduled job handles the regular cadence.
func (h *SyncHandler) TriggerSync(c echo.Context) error {
	var req triggerSyncRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	only := make([]model.Provider, 0, len(req.Providers))
	for _, p := range req.Providers {
		only = append(only, model.Provider(p))
	}

	h.logger.Info("Manual reconciliation triggered",
		zap.Strings("providers", req.Providers),
		zap.Bool("discover", req.Discover))

	ctx := c.Request().Context()
	report, err := h.reconciler.Reconcile(ctx, only)
	if err != nil {
		h.logger.Error("Reconciliation run failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Reconciliation failed"})
	}

	if req.Discover {
		discovered, err := h.reconciler.Discover(ctx, only)
		if err != nil {
			h.logger.Error("Discovery pass failed", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error":  "Discovery failed",
				"report": report,
			})
		}
		report.Merge(discovered)
	}

	return c.JSON(http.StatusOK, report)
}
