package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/usecase"
)

type WebhookHandler struct {
	webhooks      *usecase.WebhookService
	webhookSecret string
	logger        *zap.Logger
}

func NewWebhookHandler(webhooks *usecase.WebhookService, webhookSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhooks:      webhooks,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// HandleStripeWebhook verifies the Stripe signature and applies the event.
// Events are deduplicated by event ID, so Stripe's retries are harmless.
func (h *WebhookHandler) HandleStripeWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading webhook body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
	}

	sig := c.Request().Header.Get("Stripe-Signature")

	event, err := webhook.ConstructEventWithOptions(
		body,
		sig,
		h.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		h.logger.Error("Webhook signature verification failed",
			zap.Error(err),
			zap.String("signature", sig))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Webhook signature verification failed",
		})
	}

	if err := h.webhooks.Process(c.Request().Context(), &event); err != nil {
		h.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		// Non-2xx makes Stripe retry; processing is idempotent.
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to process event"})
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
