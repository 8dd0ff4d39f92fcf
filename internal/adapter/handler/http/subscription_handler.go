package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/verbatone/billing/internal/domain/errors"
	"github.com/verbatone/billing/internal/middleware/auth"
	"github.com/verbatone/billing/internal/usecase"
)

var validate = validator.New()

type SubscriptionHandler struct {
	subscriptions *usecase.SubscriptionService
	logger        *zap.Logger
}

func NewSubscriptionHandler(subscriptions *usecase.SubscriptionService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// GetCurrentSubscription returns the caller's current subscription, including
// a canceled one that is still inside its paid period.
func (h *SubscriptionHandler) GetCurrentSubscription(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	sub, err := h.subscriptions.GetCurrentForUser(c.Request().Context(), user.UserID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNoActiveSubscription) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "No active subscription",
				"code":  "NO_ACTIVE_SUBSCRIPTION",
			})
		}
		h.logger.Error("Failed to get current subscription",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get subscription"})
	}

	return c.JSON(http.StatusOK, sub)
}

// CancelSubscription cancels at period end. Access lasts until the paid
// period runs out.
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	subscriptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid subscription ID"})
	}

	var req cancelSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	h.logger.Info("Canceling subscription",
		zap.String("user_id", user.UserID.String()),
		zap.Int64("subscription_id", subscriptionID))

	sub, err := h.subscriptions.Cancel(c.Request().Context(), user.UserID, subscriptionID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNoActiveSubscription):
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "No active subscription",
				"code":  "NO_ACTIVE_SUBSCRIPTION",
			})
		case errors.Is(err, domainErrors.ErrSubscriptionNotOwned):
			return c.JSON(http.StatusForbidden, echo.Map{
				"error": "Subscription does not belong to the authenticated user",
				"code":  "SUBSCRIPTION_NOT_OWNED",
			})
		case errors.Is(err, domainErrors.ErrUnknownProvider):
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Subscription provider is not configured",
				"code":  "UNKNOWN_PROVIDER",
			})
		default:
			h.logger.Error("Failed to cancel subscription",
				zap.String("user_id", user.UserID.String()),
				zap.Int64("subscription_id", subscriptionID),
				zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to cancel subscription"})
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"subscription": sub,
		"message":      "Subscription will end at the current period end",
	})
}

// GetPaymentHistory returns the payments recorded against the caller's
// current subscription, most recent first.
func (h *SubscriptionHandler) GetPaymentHistory(c echo.Context) error {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Authentication required"})
	}

	payments, err := h.subscriptions.ListPayments(c.Request().Context(), user.UserID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNoActiveSubscription) {
			return c.JSON(http.StatusNotFound, echo.Map{
				"error": "No active subscription",
				"code":  "NO_ACTIVE_SUBSCRIPTION",
			})
		}
		h.logger.Error("Failed to list payment history",
			zap.String("user_id", user.UserID.String()),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list payments"})
	}

	return c.JSON(http.StatusOK, echo.Map{"payments": payments})
}
