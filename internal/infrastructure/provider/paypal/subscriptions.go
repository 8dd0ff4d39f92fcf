package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/provider"
)

// subscriptionResponse mirrors the PayPal billing subscription resource.
type subscriptionResponse struct {
	ID         string `json:"id"`
	PlanID     string `json:"plan_id"`
	Status     string `json:"status"`
	StartTime  string `json:"start_time"`
	CreateTime string `json:"create_time"`
	Subscriber struct {
		EmailAddress string `json:"email_address"`
		PayerID      string `json:"payer_id"`
	} `json:"subscriber"`
	BillingInfo struct {
		NextBillingTime string `json:"next_billing_time"`
		LastPayment     struct {
			Amount struct {
				CurrencyCode string `json:"currency_code"`
				Value        string `json:"value"`
			} `json:"amount"`
			Time string `json:"time"`
		} `json:"last_payment"`
	} `json:"billing_info"`
}

// GetSubscription fetches one subscription.
// GET /v1/billing/subscriptions/{id}
func (p *PayPalProvider) GetSubscription(ctx context.Context, subscriptionID string) (*provider.Subscription, error) {
	respBody, status, err := p.get(ctx, "/v1/billing/subscriptions/"+subscriptionID)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, provider.ErrSubscriptionNotFound
	}
	if status != http.StatusOK {
		p.logger.Error("PayPalProvider: Get subscription failed",
			zap.String("account", p.name),
			zap.String("subscription_id", subscriptionID),
			zap.Int("status_code", status))
		return nil, p.apiError(respBody, status)
	}

	var resp subscriptionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse subscription response",
			Details: err.Error(),
		}
	}

	return p.toProviderSubscription(&resp), nil
}

const listPageSize = 100

// ListActiveSubscriptions walks the configured plan IDs and collects the
// active subscriptions under each.
// GET /v1/billing/subscriptions?plan_id={id}&status=ACTIVE&page={n}
func (p *PayPalProvider) ListActiveSubscriptions(ctx context.Context) ([]*provider.Subscription, error) {
	var all []*provider.Subscription

	for _, planID := range p.planIDs {
		page := 1
		for {
			// total_required makes PayPal include total_pages; without it
			// the field is omitted and decodes as zero.
			path := fmt.Sprintf("/v1/billing/subscriptions?plan_id=%s&status=ACTIVE&page=%d&page_size=%d&total_required=true", planID, page, listPageSize)
			respBody, status, err := p.get(ctx, path)
			if err != nil {
				return nil, err
			}
			if status != http.StatusOK {
				return nil, p.apiError(respBody, status)
			}

			var listResp struct {
				Subscriptions []subscriptionResponse `json:"subscriptions"`
				TotalPages    int                    `json:"total_pages"`
			}
			if err := json.Unmarshal(respBody, &listResp); err != nil {
				return nil, &provider.ProviderError{
					Code:    "PARSE_ERROR",
					Message: "Failed to parse subscription list",
					Details: err.Error(),
				}
			}

			for i := range listResp.Subscriptions {
				all = append(all, p.toProviderSubscription(&listResp.Subscriptions[i]))
			}

			// A short page is the end even when total_pages is missing.
			if len(listResp.Subscriptions) < listPageSize {
				break
			}
			if listResp.TotalPages > 0 && page >= listResp.TotalPages {
				break
			}
			page++
		}
	}

	p.logger.Debug("Listed active PayPal subscriptions",
		zap.String("account", p.name),
		zap.Int("count", len(all)))
	return all, nil
}

// CancelSubscription cancels a subscription.
// POST /v1/billing/subscriptions/{id}/cancel
func (p *PayPalProvider) CancelSubscription(ctx context.Context, subscriptionID string, reason string) error {
	if reason == "" {
		reason = "Canceled by user"
	}
	body := map[string]string{"reason": reason}

	respBody, status, err := p.post(ctx, "/v1/billing/subscriptions/"+subscriptionID+"/cancel", body)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return provider.ErrSubscriptionNotFound
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		p.logger.Error("PayPalProvider: Cancel subscription failed",
			zap.String("account", p.name),
			zap.String("subscription_id", subscriptionID),
			zap.Int("status_code", status))
		return p.apiError(respBody, status)
	}

	p.logger.Info("PayPalProvider: Subscription canceled",
		zap.String("account", p.name),
		zap.String("subscription_id", subscriptionID))
	return nil
}

func (p *PayPalProvider) toProviderSubscription(resp *subscriptionResponse) *provider.Subscription {
	out := &provider.Subscription{
		ID:                resp.ID,
		CustomerID:        resp.Subscriber.PayerID,
		SubscriberEmail:   resp.Subscriber.EmailAddress,
		Status:            resp.Status,
		PlanKey:           resp.PlanID,
		Currency:          resp.BillingInfo.LastPayment.Amount.CurrencyCode,
		Interval:          "month",
		CancelAtPeriodEnd: false,
	}

	if t, err := time.Parse(time.RFC3339, resp.CreateTime); err == nil {
		out.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, resp.BillingInfo.LastPayment.Time); err == nil {
		out.CurrentPeriodStart = t
	}
	if t, err := time.Parse(time.RFC3339, resp.BillingInfo.NextBillingTime); err == nil {
		out.CurrentPeriodEnd = t
	}

	// PayPal reports amounts as decimal strings.
	if v := resp.BillingInfo.LastPayment.Amount.Value; v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			out.AmountCents = d.Mul(decimal.NewFromInt(100)).IntPart()
		}
	}

	return out
}
