package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/provider"
)

func tokenResponse(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": "test-token",
		"token_type":   "Bearer",
		"expires_in":   32400,
	})
}

func TestPayPalProvider_GetSubscription(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("maps an active subscription", func(t *testing.T) {
		tokenCalls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/oauth2/token":
				tokenCalls++
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "client-id", user)
				assert.Equal(t, "client-secret", pass)
				tokenResponse(w)
			case "/v1/billing/subscriptions/I-ABC123":
				assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
				json.NewEncoder(w).Encode(map[string]interface{}{
					"id":      "I-ABC123",
					"plan_id": "P-PLAN1",
					"status":  "ACTIVE",
					"subscriber": map[string]interface{}{
						"email_address": "buyer@example.com",
						"payer_id":      "PAYER1",
					},
					"billing_info": map[string]interface{}{
						"next_billing_time": "2025-07-01T00:00:00Z",
						"last_payment": map[string]interface{}{
							"amount": map[string]interface{}{
								"currency_code": "USD",
								"value":         "19.00",
							},
							"time": "2025-06-01T00:00:00Z",
						},
					},
				})
			default:
				t.Errorf("unexpected request: %s", r.URL.Path)
			}
		}))
		defer server.Close()

		p := NewPayPalProvider("paypal", "client-id", "client-secret", server.URL, []string{"P-PLAN1"}, logger)

		sub, err := p.GetSubscription(ctx, "I-ABC123")

		assert.NoError(t, err)
		assert.Equal(t, "I-ABC123", sub.ID)
		assert.Equal(t, "ACTIVE", sub.Status)
		assert.Equal(t, "buyer@example.com", sub.SubscriberEmail)
		assert.Equal(t, "PAYER1", sub.CustomerID)
		assert.Equal(t, int64(1900), sub.AmountCents)
		assert.Equal(t, "USD", sub.Currency)
		assert.Equal(t, 2025, sub.CurrentPeriodEnd.Year())

		// Second call reuses the cached token.
		_, err = p.GetSubscription(ctx, "I-ABC123")
		assert.NoError(t, err)
		assert.Equal(t, 1, tokenCalls)
	})

	t.Run("404 maps to ErrSubscriptionNotFound", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/oauth2/token" {
				tokenResponse(w)
				return
			}
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"name":    "RESOURCE_NOT_FOUND",
				"message": "The specified resource does not exist.",
			})
		}))
		defer server.Close()

		p := NewPayPalProvider("paypal", "id", "secret", server.URL, nil, logger)

		_, err := p.GetSubscription(ctx, "I-GONE")

		assert.ErrorIs(t, err, provider.ErrSubscriptionNotFound)
	})

	t.Run("API error carries the PayPal error name", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/oauth2/token" {
				tokenResponse(w)
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{
				"name":    "INTERNAL_SERVICE_ERROR",
				"message": "An internal service error occurred.",
			})
		}))
		defer server.Close()

		p := NewPayPalProvider("paypal", "id", "secret", server.URL, nil, logger)

		_, err := p.GetSubscription(ctx, "I-ERR")

		var provErr *provider.ProviderError
		assert.ErrorAs(t, err, &provErr)
	})
}

func TestPayPalProvider_ListActiveSubscriptions(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	activeSubs := func(planID, prefix string, n int) []map[string]interface{} {
		subs := make([]map[string]interface{}, n)
		for i := range subs {
			subs[i] = map[string]interface{}{
				"id":      fmt.Sprintf("%s-%03d", prefix, i),
				"status":  "ACTIVE",
				"plan_id": planID,
			}
		}
		return subs
	}

	t.Run("pages through each configured plan", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/oauth2/token":
				tokenResponse(w)
			case "/v1/billing/subscriptions":
				assert.Equal(t, "ACTIVE", r.URL.Query().Get("status"))
				assert.Equal(t, "true", r.URL.Query().Get("total_required"))
				planID := r.URL.Query().Get("plan_id")
				page := r.URL.Query().Get("page")

				var subs []map[string]interface{}
				totalPages := 1
				switch {
				case planID == "P-PLAN1" && page == "1":
					subs = activeSubs(planID, "I-P1A", 100)
					totalPages = 2
				case planID == "P-PLAN1" && page == "2":
					subs = activeSubs(planID, "I-P1B", 17)
					totalPages = 2
				case planID == "P-PLAN2":
					subs = activeSubs(planID, "I-P2", 1)
				}
				json.NewEncoder(w).Encode(map[string]interface{}{
					"subscriptions": subs,
					"total_pages":   totalPages,
				})
			default:
				t.Errorf("unexpected request: %s", r.URL.Path)
			}
		}))
		defer server.Close()

		p := NewPayPalProvider("paypal", "id", "secret", server.URL, []string{"P-PLAN1", "P-PLAN2"}, logger)

		subs, err := p.ListActiveSubscriptions(ctx)

		assert.NoError(t, err)
		assert.Len(t, subs, 118)
		assert.Equal(t, "I-P1A-000", subs[0].ID)
		assert.Equal(t, "I-P1B-016", subs[116].ID)
		assert.Equal(t, "I-P2-000", subs[117].ID)
	})

	t.Run("keeps paging when total_pages is omitted", func(t *testing.T) {
		// PayPal leaves total_pages out unless total_required is honored;
		// full pages must still advance the walk.
		pagesServed := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/oauth2/token" {
				tokenResponse(w)
				return
			}
			pagesServed++
			var subs []map[string]interface{}
			switch r.URL.Query().Get("page") {
			case "1":
				subs = activeSubs("P-PLAN1", "I-PG1", 100)
			case "2":
				subs = activeSubs("P-PLAN1", "I-PG2", 100)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"subscriptions": subs,
			})
		}))
		defer server.Close()

		p := NewPayPalProvider("paypal", "id", "secret", server.URL, []string{"P-PLAN1"}, logger)

		subs, err := p.ListActiveSubscriptions(ctx)

		assert.NoError(t, err)
		assert.Len(t, subs, 200)
		assert.Equal(t, 3, pagesServed)
	})

	t.Run("no plan IDs lists nothing", func(t *testing.T) {
		p := NewPayPalProvider("paypal", "id", "secret", "http://invalid.local", nil, logger)

		subs, err := p.ListActiveSubscriptions(ctx)

		assert.NoError(t, err)
		assert.Empty(t, subs)
	})
}

func TestPayPalProvider_AmountParsing(t *testing.T) {
	p := NewPayPalProvider("paypal", "id", "secret", "http://invalid.local", nil, zap.NewNop())

	tests := []struct {
		value string
		want  int64
	}{
		{"19.00", 1900},
		{"15.83", 1583},
		{"0.50", 50},
		{"129.99", 12999},
		{"not-a-number", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			resp := &subscriptionResponse{ID: "I-AMT"}
			resp.BillingInfo.LastPayment.Amount.Value = tt.value

			out := p.toProviderSubscription(resp)

			assert.Equal(t, tt.want, out.AmountCents)
		})
	}
}

func TestPayPalProvider_CancelSubscription(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	t.Run("sends reason and accepts 204", func(t *testing.T) {
		var gotReason string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/oauth2/token" {
				tokenResponse(w)
				return
			}
			assert.Equal(t, "/v1/billing/subscriptions/I-ABC/cancel", r.URL.Path)
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			gotReason = body["reason"]
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		p := NewPayPalProvider("paypal", "id", "secret", server.URL, nil, logger)

		err := p.CancelSubscription(ctx, "I-ABC", "switching plans")

		assert.NoError(t, err)
		assert.Equal(t, "switching plans", gotReason)
	})

	t.Run("missing subscription maps to not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/v1/oauth2/token" {
				tokenResponse(w)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		p := NewPayPalProvider("paypal", "id", "secret", server.URL, nil, logger)

		err := p.CancelSubscription(ctx, "I-GONE", "")

		assert.ErrorIs(t, err, provider.ErrSubscriptionNotFound)
	})
}
