package provider

import (
	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/config"
	"github.com/verbatone/billing/internal/domain/model"
	"github.com/verbatone/billing/internal/domain/provider"
	paypalProvider "github.com/verbatone/billing/internal/infrastructure/provider/paypal"
	stripeProvider "github.com/verbatone/billing/internal/infrastructure/provider/stripe"
)

// BuildProviders constructs every billing provider the config carries
// credentials for. A provider with no credentials is simply absent, so a
// deployment can run Stripe-only.
func BuildProviders(cfg *config.Config, logger *zap.Logger) map[model.Provider]provider.BillingProvider {
	providers := make(map[model.Provider]provider.BillingProvider)

	if cfg.Service.StripeSecretKey != "" {
		providers[model.ProviderStripe] = stripeProvider.NewStripeProvider(
			cfg.Service.StripeSecretKey,
			logger,
		)
	}

	if cfg.Service.PayPal.ClientID != "" {
		providers[model.ProviderPayPal] = paypalProvider.NewPayPalProvider(
			string(model.ProviderPayPal),
			cfg.Service.PayPal.ClientID,
			cfg.Service.PayPal.ClientSecret,
			cfg.Service.PayPal.BaseURL,
			cfg.Service.PayPal.PlanIDs,
			logger,
		)
	}

	if cfg.Service.PayPalLegacy.ClientID != "" {
		providers[model.ProviderPayPalLegacy] = paypalProvider.NewPayPalProvider(
			string(model.ProviderPayPalLegacy),
			cfg.Service.PayPalLegacy.ClientID,
			cfg.Service.PayPalLegacy.ClientSecret,
			cfg.Service.PayPalLegacy.BaseURL,
			cfg.Service.PayPalLegacy.PlanIDs,
			logger,
		)
	}

	logger.Info("Billing providers configured",
		zap.Int("count", len(providers)))

	return providers
}
