package config

type ServiceConfig struct {
	Name                string         `yaml:"name"`
	Environment         string         `yaml:"environment"`
	Version             string         `yaml:"version"`
	ClientURL           string         `yaml:"client_url"`
	StripeSecretKey     string         `yaml:"stripe_secret_key"`
	StripeWebhookSecret string         `yaml:"stripe_webhook_secret"`
	Supabase            SupabaseConfig `yaml:"supabase"`
	PayPal              PayPalConfig   `yaml:"paypal"`
	PayPalLegacy        PayPalConfig   `yaml:"paypal_legacy"`
}

type SupabaseConfig struct {
	JWTSecret  string `yaml:"jwt_secret"`
	ProjectURL string `yaml:"project_url"`
	APIKey     string `yaml:"api_key"`
}

// PayPalConfig holds credentials for one PayPal business account. Two
// accounts are configured: the current one and the legacy account the old
// product billed through.
type PayPalConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	BaseURL      string   `yaml:"base_url"`
	PlanIDs      []string `yaml:"plan_ids"`
}
