package paypal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verbatone/billing/internal/domain/provider"
)

const defaultBaseURL = "https://api-m.paypal.com"

// PayPalProvider implements the BillingProvider interface on the PayPal REST
// API. Two instances run side by side: the current business account and the
// legacy account the old product billed through.
type PayPalProvider struct {
	name         string
	clientID     string
	clientSecret string
	baseURL      string
	planIDs      []string
	client       *http.Client
	logger       *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPalProvider creates a PayPal provider for one business account.
// planIDs scopes the discovery listing; PayPal only lists subscriptions per
// plan.
func NewPayPalProvider(name, clientID, clientSecret, baseURL string, planIDs []string, logger *zap.Logger) *PayPalProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &PayPalProvider{
		name:         name,
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		planIDs:      planIDs,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// Name returns the provider name
func (p *PayPalProvider) Name() string {
	return p.name
}

// token returns a cached OAuth access token, refreshing it when expired.
// POST /v1/oauth2/token
func (p *PayPalProvider) token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry) {
		return p.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create token request",
			Details: err.Error(),
		}
	}

	auth := base64.StdEncoding.EncodeToString([]byte(p.clientID + ":" + p.clientSecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("PayPalProvider: Token request failed",
			zap.String("account", p.name),
			zap.Error(err))
		return "", &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "PayPal token request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read token response",
			Details: err.Error(),
		}
	}

	if resp.StatusCode != http.StatusOK {
		p.logger.Error("PayPalProvider: Token request rejected",
			zap.String("account", p.name),
			zap.Int("status_code", resp.StatusCode),
			zap.String("response", string(respBody)))
		return "", &provider.ProviderError{
			Code:    "AUTH_ERROR",
			Message: "PayPal rejected the token request",
			Details: string(respBody),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return "", &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse token response",
			Details: err.Error(),
		}
	}

	p.accessToken = tokenResp.AccessToken
	// Refresh a minute early to avoid racing the expiry.
	p.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)

	return p.accessToken, nil
}

// get performs an authenticated GET and returns the raw body for 200s.
func (p *PayPalProvider) get(ctx context.Context, path string) ([]byte, int, error) {
	token, err := p.token(ctx)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, 0, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "PayPal API request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read response",
			Details: err.Error(),
		}
	}

	return respBody, resp.StatusCode, nil
}

// post performs an authenticated POST with a JSON body.
func (p *PayPalProvider) post(ctx context.Context, path string, body interface{}) ([]byte, int, error) {
	token, err := p.token(ctx)
	if err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, &provider.ProviderError{
				Code:    "MARSHAL_ERROR",
				Message: "Failed to prepare request",
				Details: err.Error(),
			}
		}
		reader = strings.NewReader(string(jsonBody))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, reader)
	if err != nil {
		return nil, 0, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "PayPal API request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read response",
			Details: err.Error(),
		}
	}

	return respBody, resp.StatusCode, nil
}

func (p *PayPalProvider) apiError(respBody []byte, statusCode int) error {
	var errResp struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	json.Unmarshal(respBody, &errResp)

	code := errResp.Name
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", statusCode)
	}
	message := errResp.Message
	if message == "" {
		message = "PayPal API request failed"
	}

	return &provider.ProviderError{
		Code:    code,
		Message: message,
		Details: string(respBody),
	}
}
