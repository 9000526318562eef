package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// GatewayPaymentStatus is the processor's view of one payment intent.
type GatewayPaymentStatus struct {
	PaymentIntentID string  `json:"paymentIntentId"`
	Status          string  `json:"status"`
	Amount          float64 `json:"amount"`
	Method          string  `json:"method"`
}

// PaymentGateway verifies payment intents with the external processor.
// The ledger never talks to a concrete provider directly.
type PaymentGateway interface {
	VerifyPayment(ctx context.Context, paymentIntentID string) (*GatewayPaymentStatus, error)
}

// HTTPPaymentGateway calls the processor's REST API.
type HTTPPaymentGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewPaymentGatewayFromEnv builds the gateway client from GATEWAY_BASE_URL
// and GATEWAY_API_KEY. It returns nil when no gateway is configured, in
// which case confirmations are applied without re-verification.
func NewPaymentGatewayFromEnv() *HTTPPaymentGateway {
	baseURL := os.Getenv("GATEWAY_BASE_URL")
	if baseURL == "" {
		log.Printf("WARNING: GATEWAY_BASE_URL not set, payment confirmations will not be re-verified")
		return nil
	}
	apiKey := os.Getenv("GATEWAY_API_KEY")
	if apiKey == "" {
		log.Printf("WARNING: GATEWAY_API_KEY is missing")
	}

	log.Printf("Payment Gateway Configuration:")
	log.Printf("  Base URL: %s", baseURL)
	log.Printf("  API Key: [CONFIGURED]")

	return &HTTPPaymentGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// VerifyPayment fetches the intent's current status from the processor.
// Transport failures and non-2xx responses surface as ExternalGatewayError.
func (g *HTTPPaymentGateway) VerifyPayment(ctx context.Context, paymentIntentID string) (*GatewayPaymentStatus, error) {
	url := fmt.Sprintf("%s/payments/%s", g.baseURL, paymentIntentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ExternalGatewayError{Op: "verify", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ExternalGatewayError{Op: "verify", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExternalGatewayError{Op: "verify", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ExternalGatewayError{Op: "verify", Err: fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body))}
	}

	var status GatewayPaymentStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, &ExternalGatewayError{Op: "verify", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &status, nil
}
