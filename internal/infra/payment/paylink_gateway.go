package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"interview-ai-credits/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*PayLinkGateway)(nil)

// PayLinkGateway implements PaymentGateway against a hosted payment-link
// provider using direct HTTP calls.
type PayLinkGateway struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewPayLinkGateway creates a gateway for the given provider endpoint.
func NewPayLinkGateway(apiKey, baseURL string) *PayLinkGateway {
	return &PayLinkGateway{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (g *PayLinkGateway) Name() string { return "paylink" }

// payLinkCheckoutResponse represents the response from the checkout API.
type payLinkCheckoutResponse struct {
	Data struct {
		Reference string `json:"reference"`
		PayURL    string `json:"pay_url"`
		Message   string `json:"message"`
	} `json:"data"`
	Errors []interface{} `json:"errors"`
}

// RequestCheckout implements PaymentGateway.RequestCheckout.
func (g *PayLinkGateway) RequestCheckout(ctx context.Context, amountCents int64, description, callbackURL string) (reference, payURL string, err error) {
	requestData := map[string]interface{}{
		"amount":       amountCents,
		"currency":     "usd",
		"description":  description,
		"callback_url": callbackURL,
	}

	jsonData, err := json.Marshal(requestData)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal request data: %w", err)
	}

	url := g.baseURL + "/checkout.json"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read response body: %w", err)
	}

	var response payLinkCheckoutResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", "", fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(body))
	}

	if len(response.Errors) > 0 {
		errorBytes, _ := json.Marshal(response.Errors)
		return "", "", fmt.Errorf("paylink errors: %s", string(errorBytes))
	}
	if response.Data.Reference == "" {
		return "", "", fmt.Errorf("paylink error: %s", response.Data.Message)
	}

	return response.Data.Reference, response.Data.PayURL, nil
}
