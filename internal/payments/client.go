// Package payments implements the HTTP client for the external payment
// provider: creating hosted-checkout payment intents and re-verifying
// charges server-side.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// TransactionType tags a payment intent with the entity it pays for.
type TransactionType string

const (
	TransactionTypeBooking          TransactionType = "booking"
	TransactionTypeBookingExtension TransactionType = "booking_extension"
)

// Intent is a created payment intent with its hosted checkout link.
type Intent struct {
	PaymentIntentID string
	CheckoutURL     string
}

// IntentMetadata correlates a provider transaction with an internal entity.
type IntentMetadata struct {
	TxRef           string
	TransactionType TransactionType
	CustomerEmail   string
}

// Verification is the provider's server-side view of a charge. Webhook
// payloads are never trusted directly; this is the source of truth.
type Verification struct {
	ProviderChargeID string
	TxRef            string
	Status           string
	Amount           float64
	Currency         string
}

// Successful reports whether the verified charge actually completed.
func (v *Verification) Successful() bool {
	return v.Status == "successful"
}

// Client is an HTTP client for the payment provider's REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewClient creates a new payment provider client.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		secretKey:  secretKey,
	}
}

type createIntentRequest struct {
	TxRef    string         `json:"tx_ref"`
	Amount   float64        `json:"amount"`
	Currency string         `json:"currency"`
	Meta     map[string]any `json:"meta"`
}

type createIntentResponse struct {
	Status string `json:"status"`
	Data   struct {
		ID   string `json:"id"`
		Link string `json:"link"`
	} `json:"data"`
}

// CreatePaymentIntent requests a hosted checkout for the given amount.
func (c *Client) CreatePaymentIntent(ctx context.Context, amount float64, meta IntentMetadata) (*Intent, error) {
	payload := createIntentRequest{
		TxRef:    meta.TxRef,
		Amount:   amount,
		Currency: "NGN",
		Meta: map[string]any{
			"transaction_type": string(meta.TransactionType),
			"customer_email":   meta.CustomerEmail,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create payment intent: unexpected status %d", resp.StatusCode)
	}

	var out createIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("create payment intent: decode response: %w", err)
	}

	return &Intent{
		PaymentIntentID: out.Data.ID,
		CheckoutURL:     out.Data.Link,
	}, nil
}

type verifyResponse struct {
	Status string `json:"status"`
	Data   struct {
		ID       int64   `json:"id"`
		TxRef    string  `json:"tx_ref"`
		Status   string  `json:"status"`
		Amount   float64 `json:"amount"`
		Currency string  `json:"currency"`
	} `json:"data"`
}

// VerifyTransaction re-verifies a charge against the provider by its
// provider-side id.
func (c *Client) VerifyTransaction(ctx context.Context, providerChargeID string) (*Verification, error) {
	url := fmt.Sprintf("%s/transactions/%s/verify", c.baseURL, providerChargeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("verify transaction: unexpected status %d", resp.StatusCode)
	}

	var out verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("verify transaction: decode response: %w", err)
	}

	return &Verification{
		ProviderChargeID: providerChargeID,
		TxRef:            out.Data.TxRef,
		Status:           out.Data.Status,
		Amount:           out.Data.Amount,
		Currency:         out.Data.Currency,
	}, nil
}
