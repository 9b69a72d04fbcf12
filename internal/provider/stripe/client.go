// Package stripe is a thin REST client for the Stripe payment-intents and
// refunds APIs, plus webhook signature verification.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/provider"
)

const defaultBaseURL = "https://api.stripe.com"

// Client calls the Stripe REST API with a bounded request timeout.
type Client struct {
	baseURL   string
	secretKey string
	hc        *http.Client
	logger    *zap.Logger
}

// NewClient creates a Stripe client authenticated with the secret key.
func NewClient(secretKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		secretKey: secretKey,
		hc: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// NewClientWithBaseURL is used by tests to point at a stub server.
func NewClientWithBaseURL(secretKey, baseURL string, logger *zap.Logger) *Client {
	c := NewClient(secretKey, logger)
	c.baseURL = baseURL
	return c
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreatePaymentIntent creates an intent with automatic payment methods
// enabled. The caller confirms it client-side with the returned secret.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, currency, customerEmail, reference string) (provider.IntentResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("receipt_email", customerEmail)
	form.Set("metadata[reference]", reference)
	form.Set("automatic_payment_methods[enabled]", "true")

	var out intentResponse
	if err := c.post(ctx, "/v1/payment_intents", form, &out); err != nil {
		return provider.IntentResult{}, err
	}

	c.logger.Info("stripe payment intent created",
		zap.String("intent_id", out.ID),
		zap.Int64("amount_cents", amountCents),
		zap.String("currency", currency),
	)
	return provider.IntentResult{IntentID: out.ID, ClientSecret: out.ClientSecret}, nil
}

// CreateRefund refunds a captured intent; amountCents 0 means full refund.
func (c *Client) CreateRefund(ctx context.Context, intentID string, amountCents int64) (string, error) {
	form := url.Values{}
	form.Set("payment_intent", intentID)
	if amountCents > 0 {
		form.Set("amount", strconv.FormatInt(amountCents, 10))
	}

	var out refundResponse
	if err := c.post(ctx, "/v1/refunds", form, &out); err != nil {
		return "", err
	}

	c.logger.Info("stripe refund created",
		zap.String("refund_id", out.ID),
		zap.String("intent_id", intentID),
	)
	return out.ID, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read stripe response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("stripe %s: %s (%s)", path, apiErr.Error.Message, apiErr.Error.Code)
		}
		return fmt.Errorf("stripe %s: status %d", path, resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}
