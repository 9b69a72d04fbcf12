// Package airtel is a client for the Airtel Money merchant payments API.
package airtel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/domain/domainerr"
	"github.com/armada-suites/service-booking/internal/domain/payment"
	"github.com/armada-suites/service-booking/internal/provider"
)

// Config holds the Airtel Money OAuth2 credentials.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	PartnerID    string
	Country      string
	Currency     string
}

// Configured reports whether the credentials needed to call the API are set.
func (c Config) Configured() bool {
	return c.BaseURL != "" && c.ClientID != "" && c.ClientSecret != ""
}

// Client calls the Airtel Money API using OAuth2 client credentials. The
// bearer token is cached until shortly before expiry.
type Client struct {
	cfg    Config
	hc     *http.Client
	logger *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates an Airtel Money client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Country == "" {
		cfg.Country = "UG"
	}
	if cfg.Currency == "" {
		cfg.Currency = "UGX"
	}
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Provider identifies this client as the Airtel rail.
func (c *Client) Provider() payment.Provider {
	return payment.ProviderAirtel
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	body, err := json.Marshal(map[string]string{
		"client_id":     c.cfg.ClientID,
		"client_secret": c.cfg.ClientSecret,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", fmt.Errorf("marshal token body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/auth/oauth2/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("airtel token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("airtel token request: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode airtel token: %w", err)
	}

	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

type paymentBody struct {
	Reference  string `json:"reference"`
	Subscriber struct {
		Country  string `json:"country"`
		Currency string `json:"currency"`
		MSISDN   string `json:"msisdn"`
	} `json:"subscriber"`
	Transaction struct {
		Amount   int64  `json:"amount"`
		Country  string `json:"country"`
		Currency string `json:"currency"`
		ID       string `json:"id"`
	} `json:"transaction"`
}

type paymentResponse struct {
	Data struct {
		Transaction struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"transaction"`
	} `json:"data"`
	Status struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	} `json:"status"`
}

// RequestToPay submits a merchant payment request. The MSISDN is the bare
// local number; country and currency ride in the headers as Airtel requires.
func (c *Client) RequestToPay(ctx context.Context, req provider.ChargeRequest) (provider.ChargeResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return provider.ChargeResult{}, err
	}

	var body paymentBody
	body.Reference = req.Description
	body.Subscriber.Country = c.cfg.Country
	body.Subscriber.Currency = c.cfg.Currency
	body.Subscriber.MSISDN = req.PhoneNumber
	body.Transaction.Amount = req.AmountCents
	body.Transaction.Country = c.cfg.Country
	body.Transaction.Currency = c.cfg.Currency
	body.Transaction.ID = req.Reference

	payload, err := json.Marshal(body)
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("marshal airtel payment body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/merchant/v1/payments/", bytes.NewReader(payload))
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("build airtel payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Country", c.cfg.Country)
	httpReq.Header.Set("X-Currency", c.cfg.Currency)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("airtel payment: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("airtel payment rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("reference", req.Reference),
		)
		return provider.ChargeResult{
			Status:      payment.StatusFailed,
			RawResponse: string(raw),
		}, fmt.Errorf("airtel payment: status %d", resp.StatusCode)
	}

	var pr paymentResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return provider.ChargeResult{}, fmt.Errorf("decode airtel payment response: %w", err)
	}
	if !pr.Status.Success {
		return provider.ChargeResult{
			Status:      payment.StatusFailed,
			RawResponse: string(raw),
		}, fmt.Errorf("airtel payment rejected: %s", pr.Status.Message)
	}

	c.logger.Info("airtel collection requested",
		zap.String("reference", req.Reference),
		zap.String("msisdn", req.PhoneNumber),
	)

	txID := pr.Data.Transaction.ID
	if txID == "" {
		txID = req.Reference
	}
	return provider.ChargeResult{
		TransactionID: txID,
		Status:        payment.StatusProcessing,
		RawResponse:   string(raw),
	}, nil
}

// CheckStatus is not exposed by the Airtel integration; reconciliation for
// this rail is callback-driven only.
func (c *Client) CheckStatus(ctx context.Context, reference string) (provider.ChargeResult, error) {
	return provider.ChargeResult{}, domainerr.NewUnavailableError("airtel money does not support status polling")
}
