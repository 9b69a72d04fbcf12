// Package mtn is a client for the MTN MoMo collection API.
package mtn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/armada-suites/service-booking/internal/domain/payment"
	"github.com/armada-suites/service-booking/internal/provider"
)

// Config holds the MoMo API credentials.
type Config struct {
	BaseURL           string
	APIKey            string
	UserID            string
	SubscriptionKey   string
	TargetEnvironment string
}

// Configured reports whether the credentials needed to call the API are set.
func (c Config) Configured() bool {
	return c.BaseURL != "" && c.APIKey != "" && c.UserID != "" && c.SubscriptionKey != ""
}

// Client calls the MoMo collection API. The access token obtained via
// Basic auth is cached until shortly before expiry.
type Client struct {
	cfg    Config
	hc     *http.Client
	logger *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient creates an MTN MoMo client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.TargetEnvironment == "" {
		cfg.TargetEnvironment = "sandbox"
	}
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Provider identifies this client as the MTN rail.
func (c *Client) Provider() payment.Provider {
	return payment.ProviderMTN
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a cached access token, fetching a fresh one when expired.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/collection/token/", nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.UserID, c.cfg.APIKey)
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("momo token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("momo token request: status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode momo token: %w", err)
	}

	c.accessToken = tr.AccessToken
	// Refresh one minute early so in-flight requests never carry a token
	// that expires mid-call.
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}

type requestToPayBody struct {
	Amount     string      `json:"amount"`
	Currency   string      `json:"currency"`
	ExternalID string      `json:"externalId"`
	Payer      payerParty  `json:"payer"`
	PayerMsg   string      `json:"payerMessage"`
	PayeeNote  string      `json:"payeeNote"`
}

type payerParty struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

// RequestToPay submits a collection request. The X-Reference-Id header must
// equal the generated payment reference; the same id is later used to poll
// status. A 202 means the request was accepted, not that money moved; the
// subscriber still approves on-device.
func (c *Client) RequestToPay(ctx context.Context, req provider.ChargeRequest) (provider.ChargeResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return provider.ChargeResult{}, err
	}

	body := requestToPayBody{
		Amount:     strconv.FormatInt(req.AmountCents, 10),
		Currency:   req.Currency,
		ExternalID: req.Reference,
		Payer: payerParty{
			PartyIDType: "MSISDN",
			PartyID:     req.PhoneNumber,
		},
		PayerMsg:  req.Description,
		PayeeNote: req.Description,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("marshal requesttopay body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/collection/v1_0/requesttopay", bytes.NewReader(payload))
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("build requesttopay request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Reference-Id", req.Reference)
	httpReq.Header.Set("X-Target-Environment", c.cfg.TargetEnvironment)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("momo requesttopay: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode != http.StatusAccepted {
		c.logger.Warn("momo requesttopay rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("reference", req.Reference),
		)
		return provider.ChargeResult{
			Status:      payment.StatusFailed,
			RawResponse: string(raw),
		}, fmt.Errorf("momo requesttopay: status %d", resp.StatusCode)
	}

	c.logger.Info("momo collection requested",
		zap.String("reference", req.Reference),
		zap.String("msisdn", req.PhoneNumber),
	)
	return provider.ChargeResult{
		TransactionID: req.Reference,
		Status:        payment.StatusProcessing,
		RawResponse:   string(raw),
	}, nil
}

type statusResponse struct {
	Status                 string `json:"status"`
	FinancialTransactionID string `json:"financialTransactionId"`
	Reason                 string `json:"reason"`
}

// CheckStatus polls a collection request by its reference id.
func (c *Client) CheckStatus(ctx context.Context, reference string) (provider.ChargeResult, error) {
	token, err := c.token(ctx)
	if err != nil {
		return provider.ChargeResult{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+"/collection/v1_0/requesttopay/"+reference, nil)
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Target-Environment", c.cfg.TargetEnvironment)
	httpReq.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return provider.ChargeResult{}, fmt.Errorf("momo status: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return provider.ChargeResult{}, fmt.Errorf("momo status: status %d", resp.StatusCode)
	}

	var sr statusResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return provider.ChargeResult{}, fmt.Errorf("decode momo status: %w", err)
	}

	return provider.ChargeResult{
		TransactionID: sr.FinancialTransactionID,
		Status:        mapStatus(sr.Status),
		RawResponse:   string(raw),
	}, nil
}

// mapStatus translates MoMo status strings to the payment status enum.
func mapStatus(s string) payment.Status {
	switch strings.ToUpper(s) {
	case "SUCCESSFUL":
		return payment.StatusCompleted
	case "FAILED", "REJECTED", "TIMEOUT":
		return payment.StatusFailed
	default:
		return payment.StatusProcessing
	}
}
