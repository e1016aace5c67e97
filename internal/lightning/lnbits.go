package lightning

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LNbitsConfig configures the LNbits-backed payment engine.
type LNbitsConfig struct {
	BaseURL      string
	AdminKey     string
	Currency     string
	PollInterval time.Duration
}

// LNbitsClient implements Engine against the LNbits REST API. Settlement
// delivery is poll-based; the processed marker is tracked per process, the
// durable duplicate guard is the consumer's idempotent write.
type LNbitsClient struct {
	cfg  LNbitsConfig
	http *http.Client
	log  *logrus.Entry

	mu    sync.Mutex
	acked map[string]bool
	seen  map[string]bool
}

func NewLNbitsClient(cfg LNbitsConfig, log *logrus.Logger) *LNbitsClient {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	return &LNbitsClient{
		cfg:   cfg,
		http:  &http.Client{Timeout: 30 * time.Second},
		log:   log.WithField("component", "lnbits"),
		acked: make(map[string]bool),
		seen:  make(map[string]bool),
	}
}

func (c *LNbitsClient) do(ctx context.Context, method, path string, body, dest any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("lnbits: encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("lnbits: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.AdminKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lnbits: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("lnbits: %s %s: status %d: %s", method, path, resp.StatusCode, apiErr.Detail)
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("lnbits: decode response: %w", err)
		}
	}
	return nil
}

func (c *LNbitsClient) CreateInvoice(ctx context.Context, walletID string, amountSat int64, memo, unhashedDescription string, extra map[string]any) (Invoice, error) {
	payload := map[string]any{
		"out":    false,
		"amount": amountSat,
		"memo":   memo,
		"extra":  extra,
	}
	if unhashedDescription != "" {
		payload["unhashed_description"] = hex.EncodeToString([]byte(unhashedDescription))
	}

	var resp struct {
		PaymentHash    string `json:"payment_hash"`
		PaymentRequest string `json:"payment_request"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/payments", payload, &resp); err != nil {
		return Invoice{}, err
	}
	return Invoice{PaymentHash: resp.PaymentHash, Bolt11: resp.PaymentRequest}, nil
}

func (c *LNbitsClient) PayInvoice(ctx context.Context, walletID, bolt11 string, maxSat int64, extra map[string]any) (string, error) {
	msat, err := DecodeInvoiceAmount(bolt11)
	if err != nil {
		return "", err
	}
	if msat/1000 > maxSat {
		return "", fmt.Errorf("%w: amount above per-payment maximum", ErrPaymentFailed)
	}

	var resp struct {
		PaymentHash string `json:"payment_hash"`
	}
	payload := map[string]any{"out": true, "bolt11": bolt11, "extra": extra}
	if err := c.do(ctx, http.MethodPost, "/api/v1/payments", payload, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	return resp.PaymentHash, nil
}

func (c *LNbitsClient) WalletBalance(ctx context.Context, walletID string) (int64, error) {
	var resp struct {
		Balance int64 `json:"balance"` // msat
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/wallet", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance / 1000, nil
}

func (c *LNbitsClient) FiatEquivalent(ctx context.Context, walletID string, amountSat int64) (float64, error) {
	payload := map[string]any{"from_": "sat", "amount": amountSat, "to": c.cfg.Currency}
	resp := map[string]float64{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/conversion", payload, &resp); err != nil {
		return 0, err
	}
	return resp[c.cfg.Currency], nil
}

func (c *LNbitsClient) SubscribeSettlements(ctx context.Context, consumerTag string) (<-chan Payment, error) {
	out := make(chan Payment)

	go func() {
		defer close(out)
		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.poll(ctx, out); err != nil {
					c.log.WithError(err).Warn("settlement poll failed")
				}
			}
		}
	}()

	return out, nil
}

func (c *LNbitsClient) poll(ctx context.Context, out chan<- Payment) error {
	var payments []struct {
		PaymentHash string         `json:"payment_hash"`
		Amount      int64          `json:"amount"` // msat, positive for incoming
		Pending     bool           `json:"pending"`
		Extra       map[string]any `json:"extra"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/payments?limit=100", nil, &payments); err != nil {
		return err
	}

	for _, p := range payments {
		if p.Pending || p.Amount <= 0 {
			continue
		}

		c.mu.Lock()
		delivered := c.seen[p.PaymentHash]
		processed := c.acked[p.PaymentHash]
		c.seen[p.PaymentHash] = true
		c.mu.Unlock()
		if delivered && processed {
			continue
		}

		select {
		case <-ctx.Done():
			return nil
		case out <- Payment{
			ID:        p.PaymentHash,
			AmountSat: p.Amount / 1000,
			Extra:     p.Extra,
			Processed: processed,
		}:
		}
	}
	return nil
}

func (c *LNbitsClient) MarkSettlementProcessed(ctx context.Context, paymentID string) error {
	c.mu.Lock()
	c.acked[paymentID] = true
	c.mu.Unlock()
	return nil
}
