package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/observability/tracing"
	"go.uber.org/zap"
)

const clientTimeout = 20 * time.Second

// Client calls the Stripe REST API with form encoded bodies.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
	log       *zap.Logger
}

type CheckoutParams struct {
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
	CompanyID  string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	base := strings.TrimRight(cfg.Stripe.BaseURL, "/")
	if base == "" {
		base = "https://api.stripe.com"
	}
	return &Client{
		secretKey: cfg.Stripe.SecretKey,
		baseURL:   base,
		http:      tracing.WrapHTTPClient(&http.Client{Timeout: clientTimeout}),
		log:       log.Named("stripe.client"),
	}
}

// Configured reports whether a secret key is set.
func (c *Client) Configured() bool {
	return c != nil && c.secretKey != ""
}

func (c *Client) CreateCustomer(ctx context.Context, email, name, companyID string) (string, error) {
	form := url.Values{}
	if email != "" {
		form.Set("email", email)
	}
	if name != "" {
		form.Set("name", name)
	}
	form.Set("metadata[company_id]", companyID)

	var out struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/customers", form, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("customer", p.CustomerID)
	form.Set("line_items[0][price]", p.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("client_reference_id", p.CompanyID)
	form.Set("metadata[company_id]", p.CompanyID)
	form.Set("subscription_data[metadata][company_id]", p.CompanyID)

	var out CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", form, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stripe %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		c.log.Warn("stripe request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Error.Code),
		)
		return fmt.Errorf("stripe %s: status %d: %s", path, resp.StatusCode, apiErr.Error.Message)
	}
	return json.Unmarshal(body, out)
}
