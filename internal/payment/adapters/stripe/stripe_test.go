package stripe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"invoice.payment_succeeded","data":{"object":{}}}`)
	now := time.Now()

	header := SignatureFor(payload, secret, now)
	require.NoError(t, Verify(payload, header, secret, now, DefaultTolerance))

	assert.ErrorIs(t, Verify(payload, SignatureFor(payload, "wrong", now), secret, now, DefaultTolerance), ErrInvalidSignature)
	assert.ErrorIs(t, Verify([]byte(`{"tampered":true}`), header, secret, now, DefaultTolerance), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(payload, "", secret, now, DefaultTolerance), ErrInvalidSignature)
	assert.ErrorIs(t, Verify(payload, header, "", now, DefaultTolerance), ErrNotConfigured)
}

func TestVerifyTolerance(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{}`)
	signedAt := time.Unix(1_700_000_000, 0)
	header := SignatureFor(payload, secret, signedAt)

	assert.NoError(t, Verify(payload, header, secret, signedAt.Add(4*time.Minute), DefaultTolerance))
	assert.ErrorIs(t, Verify(payload, header, secret, signedAt.Add(6*time.Minute), DefaultTolerance), ErrInvalidSignature)
}

func TestParseSubscriptionEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1", "type": "customer.subscription.updated", "created": 1700000000,
		"data": {"object": {
			"id": "sub_1", "customer": "cus_1", "status": "active",
			"items": {"data": [{"current_period_start": 1700000000, "current_period_end": 1702592000, "price": {"id": "price_pro"}}]}
		}}
	}`)

	event, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionUpdated, event.Type)

	sub, err := event.Subscription()
	require.NoError(t, err)
	assert.Equal(t, "price_pro", sub.PriceID())
	start, end := sub.Period()
	assert.Equal(t, int64(1700000000), start.Unix())
	assert.Equal(t, int64(1702592000), end.Unix())

	_, err = ParseEvent([]byte(`{"type":"x"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestCreateCheckoutSession(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		body, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(body))
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.test/cs_1"}`))
	}))
	defer srv.Close()

	client := NewClient(config.Config{Stripe: config.StripeConfig{SecretKey: "sk_test", BaseURL: srv.URL}}, zap.NewNop())
	session, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		CustomerID: "cus_1",
		PriceID:    "price_pro",
		SuccessURL: "http://app/ok",
		CancelURL:  "http://app/ko",
		CompanyID:  "42",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/cs_1", session.URL)
	assert.Equal(t, "subscription", got.Get("mode"))
	assert.Equal(t, "price_pro", got.Get("line_items[0][price]"))
	assert.Equal(t, "42", got.Get("subscription_data[metadata][company_id]"))
}

func TestClientErrorsAndUnconfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price"}}`))
	}))
	defer srv.Close()

	client := NewClient(config.Config{Stripe: config.StripeConfig{SecretKey: "sk_test", BaseURL: srv.URL}}, zap.NewNop())
	_, err := client.CreateCustomer(context.Background(), "a@b.it", "A", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such price")

	unconfigured := NewClient(config.Config{}, zap.NewNop())
	_, err = unconfigured.CreateCustomer(context.Background(), "a@b.it", "A", "1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
