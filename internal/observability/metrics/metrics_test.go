package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("plan", "PRO"),
		attribute.String("company_id", "456"),
		attribute.String("invoice_id", "789"),
		attribute.String("outcome", "sent"),
	)
	keys := make([]attribute.Key, 0, len(attrs))
	for _, a := range attrs {
		keys = append(keys, a.Key)
	}
	assert.ElementsMatch(t, []attribute.Key{"plan", "outcome"}, keys)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordInvoiceCreated(context.Background(), "FREE")
		m.RecordEmailSent(context.Background(), "sent")
	})

	assert.NotPanics(t, func() {
		NewNop().RecordCheckoutSession(context.Background(), "PRO")
	})
}
