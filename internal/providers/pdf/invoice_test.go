package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceRendersPDF(t *testing.T) {
	gen := New()

	out, err := gen.Invoice(context.Background(), InvoiceDocument{
		Number:    "2025-0001",
		IssueDate: "01/02/2025",
		DueDate:   "03/03/2025",
		Status:    "Bozza",
		Company:   Party{Name: "Acme", Lines: []string{"Via Roma 1", "00100 Roma"}, Email: "info@acme.it"},
		Customer:  Party{Name: "Rossi Srl", Lines: []string{"P.IVA IT123"}},
		Items: []Line{
			{Description: "Consulenza", Quantity: "2", UnitPrice: "€50.00", Total: "€100.00"},
		},
		Subtotal:  "€100.00",
		TaxLabel:  "IVA 22%",
		TaxAmount: "€22.00",
		Total:     "€122.00",
		Notes:     "Grazie",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestInvoiceRequiresNumber(t *testing.T) {
	_, err := New().Invoice(context.Background(), InvoiceDocument{})
	assert.ErrorIs(t, err, ErrEmptyDocument)
}
