package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEmail(t *testing.T) {
	r := NewRenderer()

	out, err := r.RenderEmail(EmailInput{
		Subject:       "Fattura 2025-0001 - Acme",
		CompanyName:   "Acme",
		CustomerName:  "Rossi <Mario>",
		InvoiceNumber: "2025-0001",
		IssueDate:     "01/02/2025",
		DueDate:       "03/03/2025",
		Status:        "Inviata",
		Total:         "€122.00",
		Notes:         "Pagamento a 30 giorni",
	})
	require.NoError(t, err)

	assert.Equal(t, "Fattura 2025-0001 - Acme", out.Subject)
	assert.Contains(t, out.HTML, "Rossi &lt;Mario&gt;")
	assert.Contains(t, out.HTML, "€122.00")
	assert.Contains(t, out.HTML, "Pagamento a 30 giorni")
	assert.Contains(t, out.Text, "Ciao Rossi <Mario>,")
	assert.Contains(t, out.Text, "- Stato: Inviata")
	assert.Contains(t, out.Text, "Note: Pagamento a 30 giorni")
}

func TestRenderEmailCustomMessageAndNoNotes(t *testing.T) {
	out, err := NewRenderer().RenderEmail(EmailInput{
		CompanyName:   "Acme",
		InvoiceNumber: "2025-0002",
		Message:       "  Ecco la fattura di marzo.  ",
	})
	require.NoError(t, err)

	assert.Contains(t, out.Text, "Ciao Cliente,")
	assert.Contains(t, out.Text, "Ecco la fattura di marzo.")
	assert.NotContains(t, out.Text, "Ti inviamo la fattura")
	assert.NotContains(t, out.HTML, "Note:")
}
