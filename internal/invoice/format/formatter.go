// Package format turns invoice values into the strings shown on documents,
// emails and exports.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

const lang = "it"

var statusLabels = map[string]string{
	"draft":   "Bozza",
	"sent":    "Inviata",
	"paid":    "Pagata",
	"overdue": "Scaduta",
}

// Money renders an amount in euro with two decimals, e.g. €1234.50.
func Money(amount decimal.Decimal) string {
	return "€" + amount.StringFixed(2)
}

// Quantity drops trailing zeros: 2 stays 2, 1.50 becomes 1.5.
func Quantity(q decimal.Decimal) string {
	return q.String()
}

// Percent renders a tax rate such as 22 or 4.5 followed by %.
func Percent(rate decimal.Decimal) string {
	return rate.String() + "%"
}

// Date uses the day/month/year order of Italian documents.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// StatusLabel returns the Italian label of an invoice status, or the raw
// value when it is unknown.
func StatusLabel(status string) string {
	if label, ok := statusLabels[strings.ToLower(status)]; ok {
		return label
	}
	return status
}

// Subject is the email subject line for an invoice.
func Subject(number, company string) string {
	return fmt.Sprintf("Fattura %s - %s", number, company)
}

// PDFFilename is the attachment and download name of an invoice PDF.
func PDFFilename(number string) string {
	return fmt.Sprintf("Fattura_%s.pdf", safe(number, "fattura"))
}

// CSVFilename names an export of the company's invoices taken at day.
func CSVFilename(company string, day time.Time) string {
	return fmt.Sprintf("fatture-%s-%s.csv", safe(company, "azienda"), day.Format("20060102"))
}

func safe(value, fallback string) string {
	s := slug.MakeLang(value, lang)
	if s == "" {
		return fallback
	}
	return s
}
