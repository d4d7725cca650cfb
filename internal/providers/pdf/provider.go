package pdf

import "context"

// Generator renders invoice documents to PDF bytes.
type Generator interface {
	Invoice(ctx context.Context, doc InvoiceDocument) ([]byte, error)
}

// Party is one side of the invoice, already formatted for print.
type Party struct {
	Name  string
	Lines []string
	Email string
}

type Line struct {
	Description string
	Quantity    string
	UnitPrice   string
	Total       string
}

// InvoiceDocument holds every printable value of an invoice. Logo is PNG
// bytes and may be empty.
type InvoiceDocument struct {
	Title     string
	Number    string
	IssueDate string
	DueDate   string
	Status    string

	Company  Party
	Customer Party
	Logo     []byte

	Items []Line

	Subtotal  string
	TaxLabel  string
	TaxAmount string
	Total     string
	Notes     string
}
