package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
)

type ItemRequest struct {
	Description string          `json:"description" validate:"max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// InvoiceRequest carries every editable field. Empty values fall back to
// defaults on create and to the stored value on update.
type InvoiceRequest struct {
	CustomerID    string           `json:"customer_id" validate:"required"`
	InvoiceNumber string           `json:"invoice_number" validate:"max=32"`
	IssueDate     string           `json:"issue_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate       string           `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Status        Status           `json:"status" validate:"omitempty,oneof=draft sent paid overdue"`
	TaxRate       *decimal.Decimal `json:"tax_rate"`
	Notes         string           `json:"notes" validate:"max=4000"`
	Items         []ItemRequest    `json:"items" validate:"dive"`
}

type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=draft sent paid overdue"`
}

type SendEmailRequest struct {
	To      string `json:"to" validate:"omitempty,email"`
	Message string `json:"message" validate:"max=4000"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Search string `form:"search"`
	Status string `form:"status"`
}

type ListFilter struct {
	Search string
	Status Status
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Document is a rendered file ready for download or attachment.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Service interface {
	Create(ctx context.Context, req InvoiceRequest) (Invoice, error)
	Update(ctx context.Context, id string, req InvoiceRequest) (Invoice, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Invoice, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	// NextNumber previews the number the next create would receive.
	NextNumber(ctx context.Context) (string, error)
	RenderPDF(ctx context.Context, id string) (Document, error)
	SendEmail(ctx context.Context, id string, req SendEmailRequest) (Invoice, error)
	ExportCSV(ctx context.Context, filter ListFilter) (Document, error)
	// MarkOverdue runs across all companies and returns the number of
	// companies touched.
	MarkOverdue(ctx context.Context, now time.Time) (int, error)
}
