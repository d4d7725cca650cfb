package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TopLimit      = 5
	RecentLimit   = 5
	ActivityDays  = 30
	OtherProducts = "Altro"
)

var ErrInvalidCompany = errors.New("company_not_found")

// MonthRevenue is the paid revenue of one calendar month in the current and
// the previous year.
type MonthRevenue struct {
	Month    int             `json:"month"`
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
}

type Ranked struct {
	Name  string          `json:"name"`
	Total decimal.Decimal `json:"total"`
}

type RecentInvoice struct {
	ID            snowflake.ID    `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerName  string          `json:"customer_name"`
	IssueDate     time.Time       `json:"issue_date"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
}

type Activity struct {
	Created int `json:"created"`
	Sent    int `json:"sent"`
	Paid    int `json:"paid"`
}

type Stats struct {
	TotalInvoices   int             `json:"total_invoices"`
	TotalCustomers  int             `json:"total_customers"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	PendingInvoices int             `json:"pending_invoices"`

	Monthly  []MonthRevenue `json:"monthly"`
	MoMDelta float64        `json:"mom_delta"`
	YoYDelta float64        `json:"yoy_delta"`

	TopCustomers   []Ranked        `json:"top_customers"`
	TopProducts    []Ranked        `json:"top_products"`
	RecentInvoices []RecentInvoice `json:"recent_invoices"`
	Activity       Activity        `json:"activity"`

	GeneratedAt time.Time `json:"generated_at"`
}

// InvoiceRow is the slice of an invoice the aggregates need.
type InvoiceRow struct {
	ID            snowflake.ID
	CustomerID    snowflake.ID
	CustomerName  string
	InvoiceNumber string
	IssueDate     time.Time
	Status        string
	Total         decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ItemRow struct {
	Description string
	Total       decimal.Decimal
}

type Repository interface {
	// Invoices returns every invoice of the company, newest first.
	Invoices(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]InvoiceRow, error)
	// PaidItems returns the items of the company's paid invoices.
	PaidItems(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]ItemRow, error)
	CountCustomers(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error)
}

type Service interface {
	Stats(ctx context.Context, now time.Time) (Stats, error)
}
