// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusSent    Status = "sent"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

const (
	DefaultDueDays = 30
	DateLayout     = "2006-01-02"
)

var DefaultTaxRate = decimal.NewFromInt(22)

// Invoice is one numbered invoice of a company. Items are replaced
// wholesale on every save.
type Invoice struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID    `gorm:"not null;uniqueIndex:ux_invoices_company_number,priority:1;index:idx_invoices_company_created,priority:1" json:"company_id"`
	CustomerID    snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	InvoiceNumber string          `gorm:"size:32;not null;uniqueIndex:ux_invoices_company_number,priority:2" json:"invoice_number"`
	IssueDate     time.Time       `gorm:"not null" json:"issue_date"`
	DueDate       time.Time       `gorm:"not null;index" json:"due_date"`
	Status        Status          `gorm:"size:16;not null;default:'draft'" json:"status"`
	TaxRate       decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	TaxAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax_amount"`
	Total         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `gorm:"not null;index:idx_invoices_company_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null" json:"updated_at"`

	CustomerName string        `gorm:"->;-:migration" json:"customer_name,omitempty"`
	Items        []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Invoice) TableName() string { return "invoices" }

type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index:idx_invoice_items_invoice_position,priority:1" json:"invoice_id"`
	Position    int             `gorm:"not null;index:idx_invoice_items_invoice_position,priority:2" json:"position"`
	Description string          `gorm:"not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }
