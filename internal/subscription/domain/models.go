// Package domain contains the plan subscription of a company and its payments.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive     Status = "active"
	StatusCanceled   Status = "canceled"
	StatusPastDue    Status = "past_due"
	StatusIncomplete Status = "incomplete"
)

// TrialPeriod is the length of the period granted to new FREE subscriptions.
const TrialPeriod = 30 * 24 * time.Hour

// Subscription is the single plan subscription of a company.
type Subscription struct {
	ID                   snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID            snowflake.ID `gorm:"not null;uniqueIndex" json:"company_id"`
	Plan                 string       `gorm:"not null" json:"plan"`
	Status               Status       `gorm:"type:text;not null" json:"status"`
	StripeCustomerID     *string      `gorm:"index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string      `json:"stripe_subscription_id,omitempty"`
	CurrentPeriodStart   time.Time    `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd     time.Time    `gorm:"not null" json:"current_period_end"`
	CreatedAt            time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt            time.Time    `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

// PaymentHistory records a settled Stripe invoice.
type PaymentHistory struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID    `gorm:"not null;index" json:"company_id"`
	SubscriptionID  snowflake.ID    `gorm:"not null" json:"subscription_id"`
	StripeInvoiceID string          `gorm:"not null;uniqueIndex" json:"stripe_invoice_id"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency        string          `gorm:"not null" json:"currency"`
	Status          string          `gorm:"not null" json:"status"`
	PaidAt          time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
}

func (PaymentHistory) TableName() string { return "payment_history" }

// Usage counts what the plan limits apply to.
type Usage struct {
	InvoicesThisMonth int64 `json:"invoices_this_month"`
	Customers         int64 `json:"customers"`
}

// Overview is the subscription as shown on the settings page.
type Overview struct {
	Subscription       Subscription `json:"subscription"`
	PlanName           string       `json:"plan_name"`
	InvoiceLimit       int          `json:"invoice_limit"`
	CustomerLimit      int          `json:"customer_limit"`
	PriceMonthly       float64      `json:"price_monthly"`
	Currency           string       `json:"currency"`
	Features           []string     `json:"features"`
	Usage              Usage        `json:"usage"`
	RemainingInvoices  int          `json:"remaining_invoices"`
	RemainingCustomers int          `json:"remaining_customers"`
}
