package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/config"
	"gorm.io/gorm"
)

type Service interface {
	// Provision creates the FREE subscription of a new company through tx.
	Provision(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (*Subscription, error)
	// Current returns the company's subscription, creating a FREE one if missing.
	Current(ctx context.Context) (*Subscription, error)
	Plan(ctx context.Context) (config.Plan, error)
	Usage(ctx context.Context, now time.Time) (Usage, error)
	Overview(ctx context.Context, now time.Time) (Overview, error)
	CanCreateInvoice(ctx context.Context, now time.Time) error
	CanCreateCustomer(ctx context.Context) error
	Payments(ctx context.Context) ([]PaymentHistory, error)
	// Checkout starts a Stripe checkout for plan and returns its URL.
	Checkout(ctx context.Context, plan string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// Remaining is -1 for unlimited plans, otherwise the non-negative headroom.
func Remaining(limit int, used int64) int {
	if limit == config.Unlimited {
		return config.Unlimited
	}
	left := int64(limit) - used
	if left < 0 {
		return 0
	}
	return int(left)
}

var (
	ErrCompanyNotFound      = errors.New("company_not_found")
	ErrInvoiceLimitReached  = errors.New("invoice_limit_reached")
	ErrCustomerLimitReached = errors.New("customer_limit_reached")
	ErrUnknownPlan          = errors.New("unknown_plan")
	ErrAlreadySubscribed    = errors.New("already_subscribed")
	ErrPaymentsDisabled     = errors.New("payments_not_configured")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrInvalidPayload       = errors.New("invalid_payload")
)
