package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sub *Subscription) error
	Save(ctx context.Context, db *gorm.DB, sub *Subscription) error
	FindByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*Subscription, error)
	FindByStripeCustomer(ctx context.Context, db *gorm.DB, customerID string) (*Subscription, error)
	InsertPayment(ctx context.Context, db *gorm.DB, payment *PaymentHistory) error
	ListPayments(ctx context.Context, db *gorm.DB, companyID snowflake.ID, limit int) ([]PaymentHistory, error)
	CountInvoicesCreated(ctx context.Context, db *gorm.DB, companyID snowflake.ID, from, to time.Time) (int64, error)
	CountCustomers(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error)
}
