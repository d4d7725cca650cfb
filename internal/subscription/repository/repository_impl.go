package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Create(sub).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Save(sub).Error
}

func (r *repo) FindByCompany(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (*domain.Subscription, error) {
	return r.findOne(ctx, db, "company_id = ?", companyID)
}

func (r *repo) FindByStripeCustomer(ctx context.Context, db *gorm.DB, customerID string) (*domain.Subscription, error) {
	return r.findOne(ctx, db, "stripe_customer_id = ?", customerID)
}

// InsertPayment ignores replays of an already recorded Stripe invoice.
func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.PaymentHistory) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "stripe_invoice_id"}}, DoNothing: true}).
		Create(payment).Error
}

func (r *repo) ListPayments(ctx context.Context, db *gorm.DB, companyID snowflake.ID, limit int) ([]domain.PaymentHistory, error) {
	var out []domain.PaymentHistory
	err := db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("paid_at desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *repo) CountInvoicesCreated(ctx context.Context, db *gorm.DB, companyID snowflake.ID, from, to time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Table("invoices").
		Where("company_id = ? AND created_at >= ? AND created_at < ?", companyID, from, to).
		Count(&count).Error
	return count, err
}

func (r *repo) CountCustomers(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Table("customers").
		Where("company_id = ?", companyID).
		Count(&count).Error
	return count, err
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := db.WithContext(ctx).Model(&domain.Subscription{}).Where(query, arg).Limit(1).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}
