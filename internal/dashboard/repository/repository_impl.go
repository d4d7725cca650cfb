package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Invoices(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]domain.InvoiceRow, error) {
	var rows []domain.InvoiceRow
	err := db.WithContext(ctx).
		Table("invoices").
		Select(`invoices.id, invoices.customer_id, customers.name AS customer_name,
			invoices.invoice_number, invoices.issue_date, invoices.status, invoices.total,
			invoices.created_at, invoices.updated_at`).
		Joins("LEFT JOIN customers ON customers.id = invoices.customer_id").
		Where("invoices.company_id = ?", companyID).
		Order("invoices.created_at desc, invoices.id desc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) PaidItems(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]domain.ItemRow, error) {
	var rows []domain.ItemRow
	err := db.WithContext(ctx).
		Table("invoice_items").
		Select("invoice_items.description, invoice_items.total").
		Joins("JOIN invoices ON invoices.id = invoice_items.invoice_id").
		Where("invoices.company_id = ? AND invoices.status = ?", companyID, "paid").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountCustomers(ctx context.Context, db *gorm.DB, companyID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("customers").
		Where("company_id = ?", companyID).
		Count(&count).Error
	return count, err
}
