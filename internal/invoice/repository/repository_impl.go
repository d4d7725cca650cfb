package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/pkg/db/option"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"github.com/smallbiznis/invoicer/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const listColumns = "invoices.*, customers.name AS customer_name"

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error; err != nil {
		return err
	}
	return r.insertItems(ctx, db, invoice.ID, invoice.Items)
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET customer_id = ?, invoice_number = ?, issue_date = ?, due_date = ?, status = ?,
		 tax_rate = ?, subtotal = ?, tax_amount = ?, total = ?, notes = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		invoice.CustomerID,
		invoice.InvoiceNumber,
		invoice.IssueDate,
		invoice.DueDate,
		invoice.Status,
		invoice.TaxRate,
		invoice.Subtotal,
		invoice.TaxAmount,
		invoice.Total,
		invoice.Notes,
		invoice.UpdatedAt,
		invoice.CompanyID,
		invoice.ID,
	).Error
}

func (r *repo) ReplaceItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []domain.InvoiceItem) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM invoice_items WHERE invoice_id = ?`, invoiceID).Error; err != nil {
		return err
	}
	return r.insertItems(ctx, db, invoiceID, items)
}

func (r *repo) insertItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []domain.InvoiceItem) error {
	if len(items) == 0 {
		return nil
	}
	store := repository.ProvideStore[domain.InvoiceItem](db)
	for i := range items {
		items[i].InvoiceID = invoiceID
		if err := store.Create(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, status domain.Status, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE company_id = ? AND id = ?`,
		status, at, companyID, id,
	).Error
}

// Delete removes the items explicitly so that drivers without foreign key
// enforcement behave like the cascading schema.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_items WHERE invoice_id IN (SELECT id FROM invoices WHERE company_id = ? AND id = ?)`,
		companyID, id,
	).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(
		`DELETE FROM invoices WHERE company_id = ? AND id = ?`, companyID, id,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.base(ctx, db, companyID).
		Where("invoices.id = ?", id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}

	items, err := repository.ProvideStore[domain.InvoiceItem](db).Find(ctx,
		&domain.InvoiceItem{InvoiceID: invoice.ID},
		option.WithSortBy("position", "asc"),
	)
	if err != nil {
		return nil, err
	}
	invoice.Items = make([]domain.InvoiceItem, 0, len(items))
	for _, item := range items {
		if item != nil {
			invoice.Items = append(invoice.Items, *item)
		}
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter domain.ListFilter, cursor *pagination.Cursor, limit int) ([]*domain.Invoice, error) {
	stmt := r.filtered(ctx, db, companyID, filter)
	if cursor != nil {
		createdAt, _ := cursor.Time()
		stmt = stmt.Where(
			"((invoices.created_at < ?) OR (invoices.created_at = ? AND invoices.id < ?))",
			createdAt, createdAt, cursor.ID,
		)
	}

	var invoices []*domain.Invoice
	err := stmt.
		Order("invoices.created_at desc, invoices.id desc").
		Limit(limit + 1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter domain.ListFilter) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	err := r.filtered(ctx, db, companyID, filter).
		Order("invoices.issue_date asc, invoices.invoice_number asc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) NumberTaken(ctx context.Context, db *gorm.DB, companyID snowflake.ID, number string, exclude snowflake.ID) (bool, error) {
	stmt := db.WithContext(ctx).Table("invoices").
		Where("company_id = ? AND invoice_number = ?", companyID, number)
	if exclude != 0 {
		stmt = stmt.Where("id <> ?", exclude)
	}
	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, day time.Time, at time.Time) ([]snowflake.ID, error) {
	var companies []snowflake.ID
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table("invoices").
			Where("status = ? AND due_date < ?", domain.StatusSent, day).
			Distinct("company_id").
			Pluck("company_id", &companies).Error; err != nil {
			return err
		}
		if len(companies) == 0 {
			return nil
		}
		return tx.Exec(
			`UPDATE invoices SET status = ?, updated_at = ? WHERE status = ? AND due_date < ?`,
			domain.StatusOverdue, at, domain.StatusSent, day,
		).Error
	})
	if err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *repo) base(ctx context.Context, db *gorm.DB, companyID snowflake.ID) *gorm.DB {
	return db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Select(listColumns).
		Joins("LEFT JOIN customers ON customers.id = invoices.customer_id").
		Where("invoices.company_id = ?", companyID)
}

func (r *repo) filtered(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter domain.ListFilter) *gorm.DB {
	stmt := r.base(ctx, db, companyID)
	if filter.Status != "" {
		stmt = stmt.Where("invoices.status = ?", filter.Status)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		like := "%" + escapeLike(search) + "%"
		stmt = stmt.Where(
			`(LOWER(invoices.invoice_number) LIKE ? ESCAPE '!' OR LOWER(customers.name) LIKE ? ESCAPE '!')`,
			like, like,
		)
	}
	return stmt
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
