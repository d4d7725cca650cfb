package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// Insert stores the invoice and its items.
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	ReplaceItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []InvoiceItem) error
	UpdateStatus(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID, status Status, at time.Time) error
	Delete(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter ListFilter, cursor *pagination.Cursor, limit int) ([]*Invoice, error)
	ListAll(ctx context.Context, db *gorm.DB, companyID snowflake.ID, filter ListFilter) ([]*Invoice, error)
	// NumberTaken reports whether another invoice of the company already
	// uses number. exclude is ignored when zero.
	NumberTaken(ctx context.Context, db *gorm.DB, companyID snowflake.ID, number string, exclude snowflake.ID) (bool, error)
	// MarkOverdue flips sent invoices due before day to overdue and returns
	// the affected companies.
	MarkOverdue(ctx context.Context, db *gorm.DB, day time.Time, at time.Time) ([]snowflake.ID, error)
}
