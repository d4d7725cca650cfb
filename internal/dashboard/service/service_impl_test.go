package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/invoicer/internal/companycontext"
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"github.com/smallbiznis/invoicer/internal/dashboard/repository"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatsCachedUntilInvalidated(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE customers (id INTEGER PRIMARY KEY, company_id INTEGER, name TEXT)`).Error)
	require.NoError(t, conn.Exec(`CREATE TABLE invoices (id INTEGER PRIMARY KEY, company_id INTEGER, customer_id INTEGER,
		invoice_number TEXT, issue_date DATETIME, status TEXT, total NUMERIC, created_at DATETIME, updated_at DATETIME)`).Error)
	require.NoError(t, conn.Exec(`CREATE TABLE invoice_items (id INTEGER PRIMARY KEY, invoice_id INTEGER, description TEXT, total NUMERIC)`).Error)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Exec(`INSERT INTO customers (id, company_id, name) VALUES (10, 1, 'Bianchi'), (11, 2, 'Altro cliente')`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO invoices VALUES (100, 1, 10, '2025-0001', ?, 'paid', 120.50, ?, ?)`, now, now, now).Error)
	require.NoError(t, conn.Exec(`INSERT INTO invoice_items VALUES (1000, 100, 'Consulenza', 120.50)`).Error)

	svc := New(Params{DB: conn, Log: zap.NewNop(), Repo: repository.Provide()})
	ctx := companycontext.WithCompanyID(context.Background(), 1)

	stats, err := svc.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalInvoices)
	assert.Equal(t, 1, stats.TotalCustomers)
	assert.Equal(t, "120.5", stats.TotalRevenue.String())
	require.Len(t, stats.TopProducts, 1)
	assert.Equal(t, "Consulenza", stats.TopProducts[0].Name)
	require.Len(t, stats.RecentInvoices, 1)
	assert.Equal(t, "2025-0001", stats.RecentInvoices[0].InvoiceNumber)

	require.NoError(t, conn.Exec(`INSERT INTO invoices VALUES (101, 1, 10, '2025-0002', ?, 'sent', 10, ?, ?)`, now, now, now).Error)

	cached, err := svc.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.TotalInvoices)

	svc.Invalidate(1)
	fresh, err := svc.Stats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalInvoices)
	assert.Equal(t, 1, fresh.PendingInvoices)

	_, err = svc.Stats(context.Background(), now)
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)
}
