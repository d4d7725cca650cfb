package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func TestDelta(t *testing.T) {
	assert.Equal(t, 1.0, Delta(d("10"), decimal.Zero))
	assert.Equal(t, 0.0, Delta(decimal.Zero, decimal.Zero))
	assert.InDelta(t, 0.5, Delta(d("150"), d("100")), 1e-9)
	assert.InDelta(t, -0.25, Delta(d("75"), d("100")), 1e-9)
}

func TestAggregateTotalsAndMonthly(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	old := now.AddDate(0, -3, 0)
	invoices := []domain.InvoiceRow{
		{ID: 1, CustomerID: 10, CustomerName: "Bianchi", IssueDate: day(2025, 3, 5), Status: "paid", Total: d("150.00"), CreatedAt: now, UpdatedAt: now},
		{ID: 2, CustomerID: 11, CustomerName: "Verdi", IssueDate: day(2025, 2, 5), Status: "paid", Total: d("100.00"), CreatedAt: old, UpdatedAt: old},
		{ID: 3, CustomerID: 10, CustomerName: "Bianchi", IssueDate: day(2024, 3, 5), Status: "paid", Total: d("50.005"), CreatedAt: old, UpdatedAt: old},
		{ID: 4, CustomerID: 11, CustomerName: "Verdi", IssueDate: day(2025, 3, 1), Status: "sent", Total: d("80"), CreatedAt: now, UpdatedAt: now},
		{ID: 5, CustomerID: 11, CustomerName: "Verdi", IssueDate: day(2025, 3, 1), Status: "draft", Total: d("5"), CreatedAt: old, UpdatedAt: old},
	}

	stats := Aggregate(now, invoices, nil, 7)

	assert.Equal(t, 5, stats.TotalInvoices)
	assert.Equal(t, 7, stats.TotalCustomers)
	assert.Equal(t, 1, stats.PendingInvoices)
	assert.Equal(t, "300.005", stats.TotalRevenue.String())

	require.Len(t, stats.Monthly, 12)
	assert.Equal(t, 3, stats.Monthly[2].Month)
	assert.Equal(t, "150", stats.Monthly[2].Current.String())
	assert.Equal(t, "50.01", stats.Monthly[2].Previous.String())
	assert.Equal(t, "100", stats.Monthly[1].Current.String())

	assert.InDelta(t, 0.5, stats.MoMDelta, 1e-9)
	assert.InDelta(t, (150-50.01)/50.01, stats.YoYDelta, 1e-9)

	require.Len(t, stats.TopCustomers, 2)
	assert.Equal(t, "Bianchi", stats.TopCustomers[0].Name)
	assert.Equal(t, "200.01", stats.TopCustomers[0].Total.String())

	assert.Equal(t, domain.Activity{Created: 2, Sent: 1, Paid: 1}, stats.Activity)
	require.Len(t, stats.RecentInvoices, 5)
	assert.Equal(t, "Bianchi", stats.RecentInvoices[0].CustomerName)
}

func TestAggregateJanuaryComparesWithDecember(t *testing.T) {
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	invoices := []domain.InvoiceRow{
		{ID: 1, IssueDate: day(2025, 1, 10), Status: "paid", Total: d("120"), CreatedAt: now, UpdatedAt: now},
		{ID: 2, IssueDate: day(2024, 12, 10), Status: "paid", Total: d("100"), CreatedAt: now, UpdatedAt: now},
	}

	stats := Aggregate(now, invoices, nil, 0)
	assert.InDelta(t, 0.2, stats.MoMDelta, 1e-9)
	// nothing was paid in January 2024
	assert.Equal(t, 1.0, stats.YoYDelta)
}

func TestAggregateTopProducts(t *testing.T) {
	items := []domain.ItemRow{
		{Description: "Consulenza", Total: d("100")},
		{Description: "", Total: d("30")},
		{Description: "  ", Total: d("5")},
		{Description: "Hosting", Total: d("20")},
		{Description: "Consulenza", Total: d("50")},
		{Description: "Dominio", Total: d("10")},
		{Description: "Backup", Total: d("1")},
		{Description: "SSL", Total: d("2")},
	}

	stats := Aggregate(time.Now(), nil, items, 0)
	require.Len(t, stats.TopProducts, domain.TopLimit)
	assert.Equal(t, "Consulenza", stats.TopProducts[0].Name)
	assert.Equal(t, "150", stats.TopProducts[0].Total.String())
	assert.Equal(t, domain.OtherProducts, stats.TopProducts[1].Name)
	assert.Equal(t, "35", stats.TopProducts[1].Total.String())
	assert.Equal(t, "SSL", stats.TopProducts[4].Name)
	assert.Empty(t, stats.RecentInvoices)
	assert.Empty(t, stats.TopCustomers)
}
