package service

import (
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
)

const (
	statusPaid = "paid"
	statusSent = "sent"
)

// Aggregate computes the dashboard from raw rows. invoices must be ordered
// newest first.
func Aggregate(now time.Time, invoices []domain.InvoiceRow, items []domain.ItemRow, customers int64) domain.Stats {
	now = now.UTC()
	year := now.Year()

	stats := domain.Stats{
		TotalInvoices:  len(invoices),
		TotalCustomers: int(customers),
		TotalRevenue:   decimal.Zero,
		GeneratedAt:    now,
	}

	current := make([]decimal.Decimal, 12)
	previous := make([]decimal.Decimal, 12)
	byCustomer := map[snowflake.ID]*domain.Ranked{}
	since := now.AddDate(0, 0, -domain.ActivityDays)

	for _, inv := range invoices {
		if !inv.CreatedAt.Before(since) {
			stats.Activity.Created++
		}

		switch inv.Status {
		case statusSent:
			stats.PendingInvoices++
			if !inv.UpdatedAt.Before(since) {
				stats.Activity.Sent++
			}
		case statusPaid:
			if !inv.UpdatedAt.Before(since) {
				stats.Activity.Paid++
			}
			stats.TotalRevenue = stats.TotalRevenue.Add(inv.Total)

			month := int(inv.IssueDate.Month()) - 1
			switch inv.IssueDate.Year() {
			case year:
				current[month] = current[month].Add(inv.Total)
			case year - 1:
				previous[month] = previous[month].Add(inv.Total)
			}

			ranked, ok := byCustomer[inv.CustomerID]
			if !ok {
				ranked = &domain.Ranked{Name: inv.CustomerName, Total: decimal.Zero}
				byCustomer[inv.CustomerID] = ranked
			}
			ranked.Total = ranked.Total.Add(inv.Total)
		}
	}

	stats.Monthly = make([]domain.MonthRevenue, 12)
	for i := range stats.Monthly {
		stats.Monthly[i] = domain.MonthRevenue{
			Month:    i + 1,
			Current:  current[i].Round(2),
			Previous: previous[i].Round(2),
		}
	}

	m := int(now.Month()) - 1
	thisMonth := stats.Monthly[m].Current
	lastMonth := stats.Monthly[11].Previous
	if m > 0 {
		lastMonth = stats.Monthly[m-1].Current
	}
	stats.MoMDelta = Delta(thisMonth, lastMonth)
	stats.YoYDelta = Delta(thisMonth, stats.Monthly[m].Previous)

	customerTotals := make([]domain.Ranked, 0, len(byCustomer))
	for _, r := range byCustomer {
		customerTotals = append(customerTotals, *r)
	}
	stats.TopCustomers = top(customerTotals)

	byProduct := map[string]decimal.Decimal{}
	for _, item := range items {
		key := strings.TrimSpace(item.Description)
		if key == "" {
			key = domain.OtherProducts
		}
		byProduct[key] = byProduct[key].Add(item.Total)
	}
	productTotals := make([]domain.Ranked, 0, len(byProduct))
	for name, total := range byProduct {
		productTotals = append(productTotals, domain.Ranked{Name: name, Total: total})
	}
	stats.TopProducts = top(productTotals)

	stats.RecentInvoices = make([]domain.RecentInvoice, 0, domain.RecentLimit)
	for _, inv := range invoices {
		if len(stats.RecentInvoices) == domain.RecentLimit {
			break
		}
		stats.RecentInvoices = append(stats.RecentInvoices, domain.RecentInvoice{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			CustomerName:  inv.CustomerName,
			IssueDate:     inv.IssueDate,
			Status:        inv.Status,
			Total:         inv.Total,
		})
	}

	return stats
}

// Delta is the relative change from base to value. A zero base yields 1 when
// value is positive and 0 otherwise.
func Delta(value, base decimal.Decimal) float64 {
	if base.IsZero() {
		if value.IsPositive() {
			return 1
		}
		return 0
	}
	return value.Sub(base).Div(base).InexactFloat64()
}

func top(items []domain.Ranked) []domain.Ranked {
	sort.Slice(items, func(i, j int) bool {
		if c := items[i].Total.Cmp(items[j].Total); c != 0 {
			return c > 0
		}
		return items[i].Name < items[j].Name
	})
	if len(items) > domain.TopLimit {
		items = items[:domain.TopLimit]
	}
	for i := range items {
		items[i].Total = items[i].Total.Round(2)
	}
	return items
}
