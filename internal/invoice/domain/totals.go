package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Totals are the derived amounts of an invoice.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// LineTotal is quantity times unit price, rounded to cents.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// ComputeTotals sums the line totals and applies taxRate, a percentage.
func ComputeTotals(items []InvoiceItem, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Total)
	}
	tax := subtotal.Mul(taxRate).Div(hundred).Round(2)
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax).Round(2),
	}
}

// ApplyTotals recomputes every line total and the invoice amounts in place.
func (inv *Invoice) ApplyTotals() {
	for i := range inv.Items {
		inv.Items[i].Position = i
		inv.Items[i].Total = LineTotal(inv.Items[i].Quantity, inv.Items[i].UnitPrice)
	}
	t := ComputeTotals(inv.Items, inv.TaxRate)
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
}
