package client

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type Customer struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	VATNumber  string    `json:"vat_number"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c *Customer) EntityID() string          { return c.ID }
func (c *Customer) SetEntityID(id string)     { c.ID = id }
func (c *Customer) Touch(updatedAt time.Time) { c.UpdatedAt = updatedAt }
func (c *Customer) SetTimestamps(createdAt, updatedAt time.Time) {
	c.CreatedAt = createdAt
	c.UpdatedAt = updatedAt
}

type customerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	VATNumber  string `json:"vat_number"`
}

func (c Customer) request() customerRequest {
	return customerRequest{
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		Address:    c.Address,
		City:       c.City,
		PostalCode: c.PostalCode,
		Country:    c.Country,
		VATNumber:  c.VATNumber,
	}
}

type InvoiceItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type Invoice struct {
	ID            string          `json:"id"`
	CustomerID    string          `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	InvoiceNumber string          `json:"invoice_number"`
	IssueDate     time.Time       `json:"issue_date"`
	DueDate       time.Time       `json:"due_date"`
	Status        string           `json:"status"`
	TaxRate       *decimal.Decimal `json:"tax_rate"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	Total         decimal.Decimal `json:"total"`
	Notes         string          `json:"notes"`
	Items         []InvoiceItem   `json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (i *Invoice) EntityID() string          { return i.ID }
func (i *Invoice) SetEntityID(id string)     { i.ID = id }
func (i *Invoice) Touch(updatedAt time.Time) { i.UpdatedAt = updatedAt }
func (i *Invoice) SetTimestamps(createdAt, updatedAt time.Time) {
	i.CreatedAt = createdAt
	i.UpdatedAt = updatedAt
}

// Clone copies the item slice so a rollback snapshot is not shared.
func (i Invoice) Clone() Invoice {
	i.Items = slices.Clone(i.Items)
	return i
}

type itemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type invoiceRequest struct {
	CustomerID    string           `json:"customer_id"`
	InvoiceNumber string           `json:"invoice_number,omitempty"`
	IssueDate     string           `json:"issue_date,omitempty"`
	DueDate       string           `json:"due_date,omitempty"`
	Status        string           `json:"status,omitempty"`
	TaxRate       *decimal.Decimal `json:"tax_rate,omitempty"`
	Notes         string           `json:"notes"`
	Items         []itemRequest    `json:"items"`
}

func (i Invoice) request() invoiceRequest {
	req := invoiceRequest{
		CustomerID:    i.CustomerID,
		InvoiceNumber: i.InvoiceNumber,
		Status:        i.Status,
		Notes:         i.Notes,
		Items:         make([]itemRequest, 0, len(i.Items)),
	}
	if !i.IssueDate.IsZero() {
		req.IssueDate = i.IssueDate.Format(dateLayout)
	}
	if !i.DueDate.IsZero() {
		req.DueDate = i.DueDate.Format(dateLayout)
	}
	if i.TaxRate != nil {
		rate := *i.TaxRate
		req.TaxRate = &rate
	}
	for _, item := range i.Items {
		req.Items = append(req.Items, itemRequest{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return req
}
