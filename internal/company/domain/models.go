package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const DefaultCountry = "Italia"

// Company is the business profile printed on every invoice. One per owner.
type Company struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID    snowflake.ID `gorm:"not null;uniqueIndex" json:"-"`
	Name       string       `gorm:"not null" json:"name"`
	Address    string       `json:"address"`
	City       string       `json:"city"`
	PostalCode string       `json:"postal_code"`
	Country    string       `gorm:"not null;default:'Italia'" json:"country"`
	VATNumber  string       `json:"vat_number"`
	FiscalCode string       `json:"fiscal_code"`
	Phone      string       `json:"phone"`
	Email      string       `json:"email"`
	LogoKey    string       `json:"logo_key,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Company) TableName() string { return "companies" }

// Profile is the company as returned to clients.
type Profile struct {
	Company
	LogoURL string `json:"logo_url,omitempty"`
}
