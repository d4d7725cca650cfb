package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const DefaultCountry = "Italia"

type Customer struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID  snowflake.ID `gorm:"not null;index:idx_customers_company_created,priority:1" json:"company_id"`
	Name       string       `gorm:"not null" json:"name"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Address    string       `json:"address"`
	City       string       `json:"city"`
	PostalCode string       `json:"postal_code"`
	Country    string       `gorm:"not null;default:'Italia'" json:"country"`
	VATNumber  string       `json:"vat_number"`
	CreatedAt  time.Time    `gorm:"not null;index:idx_customers_company_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
