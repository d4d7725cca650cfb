package domain

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type UpdateCompanyRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Address    string `json:"address" validate:"max=300"`
	City       string `json:"city" validate:"max=120"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=80"`
	VATNumber  string `json:"vat_number" validate:"max=40"`
	FiscalCode string `json:"fiscal_code" validate:"max=40"`
	Phone      string `json:"phone" validate:"max=40"`
	Email      string `json:"email" validate:"omitempty,email"`
}

type CreateCompanyRequest struct {
	OwnerID snowflake.ID
	Name    string
	Email   string
}

type Service interface {
	// Create inserts a company for a new owner using tx.
	Create(ctx context.Context, tx *gorm.DB, req CreateCompanyRequest) (*Company, error)
	// ResolveID returns the company owned by the user, or 0 when none exists.
	ResolveID(ctx context.Context, ownerID snowflake.ID) (snowflake.ID, error)
	Get(ctx context.Context) (Profile, error)
	Update(ctx context.Context, req UpdateCompanyRequest) (Profile, error)
	UploadLogo(ctx context.Context, filename string, r io.Reader) (Profile, error)
	RemoveLogo(ctx context.Context) (Profile, error)
	// Logo returns the stored logo bytes, or nil when the company has none.
	Logo(ctx context.Context, companyID snowflake.ID) ([]byte, error)
}
