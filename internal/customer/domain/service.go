package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/invoicer/pkg/db/pagination"
)

type ListCustomerRequest struct {
	pagination.Pagination
	Search string `form:"search"`
}

type ListCustomerFilter struct {
	Search string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

// CustomerRequest is the full set of editable fields, used for create and
// replace alike.
type CustomerRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone" validate:"max=40"`
	Address    string `json:"address" validate:"max=300"`
	City       string `json:"city" validate:"max=120"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=80"`
	VATNumber  string `json:"vat_number" validate:"max=40"`
}

type Service interface {
	Create(ctx context.Context, req CustomerRequest) (Customer, error)
	Update(ctx context.Context, id string, req CustomerRequest) (Customer, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Customer, error)
	List(ctx context.Context, req ListCustomerRequest) (ListCustomerResponse, error)
}

var (
	ErrInvalidCompany = errors.New("company_not_found")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidEmail   = errors.New("invalid_email")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("customer_not_found")
	ErrCustomerInUse  = errors.New("customer_in_use")
)
