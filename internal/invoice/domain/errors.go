package domain

import "errors"

var (
	ErrInvalidCompany    = errors.New("company_not_found")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("invoice_not_found")
	ErrInvalidCustomer   = errors.New("invalid_customer")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidDate       = errors.New("invalid_date")
	ErrInvalidDueDate    = errors.New("due_date_before_issue_date")
	ErrInvalidTaxRate    = errors.New("invalid_tax_rate")
	ErrInvalidItem       = errors.New("invalid_item")
	ErrNumberTaken       = errors.New("invoice_number_taken")
	ErrFeatureNotAllowed = errors.New("feature_not_available")
	ErrMissingRecipient  = errors.New("missing_recipient")
	ErrInvalidRecipient  = errors.New("invalid_recipient")
	ErrEmailFailed       = errors.New("email_send_failed")
)
