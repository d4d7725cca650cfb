package domain

import "errors"

var (
	ErrCompanyNotFound    = errors.New("company_not_found")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidLogo        = errors.New("invalid_logo")
	ErrLogoTooLarge       = errors.New("logo_too_large")
	ErrStorageUnavailable = errors.New("storage_unavailable")
	ErrUnauthorized       = errors.New("unauthorized")
)
