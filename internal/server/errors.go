package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	customerdomain "github.com/smallbiznis/invoicer/internal/customer/domain"
	dashboarddomain "github.com/smallbiznis/invoicer/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	signupdomain "github.com/smallbiznis/invoicer/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/invoicer/internal/subscription/domain"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrCompanyNotFound    = errors.New("company_not_found")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{{
			Field:   field,
			Code:    code,
			Message: message,
		}},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{{
				Field:   validationErrorField(code),
				Code:    code,
				Message: validationErrorMessage(code),
			}},
		}
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case isCompanyMissingError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "company_not_found",
			Message: "company not found",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, invoicedomain.ErrFeatureNotAllowed):
		return http.StatusForbidden, errorPayload{
			Type:    err.Error(),
			Message: "this feature requires a higher plan",
		}
	case errors.Is(err, subscriptiondomain.ErrInvoiceLimitReached),
		errors.Is(err, subscriptiondomain.ErrCustomerLimitReached):
		return http.StatusForbidden, errorPayload{
			Type:    domainCode(err, subscriptiondomain.ErrInvoiceLimitReached, subscriptiondomain.ErrCustomerLimitReached),
			Message: "plan limit reached",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    domainCode(err, authdomain.ErrEmailTaken, invoicedomain.ErrNumberTaken, customerdomain.ErrCustomerInUse, subscriptiondomain.ErrAlreadySubscribed),
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "too many requests",
		}
	case errors.Is(err, invoicedomain.ErrEmailFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    err.Error(),
			Message: "email delivery failed",
		}
	case errors.Is(err, numbering.ErrAllocationBusy):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "invoice numbering busy, retry",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, subscriptiondomain.ErrPaymentsDisabled),
		errors.Is(err, companydomain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, companydomain.ErrUnauthorized):
		return true
	default:
		return false
	}
}

func isCompanyMissingError(err error) bool {
	switch {
	case errors.Is(err, ErrCompanyNotFound),
		errors.Is(err, companydomain.ErrCompanyNotFound),
		errors.Is(err, customerdomain.ErrInvalidCompany),
		errors.Is(err, invoicedomain.ErrInvalidCompany),
		errors.Is(err, dashboarddomain.ErrInvalidCompany),
		errors.Is(err, auditdomain.ErrInvalidCompany),
		errors.Is(err, subscriptiondomain.ErrCompanyNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, authdomain.ErrEmailTaken),
		errors.Is(err, invoicedomain.ErrNumberTaken),
		errors.Is(err, customerdomain.ErrCustomerInUse),
		errors.Is(err, subscriptiondomain.ErrAlreadySubscribed):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, signupdomain.ErrInvalidRequest),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, authdomain.ErrInvalidEmail),
		errors.Is(err, authdomain.ErrInvalidPassword),
		errors.Is(err, companydomain.ErrInvalidName),
		errors.Is(err, companydomain.ErrInvalidEmail),
		errors.Is(err, companydomain.ErrInvalidLogo),
		errors.Is(err, companydomain.ErrLogoTooLarge),
		errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrInvalidCustomer),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, invoicedomain.ErrInvalidDate),
		errors.Is(err, invoicedomain.ErrInvalidDueDate),
		errors.Is(err, invoicedomain.ErrInvalidTaxRate),
		errors.Is(err, invoicedomain.ErrInvalidItem),
		errors.Is(err, invoicedomain.ErrMissingRecipient),
		errors.Is(err, invoicedomain.ErrInvalidRecipient),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, subscriptiondomain.ErrUnknownPlan),
		errors.Is(err, subscriptiondomain.ErrInvalidSignature),
		errors.Is(err, subscriptiondomain.ErrInvalidPayload):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, invoicedomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// domainCode returns the code of the first sentinel err wraps.
func domainCode(err error, sentinels ...error) string {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "conflict"
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, signupdomain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, invoicedomain.ErrInvalidDueDate):
		return "invalid_due_date"
	case errors.Is(err, invoicedomain.ErrMissingRecipient):
		return "invalid_to"
	case errors.Is(err, invoicedomain.ErrInvalidRecipient):
		return "invalid_to"
	case errors.Is(err, companydomain.ErrLogoTooLarge):
		return "invalid_logo"
	case errors.Is(err, subscriptiondomain.ErrUnknownPlan):
		return "invalid_plan"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_due_date":
		return "due date must not be before the issue date"
	case "invalid_page_token":
		return "invalid page token"
	default:
		return "invalid value"
	}
}
