package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	customerdomain "github.com/smallbiznis/invoicer/internal/customer/domain"
	dashboarddomain "github.com/smallbiznis/invoicer/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	signupdomain "github.com/smallbiznis/invoicer/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/invoicer/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	tokenWithCompany = "token-company"
	tokenNoCompany   = "token-user"
)

var (
	testUserID    = snowflake.ID(101)
	testCompanyID = snowflake.ID(202)
)

type fakeAuth struct {
	authdomain.Service
	loginErr error
}

func (f *fakeAuth) Authenticate(_ context.Context, raw string) (*authdomain.Identity, error) {
	switch raw {
	case tokenWithCompany:
		return &authdomain.Identity{UserID: testUserID, CompanyID: testCompanyID, Email: "owner@example.com"}, nil
	case tokenNoCompany:
		return &authdomain.Identity{UserID: testUserID, Email: "owner@example.com"}, nil
	default:
		return nil, authdomain.ErrUnauthorized
	}
}

func (f *fakeAuth) Login(_ context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &authdomain.LoginResult{
		Token: "signed",
		User:  &authdomain.User{ID: testUserID, Email: req.Email},
	}, nil
}

func (f *fakeAuth) CurrentUser(ctx context.Context) (*authdomain.User, error) {
	userID, ok := companycontext.UserIDFromContext(ctx)
	if !ok {
		return nil, authdomain.ErrUnauthorized
	}
	return &authdomain.User{ID: userID, Email: "owner@example.com"}, nil
}

type fakeSignup struct {
	err error
	got signupdomain.Request
}

func (f *fakeSignup) Signup(_ context.Context, req signupdomain.Request) (*authdomain.LoginResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &authdomain.LoginResult{Token: "signed", CompanyID: testCompanyID}, nil
}

type fakeCustomers struct {
	customerdomain.Service
	createErr   error
	deleteErr   error
	seenCompany snowflake.ID
}

func (f *fakeCustomers) Create(ctx context.Context, req customerdomain.CustomerRequest) (customerdomain.Customer, error) {
	f.seenCompany, _ = companycontext.CompanyIDFromContext(ctx)
	if f.createErr != nil {
		return customerdomain.Customer{}, f.createErr
	}
	return customerdomain.Customer{ID: 7, Name: req.Name}, nil
}

func (f *fakeCustomers) List(ctx context.Context, req customerdomain.ListCustomerRequest) (customerdomain.ListCustomerResponse, error) {
	f.seenCompany, _ = companycontext.CompanyIDFromContext(ctx)
	return customerdomain.ListCustomerResponse{}, nil
}

func (f *fakeCustomers) Delete(_ context.Context, _ string) error {
	return f.deleteErr
}

type fakeInvoices struct {
	invoicedomain.Service
	createErr error
	getCalls  int
	emailReq  invoicedomain.SendEmailRequest
}

func (f *fakeInvoices) Create(_ context.Context, _ invoicedomain.InvoiceRequest) (invoicedomain.Invoice, error) {
	if f.createErr != nil {
		return invoicedomain.Invoice{}, f.createErr
	}
	return invoicedomain.Invoice{ID: 9, InvoiceNumber: "2026-0001"}, nil
}

func (f *fakeInvoices) GetByID(_ context.Context, id string) (invoicedomain.Invoice, error) {
	f.getCalls++
	return invoicedomain.Invoice{}, invoicedomain.ErrNotFound
}

func (f *fakeInvoices) NextNumber(_ context.Context) (string, error) {
	return "2026-0042", nil
}

func (f *fakeInvoices) RenderPDF(_ context.Context, id string) (invoicedomain.Document, error) {
	return invoicedomain.Document{
		Filename:    "Fattura_2026-0001.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4"),
	}, nil
}

func (f *fakeInvoices) SendEmail(_ context.Context, _ string, req invoicedomain.SendEmailRequest) (invoicedomain.Invoice, error) {
	f.emailReq = req
	return invoicedomain.Invoice{}, invoicedomain.ErrFeatureNotAllowed
}

type fakeDashboard struct {
	now time.Time
}

func (f *fakeDashboard) Stats(_ context.Context, now time.Time) (dashboarddomain.Stats, error) {
	f.now = now
	return dashboarddomain.Stats{TotalInvoices: 3}, nil
}

type fakeSubscriptions struct {
	subscriptiondomain.Service
	signature string
	payload   []byte
	webhook   error
}

func (f *fakeSubscriptions) HandleWebhook(_ context.Context, payload []byte, signature string) error {
	f.payload = payload
	f.signature = signature
	return f.webhook
}

func (f *fakeSubscriptions) Checkout(_ context.Context, plan string) (string, error) {
	if plan != "PRO" {
		return "", subscriptiondomain.ErrUnknownPlan
	}
	return "https://checkout.example.com/s/1", nil
}

type testServer struct {
	engine        *gin.Engine
	auth          *fakeAuth
	signup        *fakeSignup
	customers     *fakeCustomers
	invoices      *fakeInvoices
	dashboard     *fakeDashboard
	subscriptions *fakeSubscriptions
	clock         *clock.FakeClock
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		engine:        gin.New(),
		auth:          &fakeAuth{},
		signup:        &fakeSignup{},
		customers:     &fakeCustomers{},
		invoices:      &fakeInvoices{},
		dashboard:     &fakeDashboard{},
		subscriptions: &fakeSubscriptions{},
		clock:         clock.NewFakeClock(time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)),
	}
	ts.engine.Use(ErrorHandlingMiddleware())

	NewServer(ServerParams{
		Gin:             ts.engine,
		Log:             zap.NewNop(),
		Clock:           ts.clock,
		Authsvc:         ts.auth,
		Signupsvc:       ts.signup,
		CustomerSvc:     ts.customers,
		InvoiceSvc:      ts.invoices,
		DashboardSvc:    ts.dashboard,
		SubscriptionSvc: ts.subscriptions,
	})
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestAuthRequiredRejectsMissingOrBadToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	rec = ts.do(http.MethodGet, "/api/me", "forged", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsUserAndCompany(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/me", tokenWithCompany, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			User      authdomain.User `json:"user"`
			CompanyID string          `json:"company_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testUserID, resp.Data.User.ID)
	assert.Equal(t, testCompanyID.String(), resp.Data.CompanyID)
}

func TestLoginValidatesBody(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "nope", "password": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "email", payload.Errors[0].Field)
	assert.Equal(t, "email", payload.Errors[0].Code)

	rec = ts.do(http.MethodPost, "/auth/login", "", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Errors[0].Code)
}

func TestLoginMapsCredentialErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.auth.loginErr = authdomain.ErrInvalidCredentials

	rec := ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.it", "password": "secret"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupCreatesAccount(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"company_name": "  Rossi Srl ",
		"email":        "mario@rossi.it",
		"password":     "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Rossi Srl", ts.signup.got.CompanyName)
	assert.Contains(t, rec.Body.String(), `"token":"signed"`)
}

func TestSignupEmailTakenIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.signup.err = fmt.Errorf("create user: %w", authdomain.ErrEmailTaken)

	rec := ts.do(http.MethodPost, "/auth/signup", "", map[string]string{
		"email":    "mario@rossi.it",
		"password": "password123",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email_taken", decodeError(t, rec).Type)
}

func TestCompanyRequiredBlocksScopedRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/customers", tokenNoCompany, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "company_not_found", decodeError(t, rec).Type)

	rec = ts.do(http.MethodGet, "/api/customers", tokenWithCompany, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testCompanyID, ts.customers.seenCompany)
}

func TestCreateCustomerPlanLimit(t *testing.T) {
	ts := newTestServer(t)
	ts.customers.createErr = subscriptiondomain.ErrCustomerLimitReached

	rec := ts.do(http.MethodPost, "/api/customers", tokenWithCompany, map[string]string{"name": "ACME"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "customer_limit_reached", decodeError(t, rec).Type)
}

func TestCreateCustomerRequiresName(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/customers", tokenWithCompany, map[string]string{"email": "x@y.it"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.NotEmpty(t, payload.Errors)
	assert.Equal(t, "name", payload.Errors[0].Field)
	assert.Equal(t, "required", payload.Errors[0].Code)
}

func TestDeleteCustomer(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodDelete, "/api/customers/7", tokenWithCompany, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	ts.customers.deleteErr = customerdomain.ErrCustomerInUse
	rec = ts.do(http.MethodDelete, "/api/customers/7", tokenWithCompany, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "customer_in_use", decodeError(t, rec).Type)
}

func TestNextNumberRouteIsNotAnID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/invoices/next-number", tokenWithCompany, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"invoice_number":"2026-0042"}}`, rec.Body.String())
	assert.Zero(t, ts.invoices.getCalls)
}

func TestGetInvoiceNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/invoices/99", tokenWithCompany, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestCreateInvoiceErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"number taken", invoicedomain.ErrNumberTaken, http.StatusConflict, "invoice_number_taken"},
		{"monthly limit", subscriptiondomain.ErrInvoiceLimitReached, http.StatusForbidden, "invoice_limit_reached"},
		{"allocation busy", fmt.Errorf("allocate: %w", numbering.ErrAllocationBusy), http.StatusServiceUnavailable, "service_unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.invoices.createErr = tc.err

			rec := ts.do(http.MethodPost, "/api/invoices", tokenWithCompany, map[string]any{"customer_id": "7"})
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.typ, decodeError(t, rec).Type)
		})
	}
}

func TestCreateInvoiceRejectsBadDate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/invoices", tokenWithCompany, map[string]any{
		"customer_id": "7",
		"issue_date":  "15/03/2026",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.NotEmpty(t, payload.Errors)
	assert.Equal(t, "issue_date", payload.Errors[0].Field)
}

func TestDownloadInvoicePDF(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/invoices/9/pdf", tokenWithCompany, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Fattura_2026-0001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestEmailInvoiceFeatureGate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/invoices/9/email", tokenWithCompany, map[string]string{"to": " client@example.com ", "message": "Ciao"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "feature_not_available", decodeError(t, rec).Type)
	assert.Equal(t, "client@example.com", ts.invoices.emailReq.To)
}

func TestDashboardUsesClock(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/dashboard", tokenWithCompany, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ts.clock.Now().Equal(ts.dashboard.now))
	assert.Contains(t, rec.Body.String(), `"total_invoices":3`)
}

func TestCheckoutNormalisesPlan(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/subscription/checkout", tokenWithCompany, map[string]string{"plan": " pro "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "checkout.example.com")

	rec = ts.do(http.MethodPost, "/api/subscription/checkout", tokenWithCompany, map[string]string{"plan": "gold"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhook(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"type":"ping"}`))
	req.Header.Set(stripeSignatureHeader, "t=1,v1=abc")
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Equal(t, "t=1,v1=abc", ts.subscriptions.signature)
	assert.Equal(t, `{"type":"ping"}`, string(ts.subscriptions.payload))

	ts.subscriptions.webhook = subscriptiondomain.ErrInvalidSignature
	rec = httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader("{}")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 20; i++ {
		rec := ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@b.it", "password": "secret"})
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer   abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(customerdomain.ErrNotFound)
	assert.Equal(t, "not_found", typ)
	assert.Equal(t, "not_found", code)

	typ, code = classifyErrorForLog(newValidationError("name", "required", "name is required"))
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "required", code)
}
