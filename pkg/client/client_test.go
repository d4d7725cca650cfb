package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/pkg/optimistic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu       sync.Mutex
	token    string
	failNext string
	gate     chan struct{}
	bodies   []map[string]any
}

func (f *fakeAPI) lastBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		return nil
	}
	return f.bodies[len(f.bodies)-1]
}

func (f *fakeAPI) failWith(typ string) {
	f.mu.Lock()
	f.failNext = typ
	f.mu.Unlock()
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"type": "unauthorized", "message": "unauthorized"}})
			return false
		}
		return true
	}
	fail := func(w http.ResponseWriter) bool {
		f.mu.Lock()
		typ := f.failNext
		f.failNext = ""
		f.mu.Unlock()
		if typ == "" {
			return false
		}
		writeJSON(w, http.StatusForbidden, map[string]any{"error": map[string]string{"type": typ, "message": "plan limit reached"}})
		return true
	}
	record := func(r *http.Request) map[string]any {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.bodies = append(f.bodies, body)
		f.mu.Unlock()
		return body
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"token": f.token}})
	})
	mux.HandleFunc("GET /api/customers", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.URL.Query().Get("page_token") == "" {
			writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
				"next_page_token": "p2",
				"has_more":        true,
				"customers":       []map[string]string{{"id": "1", "name": "Alfa"}},
			}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"customers": []map[string]string{{"id": "2", "name": "Beta"}},
		}})
	})
	mux.HandleFunc("POST /api/customers", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if f.gate != nil {
			<-f.gate
		}
		body := record(r)
		if fail(w) {
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
			"id":         "900",
			"name":       body["name"],
			"country":    "Italia",
			"created_at": "2026-03-01T10:00:00Z",
			"updated_at": "2026-03-01T10:00:00Z",
		}})
	})
	mux.HandleFunc("PUT /api/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		body := record(r)
		if fail(w) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": r.PathValue("id"), "name": body["name"]}})
	})
	mux.HandleFunc("DELETE /api/customers/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.PathValue("id") == "1" {
			writeJSON(w, http.StatusConflict, map[string]any{"error": map[string]string{"type": "customer_in_use", "message": "conflict"}})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/invoices", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		body := record(r)
		if fail(w) {
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
			"id":             "77",
			"customer_id":    body["customer_id"],
			"invoice_number": "2026-0001",
			"status":         "draft",
			"total":          "122",
		}})
	})
	mux.HandleFunc("GET /api/invoices/next-number", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"invoice_number": "2026-0002"}})
	})
	mux.HandleFunc("GET /api/invoices/{id}/pdf", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		if r.PathValue("id") != "77" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]string{"type": "not_found", "message": "not found"}})
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	return mux
}

func newFakeAPI(t *testing.T) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{token: "tok"}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	c := New(srv.URL+"/", WithHTTPClient(srv.Client()))
	require.NoError(t, c.Login(context.Background(), "owner@example.com", "secret"))
	return api, c
}

func TestRequestsWithoutTokenFail(t *testing.T) {
	api := &fakeAPI{token: "tok"}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := New(srv.URL, WithHTTPClient(srv.Client()))
	err := c.Customers().Load(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsType(err, "unauthorized"))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestCustomersLoadFollowsPages(t *testing.T) {
	_, c := newFakeAPI(t)
	store := c.Customers()

	require.NoError(t, store.Load(context.Background(), "a"))
	items := store.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Alfa", items[0].Name)
	assert.Equal(t, "Beta", items[1].Name)
}

func TestCustomerCreateReplacesTemporaryElement(t *testing.T) {
	api, c := newFakeAPI(t)
	api.gate = make(chan struct{})

	var changes []optimistic.Op
	store := c.Customers(optimistic.WithOnChange(func(op optimistic.Op, _ Customer) {
		changes = append(changes, op)
	}))
	require.NoError(t, store.Load(context.Background(), ""))

	done := make(chan error, 1)
	go func() {
		_, err := store.Create(context.Background(), Customer{Name: "Gamma"})
		done <- err
	}()

	require.Eventually(t, func() bool { return len(store.Items()) == 3 }, time.Second, 5*time.Millisecond)
	pending := store.Items()[0]
	assert.True(t, optimistic.IsTemp(pending.ID))
	assert.Equal(t, "Gamma", pending.Name)

	close(api.gate)
	require.NoError(t, <-done)

	items := store.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "900", items[0].ID)
	assert.Equal(t, "Italia", items[0].Country)
	for _, item := range items {
		assert.False(t, optimistic.IsTemp(item.ID))
	}
	assert.Equal(t, []optimistic.Op{optimistic.OpCreate}, changes)
}

func TestCustomerCreateRollsBackOnPlanLimit(t *testing.T) {
	api, c := newFakeAPI(t)
	store := c.Customers()
	require.NoError(t, store.Load(context.Background(), ""))
	before := store.Items()

	api.failWith("customer_limit_reached")
	_, err := store.Create(context.Background(), Customer{Name: "Gamma"})
	require.Error(t, err)
	assert.True(t, IsType(err, "customer_limit_reached"))
	assert.Equal(t, before, store.Items())
}

func TestCustomerUpdateSendsFullRecord(t *testing.T) {
	api, c := newFakeAPI(t)
	store := c.Customers()
	require.NoError(t, store.Load(context.Background(), ""))

	updated, err := store.Update(context.Background(), "2", func(cu *Customer) {
		cu.Name = "Beta Srl"
		cu.City = "Torino"
	})
	require.NoError(t, err)
	assert.Equal(t, "Beta Srl", updated.Name)

	last := api.lastBody()
	assert.Equal(t, "Beta Srl", last["name"])
	assert.Equal(t, "Torino", last["city"])
	assert.NotContains(t, last, "id")

	api.failWith("validation_error")
	_, err = store.Update(context.Background(), "2", func(cu *Customer) { cu.Name = "" })
	require.Error(t, err)
	got, ok := store.Get("2")
	require.True(t, ok)
	assert.Equal(t, "Beta Srl", got.Name)
}

func TestCustomerDeleteRollsBackWhenInUse(t *testing.T) {
	_, c := newFakeAPI(t)
	store := c.Customers()
	require.NoError(t, store.Load(context.Background(), ""))

	err := store.Delete(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, IsType(err, "customer_in_use"))
	assert.Len(t, store.Items(), 2)

	require.NoError(t, store.Delete(context.Background(), "2"))
	items := store.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ID)
}

func TestInvoiceCreateSendsRequestShape(t *testing.T) {
	api, c := newFakeAPI(t)
	store := c.Invoices()

	rate := decimal.NewFromInt(0)
	created, err := store.Create(context.Background(), Invoice{
		CustomerID: "1",
		IssueDate:  time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		TaxRate:    &rate,
		Items: []InvoiceItem{{
			Description: "Consulenza",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.NewFromInt(50),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-0001", created.InvoiceNumber)
	assert.True(t, created.Total.Equal(decimal.NewFromInt(122)))

	body := api.lastBody()
	assert.Equal(t, "2026-03-15", body["issue_date"])
	assert.NotContains(t, body, "due_date")
	assert.Equal(t, "0", body["tax_rate"])
	items, ok := body["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.NotContains(t, items[0], "total")

	require.Len(t, store.Items(), 1)
	assert.Equal(t, "77", store.Items()[0].ID)
}

func TestInvoiceNextNumberAndPDF(t *testing.T) {
	_, c := newFakeAPI(t)
	store := c.Invoices()

	next, err := store.NextNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-0002", next)

	var buf bytes.Buffer
	require.NoError(t, store.DownloadPDF(context.Background(), "77", &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF"))

	err = store.DownloadPDF(context.Background(), "404", &buf)
	assert.True(t, IsType(err, "not_found"))
}

func TestInvoiceCloneDoesNotShareItems(t *testing.T) {
	inv := Invoice{Items: []InvoiceItem{{Description: "a"}}}
	cp := inv.Clone()
	cp.Items[0].Description = "b"
	assert.Equal(t, "a", inv.Items[0].Description)
}
