package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/smallbiznis/invoicer/pkg/optimistic"
)

type invoiceRemote struct {
	c *Client
}

func (r invoiceRemote) Create(ctx context.Context, draft Invoice) (Invoice, error) {
	var out Invoice
	err := r.c.do(ctx, http.MethodPost, "/api/invoices", nil, draft.request(), &out)
	return out, err
}

func (r invoiceRemote) Update(ctx context.Context, item Invoice) (Invoice, error) {
	var out Invoice
	err := r.c.do(ctx, http.MethodPut, invoicePath(item.ID), nil, item.request(), &out)
	return out, err
}

func (r invoiceRemote) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, invoicePath(id), nil, nil, nil)
}

func invoicePath(id string) string {
	return "/api/invoices/" + url.PathEscape(id)
}

// Invoices mirrors the company's invoice list.
type Invoices struct {
	client *Client
	coll   *optimistic.Collection[Invoice, *Invoice]
}

func (c *Client) Invoices(opts ...optimistic.Option[Invoice]) *Invoices {
	return &Invoices{
		client: c,
		coll:   optimistic.New[Invoice, *Invoice](invoiceRemote{c: c}, opts...),
	}
}

// Load fetches every page matching search and status and replaces the
// local list.
func (s *Invoices) Load(ctx context.Context, search, status string) error {
	var all []Invoice
	token := ""
	for {
		q := url.Values{}
		q.Set("page_size", strconv.Itoa(listPageSize))
		if search != "" {
			q.Set("search", search)
		}
		if status != "" {
			q.Set("status", status)
		}
		if token != "" {
			q.Set("page_token", token)
		}
		var page struct {
			pageInfo
			Invoices []Invoice `json:"invoices"`
		}
		if err := s.client.do(ctx, http.MethodGet, "/api/invoices", q, nil, &page); err != nil {
			return err
		}
		all = append(all, page.Invoices...)
		if !page.HasMore || page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	s.coll.Replace(all)
	return nil
}

func (s *Invoices) Items() []Invoice {
	return s.coll.Items()
}

func (s *Invoices) Get(id string) (Invoice, bool) {
	return s.coll.Get(id)
}

func (s *Invoices) Create(ctx context.Context, draft Invoice) (Invoice, error) {
	return s.coll.Create(ctx, draft)
}

func (s *Invoices) Update(ctx context.Context, id string, patch func(*Invoice)) (Invoice, error) {
	return s.coll.Update(ctx, id, patch)
}

// SetStatus is an optimistic update of the status alone.
func (s *Invoices) SetStatus(ctx context.Context, id, status string) (Invoice, error) {
	return s.coll.Update(ctx, id, func(inv *Invoice) { inv.Status = status })
}

func (s *Invoices) Delete(ctx context.Context, id string) error {
	return s.coll.Delete(ctx, id)
}

// NextNumber previews the number the next created invoice would get.
func (s *Invoices) NextNumber(ctx context.Context) (string, error) {
	var out struct {
		InvoiceNumber string `json:"invoice_number"`
	}
	if err := s.client.do(ctx, http.MethodGet, "/api/invoices/next-number", nil, nil, &out); err != nil {
		return "", err
	}
	return out.InvoiceNumber, nil
}

// SendEmail emails the invoice. An empty to falls back to the customer
// address on the server.
func (s *Invoices) SendEmail(ctx context.Context, id, to, message string) (Invoice, error) {
	var out Invoice
	body := map[string]string{"to": to, "message": message}
	if err := s.client.do(ctx, http.MethodPost, invoicePath(id)+"/email", nil, body, &out); err != nil {
		return Invoice{}, err
	}
	if _, ok := s.coll.Get(id); ok {
		s.coll.Upsert(out)
	}
	return out, nil
}

// DownloadPDF streams the rendered invoice into w.
func (s *Invoices) DownloadPDF(ctx context.Context, id string, w io.Writer) error {
	path := invoicePath(id) + "/pdf"
	req, err := s.client.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return s.client.apiError(http.MethodGet, path, resp.StatusCode, raw)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}
