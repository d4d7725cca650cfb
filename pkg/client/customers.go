package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/smallbiznis/invoicer/pkg/optimistic"
)

const listPageSize = 100

type pageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

type customerRemote struct {
	c *Client
}

func (r customerRemote) Create(ctx context.Context, draft Customer) (Customer, error) {
	var out Customer
	err := r.c.do(ctx, http.MethodPost, "/api/customers", nil, draft.request(), &out)
	return out, err
}

func (r customerRemote) Update(ctx context.Context, item Customer) (Customer, error) {
	var out Customer
	err := r.c.do(ctx, http.MethodPut, "/api/customers/"+url.PathEscape(item.ID), nil, item.request(), &out)
	return out, err
}

func (r customerRemote) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, "/api/customers/"+url.PathEscape(id), nil, nil, nil)
}

// Customers mirrors the company's customer list.
type Customers struct {
	client *Client
	coll   *optimistic.Collection[Customer, *Customer]
}

func (c *Client) Customers(opts ...optimistic.Option[Customer]) *Customers {
	return &Customers{
		client: c,
		coll:   optimistic.New[Customer, *Customer](customerRemote{c: c}, opts...),
	}
}

// Load fetches every page matching search and replaces the local list.
func (s *Customers) Load(ctx context.Context, search string) error {
	var all []Customer
	token := ""
	for {
		q := url.Values{}
		q.Set("page_size", strconv.Itoa(listPageSize))
		if search != "" {
			q.Set("search", search)
		}
		if token != "" {
			q.Set("page_token", token)
		}
		var page struct {
			pageInfo
			Customers []Customer `json:"customers"`
		}
		if err := s.client.do(ctx, http.MethodGet, "/api/customers", q, nil, &page); err != nil {
			return err
		}
		all = append(all, page.Customers...)
		if !page.HasMore || page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	s.coll.Replace(all)
	return nil
}

func (s *Customers) Items() []Customer {
	return s.coll.Items()
}

func (s *Customers) Get(id string) (Customer, bool) {
	return s.coll.Get(id)
}

func (s *Customers) Create(ctx context.Context, draft Customer) (Customer, error) {
	return s.coll.Create(ctx, draft)
}

func (s *Customers) Update(ctx context.Context, id string, patch func(*Customer)) (Customer, error) {
	return s.coll.Update(ctx, id, patch)
}

func (s *Customers) Delete(ctx context.Context, id string) error {
	return s.coll.Delete(ctx, id)
}
