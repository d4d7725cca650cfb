package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	"github.com/smallbiznis/invoicer/internal/customer/domain"
	"github.com/smallbiznis/invoicer/internal/customer/repository"
	subscriptiondomain "github.com/smallbiznis/invoicer/internal/subscription/domain"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeSubscriptions struct {
	subscriptiondomain.Service
	limitReached bool
}

func (f *fakeSubscriptions) CanCreateCustomer(context.Context) error {
	if f.limitReached {
		return subscriptiondomain.ErrCustomerLimitReached
	}
	return nil
}

type invalidations []snowflake.ID

func (i *invalidations) Invalidate(companyID snowflake.ID) { *i = append(*i, companyID) }

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	subs  *fakeSubscriptions
	inval *invalidations
	ctx   context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&domain.Customer{}))
	require.NoError(t, dbConn.Exec(`CREATE TABLE invoices (id INTEGER PRIMARY KEY, company_id INTEGER, customer_id INTEGER)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	subs := &fakeSubscriptions{}
	inval := &invalidations{}
	svc := New(Params{
		DB:            dbConn,
		Log:           zap.NewNop(),
		GenID:         node,
		Repo:          repository.Provide(),
		Subscriptions: subs,
		Dashboard:     inval,
	})
	return fixture{
		svc:   svc,
		db:    dbConn,
		subs:  subs,
		inval: inval,
		ctx:   companycontext.WithCompanyID(context.Background(), 1),
	}
}

func TestCreateCustomerDefaults(t *testing.T) {
	f := newFixture(t)

	c, err := f.svc.Create(f.ctx, domain.CustomerRequest{Name: "  Bianchi Srl ", Email: "info@bianchi.it"})
	require.NoError(t, err)
	assert.Equal(t, "Bianchi Srl", c.Name)
	assert.Equal(t, domain.DefaultCountry, c.Country)
	assert.Equal(t, snowflake.ID(1), c.CompanyID)
	assert.Equal(t, invalidations{1}, *f.inval)

	got, err := f.svc.GetByID(f.ctx, c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "info@bianchi.it", got.Email)
}

func TestCreateCustomerValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CustomerRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Create(f.ctx, domain.CustomerRequest{Name: "X", Email: "bad"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = f.svc.Create(context.Background(), domain.CustomerRequest{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)

	f.subs.limitReached = true
	_, err = f.svc.Create(f.ctx, domain.CustomerRequest{Name: "X"})
	assert.ErrorIs(t, err, subscriptiondomain.ErrCustomerLimitReached)
}

func TestCustomersAreScopedToCompany(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Create(f.ctx, domain.CustomerRequest{Name: "Verdi"})
	require.NoError(t, err)

	other := companycontext.WithCompanyID(context.Background(), 2)
	_, err = f.svc.GetByID(other, c.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.GetByID(f.ctx, "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestUpdateReplacesAllFields(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Create(f.ctx, domain.CustomerRequest{Name: "Neri", City: "Roma", Phone: "123"})
	require.NoError(t, err)

	updated, err := f.svc.Update(f.ctx, c.ID.String(), domain.CustomerRequest{Name: "Neri Spa", Country: "Svizzera"})
	require.NoError(t, err)
	assert.Equal(t, "Neri Spa", updated.Name)
	assert.Equal(t, "", updated.City)
	assert.Equal(t, "Svizzera", updated.Country)
	assert.True(t, updated.CreatedAt.Equal(c.CreatedAt))

	got, err := f.svc.GetByID(f.ctx, c.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "", got.Phone)
}

func TestDeleteCustomerInUse(t *testing.T) {
	f := newFixture(t)
	c, err := f.svc.Create(f.ctx, domain.CustomerRequest{Name: "Gialli"})
	require.NoError(t, err)

	require.NoError(t, f.db.Exec(`INSERT INTO invoices (id, company_id, customer_id) VALUES (1, 1, ?)`, c.ID).Error)
	assert.ErrorIs(t, f.svc.Delete(f.ctx, c.ID.String()), domain.ErrCustomerInUse)

	require.NoError(t, f.db.Exec(`DELETE FROM invoices`).Error)
	require.NoError(t, f.svc.Delete(f.ctx, c.ID.String()))
	_, err = f.svc.GetByID(f.ctx, c.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListSearchAndPaginate(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		_, err := f.svc.Create(f.ctx, domain.CustomerRequest{Name: fmt.Sprintf("Cliente %d", i), VATNumber: fmt.Sprintf("IT000%d", i)})
		require.NoError(t, err)
	}
	_, err := f.svc.Create(f.ctx, domain.CustomerRequest{Name: "Ditta 50% Sconti", Email: "SCONTI@example.com"})
	require.NoError(t, err)

	found, err := f.svc.List(f.ctx, domain.ListCustomerRequest{Search: "sconti"})
	require.NoError(t, err)
	require.Len(t, found.Customers, 1)

	found, err = f.svc.List(f.ctx, domain.ListCustomerRequest{Search: "50%"})
	require.NoError(t, err)
	require.Len(t, found.Customers, 1)

	found, err = f.svc.List(f.ctx, domain.ListCustomerRequest{Search: "it0003"})
	require.NoError(t, err)
	require.Len(t, found.Customers, 1)
	assert.Equal(t, "Cliente 3", found.Customers[0].Name)

	seen := map[snowflake.ID]bool{}
	req := domain.ListCustomerRequest{}
	req.PageSize = 4
	page, err := f.svc.List(f.ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Customers, 4)
	assert.True(t, page.HasMore)
	for _, c := range page.Customers {
		seen[c.ID] = true
	}

	req.PageToken = page.NextPageToken
	page, err = f.svc.List(f.ctx, req)
	require.NoError(t, err)
	require.Len(t, page.Customers, 2)
	assert.False(t, page.HasMore)
	for _, c := range page.Customers {
		assert.False(t, seen[c.ID])
	}
}
