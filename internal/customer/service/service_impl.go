package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	"github.com/smallbiznis/invoicer/internal/customer/domain"
	dashboarddomain "github.com/smallbiznis/invoicer/internal/dashboard/domain"
	subscriptiondomain "github.com/smallbiznis/invoicer/internal/subscription/domain"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Subscriptions subscriptiondomain.Service
	Audit         auditdomain.Service         `optional:"true"`
	Dashboard     dashboarddomain.Invalidator `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	subscriptions subscriptiondomain.Service
	audit         auditdomain.Service
	dashboard     dashboarddomain.Invalidator
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("customer.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		subscriptions: p.Subscriptions,
		audit:         p.Audit,
		dashboard:     p.Dashboard,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CustomerRequest) (domain.Customer, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return domain.Customer{}, domain.ErrInvalidCompany
	}

	customer, err := s.fromRequest(req)
	if err != nil {
		return domain.Customer{}, err
	}

	if err := s.subscriptions.CanCreateCustomer(ctx); err != nil {
		return domain.Customer{}, err
	}

	now := time.Now().UTC()
	customer.ID = s.genID.Generate()
	customer.CompanyID = companyID
	customer.CreatedAt = now
	customer.UpdatedAt = now

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.changed(ctx, companyID, "customer.create", customer)
	return customer, nil
}

// Update replaces every editable field of the customer.
func (s *Service) Update(ctx context.Context, id string, req domain.CustomerRequest) (domain.Customer, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.fromRequest(req)
	if err != nil {
		return domain.Customer{}, err
	}
	customer.ID = existing.ID
	customer.CompanyID = existing.CompanyID
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.changed(ctx, customer.CompanyID, "customer.update", customer)
	return customer, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	inUse, err := s.repo.CountInvoices(ctx, s.db, existing.CompanyID, existing.ID)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return domain.ErrCustomerInUse
	}

	if err := s.repo.Delete(ctx, s.db, existing.CompanyID, existing.ID); err != nil {
		return err
	}

	s.changed(ctx, existing.CompanyID, "customer.delete", existing)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return domain.Customer{}, domain.ErrInvalidCompany
	}

	customerID, err := s.parseID(id)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, companyID, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return domain.ListCustomerResponse{}, domain.ErrInvalidCompany
	}

	var cursor *pagination.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListCustomerResponse{}, err
		}
		cursor = decoded
	}

	limit := req.Size()
	items, err := s.repo.List(ctx, s.db, companyID, domain.ListCustomerFilter{Search: req.Search}, cursor, limit)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(customer *domain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        customer.ID.String(),
			CreatedAt: customer.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	return domain.ListCustomerResponse{PageInfo: pageInfo, Customers: customers}, nil
}

func (s *Service) fromRequest(req domain.CustomerRequest) (domain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.Customer{}, domain.ErrInvalidEmail
		}
	}

	country := strings.TrimSpace(req.Country)
	if country == "" {
		country = domain.DefaultCountry
	}

	return domain.Customer{
		Name:       name,
		Email:      email,
		Phone:      strings.TrimSpace(req.Phone),
		Address:    strings.TrimSpace(req.Address),
		City:       strings.TrimSpace(req.City),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    country,
		VATNumber:  strings.TrimSpace(req.VATNumber),
	}, nil
}

func (s *Service) changed(ctx context.Context, companyID snowflake.ID, action string, customer domain.Customer) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(companyID)
	}
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, nil, auditdomain.Entry{
		CompanyID:  companyID,
		Action:     action,
		TargetType: "customer",
		TargetID:   customer.ID.String(),
		Metadata:   map[string]any{"name": customer.Name, "email": customer.Email},
	})
	if err != nil {
		s.log.Warn("audit failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
