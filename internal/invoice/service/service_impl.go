package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/authorization"
	"github.com/smallbiznis/invoicer/internal/clock"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	customerdomain "github.com/smallbiznis/invoicer/internal/customer/domain"
	dashboarddomain "github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	"github.com/smallbiznis/invoicer/internal/invoice/render"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/internal/providers/email"
	"github.com/smallbiznis/invoicer/internal/providers/pdf"
	subscriptiondomain "github.com/smallbiznis/invoicer/internal/subscription/domain"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxInsertAttempts = 3

var maxTaxRate = decimal.NewFromInt(100)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	Numbers       *numbering.Allocator
	Customers     customerdomain.Service
	Companies     companydomain.Service
	Subscriptions subscriptiondomain.Service
	Authorizer    authorization.Authorizer
	PDF           pdf.Generator
	Email         email.Provider
	Renderer      render.Renderer
	Clock         clock.Clock
	Metrics       *metrics.Metrics            `optional:"true"`
	Audit         auditdomain.Service         `optional:"true"`
	Dashboard     dashboarddomain.Invalidator `optional:"true"`
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	numbers       *numbering.Allocator
	customers     customerdomain.Service
	companies     companydomain.Service
	subscriptions subscriptiondomain.Service
	authz         authorization.Authorizer
	pdf           pdf.Generator
	email         email.Provider
	renderer      render.Renderer
	clock         clock.Clock
	metrics       *metrics.Metrics
	audit         auditdomain.Service
	dashboard     dashboarddomain.Invalidator
}

func New(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("invoice.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		numbers:       p.Numbers,
		customers:     p.Customers,
		companies:     p.Companies,
		subscriptions: p.Subscriptions,
		authz:         p.Authorizer,
		pdf:           p.PDF,
		email:         p.Email,
		renderer:      p.Renderer,
		clock:         p.Clock,
		metrics:       p.Metrics,
		audit:         p.Audit,
		dashboard:     p.Dashboard,
	}
}

// Create numbers and stores a new invoice. The number is allocated inside
// the insert transaction; a collision on the unique index is retried.
func (s *Service) Create(ctx context.Context, req domain.InvoiceRequest) (domain.Invoice, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return domain.Invoice{}, domain.ErrInvalidCompany
	}

	now := s.clock.Now().UTC()
	invoice, err := s.fromRequest(ctx, req, nil, now)
	if err != nil {
		return domain.Invoice{}, err
	}

	if err := s.subscriptions.CanCreateInvoice(ctx, now); err != nil {
		return domain.Invoice{}, err
	}

	invoice.ID = s.genID.Generate()
	invoice.CompanyID = companyID
	invoice.CreatedAt = now
	invoice.UpdatedAt = now
	s.assignItemIDs(&invoice)

	year := now.Year()
	release, err := s.numbers.Lock(ctx, companyID, year)
	if err != nil {
		return domain.Invoice{}, err
	}
	defer release()

	requested := strings.TrimSpace(req.InvoiceNumber)
	for attempt := 1; ; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			number, err := s.assignNumber(ctx, tx, companyID, year, requested)
			if err != nil {
				return err
			}
			invoice.InvoiceNumber = number
			return s.repo.Insert(ctx, tx, &invoice)
		})
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			return domain.Invoice{}, err
		}
		if attempt >= maxInsertAttempts {
			return domain.Invoice{}, domain.ErrNumberTaken
		}
		s.metrics.RecordAllocationRetry(ctx)
		s.log.Warn("invoice number collision, retrying",
			zap.String("company_id", companyID.String()),
			zap.String("number", invoice.InvoiceNumber),
			zap.Int("attempt", attempt),
		)
		requested = ""
	}

	s.changed(ctx, companyID, "invoice.create", invoice)
	if plan, err := s.subscriptions.Plan(ctx); err == nil {
		s.metrics.RecordInvoiceCreated(ctx, plan.Code)
	}
	return invoice, nil
}

// Update replaces the invoice and all of its items.
func (s *Service) Update(ctx context.Context, id string, req domain.InvoiceRequest) (domain.Invoice, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	invoice, err := s.fromRequest(ctx, req, &existing, now)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoice.ID = existing.ID
	invoice.CompanyID = existing.CompanyID
	invoice.CreatedAt = existing.CreatedAt
	invoice.UpdatedAt = now
	invoice.InvoiceNumber = strings.TrimSpace(req.InvoiceNumber)
	if invoice.InvoiceNumber == "" {
		invoice.InvoiceNumber = existing.InvoiceNumber
	}
	s.assignItemIDs(&invoice)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if invoice.InvoiceNumber != existing.InvoiceNumber {
			taken, err := s.repo.NumberTaken(ctx, tx, invoice.CompanyID, invoice.InvoiceNumber, invoice.ID)
			if err != nil {
				return err
			}
			if taken {
				return domain.ErrNumberTaken
			}
		}
		if err := s.repo.Update(ctx, tx, &invoice); err != nil {
			return err
		}
		return s.repo.ReplaceItems(ctx, tx, invoice.ID, invoice.Items)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Invoice{}, domain.ErrNumberTaken
		}
		return domain.Invoice{}, err
	}

	s.changed(ctx, invoice.CompanyID, "invoice.update", invoice)
	return invoice, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Invoice, error) {
	status = domain.Status(strings.ToLower(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return domain.Invoice{}, domain.ErrInvalidStatus
	}

	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice.Status == status {
		return invoice, nil
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, invoice.CompanyID, invoice.ID, status, now); err != nil {
		return domain.Invoice{}, err
	}
	previous := invoice.Status
	invoice.Status = status
	invoice.UpdatedAt = now

	s.changed(ctx, invoice.CompanyID, "invoice.status", invoice, "previous_status", string(previous))
	return invoice, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Delete(ctx, tx, invoice.CompanyID, invoice.ID)
	})
	if err != nil {
		return err
	}

	s.changed(ctx, invoice.CompanyID, "invoice.delete", invoice)
	return nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return domain.Invoice{}, domain.ErrInvalidCompany
	}

	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, companyID, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if item == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidCompany
	}

	filter, err := toFilter(req.Search, req.Status)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	var cursor *pagination.Cursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListInvoiceResponse{}, err
		}
		cursor = decoded
	}

	limit := req.Size()
	items, err := s.repo.List(ctx, s.db, companyID, filter, cursor, limit)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, limit, func(invoice *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        invoice.ID.String(),
			CreatedAt: invoice.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return domain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) NextNumber(ctx context.Context) (string, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return "", domain.ErrInvalidCompany
	}
	return s.numbers.Preview(ctx, s.db, companyID, s.clock.Now().UTC().Year())
}

// assignNumber keeps a client supplied number when it is still free and
// otherwise allocates the lowest free one.
func (s *Service) assignNumber(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, year int, requested string) (string, error) {
	if requested != "" {
		taken, err := s.repo.NumberTaken(ctx, tx, companyID, requested, 0)
		if err != nil {
			return "", err
		}
		if !taken {
			return requested, nil
		}
	}
	return s.numbers.Allocate(ctx, tx, companyID, year)
}

// fromRequest validates req and fills defaults. Fields left empty keep the
// value of existing when one is given.
func (s *Service) fromRequest(ctx context.Context, req domain.InvoiceRequest, existing *domain.Invoice, now time.Time) (domain.Invoice, error) {
	customer, err := s.customers.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) || errors.Is(err, customerdomain.ErrInvalidID) {
			return domain.Invoice{}, domain.ErrInvalidCustomer
		}
		return domain.Invoice{}, err
	}

	today := startOfDay(now)

	issue := today
	if existing != nil {
		issue = existing.IssueDate
	}
	if strings.TrimSpace(req.IssueDate) != "" {
		if issue, err = parseDate(req.IssueDate); err != nil {
			return domain.Invoice{}, err
		}
	}

	due := issue.AddDate(0, 0, domain.DefaultDueDays)
	if existing != nil {
		due = existing.DueDate
	}
	if strings.TrimSpace(req.DueDate) != "" {
		if due, err = parseDate(req.DueDate); err != nil {
			return domain.Invoice{}, err
		}
	}
	if due.Before(issue) {
		return domain.Invoice{}, domain.ErrInvalidDueDate
	}

	status := domain.StatusDraft
	if existing != nil {
		status = existing.Status
	}
	if req.Status != "" {
		status = domain.Status(strings.ToLower(string(req.Status)))
		if !status.Valid() {
			return domain.Invoice{}, domain.ErrInvalidStatus
		}
	}

	taxRate := domain.DefaultTaxRate
	if existing != nil {
		taxRate = existing.TaxRate
	}
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(maxTaxRate) {
		return domain.Invoice{}, domain.ErrInvalidTaxRate
	}

	items := make([]domain.InvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		if !item.Quantity.IsPositive() {
			return domain.Invoice{}, domain.ErrInvalidItem
		}
		items = append(items, domain.InvoiceItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	invoice := domain.Invoice{
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		IssueDate:    issue,
		DueDate:      due,
		Status:       status,
		TaxRate:      taxRate,
		Notes:        strings.TrimSpace(req.Notes),
		Items:        items,
	}
	invoice.ApplyTotals()
	return invoice, nil
}

func (s *Service) assignItemIDs(invoice *domain.Invoice) {
	for i := range invoice.Items {
		invoice.Items[i].ID = s.genID.Generate()
		invoice.Items[i].InvoiceID = invoice.ID
	}
}

// changed refreshes read models that depend on invoices and writes the audit
// trail. extra holds metadata key/value pairs.
func (s *Service) changed(ctx context.Context, companyID snowflake.ID, action string, invoice domain.Invoice, extra ...string) {
	if s.dashboard != nil {
		s.dashboard.Invalidate(companyID)
	}
	if s.audit == nil {
		return
	}

	metadata := map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"status":         string(invoice.Status),
		"total":          invoice.Total.StringFixed(2),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		metadata[extra[i]] = extra[i+1]
	}

	err := s.audit.Record(ctx, nil, auditdomain.Entry{
		CompanyID:  companyID,
		Action:     action,
		TargetType: "invoice",
		TargetID:   invoice.ID.String(),
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("audit failed", zap.String("action", action), zap.Error(err))
	}
}

func toFilter(search, status string) (domain.ListFilter, error) {
	filter := domain.ListFilter{Search: strings.TrimSpace(search)}
	if status = strings.ToLower(strings.TrimSpace(status)); status != "" {
		filter.Status = domain.Status(status)
		if !filter.Status.Valid() {
			return domain.ListFilter{}, domain.ErrInvalidStatus
		}
	}
	return filter, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(domain.DateLayout, strings.TrimSpace(value), time.UTC)
	if err != nil {
		return time.Time{}, domain.ErrInvalidDate
	}
	return t, nil
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
