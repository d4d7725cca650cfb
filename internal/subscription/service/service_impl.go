package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/clock"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/internal/payment/adapters/stripe"
	"github.com/smallbiznis/invoicer/internal/subscription/domain"
	"github.com/smallbiznis/invoicer/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Config    config.Config
	Plans     *config.PlansHolder
	Clock     clock.Clock
	Stripe    *stripe.Client
	Companies companydomain.Service
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	cfg       config.StripeConfig
	plans     *config.PlansHolder
	clock     clock.Clock
	stripe    *stripe.Client
	companies companydomain.Service
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("subscription.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		cfg:       p.Config.Stripe,
		plans:     p.Plans,
		clock:     p.Clock,
		stripe:    p.Stripe,
		companies: p.Companies,
		metrics:   p.Metrics,
	}
}

func (s *Service) Provision(ctx context.Context, tx *gorm.DB, companyID snowflake.ID) (*domain.Subscription, error) {
	if companyID == 0 {
		return nil, domain.ErrCompanyNotFound
	}
	if tx == nil {
		tx = s.db
	}
	now := s.clock.Now().UTC()
	sub := &domain.Subscription{
		ID:                 s.genID.Generate(),
		CompanyID:          companyID,
		Plan:               config.PlanFree,
		Status:             domain.StatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(domain.TrialPeriod),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Insert(ctx, tx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) Current(ctx context.Context) (*domain.Subscription, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}

	sub, err := s.repo.FindByCompany(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	if sub != nil {
		return sub, nil
	}

	sub, err = s.Provision(ctx, s.db, companyID)
	if err != nil && db.IsDuplicateKeyErr(err) {
		// created concurrently by another request
		return s.repo.FindByCompany(ctx, s.db, companyID)
	}
	return sub, err
}

// Plan returns the plan in effect. Canceled subscriptions fall back to FREE.
func (s *Service) Plan(ctx context.Context) (config.Plan, error) {
	sub, err := s.Current(ctx)
	if err != nil {
		return config.Plan{}, err
	}
	return s.planFor(sub), nil
}

func (s *Service) Usage(ctx context.Context, now time.Time) (domain.Usage, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return domain.Usage{}, domain.ErrCompanyNotFound
	}

	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	invoices, err := s.repo.CountInvoicesCreated(ctx, s.db, companyID, from.UTC(), from.AddDate(0, 1, 0).UTC())
	if err != nil {
		return domain.Usage{}, err
	}
	customers, err := s.repo.CountCustomers(ctx, s.db, companyID)
	if err != nil {
		return domain.Usage{}, err
	}
	return domain.Usage{InvoicesThisMonth: invoices, Customers: customers}, nil
}

func (s *Service) Overview(ctx context.Context, now time.Time) (domain.Overview, error) {
	sub, err := s.Current(ctx)
	if err != nil {
		return domain.Overview{}, err
	}
	usage, err := s.Usage(ctx, now)
	if err != nil {
		return domain.Overview{}, err
	}
	plan := s.planFor(sub)
	return domain.Overview{
		Subscription:       *sub,
		PlanName:           plan.Name,
		InvoiceLimit:       plan.InvoiceLimit,
		CustomerLimit:      plan.CustomerLimit,
		PriceMonthly:       plan.PriceMonthly,
		Currency:           plan.Currency,
		Features:           plan.Features,
		Usage:              usage,
		RemainingInvoices:  domain.Remaining(plan.InvoiceLimit, usage.InvoicesThisMonth),
		RemainingCustomers: domain.Remaining(plan.CustomerLimit, usage.Customers),
	}, nil
}

func (s *Service) CanCreateInvoice(ctx context.Context, now time.Time) error {
	plan, err := s.Plan(ctx)
	if err != nil {
		return err
	}
	if plan.InvoiceLimit == config.Unlimited {
		return nil
	}
	usage, err := s.Usage(ctx, now)
	if err != nil {
		return err
	}
	if usage.InvoicesThisMonth >= int64(plan.InvoiceLimit) {
		return domain.ErrInvoiceLimitReached
	}
	return nil
}

func (s *Service) CanCreateCustomer(ctx context.Context) error {
	plan, err := s.Plan(ctx)
	if err != nil {
		return err
	}
	if plan.CustomerLimit == config.Unlimited {
		return nil
	}
	usage, err := s.Usage(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	if usage.Customers >= int64(plan.CustomerLimit) {
		return domain.ErrCustomerLimitReached
	}
	return nil
}

func (s *Service) Payments(ctx context.Context) ([]domain.PaymentHistory, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrCompanyNotFound
	}
	return s.repo.ListPayments(ctx, s.db, companyID, 24)
}

func (s *Service) Checkout(ctx context.Context, planCode string) (string, error) {
	plan, ok := s.plans.Get().Lookup(planCode)
	if !ok || plan.Code == config.PlanFree || plan.StripePriceID == "" {
		return "", domain.ErrUnknownPlan
	}
	if !s.stripe.Configured() {
		return "", domain.ErrPaymentsDisabled
	}

	sub, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	if sub.Plan == plan.Code && sub.Status == domain.StatusActive {
		return "", domain.ErrAlreadySubscribed
	}

	if sub.StripeCustomerID == nil || *sub.StripeCustomerID == "" {
		profile, err := s.companies.Get(ctx)
		if err != nil {
			return "", err
		}
		customerID, err := s.stripe.CreateCustomer(ctx, profile.Email, profile.Name, sub.CompanyID.String())
		if err != nil {
			return "", err
		}
		sub.StripeCustomerID = &customerID
		sub.UpdatedAt = s.clock.Now().UTC()
		if err := s.repo.Save(ctx, s.db, sub); err != nil {
			return "", err
		}
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		CustomerID: *sub.StripeCustomerID,
		PriceID:    plan.StripePriceID,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		CompanyID:  sub.CompanyID.String(),
	})
	if err != nil {
		return "", err
	}
	s.metrics.RecordCheckoutSession(ctx, plan.Code)
	return session.URL, nil
}

func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if err := stripe.Verify(payload, signature, s.cfg.WebhookSecret, s.clock.Now(), stripe.DefaultTolerance); err != nil {
		if errors.Is(err, stripe.ErrNotConfigured) {
			return domain.ErrPaymentsDisabled
		}
		return domain.ErrInvalidSignature
	}

	event, err := stripe.ParseEvent(payload)
	if err != nil {
		return domain.ErrInvalidPayload
	}
	s.metrics.RecordWebhookEvent(ctx, "stripe", event.Type)
	log := s.log.With(zap.String("event_id", event.ID), zap.String("event_type", event.Type))

	switch event.Type {
	case stripe.EventSubscriptionCreated, stripe.EventSubscriptionUpdated, stripe.EventSubscriptionDeleted:
		obj, err := event.Subscription()
		if err != nil {
			return domain.ErrInvalidPayload
		}
		return s.applySubscription(ctx, log, event.Type, obj)
	case stripe.EventInvoicePaymentOK, stripe.EventInvoicePaymentFailed:
		obj, err := event.Invoice()
		if err != nil {
			return domain.ErrInvalidPayload
		}
		return s.applyInvoice(ctx, log, event.Type, obj)
	default:
		log.Debug("stripe event ignored")
		return nil
	}
}

func (s *Service) applySubscription(ctx context.Context, log *zap.Logger, eventType string, obj *stripe.Subscription) error {
	sub, err := s.findForStripe(ctx, obj.Customer, obj.Metadata["company_id"])
	if err != nil || sub == nil {
		if sub == nil && err == nil {
			log.Warn("stripe event for unknown customer", zap.String("customer", obj.Customer))
		}
		return err
	}

	now := s.clock.Now().UTC()
	customerID := obj.Customer
	sub.StripeCustomerID = &customerID

	if eventType == stripe.EventSubscriptionDeleted {
		sub.Plan = config.PlanFree
		sub.Status = domain.StatusCanceled
		sub.StripeSubscriptionID = nil
	} else {
		plan, ok := s.plans.Get().ByPriceID(obj.PriceID())
		if !ok {
			log.Warn("stripe subscription with unknown price", zap.String("price", obj.PriceID()))
			return nil
		}
		subID := obj.ID
		sub.Plan = plan.Code
		sub.Status = mapStripeStatus(obj.Status)
		sub.StripeSubscriptionID = &subID
		if start, end := obj.Period(); !start.IsZero() && !end.IsZero() {
			sub.CurrentPeriodStart = start
			sub.CurrentPeriodEnd = end
		}
	}
	sub.UpdatedAt = now

	if err := s.repo.Save(ctx, s.db, sub); err != nil {
		return err
	}
	log.Info("subscription updated from stripe",
		zap.String("company_id", sub.CompanyID.String()),
		zap.String("plan", sub.Plan),
		zap.String("status", string(sub.Status)),
	)
	return nil
}

func (s *Service) applyInvoice(ctx context.Context, log *zap.Logger, eventType string, obj *stripe.Invoice) error {
	sub, err := s.findForStripe(ctx, obj.Customer, "")
	if err != nil {
		return err
	}
	if sub == nil {
		log.Warn("stripe invoice for unknown customer", zap.String("customer", obj.Customer))
		return nil
	}

	now := s.clock.Now().UTC()
	if eventType == stripe.EventInvoicePaymentFailed {
		sub.Status = domain.StatusPastDue
		sub.UpdatedAt = now
		return s.repo.Save(ctx, s.db, sub)
	}

	paidAt := now
	if obj.Created > 0 {
		paidAt = time.Unix(obj.Created, 0).UTC()
	}
	return s.repo.InsertPayment(ctx, s.db, &domain.PaymentHistory{
		ID:              s.genID.Generate(),
		CompanyID:       sub.CompanyID,
		SubscriptionID:  sub.ID,
		StripeInvoiceID: obj.ID,
		Amount:          decimal.New(obj.AmountPaid, -2),
		Currency:        strings.ToUpper(obj.Currency),
		Status:          "paid",
		PaidAt:          paidAt,
		CreatedAt:       now,
	})
}

func (s *Service) findForStripe(ctx context.Context, customerID, companyRef string) (*domain.Subscription, error) {
	if customerID != "" {
		sub, err := s.repo.FindByStripeCustomer(ctx, s.db, customerID)
		if err != nil || sub != nil {
			return sub, err
		}
	}
	if companyRef == "" {
		return nil, nil
	}
	companyID, err := snowflake.ParseString(companyRef)
	if err != nil {
		return nil, nil
	}
	return s.repo.FindByCompany(ctx, s.db, companyID)
}

func (s *Service) planFor(sub *domain.Subscription) config.Plan {
	catalogue := s.plans.Get()
	code := sub.Plan
	if sub.Status == domain.StatusCanceled {
		code = config.PlanFree
	}
	if plan, ok := catalogue.Lookup(code); ok {
		return plan
	}
	free, _ := catalogue.Lookup(config.PlanFree)
	return free
}

func mapStripeStatus(status string) domain.Status {
	switch status {
	case "active", "trialing":
		return domain.StatusActive
	case "past_due", "unpaid":
		return domain.StatusPastDue
	case "canceled", "incomplete_expired":
		return domain.StatusCanceled
	case "incomplete":
		return domain.StatusIncomplete
	default:
		return domain.StatusIncomplete
	}
}
