package authorization

import (
	"context"
	_ "embed"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	FeatureInvoicePDF    = "invoice.pdf"
	FeatureInvoiceEmail  = "invoice.email"
	FeatureInvoiceExport = "invoice.export"

	ActionUse = "use"
)

var (
	ErrInvalidPlan    = errors.New("invalid_plan")
	ErrInvalidFeature = errors.New("invalid_feature")
)

// Authorizer decides which plan may use which feature.
type Authorizer interface {
	Allow(ctx context.Context, plan, feature string) (bool, error)
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Plans    *config.PlansHolder
	Audit    auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	plans    *config.PlansHolder
	audit    auditdomain.Service

	mu     sync.Mutex
	synced string
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) (Authorizer, error) {
	s := &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		plans:    p.Plans,
		audit:    p.Audit,
	}
	if err := s.sync(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ServiceImpl) Allow(ctx context.Context, plan, feature string) (bool, error) {
	plan = strings.ToUpper(strings.TrimSpace(plan))
	if plan == "" {
		return false, ErrInvalidPlan
	}
	feature = strings.ToLower(strings.TrimSpace(feature))
	if feature == "" {
		return false, ErrInvalidFeature
	}

	if err := s.sync(); err != nil {
		return false, err
	}

	allowed, err := s.enforcer.Enforce(plan, feature, ActionUse)
	if err != nil {
		return false, err
	}
	if !allowed {
		s.auditDenied(ctx, plan, feature)
	}
	return allowed, nil
}

// sync rewrites the stored policies whenever the plan catalogue changed
// since the last call.
func (s *ServiceImpl) sync() error {
	current := s.plans.Get()
	fingerprint := fingerprintOf(current)

	s.mu.Lock()
	defer s.mu.Unlock()
	if fingerprint == s.synced {
		return nil
	}

	for _, plan := range current.Plans {
		if _, err := s.enforcer.RemoveFilteredPolicy(0, plan.Code); err != nil {
			return err
		}
		rules := policiesFor(plan)
		if len(rules) == 0 {
			continue
		}
		if _, err := s.enforcer.AddPolicies(rules); err != nil {
			return err
		}
	}

	s.synced = fingerprint
	s.log.Info("plan feature policies synced", zap.Int("plans", len(current.Plans)))
	return nil
}

func policiesFor(plan config.Plan) [][]string {
	seen := make(map[string]struct{}, len(plan.Features))
	rules := make([][]string, 0, len(plan.Features))
	for _, f := range plan.Features {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		rules = append(rules, []string{plan.Code, f, ActionUse})
	}
	return rules
}

func fingerprintOf(cfg config.PlansConfig) string {
	parts := make([]string, 0, len(cfg.Plans))
	for _, plan := range cfg.Plans {
		features := append([]string(nil), plan.Features...)
		sort.Strings(features)
		parts = append(parts, plan.Code+"="+strings.Join(features, ","))
	}
	sort.Strings(parts)
	return strings.Join(parts, ";")
}

func (s *ServiceImpl) auditDenied(ctx context.Context, plan, feature string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, nil, auditdomain.Entry{
		Action:     "authorization.denied",
		TargetType: "feature",
		TargetID:   feature,
		Metadata:   map[string]any{"plan": plan, "feature": feature},
	})
	if err != nil && !errors.Is(err, auditdomain.ErrInvalidCompany) {
		s.log.Warn("audit failed", zap.Error(err))
	}
}
