package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/cache"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const statsTTL = 30 * time.Second

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

// Service serves dashboard stats from a per company cache that invoice and
// customer mutations invalidate.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	stats cache.Cache[snowflake.ID, domain.Stats]
}

func New(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		repo:  p.Repo,
		stats: cache.NewTTLCache[snowflake.ID, domain.Stats](0, statsTTL),
	}
}

func (s *Service) Stats(ctx context.Context, now time.Time) (domain.Stats, error) {
	companyID, ok := companycontext.CompanyIDFromContext(ctx)
	if !ok {
		return domain.Stats{}, domain.ErrInvalidCompany
	}
	if stats, ok := s.stats.Get(companyID); ok {
		return stats, nil
	}

	invoices, err := s.repo.Invoices(ctx, s.db, companyID)
	if err != nil {
		return domain.Stats{}, err
	}
	items, err := s.repo.PaidItems(ctx, s.db, companyID)
	if err != nil {
		return domain.Stats{}, err
	}
	customers, err := s.repo.CountCustomers(ctx, s.db, companyID)
	if err != nil {
		return domain.Stats{}, err
	}

	stats := Aggregate(now, invoices, items, customers)
	s.stats.Set(companyID, stats)
	return stats, nil
}

func (s *Service) Invalidate(companyID snowflake.ID) {
	s.stats.Delete(companyID)
	s.log.Debug("dashboard invalidated", zap.String("company_id", companyID.String()))
}
