package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// MarkOverdue flips every sent invoice whose due date is before the day of
// now. It is not scoped to a company.
func (s *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	day := startOfDay(now)
	companies, err := s.repo.MarkOverdue(ctx, s.db, day, now.UTC())
	if err != nil {
		return 0, err
	}
	for _, companyID := range companies {
		if s.dashboard != nil {
			s.dashboard.Invalidate(companyID)
		}
	}
	if len(companies) > 0 {
		s.log.Info("invoices marked overdue",
			zap.Int("companies", len(companies)),
			zap.Time("day", day),
		)
	}
	return len(companies), nil
}
