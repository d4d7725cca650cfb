package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/clock"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	obsmetrics "github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/internal/remotemetrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	InvoiceSvc invoicedomain.Service
	Config     Config                  `optional:"true"`
	Reporter   *remotemetrics.Reporter `optional:"true"`
	Locker     numbering.Locker        `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	invoiceSvc invoicedomain.Service
	reporter   *remotemetrics.Reporter
	locker     numbering.Locker
}

type job struct {
	name string
	run  func(context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.InvoiceSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		invoiceSvc: p.InvoiceSvc,
		reporter:   p.Reporter,
		locker:     p.Locker,
	}, nil
}

func (s *Scheduler) jobs() []job {
	jobs := []job{{JobMarkOverdue, s.MarkOverdueJob}}
	if s.reporter != nil {
		jobs = append(jobs, job{JobPushMetrics, s.PushMetricsJob})
	}
	return jobs
}

// runJob wraps fn with a deadline, a cross-instance lock, metrics and start
// and finish log lines. A deadline hit is logged and swallowed.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	release, ok := s.acquire(ctx, name)
	if !ok {
		s.log.Debug("scheduler.job.skipped", zap.String("job", name))
		return nil
	}
	defer release()

	ctx, run := s.startRun(ctx, name)
	s.logJobStart(ctx, run)

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	start := s.clock.Now()
	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	schedMetrics.AddBatchProcessed(name, run.processedCount)
	if err != nil {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	schedMetrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) acquire(ctx context.Context, name string) (func(), bool) {
	if s.locker == nil {
		return func() {}, true
	}
	key := "scheduler:" + name
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.JobTimeout)
	if err != nil {
		// Redis outages must not stop overdue marking on a single instance.
		s.log.Warn("scheduler lock unavailable", zap.String("job", name), zap.Error(err))
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		if err := s.locker.Release(context.Background(), key, token); err != nil {
			s.log.Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
		}
	}, true
}

// RunOnce runs every enabled job in order and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j.name, j.run))
	}
	return err
}

// RunForever runs once immediately and then on every tick until ctx ends.
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), name) {
			return true
		}
	}
	return false
}

func (s *Scheduler) MarkOverdueJob(ctx context.Context) error {
	companies, err := s.invoiceSvc.MarkOverdue(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	runFromContext(ctx).AddProcessed(companies)
	return nil
}

func (s *Scheduler) PushMetricsJob(ctx context.Context) error {
	if s.reporter == nil {
		return nil
	}
	return s.reporter.Report(ctx)
}
