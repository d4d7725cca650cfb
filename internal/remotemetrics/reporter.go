package remotemetrics

import (
	"context"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/invoicer/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Reporter snapshots instance-wide counts into a private registry and pushes it.
// It never touches the default registry served on /metrics.
type Reporter struct {
	db       *gorm.DB
	log      *zap.Logger
	pusher   Pusher
	registry *prometheus.Registry

	companies *prometheus.GaugeVec
	customers *prometheus.GaugeVec
	invoices  *prometheus.GaugeVec
	memory    *prometheus.GaugeVec
}

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
	Pusher Pusher `optional:"true"`
}

// NewReporter returns nil when no pusher is configured.
func NewReporter(p Params) *Reporter {
	if p.Pusher == nil {
		return nil
	}
	return newReporter(p.DB, p.Log, p.Pusher, p.Config)
}

func newReporter(db *gorm.DB, log *zap.Logger, pusher Pusher, cfg config.Config) *Reporter {
	if log == nil {
		log = zap.NewNop()
	}
	constLabels := prometheus.Labels{
		"instance_version": cfg.AppVersion,
		"environment":      cfg.Environment,
	}
	r := &Reporter{
		db:       db,
		log:      log.Named("remotemetrics"),
		pusher:   pusher,
		registry: prometheus.NewRegistry(),
		companies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "invoicer_companies_total",
			Help:        "Registered companies.",
			ConstLabels: constLabels,
		}, nil),
		customers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "invoicer_customers_total",
			Help:        "Customers across all companies.",
			ConstLabels: constLabels,
		}, nil),
		invoices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "invoicer_invoices_total",
			Help:        "Invoices across all companies by status.",
			ConstLabels: constLabels,
		}, []string{"status"}),
		memory: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "invoicer_process_memory_bytes",
			Help:        "Memory obtained from the OS.",
			ConstLabels: constLabels,
		}, nil),
	}
	r.registry.MustRegister(r.companies, r.customers, r.invoices, r.memory)
	return r
}

// Registry exposes the private registry for tests and ad-hoc gathering.
func (r *Reporter) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Collect refreshes every gauge from the database.
func (r *Reporter) Collect(ctx context.Context) error {
	if r == nil {
		return nil
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.memory.WithLabelValues().Set(float64(m.Sys))

	if r.db == nil {
		return nil
	}

	var companies int64
	if err := r.db.WithContext(ctx).Table("companies").Count(&companies).Error; err != nil {
		return err
	}
	r.companies.WithLabelValues().Set(float64(companies))

	var customers int64
	if err := r.db.WithContext(ctx).Table("customers").Count(&customers).Error; err != nil {
		return err
	}
	r.customers.WithLabelValues().Set(float64(customers))

	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Table("invoices").
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return err
	}
	r.invoices.Reset()
	for _, row := range rows {
		r.invoices.WithLabelValues(row.Status).Set(float64(row.Total))
	}
	return nil
}

// Report collects and pushes in one step.
func (r *Reporter) Report(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if err := r.Collect(ctx); err != nil {
		return err
	}
	if err := r.pusher.Push(ctx, r.registry); err != nil {
		r.log.Warn("remote metrics push failed", zap.Error(err))
		return err
	}
	return nil
}
