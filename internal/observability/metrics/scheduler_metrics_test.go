package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", fmt.Errorf("mark overdue: %w", context.DeadlineExceeded), SchedulerJobReasonDeadlineExceeded},
		{"canceled", context.Canceled, SchedulerJobReasonCanceled},
		{"db_lock_timeout", &pgconn.PgError{Code: "55P03"}, SchedulerJobReasonDBLockTimeout},
		{"serialization_failure", &pgconn.PgError{Code: "40001"}, SchedulerJobReasonSerializationFailure},
		{"unique_violation", gorm.ErrDuplicatedKey, SchedulerJobReasonUniqueViolation},
		{"unknown", errors.New("boom"), SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestSchedulerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := newSchedulerMetrics(registry)

	m.IncJobRun("invoice.mark_overdue")
	m.AddBatchProcessed("invoice.mark_overdue", 3)
	m.IncJobError("invoice.mark_overdue", context.DeadlineExceeded)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobRuns.WithLabelValues("invoice.mark_overdue")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.batchProcessed.WithLabelValues("invoice.mark_overdue")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobErrors.WithLabelValues("invoice.mark_overdue", SchedulerJobReasonDeadlineExceeded)))
}

func TestRegisterReusesExistingCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := newHTTPMetrics(registry)
	second := newHTTPMetrics(registry)
	assert.Same(t, first.requests, second.requests)
}
