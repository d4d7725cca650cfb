package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/invoicer/internal/clock"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/remotemetrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

type fakeInvoices struct {
	invoicedomain.Service

	mu    sync.Mutex
	calls []time.Time
	err   error
	block bool
}

func (f *fakeInvoices) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, now)
	err, block := f.err, f.block
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return 2, err
}

func (f *fakeInvoices) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type countingPusher struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPusher) Push(context.Context, *prometheus.Registry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return nil
}

type heldLocker struct {
	held     bool
	released []string
}

func (l *heldLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	if l.held {
		return "", false, nil
	}
	return "token-" + key, true, nil
}

func (l *heldLocker) Release(_ context.Context, key, _ string) error {
	l.released = append(l.released, key)
	return nil
}

var schedulerNow = time.Date(2025, 3, 10, 2, 0, 0, 0, time.UTC)

func newTestScheduler(t *testing.T, invoices *fakeInvoices, mutate func(*Params)) *Scheduler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	p := Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      clock.NewFakeClock(schedulerNow),
		InvoiceSvc: invoices,
		Config:     Config{Enabled: true, RunInterval: time.Hour, JobTimeout: time.Second},
	}
	if mutate != nil {
		mutate(&p)
	}
	sched, err := New(p)
	require.NoError(t, err)
	return sched
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestProvideConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Hour, cfg.RunInterval)

	got := Config{}.withDefaults()
	assert.Equal(t, time.Hour, got.RunInterval)
	assert.Equal(t, 2*time.Minute, got.JobTimeout)
}

func TestRunOnceMarksOverdueWithClockTime(t *testing.T) {
	invoices := &fakeInvoices{}
	sched := newTestScheduler(t, invoices, nil)

	require.NoError(t, sched.RunOnce(context.Background()))
	require.Equal(t, 1, invoices.count())
	assert.Equal(t, schedulerNow, invoices.calls[0])
}

func TestRunOnceWrapsJobError(t *testing.T) {
	invoices := &fakeInvoices{err: errors.New("db down")}
	sched := newTestScheduler(t, invoices, nil)

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), JobMarkOverdue)
	assert.Contains(t, err.Error(), "db down")
}

func TestRunOnceTreatsTimeoutAsSoft(t *testing.T) {
	invoices := &fakeInvoices{block: true}
	sched := newTestScheduler(t, invoices, func(p *Params) {
		p.Config.JobTimeout = 20 * time.Millisecond
	})

	assert.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, invoices.count())
}

func TestRunOnceSkipsJobHeldElsewhere(t *testing.T) {
	invoices := &fakeInvoices{}
	locker := &heldLocker{held: true}
	sched := newTestScheduler(t, invoices, func(p *Params) { p.Locker = locker })

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 0, invoices.count())

	locker.held = false
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, invoices.count())
	assert.Equal(t, []string{"scheduler:" + JobMarkOverdue}, locker.released)
}

func TestRunOncePushesMetricsWhenConfigured(t *testing.T) {
	pusher := &countingPusher{}
	reporter := remotemetrics.NewReporter(remotemetrics.Params{Log: zap.NewNop(), Pusher: pusher})
	require.NotNil(t, reporter)

	invoices := &fakeInvoices{}
	sched := newTestScheduler(t, invoices, func(p *Params) { p.Reporter = reporter })
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, pusher.calls)

	sched.cfg.EnabledJobs = []string{JobPushMetrics}
	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 2, pusher.calls)
	assert.Equal(t, 1, invoices.count())
}

func TestStartRunsUntilStopped(t *testing.T) {
	invoices := &fakeInvoices{}
	sched := newTestScheduler(t, invoices, nil)

	lc := fxtest.NewLifecycle(t)
	Start(lc, sched.cfg, sched)
	lc.RequireStart()
	require.Eventually(t, func() bool { return invoices.count() == 1 }, time.Second, 5*time.Millisecond)
	lc.RequireStop()
}

func TestStartDisabled(t *testing.T) {
	invoices := &fakeInvoices{}
	sched := newTestScheduler(t, invoices, nil)

	lc := fxtest.NewLifecycle(t)
	Start(lc, Config{Enabled: false}, sched)
	lc.RequireStart()
	lc.RequireStop()
	assert.Equal(t, 0, invoices.count())
}
