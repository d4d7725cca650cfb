package numbering

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAllocatorDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Sequence{}))
	require.NoError(t, conn.Exec(`CREATE TABLE invoices (
		id INTEGER PRIMARY KEY,
		company_id INTEGER NOT NULL,
		invoice_number TEXT NOT NULL,
		UNIQUE (company_id, invoice_number)
	)`).Error)
	return conn
}

func insertNumber(t *testing.T, conn *gorm.DB, id int64, companyID snowflake.ID, number string) {
	t.Helper()
	require.NoError(t, conn.Exec(
		`INSERT INTO invoices (id, company_id, invoice_number) VALUES (?, ?, ?)`,
		id, companyID, number,
	).Error)
}

func TestAllocateFillsGapPerCompany(t *testing.T) {
	conn := setupAllocatorDB(t)
	alloc := NewAllocator(Params{Log: zap.NewNop()})
	ctx := context.Background()

	insertNumber(t, conn, 1, 10, "2025-0001")
	insertNumber(t, conn, 2, 10, "2025-0003")
	insertNumber(t, conn, 3, 10, "2024-0002")
	insertNumber(t, conn, 4, 20, "2025-0002")

	var got string
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		got, err = alloc.Allocate(ctx, tx, 10, 2025)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-0002", got)

	preview, err := alloc.Preview(ctx, conn, 20, 2025)
	require.NoError(t, err)
	assert.Equal(t, "2025-0001", preview)

	var seq Sequence
	require.NoError(t, conn.Where("company_id = ? AND year = ?", 10, 2025).Take(&seq).Error)
	assert.Equal(t, 2, seq.LastNumber)
}

func TestAllocateRequiresCompany(t *testing.T) {
	alloc := NewAllocator(Params{Log: zap.NewNop()})

	_, err := alloc.Allocate(context.Background(), nil, 0, 2025)
	assert.ErrorIs(t, err, companydomain.ErrCompanyNotFound)

	_, err = alloc.Preview(context.Background(), nil, 0, 2025)
	assert.ErrorIs(t, err, companydomain.ErrCompanyNotFound)
}

func TestSequentialAllocationsNeverRepeat(t *testing.T) {
	conn := setupAllocatorDB(t)
	alloc := NewAllocator(Params{Log: zap.NewNop()})
	ctx := context.Background()

	seen := map[string]bool{}
	for i := int64(1); i <= 5; i++ {
		err := conn.Transaction(func(tx *gorm.DB) error {
			number, err := alloc.Allocate(ctx, tx, 7, 2026)
			if err != nil {
				return err
			}
			assert.False(t, seen[number], "duplicate %s", number)
			seen[number] = true
			return tx.Exec(`INSERT INTO invoices (id, company_id, invoice_number) VALUES (?, ?, ?)`, i, 7, number).Error
		})
		require.NoError(t, err)
	}
	assert.True(t, seen["2026-0005"])
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	released int
	err      error
}

func (f *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", false, f.err
	}
	if f.held == nil {
		f.held = map[string]string{}
	}
	if _, ok := f.held[key]; ok {
		return "", false, nil
	}
	f.held[key] = "token"
	return "token", true, nil
}

func (f *fakeLocker) Release(ctx context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] == token {
		delete(f.held, key)
		f.released++
	}
	return nil
}

func TestLockWaitsAndReleases(t *testing.T) {
	locker := &fakeLocker{}
	alloc := NewAllocator(Params{Log: zap.NewNop(), Locker: locker})
	alloc.wait = 100 * time.Millisecond
	ctx := context.Background()

	release, err := alloc.Lock(ctx, 1, 2025)
	require.NoError(t, err)

	_, err = alloc.Lock(ctx, 1, 2025)
	assert.ErrorIs(t, err, ErrAllocationBusy)

	release()
	assert.Equal(t, 1, locker.released)

	release, err = alloc.Lock(ctx, 1, 2025)
	require.NoError(t, err)
	release()
}

func TestLockFallsBackWhenLockerFails(t *testing.T) {
	alloc := NewAllocator(Params{Log: zap.NewNop(), Locker: &fakeLocker{err: errors.New("redis down")}})

	release, err := alloc.Lock(context.Background(), 1, 2025)
	require.NoError(t, err)
	release()
}
