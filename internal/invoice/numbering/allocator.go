package numbering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrAllocationBusy = errors.New("invoice_number_busy")

const (
	lockTTL      = 10 * time.Second
	lockWait     = 5 * time.Second
	lockInterval = 50 * time.Millisecond
)

// Locker is a cross-process mutex keyed by string.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// Sequence is the per company and year row that serialises allocation. The
// row is only a lock anchor: numbers always come from the existing invoices
// and LastNumber is a high-water mark kept for inspection.
type Sequence struct {
	CompanyID  snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Year       int          `gorm:"primaryKey;autoIncrement:false"`
	LastNumber int          `gorm:"not null;default:0"`
	UpdatedAt  time.Time    `gorm:"not null"`
}

func (Sequence) TableName() string { return "invoice_sequences" }

type Params struct {
	fx.In

	Log    *zap.Logger
	Locker Locker `optional:"true"`
}

type Allocator struct {
	log    *zap.Logger
	locker Locker
	wait   time.Duration
}

func NewAllocator(p Params) *Allocator {
	return &Allocator{
		log:    p.Log.Named("invoice.numbering"),
		locker: p.Locker,
		wait:   lockWait,
	}
}

// Lock takes the distributed lock for the company and year when a Locker is
// configured. The returned release func is always safe to call.
func (a *Allocator) Lock(ctx context.Context, companyID snowflake.ID, year int) (func(), error) {
	if a.locker == nil {
		return func() {}, nil
	}
	key := fmt.Sprintf("invoice-number:%s:%d", companyID.String(), year)

	waitCtx, cancel := context.WithTimeout(ctx, a.wait)
	defer cancel()
	for {
		token, ok, err := a.locker.TryLock(waitCtx, key, lockTTL)
		if err != nil {
			// redis outages fall back to the row lock alone
			a.log.Warn("invoice number lock unavailable", zap.Error(err))
			return func() {}, nil
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()
				if err := a.locker.Release(releaseCtx, key, token); err != nil {
					a.log.Warn("invoice number lock release failed", zap.Error(err))
				}
			}, nil
		}

		select {
		case <-waitCtx.Done():
			return func() {}, ErrAllocationBusy
		case <-time.After(lockInterval):
		}
	}
}

// Allocate returns the next free number for the company and year. It must run
// inside the transaction that inserts the invoice: the sequence row stays
// locked until that transaction ends.
func (a *Allocator) Allocate(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, year int) (string, error) {
	if companyID == 0 {
		return "", companydomain.ErrCompanyNotFound
	}

	seq, err := a.lockSequence(ctx, tx, companyID, year)
	if err != nil {
		return "", err
	}

	existing, err := a.existing(ctx, tx, companyID, year)
	if err != nil {
		return "", err
	}
	next := NextSequence(existing)

	if next > seq.LastNumber {
		if err := tx.WithContext(ctx).Model(&Sequence{}).
			Where("company_id = ? AND year = ?", companyID, year).
			Updates(map[string]any{"last_number": next, "updated_at": time.Now().UTC()}).Error; err != nil {
			return "", err
		}
	}
	return Format(year, next), nil
}

// Preview computes the number the next allocation would return without
// locking anything.
func (a *Allocator) Preview(ctx context.Context, db *gorm.DB, companyID snowflake.ID, year int) (string, error) {
	if companyID == 0 {
		return "", companydomain.ErrCompanyNotFound
	}
	existing, err := a.existing(ctx, db, companyID, year)
	if err != nil {
		return "", err
	}
	return Next(year, existing), nil
}

func (a *Allocator) lockSequence(ctx context.Context, tx *gorm.DB, companyID snowflake.ID, year int) (*Sequence, error) {
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&Sequence{
		CompanyID: companyID,
		Year:      year,
		UpdatedAt: time.Now().UTC(),
	}).Error; err != nil {
		return nil, err
	}

	var seq Sequence
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND year = ?", companyID, year).
		Take(&seq).Error
	if err != nil {
		return nil, err
	}
	return &seq, nil
}

func (a *Allocator) existing(ctx context.Context, db *gorm.DB, companyID snowflake.ID, year int) ([]string, error) {
	var numbers []string
	err := db.WithContext(ctx).
		Table("invoices").
		Where("company_id = ? AND invoice_number LIKE ?", companyID, Prefix(year)+"%").
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}
