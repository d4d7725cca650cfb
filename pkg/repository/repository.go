package repository

import (
	"context"

	"github.com/smallbiznis/invoicer/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a thin generic gorm store for simple tables.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
	Updates(ctx context.Context, id any, fields map[string]any) error
	Delete(ctx context.Context, id any) error
	Count(ctx context.Context, query *T, opts ...option.QueryOption) (int64, error)
}
