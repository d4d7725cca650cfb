package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, company *Company) error
	Update(ctx context.Context, db *gorm.DB, company *Company) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Company, error)
	FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*Company, error)
	SetLogoKey(ctx context.Context, db *gorm.DB, id snowflake.ID, key string) error
}
