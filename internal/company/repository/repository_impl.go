package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/company/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, company *domain.Company) error {
	return db.WithContext(ctx).Create(company).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, company *domain.Company) error {
	return db.WithContext(ctx).Exec(
		`UPDATE companies SET name = ?, address = ?, city = ?, postal_code = ?, country = ?,
		 vat_number = ?, fiscal_code = ?, phone = ?, email = ?, updated_at = ?
		 WHERE id = ?`,
		company.Name,
		company.Address,
		company.City,
		company.PostalCode,
		company.Country,
		company.VATNumber,
		company.FiscalCode,
		company.Phone,
		company.Email,
		company.UpdatedAt,
		company.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Company, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*domain.Company, error) {
	return r.findOne(ctx, db, "owner_id = ?", ownerID)
}

func (r *repo) SetLogoKey(ctx context.Context, db *gorm.DB, id snowflake.ID, key string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE companies SET logo_key = ?, updated_at = ? WHERE id = ?`,
		key, time.Now().UTC(), id,
	).Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Company, error) {
	var company domain.Company
	err := db.WithContext(ctx).Model(&domain.Company{}).Where(query, arg).Limit(1).Scan(&company).Error
	if err != nil {
		return nil, err
	}
	if company.ID == 0 {
		return nil, nil
	}
	return &company, nil
}
