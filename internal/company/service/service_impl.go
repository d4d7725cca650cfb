package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	"github.com/smallbiznis/invoicer/internal/providers/storage"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Storage storage.ObjectStorage
	Audit   auditdomain.Service `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	storage storage.ObjectStorage
	audit   auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("company.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		storage: p.Storage,
		audit:   p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, tx *gorm.DB, req domain.CreateCompanyRequest) (*domain.Company, error) {
	if req.OwnerID == 0 {
		return nil, domain.ErrUnauthorized
	}
	if tx == nil {
		tx = s.db
	}

	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = defaultName(email)
	}

	now := time.Now().UTC()
	company := &domain.Company{
		ID:        s.genID.Generate(),
		OwnerID:   req.OwnerID,
		Name:      name,
		Country:   domain.DefaultCountry,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, tx, company); err != nil {
		return nil, err
	}
	return company, nil
}

func (s *Service) ResolveID(ctx context.Context, ownerID snowflake.ID) (snowflake.ID, error) {
	company, err := s.repo.FindByOwner(ctx, s.db, ownerID)
	if err != nil {
		return 0, err
	}
	if company == nil {
		return 0, nil
	}
	return company.ID, nil
}

// Get returns the profile of the request's company, creating it on first
// access for users that have none yet.
func (s *Service) Get(ctx context.Context) (domain.Profile, error) {
	company, err := s.current(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	return s.profile(ctx, company), nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCompanyRequest) (domain.Profile, error) {
	company, err := s.current(ctx)
	if err != nil {
		return domain.Profile{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Profile{}, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.Profile{}, domain.ErrInvalidEmail
		}
	}
	country := strings.TrimSpace(req.Country)
	if country == "" {
		country = domain.DefaultCountry
	}

	company.Name = name
	company.Address = strings.TrimSpace(req.Address)
	company.City = strings.TrimSpace(req.City)
	company.PostalCode = strings.TrimSpace(req.PostalCode)
	company.Country = country
	company.VATNumber = strings.TrimSpace(req.VATNumber)
	company.FiscalCode = strings.TrimSpace(req.FiscalCode)
	company.Phone = strings.TrimSpace(req.Phone)
	company.Email = email
	company.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, company); err != nil {
		return domain.Profile{}, err
	}
	s.record(ctx, company.ID, "company.update", map[string]any{"name": company.Name})
	return s.profile(ctx, company), nil
}

func (s *Service) UploadLogo(ctx context.Context, filename string, r io.Reader) (domain.Profile, error) {
	company, err := s.current(ctx)
	if err != nil {
		return domain.Profile{}, err
	}

	data, err := normalizeLogo(r)
	if err != nil {
		return domain.Profile{}, err
	}

	key := fmt.Sprintf("logo-%s.png", company.ID.String())
	if err := s.storage.Put(ctx, key, data, "image/png"); err != nil {
		s.log.Error("logo upload failed", zap.String("key", key), zap.Error(err))
		return domain.Profile{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if err := s.repo.SetLogoKey(ctx, s.db, company.ID, key); err != nil {
		return domain.Profile{}, err
	}
	company.LogoKey = key

	s.record(ctx, company.ID, "company.logo_upload", map[string]any{"filename": filename, "bytes": len(data)})
	return s.profile(ctx, company), nil
}

func (s *Service) RemoveLogo(ctx context.Context) (domain.Profile, error) {
	company, err := s.current(ctx)
	if err != nil {
		return domain.Profile{}, err
	}
	if company.LogoKey == "" {
		return s.profile(ctx, company), nil
	}

	if err := s.storage.Delete(ctx, company.LogoKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return domain.Profile{}, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if err := s.repo.SetLogoKey(ctx, s.db, company.ID, ""); err != nil {
		return domain.Profile{}, err
	}
	company.LogoKey = ""

	s.record(ctx, company.ID, "company.logo_remove", nil)
	return s.profile(ctx, company), nil
}

func (s *Service) Logo(ctx context.Context, companyID snowflake.ID) ([]byte, error) {
	company, err := s.repo.FindByID(ctx, s.db, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrCompanyNotFound
	}
	if company.LogoKey == "" {
		return nil, nil
	}
	data, err := s.storage.Get(ctx, company.LogoKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil
	}
	return data, err
}

func (s *Service) current(ctx context.Context) (*domain.Company, error) {
	if companyID, ok := companycontext.CompanyIDFromContext(ctx); ok {
		company, err := s.repo.FindByID(ctx, s.db, companyID)
		if err != nil {
			return nil, err
		}
		if company == nil {
			return nil, domain.ErrCompanyNotFound
		}
		return company, nil
	}

	userID, ok := companycontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	company, err := s.repo.FindByOwner(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if company != nil {
		return company, nil
	}

	s.log.Info("creating company on first access", zap.String("user_id", userID.String()))
	return s.Create(ctx, s.db, domain.CreateCompanyRequest{
		OwnerID: userID,
		Email:   companycontext.UserEmailFromContext(ctx),
	})
}

func (s *Service) profile(ctx context.Context, company *domain.Company) domain.Profile {
	out := domain.Profile{Company: *company}
	if out.Email == "" {
		out.Email = companycontext.UserEmailFromContext(ctx)
	}
	if company.LogoKey != "" {
		out.LogoURL = s.storage.URL(company.LogoKey)
	}
	return out
}

func (s *Service) record(ctx context.Context, companyID snowflake.ID, action string, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, nil, auditdomain.Entry{
		CompanyID:  companyID,
		Action:     action,
		TargetType: "company",
		TargetID:   companyID.String(),
		Metadata:   metadata,
	})
}

func defaultName(email string) string {
	local, _, ok := strings.Cut(email, "@")
	if !ok || strings.TrimSpace(local) == "" {
		return "La mia azienda"
	}
	return local
}
