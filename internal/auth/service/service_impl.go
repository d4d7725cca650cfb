package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/auth/password"
	"github.com/smallbiznis/invoicer/internal/auth/token"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	"github.com/smallbiznis/invoicer/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Tokens    *token.Issuer
	Companies domain.CompanyResolver
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	tokens    *token.Issuer
	companies domain.CompanyResolver
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("auth.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		tokens:    p.Tokens,
		companies: p.Companies,
	}
}

func (s *Service) CreateUser(ctx context.Context, tx *gorm.DB, req domain.CreateUserRequest) (*domain.User, error) {
	if tx == nil {
		tx = s.db
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := password.Validate(req.Password); err != nil {
		return nil, domain.ErrInvalidPassword
	}

	existing, err := s.repo.FindByEmail(ctx, tx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, tx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !password.Verify(req.Password, user.PasswordHash) {
		s.log.Debug("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	companyID, err := s.companies.ResolveID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLogin(ctx, s.db, user.ID, now); err != nil {
		s.log.Warn("failed to record login time", zap.Error(err))
	}
	user.LastLoginAt = &now

	return s.IssueToken(user, companyID)
}

func (s *Service) IssueToken(user *domain.User, companyID snowflake.ID) (*domain.LoginResult, error) {
	raw, expiresAt, err := s.tokens.Sign(user.ID, companyID, user.Email)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{
		Token:     raw,
		ExpiresAt: expiresAt,
		User:      user,
		CompanyID: companyID,
	}, nil
}

// Authenticate verifies a bearer token. Tokens issued before the user had a
// company are resolved against the current owner mapping.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Identity, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, domain.ErrUnauthorized
	}

	claims, err := s.tokens.Parse(rawToken)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	companyID := claims.Company()
	if companyID == 0 {
		companyID, err = s.companies.ResolveID(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	return &domain.Identity{
		UserID:    userID,
		CompanyID: companyID,
		Email:     claims.Email,
	}, nil
}

func (s *Service) CurrentUser(ctx context.Context) (*domain.User, error) {
	userID, ok := companycontext.UserIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}

