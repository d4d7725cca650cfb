package signup

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/signup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Auth        authdomain.Service
	Provisioner domain.Provisioner
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	authsvc     authdomain.Service
	provisioner domain.Provisioner
}

func NewService(p Params) domain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("signup.service"),
		authsvc:     p.Auth,
		provisioner: p.Provisioner,
	}
}

func (s *service) Signup(ctx context.Context, req domain.Request) (*authdomain.LoginResult, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, domain.ErrInvalidRequest
	}

	var (
		user      *authdomain.User
		companyID snowflake.ID
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = s.authsvc.CreateUser(ctx, tx, authdomain.CreateUserRequest{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return err
		}
		companyID, err = s.provisioner.Provision(ctx, tx, user, req.CompanyName)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account created",
		zap.String("user_id", user.ID.String()),
		zap.String("company_id", companyID.String()),
	)
	return s.authsvc.IssueToken(user, companyID)
}
