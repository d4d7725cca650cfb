package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"gorm.io/gorm"
)

type Service interface {
	// Signup creates the user, their company and a FREE subscription in one
	// transaction and returns a bearer token for the new account.
	Signup(ctx context.Context, req Request) (*authdomain.LoginResult, error)
}

type Request struct {
	CompanyName string `json:"company_name" validate:"max=200"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

// Provisioner sets up everything a new user owns. It must only write
// through tx.
type Provisioner interface {
	Provision(ctx context.Context, tx *gorm.DB, user *authdomain.User, companyName string) (snowflake.ID, error)
}

var ErrInvalidRequest = errors.New("invalid_signup_request")
