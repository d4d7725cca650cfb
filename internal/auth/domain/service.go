package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// CreateUser registers a user through tx so callers can provision the
	// rest of the account atomically.
	CreateUser(ctx context.Context, tx *gorm.DB, req CreateUserRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	// IssueToken signs a bearer token for an already verified user.
	IssueToken(user *User, companyID snowflake.ID) (*LoginResult, error)
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
	CurrentUser(ctx context.Context) (*User, error)
}

type CreateUserRequest struct {
	Email    string
	Password string
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *User        `json:"user"`
	CompanyID snowflake.ID `json:"company_id"`
}

// CompanyResolver finds the company owned by a user. It returns 0 when the
// user has none.
type CompanyResolver interface {
	ResolveID(ctx context.Context, ownerID snowflake.ID) (snowflake.ID, error)
}
