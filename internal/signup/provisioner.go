package signup

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/invoicer/internal/subscription/domain"
	"gorm.io/gorm"
)

// AccountProvisioner creates the company of a new user and starts its FREE
// subscription.
type AccountProvisioner struct {
	companies     companydomain.Service
	subscriptions subscriptiondomain.Service
}

func NewAccountProvisioner(companies companydomain.Service, subscriptions subscriptiondomain.Service) domain.Provisioner {
	return &AccountProvisioner{
		companies:     companies,
		subscriptions: subscriptions,
	}
}

func (p *AccountProvisioner) Provision(ctx context.Context, tx *gorm.DB, user *authdomain.User, companyName string) (snowflake.ID, error) {
	name := strings.TrimSpace(companyName)
	if name == "" {
		name = localPart(user.Email)
	}

	company, err := p.companies.Create(ctx, tx, companydomain.CreateCompanyRequest{
		OwnerID: user.ID,
		Name:    name,
		Email:   user.Email,
	})
	if err != nil {
		return 0, err
	}

	if _, err := p.subscriptions.Provision(ctx, tx, company.ID); err != nil {
		return 0, err
	}
	return company.ID, nil
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}
