package auth

import (
	"github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/auth/repository"
	"github.com/smallbiznis/invoicer/internal/auth/service"
	"github.com/smallbiznis/invoicer/internal/auth/token"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(token.NewIssuer),
	fx.Provide(companyResolver),
	fx.Provide(service.New),
)

func companyResolver(svc companydomain.Service) domain.CompanyResolver {
	return svc
}
