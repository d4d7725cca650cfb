package dashboard

import (
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"github.com/smallbiznis/invoicer/internal/dashboard/repository"
	"github.com/smallbiznis/invoicer/internal/dashboard/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(repository.Provide),
	fx.Provide(fx.Annotate(service.New,
		fx.As(new(domain.Service)),
		fx.As(new(domain.Invalidator)),
	)),
)
