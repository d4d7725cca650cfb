package invoice

import (
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	"github.com/smallbiznis/invoicer/internal/invoice/render"
	"github.com/smallbiznis/invoicer/internal/invoice/repository"
	"github.com/smallbiznis/invoicer/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(numbering.NewAllocator),
	fx.Provide(render.NewRenderer),
	fx.Provide(service.New),
)
