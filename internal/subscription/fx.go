package subscription

import (
	"github.com/smallbiznis/invoicer/internal/payment/adapters/stripe"
	"github.com/smallbiznis/invoicer/internal/subscription/repository"
	"github.com/smallbiznis/invoicer/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(stripe.NewClient),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
