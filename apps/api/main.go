package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/audit"
	"github.com/smallbiznis/invoicer/internal/auth"
	"github.com/smallbiznis/invoicer/internal/authorization"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/company"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/customer"
	"github.com/smallbiznis/invoicer/internal/dashboard"
	"github.com/smallbiznis/invoicer/internal/invoice"
	"github.com/smallbiznis/invoicer/internal/migration"
	"github.com/smallbiznis/invoicer/internal/observability"
	"github.com/smallbiznis/invoicer/internal/providers"
	"github.com/smallbiznis/invoicer/internal/ratelimit"
	"github.com/smallbiznis/invoicer/internal/server"
	"github.com/smallbiznis/invoicer/internal/signup"
	"github.com/smallbiznis/invoicer/internal/subscription"
	"github.com/smallbiznis/invoicer/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Redis backed rate limit and numbering lock
		ratelimit.Module,
		providers.Module,

		auth.Module,
		company.Module,
		customer.Module,
		authorization.Module,
		subscription.Module,
		audit.Module,
		dashboard.Module,
		invoice.Module,
		signup.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
