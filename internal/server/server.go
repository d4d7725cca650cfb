package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/config"
	customerdomain "github.com/smallbiznis/invoicer/internal/customer/domain"
	dashboarddomain "github.com/smallbiznis/invoicer/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/observability"
	obsmiddleware "github.com/smallbiznis/invoicer/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicer/internal/observability/metrics"
	obstracing "github.com/smallbiznis/invoicer/internal/observability/tracing"
	"github.com/smallbiznis/invoicer/internal/ratelimit"
	signupdomain "github.com/smallbiznis/invoicer/internal/signup/domain"
	subscriptiondomain "github.com/smallbiznis/invoicer/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	scopeAuth = "auth"
	scopeAPI  = "api"

	maxLogoBytes = 5 << 20
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	clock           clock.Clock
	authsvc         authdomain.Service
	signupsvc       signupdomain.Service
	companySvc      companydomain.Service
	customerSvc     customerdomain.Service
	invoiceSvc      invoicedomain.Service
	dashboardSvc    dashboarddomain.Service
	subscriptionSvc subscriptiondomain.Service
	auditSvc        auditdomain.Service
	limiter         *ratelimit.Limiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Clock           clock.Clock
	Authsvc         authdomain.Service
	Signupsvc       signupdomain.Service
	CompanySvc      companydomain.Service
	CustomerSvc     customerdomain.Service
	InvoiceSvc      invoicedomain.Service
	DashboardSvc    dashboarddomain.Service
	SubscriptionSvc subscriptiondomain.Service
	AuditSvc        auditdomain.Service
	Limiter         *ratelimit.Limiter   `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		clock:           p.Clock,
		authsvc:         p.Authsvc,
		signupsvc:       p.Signupsvc,
		companySvc:      p.CompanySvc,
		customerSvc:     p.CustomerSvc,
		invoiceSvc:      p.InvoiceSvc,
		dashboardSvc:    p.DashboardSvc,
		subscriptionSvc: p.SubscriptionSvc,
		auditSvc:        p.AuditSvc,
		limiter:         p.Limiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth", s.RateLimit(scopeAuth))

	auth.POST("/signup", s.Signup)
	auth.POST("/login", s.Login)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.RateLimit(scopeAPI), s.AuthRequired())

	api.GET("/me", s.Me)

	// -------- Company --------
	api.GET("/company", s.GetCompany)
	api.PUT("/company", s.UpdateCompany)
	api.PUT("/company/logo", s.UploadCompanyLogo)
	api.DELETE("/company/logo", s.RemoveCompanyLogo)

	scoped := api.Group("", s.CompanyRequired())

	// -------- Customers --------
	scoped.GET("/customers", s.ListCustomers)
	scoped.POST("/customers", s.CreateCustomer)
	scoped.GET("/customers/:id", s.GetCustomerByID)
	scoped.PUT("/customers/:id", s.UpdateCustomer)
	scoped.DELETE("/customers/:id", s.DeleteCustomer)

	// -------- Invoices --------
	scoped.GET("/invoices/next-number", s.NextInvoiceNumber)
	scoped.GET("/invoices/export.csv", s.ExportInvoices)
	scoped.GET("/invoices", s.ListInvoices)
	scoped.POST("/invoices", s.CreateInvoice)
	scoped.GET("/invoices/:id", s.GetInvoiceByID)
	scoped.PUT("/invoices/:id", s.UpdateInvoice)
	scoped.DELETE("/invoices/:id", s.DeleteInvoice)
	scoped.PATCH("/invoices/:id/status", s.UpdateInvoiceStatus)
	scoped.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)
	scoped.POST("/invoices/:id/email", s.EmailInvoice)

	// -------- Dashboard --------
	scoped.GET("/dashboard", s.GetDashboard)

	// -------- Subscription --------
	scoped.GET("/subscription", s.GetSubscription)
	scoped.GET("/subscription/payments", s.ListPayments)
	scoped.POST("/subscription/checkout", s.CreateCheckout)

	scoped.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/stripe", s.StripeWebhook)
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}
