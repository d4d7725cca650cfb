package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	obscontext "github.com/smallbiznis/invoicer/internal/observability/context"
)

const (
	contextUserIDKey    = "user_id"
	contextCompanyIDKey = "company_id"
)

// AuthRequired resolves the bearer token into the request context. The
// company id is attached when the user already owns one.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.authsvc.Authenticate(c.Request.Context(), raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := c.Request.Context()
		ctx = companycontext.WithUserID(ctx, identity.UserID)
		ctx = companycontext.WithUserEmail(ctx, identity.Email)
		ctx = obscontext.WithActor(ctx, "user", identity.UserID.String())
		c.Set(contextUserIDKey, identity.UserID.String())
		if identity.CompanyID != 0 {
			ctx = companycontext.WithCompanyID(ctx, identity.CompanyID)
			ctx = obscontext.WithCompanyID(ctx, identity.CompanyID.String())
			c.Set(contextCompanyIDKey, identity.CompanyID.String())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CompanyRequired aborts with company_not_found before any handler runs
// when the user owns no company.
func (s *Server) CompanyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := companycontext.CompanyIDFromContext(c.Request.Context()); !ok {
			AbortWithError(c, ErrCompanyNotFound)
			return
		}
		c.Next()
	}
}

// RateLimit applies the per client IP token bucket of scope.
func (s *Server) RateLimit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}
		allowed, retryAfter := s.limiter.Allow(c.Request.Context(), scope, c.ClientIP())
		if allowed {
			c.Next()
			return
		}
		s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), scope)
		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		AbortWithError(c, ErrTooManyRequests)
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
