package companycontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

type companyKey struct{}
type userKey struct{}
type emailKey struct{}

// WithCompanyID stores the active company for the request.
func WithCompanyID(ctx context.Context, companyID snowflake.ID) context.Context {
	return context.WithValue(ctx, companyKey{}, companyID)
}

// CompanyIDFromContext returns the active company, if any.
func CompanyIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFromContext(ctx, companyKey{})
}

func WithUserID(ctx context.Context, userID snowflake.ID) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	return idFromContext(ctx, userKey{})
}

func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, emailKey{}, strings.TrimSpace(email))
}

func UserEmailFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(emailKey{}).(string)
	return v
}

func idFromContext(ctx context.Context, key any) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}
	switch typed := ctx.Value(key).(type) {
	case snowflake.ID:
		return typed, typed != 0
	case int64:
		return snowflake.ID(typed), typed != 0
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil && parsed != 0 {
			return parsed, true
		}
	}
	return 0, false
}
