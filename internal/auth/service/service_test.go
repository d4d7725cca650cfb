package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	"github.com/smallbiznis/invoicer/internal/auth/repository"
	"github.com/smallbiznis/invoicer/internal/auth/token"
	"github.com/smallbiznis/invoicer/internal/companycontext"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeResolver map[snowflake.ID]snowflake.ID

func (f fakeResolver) ResolveID(_ context.Context, ownerID snowflake.ID) (snowflake.ID, error) {
	return f[ownerID], nil
}

func newTestService(t *testing.T, companies fakeResolver) authdomain.Service {
	t.Helper()

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(&authdomain.User{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	issuer, err := token.NewIssuer(config.Config{Auth: config.AuthConfig{JWTSecret: "test", TokenTTL: time.Hour}})
	require.NoError(t, err)

	return New(Params{
		DB:        dbConn,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		Tokens:    issuer,
		Companies: companies,
	})
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, fakeResolver{})

	_, err := svc.CreateUser(context.Background(), nil, authdomain.CreateUserRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "correct-password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestCreateUserValidation(t *testing.T) {
	svc := newTestService(t, fakeResolver{})
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, nil, authdomain.CreateUserRequest{Email: "nope", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidEmail)

	_, err = svc.CreateUser(ctx, nil, authdomain.CreateUserRequest{Email: "a@b.it", Password: "short"})
	assert.ErrorIs(t, err, authdomain.ErrInvalidPassword)

	_, err = svc.CreateUser(ctx, nil, authdomain.CreateUserRequest{Email: "Bob@Example.com", Password: "long-enough"})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, nil, authdomain.CreateUserRequest{Email: "bob@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, authdomain.ErrEmailTaken)
}

func TestLoginAuthenticateRoundTrip(t *testing.T) {
	companies := fakeResolver{}
	svc := newTestService(t, companies)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, nil, authdomain.CreateUserRequest{
		Email:    "carla@example.com",
		Password: "a-good-password",
	})
	require.NoError(t, err)
	companies[user.ID] = snowflake.ID(77)

	res, err := svc.Login(ctx, authdomain.LoginRequest{Email: " CARLA@example.com ", Password: "a-good-password"})
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(77), res.CompanyID)
	assert.NotEmpty(t, res.Token)

	identity, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, snowflake.ID(77), identity.CompanyID)
	assert.Equal(t, "carla@example.com", identity.Email)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)

	current, err := svc.CurrentUser(companycontext.WithUserID(ctx, user.ID))
	require.NoError(t, err)
	assert.Equal(t, "carla@example.com", current.Email)
	require.NotNil(t, current.LastLoginAt)

	_, err = svc.CurrentUser(ctx)
	assert.ErrorIs(t, err, authdomain.ErrUnauthorized)
}

func TestAuthenticateResolvesCompanyLater(t *testing.T) {
	companies := fakeResolver{}
	svc := newTestService(t, companies)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, nil, authdomain.CreateUserRequest{Email: "d@example.com", Password: "a-good-password"})
	require.NoError(t, err)

	res, err := svc.IssueToken(user, 0)
	require.NoError(t, err)

	companies[user.ID] = snowflake.ID(5)
	identity, err := svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(5), identity.CompanyID)
}
