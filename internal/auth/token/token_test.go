package token

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIssuer(t *testing.T, secret string) *Issuer {
	t.Helper()
	iss, err := NewIssuer(config.Config{Auth: config.AuthConfig{JWTSecret: secret, TokenTTL: time.Hour}})
	require.NoError(t, err)
	return iss
}

func TestSignAndParse(t *testing.T) {
	iss := newIssuer(t, "s3cret")
	raw, expiresAt, err := iss.Sign(snowflake.ID(10), snowflake.ID(20), "a@b.it")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := iss.Parse(raw)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(10), uid)
	assert.Equal(t, snowflake.ID(20), claims.Company())
	assert.Equal(t, "a@b.it", claims.Email)
}

func TestParseRejectsOtherSecret(t *testing.T) {
	raw, _, err := newIssuer(t, "one").Sign(1, 0, "")
	require.NoError(t, err)

	_, err = newIssuer(t, "two").Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseExpired(t *testing.T) {
	iss := newIssuer(t, "s3cret")
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err := iss.Sign(1, 0, "")
	require.NoError(t, err)

	iss.now = time.Now
	_, err = iss.Parse(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer(config.Config{})
	assert.Error(t, err)
}

func TestCompanyMissing(t *testing.T) {
	iss := newIssuer(t, "s3cret")
	raw, _, err := iss.Sign(1, 0, "")
	require.NoError(t, err)
	claims, err := iss.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(0), claims.Company())
}
