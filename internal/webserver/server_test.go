package webserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbluechip/catalogadmin/config"
)

func newTestServer(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()
	Init(&cfg)
	ApiGET("/whoami", func(c echo.Context) error {
		opr := GetOperator(c)
		if opr == nil {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, opr.Username+"/"+opr.Level)
	})
	ApiPOST("/login", func(c echo.Context) error {
		return c.String(http.StatusOK, "public")
	})
	return &cfg
}

func serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	Root().ServeHTTP(rec, req)
	return rec
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := newTestServer(t)
	token, err := CreateToken(cfg.Web.Secret, "admin", "super", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, ApiPrefix+"/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin/super", rec.Body.String())
}

func TestRejectsMissingOrForeignToken(t *testing.T) {
	newTestServer(t)

	rec := serve(httptest.NewRequest(http.MethodGet, ApiPrefix+"/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	foreign, err := CreateToken("another-secret", "admin", "super", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, ApiPrefix+"/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+foreign)
	assert.Equal(t, http.StatusUnauthorized, serve(req).Code)
}

func TestRejectsExpiredToken(t *testing.T) {
	cfg := newTestServer(t)
	expired, err := CreateToken(cfg.Web.Secret, "admin", "super", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, ApiPrefix+"/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, serve(req).Code)
}

func TestLoginIsPublic(t *testing.T) {
	newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, ApiPrefix+"/login", strings.NewReader("{}"))
	rec := serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public", rec.Body.String())
}

func TestValidator(t *testing.T) {
	type payload struct {
		Name string `validate:"required"`
	}
	v := NewValidator()
	assert.Error(t, v.Validate(&payload{}))
	assert.NoError(t, v.Validate(&payload{Name: "x"}))
}
