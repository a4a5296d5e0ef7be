package adminapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbluechip/catalogadmin/config"
	"github.com/bbluechip/catalogadmin/internal/app"
	"github.com/bbluechip/catalogadmin/internal/domain"
	"github.com/bbluechip/catalogadmin/internal/testutil"
	"github.com/bbluechip/catalogadmin/internal/webserver"
	"github.com/bbluechip/catalogadmin/pkg/common"
)

type testEnv struct {
	app   *app.Application
	token string
}

type apiResponse struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Total   int64           `json:"total"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := *config.DefaultAppConfig
	cfg.System.Workdir = t.TempDir()

	a := app.NewApplication(&cfg)
	a.OverrideDB(testutil.NewTestDB(t))
	a.InitCatalog()

	webserver.Init(&cfg)
	Init(a)

	token, err := webserver.CreateToken(cfg.Web.Secret, "admin", "super", time.Hour)
	require.NoError(t, err)
	return &testEnv{app: a, token: token}
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(bs)
	}
	req := httptest.NewRequest(method, webserver.ApiPrefix+path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if env.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+env.token)
	}
	rec := httptest.NewRecorder()
	webserver.Root().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func TestRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	env.token = ""
	rec := env.do(t, http.MethodGet, "/site", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	env.token = "not-a-token"
	rec = env.do(t, http.MethodGet, "/site", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	hashed, err := common.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, env.app.DB().Create(&domain.SysOpr{
		ID: common.UUIDint64(), Username: "editor", Password: hashed, Level: "opr", Status: common.ENABLED,
	}).Error)
	env.token = ""

	rec := env.do(t, http.MethodPost, "/login", map[string]string{"username": "editor", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/login", map[string]string{"username": "editor", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data struct {
		Token    string        `json:"token"`
		Operator domain.SysOpr `json:"operator"`
	}
	decode(t, rec, &data)
	require.NotEmpty(t, data.Token)
	assert.Equal(t, "editor", data.Operator.Username)
	assert.NotContains(t, rec.Body.String(), hashed)

	env.token = data.Token
	rec = env.do(t, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me domain.SysOpr
	decode(t, rec, &me)
	assert.Equal(t, "editor", me.Username)
	assert.False(t, me.LastLogin.IsZero())
}

func TestLoginDisabledOperator(t *testing.T) {
	env := newTestEnv(t)
	hashed, err := common.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, env.app.DB().Create(&domain.SysOpr{
		ID: common.UUIDint64(), Username: "gone", Password: hashed, Status: common.DISABLED,
	}).Error)
	env.token = ""

	rec := env.do(t, http.MethodPost, "/login", map[string]string{"username": "gone", "password": "s3cret"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSiteDescriptor(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/site", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var site struct {
		SiteHeader string `json:"site_header"`
		Locale     string `json:"locale"`
		Models     []struct {
			Model       string `json:"model"`
			ListPerPage int    `json:"list_per_page"`
		} `json:"models"`
	}
	decode(t, rec, &site)
	assert.Equal(t, "bbluechip Admin Portal", site.SiteHeader)
	assert.Equal(t, "tr", site.Locale)
	require.Len(t, site.Models, 3)
	assert.Equal(t, 25, site.Models[0].ListPerPage)
}

func TestCategoryCRUD(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/catalog/categories", map[string]string{"name": "  Drinks "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cat domain.Category
	decode(t, rec, &cat)
	assert.Equal(t, "Drinks", cat.Name)

	rec = env.do(t, http.MethodPost, "/catalog/categories", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p := testutil.CreateProduct(t, env.app.DB(), "tea", false, time.Now())
	require.NoError(t, env.app.DB().Model(p).Association("Categories").Append(&cat))

	rec = env.do(t, http.MethodGet, "/catalog/categories?q=dri", nil)
	var list []domain.Category
	resp := decode(t, rec, &list)
	assert.Equal(t, int64(1), resp.Total)

	rec = env.do(t, http.MethodDelete, "/catalog/categories/"+itoa(cat.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Zero(t, env.app.DB().Model(p).Association("Categories").Count())

	rec = env.do(t, http.MethodGet, "/catalog/categories/"+itoa(cat.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListOprLogs(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/catalog/categories", map[string]string{"name": "Snacks"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/system/oprlogs?object_type=category", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []domain.SysOprLog
	resp := decode(t, rec, &logs)
	require.Equal(t, int64(1), resp.Total)
	assert.Equal(t, "admin", logs[0].OprName)
	assert.Equal(t, "add", logs[0].OptAction)

	rec = env.do(t, http.MethodGet, "/system/oprlogs?since=yesterday-ish", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricSeries(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/system/metrics/catalog_stocked_rows?hours=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/system/metrics/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/system/metrics/catalog_stocked_rows?hours=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(id int64) string {
	return toString(id)
}
