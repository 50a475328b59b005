package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0x3a/crits/config"
	"github.com/0x3a/crits/core"
	_ "github.com/0x3a/crits/docs"
	"github.com/0x3a/crits/service"
	"github.com/0x3a/crits/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testJWTSecret = "k3Vq9Zx1Lm7Rt5Wp2Yn8Bc4Hd6Jf0Gs-test-only"

// healthFunc adapts a function to HealthChecker
type healthFunc func(ctx context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.API.Port = 8080
	cfg.API.MaxUploadSize = 1 << 20
	cfg.API.AllowedOrigins = []string{"http://localhost:3000"}
	cfg.API.RateLimit.RequestsPerSecond = 100000
	cfg.API.RateLimit.Burst = 100000
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Auth.JWTExpiry = 15 * time.Minute
	cfg.Auth.Roles = []string{core.RoleAdmin}
	return cfg
}

// setupTestAPI creates an API backed by a temporary SQLite database
func setupTestAPI(t *testing.T, cfg *config.Config) (*API, *service.IndicatorService, storage.Store) {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()

	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := storage.NewSQLiteStore(db, logger)
	svc := service.NewIndicatorService(store, logger)
	api := NewAPI(svc, store, cfg, logger)
	t.Cleanup(func() { _ = api.Stop(context.Background()) })
	return api, svc, store
}

func serve(api *API, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	api.ServeHTTP(rr, req)
	return rr
}

func ajaxPost(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return req
}

func multipartUpload(t *testing.T, path string, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("filedata", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"), rr.Body.String())
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// createIndicator stores an indicator through the service
func createIndicator(t *testing.T, svc *service.IndicatorService, indType core.IndicatorType, value string) string {
	t.Helper()
	res := svc.HandleSingle(context.Background(), service.SingleRequest{
		Value: value, Type: indType, Source: "OSINT",
	}, "jdoe")
	require.True(t, res.Success, res.Message)
	return res.ObjectID
}

// bearer authorises req as username with the given roles
func bearer(t *testing.T, cfg *config.Config, req *http.Request, username string, roles ...string) *http.Request {
	t.Helper()
	token, err := GenerateToken(cfg, username, roles)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestNewAPI_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { NewAPI(nil, nil, newTestConfig(), zaptest.NewLogger(t).Sugar()) })
}

func TestHealthCheck(t *testing.T) {
	api, _, _ := setupTestAPI(t, newTestConfig())

	rr := serve(api, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decodeBody(t, rr)["status"])

	api.health = healthFunc(func(context.Context) error { return errors.New("database is closed") })
	rr = serve(api, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unavailable", decodeBody(t, rr)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	api, _, _ := setupTestAPI(t, newTestConfig())

	serve(api, httptest.NewRequest(http.MethodGet, "/indicators/list/jtlist/", nil))
	rr := serve(api, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "crits_indicator_requests_total")
}

func TestSwaggerDoc(t *testing.T) {
	api, _, _ := setupTestAPI(t, newTestConfig())

	rr := serve(api, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var doc struct {
		Paths map[string]map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Contains(t, doc.Paths, "/indicators/upload/")
	assert.Contains(t, doc.Paths["/indicators/and_ip/"], "post")
	assert.Contains(t, doc.Paths["/indicators/list/{option}/"], "get")
}
