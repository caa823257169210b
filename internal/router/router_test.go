package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eigenda-sidecar/internal/config"
	"eigenda-sidecar/internal/handlers"
	"eigenda-sidecar/internal/middleware"
	"eigenda-sidecar/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type echoService struct{}

func (echoService) Submit(_ context.Context, blobID string) (string, error) {
	return services.NormalizeBlobID(blobID)
}

func (echoService) Query(context.Context, string) (*services.QueryResult, error) {
	return nil, services.ErrNotFound
}

func setup(t *testing.T, cfg config.ServerConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	srv, err := handlers.NewRPCServer(handlers.NewProofAPI(echoService{}, log))
	require.NoError(t, err)
	t.Cleanup(srv.Stop)

	return SetupRouter(cfg, srv, handlers.NewHealthHandler(gdb), log)
}

func rpcRequest(token string) *http.Request {
	body := `{"jsonrpc":"2.0","id":1,"method":"generate_proof","params":["0xAB"]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.7:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestJSONRPCRoute(t *testing.T) {
	r := setup(t, config.ServerConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, rpcRequest(""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"result":"ab"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestJSONRPCRouteRequiresToken(t *testing.T) {
	r := setup(t, config.ServerConfig{JWTSecret: "s3cret"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, rpcRequest(""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := middleware.GenerateToken([]byte("s3cret"), "sequencer", time.Hour)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, rpcRequest(token))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"result":"ab"`)
}

func TestMetricsLocalhostOnly(t *testing.T) {
	r := setup(t, config.ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "127.0.0.1:9999"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sidecar_")

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "203.0.113.9:9999"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// forwarded headers from an untrusted peer are ignored
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "203.0.113.9:9999"
	req.Header.Set("X-Forwarded-For", "127.0.0.1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMetricsBehindTrustedProxy(t *testing.T) {
	r := setup(t, config.ServerConfig{TrustedProxies: []string{"10.0.0.0/8"}})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "10.0.0.7:9999"
	req.Header.Set("X-Forwarded-For", "127.0.0.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.RemoteAddr = "10.0.0.7:9999"
	req.Header.Set("X-Forwarded-For", "198.51.100.4")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthAndNoRoute(t *testing.T) {
	r := setup(t, config.ServerConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
