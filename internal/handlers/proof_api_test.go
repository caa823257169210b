package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eigenda-sidecar/internal/models"
	"eigenda-sidecar/internal/repository"
	"eigenda-sidecar/internal/services"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, gdb.AutoMigrate(&models.ProofRequest{}))
	return gdb
}

func dialAPI(t *testing.T, svc ProofService) *rpc.Client {
	t.Helper()
	srv, err := NewRPCServer(NewProofAPI(svc, quietLogger()))
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Stop)

	client, err := rpc.DialHTTP(ts.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func errorCode(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	var rpcErr rpc.Error
	require.True(t, errors.As(err, &rpcErr), "not a json-rpc error: %v", err)
	return rpcErr.ErrorCode()
}

func TestProofAPIEndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewProofRequestRepository(openTestDB(t))
	svc, err := services.NewProofRequestService(repo, 16, quietLogger())
	require.NoError(t, err)
	client := dialAPI(t, svc)

	var id string
	require.NoError(t, client.CallContext(ctx, &id, "generate_proof", "0xABC123"))
	assert.Equal(t, "abc123", id)

	err = client.CallContext(ctx, &id, "generate_proof", "abc123")
	assert.Equal(t, CodeAlreadySubmitted, errorCode(t, err))

	err = client.CallContext(ctx, &id, "generate_proof", "xyz")
	assert.Equal(t, CodeInvalidParams, errorCode(t, err))

	var proof string
	err = client.CallContext(ctx, &proof, "get_proof", "abc123")
	assert.Equal(t, CodeQueued, errorCode(t, err))

	err = client.CallContext(ctx, &proof, "get_proof", "ffff")
	assert.Equal(t, CodeNotFound, errorCode(t, err))

	require.NoError(t, repo.MarkDone(ctx, "abc123", "0x0102"))
	require.NoError(t, client.CallContext(ctx, &proof, "get_proof", "0xabc123"))
	assert.Equal(t, "0x0102", proof)

	require.NoError(t, client.CallContext(ctx, &id, "generate_proof", "01"))
	require.NoError(t, repo.MarkFailed(ctx, "01", "commitment mismatch"))
	err = client.CallContext(ctx, &proof, "get_proof", "01")
	assert.Equal(t, CodeInvalidRequest, errorCode(t, err))
	assert.Contains(t, err.Error(), "invalid request")
}

type brokenService struct{}

func (brokenService) Submit(context.Context, string) (string, error) {
	return "", errors.New("database is locked")
}

func (brokenService) Query(context.Context, string) (*services.QueryResult, error) {
	return nil, errors.New("database is locked")
}

func TestProofAPIInternalError(t *testing.T) {
	client := dialAPI(t, brokenService{})

	var out string
	err := client.Call(&out, "generate_proof", "01")
	assert.Equal(t, CodeInternal, errorCode(t, err))
	// the cause stays in the logs
	assert.NotContains(t, err.Error(), "locked")

	err = client.Call(&out, "get_proof", "01")
	assert.Equal(t, CodeInternal, errorCode(t, err))
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gdb := openTestDB(t)
	r := gin.New()
	r.GET("/health", NewHealthHandler(gdb).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"ok"`)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
