package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestOpsHandler(t *testing.T) {
	var readyErr error
	h := NewOpsHandler(func(ctx context.Context) error { return readyErr })

	rec := serve(h, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	assert.Equal(t, http.StatusOK, serve(h, "/ready").Code)

	readyErr = errors.New("redis down")
	assert.Equal(t, http.StatusServiceUnavailable, serve(h, "/ready").Code)

	assert.Equal(t, http.StatusOK, serve(h, "/metrics").Code)
}

func TestOpsHandler_NilReady(t *testing.T) {
	assert.Equal(t, http.StatusOK, serve(NewOpsHandler(nil), "/ready").Code)
}

func TestGRPCServer_Health(t *testing.T) {
	srv, hs := NewGRPCServer()
	defer srv.Stop()

	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "basket-api"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
