package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
)

const readyTimeout = 2 * time.Second

// ReadyFunc reports whether the service's dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// NewOpsHandler serves /metrics, /health and /ready. ready may be nil.
func NewOpsHandler(ready ReadyFunc) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(constants.PathMetrics, promhttp.Handler())
	mux.HandleFunc(constants.PathHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(constants.HealthOK))
	})
	mux.HandleFunc(constants.PathReady, func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
			defer cancel()
			if err := ready(ctx); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(constants.HealthOK))
	})
	return mux
}

// NewGRPCServer returns a gRPC server exposing grpc.health.v1 for the mesh.
// RPCs are traced through otelgrpc, so their spans pass the redaction hook too.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(constants.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, hs
}
