// Copyright 2025 The axfor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// scrapeTimeout bounds a single collection of the registry.
const scrapeTimeout = 10 * time.Second

// MetricsServer exposes a registry on /metrics.
type MetricsServer struct {
	server *http.Server
	logger *zap.Logger
}

// NewMetricsServer builds the server without listening. Only /metrics is routed.
func NewMetricsServer(addr string, registry *prometheus.Registry, logger *zap.Logger) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorLog:            zap.NewStdLog(logger),
		ErrorHandling:       promhttp.ContinueOnError,
		MaxRequestsInFlight: 4,
		Timeout:             scrapeTimeout,
	}))

	return &MetricsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      scrapeTimeout + 5*time.Second,
		},
		logger: logger.Named("metrics"),
	}
}

// Handler returns the routed mux.
func (ms *MetricsServer) Handler() http.Handler {
	return ms.server.Handler
}

// Start listens until Shutdown.
func (ms *MetricsServer) Start() error {
	ms.logger.Info("metrics endpoint listening", zap.String("addr", ms.server.Addr))
	err := ms.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting scrapes and waits for running ones.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

// ServeMetrics starts a MetricsServer in the background. Listen errors are logged.
func ServeMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *MetricsServer {
	ms := NewMetricsServer(addr, registry, logger)
	go func() {
		if err := ms.Start(); err != nil {
			ms.logger.Error("metrics endpoint stopped", zap.Error(err))
		}
	}()
	return ms
}
