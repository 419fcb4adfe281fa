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

// Package httpapi exposes the sync-aware store as a plain HTTP key-value API:
// PUT /{key} writes the request body, GET /{key} returns the value or 404.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloudSync/pkg/log"
	"cloudSync/pkg/metrics"
	"cloudSync/pkg/reliability"
)

// MaxValueSize caps PUT bodies.
const MaxValueSize = 4 << 20

// Store is the write path the API serves; *cloudsync.Store satisfies it.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Config wires a Server.
type Config struct {
	Store   Store
	Address string
	Metrics *metrics.Metrics
	Logger  *log.Logger

	// Limits defaults to reliability.DefaultRecordLimits
	Limits *reliability.RecordLimits
	// MaxInFlight caps concurrent requests; zero means unlimited
	MaxInFlight int64
}

// Server is the HTTP KV API server.
type Server struct {
	store      Store
	logger     *log.Logger
	limits     reliability.RecordLimits
	limiter    *reliability.RequestLimiter
	httpServer *http.Server
}

func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}
	limits := reliability.DefaultRecordLimits
	if cfg.Limits != nil {
		limits = *cfg.Limits
	}
	s := &Server{
		store:   cfg.Store,
		logger:  cfg.Logger.Named("http").With(log.Component("http")),
		limits:  limits,
		limiter: reliability.NewRequestLimiter(cfg.MaxInFlight),
	}

	mux := http.NewServeMux()
	mux.Handle("/", s)

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           cfg.Metrics.HTTPMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the instrumented root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start blocks serving until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP API server", log.String("address", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http api server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping HTTP API server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	defer r.Body.Close()

	release, err := s.limiter.Acquire()
	if err != nil {
		w.Header().Set("Retry-After", "1")
		http.Error(w, "too many requests", http.StatusServiceUnavailable)
		return
	}
	defer release()

	if key == "" {
		http.Error(w, "key required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPut:
		s.handlePut(w, r, key)
	case http.MethodGet:
		s.handleGet(w, key)
	default:
		w.Header().Set("Allow", http.MethodPut)
		w.Header().Add("Allow", http.MethodGet)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request, key string) {
	v, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxValueSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "value too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.Warn("failed to read PUT body", log.KeyString(key), log.Err(err))
		http.Error(w, "Failed on PUT", http.StatusBadRequest)
		return
	}

	if err := s.limits.Validate(key, string(v)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// the local write is durable on return; the remote mirror is not awaited
	if err := s.store.Set(key, string(v)); err != nil {
		s.logger.Error("local write failed", log.KeyString(key), log.Err(err))
		http.Error(w, "Failed on PUT", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGet(w http.ResponseWriter, key string) {
	v, ok, err := s.store.Get(key)
	if err != nil {
		s.logger.Error("local read failed", log.KeyString(key), log.Err(err))
		http.Error(w, "Failed on GET", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "Failed to GET", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	io.WriteString(w, v)
}
