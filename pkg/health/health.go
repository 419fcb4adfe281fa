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

// Package health serves liveness, readiness and detailed health reports for
// a cloudSync process.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cloudSync/pkg/log"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// CheckResult is the outcome of one checker.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// Report aggregates every checker. The worst status wins.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

// Checker is a single health probe. A non-nil error forces StatusUnhealthy.
type Checker interface {
	Check(ctx context.Context) (Status, string, error)
	Name() string
}

// Server runs registered checkers and caches the report briefly.
type Server struct {
	mu       sync.RWMutex
	checkers []Checker
	logger   *log.Logger

	cached     *Report
	validUntil time.Time
	cacheTTL   time.Duration

	httpServer *http.Server
}

// DefaultCacheTTL bounds how often checkers run under probe traffic.
const DefaultCacheTTL = 2 * time.Second

func NewServer(logger *log.Logger) *Server {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Server{
		logger:   logger.Named("health"),
		cacheTTL: DefaultCacheTTL,
	}
}

// SetCacheTTL changes the report cache lifetime; zero disables caching.
func (s *Server) SetCacheTTL(ttl time.Duration) {
	s.mu.Lock()
	s.cacheTTL = ttl
	s.cached = nil
	s.mu.Unlock()
}

func (s *Server) Register(c Checker) {
	s.mu.Lock()
	s.checkers = append(s.checkers, c)
	s.cached = nil
	s.mu.Unlock()
	s.logger.Info("registered health checker", log.String("name", c.Name()))
}

// Check runs every checker, or returns the cached report if still valid.
func (s *Server) Check(ctx context.Context) *Report {
	s.mu.RLock()
	if s.cached != nil && time.Now().Before(s.validUntil) {
		r := s.cached
		s.mu.RUnlock()
		return r
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	report := &Report{
		Status:    StatusHealthy,
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]CheckResult, len(s.checkers)),
	}

	for _, c := range s.checkers {
		start := time.Now()
		status, msg, err := c.Check(ctx)
		if err != nil {
			status = StatusUnhealthy
			msg = err.Error()
		}
		report.Checks[c.Name()] = CheckResult{
			Status:  status,
			Message: msg,
			Latency: time.Since(start).Milliseconds(),
		}
		report.Status = worse(report.Status, status)
	}

	if s.cacheTTL > 0 {
		s.cached = report
		s.validUntil = time.Now().Add(s.cacheTTL)
	}
	return report
}

func worse(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusUnhealthy:
			return 2
		case StatusDegraded:
			return 1
		default:
			return 0
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// ServeHTTP writes the JSON report. Degraded still answers 200.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	report := s.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if report.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(report)
}

// ReadinessHandler answers 503 while any checker is unhealthy.
func (s *Server) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if s.Check(ctx).Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("Not Ready\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready\n"))
	}
}

// LivenessHandler only proves the process serves HTTP.
func (s *Server) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Alive\n"))
	}
}

// Handler returns the mux with /health, /readiness and /liveness.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/health", s)
	mux.HandleFunc("/readiness", s.ReadinessHandler())
	mux.HandleFunc("/liveness", s.LivenessHandler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html>
<head><title>cloudSync Health</title></head>
<body>
<h1>cloudSync Health</h1>
<ul>
<li><a href="/health">/health</a> - detailed status (JSON)</li>
<li><a href="/readiness">/readiness</a> - ready after startup reconciliation</li>
<li><a href="/liveness">/liveness</a> - process liveness</li>
</ul>
</body>
</html>`)
	})
	return mux
}

// Start serves Handler on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting health server", log.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
