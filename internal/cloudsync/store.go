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

package cloudsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"cloudSync/internal/local"
	"cloudSync/internal/remote"
	"cloudSync/pkg/log"
	"cloudSync/pkg/metrics"
	"cloudSync/pkg/reliability"

	"golang.org/x/time/rate"
)

// Push outcome labels
const (
	pushSuccess = "success"
	pushFailure = "failure"
	pushSkipped = "skipped"
)

// Config wires a Store.
type Config struct {
	Local   local.Store
	Remote  *remote.Store
	Tracked *TrackedKeySet
	Metrics *metrics.Metrics
	Logger  *log.Logger

	// PushQPS paces background pushes; zero disables pacing.
	PushQPS   float64
	PushBurst int
}

// Store is the write path of the application: every Set lands in the local
// engine before it returns, and tracked keys are then mirrored to the remote
// on a detached goroutine.
type Store struct {
	local   local.Store
	remote  *remote.Store
	tracked *TrackedKeySet
	metrics *metrics.Metrics
	logger  *log.Logger
	limiter *rate.Limiter

	// base outlives every writer; Close cancels it
	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight int
	idle     chan struct{}
}

// NewStore creates a Store. A nil Remote is treated as permanently unavailable.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Local == nil {
		return nil, errors.New("cloudsync: local store is required")
	}
	if cfg.Remote == nil {
		cfg.Remote = remote.New(remote.Config{Metrics: cfg.Metrics, Logger: cfg.Logger})
	}
	if cfg.Tracked == nil {
		cfg.Tracked = NewTrackedKeySet()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}

	var limiter *rate.Limiter
	if cfg.PushQPS > 0 {
		burst := cfg.PushBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.PushQPS), burst)
	}

	base, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Store{
		local:   cfg.Local,
		remote:  cfg.Remote,
		tracked: cfg.Tracked,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.Named("cloudsync"),
		limiter: limiter,
		base:    base,
		cancel:  cancel,
		idle:    idle,
	}, nil
}

// Remote returns the remote adapter the store mirrors to.
func (s *Store) Remote() *remote.Store { return s.remote }

// Tracked returns the keys the store mirrors.
func (s *Store) Tracked() *TrackedKeySet { return s.tracked }

// Get reads from the local engine only.
func (s *Store) Get(key string) (string, bool, error) {
	start := time.Now()
	value, found, err := s.local.RawGet(key)
	s.metrics.RecordLocalOperation("get", time.Since(start), err)
	return value, found, err
}

// Set writes key locally and, if it is tracked, schedules a remote mirror.
// Only a local failure is returned; the mirror outcome never is.
func (s *Store) Set(key, value string) error {
	start := time.Now()
	err := s.local.RawSet(key, value)
	s.metrics.RecordLocalOperation("set", time.Since(start), err)
	if err != nil {
		return err
	}

	if s.tracked.Contains(key) {
		s.mirror(key, value)
	}
	return nil
}

// mirror runs syncToCloud on a detached goroutine.
func (s *Store) mirror(key, value string) {
	s.beginPush()
	reliability.SafeGo("cloudsync-mirror", func() {
		defer s.endPush()

		if s.limiter != nil {
			if err := s.limiter.Wait(s.base); err != nil {
				s.metrics.RecordPush(pushSkipped)
				s.logger.Warn("push abandoned while waiting for pacing",
					log.KeyString(key), log.Err(err))
				return
			}
		}
		s.syncToCloud(s.base, key, value)
	})
}

// syncToCloud pushes one record and reports whether the remote accepted it.
// Failures are logged and dropped; there is no retry.
func (s *Store) syncToCloud(ctx context.Context, key, value string) bool {
	if !s.tracked.Contains(key) {
		return false
	}
	if !s.remote.IsAvailable() {
		s.metrics.RecordPush(pushSkipped)
		s.logger.Debug("remote unavailable, push skipped", log.KeyString(key))
		return false
	}

	s.logger.Debug("pushing to remote", log.KeyString(key), log.ValueSize(value))
	if err := s.remote.Set(ctx, key, value); err != nil {
		s.metrics.RecordPush(pushFailure)
		s.logger.Warn("push to remote failed", log.KeyString(key), log.Err(err))
		return false
	}

	s.metrics.RecordPush(pushSuccess)
	s.logger.Info("pushed to remote", log.KeyString(key), log.ValueSize(value))
	return true
}

func (s *Store) beginPush() {
	s.mu.Lock()
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
	s.mu.Unlock()
	s.metrics.PushStarted()
}

func (s *Store) endPush() {
	s.metrics.PushFinished()
	s.mu.Lock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
	s.mu.Unlock()
}

// InFlight returns the number of mirrors not yet finished.
func (s *Store) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight
}

// Drain waits until no mirror is in flight or ctx is done. Mirrors started
// while draining are waited for too.
func (s *Store) Drain(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.inflight == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close aborts mirrors still waiting for pacing. Calls already issued to
// the remote run until their own timeout. Engines are closed by their owners.
func (s *Store) Close() error {
	s.cancel()
	return nil
}
