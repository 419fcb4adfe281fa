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

package remote

import (
	"context"
	"errors"
	"sync"
	"time"

	"cloudSync/pkg/log"
	"cloudSync/pkg/metrics"
	"cloudSync/pkg/reliability"
)

// Call outcome labels
const (
	statusOK          = "ok"
	statusNotFound    = "not_found"
	statusError       = "error"
	statusTimeout     = "timeout"
	statusUnavailable = "unavailable"
)

// DefaultCallTimeout bounds a single Get or Set when Config leaves it zero.
const DefaultCallTimeout = 10 * time.Second

// Config wires a Store.
type Config struct {
	// Facility may be nil: the remote is then permanently unavailable.
	Facility    Facility
	Name        string
	CallTimeout time.Duration
	Metrics     *metrics.Metrics
	Logger      *log.Logger
}

// Store is the RemoteStore adapter.
type Store struct {
	facility Facility
	name     string
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *log.Logger
}

// New creates a Store from cfg.
func New(cfg Config) *Store {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}
	if cfg.Name == "" {
		cfg.Name = "none"
	}

	return &Store{
		facility: cfg.Facility,
		name:     cfg.Name,
		timeout:  cfg.CallTimeout,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.Named("remote").With(log.Backend(cfg.Name)),
	}
}

// Name is the backend name given in Config.
func (s *Store) Name() string {
	return s.name
}

// IsAvailable reports whether the facility handle is present and, if it can
// be probed, reachable. It never blocks.
func (s *Store) IsAvailable() bool {
	if s == nil || s.facility == nil {
		return false
	}

	available := true
	if p, ok := s.facility.(Prober); ok {
		available = p.Available()
	}
	s.metrics.SetRemoteAvailable(available)
	return available
}

type getResult struct {
	value string
	found bool
	err   error
}

// Get fetches key. A facility error is returned as *Error; a missing key is
// found == false with a nil error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	if !s.IsAvailable() {
		s.metrics.RecordRemoteOperation("get", statusUnavailable, time.Since(start))
		return "", false, ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Buffered and guarded by once: the first callback wins, later ones are
	// dropped without blocking the facility.
	resC := make(chan getResult, 1)
	var once sync.Once
	callback := func(value string, found bool, err error) {
		once.Do(func() {
			resC <- getResult{value: value, found: found, err: err}
		})
	}

	if err := reliability.SafeCall("remote-get", func() error {
		s.facility.GetItem(key, callback)
		return nil
	}); err != nil {
		// a result delivered before the panic still resolves the call
		once.Do(func() {
			resC <- getResult{err: err}
		})
	}

	select {
	case res := <-resC:
		switch {
		case res.err != nil:
			s.metrics.RecordRemoteOperation("get", statusError, time.Since(start))
			return "", false, &Error{Op: "get", Key: key, Err: res.err}
		case !res.found:
			s.metrics.RecordRemoteOperation("get", statusNotFound, time.Since(start))
			return "", false, nil
		default:
			s.metrics.RecordRemoteOperation("get", statusOK, time.Since(start))
			return res.value, true, nil
		}
	case <-ctx.Done():
		s.metrics.RecordRemoteOperation("get", statusTimeout, time.Since(start))
		return "", false, &Error{Op: "get", Key: key, Err: contextError(ctx)}
	}
}

// Set writes key. A facility error is returned as *Error.
func (s *Store) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	if !s.IsAvailable() {
		s.metrics.RecordRemoteOperation("set", statusUnavailable, time.Since(start))
		return ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	errC := make(chan error, 1)
	var once sync.Once
	callback := func(err error) {
		once.Do(func() {
			errC <- err
		})
	}

	if err := reliability.SafeCall("remote-set", func() error {
		s.facility.SetItem(key, value, callback)
		return nil
	}); err != nil {
		once.Do(func() {
			errC <- err
		})
	}

	select {
	case err := <-errC:
		if err != nil {
			s.metrics.RecordRemoteOperation("set", statusError, time.Since(start))
			return &Error{Op: "set", Key: key, Err: err}
		}
		s.metrics.RecordRemoteOperation("set", statusOK, time.Since(start))
		return nil
	case <-ctx.Done():
		s.metrics.RecordRemoteOperation("set", statusTimeout, time.Since(start))
		return &Error{Op: "set", Key: key, Err: contextError(ctx)}
	}
}

// Close releases the facility if it holds resources.
func (s *Store) Close() error {
	if c, ok := s.facility.(interface{ Close() error }); ok {
		s.logger.Info("closing remote facility")
		return c.Close()
	}
	return nil
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ctx.Err()
}
