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

package reliability

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cloudSync/pkg/log"
)

// ShutdownHook runs during one shutdown phase
type ShutdownHook func(ctx context.Context) error

// ShutdownPhase orders hooks
type ShutdownPhase int

const (
	// PhaseStopAccepting stops HTTP listeners
	PhaseStopAccepting ShutdownPhase = iota
	// PhaseDrainMirrors waits for detached remote pushes
	PhaseDrainMirrors
	// PhaseCloseResources closes local engines and remote clients
	PhaseCloseResources
)

// GracefulShutdown runs registered hooks phase by phase on SIGINT/SIGTERM
type GracefulShutdown struct {
	mu      sync.RWMutex
	hooks   map[ShutdownPhase][]ShutdownHook
	timeout time.Duration
	done    chan struct{}
	signals chan os.Signal
}

// NewGracefulShutdown creates a shutdown manager; timeout bounds all phases together
func NewGracefulShutdown(timeout time.Duration) *GracefulShutdown {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	gs := &GracefulShutdown{
		hooks:   make(map[ShutdownPhase][]ShutdownHook),
		timeout: timeout,
		done:    make(chan struct{}),
		signals: make(chan os.Signal, 1),
	}
	signal.Notify(gs.signals, syscall.SIGTERM, syscall.SIGINT)

	return gs
}

// RegisterHook adds a hook to phase
func (gs *GracefulShutdown) RegisterHook(phase ShutdownPhase, hook ShutdownHook) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	gs.hooks[phase] = append(gs.hooks[phase], hook)
}

// Wait blocks until a signal arrives, then shuts down
func (gs *GracefulShutdown) Wait() {
	sig := <-gs.signals
	log.Info("Received shutdown signal",
		log.String("signal", sig.String()),
		log.Component("shutdown"))
	gs.Shutdown()
}

// Shutdown runs every phase in order. Safe to call more than once.
func (gs *GracefulShutdown) Shutdown() {
	gs.mu.Lock()
	select {
	case <-gs.done:
		gs.mu.Unlock()
		return
	default:
		close(gs.done)
	}
	gs.mu.Unlock()
	signal.Stop(gs.signals)

	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	for _, phase := range []ShutdownPhase{PhaseStopAccepting, PhaseDrainMirrors, PhaseCloseResources} {
		phaseName := gs.phaseName(phase)
		log.Info("Shutdown phase started",
			log.Phase(phaseName),
			log.Component("shutdown"))

		gs.mu.RLock()
		hooks := gs.hooks[phase]
		gs.mu.RUnlock()

		// later phases still run so resources get released
		if err := gs.executeHooks(ctx, hooks, phaseName); err != nil {
			log.Error("Shutdown phase failed",
				log.Phase(phaseName),
				log.Err(err),
				log.Component("shutdown"))
		}
	}

	log.Info("Graceful shutdown completed", log.Component("shutdown"))
}

func (gs *GracefulShutdown) executeHooks(ctx context.Context, hooks []ShutdownHook, phaseName string) error {
	if len(hooks) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(hooks))

	for i, hook := range hooks {
		wg.Add(1)
		go func(idx int, h ShutdownHook) {
			defer wg.Done()
			err := SafeCall(fmt.Sprintf("shutdown-hook-%s-%d", phaseName, idx), func() error {
				return h(ctx)
			})
			if err != nil {
				errChan <- fmt.Errorf("hook %d failed: %w", idx, err)
			}
		}(i, hook)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		close(errChan)
		var errs []error
		for err := range errChan {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("phase %s had %d errors: %w", phaseName, len(errs), errs[0])
		}
		return nil

	case <-ctx.Done():
		return fmt.Errorf("phase %s timeout: %w", phaseName, ctx.Err())
	}
}

func (gs *GracefulShutdown) phaseName(phase ShutdownPhase) string {
	switch phase {
	case PhaseStopAccepting:
		return "Stop Accepting"
	case PhaseDrainMirrors:
		return "Drain Mirrors"
	case PhaseCloseResources:
		return "Close Resources"
	default:
		return fmt.Sprintf("Unknown Phase %d", phase)
	}
}

// Done is closed once shutdown has started
func (gs *GracefulShutdown) Done() <-chan struct{} {
	return gs.done
}

// IsShuttingDown reports whether Shutdown has been called
func (gs *GracefulShutdown) IsShuttingDown() bool {
	select {
	case <-gs.done:
		return true
	default:
		return false
	}
}
