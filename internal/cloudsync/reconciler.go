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
	"fmt"
	"sync"
	"time"

	"cloudSync/internal/remote"
	"cloudSync/pkg/log"
)

// Reconcile actions, also used as metric labels
const (
	ActionPull   = "pull"
	ActionPush   = "push"
	ActionNone   = "none"
	ActionFailed = "failed"
)

// Report summarizes one reconciliation pass.
type Report struct {
	Pulled    int
	Pushed    int
	Unchanged int
	Failed    int

	// Skipped is set when the remote was unavailable and nothing was touched.
	Skipped  bool
	Duration time.Duration
}

func (r Report) String() string {
	if r.Skipped {
		return "skipped: remote unavailable"
	}
	return fmt.Sprintf("pulled=%d pushed=%d unchanged=%d failed=%d in %s",
		r.Pulled, r.Pushed, r.Unchanged, r.Failed, r.Duration)
}

// Reconciler settles every tracked key between the local engine and the
// remote store. The remote value always wins when both exist and differ.
type Reconciler struct {
	store  *Store
	logger *log.Logger

	mu   sync.Mutex
	last *Report

	done     chan struct{}
	doneOnce sync.Once
}

func NewReconciler(store *Store) *Reconciler {
	return &Reconciler{
		store:  store,
		logger: store.logger.Named("reconcile"),
		done:   make(chan struct{}),
	}
}

// Done is closed once the first pass has finished or MarkDone was called.
func (r *Reconciler) Done() <-chan struct{} {
	return r.done
}

// MarkDone releases Done without a pass, for deployments that skip startup
// reconciliation.
func (r *Reconciler) MarkDone() {
	r.doneOnce.Do(func() { close(r.done) })
}

// LastReport returns the most recent pass result.
func (r *Reconciler) LastReport() (Report, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Report{}, false
	}
	return *r.last, true
}

// ReconcileAll walks the tracked keys in order. It never fails as a whole:
// a key that cannot be settled is counted in Report.Failed and the pass moves
// on. When the remote is unavailable the pass returns at once with Skipped set.
func (r *Reconciler) ReconcileAll(ctx context.Context) Report {
	start := time.Now()
	var rep Report
	defer func() {
		rep.Duration = time.Since(start)
		r.mu.Lock()
		r.last = &rep
		r.mu.Unlock()
		r.MarkDone()
	}()

	if !r.store.remote.IsAvailable() {
		rep.Skipped = true
		r.store.metrics.RecordReconcileRun("skipped", time.Since(start))
		r.logger.Warn("remote unavailable, reconciliation skipped",
			log.Backend(r.store.remote.Name()))
		return rep
	}

	keys := r.store.tracked.Keys()
	r.logger.Info("reconciliation started", log.Count(int64(len(keys))))

	for i, key := range keys {
		if ctx.Err() != nil {
			rep.Failed += len(keys) - i
			r.logger.Warn("reconciliation interrupted",
				log.Count(int64(len(keys)-i)), log.Err(ctx.Err()))
			break
		}

		action, err := r.reconcileKey(ctx, key)
		if err != nil {
			r.logger.Error("failed to reconcile key", log.KeyString(key), log.Err(err))
		}
		r.store.metrics.RecordReconcileKey(action)

		switch action {
		case ActionPull:
			rep.Pulled++
		case ActionPush:
			rep.Pushed++
		case ActionNone:
			rep.Unchanged++
		default:
			rep.Failed++
		}
	}

	r.store.metrics.RecordReconcileRun("completed", time.Since(start))
	r.logger.Info("reconciliation complete",
		log.Int("pulled", rep.Pulled),
		log.Int("pushed", rep.Pushed),
		log.Int("unchanged", rep.Unchanged),
		log.Int("failed", rep.Failed),
		log.Duration("duration", time.Since(start)))
	return rep
}

// reconcileKey reads the remote then the local value and applies the
// presence table. Empty values count as absent.
func (r *Reconciler) reconcileKey(ctx context.Context, key string) (string, error) {
	cloudValue, inCloud, err := r.store.remote.Get(ctx, key)
	if err != nil {
		if errors.Is(err, remote.ErrUnavailable) || ctx.Err() != nil {
			return ActionFailed, err
		}
		// an unreadable remote value counts as absent
		r.logger.Warn("remote read failed, treating as absent",
			log.KeyString(key), log.Err(err))
		inCloud = false
	}

	localValue, inLocal, err := r.store.local.RawGet(key)
	if err != nil {
		return ActionFailed, fmt.Errorf("local read: %w", err)
	}

	// an empty value carries nothing to apply on either side
	inCloud = inCloud && cloudValue != ""
	inLocal = inLocal && localValue != ""

	switch {
	case inCloud && inLocal && cloudValue == localValue:
		r.logger.Debug("key in sync", log.KeyString(key), log.Action(ActionNone))
		return ActionNone, nil

	case inCloud:
		if err := r.store.local.RawSet(key, cloudValue); err != nil {
			return ActionFailed, fmt.Errorf("local write: %w", err)
		}
		r.logger.Info("applied remote value locally",
			log.KeyString(key), log.Action(ActionPull), log.ValueSize(cloudValue))
		return ActionPull, nil

	case inLocal:
		if !r.store.syncToCloud(ctx, key, localValue) {
			return ActionFailed, fmt.Errorf("push of local value to %s was not accepted", r.store.remote.Name())
		}
		return ActionPush, nil

	default:
		r.logger.Debug("key absent on both sides", log.KeyString(key), log.Action(ActionNone))
		return ActionNone, nil
	}
}
