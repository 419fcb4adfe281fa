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
	"testing"
	"time"

	"cloudSync/internal/local"
	"cloudSync/internal/remote"
	"cloudSync/pkg/log"
	"cloudSync/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	local    *local.Memory
	facility *remote.MemoryFacility
	metrics  *metrics.Metrics
	logs     *observer.ObservedLogs
	store    *Store
}

func newFixture(t *testing.T, cfg Config, tracked ...string) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.FromZap(zap.New(core))

	f := &fixture{
		local:    local.NewMemory(),
		facility: remote.NewMemoryFacility(),
		metrics:  metrics.New(prometheus.NewRegistry()),
		logs:     logs,
	}

	cfg.Local = f.local
	cfg.Remote = remote.New(remote.Config{
		Facility:    f.facility,
		Name:        "memory",
		CallTimeout: time.Second,
		Metrics:     f.metrics,
		Logger:      logger,
	})
	cfg.Tracked = NewTrackedKeySet(tracked...)
	cfg.Metrics = f.metrics
	cfg.Logger = logger

	s, err := NewStore(cfg)
	require.NoError(t, err)
	f.store = s
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Close()
		_ = s.Drain(ctx)
	})
	return f
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.store.Drain(ctx))
}

func (f *fixture) localValue(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := f.local.RawGet(key)
	require.NoError(t, err)
	return v, ok
}

// brokenLocal fails reads or writes on demand.
type brokenLocal struct {
	*local.Memory
	getErr error
	setErr error
}

func (b *brokenLocal) RawGet(key string) (string, bool, error) {
	if b.getErr != nil {
		return "", false, b.getErr
	}
	return b.Memory.RawGet(key)
}

func (b *brokenLocal) RawSet(key, value string) error {
	if b.setErr != nil {
		return b.setErr
	}
	return b.Memory.RawSet(key, value)
}

func TestNewStoreRequiresLocal(t *testing.T) {
	_, err := NewStore(Config{})
	assert.Error(t, err)
}

func TestSetIsLocallyDurableWithoutRemote(t *testing.T) {
	f := newFixture(t, Config{}, "tasks")
	f.facility.SetAvailable(false)

	require.NoError(t, f.store.Set("tasks", "[1]"))

	v, ok, err := f.store.Get("tasks")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[1]", v)

	f.drain(t)
	_, sets := f.facility.Calls()
	assert.Zero(t, sets)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PushTotal.WithLabelValues(pushSkipped)))
}

func TestSetWithNilRemote(t *testing.T) {
	s, err := NewStore(Config{
		Local:   local.NewMemory(),
		Tracked: NewTrackedKeySet("tasks"),
		Logger:  log.NewNop(),
	})
	require.NoError(t, err)

	require.NoError(t, s.Set("tasks", "x"))
	require.NoError(t, s.Drain(context.Background()))

	v, ok, err := s.Get("tasks")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.False(t, s.Remote().IsAvailable())
}

func TestSetMirrorsTrackedKey(t *testing.T) {
	f := newFixture(t, Config{}, "tasks", "settings")

	require.NoError(t, f.store.Set("settings", `{"theme":"dark"}`))
	f.drain(t)

	v, ok := f.facility.Value("settings")
	require.True(t, ok)
	assert.Equal(t, `{"theme":"dark"}`, v)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PushTotal.WithLabelValues(pushSuccess)))
	assert.Equal(t, 1, f.logs.FilterMessage("pushed to remote").Len())
}

func TestUntrackedKeyNeverReachesRemote(t *testing.T) {
	f := newFixture(t, Config{}, "tasks")

	require.NoError(t, f.store.Set("scratch", "temp"))
	f.drain(t)

	v, ok := f.localValue(t, "scratch")
	assert.True(t, ok)
	assert.Equal(t, "temp", v)

	gets, sets := f.facility.Calls()
	assert.Zero(t, gets)
	assert.Zero(t, sets)
	_, inRemote := f.facility.Value("scratch")
	assert.False(t, inRemote)

	assert.False(t, f.store.syncToCloud(context.Background(), "scratch", "temp"))
}

func TestPushErrorIsSwallowed(t *testing.T) {
	f := newFixture(t, Config{}, "tasks")
	f.facility.FailSets(errors.New("quota exceeded"))

	require.NoError(t, f.store.Set("tasks", "[1,2,3]"))
	f.drain(t)

	v, ok := f.localValue(t, "tasks")
	assert.True(t, ok)
	assert.Equal(t, "[1,2,3]", v)

	_, sets := f.facility.Calls()
	assert.Equal(t, 1, sets, "a failed push is never retried")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PushTotal.WithLabelValues(pushFailure)))
	assert.Equal(t, 1, f.logs.FilterMessage("push to remote failed").Len())
}

func TestSetReturnsLocalError(t *testing.T) {
	f := newFixture(t, Config{}, "tasks")
	broken := &brokenLocal{Memory: local.NewMemory(), setErr: errors.New("disk full")}
	f.store.local = broken

	err := f.store.Set("tasks", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	f.drain(t)
	_, sets := f.facility.Calls()
	assert.Zero(t, sets, "no mirror after a failed local write")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.LocalOperationErrors.WithLabelValues("set")))
}

func TestSetDoesNotWaitForRemote(t *testing.T) {
	f := newFixture(t, Config{}, "tasks")
	f.facility.SetDelay(300 * time.Millisecond)

	start := time.Now()
	require.NoError(t, f.store.Set("tasks", "v"))
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	v, ok := f.localValue(t, "tasks")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, 1, f.store.InFlight())

	f.drain(t)
	assert.Zero(t, f.store.InFlight())
	rv, ok := f.facility.Value("tasks")
	assert.True(t, ok)
	assert.Equal(t, "v", rv)
}

func TestDrainHonoursContext(t *testing.T) {
	f := newFixture(t, Config{}, "tasks")
	f.facility.SetDelay(500 * time.Millisecond)

	require.NoError(t, f.store.Set("tasks", "v"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.store.Drain(ctx), context.DeadlineExceeded)

	f.drain(t)
}

func TestPacedPushAbandonedOnClose(t *testing.T) {
	f := newFixture(t, Config{PushQPS: 0.001, PushBurst: 1}, "tasks")

	require.NoError(t, f.store.Set("tasks", "first"))
	f.drain(t)

	require.NoError(t, f.store.Set("tasks", "second"))
	assert.Equal(t, 1, f.store.InFlight())

	require.NoError(t, f.store.Close())
	f.drain(t)

	rv, _ := f.facility.Value("tasks")
	assert.Equal(t, "first", rv)
	v, _ := f.localValue(t, "tasks")
	assert.Equal(t, "second", v)
}

func TestTrackedKeySet(t *testing.T) {
	ts := NewTrackedKeySet("b", "a", "", "b", "c", "a")
	assert.Equal(t, []string{"b", "a", "c"}, ts.Keys())
	assert.Equal(t, 3, ts.Len())
	assert.True(t, ts.Contains("c"))
	assert.False(t, ts.Contains(""))
	assert.False(t, ts.Contains("d"))

	keys := ts.Keys()
	keys[0] = "mutated"
	assert.Equal(t, "b", ts.Keys()[0])

	var empty *TrackedKeySet
	assert.False(t, empty.Contains("a"))
	assert.Nil(t, empty.Keys())
	assert.Zero(t, empty.Len())
}
