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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeGoRecoversPanic(t *testing.T) {
	ResetPanicCount()

	recovered := make(chan string, 1)
	SetPanicHandler(func(name string, v interface{}, stack []byte) {
		recovered <- name
	})
	defer SetPanicHandler(nil)

	SafeGo("boom", func() { panic("kaboom") })

	select {
	case name := <-recovered:
		assert.Equal(t, "boom", name)
	case <-time.After(2 * time.Second):
		t.Fatal("panic handler was not called")
	}
	assert.Equal(t, int64(1), GetPanicCount())
}

func TestSafeCall(t *testing.T) {
	err := SafeCall("ok", func() error { return nil })
	assert.NoError(t, err)

	sentinel := errors.New("plain failure")
	err = SafeCall("fail", func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)

	err = SafeCall("panics", func() error { panic("bad") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic recovered")
}

func TestGracefulShutdownPhaseOrder(t *testing.T) {
	gs := NewGracefulShutdown(time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) ShutdownHook {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	gs.RegisterHook(PhaseCloseResources, record("close"))
	gs.RegisterHook(PhaseStopAccepting, record("stop"))
	gs.RegisterHook(PhaseDrainMirrors, record("drain"))
	gs.RegisterHook(PhaseDrainMirrors, func(ctx context.Context) error { return errors.New("drain failed") })

	assert.False(t, gs.IsShuttingDown())
	gs.Shutdown()
	gs.Shutdown()

	assert.True(t, gs.IsShuttingDown())
	assert.Equal(t, []string{"stop", "drain", "close"}, order)
}

func TestRequestLimiter(t *testing.T) {
	rl := NewRequestLimiter(2)

	r1, err := rl.Acquire()
	require.NoError(t, err)
	r2, err := rl.Acquire()
	require.NoError(t, err)

	_, err = rl.Acquire()
	assert.ErrorIs(t, err, ErrTooManyRequests)
	assert.Equal(t, int64(2), rl.InFlight())
	assert.Equal(t, int64(1), rl.Rejected())

	r1()
	r1()
	assert.Equal(t, int64(1), rl.InFlight())

	r3, err := rl.Acquire()
	require.NoError(t, err)
	r2()
	r3()
	assert.Zero(t, rl.InFlight())

	unlimited := NewRequestLimiter(0)
	for i := 0; i < 100; i++ {
		_, err := unlimited.Acquire()
		require.NoError(t, err)
	}
}

func TestRecordLimits(t *testing.T) {
	ResetValidationErrorCount()
	limits := RecordLimits{MaxKeyBytes: 8, MaxValueBytes: 4}

	assert.NoError(t, limits.Validate("tasks", "1234"))
	assert.NoError(t, limits.Validate("tasks", ""))

	for _, tc := range []struct{ key, value string }{
		{"", "v"},
		{"\xff\xfe", "v"},
		{"much-too-long", "v"},
		{"tasks", "12345"},
	} {
		assert.ErrorIs(t, limits.Validate(tc.key, tc.value), ErrInvalidRecord, "key=%q", tc.key)
	}
	assert.Equal(t, int64(4), GetValidationErrorCount())

	assert.NoError(t, RecordLimits{}.Validate("any-length-key", "any value"))
}
