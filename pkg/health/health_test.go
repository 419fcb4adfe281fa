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

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloudSync/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	name   string
	status Status
	msg    string
	err    error
	calls  int
}

func (mc *mockChecker) Name() string { return mc.name }

func (mc *mockChecker) Check(ctx context.Context) (Status, string, error) {
	mc.calls++
	return mc.status, mc.msg, mc.err
}

type fakeRemote struct{ up bool }

func (f fakeRemote) IsAvailable() bool { return f.up }
func (f fakeRemote) Name() string      { return "etcd" }

func newTestServer() *Server {
	s := NewServer(log.NewNop())
	s.SetCacheTTL(0)
	return s
}

func TestServerCheckAggregates(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		want     Status
	}{
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, StatusHealthy},
		{"one degraded", []Status{StatusHealthy, StatusDegraded}, StatusDegraded},
		{"unhealthy beats degraded", []Status{StatusUnhealthy, StatusDegraded, StatusHealthy}, StatusUnhealthy},
		{"no checkers", nil, StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			for i, st := range tt.statuses {
				s.Register(&mockChecker{name: string(rune('a' + i)), status: st})
			}
			report := s.Check(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Checks, len(tt.statuses))
		})
	}
}

func TestServerCheckErrorIsUnhealthy(t *testing.T) {
	s := newTestServer()
	s.Register(&mockChecker{name: "local", status: StatusHealthy, err: errors.New("io error")})

	report := s.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, "io error", report.Checks["local"].Message)
}

func TestServerCache(t *testing.T) {
	s := NewServer(log.NewNop())
	mc := &mockChecker{name: "local", status: StatusHealthy}
	s.Register(mc)

	s.Check(context.Background())
	s.Check(context.Background())
	assert.Equal(t, 1, mc.calls)

	s.SetCacheTTL(0)
	s.Check(context.Background())
	s.Check(context.Background())
	assert.Equal(t, 3, mc.calls)
}

func TestHTTPHandlers(t *testing.T) {
	done := make(chan struct{})
	s := newTestServer()
	s.Register(NewRemoteChecker(fakeRemote{up: false}))
	s.Register(NewReadyChecker("reconcile", done, func() string { return "pulled=1" }))
	h := s.Handler()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusOK, get("/liveness").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readiness").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/health").Code)

	close(done)

	assert.Equal(t, http.StatusOK, get("/readiness").Code)

	rec := get("/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "pulled=1", report.Checks["reconcile"].Message)
	assert.Equal(t, StatusDegraded, report.Checks["remote"].Status)

	assert.Equal(t, http.StatusNotFound, get("/nope").Code)
	assert.Equal(t, http.StatusOK, get("/").Code)
}

func TestProbeChecker(t *testing.T) {
	ok := NewProbeChecker("local", func(ctx context.Context) error { return nil })
	st, _, err := ok.Check(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, StatusHealthy, st)

	bad := NewProbeChecker("local", func(ctx context.Context) error { return errors.New("closed") })
	_, _, err = bad.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestRemoteChecker(t *testing.T) {
	st, msg, err := NewRemoteChecker(fakeRemote{up: true}).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, st)
	assert.Contains(t, msg, "etcd")
}

func TestDiskSpaceChecker(t *testing.T) {
	c := NewDiskSpaceChecker(t.TempDir(), 0, 0)
	st, msg, err := c.Check(context.Background())
	if err != nil {
		t.Skipf("disk usage unavailable: %v", err)
	}
	assert.Equal(t, StatusHealthy, st)
	assert.Contains(t, msg, "GiB")

	_, _, err = NewDiskSpaceChecker("/definitely/not/here", 0, 0).Check(context.Background())
	assert.Error(t, err)
}
