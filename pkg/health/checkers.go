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
	"fmt"
)

// ProbeChecker wraps a function; any error is unhealthy. Used for the local
// engine, whose failure makes the process useless.
type ProbeChecker struct {
	name  string
	probe func(ctx context.Context) error
}

func NewProbeChecker(name string, probe func(ctx context.Context) error) *ProbeChecker {
	return &ProbeChecker{name: name, probe: probe}
}

func (p *ProbeChecker) Name() string { return p.name }

func (p *ProbeChecker) Check(ctx context.Context) (Status, string, error) {
	if err := p.probe(ctx); err != nil {
		return StatusUnhealthy, "", fmt.Errorf("%s check failed: %w", p.name, err)
	}
	return StatusHealthy, "operational", nil
}

// Availability is satisfied by *remote.Store.
type Availability interface {
	IsAvailable() bool
	Name() string
}

// RemoteChecker reports degraded, never unhealthy, when the remote is gone:
// writes keep landing locally.
type RemoteChecker struct {
	remote Availability
}

func NewRemoteChecker(remote Availability) *RemoteChecker {
	return &RemoteChecker{remote: remote}
}

func (rc *RemoteChecker) Name() string { return "remote" }

func (rc *RemoteChecker) Check(ctx context.Context) (Status, string, error) {
	if !rc.remote.IsAvailable() {
		return StatusDegraded, fmt.Sprintf("remote %s unavailable, mirroring suspended", rc.remote.Name()), nil
	}
	return StatusHealthy, fmt.Sprintf("remote %s available", rc.remote.Name()), nil
}

// ReadyChecker is unhealthy until done is closed.
type ReadyChecker struct {
	name   string
	done   <-chan struct{}
	detail func() string
}

// NewReadyChecker gates readiness on done. detail, if set, describes the
// finished state.
func NewReadyChecker(name string, done <-chan struct{}, detail func() string) *ReadyChecker {
	return &ReadyChecker{name: name, done: done, detail: detail}
}

func (rc *ReadyChecker) Name() string { return rc.name }

func (rc *ReadyChecker) Check(ctx context.Context) (Status, string, error) {
	select {
	case <-rc.done:
		msg := "done"
		if rc.detail != nil {
			msg = rc.detail()
		}
		return StatusHealthy, msg, nil
	default:
		return StatusUnhealthy, "pending", nil
	}
}

// DiskSpaceChecker watches the filesystem holding the RocksDB directory.
type DiskSpaceChecker struct {
	path         string
	minFreeBytes uint64
	warnPercent  float64
}

func NewDiskSpaceChecker(path string, minFreeBytes uint64, warnPercent float64) *DiskSpaceChecker {
	return &DiskSpaceChecker{path: path, minFreeBytes: minFreeBytes, warnPercent: warnPercent}
}

func (d *DiskSpaceChecker) Name() string { return "disk" }

func (d *DiskSpaceChecker) Check(ctx context.Context) (Status, string, error) {
	u, err := diskUsageOf(d.path)
	if err != nil {
		return StatusUnhealthy, "", err
	}

	msg := fmt.Sprintf("%.1fGiB free of %.1fGiB (%.1f%% used)", gib(u.free), gib(u.total), u.usedPercent())
	switch {
	case u.free < d.minFreeBytes:
		return StatusUnhealthy, "disk space critical: " + msg, nil
	case d.warnPercent > 0 && u.usedPercent() > d.warnPercent:
		return StatusDegraded, "disk space low: " + msg, nil
	default:
		return StatusHealthy, msg, nil
	}
}

type diskUsage struct {
	total uint64
	free  uint64
}

func (u diskUsage) usedPercent() float64 {
	if u.total == 0 {
		return 0
	}
	return float64(u.total-u.free) / float64(u.total) * 100
}

func gib(b uint64) float64 { return float64(b) / (1 << 30) }
