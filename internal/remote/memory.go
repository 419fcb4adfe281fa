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
	"sync"
	"time"
)

// MemoryFacility is an in-process Facility. Callbacks fire from a new
// goroutine, like a real network-backed host API. Its fault switches make it
// the test double for the sync engine.
type MemoryFacility struct {
	mu        sync.Mutex
	data      map[string]string
	available bool
	getErr    error
	setErr    error
	duplicate bool
	drop      bool
	delay     time.Duration
	gets      int
	sets      int
}

// NewMemoryFacility creates an empty, available facility.
func NewMemoryFacility() *MemoryFacility {
	return &MemoryFacility{
		data:      make(map[string]string),
		available: true,
	}
}

// GetItem implements Facility.
func (m *MemoryFacility) GetItem(key string, callback GetCallback) {
	m.mu.Lock()
	m.gets++
	delay, drop, dup, failErr := m.delay, m.drop, m.duplicate, m.getErr
	m.mu.Unlock()

	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		if drop {
			return
		}

		var (
			value string
			found bool
		)
		if failErr == nil {
			m.mu.Lock()
			value, found = m.data[key]
			m.mu.Unlock()
		}

		callback(value, found, failErr)
		if dup {
			// a misbehaving host answering twice with a different outcome
			callback("duplicate", true, nil)
		}
	}()
}

// SetItem implements Facility.
func (m *MemoryFacility) SetItem(key, value string, callback SetCallback) {
	m.mu.Lock()
	m.sets++
	delay, drop, dup, failErr := m.delay, m.drop, m.duplicate, m.setErr
	m.mu.Unlock()

	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		if failErr == nil {
			m.mu.Lock()
			m.data[key] = value
			m.mu.Unlock()
		}
		if drop {
			return
		}

		callback(failErr)
		if dup {
			callback(nil)
		}
	}()
}

// Available implements Prober.
func (m *MemoryFacility) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// SetAvailable toggles reachability.
func (m *MemoryFacility) SetAvailable(available bool) {
	m.mu.Lock()
	m.available = available
	m.mu.Unlock()
}

// FailGets makes every GetItem report err; nil restores normal behaviour.
func (m *MemoryFacility) FailGets(err error) {
	m.mu.Lock()
	m.getErr = err
	m.mu.Unlock()
}

// FailSets makes every SetItem report err without storing; nil restores normal behaviour.
func (m *MemoryFacility) FailSets(err error) {
	m.mu.Lock()
	m.setErr = err
	m.mu.Unlock()
}

// DuplicateCallbacks makes every call invoke its callback twice.
func (m *MemoryFacility) DuplicateCallbacks(on bool) {
	m.mu.Lock()
	m.duplicate = on
	m.mu.Unlock()
}

// DropCallbacks makes calls never complete. Sets are still applied.
func (m *MemoryFacility) DropCallbacks(on bool) {
	m.mu.Lock()
	m.drop = on
	m.mu.Unlock()
}

// SetDelay delays every callback by d.
func (m *MemoryFacility) SetDelay(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// Put seeds a value directly, bypassing callbacks and counters.
func (m *MemoryFacility) Put(key, value string) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

// Value reads a value directly, bypassing callbacks and counters.
func (m *MemoryFacility) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

// Calls returns how many GetItem and SetItem calls were made.
func (m *MemoryFacility) Calls() (gets, sets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets, m.sets
}
