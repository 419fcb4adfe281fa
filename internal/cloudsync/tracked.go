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

// Package cloudsync keeps a fixed set of tracked keys consistent between a
// local engine and the authoritative remote store.
//
// Writes go through Store, which applies them locally and mirrors tracked
// keys to the remote in the background. Reconciler runs once at startup and
// settles every tracked key, letting the remote win on conflict.
package cloudsync

// TrackedKeySet is the ordered set of keys subject to synchronization.
// It is immutable once built.
type TrackedKeySet struct {
	keys  []string
	index map[string]struct{}
}

// NewTrackedKeySet keeps the first occurrence of each key, in order.
// Empty keys are ignored.
func NewTrackedKeySet(keys ...string) *TrackedKeySet {
	ts := &TrackedKeySet{
		keys:  make([]string, 0, len(keys)),
		index: make(map[string]struct{}, len(keys)),
	}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := ts.index[k]; dup {
			continue
		}
		ts.index[k] = struct{}{}
		ts.keys = append(ts.keys, k)
	}
	return ts
}

// Contains reports membership. A nil set tracks nothing.
func (ts *TrackedKeySet) Contains(key string) bool {
	if ts == nil {
		return false
	}
	_, ok := ts.index[key]
	return ok
}

// Keys returns the keys in reconciliation order.
func (ts *TrackedKeySet) Keys() []string {
	if ts == nil {
		return nil
	}
	out := make([]string, len(ts.keys))
	copy(out, ts.keys)
	return out
}

func (ts *TrackedKeySet) Len() int {
	if ts == nil {
		return 0
	}
	return len(ts.keys)
}
