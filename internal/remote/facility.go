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

// Package remote adapts the authoritative, callback-based remote key-value
// facility into blocking calls with a single deterministic outcome.
//
// A Facility reports results through completion callbacks. Implementations
// may invoke a callback synchronously, from another goroutine, more than once
// or never; Store turns every call into exactly one result and bounds the
// wait with a timeout.
package remote

// GetCallback receives the outcome of a GetItem call. found is false when the
// key has no remote value and no error occurred.
type GetCallback func(value string, found bool, err error)

// SetCallback receives the outcome of a SetItem call.
type SetCallback func(err error)

// Facility is the host-provided remote storage handle.
type Facility interface {
	GetItem(key string, callback GetCallback)
	SetItem(key, value string, callback SetCallback)
}

// Prober is implemented by facilities that can tell, without blocking,
// whether they are reachable right now. Facilities that do not implement it
// are considered available whenever the handle is present.
type Prober interface {
	Available() bool
}
