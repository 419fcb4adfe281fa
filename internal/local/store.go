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

// Package local holds the fast, synchronous key-value engines that back the
// local side of the sync engine. Engines do no interception of their own;
// mirroring to the remote store is layered on top by package cloudsync.
package local

import "errors"

var (
	// ErrClosed is returned when operating on a closed engine.
	ErrClosed = errors.New("local: store is closed")

	// ErrEmptyKey is returned when an empty key is provided.
	ErrEmptyKey = errors.New("local: empty key is not allowed")
)

// Store is the pre-interception local primitive.
type Store interface {
	// RawGet returns the value for key and whether it exists.
	RawGet(key string) (string, bool, error)

	// RawSet writes through to the engine unconditionally.
	RawSet(key, value string) error

	// Name identifies the engine in logs and health reports.
	Name() string

	Close() error
}
