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
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the facility handle is absent or unreachable.
	// It is a checked condition, not a failure of a call.
	ErrUnavailable = errors.New("remote: store unavailable")

	// ErrTimeout means the facility did not resolve a call in time.
	ErrTimeout = errors.New("remote: call timed out")
)

// Error is a failure reported by the remote facility for one call.
type Error struct {
	Op  string // "get" or "set"
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRemoteError reports whether err is a facility-reported failure.
func IsRemoteError(err error) bool {
	var re *Error
	return errors.As(err, &re)
}
