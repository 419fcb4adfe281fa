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
	"errors"
	"sync/atomic"
)

// ErrTooManyRequests is returned when the in-flight cap is reached.
var ErrTooManyRequests = errors.New("reliability: too many requests in flight")

// RequestLimiter caps concurrent requests without queueing: callers past the
// cap are rejected at once.
type RequestLimiter struct {
	max      int64
	current  int64
	rejected int64
}

// NewRequestLimiter creates a limiter; max <= 0 disables the cap.
func NewRequestLimiter(max int64) *RequestLimiter {
	return &RequestLimiter{max: max}
}

// Acquire returns a release func, or ErrTooManyRequests.
func (rl *RequestLimiter) Acquire() (func(), error) {
	current := atomic.AddInt64(&rl.current, 1)
	if rl.max > 0 && current > rl.max {
		atomic.AddInt64(&rl.current, -1)
		atomic.AddInt64(&rl.rejected, 1)
		return nil, ErrTooManyRequests
	}

	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			atomic.AddInt64(&rl.current, -1)
		}
	}, nil
}

// InFlight returns the number of acquired, unreleased permits.
func (rl *RequestLimiter) InFlight() int64 {
	return atomic.LoadInt64(&rl.current)
}

// Rejected returns how many Acquire calls were refused.
func (rl *RequestLimiter) Rejected() int64 {
	return atomic.LoadInt64(&rl.rejected)
}
