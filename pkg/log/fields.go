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

package log

import (
	"time"

	"go.uber.org/zap"
)

// Generic field constructors

func String(key, val string) zap.Field                 { return zap.String(key, val) }
func Int(key string, val int) zap.Field                { return zap.Int(key, val) }
func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }
func Err(err error) zap.Field                          { return zap.Error(err) }

// Sync domain fields

// KeyString is the record key.
func KeyString(key string) zap.Field {
	return zap.String("key", key)
}

// ValueSize records the value length only; values are opaque and may be large.
func ValueSize(value string) zap.Field {
	return zap.Int("value_size", len(value))
}

// Component names the emitting subsystem.
func Component(name string) zap.Field {
	return zap.String("component", name)
}

// Backend names a local engine or remote facility.
func Backend(name string) zap.Field {
	return zap.String("backend", name)
}

// Action is the reconciliation decision for a key: pull, push or none.
func Action(action string) zap.Field {
	return zap.String("action", action)
}

// Goroutine names a background goroutine.
func Goroutine(name string) zap.Field {
	return zap.String("goroutine", name)
}

// Phase names a shutdown phase.
func Phase(phase string) zap.Field {
	return zap.String("phase", phase)
}

// Count is a generic counter.
func Count(count int64) zap.Field {
	return zap.Int64("count", count)
}
