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
	"fmt"
	"sync/atomic"
	"unicode/utf8"
)

// ErrInvalidRecord wraps every RecordLimits.Validate failure.
var ErrInvalidRecord = errors.New("invalid record")

var validationErrors int64

// RecordLimits bounds keys and values accepted from clients. The defaults
// match what etcd accepts, the strictest remote backend.
type RecordLimits struct {
	MaxKeyBytes   int
	MaxValueBytes int
}

var DefaultRecordLimits = RecordLimits{
	MaxKeyBytes:   1536,
	MaxValueBytes: 1 << 20,
}

// Validate checks one record against the limits.
func (l RecordLimits) Validate(key, value string) error {
	var err error
	switch {
	case key == "":
		err = fmt.Errorf("%w: empty key", ErrInvalidRecord)
	case !utf8.ValidString(key):
		err = fmt.Errorf("%w: key is not valid UTF-8", ErrInvalidRecord)
	case l.MaxKeyBytes > 0 && len(key) > l.MaxKeyBytes:
		err = fmt.Errorf("%w: key too large: %d bytes (max %d)", ErrInvalidRecord, len(key), l.MaxKeyBytes)
	case l.MaxValueBytes > 0 && len(value) > l.MaxValueBytes:
		err = fmt.Errorf("%w: value too large: %d bytes (max %d)", ErrInvalidRecord, len(value), l.MaxValueBytes)
	}
	if err != nil {
		atomic.AddInt64(&validationErrors, 1)
	}
	return err
}

// GetValidationErrorCount returns the number of rejected records.
func GetValidationErrorCount() int64 {
	return atomic.LoadInt64(&validationErrors)
}

// ResetValidationErrorCount resets the counter, for tests
func ResetValidationErrorCount() {
	atomic.StoreInt64(&validationErrors, 0)
}
