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

package local

import (
	"fmt"

	"cloudSync/pkg/config"
)

// Open builds the engine selected by cfg.
func Open(cfg config.LocalConfig) (Store, error) {
	switch cfg.Engine {
	case config.LocalEngineMemory, "":
		return NewMemory(), nil
	case config.LocalEngineRocksDB:
		db, err := OpenRocksDB(cfg.RocksDB.Path, RocksDBOptions{
			BlockCacheSize:  cfg.RocksDB.BlockCacheSize,
			WriteBufferSize: cfg.RocksDB.WriteBufferSize,
			MaxOpenFiles:    cfg.RocksDB.MaxOpenFiles,
			Sync:            cfg.RocksDB.Sync,
		})
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown local engine %q", cfg.Engine)
	}
}
