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
	"os"
	"sync"

	"github.com/linxGnu/grocksdb"
)

// RocksDBOptions tunes the persistent engine.
type RocksDBOptions struct {
	BlockCacheSize  uint64
	WriteBufferSize uint64
	MaxOpenFiles    int
	// Sync fsyncs the WAL on every write
	Sync bool
}

// DefaultRocksDBOptions suits a small set of records.
func DefaultRocksDBOptions() RocksDBOptions {
	return RocksDBOptions{
		BlockCacheSize:  64 << 20,
		WriteBufferSize: 16 << 20,
		MaxOpenFiles:    1000,
	}
}

// RocksDB is a persistent engine; records survive restarts.
type RocksDB struct {
	mu     sync.RWMutex
	db     *grocksdb.DB
	opts   *grocksdb.Options
	wo     *grocksdb.WriteOptions
	ro     *grocksdb.ReadOptions
	path   string
	closed bool
}

// OpenRocksDB opens or creates the database at path.
func OpenRocksDB(path string, o RocksDBOptions) (*RocksDB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create RocksDB dir %s: %w", path, err)
	}

	def := DefaultRocksDBOptions()
	if o.BlockCacheSize == 0 {
		o.BlockCacheSize = def.BlockCacheSize
	}
	if o.WriteBufferSize == 0 {
		o.WriteBufferSize = def.WriteBufferSize
	}
	if o.MaxOpenFiles == 0 {
		o.MaxOpenFiles = def.MaxOpenFiles
	}

	bbto := grocksdb.NewDefaultBlockBasedTableOptions()
	bbto.SetBlockCache(grocksdb.NewLRUCache(o.BlockCacheSize))
	bbto.SetFilterPolicy(grocksdb.NewBloomFilter(10))
	defer bbto.Destroy()

	opts := grocksdb.NewDefaultOptions()
	opts.SetBlockBasedTableFactory(bbto)
	opts.SetCreateIfMissing(true)
	opts.SetWriteBufferSize(o.WriteBufferSize)
	opts.SetMaxOpenFiles(o.MaxOpenFiles)
	opts.SetCompression(grocksdb.SnappyCompression)

	db, err := grocksdb.OpenDb(opts, path)
	if err != nil {
		opts.Destroy()
		return nil, fmt.Errorf("failed to open RocksDB at %s: %w", path, err)
	}

	wo := grocksdb.NewDefaultWriteOptions()
	wo.SetSync(o.Sync)

	return &RocksDB{
		db:   db,
		opts: opts,
		wo:   wo,
		ro:   grocksdb.NewDefaultReadOptions(),
		path: path,
	}, nil
}

// RawGet implements Store.
func (r *RocksDB) RawGet(key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return "", false, ErrClosed
	}

	data, err := r.db.Get(r.ro, []byte(key))
	if err != nil {
		return "", false, fmt.Errorf("rocksdb get %q: %w", key, err)
	}
	defer data.Free()

	if !data.Exists() {
		return "", false, nil
	}
	return string(data.Data()), true, nil
}

// RawSet implements Store.
func (r *RocksDB) RawSet(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrClosed
	}

	if err := r.db.Put(r.wo, []byte(key), []byte(value)); err != nil {
		return fmt.Errorf("rocksdb put %q: %w", key, err)
	}
	return nil
}

// Name implements Store.
func (r *RocksDB) Name() string {
	return "rocksdb"
}

// Path returns the database directory.
func (r *RocksDB) Path() string {
	return r.path
}

// Close implements Store.
func (r *RocksDB) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	r.db.Close()
	r.wo.Destroy()
	r.ro.Destroy()
	r.opts.Destroy()
	return nil
}
