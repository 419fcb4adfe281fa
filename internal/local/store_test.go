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
	"sync"
	"testing"

	"cloudSync/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// engineContract runs the behaviour every engine must share.
func engineContract(t *testing.T, s Store) {
	t.Run("MissingKey", func(t *testing.T) {
		_, ok, err := s.RawGet("absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetThenGet", func(t *testing.T) {
		require.NoError(t, s.RawSet("tasks", `[{"id":1}]`))

		v, ok, err := s.RawGet("tasks")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `[{"id":1}]`, v)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, s.RawSet("catalog", "v1"))
		require.NoError(t, s.RawSet("catalog", "v2"))

		v, ok, err := s.RawGet("catalog")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v2", v)
	})

	t.Run("EmptyValueIsPresent", func(t *testing.T) {
		require.NoError(t, s.RawSet("blank", ""))

		v, ok, err := s.RawGet("blank")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "", v)
	})

	t.Run("EmptyKeyRejected", func(t *testing.T) {
		assert.ErrorIs(t, s.RawSet("", "x"), ErrEmptyKey)
	})

	t.Run("ConcurrentWrites", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				for j := 0; j < 50; j++ {
					key := fmt.Sprintf("key-%d-%d", id, j)
					if err := s.RawSet(key, key); err != nil {
						t.Errorf("RawSet failed: %v", err)
					}
				}
			}(i)
		}
		wg.Wait()

		v, ok, err := s.RawGet("key-19-49")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "key-19-49", v)
	})
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	engineContract(t, m)

	assert.Equal(t, "memory", m.Name())

	require.NoError(t, m.Close())
	_, _, err := m.RawGet("tasks")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, m.RawSet("tasks", "x"), ErrClosed)
}

func TestMemoryKeysAscending(t *testing.T) {
	m := NewMemory()
	for _, k := range []string{"warehouses", "catalog", "tasks"} {
		require.NoError(t, m.RawSet(k, "x"))
	}

	assert.Equal(t, []string{"catalog", "tasks", "warehouses"}, m.Keys())
	assert.Equal(t, 3, m.Len())
}

func TestRocksDB(t *testing.T) {
	dir := t.TempDir()

	r, err := OpenRocksDB(dir, DefaultRocksDBOptions())
	require.NoError(t, err)
	engineContract(t, r)
	assert.Equal(t, "rocksdb", r.Name())
	assert.Equal(t, dir, r.Path())
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, _, err = r.RawGet("tasks")
	assert.ErrorIs(t, err, ErrClosed)

	// reopen: records must survive
	r2, err := OpenRocksDB(dir, DefaultRocksDBOptions())
	require.NoError(t, err)
	defer r2.Close()

	v, ok, err := r2.RawGet("catalog")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
}

func TestOpen(t *testing.T) {
	s, err := Open(config.LocalConfig{Engine: config.LocalEngineMemory})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())

	dir := t.TempDir()
	s, err = Open(config.LocalConfig{
		Engine:  config.LocalEngineRocksDB,
		RocksDB: config.RocksDBConfig{Path: dir, MaxOpenFiles: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, "rocksdb", s.Name())
	require.NoError(t, s.Close())

	_, err = Open(config.LocalConfig{Engine: "leveldb"})
	assert.Error(t, err)
}
