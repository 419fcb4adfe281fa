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
	"sync"

	"github.com/google/btree"
)

// recordItem is a key/value pair ordered by key in the B-tree.
type recordItem struct {
	key   string
	value string
}

// Less implements btree.Item.
func (ri *recordItem) Less(other btree.Item) bool {
	return ri.key < other.(*recordItem).key
}

// Memory is an in-process engine backed by an ordered B-tree.
type Memory struct {
	mu     sync.RWMutex
	tree   *btree.BTree
	closed bool
}

// NewMemory creates an empty Memory engine.
func NewMemory() *Memory {
	return &Memory{
		tree: btree.New(32),
	}
}

// RawGet implements Store.
func (m *Memory) RawGet(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", false, ErrClosed
	}

	item := m.tree.Get(&recordItem{key: key})
	if item == nil {
		return "", false, nil
	}
	return item.(*recordItem).value, true, nil
}

// RawSet implements Store.
func (m *Memory) RawSet(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.tree.ReplaceOrInsert(&recordItem{key: key, value: value})
	return nil
}

// Keys returns all keys in ascending order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, m.tree.Len())
	m.tree.Ascend(func(item btree.Item) bool {
		keys = append(keys, item.(*recordItem).key)
		return true
	})
	return keys
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Len()
}

// Name implements Store.
func (m *Memory) Name() string {
	return "memory"
}

// Close implements Store. Data is dropped.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.tree.Clear(false)
	return nil
}
