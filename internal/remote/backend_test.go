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
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Backends that need a live server run only when their endpoint is exported:
//
//	CLOUDSYNC_TEST_ETCD_ENDPOINTS=127.0.0.1:2379
//	CLOUDSYNC_TEST_MYSQL_DSN=root:@tcp(127.0.0.1:3306)/test

func backendRoundTrip(t *testing.T, s *Store) {
	ctx := context.Background()
	key := fmt.Sprintf("roundtrip-%d", time.Now().UnixNano())

	require.True(t, s.IsAvailable())

	_, found, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, key, "v1"))
	require.NoError(t, s.Set(ctx, key, "v2"))

	value, found, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", value)
}

func TestEtcdFacility(t *testing.T) {
	endpoints := os.Getenv("CLOUDSYNC_TEST_ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("CLOUDSYNC_TEST_ETCD_ENDPOINTS not set")
	}

	f, err := NewEtcdFacility(EtcdConfig{
		Endpoints:   strings.Split(endpoints, ","),
		DialTimeout: 5 * time.Second,
		Prefix:      "/cloudsync-test/",
		OpTimeout:   5 * time.Second,
	})
	require.NoError(t, err)

	s, _ := newTestStore(t, f, 5*time.Second)
	defer s.Close()
	backendRoundTrip(t, s)
}

func TestMySQLFacility(t *testing.T) {
	dsn := os.Getenv("CLOUDSYNC_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("CLOUDSYNC_TEST_MYSQL_DSN not set")
	}

	f, err := NewMySQLFacility(context.Background(), MySQLConfig{
		DSN:   dsn,
		Table: "cloudsync_test",
	})
	require.NoError(t, err)

	s, _ := newTestStore(t, f, 5*time.Second)
	backendRoundTrip(t, s)

	require.NoError(t, s.Close())
	assert.False(t, s.IsAvailable())
	require.NoError(t, f.Close())
}

func TestValidateMySQLConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     MySQLConfig
		table   string
		wantErr bool
	}{
		{"default table", MySQLConfig{DSN: "root:pw@tcp(127.0.0.1:3306)/app"}, DefaultMySQLTable, false},
		{"custom table", MySQLConfig{DSN: "root:pw@tcp(127.0.0.1:3306)/app", Table: "kv_2"}, "kv_2", false},
		{"injection in table", MySQLConfig{DSN: "root:pw@tcp(127.0.0.1:3306)/app", Table: "kv; DROP TABLE x"}, "", true},
		{"leading digit", MySQLConfig{DSN: "root:pw@tcp(127.0.0.1:3306)/app", Table: "1kv"}, "", true},
		{"bad dsn", MySQLConfig{DSN: "root:pw@tcp(127.0.0.1:3306"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn, table, err := ValidateMySQLConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.table, table)
			assert.Equal(t, "app", dsn.DBName)
		})
	}
}
