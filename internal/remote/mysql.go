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
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DefaultMySQLTable holds records when MySQLConfig.Table is empty.
const DefaultMySQLTable = "cloud_storage"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// MySQLConfig configures a MySQLFacility.
type MySQLConfig struct {
	DSN       string
	Table     string
	OpTimeout time.Duration
}

// MySQLFacility stores records as rows of a two-column table.
type MySQLFacility struct {
	db        *sql.DB
	table     string
	opTimeout time.Duration
	closed    atomic.Bool

	getQuery string
	setQuery string
}

// ValidateMySQLConfig checks the DSN and table name without connecting.
func ValidateMySQLConfig(cfg MySQLConfig) (*mysql.Config, string, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultMySQLTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, "", fmt.Errorf("invalid mysql table name %q", table)
	}

	dsn, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	return dsn, table, nil
}

// NewMySQLFacility connects and creates the table if it does not exist.
func NewMySQLFacility(ctx context.Context, cfg MySQLConfig) (*MySQLFacility, error) {
	dsn, table, err := ValidateMySQLConfig(cfg)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = DefaultCallTimeout
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` (k VARCHAR(255) NOT NULL PRIMARY KEY, v LONGBLOB NOT NULL)", table)
	createCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := db.ExecContext(createCtx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", table, err)
	}

	return &MySQLFacility{
		db:        db,
		table:     table,
		opTimeout: opTimeout,
		getQuery:  fmt.Sprintf("SELECT v FROM `%s` WHERE k = ?", table),
		setQuery:  fmt.Sprintf("INSERT INTO `%s` (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)", table),
	}, nil
}

// GetItem implements Facility.
func (m *MySQLFacility) GetItem(key string, callback GetCallback) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
		defer cancel()

		var value []byte
		err := m.db.QueryRowContext(ctx, m.getQuery, key).Scan(&value)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			callback("", false, nil)
		case err != nil:
			callback("", false, err)
		default:
			callback(string(value), true, nil)
		}
	}()
}

// SetItem implements Facility.
func (m *MySQLFacility) SetItem(key, value string, callback SetCallback) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
		defer cancel()

		_, err := m.db.ExecContext(ctx, m.setQuery, key, []byte(value))
		callback(err)
	}()
}

// Available implements Prober. Connectivity loss surfaces as call errors.
func (m *MySQLFacility) Available() bool {
	return !m.closed.Load()
}

// Close closes the connection pool.
func (m *MySQLFacility) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	return m.db.Close()
}
