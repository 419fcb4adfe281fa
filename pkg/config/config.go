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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Local engines
const (
	LocalEngineMemory  = "memory"
	LocalEngineRocksDB = "rocksdb"
)

// Remote backends
const (
	RemoteBackendNone   = "none"
	RemoteBackendMemory = "memory"
	RemoteBackendEtcd   = "etcd"
	RemoteBackendHTTP   = "http"
	RemoteBackendMySQL  = "mysql"
)

// Config unified configuration structure
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig server configuration
type ServerConfig struct {
	ListenAddress string `yaml:"listen_address"`

	Sync        SyncConfig        `yaml:"sync"`
	Local       LocalConfig       `yaml:"local"`
	Remote      RemoteConfig      `yaml:"remote"`
	Reliability ReliabilityConfig `yaml:"reliability"`
	Log         LogConfig         `yaml:"log"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
}

// SyncConfig controls which keys are mirrored and how pushes are paced
type SyncConfig struct {
	// TrackedKeys is ordered; the order is the reconciliation order at startup
	TrackedKeys []string `yaml:"tracked_keys"`

	ReconcileOnStart bool    `yaml:"reconcile_on_start"` // Default true
	PushQPS          float64 `yaml:"push_qps"`           // Background push rate, 0 means unlimited
	PushBurst        int     `yaml:"push_burst"`         // Default 1 when push_qps > 0
}

// LocalConfig local engine configuration
type LocalConfig struct {
	Engine  string        `yaml:"engine"` // memory or rocksdb, default memory
	RocksDB RocksDBConfig `yaml:"rocksdb"`
}

// RocksDBConfig RocksDB engine configuration
type RocksDBConfig struct {
	Path            string `yaml:"path"`              // Default data/local
	BlockCacheSize  uint64 `yaml:"block_cache_size"`  // Default 64MB
	WriteBufferSize uint64 `yaml:"write_buffer_size"` // Default 16MB
	MaxOpenFiles    int    `yaml:"max_open_files"`    // Default 1000
	Sync            bool   `yaml:"sync"`              // fsync every write, default false
}

// RemoteConfig remote facility configuration
type RemoteConfig struct {
	Backend     string        `yaml:"backend"`      // none, memory, etcd, http, mysql; default none
	CallTimeout time.Duration `yaml:"call_timeout"` // Bound on a single get/set, default 10s

	Etcd  EtcdConfig  `yaml:"etcd"`
	HTTP  HTTPConfig  `yaml:"http"`
	MySQL MySQLConfig `yaml:"mysql"`
}

// EtcdConfig etcd remote configuration
type EtcdConfig struct {
	Endpoints   []string      `yaml:"endpoints"`    // Default ["127.0.0.1:2379"]
	DialTimeout time.Duration `yaml:"dial_timeout"` // Default 5s
	Prefix      string        `yaml:"prefix"`       // Default /cloudsync/
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
}

// HTTPConfig HTTP KV remote configuration
type HTTPConfig struct {
	BaseURL string `yaml:"base_url"` // e.g. http://127.0.0.1:9121
}

// MySQLConfig MySQL remote configuration
type MySQLConfig struct {
	DSN   string `yaml:"dsn"`   // user:pass@tcp(host:3306)/db
	Table string `yaml:"table"` // Default cloud_storage
}

// ReliabilityConfig reliability configuration
type ReliabilityConfig struct {
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // Default 30s
	DrainTimeout    time.Duration `yaml:"drain_timeout"`    // Default 5s

	MaxInFlightRequests int64 `yaml:"max_inflight_requests"` // HTTP API cap, default 1000
	MaxKeyBytes         int   `yaml:"max_key_bytes"`         // Default 1536
	MaxValueBytes       int   `yaml:"max_value_bytes"`       // Default 1MB
}

// LogConfig log configuration
type LogConfig struct {
	Level            string   `yaml:"level"`              // Default info
	Encoding         string   `yaml:"encoding"`           // Default json
	OutputPaths      []string `yaml:"output_paths"`       // Default ["stdout"]
	ErrorOutputPaths []string `yaml:"error_output_paths"` // Default ["stderr"]
}

// MonitoringConfig monitoring configuration
type MonitoringConfig struct {
	EnablePrometheus bool   `yaml:"enable_prometheus"` // Default true
	PrometheusPort   int    `yaml:"prometheus_port"`   // Default 9090
	HealthAddress    string `yaml:"health_address"`    // Default :8081
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Sync.ReconcileOnStart = true
	cfg.Server.Monitoring.EnablePrometheus = true
	cfg.SetDefaults()
	return cfg
}

// LoadConfig loads configuration from a file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	cfg.OverrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not read the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	// boolean options that default to true must be preset before decoding
	cfg.Server.Sync.ReconcileOnStart = true
	cfg.Server.Monitoring.EnablePrometheus = true
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// LoadConfigOrDefault loads path if it exists, otherwise falls back to defaults
func LoadConfigOrDefault(path string) (*Config, error) {
	if path != "" {
		cfg, err := LoadConfig(path)
		if err == nil {
			return cfg, nil
		}
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	cfg.OverrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SetDefaults sets default values
func (c *Config) SetDefaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":9121"
	}

	// Sync defaults
	if c.Server.Sync.PushQPS > 0 && c.Server.Sync.PushBurst == 0 {
		c.Server.Sync.PushBurst = 1
	}

	// Local defaults
	if c.Server.Local.Engine == "" {
		c.Server.Local.Engine = LocalEngineMemory
	}
	if c.Server.Local.RocksDB.Path == "" {
		c.Server.Local.RocksDB.Path = "data/local"
	}
	if c.Server.Local.RocksDB.BlockCacheSize == 0 {
		c.Server.Local.RocksDB.BlockCacheSize = 64 << 20
	}
	if c.Server.Local.RocksDB.WriteBufferSize == 0 {
		c.Server.Local.RocksDB.WriteBufferSize = 16 << 20
	}
	if c.Server.Local.RocksDB.MaxOpenFiles == 0 {
		c.Server.Local.RocksDB.MaxOpenFiles = 1000
	}

	// Remote defaults
	if c.Server.Remote.Backend == "" {
		c.Server.Remote.Backend = RemoteBackendNone
	}
	if c.Server.Remote.CallTimeout == 0 {
		c.Server.Remote.CallTimeout = 10 * time.Second
	}
	if len(c.Server.Remote.Etcd.Endpoints) == 0 {
		c.Server.Remote.Etcd.Endpoints = []string{"127.0.0.1:2379"}
	}
	if c.Server.Remote.Etcd.DialTimeout == 0 {
		c.Server.Remote.Etcd.DialTimeout = 5 * time.Second
	}
	if c.Server.Remote.Etcd.Prefix == "" {
		c.Server.Remote.Etcd.Prefix = "/cloudsync/"
	}
	if c.Server.Remote.MySQL.Table == "" {
		c.Server.Remote.MySQL.Table = "cloud_storage"
	}

	// Reliability defaults
	if c.Server.Reliability.ShutdownTimeout == 0 {
		c.Server.Reliability.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.Reliability.DrainTimeout == 0 {
		c.Server.Reliability.DrainTimeout = 5 * time.Second
	}
	if c.Server.Reliability.MaxInFlightRequests == 0 {
		c.Server.Reliability.MaxInFlightRequests = 1000
	}
	if c.Server.Reliability.MaxKeyBytes == 0 {
		c.Server.Reliability.MaxKeyBytes = 1536
	}
	if c.Server.Reliability.MaxValueBytes == 0 {
		c.Server.Reliability.MaxValueBytes = 1 << 20
	}

	// Log defaults
	if c.Server.Log.Level == "" {
		c.Server.Log.Level = "info"
	}
	if c.Server.Log.Encoding == "" {
		c.Server.Log.Encoding = "json"
	}
	if len(c.Server.Log.OutputPaths) == 0 {
		c.Server.Log.OutputPaths = []string{"stdout"}
	}
	if len(c.Server.Log.ErrorOutputPaths) == 0 {
		c.Server.Log.ErrorOutputPaths = []string{"stderr"}
	}

	// Monitoring defaults
	if c.Server.Monitoring.PrometheusPort == 0 {
		c.Server.Monitoring.PrometheusPort = 9090
	}
	if c.Server.Monitoring.HealthAddress == "" {
		c.Server.Monitoring.HealthAddress = ":8081"
	}
}

// OverrideFromEnv overrides configuration from CLOUDSYNC_* environment variables
func (c *Config) OverrideFromEnv() {
	if addr := os.Getenv("CLOUDSYNC_LISTEN_ADDRESS"); addr != "" {
		c.Server.ListenAddress = addr
	}
	if keys := os.Getenv("CLOUDSYNC_TRACKED_KEYS"); keys != "" {
		c.Server.Sync.TrackedKeys = splitList(keys)
	}
	if engine := os.Getenv("CLOUDSYNC_LOCAL_ENGINE"); engine != "" {
		c.Server.Local.Engine = engine
	}
	if path := os.Getenv("CLOUDSYNC_ROCKSDB_PATH"); path != "" {
		c.Server.Local.RocksDB.Path = path
	}
	if backend := os.Getenv("CLOUDSYNC_REMOTE_BACKEND"); backend != "" {
		c.Server.Remote.Backend = backend
	}
	if timeout := os.Getenv("CLOUDSYNC_REMOTE_CALL_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.Server.Remote.CallTimeout = d
		}
	}
	if endpoints := os.Getenv("CLOUDSYNC_ETCD_ENDPOINTS"); endpoints != "" {
		c.Server.Remote.Etcd.Endpoints = splitList(endpoints)
	}
	if baseURL := os.Getenv("CLOUDSYNC_HTTP_BASE_URL"); baseURL != "" {
		c.Server.Remote.HTTP.BaseURL = baseURL
	}
	if dsn := os.Getenv("CLOUDSYNC_MYSQL_DSN"); dsn != "" {
		c.Server.Remote.MySQL.DSN = dsn
	}
	if qps := os.Getenv("CLOUDSYNC_PUSH_QPS"); qps != "" {
		if v, err := strconv.ParseFloat(qps, 64); err == nil {
			c.Server.Sync.PushQPS = v
			if v > 0 && c.Server.Sync.PushBurst == 0 {
				c.Server.Sync.PushBurst = 1
			}
		}
	}

	// Log configuration
	if logLevel := os.Getenv("CLOUDSYNC_LOG_LEVEL"); logLevel != "" {
		c.Server.Log.Level = logLevel
	}
	if logEncoding := os.Getenv("CLOUDSYNC_LOG_ENCODING"); logEncoding != "" {
		c.Server.Log.Encoding = logEncoding
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.ListenAddress == "" {
		return fmt.Errorf("listen_address is required")
	}

	seen := make(map[string]bool, len(c.Server.Sync.TrackedKeys))
	for _, key := range c.Server.Sync.TrackedKeys {
		if key == "" {
			return fmt.Errorf("sync.tracked_keys must not contain empty keys")
		}
		if seen[key] {
			return fmt.Errorf("sync.tracked_keys contains duplicate key %q", key)
		}
		seen[key] = true
	}
	if c.Server.Sync.PushQPS < 0 {
		return fmt.Errorf("sync.push_qps must be >= 0")
	}
	if c.Server.Sync.PushBurst < 0 {
		return fmt.Errorf("sync.push_burst must be >= 0")
	}

	switch c.Server.Local.Engine {
	case LocalEngineMemory:
	case LocalEngineRocksDB:
		if c.Server.Local.RocksDB.Path == "" {
			return fmt.Errorf("local.rocksdb.path is required for rocksdb engine")
		}
	default:
		return fmt.Errorf("local.engine must be one of: memory, rocksdb")
	}

	if c.Server.Remote.CallTimeout <= 0 {
		return fmt.Errorf("remote.call_timeout must be > 0")
	}
	switch c.Server.Remote.Backend {
	case RemoteBackendNone, RemoteBackendMemory:
	case RemoteBackendEtcd:
		if len(c.Server.Remote.Etcd.Endpoints) == 0 {
			return fmt.Errorf("remote.etcd.endpoints is required for etcd backend")
		}
	case RemoteBackendHTTP:
		if c.Server.Remote.HTTP.BaseURL == "" {
			return fmt.Errorf("remote.http.base_url is required for http backend")
		}
	case RemoteBackendMySQL:
		if c.Server.Remote.MySQL.DSN == "" {
			return fmt.Errorf("remote.mysql.dsn is required for mysql backend")
		}
	default:
		return fmt.Errorf("remote.backend must be one of: none, memory, etcd, http, mysql")
	}

	if c.Server.Reliability.ShutdownTimeout <= 0 {
		return fmt.Errorf("reliability.shutdown_timeout must be > 0")
	}
	if c.Server.Reliability.DrainTimeout <= 0 {
		return fmt.Errorf("reliability.drain_timeout must be > 0")
	}
	if c.Server.Reliability.MaxInFlightRequests < 0 {
		return fmt.Errorf("reliability.max_inflight_requests must be >= 0")
	}
	if c.Server.Reliability.MaxKeyBytes < 0 || c.Server.Reliability.MaxValueBytes < 0 {
		return fmt.Errorf("reliability.max_key_bytes and max_value_bytes must be >= 0")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true,
		"error": true, "dpanic": true, "panic": true, "fatal": true,
	}
	if !validLogLevels[c.Server.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error, dpanic, panic, fatal")
	}
	if c.Server.Log.Encoding != "json" && c.Server.Log.Encoding != "console" {
		return fmt.Errorf("log.encoding must be either 'json' or 'console'")
	}

	if c.Server.Monitoring.PrometheusPort <= 0 || c.Server.Monitoring.PrometheusPort > 65535 {
		return fmt.Errorf("monitoring.prometheus_port must be between 1 and 65535")
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
