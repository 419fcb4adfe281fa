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
	"net/http"

	"cloudSync/pkg/config"
)

// OpenFacility builds the facility selected by cfg. Backend "none" yields a
// nil facility, which a Store reports as permanently unavailable.
func OpenFacility(ctx context.Context, cfg config.RemoteConfig) (Facility, error) {
	switch cfg.Backend {
	case config.RemoteBackendNone, "":
		return nil, nil
	case config.RemoteBackendMemory:
		return NewMemoryFacility(), nil
	case config.RemoteBackendEtcd:
		f, err := NewEtcdFacility(EtcdConfig{
			Endpoints:   cfg.Etcd.Endpoints,
			DialTimeout: cfg.Etcd.DialTimeout,
			Username:    cfg.Etcd.Username,
			Password:    cfg.Etcd.Password,
			Prefix:      cfg.Etcd.Prefix,
			OpTimeout:   cfg.CallTimeout,
		})
		if err != nil {
			return nil, err
		}
		return f, nil
	case config.RemoteBackendHTTP:
		f, err := NewHTTPFacility(cfg.HTTP.BaseURL, &http.Client{}, cfg.CallTimeout)
		if err != nil {
			return nil, err
		}
		return f, nil
	case config.RemoteBackendMySQL:
		f, err := NewMySQLFacility(ctx, MySQLConfig{
			DSN:       cfg.MySQL.DSN,
			Table:     cfg.MySQL.Table,
			OpTimeout: cfg.CallTimeout,
		})
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Backend)
	}
}
