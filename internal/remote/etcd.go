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
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc/connectivity"
)

// EtcdConfig configures an EtcdFacility.
type EtcdConfig struct {
	Endpoints   []string
	DialTimeout time.Duration
	Username    string
	Password    string
	// Prefix namespaces record keys, e.g. "/cloudsync/"
	Prefix string
	// OpTimeout bounds each etcd request issued by the facility
	OpTimeout time.Duration
}

// EtcdFacility stores records in etcd (or any etcd v3 compatible server,
// such as a MetaStore node).
type EtcdFacility struct {
	client     *clientv3.Client
	prefix     string
	opTimeout  time.Duration
	ownsClient bool
}

// NewEtcdFacility dials the cluster. The dial does not block on connectivity.
func NewEtcdFacility(cfg EtcdConfig) (*EtcdFacility, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}

	f := NewEtcdFacilityFromClient(client, cfg.Prefix, cfg.OpTimeout)
	f.ownsClient = true
	return f, nil
}

// NewEtcdFacilityFromClient wraps an existing client. Close leaves it open.
func NewEtcdFacilityFromClient(client *clientv3.Client, prefix string, opTimeout time.Duration) *EtcdFacility {
	if opTimeout <= 0 {
		opTimeout = DefaultCallTimeout
	}
	return &EtcdFacility{
		client:    client,
		prefix:    prefix,
		opTimeout: opTimeout,
	}
}

// GetItem implements Facility.
func (e *EtcdFacility) GetItem(key string, callback GetCallback) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.opTimeout)
		defer cancel()

		resp, err := e.client.Get(ctx, e.prefix+key)
		if err != nil {
			callback("", false, err)
			return
		}
		if len(resp.Kvs) == 0 {
			callback("", false, nil)
			return
		}
		callback(string(resp.Kvs[0].Value), true, nil)
	}()
}

// SetItem implements Facility.
func (e *EtcdFacility) SetItem(key, value string, callback SetCallback) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.opTimeout)
		defer cancel()

		_, err := e.client.Put(ctx, e.prefix+key, value)
		callback(err)
	}()
}

// Available implements Prober using the gRPC connection state, which is
// read without any network round trip.
func (e *EtcdFacility) Available() bool {
	conn := e.client.ActiveConnection()
	if conn == nil {
		return false
	}

	switch conn.GetState() {
	case connectivity.Shutdown, connectivity.TransientFailure:
		return false
	default:
		return true
	}
}

// Close closes the client if the facility created it.
func (e *EtcdFacility) Close() error {
	if !e.ownsClient {
		return nil
	}
	return e.client.Close()
}
