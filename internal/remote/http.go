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
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxValueSize caps values read from the HTTP remote. Larger bodies are
// rejected, never truncated.
const maxValueSize = 16 << 20

// HTTPFacility talks to a plain HTTP key-value API:
// PUT /{key} stores the request body, GET /{key} returns 200 with the value
// or 404 when absent. MetaStore nodes and cloudSync's own API both serve it.
type HTTPFacility struct {
	baseURL   string
	client    *http.Client
	opTimeout time.Duration
}

// NewHTTPFacility creates a facility for baseURL. A nil client uses a default one.
func NewHTTPFacility(baseURL string, client *http.Client, opTimeout time.Duration) (*HTTPFacility, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid http remote url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid http remote url %q: scheme must be http or https", baseURL)
	}
	if client == nil {
		client = &http.Client{}
	}
	if opTimeout <= 0 {
		opTimeout = DefaultCallTimeout
	}

	return &HTTPFacility{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		client:    client,
		opTimeout: opTimeout,
	}, nil
}

func (h *HTTPFacility) keyURL(key string) string {
	return h.baseURL + "/" + url.PathEscape(key)
}

// GetItem implements Facility.
func (h *HTTPFacility) GetItem(key string, callback GetCallback) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.opTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.keyURL(key), nil)
		if err != nil {
			callback("", false, err)
			return
		}

		resp, err := h.client.Do(req)
		if err != nil {
			callback("", false, err)
			return
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
			body, err := io.ReadAll(io.LimitReader(resp.Body, maxValueSize+1))
			if err != nil {
				callback("", false, err)
				return
			}
			if len(body) > maxValueSize {
				callback("", false, fmt.Errorf("value exceeds %d bytes", maxValueSize))
				return
			}
			callback(string(body), true, nil)
		case http.StatusNotFound:
			callback("", false, nil)
		default:
			callback("", false, fmt.Errorf("unexpected status %s", resp.Status))
		}
	}()
}

// SetItem implements Facility.
func (h *HTTPFacility) SetItem(key, value string, callback SetCallback) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.opTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPut, h.keyURL(key), strings.NewReader(value))
		if err != nil {
			callback(err)
			return
		}

		resp, err := h.client.Do(req)
		if err != nil {
			callback(err)
			return
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			callback(fmt.Errorf("unexpected status %s", resp.Status))
			return
		}
		callback(nil)
	}()
}
