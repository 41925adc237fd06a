/*
 * MIT License
 *
 * Copyright (c) 2023-2026  Rivet Gaming, Inc.
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/flowchartsman/retry"

	"github.com/rivet-gg/modules/errors"
	"github.com/rivet-gg/modules/log"
)

const (
	defaultTimeout    = 10 * time.Second
	retryAttempts     = 3
	retryInitialDelay = 200 * time.Millisecond
	retryMaxDelay     = 2 * time.Second
)

// Client implements API over the platform's JSON/HTTP contract. Transport
// failures and 5xx responses are retried with exponential backoff; 4xx
// responses are not.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        log.Logger
}

// ensure Client implements the API interface
var _ API = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the client logger.
func WithLogger(logger log.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

// NewClient creates a platform client. The token is sent as a bearer
// credential on every request.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ListServers implements API.
func (c *Client) ListServers(ctx context.Context, tags map[string]string) ([]*Server, error) {
	var response struct {
		Servers []*Server `json:"servers"`
	}
	if err := c.do(ctx, http.MethodGet, "/servers"+tagsQuery(tags), nil, &response); err != nil {
		return nil, err
	}
	return response.Servers, nil
}

// ListBuilds implements API.
func (c *Client) ListBuilds(ctx context.Context, tags map[string]string) ([]*Build, error) {
	var response struct {
		Builds []*Build `json:"builds"`
	}
	if err := c.do(ctx, http.MethodGet, "/builds"+tagsQuery(tags), nil, &response); err != nil {
		return nil, err
	}
	return response.Builds, nil
}

// ListDatacenters implements API.
func (c *Client) ListDatacenters(ctx context.Context) ([]*Datacenter, error) {
	var response struct {
		Datacenters []*Datacenter `json:"datacenters"`
	}
	if err := c.do(ctx, http.MethodGet, "/datacenters", nil, &response); err != nil {
		return nil, err
	}
	return response.Datacenters, nil
}

// CreateServer implements API.
func (c *Client) CreateServer(ctx context.Context, request *CreateServerRequest) (*Server, error) {
	var response struct {
		Server *Server `json:"server"`
	}
	if err := c.do(ctx, http.MethodPost, "/servers", request, &response); err != nil {
		return nil, err
	}
	return response.Server, nil
}

// DestroyServer implements API.
func (c *Client) DestroyServer(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/servers/"+url.PathEscape(id), nil, nil)
}

// do performs one API request with retries. The response body is decoded
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Internal(err)
		}
		payload = encoded
	}

	retrier := retry.NewRetrier(retryAttempts, retryInitialDelay, retryMaxDelay)
	return retrier.RunContext(ctx, func(ctx context.Context) error {
		started := time.Now()
		request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return retry.Stop(errors.Internal(err))
		}
		request.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			request.Header.Set("Content-Type", "application/json")
		}

		response, err := c.httpClient.Do(request)
		if err != nil {
			c.log.Warnf("fleet request failed method=%s path=%s err=%v", method, path, err)
			return errors.Internal(err)
		}
		defer func() {
			_ = response.Body.Close()
		}()
		c.log.Debugf("fleet request method=%s path=%s status=%d duration=%s",
			method, path, response.StatusCode, time.Since(started))

		switch {
		case response.StatusCode >= 200 && response.StatusCode < 300:
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(response.Body).Decode(out); err != nil {
				return retry.Stop(errors.Internal(err))
			}
			return nil
		case response.StatusCode >= 500:
			// server side trouble is worth another attempt
			return errors.Newf(errors.CodeInternal, "fleet responded %d on %s %s", response.StatusCode, method, path)
		case response.StatusCode == http.StatusNotFound:
			return retry.Stop(errors.Newf(errors.CodeServerNotFound, "fleet has no resource at %s", path))
		default:
			detail, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
			return retry.Stop(errors.Newf(errors.CodeInternal, "fleet refused %s %s: %d %s",
				method, path, response.StatusCode, string(detail)))
		}
	})
}

// tagsQuery renders a tag filter as a query string.
func tagsQuery(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	filter, err := json.Marshal(tags)
	if err != nil {
		return ""
	}
	values := url.Values{}
	values.Set("tagsJson", string(filter))
	return fmt.Sprintf("?%s", values.Encode())
}
