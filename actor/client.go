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

package actor

import (
	"context"

	"github.com/google/uuid"

	"github.com/rivet-gg/modules/log"
)

type requestIDKey struct{}

// RequestID returns the request id carried by the context, or the empty
// string. Every call made through a Client carries one.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID stamps a fresh request id unless the context already
// carries one, so ids propagate through actor-to-actor call chains.
func withRequestID(ctx context.Context) context.Context {
	if RequestID(ctx) != "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, uuid.NewString())
}

// Client is the caller-facing handle on a driver, scoped to one module. It
// stamps request ids onto outgoing calls and hands out Refs bound to
// individual instances.
type Client struct {
	driver Driver
	module string
	log    log.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(logger log.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

// NewClient creates a client for the given module on top of a driver.
func NewClient(driver Driver, module string, opts ...ClientOption) *Client {
	client := &Client{
		driver: driver,
		module: module,
		log:    log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Module returns the module the client is scoped to.
func (c *Client) Module() string {
	return c.module
}

// Actor returns a reference to the named instance of a kind. The reference
// is cheap and stateless; callers create them per use.
func (c *Client) Actor(kind, instance string) *Ref {
	return &Ref{
		client: c,
		id:     NewIdentity(c.module, kind, instance),
	}
}

// Ref is a reference to one actor instance. All operations route through
// the client's driver with a request id attached.
type Ref struct {
	client *Client
	id     Identity
}

// Identity returns the identity the reference points at.
func (r *Ref) Identity() Identity {
	return r.id
}

// Create activates the instance.
func (r *Ref) Create(ctx context.Context, input any) error {
	ctx = withRequestID(ctx)
	r.client.log.Debugf("create actor=%s request_id=%s", r.id.String(), RequestID(ctx))
	return r.client.driver.Create(ctx, r.id, input)
}

// Call invokes a method on the instance.
func (r *Ref) Call(ctx context.Context, method string, request any) (any, error) {
	ctx = withRequestID(ctx)
	r.client.log.Debugf("call actor=%s method=%s request_id=%s", r.id.String(), method, RequestID(ctx))
	return r.client.driver.Call(ctx, r.id, method, request)
}

// GetOrCreateAndCall creates the instance when missing, then invokes the
// method.
func (r *Ref) GetOrCreateAndCall(ctx context.Context, input any, method string, request any) (any, error) {
	ctx = withRequestID(ctx)
	r.client.log.Debugf("get-or-create-and-call actor=%s method=%s request_id=%s", r.id.String(), method, RequestID(ctx))
	return r.client.driver.GetOrCreateAndCall(ctx, r.id, input, method, request)
}

// Exists reports whether the instance is live.
func (r *Ref) Exists(ctx context.Context) (bool, error) {
	return r.client.driver.Exists(withRequestID(ctx), r.id)
}

// Destroy removes the instance.
func (r *Ref) Destroy(ctx context.Context) error {
	ctx = withRequestID(ctx)
	r.client.log.Debugf("destroy actor=%s request_id=%s", r.id.String(), RequestID(ctx))
	return r.client.driver.Destroy(ctx, r.id)
}

// WaitTasks blocks until the instance's tracked background tasks settle.
func (r *Ref) WaitTasks(ctx context.Context) error {
	return r.client.driver.WaitTasks(ctx, r.id)
}
