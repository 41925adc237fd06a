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

// Package fleet talks to the game server provisioning platform. The lobby
// orchestrator consumes only the API interface; tests inject a fake.
package fleet

import (
	"context"
	"time"
)

// Server is a provisioned game server as reported by the platform.
type Server struct {
	ID          string            `json:"id"`
	Datacenter  string            `json:"datacenter"`
	Tags        map[string]string `json:"tags"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	DestroyedAt *time.Time        `json:"destroyedAt,omitempty"`
	Network     Network           `json:"network"`
}

// Started reports whether the server process has come up.
func (s *Server) Started() bool {
	return s.StartedAt != nil
}

// Destroyed reports whether the platform has torn the server down.
func (s *Server) Destroyed() bool {
	return s.DestroyedAt != nil
}

// Network describes the server's port assignments.
type Network struct {
	Ports map[string]Port `json:"ports"`
}

// Port is one assigned port. The public hostname and port are set once the
// platform has routed the server.
type Port struct {
	Protocol       string  `json:"protocol"`
	InternalPort   int     `json:"internalPort"`
	PublicHostname *string `json:"publicHostname,omitempty"`
	PublicPort     *int    `json:"publicPort,omitempty"`
}

// Build is a deployable game server image.
type Build struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Tags      map[string]string `json:"tags"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Datacenter is a region the platform can provision into.
type Datacenter struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// CreateServerRequest asks the platform for a new server.
type CreateServerRequest struct {
	Datacenter  string                 `json:"datacenter"`
	Tags        map[string]string      `json:"tags"`
	BuildID     string                 `json:"buildId"`
	Arguments   []string               `json:"arguments,omitempty"`
	Environment map[string]string      `json:"environment,omitempty"`
	NetworkMode string                 `json:"networkMode,omitempty"`
	Ports       map[string]PortRequest `json:"ports"`
	Resources   Resources              `json:"resources"`
}

// PortRequest declares one port the server listens on.
type PortRequest struct {
	Protocol     string `json:"protocol"`
	InternalPort int    `json:"internalPort"`
}

// Resources is the cpu/memory reservation of a server, in millicores and
// megabytes.
type Resources struct {
	CPU    int `json:"cpu"`
	Memory int `json:"memory"`
}

// API is the provisioning surface the orchestrator depends on.
type API interface {
	// ListServers returns the servers whose tags contain all the given
	// tags.
	ListServers(ctx context.Context, tags map[string]string) ([]*Server, error)
	// ListBuilds returns the builds whose tags contain all the given tags,
	// newest first.
	ListBuilds(ctx context.Context, tags map[string]string) ([]*Build, error)
	// ListDatacenters returns the datacenters available to the project.
	ListDatacenters(ctx context.Context) ([]*Datacenter, error)
	// CreateServer provisions a new server.
	CreateServer(ctx context.Context, request *CreateServerRequest) (*Server, error)
	// DestroyServer tears a server down. Destroying an unknown server
	// returns a CodeServerNotFound error.
	DestroyServer(ctx context.Context, id string) error
}
