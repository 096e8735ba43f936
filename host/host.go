// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package host defines the server runtime hosting the composed request handling:
binding listeners, providing framework and admin route tables, handling TLS,
and serving until told to stop.

The composition layer only talks to a runtime through the two entry points of
the Runtime interface and never inspects the runtime's internal state.
HTTPRuntime is the default Runtime on top of net/http, serving admin routes
through a chi router on a separate listener.
*/
package host

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/thediveo/spahost/routes"
)

// Runtime is the external server runtime.
type Runtime interface {
	// Init prepares serving, binding all listeners so that startup failures
	// surface before serving starts. It returns the runtime's preconfigured
	// route tables together with a handle for Serve.
	Init(ctx context.Context, opts Options) (*Instance, error)
	// Serve serves the service's handler, and the admin route tables on the
	// admin listener if any, until the context gets cancelled. It then shuts
	// down gracefully and returns nil.
	Serve(ctx context.Context, svc Service, admin []*routes.Table, tlsConfig *tls.Config) error
}

// Options for initialising a Runtime.
type Options struct {
	Address         string // main listener address.
	AdminAddress    string // optional admin listener address.
	TLSCertFile     string // optional PEM certificate (chain) file.
	TLSKeyFile      string // optional PEM private key file.
	ShutdownTimeout time.Duration
}

// Instance is an initialised runtime, ready for serving.
type Instance struct {
	Handle Handle
	Routes *routes.Table // framework routes, to be merged after custom routes.
	Admin  *routes.Table // admin routes, served on the admin listener.
	TLS    *tls.Config   // nil unless a key pair has been configured.
}

// Handle is the opaque result of initialising a runtime, to be passed back
// into Serve.
type Handle interface {
	// Addr returns the address of the main listener.
	Addr() net.Addr
	// AdminAddr returns the address of the admin listener, or nil.
	AdminAddr() net.Addr
	// Close releases the listeners without serving.
	Close() error
}

// Service is what to serve on the main listener.
type Service struct {
	Handle  Handle
	Handler http.Handler
}

// BindError reports a listener that could not be bound, such as when the
// address is already in use or privileges are lacking.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return "cannot listen on " + e.Address + ": " + e.Err.Error()
}

func (e *BindError) Unwrap() error { return e.Err }
