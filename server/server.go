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
Package server composes the merged route table and the static asset resolver
into the request handling served by a host.Runtime.

Requests first pass the middleware stack (request ids, access logging, and
panic recovery). The merged router then gets the first chance to claim a
request, followed by the SPA handler serving static assets and the fallback
document. Routed handlers run under the per-request timeout, answering 503
when it expires. The SPA handler only bounds resolving the request path, so
static assets get streamed instead of being buffered in full.
*/
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/thediveo/spahost"
	"github.com/thediveo/spahost/config"
	"github.com/thediveo/spahost/host"
	"github.com/thediveo/spahost/middleware"
	"github.com/thediveo/spahost/routes"
)

// Server is the composed static-site server. Its configuration, router, and
// resolver are read-only after New returns.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	rt      host.Runtime
	inst    *host.Instance
	router  *routes.Router
	handler http.Handler
}

// New validates the static root and fallback document, initialises the
// runtime, and merges the application's API routes, the specified extra
// route tables, and finally the runtime's framework routes, in this order.
// A missing static root or fallback document is reported as a
// *spahost.ConfigurationError without ever initialising the runtime.
func New(ctx context.Context, cfg *config.Config, rt host.Runtime, log *slog.Logger, extra ...*routes.Table) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	resolver, err := spahost.NewResolver(cfg.PublicDir, cfg.IndexFile)
	if err != nil {
		return nil, err
	}
	log.Info("serving static assets",
		slog.String("root", resolver.Root()),
		slog.String("fallback", resolver.Fallback()))

	inst, err := rt.Init(ctx, host.Options{
		Address:         cfg.BindAddress,
		AdminAddress:    cfg.AdminAddress,
		TLSCertFile:     cfg.TLSCertFile,
		TLSKeyFile:      cfg.TLSKeyFile,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	if err != nil {
		return nil, err
	}

	tables := append([]*routes.Table{APIRoutes()}, extra...)
	tables = append(tables, inst.Routes)
	router := routes.Merge(log, tables...)
	for _, line := range router.Describe() {
		log.Debug("route", slog.String("route", line))
	}

	chain := Chain{
		withTimeout(router, cfg.RequestTimeout),
		spahost.NewSPAHandler(resolver,
			spahost.WithLogger(log),
			spahost.WithResolveTimeout(cfg.RequestTimeout)),
	}
	return &Server{
		cfg:    cfg,
		log:    log,
		rt:     rt,
		inst:   inst,
		router: router,
		handler: middleware.Wrap(chain,
			middleware.RequestID,
			middleware.Logger(log),
			middleware.Recoverer(log)),
	}, nil
}

// Router returns the effective merged route table.
func (s *Server) Router() *routes.Router { return s.router }

// Handle returns the runtime handle, such as for learning the listener
// addresses.
func (s *Server) Handle() host.Handle { return s.inst.Handle }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Serve serves until the context gets cancelled, returning nil after a
// graceful shutdown.
func (s *Server) Serve(ctx context.Context) error {
	return s.rt.Serve(ctx,
		host.Service{Handle: s.inst.Handle, Handler: s.handler},
		[]*routes.Table{s.inst.Admin, adminRoutes(s.router)},
		s.inst.TLS)
}

// Close releases the runtime's listeners of a server that never served.
func (s *Server) Close() error { return s.inst.Handle.Close() }
