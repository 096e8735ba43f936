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

package host

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"time"

	"github.com/thediveo/spahost/routes"
)

// DefaultShutdownTimeout bounds graceful shutdowns when Options don't specify
// a timeout.
const DefaultShutdownTimeout = 5 * time.Second

// HTTPRuntime is a Runtime on top of net/http.
type HTTPRuntime struct {
	log *slog.Logger
}

var _ Runtime = (*HTTPRuntime)(nil)

// NewHTTPRuntime returns a new net/http based runtime logging to log.
func NewHTTPRuntime(log *slog.Logger) *HTTPRuntime {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPRuntime{log: log}
}

// listeners is the Handle of an HTTPRuntime.
type listeners struct {
	main            net.Listener
	admin           net.Listener
	shutdownTimeout time.Duration
}

func (l *listeners) Addr() net.Addr { return l.main.Addr() }

func (l *listeners) AdminAddr() net.Addr {
	if l.admin == nil {
		return nil
	}
	return l.admin.Addr()
}

func (l *listeners) Close() error {
	err := l.main.Close()
	if l.admin != nil {
		err = errors.Join(err, l.admin.Close())
	}
	return err
}

// Init binds the main and optional admin listeners and loads the optional
// TLS key pair.
func (rt *HTTPRuntime) Init(ctx context.Context, opts Options) (*Instance, error) {
	var lc net.ListenConfig
	mainln, err := lc.Listen(ctx, "tcp", opts.Address)
	if err != nil {
		return nil, &BindError{Address: opts.Address, Err: err}
	}
	l := &listeners{main: mainln, shutdownTimeout: opts.ShutdownTimeout}
	if l.shutdownTimeout <= 0 {
		l.shutdownTimeout = DefaultShutdownTimeout
	}
	if opts.AdminAddress != "" {
		l.admin, err = lc.Listen(ctx, "tcp", opts.AdminAddress)
		if err != nil {
			_ = mainln.Close()
			return nil, &BindError{Address: opts.AdminAddress, Err: err}
		}
	}
	var tlsConfig *tls.Config
	if opts.TLSCertFile != "" || opts.TLSKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.TLSCertFile, opts.TLSKeyFile)
		if err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("loading TLS key pair: %w", err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}
	started := time.Now()
	return &Instance{
		Handle: l,
		Routes: frameworkRoutes(started, tlsConfig != nil),
		Admin:  adminRoutes(started, l),
		TLS:    tlsConfig,
	}, nil
}

// Serve serves until the context gets cancelled or a listener fails.
func (rt *HTTPRuntime) Serve(ctx context.Context, svc Service, admin []*routes.Table, tlsConfig *tls.Config) error {
	l, ok := svc.Handle.(*listeners)
	if !ok {
		return fmt.Errorf("host: handle %T not issued by HTTPRuntime", svc.Handle)
	}
	type endpoint struct {
		srv *http.Server
		ln  net.Listener
	}
	endpoints := []endpoint{{srv: rt.newServer(svc.Handler, tlsConfig), ln: l.main}}
	if l.admin != nil {
		endpoints = append(endpoints, endpoint{
			srv: rt.newServer(AdminRouter(rt.log, admin...), tlsConfig),
			ln:  l.admin,
		})
		rt.log.Info("serving admin API", slog.String("address", l.admin.Addr().String()))
	} else if len(admin) > 0 {
		rt.log.Debug("no admin address configured, admin API disabled")
	}

	errch := make(chan error, len(endpoints))
	for _, ep := range endpoints {
		go func(ep endpoint) {
			if tlsConfig != nil {
				errch <- ep.srv.ServeTLS(ep.ln, "", "")
				return
			}
			errch <- ep.srv.Serve(ep.ln)
		}(ep)
	}
	rt.log.Info("serving",
		slog.String("address", l.main.Addr().String()),
		slog.Bool("tls", tlsConfig != nil))

	var serveErr error
	select {
	case <-ctx.Done():
		rt.log.Info("shutting down")
	case err := <-errch:
		serveErr = fmt.Errorf("serving: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer cancel()
	for _, ep := range endpoints {
		if err := ep.srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
			serveErr = fmt.Errorf("shutting down: %w", err)
		}
	}
	return serveErr
}

func (rt *HTTPRuntime) newServer(handler http.Handler, tlsConfig *tls.Config) *http.Server {
	return &http.Server{
		Handler:           handler,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		ErrorLog:          slog.NewLogLogger(rt.log.Handler(), slog.LevelWarn),
	}
}

// frameworkRoutes returns the routes the runtime provides out of the box;
// custom routes merged before them take precedence.
func frameworkRoutes(started time.Time, withTLS bool) *routes.Table {
	return routes.NewTable("runtime").
		Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]string{"status": "ok"})
		}).
		Get("/api/runtime", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"uptime": time.Since(started).Round(time.Second).String(),
				"tls":    withTLS,
				"go":     runtime.Version(),
			})
		})
}

func adminRoutes(started time.Time, l *listeners) *routes.Table {
	return routes.NewTable("admin").
		Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{
				"status":  "ok",
				"uptime":  time.Since(started).Round(time.Second).String(),
				"address": l.Addr().String(),
			})
		})
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(data)
}
