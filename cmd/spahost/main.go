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

// spahost serves API routes and a single-page application's static assets,
// falling back to the application's index document for all unknown paths.
//
// Exit codes: 0 after a graceful shutdown, 2 for configuration errors, 1 for
// all other failures.
package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/thediveo/spahost"
	"github.com/thediveo/spahost/config"
	"github.com/thediveo/spahost/host"
	"github.com/thediveo/spahost/server"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run serves until the context gets cancelled, logging to stderr, and
// returns the process exit code. A nil environ means the process environment.
func run(ctx context.Context, stderr io.Writer, environ map[string]string) int {
	cfg, err := config.Load(environ)
	if err != nil {
		slog.New(slog.NewTextHandler(stderr, nil)).Error("invalid configuration",
			slog.String("error", err.Error()))
		return exitConfigError
	}
	log := cfg.NewLogger(stderr)

	srv, err := server.New(ctx, cfg, host.NewHTTPRuntime(log), log)
	if err != nil {
		log.Error("cannot start", slog.String("error", err.Error()))
		var cfgerr *spahost.ConfigurationError
		if errors.As(err, &cfgerr) {
			return exitConfigError
		}
		return exitFailure
	}
	log.Info("listening", slog.String("address", srv.Handle().Addr().String()))
	if err := srv.Serve(ctx); err != nil {
		log.Error("serving failed", slog.String("error", err.Error()))
		return exitFailure
	}
	log.Info("shut down gracefully")
	return exitOK
}
