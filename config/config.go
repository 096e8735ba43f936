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
Package config builds the immutable server configuration once at startup from
defaults, an optional YAML configuration file, and finally the environment.
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// FileEnvVar names the environment variable pointing to an optional YAML
// configuration file. Environment variables override settings from this file.
const FileEnvVar = "CONFIG_FILE"

// Defaults.
const (
	DefaultPublicDir       = "ui/dist"
	DefaultIndexFile       = "index.html"
	DefaultBindAddress     = "0.0.0.0:4000"
	DefaultRequestTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
)

// Config is the server configuration. It is built once by Load and must be
// treated as read-only afterwards.
type Config struct {
	PublicDir       string        `env:"PUBLIC_DIR" yaml:"public_dir"`
	IndexFile       string        `env:"INDEX_FILE" yaml:"index_file"`
	BindAddress     string        `env:"BIND_ADDRESS" yaml:"bind_address"`
	AdminAddress    string        `env:"ADMIN_ADDRESS" yaml:"admin_address"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`
	TLSCertFile     string        `env:"TLS_CERT_FILE" yaml:"tls_cert_file"`
	TLSKeyFile      string        `env:"TLS_KEY_FILE" yaml:"tls_key_file"`
	LogLevel        string        `env:"LOG_LEVEL" yaml:"log_level"`
	LogFormat       string        `env:"LOG_FORMAT" yaml:"log_format"`
}

// Error is a configuration error, which is always fatal at startup.
type Error struct {
	Setting string
	Err     error
}

func (e *Error) Error() string {
	return "configuration " + e.Setting + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Default returns the default configuration.
func Default() Config {
	return Config{
		PublicDir:       DefaultPublicDir,
		IndexFile:       DefaultIndexFile,
		BindAddress:     DefaultBindAddress,
		RequestTimeout:  DefaultRequestTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	environ := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			environ[k] = v
		}
	}
	return environ
}

// Load returns the validated configuration, starting from the defaults, then
// applying the YAML file named in CONFIG_FILE (if any), and finally the
// variables in the specified environment. A nil environ means the process
// environment. The public directory is made absolute relative to the current
// working directory.
func Load(environ map[string]string) (*Config, error) {
	if environ == nil {
		environ = Environ()
	}
	cfg := Default()
	if name := environ[FileEnvVar]; name != "" {
		if err := cfg.loadFile(name); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, &Error{Setting: "environment", Err: err}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(name string) error {
	contents, err := os.ReadFile(name)
	if err != nil {
		return &Error{Setting: FileEnvVar, Err: err}
	}
	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return &Error{Setting: FileEnvVar, Err: fmt.Errorf("parsing %s: %w", name, err)}
	}
	return nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.PublicDir) == "" {
		return &Error{Setting: "PUBLIC_DIR", Err: errors.New("must not be empty")}
	}
	dir, err := filepath.Abs(c.PublicDir)
	if err != nil {
		return &Error{Setting: "PUBLIC_DIR", Err: err}
	}
	c.PublicDir = dir
	index := path.Clean("/" + filepath.ToSlash(c.IndexFile))[1:]
	if index == "" {
		return &Error{Setting: "INDEX_FILE", Err: errors.New("must name a file")}
	}
	c.IndexFile = index
	if _, _, err := net.SplitHostPort(c.BindAddress); err != nil {
		return &Error{Setting: "BIND_ADDRESS", Err: err}
	}
	if c.AdminAddress != "" {
		if _, _, err := net.SplitHostPort(c.AdminAddress); err != nil {
			return &Error{Setting: "ADMIN_ADDRESS", Err: err}
		}
	}
	if c.RequestTimeout <= 0 {
		return &Error{Setting: "REQUEST_TIMEOUT", Err: fmt.Errorf("must be positive, got %s", c.RequestTimeout)}
	}
	if c.ShutdownTimeout <= 0 {
		return &Error{Setting: "SHUTDOWN_TIMEOUT", Err: fmt.Errorf("must be positive, got %s", c.ShutdownTimeout)}
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return &Error{Setting: "TLS_CERT_FILE/TLS_KEY_FILE", Err: errors.New("must be set together")}
	}
	if _, err := c.Level(); err != nil {
		return &Error{Setting: "LOG_LEVEL", Err: err}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return &Error{Setting: "LOG_FORMAT", Err: fmt.Errorf("unknown format %q", c.LogFormat)}
	}
	return nil
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl, err
}

// NewLogger returns a new logger writing to w in the configured format and
// at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	lvl, _ := c.Level()
	opts := &slog.HandlerOptions{Level: lvl}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
