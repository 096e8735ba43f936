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

package spahost

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"regexp"
	"strings"
	"time"
)

// ForwardedPrefixHeader, if present, specifies the prefix that need to be
// preprended to the request's URI path in order to learn the original path
// when hitting the path rewriting proxy.
const ForwardedPrefixHeader = "X-Forwarded-Prefix"

// ForwardedUriHeader, if present, specifies the original URI (or sometimes only
// the original URI path) of a request when hitting the first path rewriting
// proxy.
const ForwardedUriHeader = "X-Forwarded-Uri"

// baseRe matches the base element in the fallback document in order to allow
// us to dynamically rewrite the base the SPA is served from. Go's templating
// doesn't fit here, as the fallback document must stay usable as-is during
// SPA development.
//
// Please note: "*?" instead of "*" ensures that the expression doesn't get too
// greedy, gobbling much more than it should until the last(!) empty element.
var baseRe = regexp.MustCompile(`(<base href=").*?("\s*/>)`)

// SPAHandler implements an http.Handler that serves the static files found by
// its Resolver, and the fallback document on all other request paths. The
// fallback document contents served are automatically adjusted to the
// correct request base path, based on forwarding proxy headers.
type SPAHandler struct {
	resolver      *Resolver
	indexRewriter  IndexRewriter // optional user function to rewrite the fallback document.
	resolveTimeout time.Duration // optional bound on resolving request paths.
	log            *slog.Logger
}

// NewSPAHandler returns a new HTTP handler serving static files as well as
// the fallback document as determined by the specified resolver.
func NewSPAHandler(resolver *Resolver, opts ...SPAHandlerOption) *SPAHandler {
	h := &SPAHandler{
		resolver: resolver,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SPAHandlerOption sets optional properties at the time of creating an
// SPAHandler.
type SPAHandlerOption func(*SPAHandler)

// IndexRewriter rewrites (parts) of the fallback document contents to be
// delivered to a requesting client, after the base element has been updated.
// It can be optionally activated using the WithIndexRewriter option when
// creating a new SPAHandler.
type IndexRewriter func(r *http.Request, index string) string

// WithIndexRewriter sets the specified IndexRewriter that gets called before
// delivering the fallback document contents to requesting clients, allowing
// for application-specific changes.
func WithIndexRewriter(rewriter IndexRewriter) SPAHandlerOption {
	return func(h *SPAHandler) {
		h.indexRewriter = rewriter
	}
}

// WithResolveTimeout bounds the time spent resolving a request path to a
// static file or the fallback document; resolutions taking longer fail with
// a 503 status. Serving the resolved asset itself remains unbounded, so large
// assets get streamed to clients. Non-positive timeouts are ignored.
func WithResolveTimeout(timeout time.Duration) SPAHandlerOption {
	return func(h *SPAHandler) {
		if timeout > 0 {
			h.resolveTimeout = timeout
		}
	}
}

// WithLogger sets the logger for reporting denied and failed requests.
func WithLogger(log *slog.Logger) SPAHandlerOption {
	return func(h *SPAHandler) {
		if log != nil {
			h.log = log
		}
	}
}

// Handler claims all GET and HEAD requests, as every such request resolves to
// either a static file or the fallback document.
func (h *SPAHandler) Handler(r *http.Request) (http.Handler, bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return nil, false
	}
	return h, true
}

// ServeHTTP either serves a static file when available inside the static root
// or otherwise the fallback document. This behavior is required for SPAs with
// client-side DOM routers, as otherwise bookmarking (router) links or
// reloading an SPA with the current route other than "/" would fail.
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.resolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.resolveTimeout)
		defer cancel()
	}
	asset, err := h.resolver.Resolve(ctx, r.URL.Path)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// As the request path resolved, it doesn't escape the root and cleaning
	// it against "/" is thus safe.
	reqPath := path.Clean("/" + r.URL.Path)
	if asset.Kind == AssetFallback || asset.Path == h.resolver.Fallback() {
		h.serveRewrittenIndex(w, r, reqPath)
		return
	}
	h.serveFile(w, r, asset.Path)
}

// serveFile serves the static file at the specified absolute path, inferring
// its content type from the file name extension or otherwise its contents.
func (h *SPAHandler) serveFile(w http.ResponseWriter, r *http.Request, name string) {
	f, err := os.Open(name)
	if err != nil {
		h.fail(w, r, &IOError{Path: r.URL.Path, Err: err})
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		h.fail(w, r, &IOError{Path: r.URL.Path, Err: err})
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// serveRewrittenIndex serves the fallback document, rewriting its HTML base
// element if found to refer the correct base path of the SPA.
func (h *SPAHandler) serveRewrittenIndex(w http.ResponseWriter, r *http.Request, reqPath string) {
	// Sanitize the base path so it cannot interfere with our regexp replacement
	// operations where we need to use "$1" and "$2" back references.
	base := strings.ReplaceAll(basename(r, reqPath), "$", "")
	f, err := os.Open(h.resolver.Fallback())
	if err != nil {
		h.fail(w, r, &IOError{Path: r.URL.Path, Err: err})
		return
	}
	defer func() { _ = f.Close() }()
	fileInfo, err := f.Stat()
	if err != nil {
		h.fail(w, r, &IOError{Path: r.URL.Path, Err: err})
		return
	}
	indexhtmlcontents, err := io.ReadAll(f)
	if err != nil {
		h.fail(w, r, &IOError{Path: r.URL.Path, Err: err})
		return
	}
	finalIndexhtml := baseRe.ReplaceAllString(string(indexhtmlcontents), "${1}"+base+"${2}")
	if h.indexRewriter != nil {
		finalIndexhtml = h.indexRewriter(r, finalIndexhtml)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeContent(w, r, "index.html", fileInfo.ModTime(), strings.NewReader(finalIndexhtml))
}

// fail logs the error with a severity matching its cause and then sends a
// normalized error response.
func (h *SPAHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrPathTraversal):
		h.log.Warn("path traversal denied",
			slog.String("path", r.URL.Path), slog.String("remote", r.RemoteAddr))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.log.Debug("static asset resolution abandoned",
			slog.String("path", r.URL.Path), slog.Any("err", err))
	default:
		h.log.Error("cannot serve static asset",
			slog.String("path", r.URL.Path), slog.Any("err", err))
	}
	NormalizedHttpError(w, err)
}

// originalReqPath returns the (hopefully) original path when hitting the first
// proxy in a chain, based on what has been passed down to us. If no suitable
// forwarding information is present, the original -- and already sanitized --
// request path.
func originalReqPath(r *http.Request, reqPath string) string {
	// Was the request path rewritten? Then the original request path was the
	// forwarded prefix, followed by the remaining part we now see in the
	// request.
	if fwprefix := r.Header.Get(ForwardedPrefixHeader); fwprefix != "" {
		fwprefix = path.Clean("/" + fwprefix)
		return path.Join(fwprefix, reqPath)
	}
	// Some proxies pass only the request path instead of the full original
	// URI.
	if fwurl := r.Header.Get(ForwardedUriHeader); fwurl != "" {
		if strings.HasPrefix(fwurl, "/") {
			return path.Clean(fwurl)
		}
		if u, err := url.Parse(fwurl); err == nil {
			return path.Clean("/" + u.Path)
		}
	}
	return reqPath
}

// basename returns the URI request path base based on the given request, by
// consulting proxy headers when available. Rewriting forwarding proxies need to
// preserve the original client-side request URI path for this to work; if
// deriving the base name is impossible, the base is taken to be "/" from the
// clients' perspective.
func basename(r *http.Request, reqPath string) string {
	originalPath := originalReqPath(r, reqPath)
	var base string
	if strings.HasSuffix(reqPath, "/") && !strings.HasSuffix(originalPath, "/") {
		// take care of the situation where the reverse proxy redirects from
		// /foo to /foo/ and then rewrites the path to /.
		originalPath += "/"
	}
	// If the request path we see is a proper suffix of the original request
	// path, take only the common base part (~prefix).
	if strings.HasSuffix(originalPath, reqPath) {
		base = originalPath[:len(originalPath)-len(reqPath)]
	}
	// The base path must always end with a "/", as otherwise browsers clip
	// off the final element that once was a proper directory name.
	if strings.HasSuffix(base, "/") {
		return base
	}
	return base + "/"
}
