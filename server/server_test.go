// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy
// of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations
// under the License.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/thediveo/spahost"
	"github.com/thediveo/spahost/config"
	"github.com/thediveo/spahost/middleware"
	"github.com/thediveo/spahost/routes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	. "github.com/thediveo/success"
)

func testConfig() *config.Config {
	GinkgoHelper()
	cfg := config.Default()
	cfg.PublicDir = Successful(filepath.Abs("../test"))
	cfg.BindAddress = "127.0.0.1:0"
	return &cfg
}

func request(h http.Handler, method, target string) *httptest.ResponseRecorder {
	GinkgoHelper()
	r := httptest.NewRequest(method, "http://foo.bar:12345", nil)
	r.URL.Path = target // keep any traversal elements unharmed.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

var _ = Describe("static-site server", func() {

	var (
		rt     *fakeRuntime
		logbuf *gbytes.Buffer
		log    *slog.Logger
	)

	BeforeEach(func() {
		rt = &fakeRuntime{}
		logbuf = gbytes.NewBuffer()
		log = slog.New(slog.NewTextHandler(io.MultiWriter(logbuf, GinkgoWriter),
			&slog.HandlerOptions{Level: slog.LevelDebug}))
	})

	newServer := func(cfg *config.Config, extra ...*routes.Table) *Server {
		GinkgoHelper()
		return Successful(New(context.Background(), cfg, rt, log, extra...))
	}

	Context("startup", func() {

		It("initialises the runtime with the configured options", func() {
			cfg := testConfig()
			cfg.AdminAddress = "127.0.0.1:0"
			cfg.ShutdownTimeout = 42 * time.Second
			s := newServer(cfg)
			Expect(rt.initCount()).To(Equal(1))
			Expect(rt.opts.Address).To(Equal(cfg.BindAddress))
			Expect(rt.opts.AdminAddress).To(Equal(cfg.AdminAddress))
			Expect(rt.opts.ShutdownTimeout).To(Equal(42 * time.Second))
			Expect(s.Handle().Addr()).To(Equal(fakeAddr))
		})

		It("never initialises the runtime for a missing static root", func() {
			cfg := testConfig()
			cfg.PublicDir = filepath.Join(GinkgoT().TempDir(), "no-such-dir")
			_, err := New(context.Background(), cfg, rt, log)
			var cfgerr *spahost.ConfigurationError
			Expect(errors.As(err, &cfgerr)).To(BeTrue())
			Expect(rt.initCount()).To(BeZero())
		})

		It("never initialises the runtime for a missing fallback document", func() {
			cfg := testConfig()
			cfg.IndexFile = "nothere.html"
			_, err := New(context.Background(), cfg, rt, log)
			var cfgerr *spahost.ConfigurationError
			Expect(errors.As(err, &cfgerr)).To(BeTrue())
			Expect(rt.initCount()).To(BeZero())
		})

		It("passes on runtime initialisation failures", func() {
			rt.initErr = errFakeBind
			_, err := New(context.Background(), testConfig(), rt, log)
			Expect(err).To(MatchError(errFakeBind))
		})

		It("releases the runtime handle", func() {
			s := newServer(testConfig())
			Expect(s.Close()).To(Succeed())
			Expect(rt.closed).To(BeTrue())
		})

	})

	Context("API routes", func() {

		It("answers health checks independent of the static root", func() {
			root := GinkgoT().TempDir()
			Expect(os.WriteFile(filepath.Join(root, "index.html"), []byte("<html></html>"), 0o644)).To(Succeed())
			Expect(os.MkdirAll(filepath.Join(root, "api"), 0o755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(root, "api", "health"), []byte("DECOY"), 0o644)).To(Succeed())
			cfg := testConfig()
			cfg.PublicDir = root

			s := newServer(cfg)
			for _, method := range []string{http.MethodGet, http.MethodHead} {
				w := request(s, method, "/api/health")
				Expect(w.Code).To(Equal(http.StatusOK))
				Expect(w.Header().Get("Content-Type")).To(HavePrefix("text/plain"))
				if method == http.MethodGet {
					Expect(w.Body.String()).To(Equal(HealthBody))
				}
			}
		})

		It("says hello", func() {
			w := request(newServer(testConfig()), http.MethodGet, "/api/hello")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))
			var resp struct{ Message string }
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Message).To(Equal("Hello!"))
		})

		It("lets custom routes shadow framework routes", func() {
			s := newServer(testConfig())
			w := request(s, http.MethodGet, "/api/health")
			Expect(w.Body.String()).To(Equal(HealthBody))
			Eventually(logbuf).Should(gbytes.Say(`level=WARN msg="dropping shadowed route" route="GET /api/health" table=runtime shadowed-by=custom`))

			w = request(s, http.MethodGet, "/api/runtime")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("runtime info"))
		})

		It("merges extra route tables between custom and framework routes", func() {
			extra := routes.NewTable("extra").
				Get("/api/hello", func(w http.ResponseWriter, r *http.Request) {
					_, _ = io.WriteString(w, "extra hello")
				}).
				Get("/api/runtime", func(w http.ResponseWriter, r *http.Request) {
					_, _ = io.WriteString(w, "extra runtime")
				}).
				Get("/api/items/{id}", func(w http.ResponseWriter, r *http.Request) {
					_, _ = io.WriteString(w, "item "+r.PathValue("id"))
				})
			s := newServer(testConfig(), extra)
			Expect(s.Router().Describe()).To(Equal([]string{
				"GET /api/health (custom)",
				"GET /api/hello (custom)",
				"GET /api/runtime (extra)",
				"GET /api/items/{id} (extra)",
			}))
			Expect(request(s, http.MethodGet, "/api/hello").Body.String()).To(ContainSubstring("Hello!"))
			Expect(request(s, http.MethodGet, "/api/runtime").Body.String()).To(Equal("extra runtime"))
			Expect(request(s, http.MethodGet, "/api/items/42").Body.String()).To(Equal("item 42"))
		})

		It("rejects wrong methods on API routes", func() {
			w := request(newServer(testConfig()), http.MethodPost, "/api/hello")
			Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
			Expect(w.Header().Get("Allow")).To(Equal("GET, HEAD"))
		})

		It("answers unrouted non-GET requests with 404", func() {
			w := request(newServer(testConfig()), http.MethodPost, "/dashboard")
			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(w.Body.String()).To(Equal("404 page not found\n"))
		})

	})

	Context("static assets", func() {

		It("serves existing files byte for byte", func() {
			w := request(newServer(testConfig()), http.MethodGet, "/static/js/some.js")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.Bytes()).To(Equal(Successful(os.ReadFile("../test/static/js/some.js"))))
		})

		It("serves the fallback document on unknown paths, idempotently", func() {
			s := newServer(testConfig())
			expected := Successful(os.ReadFile("../test/index.html"))
			for range 3 {
				w := request(s, http.MethodGet, "/some/client/route")
				Expect(w.Code).To(Equal(http.StatusOK))
				Expect(w.Body.Bytes()).To(Equal(expected))
			}
		})

		It("never serves files outside the static root", func() {
			passwd, _ := os.ReadFile("/etc/passwd")
			w := request(newServer(testConfig()), http.MethodGet, "/../../etc/passwd")
			Expect(w.Code).To(Equal(http.StatusForbidden))
			if len(passwd) > 0 {
				Expect(w.Body.String()).NotTo(ContainSubstring(string(passwd)))
			}
			Eventually(logbuf).Should(gbytes.Say(`level=WARN`))
		})

	})

	Context("middleware", func() {

		It("tags responses with request ids", func() {
			w := request(newServer(testConfig()), http.MethodGet, "/api/health")
			Expect(w.Header().Get(middleware.RequestIDHeader)).NotTo(BeEmpty())
			Eventually(logbuf).Should(gbytes.Say(`msg=request method=GET path=/api/health status=200`))
		})

		It("bounds request processing time", func() {
			cfg := testConfig()
			cfg.RequestTimeout = 50 * time.Millisecond
			s := newServer(cfg, routes.NewTable("slow").
				Get("/api/slow", func(w http.ResponseWriter, r *http.Request) {
					<-r.Context().Done()
				}))
			w := request(s, http.MethodGet, "/api/slow")
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Body.String()).To(Equal(middleware.TimeoutMessage))
		})

		It("bounds static asset resolution without buffering responses", func() {
			ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
			defer cancel()
			r := httptest.NewRequest(http.MethodGet, "/static/js/some.js", nil).WithContext(ctx)
			w := httptest.NewRecorder()
			newServer(testConfig()).ServeHTTP(w, r)
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(w.Body.String()).To(Equal("503 Service Unavailable\n"))
		})

		It("applies the request timeout only to routed handlers", func() {
			router := routes.Merge(log, routes.NewTable("api").
				Get("/api/flush", func(w http.ResponseWriter, r *http.Request) {
					_, flushable := w.(http.Flusher)
					_, _ = io.WriteString(w, map[bool]string{true: "flushable", false: "buffered"}[flushable])
				}))
			fallthru := MatcherFunc(func(r *http.Request) (http.Handler, bool) {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					_, flushable := w.(http.Flusher)
					_, _ = io.WriteString(w, map[bool]string{true: "flushable", false: "buffered"}[flushable])
				}), true
			})
			chain := Chain{withTimeout(router, time.Minute), fallthru}
			Expect(request(chain, http.MethodGet, "/api/flush").Body.String()).To(Equal("buffered"))
			Expect(request(chain, http.MethodGet, "/static/big.iso").Body.String()).To(Equal("flushable"))
		})

		It("recovers from panicking handlers", func() {
			s := newServer(testConfig(), routes.NewTable("panicky").
				Get("/api/panic", func(w http.ResponseWriter, r *http.Request) {
					panic("D'oh!")
				}))
			w := request(s, http.MethodGet, "/api/panic")
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Eventually(logbuf).Should(gbytes.Say(`level=ERROR msg="panic recovered"`))
		})

	})

	Context("serving", func() {

		It("serves the composed handler and the admin routes until cancelled", func(ctx context.Context) {
			s := newServer(testConfig())
			servectx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- s.Serve(servectx)
			}()
			Eventually(func() int {
				rt.mu.Lock()
				defer rt.mu.Unlock()
				return rt.serves
			}).Should(Equal(1))

			rt.mu.Lock()
			svc, admin := rt.svc, rt.admin
			rt.mu.Unlock()
			Expect(svc.Handle).To(Equal(s.Handle()))
			Expect(request(svc.Handler, http.MethodGet, "/api/health").Body.String()).To(Equal(HealthBody))

			w := request(Chain{routes.Merge(log, admin...)}, http.MethodGet, "/routes")
			var listing struct{ Routes []string }
			Expect(json.Unmarshal(w.Body.Bytes(), &listing)).To(Succeed())
			Expect(listing.Routes).To(ContainElements(
				"GET /api/health (custom)",
				"GET /api/hello (custom)",
				"GET /api/runtime (runtime)"))

			cancel()
			Eventually(done).Should(Receive(BeNil()))
		})

		It("reports serving failures", func() {
			rt.serveErr = errFakeBind
			s := newServer(testConfig())
			Expect(s.Serve(context.Background())).To(MatchError(errFakeBind))
		})

	})

})
