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

package server

import (
	"net/http"
	"time"

	"github.com/thediveo/spahost/middleware"
)

// Matcher claims requests it is responsible for, returning the handler to
// serve them.
type Matcher interface {
	Handler(r *http.Request) (http.Handler, bool)
}

// MatcherFunc adapts an ordinary function into a Matcher.
type MatcherFunc func(r *http.Request) (http.Handler, bool)

func (f MatcherFunc) Handler(r *http.Request) (http.Handler, bool) { return f(r) }

// Chain is an ordered list of Matchers; the first Matcher claiming a request
// serves it. Requests not claimed by any Matcher get a 404.
type Chain []Matcher

func (c Chain) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, m := range c {
		if h, ok := m.Handler(r); ok {
			h.ServeHTTP(w, r)
			return
		}
	}
	http.NotFound(w, r)
}

// withTimeout runs the handlers claimed by the specified Matcher under the
// specified request timeout.
func withTimeout(m Matcher, timeout time.Duration) Matcher {
	bound := middleware.Timeout(timeout)
	return MatcherFunc(func(r *http.Request) (http.Handler, bool) {
		h, ok := m.Handler(r)
		if !ok {
			return nil, false
		}
		return bound(h), true
	})
}
