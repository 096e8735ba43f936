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

package routes

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
)

// Router is the effective route table resulting from merging route tables.
// A Router is read-only and thus safe for concurrent use.
type Router struct {
	routes    []Route          // effective routes in merge order.
	literals  map[string][]int // cleaned literal path -> route indices.
	wildcards []int            // route indices, most specific first.
}

// Match is a successful route lookup: the matched route and the values of
// any wildcards in its pattern.
type Match struct {
	Route  Route
	Params map[string]string
}

// Merge concatenates the specified route tables in order into a single
// Router. Whenever a route is structurally identical to an earlier one (same
// method and template, disregarding wildcard names), the later route is
// dropped and a warning logged. Thus, routes from earlier tables override
// routes from later tables. Merging never fails.
func Merge(log *slog.Logger, tables ...*Table) *Router {
	if log == nil {
		log = slog.Default()
	}
	rt := &Router{literals: map[string][]int{}}
	owners := map[string]string{}
	for _, table := range tables {
		if table == nil {
			continue
		}
		for _, route := range table.routes {
			key := route.Pattern.Key()
			if owner, shadowed := owners[key]; shadowed {
				log.Warn("dropping shadowed route",
					slog.String("route", route.Pattern.String()),
					slog.String("table", table.name),
					slog.String("shadowed-by", owner))
				continue
			}
			owners[key] = table.name
			idx := len(rt.routes)
			rt.routes = append(rt.routes, route)
			if route.Pattern.IsLiteral() {
				lit := "/" + strings.Join(split(route.Pattern.Template), "/")
				rt.literals[lit] = append(rt.literals[lit], idx)
				continue
			}
			rt.wildcards = append(rt.wildcards, idx)
		}
	}
	sort.SliceStable(rt.wildcards, func(i, j int) bool {
		return rt.routes[rt.wildcards[i]].Pattern.literalPrefix() >
			rt.routes[rt.wildcards[j]].Pattern.literalPrefix()
	})
	return rt
}

// Routes returns the effective routes in merge order.
func (rt *Router) Routes() []Route {
	return append([]Route(nil), rt.routes...)
}

// Match looks up the route for the specified method and request path. Routes
// with literal-only templates take precedence over routes with wildcards.
// Among wildcard routes the one with the longest literal prefix wins, with
// ties broken by merge order. HEAD requests are served by GET routes unless
// there is an explicit HEAD route.
func (rt *Router) Match(method, reqPath string) (Match, bool) {
	pieces := split(reqPath)
	best, bestRank := -1, -1
	for _, idx := range rt.literals["/"+strings.Join(pieces, "/")] {
		rank := rt.routes[idx].Pattern.methodRank(method)
		if rank >= 0 && (best < 0 || rank < bestRank) {
			best, bestRank = idx, rank
		}
	}
	if best >= 0 {
		return Match{Route: rt.routes[best]}, true
	}
	var bestParams map[string]string
	for _, idx := range rt.wildcards {
		pattern := rt.routes[idx].Pattern
		if best >= 0 && pattern.literalPrefix() < rt.routes[best].Pattern.literalPrefix() {
			break
		}
		rank := pattern.methodRank(method)
		if rank < 0 || (best >= 0 && rank >= bestRank) {
			continue
		}
		params, ok := pattern.match(pieces)
		if !ok {
			continue
		}
		best, bestRank, bestParams = idx, rank, params
	}
	if best < 0 {
		return Match{}, false
	}
	return Match{Route: rt.routes[best], Params: bestParams}, true
}

// Allowed returns the methods of all routes matching the request path,
// regardless of their methods.
func (rt *Router) Allowed(reqPath string) []string {
	pieces := split(reqPath)
	var methods []string
	add := func(method string) {
		for _, m := range methods {
			if m == method {
				return
			}
		}
		methods = append(methods, method)
	}
	for _, idx := range rt.literals["/"+strings.Join(pieces, "/")] {
		add(rt.routes[idx].Pattern.Method)
	}
	for _, idx := range rt.wildcards {
		if _, ok := rt.routes[idx].Pattern.match(pieces); ok {
			add(rt.routes[idx].Pattern.Method)
		}
	}
	for _, m := range methods {
		if m == http.MethodGet {
			add(http.MethodHead)
			break
		}
	}
	sort.Strings(methods)
	return methods
}

// Handler returns the handler for the specified request, if any route
// matches its path. Wildcard values become available to the handler via
// http.Request.PathValue. If some routes match the path but none the method,
// Handler returns a handler answering with "405 Method Not Allowed".
func (rt *Router) Handler(r *http.Request) (http.Handler, bool) {
	if m, ok := rt.Match(r.Method, r.URL.Path); ok {
		for name, value := range m.Params {
			r.SetPathValue(name, value)
		}
		return m.Route.Handler, true
	}
	allowed := rt.Allowed(r.URL.Path)
	if len(allowed) == 0 {
		return nil, false
	}
	return methodNotAllowed(allowed), true
}

func methodNotAllowed(allowed []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		http.Error(w, "405 Method Not Allowed", http.StatusMethodNotAllowed)
	})
}

// Describe returns a human-readable listing of the effective routes.
func (rt *Router) Describe() []string {
	lines := make([]string, 0, len(rt.routes))
	for _, route := range rt.routes {
		lines = append(lines, route.Pattern.String()+" ("+route.Table+")")
	}
	return lines
}
