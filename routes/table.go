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
	"net/http"
)

// Route binds a Pattern to the http.Handler serving it. Table names the route
// table the route was registered with.
type Route struct {
	Pattern Pattern
	Handler http.Handler
	Table   string
}

// Table is a named, ordered sequence of routes. The registration order
// matters when merging tables: the first registration of a pattern wins.
//
// Tables are intended to be filled during initialisation and then handed
// over to Merge. Adding routes while merging or routing is unsupported.
type Table struct {
	name   string
	routes []Route
}

// NewTable returns a new empty route table with the specified name, which is
// used for reporting shadowed routes.
func NewTable(name string) *Table {
	return &Table{name: name}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Handle registers the handler for the method and path template. Handle
// panics on malformed templates and nil handlers, as these are programming
// errors.
func (t *Table) Handle(method, template string, handler http.Handler) *Table {
	if handler == nil {
		panic("routes: nil handler for " + method + " " + template)
	}
	t.routes = append(t.routes, Route{
		Pattern: MustParsePattern(method, template),
		Handler: handler,
		Table:   t.name,
	})
	return t
}

// HandleFunc registers the handler function for the method and path template.
func (t *Table) HandleFunc(method, template string, handler func(http.ResponseWriter, *http.Request)) *Table {
	return t.Handle(method, template, http.HandlerFunc(handler))
}

// Get registers the handler function for GET (and thus HEAD) requests.
func (t *Table) Get(template string, handler func(http.ResponseWriter, *http.Request)) *Table {
	return t.HandleFunc(http.MethodGet, template, handler)
}

// Routes returns the routes in registration order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Len returns the number of registered routes.
func (t *Table) Len() int { return len(t.routes) }
