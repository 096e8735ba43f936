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
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/thediveo/spahost/routes"
)

// AdminRouter merges the specified admin route tables and mounts the
// resulting routes onto a chi router. Admin responses are never cached.
func AdminRouter(log *slog.Logger, tables ...*routes.Table) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.GetHead)
	r.Use(chimw.NoCache)
	for _, route := range routes.Merge(log, tables...).Routes() {
		if route.Pattern.Method == routes.AnyMethod {
			r.Handle(route.Pattern.ChiPattern(), route.Handler)
			continue
		}
		r.Method(route.Pattern.Method, route.Pattern.ChiPattern(), route.Handler)
	}
	return r
}
