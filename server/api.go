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
	"encoding/json"
	"io"
	"net/http"

	"github.com/thediveo/spahost/routes"
)

// CustomTable names the application's own route table.
const CustomTable = "custom"

// HealthBody is the body of a successful health check.
const HealthBody = "OK"

// APIRoutes returns the application's own API routes. They are merged before
// any other route table and thus take precedence.
func APIRoutes() *routes.Table {
	return routes.NewTable(CustomTable).
		Get("/api/health", health).
		Get("/api/hello", hello)
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, HealthBody)
}

type helloResponse struct {
	Message string `json:"message"`
}

func hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, helloResponse{Message: "Hello!"})
}

// adminRoutes lists the effective merged route table on the admin listener.
func adminRoutes(router *routes.Router) *routes.Table {
	return routes.NewTable("server").
		Get("/routes", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, struct {
				Routes []string `json:"routes"`
			}{Routes: router.Describe()})
		})
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
