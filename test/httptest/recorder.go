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
Package httptest wraps the standard library's httptest.ResponseRecorder in order
to fail any test where a handler writes its response header more than once,
either explicitly or implicitly by writing body data first.
*/
package httptest

import (
	stdhttptest "net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// Recorder wraps httptest.ResponseRecorder in order to fail tests doing
// superfluous WriteHeader calls.
type Recorder struct {
	*stdhttptest.ResponseRecorder
	headerWritten bool
	implicit      bool // header got written implicitly by an early Write.
}

// NewRecorder returns a new test response recorder detecting superfluous
// WriteHeader calls.
func NewRecorder() *Recorder {
	return &Recorder{
		ResponseRecorder: stdhttptest.NewRecorder(),
	}
}

// WriteHeader implements http.ResponseWriter, failing tests that do superfluous
// WriteHeader calls.
func (w *Recorder) WriteHeader(code int) {
	GinkgoHelper()
	reason := "superfluous response.WriteHeader call"
	if w.implicit {
		reason = "response.WriteHeader call after response.Write"
	}
	Expect(w.headerWritten).To(BeFalse(), reason)
	w.headerWritten = true
	w.ResponseRecorder.WriteHeader(code)
}

// Write implements http.ResponseWriter, remembering when the response header
// gets written implicitly.
func (w *Recorder) Write(b []byte) (int, error) {
	if !w.headerWritten {
		w.headerWritten = true
		w.implicit = true
	}
	return w.ResponseRecorder.Write(b)
}
