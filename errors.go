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

import "errors"

// ErrPathTraversal signals a request path that would escape the static root,
// either lexically using ".." elements or by following a symbolic link.
var ErrPathTraversal = errors.New("path traversal denied")

// IOError wraps a file system failure other than a missing file, such as
// insufficient permissions or a failing storage device. Missing files are
// never reported as errors, but instead resolve to the fallback document.
type IOError struct {
	Path string // unrooted, slash-separated request path.
	Err  error
}

func (e *IOError) Error() string {
	return "static asset " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// ConfigurationError reports an unusable static root or fallback document at
// the time of creating a Resolver.
type ConfigurationError struct {
	What string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return "invalid " + e.What + ": " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
