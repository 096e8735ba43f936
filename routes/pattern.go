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
	"fmt"
	"net/http"
	"path"
	"strings"
)

// AnyMethod as a pattern method matches requests of any HTTP method.
const AnyMethod = "*"

type segmentKind int

const (
	literalSegment segmentKind = iota
	paramSegment               // {name}
	catchAllSegment            // {name...} or *
)

type segment struct {
	kind  segmentKind
	value string // literal text or wildcard name.
}

// Pattern is an HTTP method together with a path template. Templates consist
// of "/"-separated literal segments and "{name}" wildcards matching exactly
// one segment. The final segment may be a catch-all "{name...}" or "*",
// matching zero or more remaining segments.
type Pattern struct {
	Method   string
	Template string
	segments []segment
}

// ParsePattern returns the Pattern for the specified method and path
// template, or an error if the template is malformed.
func ParsePattern(method, template string) (Pattern, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return Pattern{}, fmt.Errorf("routes: missing method for template %q", template)
	}
	if method != AnyMethod && strings.ContainsAny(method, " \t/{}*") {
		return Pattern{}, fmt.Errorf("routes: invalid method %q", method)
	}
	if !strings.HasPrefix(template, "/") {
		return Pattern{}, fmt.Errorf("routes: template %q must start with \"/\"", template)
	}
	p := Pattern{Method: method, Template: template}
	names := map[string]struct{}{}
	pieces := split(template)
	for idx, piece := range pieces {
		seg := segment{kind: literalSegment, value: piece}
		switch {
		case piece == "*":
			seg = segment{kind: catchAllSegment, value: "*"}
		case strings.HasPrefix(piece, "{") && strings.HasSuffix(piece, "}"):
			name := piece[1 : len(piece)-1]
			seg.kind = paramSegment
			if strings.HasSuffix(name, "...") {
				name = strings.TrimSuffix(name, "...")
				seg.kind = catchAllSegment
			}
			if name == "" || strings.ContainsAny(name, "{}.*") {
				return Pattern{}, fmt.Errorf("routes: invalid wildcard %q in template %q", piece, template)
			}
			if _, dupe := names[name]; dupe {
				return Pattern{}, fmt.Errorf("routes: duplicate wildcard %q in template %q", name, template)
			}
			names[name] = struct{}{}
			seg.value = name
		case strings.ContainsAny(piece, "{}"):
			return Pattern{}, fmt.Errorf("routes: malformed segment %q in template %q", piece, template)
		}
		if seg.kind == catchAllSegment && idx != len(pieces)-1 {
			return Pattern{}, fmt.Errorf("routes: catch-all must be last in template %q", template)
		}
		p.segments = append(p.segments, seg)
	}
	return p, nil
}

// MustParsePattern is like ParsePattern but panics on malformed templates.
func MustParsePattern(method, template string) Pattern {
	p, err := ParsePattern(method, template)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Pattern) String() string { return p.Method + " " + p.Template }

// IsLiteral returns true if the pattern has no wildcards at all.
func (p Pattern) IsLiteral() bool {
	return p.literalPrefix() == len(p.segments)
}

// Key returns the structural identity of the pattern: two patterns with the
// same key match exactly the same requests, regardless of wildcard names.
func (p Pattern) Key() string {
	var b strings.Builder
	b.WriteString(p.Method)
	b.WriteString(" ")
	if len(p.segments) == 0 {
		b.WriteString("/")
	}
	for _, seg := range p.segments {
		b.WriteString("/")
		switch seg.kind {
		case literalSegment:
			b.WriteString(seg.value)
		case paramSegment:
			b.WriteString("{}")
		case catchAllSegment:
			b.WriteString("{...}")
		}
	}
	return b.String()
}

// ChiPattern returns the template in the syntax of github.com/go-chi/chi.
func (p Pattern) ChiPattern() string {
	if len(p.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range p.segments {
		b.WriteString("/")
		switch seg.kind {
		case literalSegment:
			b.WriteString(seg.value)
		case paramSegment:
			b.WriteString("{" + seg.value + "}")
		case catchAllSegment:
			b.WriteString("*")
		}
	}
	return b.String()
}

// literalPrefix returns the number of leading literal segments.
func (p Pattern) literalPrefix() int {
	for idx, seg := range p.segments {
		if seg.kind != literalSegment {
			return idx
		}
	}
	return len(p.segments)
}

// methodRank rates how well the pattern's method serves the request method:
// 0 is an exact match, 1 a GET pattern serving HEAD, 2 a pattern for any
// method, and -1 no match at all.
func (p Pattern) methodRank(method string) int {
	switch {
	case p.Method == method:
		return 0
	case method == http.MethodHead && p.Method == http.MethodGet:
		return 1
	case p.Method == AnyMethod:
		return 2
	}
	return -1
}

// match matches the cleaned request path pieces, returning the wildcard
// values on success.
func (p Pattern) match(pieces []string) (map[string]string, bool) {
	var params map[string]string
	for idx, seg := range p.segments {
		if seg.kind == catchAllSegment {
			if params == nil {
				params = map[string]string{}
			}
			params[seg.value] = strings.Join(pieces[idx:], "/")
			return params, true
		}
		if idx >= len(pieces) {
			return nil, false
		}
		switch seg.kind {
		case literalSegment:
			if pieces[idx] != seg.value {
				return nil, false
			}
		case paramSegment:
			if params == nil {
				params = map[string]string{}
			}
			params[seg.value] = pieces[idx]
		}
	}
	if len(pieces) != len(p.segments) {
		return nil, false
	}
	return params, true
}

// split cleans the specified path and splits it into its segments; the root
// path has no segments.
func split(p string) []string {
	p = path.Clean("/" + p)
	if p == "/" {
		return nil
	}
	return strings.Split(p[1:], "/")
}
