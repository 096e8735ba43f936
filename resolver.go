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
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

// DirectoryIndex is the name of the file served in place of a directory.
const DirectoryIndex = "index.html"

// AssetKind tells a plain static file apart from the fallback document.
type AssetKind int

const (
	AssetFile AssetKind = iota
	AssetFallback
)

func (k AssetKind) String() string {
	switch k {
	case AssetFile:
		return "file"
	case AssetFallback:
		return "fallback"
	}
	return fmt.Sprintf("AssetKind(%d)", int(k))
}

// ResolvedAsset is the outcome of resolving a request path: either a static
// file or the fallback document, always given as an absolute OS path.
type ResolvedAsset struct {
	Kind AssetKind
	Path string
}

// Resolver maps request paths onto the files inside a static root directory,
// resolving all misses to a fallback document. A Resolver is immutable after
// creation and thus safe for concurrent use.
type Resolver struct {
	root     string // absolute and symlink-free static root directory.
	fallback string // absolute path of the fallback document inside root.
}

// NewResolver returns a new Resolver for the specified absolute root
// directory, falling back to the index document for any request path not
// matching a file. The index is a slash-separated path relative to the root,
// typically "index.html". NewResolver fails with a ConfigurationError if the
// root isn't an existing directory or the index isn't a regular file inside
// the root.
func NewResolver(root, index string) (*Resolver, error) {
	if !filepath.IsAbs(root) {
		return nil, &ConfigurationError{What: "static root",
			Err: fmt.Errorf("%q is not an absolute path", root)}
	}
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, &ConfigurationError{What: "static root", Err: err}
	}
	info, err := os.Stat(realRoot)
	if err != nil {
		return nil, &ConfigurationError{What: "static root", Err: err}
	}
	if !info.IsDir() {
		return nil, &ConfigurationError{What: "static root",
			Err: fmt.Errorf("%q is not a directory", root)}
	}
	rel, err := sanitize(index)
	if err != nil || rel == "" {
		return nil, &ConfigurationError{What: "fallback document",
			Err: fmt.Errorf("%q does not name a file inside the static root", index)}
	}
	fallback, err := filepath.EvalSymlinks(filepath.Join(realRoot, filepath.FromSlash(rel)))
	if err != nil {
		return nil, &ConfigurationError{What: "fallback document", Err: err}
	}
	if !within(realRoot, fallback) {
		return nil, &ConfigurationError{What: "fallback document",
			Err: fmt.Errorf("%q escapes the static root", index)}
	}
	info, err = os.Stat(fallback)
	if err != nil {
		return nil, &ConfigurationError{What: "fallback document", Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &ConfigurationError{What: "fallback document",
			Err: fmt.Errorf("%q is not a regular file", index)}
	}
	return &Resolver{root: realRoot, fallback: fallback}, nil
}

// Root returns the absolute, symlink-free static root directory.
func (r *Resolver) Root() string { return r.root }

// Fallback returns the absolute path of the fallback document.
func (r *Resolver) Fallback() string { return r.fallback }

// Resolve maps the (already percent-decoded) request path onto a file inside
// the static root. If there is no such regular file, and also no directory
// with an index file, then Resolve returns the fallback document instead.
//
// Request paths climbing out of the static root fail with ErrPathTraversal
// before any file system access; file system failures other than absence
// fail with an IOError. A done context aborts resolution with the context's
// error.
func (r *Resolver) Resolve(ctx context.Context, requested string) (ResolvedAsset, error) {
	rel, err := sanitize(requested)
	if err != nil {
		return ResolvedAsset{}, err
	}
	if err := ctx.Err(); err != nil {
		return ResolvedAsset{}, err
	}
	full := filepath.Join(r.root, filepath.FromSlash(rel))
	if rel != "" {
		info, err := os.Stat(full)
		switch {
		case absent(err):
			return r.fallbackAsset(), nil
		case err != nil:
			return ResolvedAsset{}, &IOError{Path: rel, Err: err}
		case info.Mode().IsRegular():
			return r.contained(rel, full)
		case !info.IsDir():
			return r.fallbackAsset(), nil
		}
		if err := ctx.Err(); err != nil {
			return ResolvedAsset{}, err
		}
	}
	// the root itself is a directory too, so it gets its index as well.
	rel = path.Join(rel, DirectoryIndex)
	full = filepath.Join(full, DirectoryIndex)
	info, err := os.Stat(full)
	switch {
	case absent(err):
		return r.fallbackAsset(), nil
	case err != nil:
		return ResolvedAsset{}, &IOError{Path: rel, Err: err}
	case info.Mode().IsRegular():
		return r.contained(rel, full)
	}
	return r.fallbackAsset(), nil
}

func (r *Resolver) fallbackAsset() ResolvedAsset {
	return ResolvedAsset{Kind: AssetFallback, Path: r.fallback}
}

// contained returns the canonical file asset for the existing regular file
// at full, as long as following symbolic links keeps it inside the root.
func (r *Resolver) contained(rel, full string) (ResolvedAsset, error) {
	canonical, err := filepath.EvalSymlinks(full)
	if err != nil {
		return ResolvedAsset{}, &IOError{Path: rel, Err: err}
	}
	if !within(r.root, canonical) {
		return ResolvedAsset{}, fmt.Errorf("%w: %s", ErrPathTraversal, rel)
	}
	return ResolvedAsset{Kind: AssetFile, Path: canonical}, nil
}

// sanitize returns the unrooted, slash-separated form of the specified
// request path with all "." and ".." elements removed. It fails with
// ErrPathTraversal when a ".." element would climb above the root, without
// ever consulting the file system. Backslashes count as separators too, so
// that Windows-style traversals cannot sneak through.
func sanitize(p string) (string, error) {
	if strings.IndexByte(p, 0) >= 0 {
		return "", ErrPathTraversal
	}
	segments := make([]string, 0, 8)
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		switch seg {
		case ".":
		case "..":
			if len(segments) == 0 {
				return "", ErrPathTraversal
			}
			segments = segments[:len(segments)-1]
		default:
			if filepath.VolumeName(seg) != "" {
				return "", ErrPathTraversal
			}
			segments = append(segments, seg)
		}
	}
	return strings.Join(segments, "/"), nil
}

// absent returns true if err reports a missing file, including a path
// element that turns out to be a file instead of a directory.
func absent(err error) bool {
	return err != nil && (errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR))
}

// within returns true if the absolute path p is root itself or below root.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
