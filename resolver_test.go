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

package spahost

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

// testRoot returns the absolute path of the test fixture static root.
func testRoot() string {
	GinkgoHelper()
	return Successful(filepath.EvalSymlinks(Successful(filepath.Abs("test"))))
}

var _ = Describe("resolving request paths", func() {

	Context("creating resolvers", func() {

		It("accepts the test fixture root", func() {
			r := Successful(NewResolver(testRoot(), "index.html"))
			Expect(r.Root()).To(Equal(testRoot()))
			Expect(r.Fallback()).To(Equal(filepath.Join(testRoot(), "index.html")))
		})

		It("sanitizes the fallback document path", func() {
			r := Successful(NewResolver(testRoot(), "/docs/./index.html"))
			Expect(r.Fallback()).To(Equal(filepath.Join(testRoot(), "docs", "index.html")))
		})

		DescribeTable("rejects unusable roots and fallbacks",
			func(root func() string, index string, what string) {
				_, err := NewResolver(root(), index)
				var cfgerr *ConfigurationError
				Expect(errors.As(err, &cfgerr)).To(BeTrue())
				Expect(cfgerr.What).To(Equal(what))
			},
			Entry("relative root", func() string { return "test" }, "index.html", "static root"),
			Entry("missing root", func() string { return filepath.Join(testRoot(), "nada") }, "index.html", "static root"),
			Entry("file as root", func() string { return filepath.Join(testRoot(), "icon.png") }, "index.html", "static root"),
			Entry("missing fallback", testRoot, "bonkers.html", "fallback document"),
			Entry("empty fallback", testRoot, "", "fallback document"),
			Entry("escaping fallback", testRoot, "../spa.go", "fallback document"),
			Entry("directory fallback", testRoot, "docs", "fallback document"),
		)

	})

	DescribeTable("resolves to files and the fallback",
		func(reqpath string, expectedKind AssetKind, expectedFile string) {
			r := Successful(NewResolver(testRoot(), "index.html"))
			asset := Successful(r.Resolve(context.Background(), reqpath))
			Expect(asset.Kind).To(Equal(expectedKind), "resolved to %s", asset.Kind)
			Expect(asset.Path).To(Equal(filepath.Join(testRoot(), filepath.FromSlash(expectedFile))))
		},
		Entry("root", "/", AssetFile, "index.html"),
		Entry("empty path", "", AssetFile, "index.html"),
		Entry("plain file", "/static/js/some.js", AssetFile, "static/js/some.js"),
		Entry("unrooted plain file", "icon.png", AssetFile, "icon.png"),
		Entry("file with inner ..", "/static/../icon.png", AssetFile, "icon.png"),
		Entry("directory with index", "/docs", AssetFile, "docs/index.html"),
		Entry("directory with index and slash", "/docs/", AssetFile, "docs/index.html"),
		Entry("directory without index", "/static", AssetFallback, "index.html"),
		Entry("client-side route", "/dashboard/settings", AssetFallback, "index.html"),
		Entry("below a plain file", "/icon.png/foo", AssetFallback, "index.html"),
		Entry("missing asset", "/static/js/missing.js", AssetFallback, "index.html"),
	)

	DescribeTable("serves directory indices independent of the fallback document",
		func(index, reqpath string, expectedKind AssetKind, expectedFile string) {
			r := Successful(NewResolver(testRoot(), index))
			asset := Successful(r.Resolve(context.Background(), reqpath))
			Expect(asset.Kind).To(Equal(expectedKind), "resolved to %s", asset.Kind)
			Expect(asset.Path).To(Equal(filepath.Join(testRoot(), filepath.FromSlash(expectedFile))))
		},
		Entry("root with nested fallback", "docs/index.html", "/", AssetFile, "index.html"),
		Entry("empty path with nested fallback", "docs/index.html", "", AssetFile, "index.html"),
		Entry("client-side route with nested fallback", "docs/index.html", "/dashboard", AssetFallback, "docs/index.html"),
		Entry("directory without index", "docs/index.html", "/static/", AssetFallback, "docs/index.html"),
	)

	It("falls back on a root without directory index", func() {
		root := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(root, "app.html"), []byte("<html></html>"), 0o644)).To(Succeed())
		r := Successful(NewResolver(root, "app.html"))
		asset := Successful(r.Resolve(context.Background(), "/"))
		Expect(asset.Kind).To(Equal(AssetFallback))
		Expect(asset.Path).To(Equal(r.Fallback()))
	})

	DescribeTable("denies path traversal",
		func(reqpath string) {
			r := Successful(NewResolver(testRoot(), "index.html"))
			_, err := r.Resolve(context.Background(), reqpath)
			Expect(err).To(MatchError(ErrPathTraversal))
		},
		Entry("classic", "/../../etc/passwd"),
		Entry("bare parent", ".."),
		Entry("from inside", "/static/../../spa.go"),
		Entry("backslashes", `\..\..\etc\passwd`),
		Entry("mixed separators", `/static\..\..\spa.go`),
		Entry("NUL", "/index.html\x00.png"),
	)

	It("denies symbolic links leading outside the root", func() {
		if runtime.GOOS == "windows" {
			Skip("needs symbolic links")
		}
		outside := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(outside, "secret"), []byte("SECRET"), 0o644)).To(Succeed())
		root := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(root, "index.html"), []byte("<html></html>"), 0o644)).To(Succeed())
		Expect(os.Symlink(filepath.Join(outside, "secret"), filepath.Join(root, "leak"))).To(Succeed())
		Expect(os.Symlink(filepath.Join(root, "index.html"), filepath.Join(root, "alias.html"))).To(Succeed())

		r := Successful(NewResolver(root, "index.html"))
		_, err := r.Resolve(context.Background(), "/leak")
		Expect(err).To(MatchError(ErrPathTraversal))

		asset := Successful(r.Resolve(context.Background(), "/alias.html"))
		Expect(asset.Kind).To(Equal(AssetFile))
		Expect(asset.Path).To(Equal(r.Fallback()))
	})

	It("reports file system failures other than absence", func() {
		if runtime.GOOS != "linux" {
			Skip("relies on Linux' file name length limit")
		}
		r := Successful(NewResolver(testRoot(), "index.html"))
		_, err := r.Resolve(context.Background(), "/"+strings.Repeat("x", 1000))
		var ioerr *IOError
		Expect(errors.As(err, &ioerr)).To(BeTrue())
		Expect(ioerr.Path).To(HavePrefix("xxx"))
	})

	It("abandons resolution with a done context", func() {
		r := Successful(NewResolver(testRoot(), "index.html"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Resolve(ctx, "/static/js/some.js")
		Expect(err).To(MatchError(context.Canceled))
	})

	It("resolves concurrently", func() {
		r := Successful(NewResolver(testRoot(), "index.html"))
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for j := 0; j < 20; j++ {
					asset, err := r.Resolve(context.Background(), "/static/js/some.js")
					Expect(err).NotTo(HaveOccurred())
					Expect(asset.Kind).To(Equal(AssetFile))
					asset, err = r.Resolve(context.Background(), "/some/route")
					Expect(err).NotTo(HaveOccurred())
					Expect(asset.Kind).To(Equal(AssetFallback))
				}
			}()
		}
		wg.Wait()
	})

	It("names asset kinds", func() {
		Expect(AssetFile.String()).To(Equal("file"))
		Expect(AssetFallback.String()).To(Equal("fallback"))
		Expect(AssetKind(42).String()).To(Equal("AssetKind(42)"))
	})

})
