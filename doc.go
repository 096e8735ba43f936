/*

Package spahost serves "Single Page Applications" (SPAs) from a directory on
the OS file system, supporting client-side DOM routing and varying base paths.

The Resolver maps request paths onto files inside a static root directory:
plain files are served as-is, directories are served by their index.html, and
everything else resolves to the fallback document, so that bookmarked or
reloaded client-side routes render the application shell. Request paths
trying to climb out of the static root are rejected with ErrPathTraversal
before the file system gets touched.

The SPAHandler type implements http.Handler on top of a Resolver, rewriting
the fallback document's base element to the correct request base path based
on forwarding proxy headers.

The sub packages routes, host and server compose a resolver with API route
tables into a complete server, as run by cmd/spahost.

*/
package spahost
