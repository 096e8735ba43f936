/*
Package routes merges independently defined route tables into a single,
read-only Router with a well-defined precedence.

Each Table is an ordered sequence of routes, binding a Pattern (an HTTP method
plus a path template) to an http.Handler. Merge concatenates tables in the
order given; when two patterns are structurally identical the first
registration wins and later ones are dropped with a logged warning. This way,
custom routes override framework-provided routes for the same path simply by
being merged first.

Lookups prefer literal templates over templates with wildcards; among wildcard
templates, the one with the longest literal prefix wins, and ties go to the
earlier registration. The router tells "404 Not Found" apart from "405 Method
Not Allowed": when some route matches the request path, but no route matches
the request method, the router answers with a 405 and an Allow header.
*/
package routes
