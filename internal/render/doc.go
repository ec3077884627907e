// Package render decides, per request, whether a site's compiled artifact can
// be served from cache or must be rebuilt. Normalize turns a request path and
// a site's BaseOptions into per-request Options; Pipeline.Resolve stats the
// source file, compares its modification time with the cached entry and runs
// the site's Compiler when the entry is missing, stale or overridden; Invoker
// wires the pipeline into a Fiber request and hands the outcome to the host
// continuation exactly once.
package render
