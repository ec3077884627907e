// Package server hosts the Fiber HTTP service: request-ID middleware, Host
// based site lookup, the per-site render route and the /-/ diagnostics
// surface. NewSiteRegistry builds one SiteRoute per configured site, each
// owning its own cache store, render pipeline and invoker, so requests for
// different sites never share cache entries. Keep exports narrow and accept
// explicit dependencies; main wires config, logger and filesystem in.
package server
