// Package server hosts the Fiber HTTP service and its middleware chain.
// It attaches panic recovery, CORS and request-id middlewares, then hands
// every non-diagnostic GET to the injected ProxyHandler. Diagnostic routes
// under /-/ are registered by the routes subpackage.
package server
