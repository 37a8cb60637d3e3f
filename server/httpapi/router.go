// Copyright 2022 CeresDB Project Authors. Licensed under Apache-2.0.

package httpapi

import "net/http"

// Router is a small wrapper around http.ServeMux offering the
// prefix/instrumentation chaining server/service/http.API builds its
// routes with (New().WithPrefix(...).WithInstrumentation(...)), adapted
// here for a read-only introspection surface rather than mutating
// cluster operations.
type Router struct {
	mux    *http.ServeMux
	prefix string
	instr  func(handlerName string, handler http.HandlerFunc) http.HandlerFunc
}

// New returns an empty Router.
func New() *Router {
	return &Router{mux: http.NewServeMux(), instr: func(_ string, h http.HandlerFunc) http.HandlerFunc { return h }}
}

// WithPrefix sets the path prefix every subsequently registered route is
// mounted under.
func (r *Router) WithPrefix(prefix string) *Router {
	r.prefix = prefix
	return r
}

// WithInstrumentation wraps every subsequently registered handler with
// instr, e.g. for request logging.
func (r *Router) WithInstrumentation(instr func(handlerName string, handler http.HandlerFunc) http.HandlerFunc) *Router {
	r.instr = instr
	return r
}

// Get registers handler for a GET at prefix+path.
func (r *Router) Get(path string, handler http.HandlerFunc) {
	r.mux.HandleFunc(r.prefix+path, r.instr(path, handler))
}

// ServeHTTP makes Router an http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}
