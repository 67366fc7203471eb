// Package api provides the HTTP routing, middleware, and response
// conventions shared by all relaypoint endpoints.
package api

import (
	"net/http"
)

// Router handles HTTP routing with a middleware chain.
type Router struct {
	mux        *http.ServeMux
	middleware []Middleware
}

// NewRouter creates a new API router.
func NewRouter() *Router {
	return &Router{
		mux: http.NewServeMux(),
	}
}

// Use adds middleware to the router.
func (r *Router) Use(middleware Middleware) {
	r.middleware = append(r.middleware, middleware)
}

// Handle registers a handler for a specific pattern.
func (r *Router) Handle(pattern string, handler http.HandlerFunc) {
	r.mux.HandleFunc(pattern, handler)
}

// ServeHTTP implements http.Handler. Middleware is applied in reverse
// order so the last one added is the outermost.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	handler := http.Handler(r.mux)
	for i := len(r.middleware) - 1; i >= 0; i-- {
		handler = r.middleware[i](handler)
	}
	handler.ServeHTTP(w, req)
}
