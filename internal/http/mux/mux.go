// Package mux wraps http.ServeMux with middleware stacks and path prefix
// groups.
package mux // import "streamlance.app/internal/http/mux"

import (
	"net/http"
	"slices"
	"strings"
)

func New() *ServeMux {
	return &ServeMux{ServeMux: http.NewServeMux()}
}

type ServeMux struct {
	*http.ServeMux

	middlewares []MiddlewareFunc
}

type MiddlewareFunc func(next http.Handler) http.Handler

var _ http.Handler = (*ServeMux)(nil)

// Group returns a copy of the mux for registering routes with extra
// middlewares. Middlewares added to the copy don't affect the parent.
func (self *ServeMux) Group(funcs ...func(m *ServeMux)) *ServeMux {
	g := *self
	g.middlewares = slices.Clone(self.middlewares)
	for _, fn := range funcs {
		fn(&g)
	}
	return &g
}

// Handle registers handler wrapped by middlewares added so far.
func (self *ServeMux) Handle(pattern string, handler http.Handler) *ServeMux {
	self.ServeMux.Handle(pattern, self.wrapped(handler))
	return self
}

func (self *ServeMux) wrapped(handler http.Handler) http.Handler {
	for _, m := range slices.Backward(self.middlewares) {
		handler = m(handler)
	}
	return handler
}

func (self *ServeMux) HandleFunc(pattern string,
	handler func(http.ResponseWriter, *http.Request),
) *ServeMux {
	return self.Handle(pattern, http.HandlerFunc(handler))
}

// PrefixGroup mounts a new mux under prefix. Routes of the new mux are
// registered without the prefix and pass through middlewares of the parent.
func (self *ServeMux) PrefixGroup(prefix string, funcs ...func(m *ServeMux),
) *ServeMux {
	if prefix == "" {
		return self.Group(funcs...)
	}

	pattern := prefix
	if !strings.HasSuffix(pattern, "/") {
		pattern += "/"
	}
	mux := http.NewServeMux()
	self.Handle(pattern, http.StripPrefix(strings.TrimSuffix(prefix, "/"), mux))

	g := *self
	g.ServeMux = mux
	g.middlewares = nil

	for _, fn := range funcs {
		fn(&g)
	}
	return &g
}

func (self *ServeMux) Use(m ...MiddlewareFunc) *ServeMux {
	self.middlewares = append(self.middlewares, m...)
	return self
}
