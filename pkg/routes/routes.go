// Package routes declares HTTP endpoints as data so domain handlers can
// describe their surface and the API module can register it.
package routes

import "net/http"

// Route binds an HTTP method and pattern to a handler.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group organizes routes under a common prefix.
type Group struct {
	Prefix string
	Routes []Route
}

// Patterns returns the ServeMux patterns the group registers, in order.
func (g Group) Patterns() []string {
	patterns := make([]string, len(g.Routes))
	for i, r := range g.Routes {
		patterns[i] = r.Method + " " + g.Prefix + r.Pattern
	}
	return patterns
}

// Register adds all routes from the given groups to the mux and returns the
// registered patterns. ServeMux panics on conflicting patterns.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var registered []string
	for _, g := range groups {
		for i, pattern := range g.Patterns() {
			mux.HandleFunc(pattern, g.Routes[i].Handler)
			registered = append(registered, pattern)
		}
	}
	return registered
}
