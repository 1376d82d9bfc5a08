package server

import (
	"net/http"
	"sort"
	"strings"
)

// methodRouter maps HTTP methods to their handlers for a single path.
type methodRouter map[string]http.HandlerFunc

// routeByMethod dispatches on the request method, answering 405 with an
// Allow header when the method has no handler.
func routeByMethod(w http.ResponseWriter, r *http.Request, routes methodRouter) {
	if handler, ok := routes[r.Method]; ok {
		handler(w, r)
		return
	}

	allowed := make([]string, 0, len(routes))
	for method := range routes {
		allowed = append(allowed, method)
	}
	sort.Strings(allowed)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
