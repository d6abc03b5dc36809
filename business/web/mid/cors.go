package mid

import (
	"context"
	"net/http"
	"slices"

	"github.com/ardanlabs/register/foundation/web"
)

// Cors sets the response headers needed for Cross-Origin Resource Sharing.
// A "*" entry allows every origin.
func Cors(origins []string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")

			switch {
			case slices.Contains(origins, "*"):
				w.Header().Set("Access-Control-Allow-Origin", "*")

			case origin != "" && OriginAllowed(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Origin, Accept, Content-Type, Content-Length, Accept-Encoding")
			w.Header().Set("Access-Control-Max-Age", "86400")

			// Call the next handler.
			return handler(ctx, w, r)
		}

		return h
	}

	return m
}

// OriginAllowed reports whether the origin is in the configured list. A
// request without an origin did not come from a browser and is allowed.
func OriginAllowed(origins []string, origin string) bool {
	if origin == "" || slices.Contains(origins, "*") {
		return true
	}
	return slices.Contains(origins, origin)
}
