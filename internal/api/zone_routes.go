package api

import (
	"net/http"
	"strings"

	"github.com/chipzone/server/internal/auth"
)

// SetupZoneRoutes registers zone management and analytics routes. Reads
// and analytics are open to any authenticated user; mutations need the
// admin role.
func SetupZoneRoutes(mux *http.ServeMux, handlers *ZoneHandlers, authMiddleware func(http.Handler) http.Handler, userRateLimit func(http.Handler) http.Handler) {
	adminOnly := auth.RequireRole(auth.RoleAdmin)
	create := adminOnly(http.HandlerFunc(handlers.CreateZone))
	update := adminOnly(http.HandlerFunc(handlers.UpdateZone))
	remove := adminOnly(http.HandlerFunc(handlers.DeleteZone))

	zoneHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/zones")
		path = strings.Trim(path, "/")
		parts := strings.Split(path, "/")

		switch {
		case r.Method == http.MethodPost && path == "":
			create.ServeHTTP(w, r)
		case r.Method == http.MethodGet && len(parts) == 2 && parts[1] == "analytics":
			handlers.GetZoneAnalytics(w, r)
		case len(parts) != 1 || path == "":
			http.NotFound(w, r)
		case r.Method == http.MethodGet:
			handlers.GetZone(w, r)
		case r.Method == http.MethodPut:
			update.ServeHTTP(w, r)
		case r.Method == http.MethodDelete:
			remove.ServeHTTP(w, r)
		default:
			w.Header().Set("Allow", "GET, PUT, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	rateLimited := authMiddleware(userRateLimit(zoneHandler))

	mux.Handle("/api/zones/", rateLimited)
	mux.Handle("/api/zones", rateLimited)
}
