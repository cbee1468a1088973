package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/chipzone/server/internal/auth"
	"github.com/chipzone/server/internal/config"
	"github.com/chipzone/server/internal/performance"
	"github.com/chipzone/server/internal/streaming"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies are the services the HTTP layer is built on. DB may be nil
// when zones are kept in memory.
type Dependencies struct {
	Config    *config.Config
	Zones     ZoneService
	Analytics AnalyticsService
	JWT       *auth.JWTService
	Hub       *streaming.Hub
	Metrics   *performance.Metrics
	DB        Pinger
}

// NewRouter wires every route and the global middleware chain.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	mux := http.NewServeMux()

	mux.Handle("/health", HealthHandler(deps.DB))
	mux.Handle("/metrics", deps.Metrics.Handler())

	wsHandlers := NewWebSocketHandlers(deps.Hub, deps.JWT, cfg.CORS.AllowedOrigins)
	mux.Handle("/ws/zones", deps.Metrics.Instrument("/ws/zones", http.HandlerFunc(wsHandlers.HandleWebSocket)))

	zoneMux := http.NewServeMux()
	SetupZoneRoutes(
		zoneMux,
		NewZoneHandlers(deps.Zones, deps.Analytics),
		auth.NewMiddleware(deps.JWT).Authenticate,
		UserRateLimitMiddleware(cfg.RateLimit.UserLimit, cfg.RateLimit.UserWindow),
	)
	instrumented := deps.Metrics.Instrument("/api/zones", zoneMux)
	mux.Handle("/api/zones", instrumented)
	mux.Handle("/api/zones/", instrumented)

	var handler http.Handler = mux
	handler = RateLimitMiddleware(cfg.RateLimit.GlobalLimit, cfg.RateLimit.GlobalWindow)(handler)
	handler = CORSMiddleware(cfg.CORS.AllowedOrigins)(handler)
	handler = auth.SecurityHeadersMiddleware(cfg.Server.IsProduction())(handler)
	return handler
}

// HealthHandler reports service health, including database reachability
// when db is set.
func HealthHandler(db Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				log.Printf("[Health] Database ping failed: %v", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":  "unavailable",
					"service": "chipzone-server",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "chipzone-server",
		})
	})
}
