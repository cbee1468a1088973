package api

import (
	"context"
	"testing"
	"time"

	"github.com/chipzone/server/internal/analytics"
	"github.com/chipzone/server/internal/auth"
	"github.com/chipzone/server/internal/config"
	"github.com/chipzone/server/internal/database"
	"github.com/chipzone/server/internal/geometry"
	"github.com/chipzone/server/internal/performance"
	"github.com/chipzone/server/internal/streaming"
	"github.com/chipzone/server/internal/testutil"
	"github.com/chipzone/server/internal/zones"
	"github.com/prometheus/client_golang/prometheus"
)

const allowedOrigin = "http://localhost:5173"

type apiFixture struct {
	storage    *database.MemoryStorage
	hub        *streaming.Hub
	jwt        *auth.JWTService
	metrics    *performance.Metrics
	helper     *testutil.HTTPTestHelper
	adminToken string
	userToken  string
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Database: config.DatabaseConfig{
			Driver: config.DriverMemory,
		},
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret-key-for-testing-only",
			JWTIssuer:     "chipzone",
			JWTExpiration: 15 * time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			GlobalLimit:  1000,
			GlobalWindow: time.Minute,
			UserLimit:    1000,
			UserWindow:   time.Minute,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{allowedOrigin}},
	}
}

func newAPIFixture(t *testing.T, db Pinger) *apiFixture {
	t.Helper()
	cfg := testConfig()

	storage := database.NewMemoryStorage()
	hub := streaming.NewHub(streaming.NewManager())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	metrics, err := performance.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	store := zones.NewStore(storage, zones.WithNotifier(hub), zones.WithObserver(metrics))
	engine := analytics.NewEngine(store, storage, storage, analytics.WithObserver(metrics))
	jwtService := auth.NewJWTService(cfg.Auth)

	handler := NewRouter(Dependencies{
		Config:    cfg,
		Zones:     store,
		Analytics: engine,
		JWT:       jwtService,
		Hub:       hub,
		Metrics:   metrics,
		DB:        db,
	})

	f := &apiFixture{
		storage: storage,
		hub:     hub,
		jwt:     jwtService,
		metrics: metrics,
		helper:  testutil.NewHTTPTestHelper(handler),
	}
	f.adminToken = f.token(t, 1, auth.RoleAdmin)
	f.userToken = f.token(t, 2, auth.RoleUser)
	return f
}

func (f *apiFixture) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, err := f.jwt.GenerateAccessToken(userID, "tester", role)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	return token
}

func zoneBody(name string, ring []geometry.GeoPoint) map[string]interface{} {
	return map[string]interface{}{
		"name":       name,
		"areaPoints": ring,
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(ctx context.Context) error { return p.err }
