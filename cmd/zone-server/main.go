package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chipzone/server/internal/analytics"
	"github.com/chipzone/server/internal/api"
	"github.com/chipzone/server/internal/auth"
	"github.com/chipzone/server/internal/config"
	"github.com/chipzone/server/internal/database"
	"github.com/chipzone/server/internal/performance"
	"github.com/chipzone/server/internal/streaming"
	"github.com/chipzone/server/internal/zones"
	"github.com/prometheus/client_golang/prometheus"
)

// main starts the zone server. With -issue-token it prints a signed access
// token for the given user and role instead.
func main() {
	issueToken := flag.Bool("issue-token", false, "print an access token and exit")
	userID := flag.Int64("user-id", 1, "user id for -issue-token")
	username := flag.String("username", "admin", "username for -issue-token")
	role := flag.String("role", auth.RoleAdmin, "role for -issue-token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	jwtService := auth.NewJWTService(cfg.Auth)
	if *issueToken {
		token, err := jwtService.GenerateAccessToken(*userID, *username, *role)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, jwtService); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

type storage struct {
	zones     zones.Repository
	points    analytics.PointStore
	movements analytics.MovementStore
	db        api.Pinger
	close     func() error
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig) (*storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Printf("[Database] Using in-memory storage; data is lost on exit")
		memory := database.NewMemoryStorage()
		return &storage{
			zones:     memory,
			points:    memory,
			movements: memory,
			close:     func() error { return nil },
		}, nil
	default:
		db, err := database.Open(cfg)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &storage{
			zones:     database.NewZoneStorage(db),
			points:    database.NewPointStorage(db),
			movements: database.NewMovementStorage(db),
			db:        db,
			close:     db.Close,
		}, nil
	}
}

func run(ctx context.Context, cfg *config.Config, jwtService *auth.JWTService) error {
	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			log.Printf("[Database] Failed to close: %v", err)
		}
	}()

	metrics, err := performance.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	hub := streaming.NewHub(streaming.NewManager())
	go hub.Run(ctx)
	if err := metrics.RegisterGaugeFunc(prometheus.DefaultRegisterer, "zone_feed_clients",
		"Connected zone feed clients.", func() float64 { return float64(hub.ClientCount()) }); err != nil {
		return err
	}

	zoneStore := zones.NewStore(store.zones,
		zones.WithPolicy(zones.Policy{CheckContainmentOnUpdate: cfg.Zones.CheckContainmentOnUpdate}),
		zones.WithNotifier(hub),
		zones.WithObserver(metrics),
	)
	engine := analytics.NewEngine(zoneStore, store.movements, store.points, analytics.WithObserver(metrics))

	server := &http.Server{
		Addr: cfg.Server.Address(),
		Handler: api.NewRouter(api.Dependencies{
			Config:    cfg,
			Zones:     zoneStore,
			Analytics: engine,
			JWT:       jwtService,
			Hub:       hub,
			Metrics:   metrics,
			DB:        store.db,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Zone server starting on %s (environment=%s, storage=%s)", server.Addr, cfg.Server.Environment, cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("Shutting down zone server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
