package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/everforgeworks/fabline/internal/api"
	"github.com/everforgeworks/fabline/internal/clock"
	"github.com/everforgeworks/fabline/internal/config"
	"github.com/everforgeworks/fabline/internal/database"
	"github.com/everforgeworks/fabline/internal/game"
	"github.com/everforgeworks/fabline/internal/metrics"
	"github.com/everforgeworks/fabline/internal/progress"
)

// NewServeCommand starts the game server
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	// 1. Load the level catalog from YAML
	catalog, err := loadCatalog(cfg.Levels.File)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	// 2. Open the progress store
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	store := progress.NewGormStore(db, clock.RealClock{})
	if err := store.Seed(ctx); err != nil {
		return err
	}

	manager := game.NewManager(catalog, store, clock.RealClock{}, cfg.Session.TTL)

	// 3. Metrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		collector := metrics.NewGameCollector()
		if err := collector.Register(); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		manager.SetRecorder(collector)
	}

	// 4. Real-Time WebSocket Hub
	hub := api.NewHub()
	go hub.Run(ctx)
	manager.SetNotifier(hub.Publish)

	// 5. THE SESSION HEARTBEAT
	// Drops sessions nobody has touched within the TTL.
	go func() {
		ticker := time.NewTicker(cfg.Session.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if expired := manager.SweepIdle(); len(expired) > 0 {
					log.Printf("[SESSION] Heartbeat: expired %d idle sessions", len(expired))
				}
			}
		}
	}()

	// 6. Hot-reload logic: Listen for SIGHUP to refresh the catalog without restart
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGHUP)
		defer signal.Stop(sigChan)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigChan:
				log.Println("SIGNAL: Reloading level catalog...")
				next, err := loadCatalog(cfg.Levels.File)
				if err != nil {
					log.Printf("SIGNAL: Reload failed, keeping current catalog: %v", err)
					continue
				}
				manager.ReloadCatalog(next)
			}
		}
	}()

	// 7. Setup Router and Handlers
	mux := api.NewServer(manager, store, hub).Routes()
	if metrics.IsEnabled() {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
	}
	limit := api.RateLimitMiddleware(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Burst)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.CORSMiddleware(limit(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 8. Start the Server
	errCh := make(chan error, 1)
	go func() {
		log.Printf("FABLINE: Server live on %s", cfg.Server.Addr)
		log.Printf("Real-time Hub: Online")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Println("SIGNAL: Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
