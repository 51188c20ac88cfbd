/*
main.go - Application entry point

PURPOSE:

	Initializes and starts the slot engine server. Handles configuration,
	dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
 1. Parse command-line flags and load configuration (file, .env, env)
 2. Set up logging and register metrics
 3. Open the SQLite store and load the legal term table
 4. Wire the event bus and its subscribers
 5. Start the risk scan scheduler
 6. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:

	-config  Configuration file (default: ./configs/config.yaml)

GRACEFUL SHUTDOWN:

	On SIGINT/SIGTERM:
	1. Stop the scheduler (waits for a running scan)
	2. Stop accepting new connections
	3. Wait for active requests to complete (30s timeout)
	4. Close the database connection

EXAMPLES:

	# Run with the repository config
	./server

	# In-memory database on another port
	DB_PATH=":memory:" PORT=3000 ./server

SEE ALSO:
  - config/config.go: configuration sources and env variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
	"github.com/warp/slot-engine/api"
	"github.com/warp/slot-engine/config"
	"github.com/warp/slot-engine/events"
	"github.com/warp/slot-engine/factory"
	"github.com/warp/slot-engine/logging"
	"github.com/warp/slot-engine/metrics"
	"github.com/warp/slot-engine/service"
	"github.com/warp/slot-engine/store/sqlite"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

func main() {
	configFile := flag.String("config", config.DefaultFile, "Configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logging.Setup(cfg.Logger); err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer logging.Cleanup()
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer store.Close()

	rules, err := factory.LoadLegalRules(cfg.Rules.File)
	if err != nil {
		log.Fatalf("failed to load legal rules: %v", err)
	}

	holidays, err := cfg.Deadlines.Calendar()
	if err != nil {
		log.Fatalf("invalid holidays: %v", err)
	}

	bus := EventBus.New()
	if err := events.SubscribeDefaults(bus); err != nil {
		log.Fatalf("failed to subscribe event handlers: %v", err)
	}

	svc := service.New(store, service.Options{
		Thresholds: tempcontract.RiskThresholds{
			TerminationDays: cfg.Risk.TerminationDays,
			ExtensionDays:   cfg.Risk.ExtensionDays,
		},
		Deadlines: waitlist.NoticeDeadlines{
			PossessionDays: cfg.Deadlines.PossessionDays,
			ExerciseDays:   cfg.Deadlines.ExerciseDays,
		},
		Publisher: bus,
		Holidays:  holidays,
	})
	if err := svc.SaveLegalRules(ctx, rules); err != nil {
		log.Fatalf("failed to store legal rules: %v", err)
	}

	scanner, err := api.NewRiskScanScheduler(svc, bus, cfg.Scheduler.RiskScanCron)
	if err != nil {
		log.Fatalf("failed to create risk scanner: %v", err)
	}
	scanner.Enabled = cfg.Scheduler.Enabled
	scanner.Start()

	handler := api.NewHandler(svc, store, rules)
	handler.Scanner = scanner

	server := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: api.NewRouter(handler, api.RouterOptions{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Server starting on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithField(logging.ErrorTypeField, logging.ErrorTypeHTTP).Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")
	scanner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}
	log.Info("Server stopped")
}
