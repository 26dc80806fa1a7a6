// Package server initializes and runs the authoritative checkpost server.
// It opens PostgreSQL, applies migrations, wires services, and runs the
// gRPC API, the HTTP webhook/metrics listener and the overdue-alert
// scanner until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/buildinfo"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/server/config"
	"github.com/dmitrijs2005/checkpost/internal/server/httpapi"
	"github.com/dmitrijs2005/checkpost/internal/server/metrics"
	"github.com/dmitrijs2005/checkpost/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/server/services"
	"github.com/dmitrijs2005/checkpost/internal/timex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/checkpost/internal/server/grpc"
)

// Services bundles the server's business services over one database.
type Services struct {
	Rangers    *services.RangerService
	Passages   *services.PassageService
	Reconciler *services.Reconciler
	Alerts     *services.AlertService
	Photos     *services.PhotoService
	SMS        *services.SMSService
}

// NewServices wires every service against db.
func NewServices(db *sql.DB, rm repomanager.RepositoryManager, cfg *config.Config, mt *metrics.Metrics, l logging.Logger) *Services {
	rc := services.NewReconciler(db, rm, mt, l)
	ps := services.NewPassageService(db, rm, rc, mt, l)
	return &Services{
		Rangers:    services.NewRangerService(db, rm, cfg),
		Passages:   ps,
		Reconciler: rc,
		Alerts:     services.NewAlertService(db, rm, timex.SystemClock{}, mt, l),
		Photos:     services.NewPhotoService(cfg),
		SMS:        services.NewSMSService(db, rm, ps, mt, l),
	}
}

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	registry *prometheus.Registry
	services *Services
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)

	db, err := repomanager.OpenDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(db, "checkpost"))
	mt := metrics.New(registry)

	return &App{
		config:   c,
		logger:   logger,
		db:       db,
		registry: registry,
		services: NewServices(db, rm, c, mt, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger,
		app.services.Rangers, app.services.Passages, app.services.Reconciler, app.services.Photos,
		app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	router := httpapi.NewRouter(app.services.SMS, app.config.SMSWebhookToken, app.registry, app.logger)
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// runScanner raises overdue alerts and purges expired refresh tokens on
// every tick until ctx is done.
func (app *App) runScanner(ctx context.Context) {
	ticker := time.NewTicker(app.config.OverdueScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := app.services.Alerts.ScanOverdue(ctx); err != nil {
				app.logger.Error(ctx, "overdue scan failed", "err", err)
			}
			if n, err := app.services.Rangers.PurgeExpiredTokens(ctx); err != nil {
				app.logger.Error(ctx, "token purge failed", "err", err)
			} else if n > 0 {
				app.logger.Debug(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "version", buildinfo.Version, "commit", buildinfo.Commit)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.runScanner(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "err", err)
	}
	app.logger.Info(context.Background(), "Stopped")
}
