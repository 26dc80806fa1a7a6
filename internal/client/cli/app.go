package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/checkpost/internal/client/client"
	"github.com/dmitrijs2005/checkpost/internal/client/config"
	"github.com/dmitrijs2005/checkpost/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/checkpost/internal/client/services"
	"github.com/dmitrijs2005/checkpost/internal/client/sms"
	"github.com/dmitrijs2005/checkpost/internal/client/store"
	"github.com/dmitrijs2005/checkpost/internal/logging"
	"github.com/dmitrijs2005/checkpost/internal/timex"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// pingTimeout bounds a single reachability probe.
const pingTimeout = 3 * time.Second

type App struct {
	config   *config.Config
	log      logging.Logger
	db       *sql.DB
	rm       repomanager.RepositoryManager
	hub      *store.Hub
	client   client.Client
	auth     *services.AuthService
	recorder *services.Recorder
	engine   *services.SyncEngine
	photos   *services.PhotoService
	reader   *bufio.Reader
	out      io.Writer

	mu   sync.RWMutex
	mode Mode
}

// NewApp opens the local store and wires the device services. A failure to
// open the store is fatal; a missing SMS gateway only disables the fallback.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, err
	}

	apiClient, err := client.NewCheckpostClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var sender sms.Sender
	if c.GatewayNumber != "" {
		s, err := sms.NewSNSSenderFromConfig(ctx, c.AWSRegion, c.GatewayNumber, c.SMSPerMinute, log)
		if err != nil {
			log.Warn(ctx, "sms fallback disabled", "error", err)
		} else {
			sender = s
		}
	}

	a := &App{
		config: c,
		log:    log,
		db:     db,
		rm:     repomanager.NewSQLiteRepositoryManager(),
		hub:    store.NewHub(),
		client: apiClient,
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		mode:   ModeOffline,
	}

	clock := timex.SystemClock{}
	a.auth = services.NewAuthService(apiClient, db, a.rm, log)
	a.recorder = services.NewRecorder(db, a.rm, services.NewMatcher(a.rm, c.DefaultBounds, clock), a.hub, clock, log,
		c.CheckpostID, c.SegmentID)
	a.photos = services.NewPhotoService(apiClient, db, a.rm, a.hub, nil, log)
	a.engine = services.NewSyncEngine(db, a.rm, apiClient, sender, a, a.hub, clock, log, services.SyncConfig{
		CheckpostID:      c.CheckpostID,
		CheckpostCode:    c.CheckpostCode,
		SegmentID:        c.SegmentID,
		RangerPhone:      c.RangerPhone,
		DefaultBounds:    c.DefaultBounds,
		Interval:         c.SyncInterval,
		MaxAttempts:      c.MaxAttempts,
		SMSFallbackDelay: c.SMSFallbackDelay,
		PullLookback:     c.PullLookback,
		PullLimit:        c.PullLimit,
		CacheRetention:   c.CacheRetention,
	})

	return a, nil
}

// Online reports the result of the last reachability probe.
func (a *App) Online() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode == ModeOnline
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// setMode switches mode and reports whether it changed. Coming back online
// triggers a sync so the backlog drains without waiting for the timer.
func (a *App) setMode(ctx context.Context, mode Mode) bool {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if !changed {
		return false
	}
	a.log.Info(ctx, "connectivity changed", "mode", mode)
	if mode == ModeOnline && a.engine != nil {
		a.engine.Force()
	}
	return true
}

// Run resumes a saved session if there is one, starts the background
// workers and blocks in the REPL until the ranger exits.
func (a *App) Run(ctx context.Context) error {
	defer a.db.Close()
	defer a.client.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.probe(ctx)
	if err := a.auth.Resume(ctx); err != nil {
		a.log.Debug(ctx, "no session resumed", "error", err)
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()
	go func() {
		defer wg.Done()
		if err := a.engine.Run(ctx); err != nil {
			a.log.Error(ctx, "sync engine stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		a.watchViolations(ctx)
	}()

	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))

	cancel()
	wg.Wait()
	return nil
}

func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.auth.Ping(pctx)
	cancel()

	if err != nil {
		a.setMode(ctx, ModeOffline)
	} else {
		a.setMode(ctx, ModeOnline)
	}
}

// StartOnlineStatusWatcher probes the server every interval until ctx is
// done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}
