// Package app wires the sync engine together: local store, device identity,
// reachability monitor with its probe, the orchestrator and the status API.
// It owns process lifecycle; the host embeds App and uses the exposed
// services.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/quotesync/internal/client/config"
	"github.com/dmitrijs2005/quotesync/internal/client/connectivity"
	"github.com/dmitrijs2005/quotesync/internal/client/services"
	"github.com/dmitrijs2005/quotesync/internal/client/statusapi"
	"github.com/dmitrijs2005/quotesync/internal/client/store"
	"github.com/dmitrijs2005/quotesync/internal/client/syncer"
	"github.com/dmitrijs2005/quotesync/internal/client/transport"
	"github.com/dmitrijs2005/quotesync/internal/device"
	"github.com/dmitrijs2005/quotesync/internal/logging"
)

type App struct {
	config       *config.Config
	logger       logging.Logger
	store        *store.Store
	client       transport.Client
	monitor      *connectivity.Monitor
	orchestrator *syncer.Orchestrator

	// QuoteService and StatusService are the surfaces the host talks to.
	QuoteService  services.QuoteService
	StatusService services.StatusService
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	ctx := context.Background()

	st, err := store.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	deviceID, err := device.Load(c.DeviceIDPath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	client := transport.NewHTTPClient(c.ServerEndpointAddr, c.RequestTimeout)

	// Start pessimistic; the first successful probe flips the monitor
	// online and wakes the orchestrator.
	monitor := connectivity.NewMonitor(connectivity.Offline)

	policy := syncer.BackoffPolicy{
		Base:       c.RetryBase,
		MaxDelay:   c.RetryMaxDelay,
		Jitter:     c.RetryJitter,
		MaxRetries: c.MaxRetries,
	}
	queue := syncer.NewQueueManager(st.Queue, policy, logger)
	detector := syncer.NewDetector(st.Versions, st.ChangeLog, logger)
	orchestrator := syncer.NewOrchestrator(st, queue, client, detector, monitor,
		syncer.Options{Fanout: c.Fanout, Interval: c.SyncInterval}, logger)

	return &App{
		config:        c,
		logger:        logger,
		store:         st,
		client:        client,
		monitor:       monitor,
		orchestrator:  orchestrator,
		QuoteService:  services.NewQuoteService(st, deviceID, orchestrator, logger),
		StatusService: services.NewStatusService(st, queue, monitor, orchestrator),
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

// startReachabilityProbe is the default event source for the monitor: it
// pings the server at the configured interval and feeds transitions in.
// A platform with real reachability callbacks can call monitor.Set directly
// instead and run with a long probe interval.
func (app *App) startReachabilityProbe(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := app.client.Ping(pctx)
			cancel()

			if err != nil {
				app.monitor.Set(connectivity.Offline)
			} else {
				app.monitor.Set(connectivity.Online)
			}

		case <-ctx.Done():
			return
		}
	}
}

func (app *App) startStatusServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:    app.config.StatusAddr,
		Handler: statusapi.NewHandler(app.StatusService, app.logger),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, "status server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting sync engine",
		"server", app.config.ServerEndpointAddr, "db", app.config.DatabaseDSN)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.orchestrator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			app.logger.Error(ctx, "orchestrator stopped", "error", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startReachabilityProbe(ctx, app.config.ProbeInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startStatusServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "failed to close store", "error", err)
	}
}
