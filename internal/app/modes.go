package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/polyarb/internal/cache/redis"
	"github.com/alanyoungcy/polyarb/internal/server"
	"github.com/alanyoungcy/polyarb/internal/server/handler"
	"github.com/alanyoungcy/polyarb/internal/server/ws"
)

// shutdownTimeout bounds graceful HTTP shutdown on exit.
const shutdownTimeout = 10 * time.Second

// ScanMode starts continuous scanning immediately and, when enabled, the
// HTTP API alongside it.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	g, ctx := errgroup.WithContext(ctx)

	controller := NewController(ctx, deps.Scanner, a.logger)
	controller.StartContinuous()

	// Stop the scanner cleanly when the group winds down.
	g.Go(func() error {
		<-ctx.Done()
		controller.StopContinuous()
		controller.Wait()
		return ctx.Err()
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, controller)
	}

	a.startArchiver(ctx, g, deps)

	return g.Wait()
}

// ServeMode starts the HTTP API with the scanner idle. Scanning begins when
// a client calls the start endpoint or triggers a manual scan.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	controller := NewController(ctx, deps.Scanner, a.logger)
	a.startHTTPServer(ctx, g, deps, controller)
	a.startArchiver(ctx, g, deps)

	err := g.Wait()
	controller.StopContinuous()
	controller.Wait()
	return err
}

// OnceMode runs a single scan cycle and exits. Useful for cron-style
// scheduling and smoke testing.
func (a *App) OnceMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting single scan")

	outcome := deps.Scanner.TriggerScan(ctx)
	if outcome.Skipped {
		return fmt.Errorf("app: scan skipped: %s", outcome.Message)
	}

	a.logger.InfoContext(ctx, "scan finished",
		slog.Int("markets_scanned", outcome.MarketsScanned),
		slog.Int("opportunities_found", outcome.OpportunitiesFound),
	)
	return nil
}

// startHTTPServer registers all routes, attaches the WebSocket hub when the
// event bus is available, and runs the server under the group.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, controller *Controller) {
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, []string{
			redis.ChannelOpportunities,
			redis.ChannelScans,
		}, a.logger)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(a.logger),
		Scanner:       handler.NewScannerHandler(controller, a.logger),
		Opportunities: handler.NewOpportunityHandler(deps.OpportunityStore, deps.ScanStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startArchiver runs periodic cold-storage archival when S3 is configured.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}

	retention := time.Duration(a.cfg.S3.RetentionDays) * 24 * time.Hour
	interval := a.cfg.S3.Interval.Duration

	g.Go(func() error {
		return deps.Archiver.RunPeriodic(ctx, interval, retention)
	})
}
