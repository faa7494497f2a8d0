package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/polyarb/internal/domain"
	"github.com/alanyoungcy/polyarb/internal/scanner"
)

// Controller exposes start/stop lifecycle control over the scanner for the
// HTTP API. It owns the goroutine running continuous mode; the scanner
// itself only knows how to run, not when.
type Controller struct {
	scanner *scanner.Scanner
	base    context.Context
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a Controller. The base context bounds the lifetime
// of every continuous run it starts.
func NewController(base context.Context, sc *scanner.Scanner, logger *slog.Logger) *Controller {
	return &Controller{
		scanner: sc,
		base:    base,
		logger:  logger.With(slog.String("component", "controller")),
	}
}

// StartContinuous launches continuous scanning in a background goroutine.
// It returns false if a continuous run is already active.
func (c *Controller) StartContinuous() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(c.base)
	c.cancel = cancel
	done := make(chan struct{})
	c.done = done

	go func() {
		defer close(done)
		if err := c.scanner.RunContinuous(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error("continuous scanning exited", slog.String("error", err.Error()))
		}
		c.mu.Lock()
		if c.done == done {
			c.cancel = nil
			c.done = nil
		}
		c.mu.Unlock()
	}()

	return true
}

// StopContinuous halts the active continuous run. The current cycle finishes
// before the loop exits. It returns false if nothing is running.
func (c *Controller) StopContinuous() bool {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel == nil {
		return false
	}

	c.scanner.Stop()
	cancel()
	return true
}

// TriggerScan runs a single on-demand cycle through the scanner.
func (c *Controller) TriggerScan(ctx context.Context) scanner.ScanOutcome {
	return c.scanner.TriggerScan(ctx)
}

// Status reports the scanner's current state.
func (c *Controller) Status() domain.ScannerStatus {
	return c.scanner.Status()
}

// Wait blocks until the active continuous run (if any) has fully stopped.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}
