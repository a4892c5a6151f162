package jobs

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FernandoPintoL/plataforma-educativa-sub011/internal/platform/logger"
)

// Worker drives every registered handler on a fixed tick. Handlers of one
// tick run concurrently; a slow or failing handler never skips the others.
type Worker struct {
	registry *Registry
	interval time.Duration
	log      *logger.Logger
}

func NewWorker(registry *Registry, interval time.Duration, baseLog *logger.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		registry: registry,
		interval: interval,
		log:      baseLog.With("service", "JobWorker"),
	}
}

// Start blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("job worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			w.log.Info("job worker stopped")
			return
		case <-ticker.C:
			w.runAll(ctx)
		}
	}
}

func (w *Worker) runAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range w.registry.All() {
		h := h
		g.Go(func() error {
			if err := h.Run(gctx); err != nil {
				w.log.Error("job failed", "job_type", h.Type(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
