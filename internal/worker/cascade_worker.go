// Package worker finishes project deactivation cascades in the background.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"timetrack/internal/amqp"
	applog "timetrack/internal/log"
	"timetrack/internal/middleware/metrics"
	"timetrack/internal/storage"
)

// Store is what the worker needs from a backend.
type Store interface {
	storage.OrphanFinder
	DeleteEntriesByProject(ctx context.Context, ownerID, projectID string) (int64, error)
}

// CascadeWorker removes the time entries of deactivated projects. It reacts
// to deactivation events and periodically sweeps for entries an interrupted
// cascade left behind.
type CascadeWorker struct {
	store  Store
	logger *applog.Logger
}

func NewCascadeWorker(store Store, logger *applog.Logger) *CascadeWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &CascadeWorker{store: store, logger: logger.WithComponent(applog.ComponentWorker)}
}

// HandleProjectDeactivated purges whatever the request path did not remove.
// Deleting is idempotent, so redelivered messages are harmless.
func (w *CascadeWorker) HandleProjectDeactivated(ctx context.Context, msg *amqp.ProjectDeactivatedMessage) error {
	n, err := w.store.DeleteEntriesByProject(ctx, msg.OwnerID, msg.ProjectID)
	if err != nil {
		return fmt.Errorf("purge entries of project %s: %w", msg.ProjectID, err)
	}
	metrics.RecordPurged(n)
	if n > 0 {
		w.logger.InfoContext(ctx, "Purged leftover time entries",
			applog.FieldProjectID, msg.ProjectID,
			applog.FieldPurged, n)
	}
	return nil
}

// Sweep purges entries of every inactive project that still owns some.
// It keeps going past individual failures and reports them together.
func (w *CascadeWorker) Sweep(ctx context.Context) (int64, error) {
	refs, err := w.store.ListOrphanedProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list orphaned projects: %w", err)
	}

	var total int64
	var errs []error
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := w.store.DeleteEntriesByProject(ctx, ref.OwnerID, ref.ProjectID)
		if err != nil {
			errs = append(errs, fmt.Errorf("project %s: %w", ref.ProjectID, err))
			continue
		}
		total += n
	}
	metrics.RecordPurged(total)

	if len(refs) > 0 {
		w.logger.InfoContext(ctx, "Orphan sweep completed",
			"projects", len(refs),
			applog.FieldPurged, total,
			"errors", len(errs))
	}
	return total, errors.Join(errs...)
}

// RunScheduled sweeps on schedule (standard cron syntax or a descriptor
// such as "@every 15m") until ctx ends.
func (w *CascadeWorker) RunScheduled(ctx context.Context, schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		if _, err := w.Sweep(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep %q: %w", schedule, err)
	}

	c.Start()
	w.logger.InfoContext(ctx, "Sweep scheduled", "schedule", schedule)
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
