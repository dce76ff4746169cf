package services

import (
	"context"
	"log/slog"

	"timetrack/internal/core"
	applog "timetrack/internal/log"
)

// Event kinds published after a successful commit.
const (
	EventEntryCreated       = "entry.created"
	EventEntryUpdated       = "entry.updated"
	EventEntryDeleted       = "entry.deleted"
	EventProjectDeactivated = "project.deactivated"
)

// EventPublisher announces committed changes. Publishing is best effort:
// a failure is logged and never undoes the write.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, kind string, e core.TimeEntry) error
	PublishProjectDeactivated(ctx context.Context, ownerID, projectID string, purged int64) error
}

func publishEntry(ctx context.Context, p EventPublisher, kind string, e core.TimeEntry) {
	if p == nil {
		return
	}
	if err := p.PublishEntryEvent(ctx, kind, e); err != nil {
		fields := applog.NewFields().
			WithComponent(applog.ComponentEntries).
			WithOwner(e.OwnerID).
			WithEntry(e.ID, e.ProjectID).
			WithOperation(kind).
			WithError(err)
		slog.ErrorContext(ctx, "Failed to publish entry event", fields.ToSlice()...)
	}
}
