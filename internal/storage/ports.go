package storage

import (
	"context"
	"time"

	"timetrack/internal/core"
)

// Lookups return an error matching core.ErrNotFound when the row is missing
// or owned by someone else. Inserts that break a unique key return
// core.ErrConflict.

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) error
	GetUser(ctx context.Context, id string) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p core.Project) error
	// GetProject only returns active projects.
	GetProject(ctx context.Context, ownerID, id string) (core.Project, error)
	// ListProjects returns the owner's active projects, oldest first.
	ListProjects(ctx context.Context, ownerID string) ([]core.Project, error)
	UpdateProject(ctx context.Context, p core.Project) error
	// DeactivateProject flips is_active off. Entries are left alone.
	DeactivateProject(ctx context.Context, ownerID, id string, at time.Time) error
}

type EntryStore interface {
	CreateEntry(ctx context.Context, e core.TimeEntry) error
	GetEntry(ctx context.Context, ownerID, id string) (core.TimeEntry, error)
	UpdateEntry(ctx context.Context, e core.TimeEntry) error
	DeleteEntry(ctx context.Context, ownerID, id string) error
	// ListEntries returns every entry of the owner ordered by start time.
	ListEntries(ctx context.Context, ownerID string) ([]core.TimeEntry, error)
	// ListEntriesOverlapping returns entries with start < end and end > start,
	// i.e. every entry sharing a positive span with [start, end).
	ListEntriesOverlapping(ctx context.Context, ownerID string, start, end time.Time) ([]core.TimeEntry, error)
	// ListEntriesByProject orders by start time, newest first.
	ListEntriesByProject(ctx context.Context, ownerID, projectID string) ([]core.TimeEntry, error)
	// ListEntriesEndingBetween filters on end time; nil bounds are open.
	ListEntriesEndingBetween(ctx context.Context, ownerID string, from, to *time.Time) ([]core.TimeEntry, error)
	DeleteEntriesByProject(ctx context.Context, ownerID, projectID string) (int64, error)
}

// ProjectCascader deactivates a project and removes its entries atomically.
type ProjectCascader interface {
	DeactivateProjectCascade(ctx context.Context, ownerID, id string, at time.Time) (int64, error)
}

// ProjectRef identifies a project across owners.
type ProjectRef struct {
	OwnerID   string
	ProjectID string
}

// OrphanFinder lists inactive projects that still own entries.
type OrphanFinder interface {
	ListOrphanedProjects(ctx context.Context) ([]ProjectRef, error)
}

// Store is everything a backend provides.
type Store interface {
	UserStore
	ProjectStore
	EntryStore
	ProjectCascader
	OrphanFinder
	Ping(ctx context.Context) error
	Close() error
}
