package services

import (
	"timetrack/internal/core"
	"timetrack/internal/storage"
)

// Services bundles the application services over one store.
type Services struct {
	Auth     *AuthService
	Projects *ProjectService
	Entries  *EntryService
	Summary  *SummaryService
}

// New wires every service to store. Entry writes and project deactivation
// share one set of per-owner locks so a cascade cannot race an insert.
// events may be nil.
func New(store storage.Store, events EventPublisher, hasher PasswordHasher, tokens TokenIssuer, clock core.Clock) *Services {
	projects := NewProjectService(store, store, events, clock)
	entries := NewEntryService(store, store, events, clock)
	entries.locks = projects.locks

	return &Services{
		Auth:     NewAuthService(store, hasher, tokens, clock),
		Projects: projects,
		Entries:  entries,
		Summary:  NewSummaryService(store, store),
	}
}
