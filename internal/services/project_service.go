package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"timetrack/internal/core"
	"timetrack/internal/storage"
)

type ProjectInput struct {
	Name        string
	Description string
	IsBillable  bool
	HourlyRate  *float64
}

// ProjectPatch is a partial update; nil fields are left unchanged.
type ProjectPatch struct {
	Name        *string
	Description *string
	IsBillable  *bool
	HourlyRate  *float64
}

// ProjectService owns project CRUD and the deactivation cascade.
type ProjectService struct {
	projects storage.ProjectStore
	entries  storage.EntryStore
	events   EventPublisher
	clock    core.Clock
	locks    *ownerLocks
	newID    func() string
}

func NewProjectService(projects storage.ProjectStore, entries storage.EntryStore, events EventPublisher, clock core.Clock) *ProjectService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &ProjectService{
		projects: projects,
		entries:  entries,
		events:   events,
		clock:    clock,
		locks:    newOwnerLocks(),
		newID:    uuid.NewString,
	}
}

func (s *ProjectService) Create(ctx context.Context, ownerID string, in ProjectInput) (core.Project, error) {
	now := s.clock.Now().UTC()
	p := core.Project{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		IsBillable:  in.IsBillable,
		HourlyRate:  in.HourlyRate,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	if err := s.projects.CreateProject(ctx, p); err != nil {
		return core.Project{}, fmt.Errorf("save project: %w", err)
	}
	return p, nil
}

func (s *ProjectService) Get(ctx context.Context, ownerID, id string) (core.Project, error) {
	return s.projects.GetProject(ctx, ownerID, id)
}

// List returns the owner's active projects.
func (s *ProjectService) List(ctx context.Context, ownerID string) ([]core.Project, error) {
	return s.projects.ListProjects(ctx, ownerID)
}

// Update merges patch into the stored project. Turning billing on needs a
// rate in the same patch; turning it off drops the stored rate.
func (s *ProjectService) Update(ctx context.Context, ownerID, id string, patch ProjectPatch) (core.Project, error) {
	if patch.IsBillable != nil && *patch.IsBillable && patch.HourlyRate == nil {
		return core.Project{}, core.FieldError(core.KindValidation, "hourlyRate", "Hourly rate is required when project is billable")
	}

	p, err := s.projects.GetProject(ctx, ownerID, id)
	if err != nil {
		return core.Project{}, err
	}

	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.IsBillable != nil {
		p.IsBillable = *patch.IsBillable
		if !p.IsBillable {
			p.HourlyRate = nil
		}
	}
	if patch.HourlyRate != nil {
		p.HourlyRate = patch.HourlyRate
	}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}

	p.UpdatedAt = s.clock.Now().UTC()
	if err := s.projects.UpdateProject(ctx, p); err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// Deactivate soft-deletes the project and removes all of its entries.
//
// Stores implementing storage.ProjectCascader do both steps atomically.
// Otherwise the project is deactivated first; if the entry purge then
// fails the error has kind PartialFailure and the cascade worker's sweep
// finishes the purge later.
func (s *ProjectService) Deactivate(ctx context.Context, ownerID, id string) (int64, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	now := s.clock.Now().UTC()
	var purged int64

	if c, ok := s.projects.(storage.ProjectCascader); ok {
		n, err := c.DeactivateProjectCascade(ctx, ownerID, id, now)
		if err != nil {
			return 0, err
		}
		purged = n
	} else {
		if err := s.projects.DeactivateProject(ctx, ownerID, id, now); err != nil {
			return 0, err
		}
		n, err := s.entries.DeleteEntriesByProject(ctx, ownerID, id)
		if err != nil {
			return 0, &core.Error{
				Kind:    core.KindPartialFailure,
				Message: "Project was deactivated but its time entries could not be removed",
				Err:     err,
			}
		}
		purged = n
	}

	slog.InfoContext(ctx, "Project deactivated", "project_id", id, "entries_removed", purged)

	if s.events != nil {
		if err := s.events.PublishProjectDeactivated(ctx, ownerID, id, purged); err != nil {
			slog.ErrorContext(ctx, "Failed to publish project event", "project_id", id, "error", err)
		}
	}
	return purged, nil
}
