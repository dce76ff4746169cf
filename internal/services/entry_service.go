package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"timetrack/internal/core"
	"timetrack/internal/storage"
)

// EntryInput is a create request. Times use core.InstantLayout.
type EntryInput struct {
	ProjectID   string
	StartTime   string
	EndTime     string
	Description string
}

// EntryPatch is an update request; nil fields and empty bounds keep the
// stored value.
type EntryPatch struct {
	ProjectID   *string
	StartTime   *string
	EndTime     *string
	Description *string
}

// EntryService runs the write path for time entries: parse, validate the
// interval against the clock, check overlaps, derive the duration, commit.
type EntryService struct {
	entries  storage.EntryStore
	projects storage.ProjectStore
	events   EventPublisher
	clock    core.Clock
	locks    *ownerLocks
	newID    func() string
}

func NewEntryService(entries storage.EntryStore, projects storage.ProjectStore, events EventPublisher, clock core.Clock) *EntryService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &EntryService{
		entries:  entries,
		projects: projects,
		events:   events,
		clock:    clock,
		locks:    newOwnerLocks(),
		newID:    uuid.NewString,
	}
}

// Create admits a new entry for ownerID.
func (s *EntryService) Create(ctx context.Context, ownerID string, in EntryInput) (core.TimeEntry, error) {
	if err := core.ValidateDescription(in.Description); err != nil {
		return core.TimeEntry{}, err
	}
	start, err := parseBound("startTime", "Invalid start time format", in.StartTime)
	if err != nil {
		return core.TimeEntry{}, err
	}
	end, err := parseBound("endTime", "Invalid end time format", in.EndTime)
	if err != nil {
		return core.TimeEntry{}, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	if _, err := s.projects.GetProject(ctx, ownerID, in.ProjectID); err != nil {
		return core.TimeEntry{}, err
	}

	iv := core.Interval{Start: start, End: end}
	if err := s.admit(ctx, ownerID, iv, ""); err != nil {
		return core.TimeEntry{}, err
	}

	now := s.clock.Now().UTC()
	e := core.TimeEntry{
		ID:          s.newID(),
		OwnerID:     ownerID,
		ProjectID:   in.ProjectID,
		Start:       start,
		End:         end,
		Duration:    core.DurationMinutes(start, end),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.entries.CreateEntry(ctx, e); err != nil {
		return core.TimeEntry{}, fmt.Errorf("save time entry: %w", err)
	}

	publishEntry(ctx, s.events, EventEntryCreated, e)
	return e, nil
}

// Update applies patch to an existing entry. Omitted or empty bounds inherit
// the stored values and the merged interval goes through the same checks as
// Create, with the entry itself excluded from the overlap scan.
func (s *EntryService) Update(ctx context.Context, ownerID, id string, patch EntryPatch) (core.TimeEntry, error) {
	if patch.Description != nil {
		if err := core.ValidateDescription(*patch.Description); err != nil {
			return core.TimeEntry{}, err
		}
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	e, err := s.entries.GetEntry(ctx, ownerID, id)
	if err != nil {
		return core.TimeEntry{}, err
	}

	if patch.StartTime != nil && *patch.StartTime != "" {
		if e.Start, err = parseBound("startTime", "Invalid start time format", *patch.StartTime); err != nil {
			return core.TimeEntry{}, err
		}
	}
	if patch.EndTime != nil && *patch.EndTime != "" {
		if e.End, err = parseBound("endTime", "Invalid end time format", *patch.EndTime); err != nil {
			return core.TimeEntry{}, err
		}
	}
	if patch.ProjectID != nil && *patch.ProjectID != e.ProjectID {
		if _, err := s.projects.GetProject(ctx, ownerID, *patch.ProjectID); err != nil {
			return core.TimeEntry{}, err
		}
		e.ProjectID = *patch.ProjectID
	}
	if patch.Description != nil {
		e.Description = strings.TrimSpace(*patch.Description)
	}

	if err := s.admit(ctx, ownerID, e.Interval(), e.ID); err != nil {
		return core.TimeEntry{}, err
	}

	e.Duration = core.DurationMinutes(e.Start, e.End)
	e.UpdatedAt = s.clock.Now().UTC()
	if err := s.entries.UpdateEntry(ctx, e); err != nil {
		return core.TimeEntry{}, fmt.Errorf("update time entry: %w", err)
	}

	publishEntry(ctx, s.events, EventEntryUpdated, e)
	return e, nil
}

func (s *EntryService) Delete(ctx context.Context, ownerID, id string) error {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	e, err := s.entries.GetEntry(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.entries.DeleteEntry(ctx, ownerID, id); err != nil {
		return err
	}
	publishEntry(ctx, s.events, EventEntryDeleted, e)
	return nil
}

func (s *EntryService) Get(ctx context.Context, ownerID, id string) (core.TimeEntry, error) {
	return s.entries.GetEntry(ctx, ownerID, id)
}

// ListByProject returns the entries of an active project, newest first.
func (s *EntryService) ListByProject(ctx context.Context, ownerID, projectID string) ([]core.TimeEntry, error) {
	if _, err := s.projects.GetProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	return s.entries.ListEntriesByProject(ctx, ownerID, projectID)
}

// admit validates iv against the clock and the owner's other entries.
func (s *EntryService) admit(ctx context.Context, ownerID string, iv core.Interval, excludeID string) error {
	if err := iv.Validate(); err != nil {
		return err
	}
	if iv.End.After(s.clock.Now().Add(core.FutureSkew)) {
		return core.Errorf(core.KindInvalidRange, "End time cannot be more than 5 minutes in the future")
	}

	// Only entries sharing a positive span can exceed the tolerance, so the
	// store may narrow the scan without changing the outcome.
	near, err := s.entries.ListEntriesOverlapping(ctx, ownerID, iv.Start, iv.End)
	if err != nil {
		return fmt.Errorf("load entries for overlap check: %w", err)
	}
	if _, hit := core.FindCollision(iv, core.Occupancy(near), core.OverlapTolerance, excludeID); hit {
		return core.OverlapError(core.OverlapTolerance)
	}
	return nil
}

func parseBound(field, message, value string) (time.Time, error) {
	t, err := core.ParseLocalInstant(value)
	if err != nil {
		return time.Time{}, &core.Error{
			Kind:    core.KindInvalidFormat,
			Field:   field,
			Message: message + ". Use " + core.InstantPattern,
			Err:     err,
		}
	}
	return t, nil
}
