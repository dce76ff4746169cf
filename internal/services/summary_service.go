package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"timetrack/internal/core"
	"timetrack/internal/storage"
)

// SummaryService fetches an owner's snapshot and reduces it with core.Summarize.
type SummaryService struct {
	projects storage.ProjectStore
	entries  storage.EntryStore
}

func NewSummaryService(projects storage.ProjectStore, entries storage.EntryStore) *SummaryService {
	return &SummaryService{projects: projects, entries: entries}
}

// ParseRange validates the optional from/to query values.
func (s *SummaryService) ParseRange(from, to string) (core.RangeFilter, error) {
	return core.NewRangeFilter(from, to)
}

// Summarize returns per-project metrics and the overview for the range.
func (s *SummaryService) Summarize(ctx context.Context, ownerID string, f core.RangeFilter) (core.Summary, error) {
	var (
		projects []core.Project
		entries  []core.TimeEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = s.entries.ListEntriesEndingBetween(gctx, ownerID, f.From, f.To)
		if err != nil {
			return fmt.Errorf("load entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		projects, err = s.projects.ListProjects(gctx, ownerID)
		if err != nil {
			return fmt.Errorf("load projects: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, err
	}

	return core.Summarize(projects, entries, f), nil
}

func (s *SummaryService) Projects(ctx context.Context, ownerID string, f core.RangeFilter) ([]core.ProjectSummary, error) {
	sum, err := s.Summarize(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	return sum.Projects, nil
}

func (s *SummaryService) Overview(ctx context.Context, ownerID string, f core.RangeFilter) (core.Overview, error) {
	sum, err := s.Summarize(ctx, ownerID, f)
	if err != nil {
		return core.Overview{}, err
	}
	return sum.Overview, nil
}
