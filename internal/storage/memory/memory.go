// Package memory is a map-backed storage.Store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"timetrack/internal/core"
	"timetrack/internal/storage"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]core.User
	projects map[string]core.Project
	entries  map[string]core.TimeEntry

	// failEntryDelete makes DeleteEntriesByProject fail; see FailEntryDeletes.
	failEntryDelete error
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]core.User),
		projects: make(map[string]core.Project),
		entries:  make(map[string]core.TimeEntry),
	}
}

// FailEntryDeletes makes bulk entry deletion return err until reset with nil.
func (s *Store) FailEntryDeletes(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failEntryDelete = err
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.Errorf(core.KindConflict, "Email is already registered")
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.Errorf(core.KindNotFound, "User not found")
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, core.Errorf(core.KindNotFound, "User not found")
}

func (s *Store) CreateProject(_ context.Context, p core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[p.ID] = cloneProject(p)
	return nil
}

func (s *Store) GetProject(_ context.Context, ownerID, id string) (core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.activeProject(ownerID, id)
	if !ok {
		return core.Project{}, core.Errorf(core.KindNotFound, "Project not found")
	}
	return cloneProject(p), nil
}

func (s *Store) ListProjects(_ context.Context, ownerID string) ([]core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Project
	for _, p := range s.projects {
		if p.OwnerID == ownerID && p.IsActive {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateProject(_ context.Context, p core.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.activeProject(p.OwnerID, p.ID)
	if !ok {
		return core.Errorf(core.KindNotFound, "Project not found")
	}
	cur.Name, cur.Description = p.Name, p.Description
	cur.IsBillable, cur.HourlyRate = p.IsBillable, p.HourlyRate
	cur.UpdatedAt = p.UpdatedAt
	s.projects[p.ID] = cloneProject(cur)
	return nil
}

func (s *Store) DeactivateProject(_ context.Context, ownerID, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deactivate(ownerID, id, at)
}

func (s *Store) DeactivateProjectCascade(_ context.Context, ownerID, id string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activeProject(ownerID, id); !ok {
		return 0, core.Errorf(core.KindNotFound, "Project not found")
	}
	if s.failEntryDelete != nil {
		return 0, s.failEntryDelete
	}
	if err := s.deactivate(ownerID, id, at); err != nil {
		return 0, err
	}
	return s.deleteByProject(ownerID, id), nil
}

func (s *Store) ListOrphanedProjects(context.Context) ([]storage.ProjectRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[storage.ProjectRef]bool{}
	var out []storage.ProjectRef
	for _, e := range s.entries {
		p, ok := s.projects[e.ProjectID]
		if !ok || p.IsActive {
			continue
		}
		ref := storage.ProjectRef{OwnerID: p.OwnerID, ProjectID: p.ID}
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerID != out[j].OwnerID {
			return out[i].OwnerID < out[j].OwnerID
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	return out, nil
}

func (s *Store) CreateEntry(_ context.Context, e core.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
	return nil
}

func (s *Store) GetEntry(_ context.Context, ownerID, id string) (core.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || e.OwnerID != ownerID {
		return core.TimeEntry{}, core.Errorf(core.KindNotFound, "Time entry not found")
	}
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e core.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[e.ID]
	if !ok || cur.OwnerID != e.OwnerID {
		return core.Errorf(core.KindNotFound, "Time entry not found")
	}
	e.CreatedAt = cur.CreatedAt
	s.entries[e.ID] = e
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.OwnerID != ownerID {
		return core.Errorf(core.KindNotFound, "Time entry not found")
	}
	delete(s.entries, id)
	return nil
}

func (s *Store) ListEntries(_ context.Context, ownerID string) ([]core.TimeEntry, error) {
	return s.filterEntries(func(e core.TimeEntry) bool { return e.OwnerID == ownerID }, false), nil
}

func (s *Store) ListEntriesOverlapping(_ context.Context, ownerID string, start, end time.Time) ([]core.TimeEntry, error) {
	return s.filterEntries(func(e core.TimeEntry) bool {
		return e.OwnerID == ownerID && e.Start.Before(end) && e.End.After(start)
	}, false), nil
}

func (s *Store) ListEntriesByProject(_ context.Context, ownerID, projectID string) ([]core.TimeEntry, error) {
	return s.filterEntries(func(e core.TimeEntry) bool {
		return e.OwnerID == ownerID && e.ProjectID == projectID
	}, true), nil
}

func (s *Store) ListEntriesEndingBetween(_ context.Context, ownerID string, from, to *time.Time) ([]core.TimeEntry, error) {
	f := core.RangeFilter{From: from, To: to}
	return s.filterEntries(func(e core.TimeEntry) bool {
		return e.OwnerID == ownerID && f.Contains(e.End)
	}, false), nil
}

func (s *Store) DeleteEntriesByProject(_ context.Context, ownerID, projectID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failEntryDelete != nil {
		return 0, s.failEntryDelete
	}
	return s.deleteByProject(ownerID, projectID), nil
}

func (s *Store) activeProject(ownerID, id string) (core.Project, bool) {
	p, ok := s.projects[id]
	if !ok || p.OwnerID != ownerID || !p.IsActive {
		return core.Project{}, false
	}
	return p, true
}

func (s *Store) deactivate(ownerID, id string, at time.Time) error {
	p, ok := s.activeProject(ownerID, id)
	if !ok {
		return core.Errorf(core.KindNotFound, "Project not found")
	}
	p.IsActive = false
	p.UpdatedAt = at
	s.projects[id] = p
	return nil
}

func (s *Store) deleteByProject(ownerID, projectID string) int64 {
	var n int64
	for id, e := range s.entries {
		if e.OwnerID == ownerID && e.ProjectID == projectID {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

func (s *Store) filterEntries(keep func(core.TimeEntry) bool, newestFirst bool) []core.TimeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.TimeEntry
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			if newestFirst {
				return out[i].Start.After(out[j].Start)
			}
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneProject(p core.Project) core.Project {
	if p.HourlyRate != nil {
		p.HourlyRate = core.Float64Ptr(*p.HourlyRate)
	}
	return p
}
