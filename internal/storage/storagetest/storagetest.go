// Package storagetest holds behaviour tests shared by every storage.Store.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/internal/core"
	"timetrack/internal/storage"
)

// Opener returns a fresh, empty store.
type Opener func(t *testing.T) storage.Store

var epoch = time.Date(2026, 1, 10, 3, 30, 0, 0, time.UTC)

// Run exercises the Store contract against open.
func Run(t *testing.T, open Opener) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("projects", func(t *testing.T) { testProjects(t, open(t)) })
	t.Run("entries", func(t *testing.T) { testEntries(t, open(t)) })
	t.Run("cascade", func(t *testing.T) { testCascade(t, open(t)) })
}

func newUser(t *testing.T, s storage.Store, email string) core.User {
	t.Helper()
	u := core.User{ID: uuid.NewString(), Uname: "tester", Email: email, PasswordHash: "x", CreatedAt: epoch, UpdatedAt: epoch}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func newProject(t *testing.T, s storage.Store, owner string, created time.Time, rate *float64) core.Project {
	t.Helper()
	p := core.Project{
		ID: uuid.NewString(), OwnerID: owner, Name: "Project " + created.Format("150405"),
		IsBillable: rate != nil, HourlyRate: rate, IsActive: true, CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(t, s.CreateProject(context.Background(), p))
	return p
}

func newEntry(t *testing.T, s storage.Store, owner, project string, start time.Time, d time.Duration) core.TimeEntry {
	t.Helper()
	e := core.TimeEntry{
		ID: uuid.NewString(), OwnerID: owner, ProjectID: project,
		Start: start, End: start.Add(d), Duration: core.DurationMinutes(start, start.Add(d)),
		Description: "work", CreatedAt: epoch, UpdatedAt: epoch,
	}
	require.NoError(t, s.CreateEntry(context.Background(), e))
	return e
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := newUser(t, s, "ada@example.com")

	got, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

	got, err = s.GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.CreateUser(ctx, dup), core.ErrConflict)

	_, err = s.GetUser(ctx, uuid.NewString())
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testProjects(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := newUser(t, s, "owner@example.com")
	other := newUser(t, s, "other@example.com")

	second := newProject(t, s, owner.ID, epoch.Add(time.Hour), nil)
	first := newProject(t, s, owner.ID, epoch, core.Float64Ptr(42.5))

	got, err := s.GetProject(ctx, owner.ID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.HourlyRate)
	assert.Equal(t, 42.5, *got.HourlyRate)
	assert.True(t, got.IsBillable)

	_, err = s.GetProject(ctx, other.ID, first.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "foreign owner must not see the project")

	list, err := s.ListProjects(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	second.Name = "Renamed"
	second.IsBillable = true
	second.HourlyRate = core.Float64Ptr(10)
	second.UpdatedAt = epoch.Add(2 * time.Hour)
	require.NoError(t, s.UpdateProject(ctx, second))
	got, err = s.GetProject(ctx, owner.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 10.0, *got.HourlyRate)

	require.NoError(t, s.DeactivateProject(ctx, owner.ID, second.ID, epoch.Add(3*time.Hour)))
	_, err = s.GetProject(ctx, owner.ID, second.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeactivateProject(ctx, owner.ID, second.ID, epoch), core.ErrNotFound)
	assert.ErrorIs(t, s.UpdateProject(ctx, second), core.ErrNotFound)

	list, err = s.ListProjects(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func testEntries(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := newUser(t, s, "entries@example.com")
	p := newProject(t, s, owner.ID, epoch, nil)

	a := newEntry(t, s, owner.ID, p.ID, epoch, time.Hour)
	b := newEntry(t, s, owner.ID, p.ID, epoch.Add(2*time.Hour), 30*time.Minute)
	c := newEntry(t, s, owner.ID, p.ID, epoch.Add(24*time.Hour), time.Hour)

	got, err := s.GetEntry(ctx, owner.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, a.Start.Equal(got.Start))
	assert.Equal(t, int64(60), got.Duration)

	all, err := s.ListEntries(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, ids(all))

	byProject, err := s.ListEntriesByProject(ctx, owner.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{c.ID, b.ID, a.ID}, ids(byProject), "newest first")

	near, err := s.ListEntriesOverlapping(ctx, owner.ID, epoch.Add(59*time.Minute), epoch.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids(near), "touching intervals do not overlap")

	to := epoch.Add(2*time.Hour + 30*time.Minute)
	ending, err := s.ListEntriesEndingBetween(ctx, owner.ID, nil, &to)
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, ids(ending), "upper bound is inclusive")

	from := epoch.Add(2*time.Hour + 30*time.Minute)
	ending, err = s.ListEntriesEndingBetween(ctx, owner.ID, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, ids(ending), "lower bound is inclusive")

	b.Start = b.Start.Add(10 * time.Minute)
	b.Duration = 20
	b.Description = "moved"
	b.UpdatedAt = epoch.Add(time.Hour)
	require.NoError(t, s.UpdateEntry(ctx, b))
	got, err = s.GetEntry(ctx, owner.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "moved", got.Description)
	assert.Equal(t, int64(20), got.Duration)

	_, err = s.GetEntry(ctx, "someone-else", a.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, s.DeleteEntry(ctx, "someone-else", a.ID), core.ErrNotFound)

	require.NoError(t, s.DeleteEntry(ctx, owner.ID, a.ID))
	assert.ErrorIs(t, s.DeleteEntry(ctx, owner.ID, a.ID), core.ErrNotFound)
}

func testCascade(t *testing.T, s storage.Store) {
	ctx := context.Background()
	owner := newUser(t, s, "cascade@example.com")
	keep := newProject(t, s, owner.ID, epoch, nil)
	drop := newProject(t, s, owner.ID, epoch.Add(time.Minute), nil)
	orphan := newProject(t, s, owner.ID, epoch.Add(2*time.Minute), nil)

	kept := newEntry(t, s, owner.ID, keep.ID, epoch, time.Hour)
	newEntry(t, s, owner.ID, drop.ID, epoch.Add(2*time.Hour), time.Hour)
	newEntry(t, s, owner.ID, drop.ID, epoch.Add(4*time.Hour), time.Hour)
	newEntry(t, s, owner.ID, orphan.ID, epoch.Add(6*time.Hour), time.Hour)

	n, err := s.DeactivateProjectCascade(ctx, owner.ID, drop.ID, epoch.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.DeactivateProjectCascade(ctx, owner.ID, drop.ID, epoch.Add(time.Hour))
	assert.ErrorIs(t, err, core.ErrNotFound)

	// Step one only: the orphan keeps its entries until swept.
	require.NoError(t, s.DeactivateProject(ctx, owner.ID, orphan.ID, epoch.Add(time.Hour)))
	refs, err := s.ListOrphanedProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []storage.ProjectRef{{OwnerID: owner.ID, ProjectID: orphan.ID}}, refs)

	n, err = s.DeleteEntriesByProject(ctx, owner.ID, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	refs, err = s.ListOrphanedProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, refs)

	all, err := s.ListEntries(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{kept.ID}, ids(all))
}

func ids(entries []core.TimeEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
