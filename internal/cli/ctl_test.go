package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/internal/backend"
	"timetrack/internal/core"
	"timetrack/internal/storage/memory"
)

var seedTime = time.Date(2026, 1, 10, 3, 30, 0, 0, time.UTC)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.CreateUser(ctx, core.User{ID: "u1", Uname: "ada", Email: "ada@example.com", CreatedAt: seedTime}))
	rate := 40.0
	require.NoError(t, store.CreateProject(ctx, core.Project{ID: "p1", OwnerID: "u1", Name: "Client", IsBillable: true, HourlyRate: &rate, IsActive: true, CreatedAt: seedTime}))
	require.NoError(t, store.CreateProject(ctx, core.Project{ID: "p2", OwnerID: "u1", Name: "Gone", IsActive: true, CreatedAt: seedTime}))
	for i, pid := range []string{"p1", "p2"} {
		start := seedTime.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.CreateEntry(ctx, core.TimeEntry{
			ID: pid + "-e", OwnerID: "u1", ProjectID: pid, Start: start, End: start.Add(time.Hour), Duration: 60, Description: "work",
		}))
	}
	require.NoError(t, store.DeactivateProject(ctx, "u1", "p2", seedTime))
	return store
}

func runCtl(t *testing.T, store *memory.Store, args ...string) (string, error) {
	t.Helper()
	opts := &CtlOptions{
		Version: "1.2.3",
		Clock:   core.FixedClock{T: seedTime.Add(24 * time.Hour)},
		Open: func(context.Context) (*backend.BackendResult, error) {
			return &backend.BackendResult{Store: store, Cleanup: func() error { return nil }}, nil
		},
	}
	cmd := NewCtlCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCtlVersion(t *testing.T) {
	out, err := runCtl(t, memory.New(), "version")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3\n", out)
}

func TestCtlMigrate(t *testing.T) {
	out, err := runCtl(t, memory.New(), "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")
}

func TestCtlSweep(t *testing.T) {
	store := seededStore(t)

	out, err := runCtl(t, store, "sweep")
	require.NoError(t, err)
	assert.Equal(t, "removed 1 entries\n", out)

	out, err = runCtl(t, store, "sweep")
	require.NoError(t, err)
	assert.Equal(t, "removed 0 entries\n", out)
}

func TestCtlReport(t *testing.T) {
	store := seededStore(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		file string
	}{
		{"projects", []string{"--email", "ADA@example.com", "--from", "10-01-2026"}, "projects.pdf"},
		{"overview", []string{"--email", "ada@example.com", "--kind", "overview"}, "overview.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			args := append([]string{"report", "-o", path}, tt.args...)
			out, err := runCtl(t, store, args...)
			require.NoError(t, err)
			assert.Contains(t, out, "wrote "+path)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
		})
	}
}

func TestCtlReportErrors(t *testing.T) {
	store := seededStore(t)
	out := filepath.Join(t.TempDir(), "r.pdf")

	_, err := runCtl(t, store, "report", "-o", out)
	assert.Error(t, err, "email is required")

	_, err = runCtl(t, store, "report", "-o", out, "--email", "ada@example.com", "--kind", "weekly")
	assert.ErrorContains(t, err, "invalid kind")

	_, err = runCtl(t, store, "report", "-o", out, "--email", "nobody@example.com")
	assert.ErrorContains(t, err, "User not found")

	_, err = runCtl(t, store, "report", "-o", out, "--email", "ada@example.com", "--to", "2026-01-10")
	assert.ErrorContains(t, err, "Invalid 'to' date format")
}
