//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"timetrack/internal/auth"
	"timetrack/internal/core"
	apphttp "timetrack/internal/http"
	"timetrack/internal/report"
	"timetrack/internal/services"
	"timetrack/internal/storage"
	"timetrack/internal/storage/storagetest"
	"timetrack/internal/worker"
)

type mysqlServer struct {
	host, port string
	seq        atomic.Int64
}

func startMySQL(t *testing.T) *mysqlServer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8.0",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_DATABASE":      "timetrack",
			"MYSQL_ROOT_PASSWORD": "secret",
			"MYSQL_USER":          "test",
			"MYSQL_PASSWORD":      "pass",
		},
		WaitingFor: wait.ForListeningPort("3306/tcp").WithStartupTimeout(90 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = mysqlC.Terminate(context.Background()) })

	host, err := mysqlC.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := mysqlC.MappedPort(ctx, "3306/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return &mysqlServer{host: host, port: port.Port()}
}

// freshStore creates an empty database so each test sees only its own rows.
func (m *mysqlServer) freshStore(t *testing.T) *storage.SQLStore {
	t.Helper()
	ctx := context.Background()
	name := fmt.Sprintf("tt_%d", m.seq.Add(1))

	root, err := sql.Open("mysql", fmt.Sprintf("root:secret@tcp(%s:%s)/", m.host, m.port))
	if err != nil {
		t.Fatalf("open root connection: %v", err)
	}
	defer root.Close()

	// The listening port can open before the server accepts logins.
	deadline := time.Now().Add(60 * time.Second)
	for {
		_, err = root.ExecContext(ctx, "CREATE DATABASE "+name)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("create database: %v", err)
	}

	dsn := fmt.Sprintf("root:secret@tcp(%s:%s)/%s?parseTime=true&multiStatements=true", m.host, m.port, name)
	store, err := storage.OpenMySQL(ctx, dsn)
	if err != nil {
		t.Fatalf("open mysql store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMySQL(t *testing.T) {
	m := startMySQL(t)

	t.Run("store contract", func(t *testing.T) {
		storagetest.Run(t, func(t *testing.T) storage.Store { return m.freshStore(t) })
	})

	t.Run("http scenario", func(t *testing.T) {
		testHTTPScenario(t, m.freshStore(t))
	})

	t.Run("partial cascade is swept", func(t *testing.T) {
		testSweep(t, m.freshStore(t))
	})
}

func testHTTPScenario(t *testing.T, store *storage.SQLStore) {
	clock := core.FixedClock{T: time.Date(2026, 1, 10, 8, 30, 0, 0, time.UTC)}
	tokens := auth.NewTokenIssuer("e2e-secret-0123456789", "timetrack-e2e", time.Hour)
	hasher := auth.NewArgon2Hasher(auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})

	srv, err := apphttp.NewServer(apphttp.Config{}, apphttp.Deps{
		Services: services.New(store, nil, hasher, tokens, clock),
		Tokens:   tokens,
		Reports:  report.NewRenderer(clock),
		Ready:    store.Ping,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()
	defer srv.Shutdown(context.Background())

	call := func(method, path, token string, body any, want int) map[string]any {
		t.Helper()
		raw, _ := json.Marshal(body)
		req, _ := http.NewRequest(method, ts.URL+path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		defer resp.Body.Close()
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		if resp.StatusCode != want {
			t.Fatalf("%s %s: status %d, want %d: %v", method, path, resp.StatusCode, want, out)
		}
		return out
	}

	call(http.MethodPost, "/auth/signup", "", map[string]any{"uname": "e2e user", "email": "e2e@example.com", "password": "secret1"}, http.StatusCreated)
	token := call(http.MethodPost, "/auth/login", "", map[string]any{"email": "e2e@example.com", "password": "secret1"}, http.StatusOK)["token"].(string)

	billable := call(http.MethodPost, "/projects", token, map[string]any{"name": "Client", "isBillable": true, "hourlyRate": 50}, http.StatusCreated)["data"].(map[string]any)["id"].(string)
	internal := call(http.MethodPost, "/projects", token, map[string]any{"name": "Internal"}, http.StatusCreated)["data"].(map[string]any)["id"].(string)

	entry := func(pid, start, end string, want int) map[string]any {
		return call(http.MethodPost, "/time-entries", token, map[string]any{"projectId": pid, "startTime": start, "endTime": end, "description": "work"}, want)
	}
	entry(billable, "10-01-2026 9:00 AM", "10-01-2026 11:00 AM", http.StatusCreated)
	entry(internal, "10-01-2026 10:59 AM", "10-01-2026 12:00 PM", http.StatusBadRequest)
	entry(internal, "10-01-2026 11:01 AM", "10-01-2026 12:00 PM", http.StatusCreated)

	overview := call(http.MethodGet, "/summary/overview?from=10-01-2026&to=10-01-2026", token, nil, http.StatusOK)["data"].(map[string]any)
	if overview["billableHours"] != 2.0 || overview["billableEarnings"] != 100.0 {
		t.Fatalf("unexpected overview: %v", overview)
	}

	removed := call(http.MethodDelete, "/projects/"+internal, token, nil, http.StatusOK)["entriesRemoved"]
	if removed != 1.0 {
		t.Fatalf("entriesRemoved = %v, want 1", removed)
	}
	entry(billable, "10-01-2026 11:30 AM", "10-01-2026 12:00 PM", http.StatusCreated)
}

func testSweep(t *testing.T, store *storage.SQLStore) {
	ctx := context.Background()
	start := time.Date(2026, 1, 10, 3, 30, 0, 0, time.UTC)
	if err := store.CreateUser(ctx, core.User{ID: "u1", Uname: "sweeper", Email: "s@example.com", PasswordHash: "x", CreatedAt: start, UpdatedAt: start}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.CreateProject(ctx, core.Project{ID: "p1", OwnerID: "u1", Name: "Old", IsActive: true, CreatedAt: start, UpdatedAt: start}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if err := store.CreateEntry(ctx, core.TimeEntry{ID: "e1", OwnerID: "u1", ProjectID: "p1", Start: start, End: start.Add(time.Hour), Duration: 60, Description: "work", CreatedAt: start, UpdatedAt: start}); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	// Deactivate without the cascade, as an interrupted request would.
	if err := store.DeactivateProject(ctx, "u1", "p1", start); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	n, err := worker.NewCascadeWorker(store, nil).Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d entries, want 1", n)
	}
}
