package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/internal/auth"
	"timetrack/internal/core"
	"timetrack/internal/report"
	"timetrack/internal/services"
	"timetrack/internal/storage/memory"
)

// testClock starts at 10-01-2026 2:00 PM local and only moves when told.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	t      *testing.T
	srv    *Server
	store  *memory.Store
	clock  *testClock
	tokens *auth.TokenIssuer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 1, 10, 8, 30, 0, 0, time.UTC)}
	store := memory.New()
	hasher := auth.NewArgon2Hasher(auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	tokens := auth.NewTokenIssuer("0123456789abcdef", "timetrack-test", time.Hour)

	srv, err := NewServer(Config{Development: true, MetricsEnabled: true}, Deps{
		Services: services.New(store, nil, hasher, tokens, clock),
		Tokens:   tokens,
		Reports:  report.NewRenderer(clock),
		Ready:    store.Ping,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &harness{t: t, srv: srv, store: store, clock: clock, tokens: tokens}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m), rr.Body.String())
	return m
}

// login signs up a fresh user and returns its token.
func (h *harness) login(email string) string {
	h.t.Helper()
	rr := h.do(http.MethodPost, "/auth/signup", "", map[string]any{"uname": "tester", "email": email, "password": "secret1"})
	require.Equal(h.t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = h.do(http.MethodPost, "/auth/login", "", map[string]any{"email": email, "password": "secret1"})
	require.Equal(h.t, http.StatusOK, rr.Code, rr.Body.String())
	return decode(h.t, rr)["token"].(string)
}

func (h *harness) createProject(token string, body map[string]any) string {
	h.t.Helper()
	rr := h.do(http.MethodPost, "/projects", token, body)
	require.Equal(h.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode(h.t, rr)["data"].(map[string]any)["id"].(string)
}

func (h *harness) createEntry(token, projectID, start, end, desc string) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, "/time-entries", token, map[string]any{
		"projectId": projectID, "startTime": start, "endTime": end, "description": desc,
	})
}

func TestHealthAndReady(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := h.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}

	rr := h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "timetrack_http_request_duration_seconds")
}

func TestReadyFailure(t *testing.T) {
	store := memory.New()
	tokens := auth.NewTokenIssuer("0123456789abcdef", "t", time.Hour)
	srv, err := NewServer(Config{}, Deps{
		Services: services.New(store, nil, auth.NewArgon2Hasher(auth.DefaultArgon2Params()), tokens, nil),
		Tokens:   tokens,
		Ready:    func(context.Context) error { return errors.New("db down") },
	})
	require.NoError(t, err)
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAuthFlow(t *testing.T) {
	h := newHarness(t)

	rr := h.do(http.MethodPost, "/auth/signup", "", map[string]any{"uname": "ab", "email": "bad", "password": "123"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "Validation error", body["msg"])
	assert.ElementsMatch(t, []any{
		map[string]any{"field": "uname", "message": "Name must be at least 3 characters"},
		map[string]any{"field": "email", "message": "Please provide a valid email"},
		map[string]any{"field": "password", "message": "Password must be at least 6 characters"},
	}, body["errors"])

	token := h.login("Ada@Example.com")
	assert.NotEmpty(t, token)

	rr = h.do(http.MethodPost, "/auth/signup", "", map[string]any{"uname": "other", "email": "ada@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "ada@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid email or password", decode(t, rr)["msg"])

	rr = h.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(http.MethodGet, "/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "You are not logged in", decode(t, rr)["msg"])

	rr = h.do(http.MethodGet, "/projects", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Not authorized", decode(t, rr)["msg"])

	ghost, err := h.tokens.Issue("no-such-user")
	require.NoError(t, err)
	rr = h.do(http.MethodGet, "/projects", ghost, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = h.do(http.MethodGet, "/projects", token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, h.srv.userCache.Size(), "resolved user is cached")
}

func TestProjectsCRUD(t *testing.T) {
	h := newHarness(t)
	token := h.login("p@example.com")
	other := h.login("q@example.com")

	rr := h.do(http.MethodPost, "/projects", token, map[string]any{"name": "Consulting", "isBillable": true})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []any{map[string]any{"field": "hourlyRate", "message": "Hourly rate is required for billable projects"}}, decode(t, rr)["errors"])

	id := h.createProject(token, map[string]any{"name": "Consulting", "isBillable": true, "hourlyRate": 80})

	rr = h.do(http.MethodGet, "/projects/"+id, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr)["data"].(map[string]any)
	assert.Equal(t, "Consulting", data["name"])
	assert.Equal(t, 80.0, data["hourlyRate"])

	rr = h.do(http.MethodGet, "/projects/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Project not found", decode(t, rr)["msg"])

	rr = h.do(http.MethodGet, "/projects/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid project id", decode(t, rr)["msg"])

	rr = h.do(http.MethodPatch, "/projects/"+id, token, map[string]any{"isBillable": false})
	require.Equal(t, http.StatusOK, rr.Code)
	data = decode(t, rr)["data"].(map[string]any)
	assert.Nil(t, data["hourlyRate"])
	assert.Equal(t, false, data["isBillable"])

	rr = h.do(http.MethodPatch, "/projects/"+id, token, map[string]any{"isBillable": true})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(http.MethodGet, "/projects", token, nil)
	assert.Len(t, decode(t, rr)["data"], 1)

	rr = h.do(http.MethodDelete, "/projects/"+id, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Project deleted (soft) successfully", decode(t, rr)["msg"])

	rr = h.do(http.MethodDelete, "/projects/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTimeEntries(t *testing.T) {
	h := newHarness(t)
	token := h.login("e@example.com")
	pid := h.createProject(token, map[string]any{"name": "Client work", "isBillable": true, "hourlyRate": 50})

	rr := h.createEntry(token, pid, "10-01-2026 9:00 AM", "10-01-2026 11:00 AM", "Entry A")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	a := decode(t, rr)["data"].(map[string]any)
	assert.Equal(t, "10-01-2026 9:00 AM", a["startTime"])
	assert.Equal(t, "10-01-2026 11:00 AM", a["endTime"])
	assert.Equal(t, 120.0, a["duration"])
	entryID := a["id"].(string)

	rr = h.createEntry(token, pid, "10-01-2026 10:00 AM", "10-01-2026 12:00 PM", "Entry B")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Time entry overlaps with existing entry. Maximum 2 minutes overlap allowed.", decode(t, rr)["msg"])

	rr = h.createEntry(token, pid, "2026-01-10T09:00:00Z", "10-01-2026 12:00 PM", "Entry B")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []any{map[string]any{"field": "startTime", "message": "Invalid start time format. Use DD-MM-YYYY H:MM AM|PM"}}, decode(t, rr)["errors"])

	rr = h.createEntry(token, pid, "10-01-2026 1:00 PM", "10-01-2026 3:00 PM", "Future")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "End time cannot be more than 5 minutes in the future", decode(t, rr)["msg"])

	rr = h.createEntry(token, pid, "10-01-2026 1:00 PM", "10-01-2026 1:30 PM", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []any{map[string]any{"field": "description", "message": "Description is required"}}, decode(t, rr)["errors"])

	rr = h.do(http.MethodPatch, "/time-entries/"+entryID, token, map[string]any{"endTime": "10-01-2026 11:30 AM"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 150.0, decode(t, rr)["data"].(map[string]any)["duration"])

	rr = h.do(http.MethodPatch, "/time-entries/"+entryID, token, map[string]any{"startTime": "", "description": "Entry A, extended"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "10-01-2026 9:00 AM", decode(t, rr)["data"].(map[string]any)["startTime"])

	rr = h.do(http.MethodGet, "/time-entries/project/"+pid, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["data"], 1)

	rr = h.do(http.MethodGet, "/time-entries/"+entryID, h.login("x@example.com"), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Time entry not found", decode(t, rr)["msg"])

	rr = h.do(http.MethodGet, "/time-entries/123", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid time entry id", decode(t, rr)["msg"])

	rr = h.do(http.MethodDelete, "/time-entries/"+entryID, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Time entry deleted successfully", decode(t, rr)["msg"])
}

func TestDeleteProjectCascades(t *testing.T) {
	h := newHarness(t)
	token := h.login("c@example.com")
	pid := h.createProject(token, map[string]any{"name": "Short lived"})
	require.Equal(t, http.StatusCreated, h.createEntry(token, pid, "10-01-2026 9:00 AM", "10-01-2026 10:00 AM", "work").Code)

	rr := h.do(http.MethodDelete, "/projects/"+pid, token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1.0, decode(t, rr)["entriesRemoved"])

	// The freed slot can be booked again on another project.
	pid2 := h.createProject(token, map[string]any{"name": "Successor"})
	assert.Equal(t, http.StatusCreated, h.createEntry(token, pid2, "10-01-2026 9:00 AM", "10-01-2026 10:00 AM", "work").Code)
}

// seedScenario books entry A on a billable project and entry B right after
// it on a non-billable one.
func seedScenario(h *harness) (token, billable, internal string) {
	token = h.login("s@example.com")
	billable = h.createProject(token, map[string]any{"name": "Client work", "isBillable": true, "hourlyRate": 50})
	h.clock.advance(time.Minute)
	internal = h.createProject(token, map[string]any{"name": "Internal"})
	require.Equal(h.t, http.StatusCreated, h.createEntry(token, billable, "10-01-2026 9:00 AM", "10-01-2026 11:00 AM", "Entry A").Code)
	require.Equal(h.t, http.StatusCreated, h.createEntry(token, internal, "10-01-2026 11:01 AM", "10-01-2026 12:00 PM", "Entry B").Code)
	return token, billable, internal
}

func goldenBody(t *testing.T, rr *httptest.ResponseRecorder, ids map[string]string) any {
	t.Helper()
	body := rr.Body.String()
	for id, placeholder := range ids {
		body = strings.ReplaceAll(body, id, placeholder)
	}
	var v any
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestSummaryGolden(t *testing.T) {
	h := newHarness(t)
	token, billable, internal := seedScenario(h)
	ids := map[string]string{billable: "project-1", internal: "project-2"}
	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden.json"))

	rr := h.do(http.MethodGet, "/summary/projects?from=10-01-2026&to=10-01-2026", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	g.AssertJson(t, "summary_projects", goldenBody(t, rr, ids))

	rr = h.do(http.MethodGet, "/summary/overview?from=10-01-2026&to=10-01-2026", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	g.AssertJson(t, "summary_overview", goldenBody(t, rr, ids))
}

func TestSummaryFilters(t *testing.T) {
	h := newHarness(t)
	token, _, _ := seedScenario(h)

	rr := h.do(http.MethodGet, "/summary/projects?from=11-01-2026", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, map[string]any{"from": "11-01-2026"}, body["filterApplied"])
	assert.Equal(t, "No projects with activity in the selected date range", body["msg"])
	assert.Equal(t, []any{}, body["data"])

	rr = h.do(http.MethodGet, "/summary/overview", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body = decode(t, rr)
	assert.Nil(t, body["filterApplied"])
	assert.Equal(t, 2.98, body["data"].(map[string]any)["totalWorkingHours"])

	rr = h.do(http.MethodGet, "/summary/overview?to=2026-01-10", token, nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []any{map[string]any{"field": "to", "message": "Invalid 'to' date format. Use DD-MM-YYYY"}}, decode(t, rr)["errors"])
}

func TestSummaryPDFExport(t *testing.T) {
	h := newHarness(t)
	token, _, _ := seedScenario(h)

	tests := []struct {
		path     string
		filename string
	}{
		{"/summary/projects/export/pdf?from=10-01-2026", "projects-summary-10-01-2026-all.pdf"},
		{"/summary/overview/export/pdf", "overview-summary-all-all.pdf"},
	}
	for _, tt := range tests {
		rr := h.do(http.MethodGet, tt.path, token, nil)
		require.Equal(t, http.StatusOK, rr.Code, tt.path)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="`+tt.filename+`"`, rr.Header().Get("Content-Disposition"))
		assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")))
	}

	rr := h.do(http.MethodGet, "/summary/projects/export/pdf?from=1-1-2026", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t)
	rr := h.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Route not found", decode(t, rr)["msg"])

	rr = h.do(http.MethodGet, "/.env", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStatusFor(t *testing.T) {
	tests := map[core.Kind]int{
		core.KindInvalidFormat:  http.StatusBadRequest,
		core.KindInvalidRange:   http.StatusBadRequest,
		core.KindOverlap:        http.StatusBadRequest,
		core.KindValidation:     http.StatusBadRequest,
		core.KindUnauthorized:   http.StatusUnauthorized,
		core.KindNotFound:       http.StatusNotFound,
		core.KindConflict:       http.StatusConflict,
		core.KindPartialFailure: http.StatusInternalServerError,
		"":                      http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := statusFor(kind); got != want {
			t.Errorf("statusFor(%q) = %d, want %d", kind, got, want)
		}
	}
}
