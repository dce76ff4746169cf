package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"timetrack/internal/core"
)

// SQLStore implements Store on database/sql. Both dialects share the query
// text: placeholders are "?" and times are Unix seconds.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite creates the database file if needed and migrates it.
func OpenSQLite(ctx context.Context, dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if err := RunMigrations(DialectSQLite, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY out of request paths.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLStore{db: db, dialect: DialectSQLite}, nil
}

// OpenMySQL connects to dsn and migrates the schema.
func OpenMySQL(ctx context.Context, dsn string) (*SQLStore, error) {
	dsn, err := NormalizeMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(DialectMySQL, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql database: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLStore{db: db, dialect: DialectMySQL}, nil
}

func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// --- users ---

func (s *SQLStore) CreateUser(ctx context.Context, u core.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, uname, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Uname, u.Email, u.PasswordHash, u.CreatedAt.Unix(), u.UpdatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return core.Errorf(core.KindConflict, "Email is already registered")
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (core.User, error) {
	return s.getUser(ctx, `SELECT id, uname, email, password_hash, created_at, updated_at FROM users WHERE id = ?`, id)
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.getUser(ctx, `SELECT id, uname, email, password_hash, created_at, updated_at FROM users WHERE email = ?`, email)
}

func (s *SQLStore) getUser(ctx context.Context, query string, arg string) (core.User, error) {
	var (
		u                core.User
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Uname, &u.Email, &u.PasswordHash, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.Errorf(core.KindNotFound, "User not found")
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	u.CreatedAt, u.UpdatedAt = fromUnix(created), fromUnix(updated)
	return u, nil
}

// --- projects ---

const projectColumns = `id, user_id, name, description, is_billable, hourly_rate, is_active, created_at, updated_at`

func (s *SQLStore) CreateProject(ctx context.Context, p core.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Name, p.Description, p.IsBillable, nullFloat(p.HourlyRate), p.IsActive, p.CreatedAt.Unix(), p.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *SQLStore) GetProject(ctx context.Context, ownerID, id string) (core.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ? AND user_id = ? AND is_active = ?`, id, ownerID, true)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, core.Errorf(core.KindNotFound, "Project not found")
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("select project: %w", err)
	}
	return p, nil
}

func (s *SQLStore) ListProjects(ctx context.Context, ownerID string) ([]core.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = ? AND is_active = ? ORDER BY created_at, id`, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []core.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpdateProject(ctx context.Context, p core.Project) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, is_billable = ?, hourly_rate = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND is_active = ?`,
		p.Name, p.Description, p.IsBillable, nullFloat(p.HourlyRate), p.UpdatedAt.Unix(), p.ID, p.OwnerID, true)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return expectRow(res, "Project not found")
}

func (s *SQLStore) DeactivateProject(ctx context.Context, ownerID, id string, at time.Time) error {
	return deactivateProject(ctx, s.db, ownerID, id, at)
}

func deactivateProject(ctx context.Context, q queryer, ownerID, id string, at time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE projects SET is_active = ?, updated_at = ? WHERE id = ? AND user_id = ? AND is_active = ?`,
		false, at.Unix(), id, ownerID, true)
	if err != nil {
		return fmt.Errorf("deactivate project: %w", err)
	}
	return expectRow(res, "Project not found")
}

// DeactivateProjectCascade runs both cascade steps in one transaction.
func (s *SQLStore) DeactivateProjectCascade(ctx context.Context, ownerID, id string, at time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := deactivateProject(ctx, tx, ownerID, id, at); err != nil {
		return 0, err
	}
	n, err := deleteEntriesByProject(ctx, tx, ownerID, id)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cascade: %w", err)
	}
	return n, nil
}

func (s *SQLStore) ListOrphanedProjects(ctx context.Context) ([]ProjectRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT p.user_id, p.id FROM projects p
		 JOIN time_entries e ON e.project_id = p.id
		 WHERE p.is_active = ?
		 ORDER BY p.user_id, p.id`, false)
	if err != nil {
		return nil, fmt.Errorf("list orphaned projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectRef
	for rows.Next() {
		var ref ProjectRef
		if err := rows.Scan(&ref.OwnerID, &ref.ProjectID); err != nil {
			return nil, fmt.Errorf("scan project ref: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// --- time entries ---

const entryColumns = `id, user_id, project_id, start_time, end_time, duration, description, created_at, updated_at`

func (s *SQLStore) CreateEntry(ctx context.Context, e core.TimeEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO time_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.OwnerID, e.ProjectID, e.Start.Unix(), e.End.Unix(), e.Duration, e.Description, e.CreatedAt.Unix(), e.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert time entry: %w", err)
	}
	return nil
}

func (s *SQLStore) GetEntry(ctx context.Context, ownerID, id string) (core.TimeEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE id = ? AND user_id = ?`, id, ownerID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TimeEntry{}, core.Errorf(core.KindNotFound, "Time entry not found")
	}
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("select time entry: %w", err)
	}
	return e, nil
}

func (s *SQLStore) UpdateEntry(ctx context.Context, e core.TimeEntry) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE time_entries SET project_id = ?, start_time = ?, end_time = ?, duration = ?, description = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		e.ProjectID, e.Start.Unix(), e.End.Unix(), e.Duration, e.Description, e.UpdatedAt.Unix(), e.ID, e.OwnerID)
	if err != nil {
		return fmt.Errorf("update time entry: %w", err)
	}
	return expectRow(res, "Time entry not found")
}

func (s *SQLStore) DeleteEntry(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete time entry: %w", err)
	}
	return expectRow(res, "Time entry not found")
}

func (s *SQLStore) ListEntries(ctx context.Context, ownerID string) ([]core.TimeEntry, error) {
	return s.listEntries(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE user_id = ? ORDER BY start_time, id`, ownerID)
}

func (s *SQLStore) ListEntriesOverlapping(ctx context.Context, ownerID string, start, end time.Time) ([]core.TimeEntry, error) {
	// Seconds are floored on write, so compare against the ceiling of the
	// candidate's sub-second bounds to keep the set a superset.
	return s.listEntries(ctx,
		`SELECT `+entryColumns+` FROM time_entries
		 WHERE user_id = ? AND start_time < ? AND end_time > ?
		 ORDER BY start_time, id`, ownerID, ceilUnix(end), start.Unix())
}

func (s *SQLStore) ListEntriesByProject(ctx context.Context, ownerID, projectID string) ([]core.TimeEntry, error) {
	return s.listEntries(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE user_id = ? AND project_id = ? ORDER BY start_time DESC, id`, ownerID, projectID)
}

func (s *SQLStore) ListEntriesEndingBetween(ctx context.Context, ownerID string, from, to *time.Time) ([]core.TimeEntry, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{ownerID}
	)
	if from != nil {
		where = append(where, "end_time >= ?")
		args = append(args, ceilUnix(*from))
	}
	if to != nil {
		where = append(where, "end_time <= ?")
		args = append(args, to.Unix())
	}
	return s.listEntries(ctx,
		`SELECT `+entryColumns+` FROM time_entries WHERE `+strings.Join(where, " AND ")+` ORDER BY start_time, id`, args...)
}

func (s *SQLStore) DeleteEntriesByProject(ctx context.Context, ownerID, projectID string) (int64, error) {
	return deleteEntriesByProject(ctx, s.db, ownerID, projectID)
}

func deleteEntriesByProject(ctx context.Context, q queryer, ownerID, projectID string) (int64, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM time_entries WHERE user_id = ? AND project_id = ?`, ownerID, projectID)
	if err != nil {
		return 0, fmt.Errorf("delete project entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func (s *SQLStore) listEntries(ctx context.Context, query string, args ...any) ([]core.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	var out []core.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- helpers ---

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (core.Project, error) {
	var (
		p                core.Project
		rate             sql.NullFloat64
		created, updated int64
	)
	if err := sc.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.IsBillable, &rate, &p.IsActive, &created, &updated); err != nil {
		return core.Project{}, err
	}
	if rate.Valid {
		p.HourlyRate = core.Float64Ptr(rate.Float64)
	}
	p.CreatedAt, p.UpdatedAt = fromUnix(created), fromUnix(updated)
	return p, nil
}

func scanEntry(sc scanner) (core.TimeEntry, error) {
	var (
		e                            core.TimeEntry
		start, end, created, updated int64
	)
	if err := sc.Scan(&e.ID, &e.OwnerID, &e.ProjectID, &start, &end, &e.Duration, &e.Description, &created, &updated); err != nil {
		return core.TimeEntry{}, err
	}
	e.Start, e.End = fromUnix(start), fromUnix(end)
	e.CreatedAt, e.UpdatedAt = fromUnix(created), fromUnix(updated)
	return e, nil
}

func expectRow(res sql.Result, notFound string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.Errorf(core.KindNotFound, "%s", notFound)
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func ceilUnix(t time.Time) int64 {
	if t.Nanosecond() > 0 {
		return t.Unix() + 1
	}
	return t.Unix()
}

func isUniqueViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	// modernc reports "UNIQUE constraint failed: users.email".
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
