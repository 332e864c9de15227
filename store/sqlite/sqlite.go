/*
Package sqlite provides the SQLite-backed implementation of engine.Store.

PURPOSE:
  Persists the roster (users, teams), the schedule (properties, jobs) and
  the bookings (assignments), and exposes the transactional WithTx entry
  point the engine operations run inside.

KEY TABLES:
  users:        workers and operators; team_id is the membership edge
  teams:        name + leader_id (nullable)
  properties:   addresses jobs point at
  jobs:         one cleaning visit; date/start/end are LOCAL wall-clock
                values (date as YYYY-MM-DD text, times as minutes from
                midnight), arrival_utc is an RFC3339 UTC instant
  assignments:  job-to-team or job-to-user bookings

UNIQUENESS:
  Partial unique indexes enforce at most one row per (job, user) and per
  (job, team), backing up the dedupe the engine already performs. A CHECK
  constraint enforces exactly-one-of user/team per row.

LOCAL DATES:
  The date column stores the local calendar date as text, so date
  comparisons in SQL are plain string comparisons and never shift around
  midnight the way UTC timestamp comparisons do in a far-offset zone.

CONCURRENCY:
  A store-wide mutex serializes WithTx. SQLite is opened in WAL mode so
  plain reads outside a transaction do not block behind it.

USAGE:
  st, err := sqlite.New("./data/crew.db")
  ...
  err = st.WithTx(ctx, func(s engine.Store) error {
      _, err := engine.NewRoster(s).AddMember(ctx, teamID, userID)
      return err
  })

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: the interface this package implements
  - engine/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/crew-engine/engine"
)

// Store implements engine.TxStore over SQLite.
type Store struct {
	Queries
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{Queries: Queries{db: db}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teams (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		leader_id INTEGER
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		team_id INTEGER REFERENCES teams(id)
	);

	CREATE INDEX IF NOT EXISTS idx_users_team ON users(team_id);

	CREATE TABLE IF NOT EXISTS properties (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL,
		access_notes TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		property_id INTEGER NOT NULL REFERENCES properties(id),
		date TEXT NOT NULL,             -- local calendar date, YYYY-MM-DD
		start_minutes INTEGER NOT NULL, -- local wall clock, minutes from midnight
		end_minutes INTEGER NOT NULL,
		arrival_utc TEXT,               -- RFC3339 UTC instant
		is_complete BOOLEAN NOT NULL DEFAULT FALSE,
		job_type TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		report TEXT NOT NULL DEFAULT ''
	);

	-- Rollover scans and per-date timetables both hit (is_complete, date).
	CREATE INDEX IF NOT EXISTS idx_jobs_date ON jobs(date);
	CREATE INDEX IF NOT EXISTS idx_jobs_incomplete_date
		ON jobs(date) WHERE is_complete = FALSE;

	CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id INTEGER NOT NULL REFERENCES jobs(id),
		user_id INTEGER REFERENCES users(id),
		team_id INTEGER REFERENCES teams(id),
		CHECK ((user_id IS NULL) != (team_id IS NULL))
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_job ON assignments(job_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_job_user
		ON assignments(job_id, user_id) WHERE user_id IS NOT NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_job_team
		ON assignments(job_id, team_id) WHERE team_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn inside one database transaction; any error rolls the
// whole transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(store engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&Queries{db: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

var _ engine.TxStore = (*Store)(nil)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries implements engine.Store against either the live connection or an
// open transaction.
type Queries struct {
	db dbtx
}

var _ engine.Store = (*Queries)(nil)

// =============================================================================
// ROSTER DATA
// =============================================================================

func (q *Queries) GetUser(ctx context.Context, id engine.UserID) (*engine.User, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT id, name, email, role, team_id FROM users WHERE id = ?", id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*engine.User, error) {
	var u engine.User
	var teamID sql.NullInt64
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &teamID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	if teamID.Valid {
		id := engine.TeamID(teamID.Int64)
		u.TeamID = &id
	}
	return &u, nil
}

func (q *Queries) ListUsers(ctx context.Context) ([]engine.User, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, name, email, role, team_id FROM users ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []engine.User
	for rows.Next() {
		var u engine.User
		var teamID sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &teamID); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if teamID.Valid {
			id := engine.TeamID(teamID.Int64)
			u.TeamID = &id
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (q *Queries) GetTeam(ctx context.Context, id engine.TeamID) (*engine.Team, error) {
	var t engine.Team
	var leaderID sql.NullInt64
	err := q.db.QueryRowContext(ctx,
		"SELECT id, name, leader_id FROM teams WHERE id = ?", id).
		Scan(&t.ID, &t.Name, &leaderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}
	if leaderID.Valid {
		lid := engine.UserID(leaderID.Int64)
		t.LeaderID = &lid
	}

	// Ascending-id member order is the leadership auto-assign scan order.
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, name, email, role, team_id FROM users WHERE team_id = ? ORDER BY id ASC", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u engine.User
		var teamID sql.NullInt64
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &teamID); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if teamID.Valid {
			tid := engine.TeamID(teamID.Int64)
			u.TeamID = &tid
		}
		t.Members = append(t.Members, u)
	}
	return &t, rows.Err()
}

func (q *Queries) ListTeams(ctx context.Context) ([]engine.Team, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id FROM teams ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	ids := []engine.TeamID{}
	for rows.Next() {
		var id engine.TeamID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan team id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	teams := make([]engine.Team, 0, len(ids))
	for _, id := range ids {
		t, err := q.GetTeam(ctx, id)
		if err != nil {
			return nil, err
		}
		if t != nil {
			teams = append(teams, *t)
		}
	}
	return teams, nil
}

func (q *Queries) SetUserTeam(ctx context.Context, id engine.UserID, teamID *engine.TeamID) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE users SET team_id = ? WHERE id = ?", nullTeamID(teamID), id)
	if err != nil {
		return fmt.Errorf("failed to set user team: %w", err)
	}
	return nil
}

func (q *Queries) SetTeamLeader(ctx context.Context, id engine.TeamID, leaderID *engine.UserID) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE teams SET leader_id = ? WHERE id = ?", nullUserID(leaderID), id)
	if err != nil {
		return fmt.Errorf("failed to set team leader: %w", err)
	}
	return nil
}

func (q *Queries) SetTeamName(ctx context.Context, id engine.TeamID, name string) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE teams SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to set team name: %w", err)
	}
	return nil
}

// =============================================================================
// JOB DATA
// =============================================================================

const jobColumns = "id, property_id, date, start_minutes, end_minutes, arrival_utc, is_complete, job_type, notes, report"

func (q *Queries) GetJob(ctx context.Context, id engine.JobID) (*engine.Job, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}
	defer rows.Close()

	jobs, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

func (q *Queries) JobsByIDs(ctx context.Context, ids []engine.JobID) ([]engine.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := ""
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, id)
	}

	rows, err := q.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE id IN ("+placeholders+") ORDER BY date ASC, start_minutes ASC",
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

func (q *Queries) UncompletedJobsBefore(ctx context.Context, date engine.Date) ([]engine.Job, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE is_complete = FALSE AND date < ? ORDER BY id ASC",
		date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

func (q *Queries) SetJobDate(ctx context.Context, id engine.JobID, date engine.Date) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET date = ? WHERE id = ?", date.String(), id)
	if err != nil {
		return fmt.Errorf("failed to set job date: %w", err)
	}
	return nil
}

func (q *Queries) SetJobCompletion(ctx context.Context, id engine.JobID, complete bool, report string) error {
	var err error
	if report != "" {
		_, err = q.db.ExecContext(ctx,
			"UPDATE jobs SET is_complete = ?, report = ? WHERE id = ?", complete, report, id)
	} else {
		_, err = q.db.ExecContext(ctx,
			"UPDATE jobs SET is_complete = ? WHERE id = ?", complete, id)
	}
	if err != nil {
		return fmt.Errorf("failed to set job completion: %w", err)
	}
	return nil
}

func collectJobs(rows *sql.Rows) ([]engine.Job, error) {
	var jobs []engine.Job
	for rows.Next() {
		var j engine.Job
		var dateStr string
		var arrival sql.NullString
		if err := rows.Scan(&j.ID, &j.PropertyID, &dateStr, &j.Start, &j.End,
			&arrival, &j.IsComplete, &j.JobType, &j.Notes, &j.Report); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		d, err := engine.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("corrupt job date: %w", err)
		}
		j.Date = d
		if arrival.Valid {
			t, err := time.Parse(time.RFC3339, arrival.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt arrival time: %w", err)
			}
			t = t.UTC()
			j.Arrival = &t
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// =============================================================================
// ASSIGNMENT DATA
// =============================================================================

func (q *Queries) AssignmentsForJob(ctx context.Context, jobID engine.JobID) ([]engine.Assignment, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, job_id, user_id, team_id FROM assignments WHERE job_id = ? ORDER BY id ASC",
		jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	return collectAssignments(rows)
}

func (q *Queries) AssignmentsOnDate(ctx context.Context, date engine.Date) ([]engine.Assignment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT a.id, a.job_id, a.user_id, a.team_id
		FROM assignments a
		JOIN jobs j ON j.id = a.job_id
		WHERE j.date = ?
		ORDER BY a.id ASC`,
		date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	return collectAssignments(rows)
}

func (q *Queries) CreateAssignment(ctx context.Context, a *engine.Assignment) error {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO assignments (job_id, user_id, team_id) VALUES (?, ?, ?)",
		a.JobID, nullUserID(a.UserID), nullTeamID(a.TeamID))
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read assignment id: %w", err)
	}
	a.ID = engine.AssignmentID(id)
	return nil
}

func (q *Queries) DeleteAssignment(ctx context.Context, id engine.AssignmentID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM assignments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	return nil
}

func (q *Queries) DeleteAssignmentsForJob(ctx context.Context, jobID engine.JobID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM assignments WHERE job_id = ?", jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job assignments: %w", err)
	}
	return nil
}

func (q *Queries) DeleteAssignmentsForTeam(ctx context.Context, teamID engine.TeamID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM assignments WHERE team_id = ?", teamID)
	if err != nil {
		return fmt.Errorf("failed to delete team assignments: %w", err)
	}
	return nil
}

func (q *Queries) DeleteAssignmentsForUser(ctx context.Context, userID engine.UserID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM assignments WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("failed to delete user assignments: %w", err)
	}
	return nil
}

func (q *Queries) JobIDsForAssigneeOnDate(ctx context.Context, ref engine.AssigneeRef, date engine.Date) ([]engine.JobID, error) {
	var column string
	var assignee any
	switch {
	case ref.TeamID != nil:
		column, assignee = "a.team_id", *ref.TeamID
	case ref.UserID != nil:
		column, assignee = "a.user_id", *ref.UserID
	default:
		return nil, fmt.Errorf("assignee reference names neither team nor user")
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT a.job_id
		FROM assignments a
		JOIN jobs j ON j.id = a.job_id
		WHERE `+column+` = ? AND j.date = ?
		ORDER BY a.job_id ASC`,
		assignee, date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var ids []engine.JobID
	for rows.Next() {
		var id engine.JobID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan job id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func collectAssignments(rows *sql.Rows) ([]engine.Assignment, error) {
	var list []engine.Assignment
	for rows.Next() {
		var a engine.Assignment
		var userID, teamID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.JobID, &userID, &teamID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if userID.Valid {
			id := engine.UserID(userID.Int64)
			a.UserID = &id
		}
		if teamID.Valid {
			id := engine.TeamID(teamID.Int64)
			a.TeamID = &id
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// =============================================================================
// HOST-LEVEL CRUD - entity lifecycle outside the engine interface
// =============================================================================

// CreateUser inserts a user and fills in its id.
func (q *Queries) CreateUser(ctx context.Context, u *engine.User) error {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO users (name, email, role, team_id) VALUES (?, ?, ?, ?)",
		u.Name, u.Email, u.Role, nullTeamID(u.TeamID))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	u.ID = engine.UserID(id)
	return nil
}

// UpdateUser rewrites name, email and role. Membership moves go through
// the roster operations, not here.
func (q *Queries) UpdateUser(ctx context.Context, u *engine.User) error {
	_, err := q.db.ExecContext(ctx,
		"UPDATE users SET name = ?, email = ?, role = ? WHERE id = ?",
		u.Name, u.Email, u.Role, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// DeleteUser removes the user row. Run the engine's user-deleted cascade
// first, in the same transaction.
func (q *Queries) DeleteUser(ctx context.Context, id engine.UserID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// CreateTeam inserts a team and fills in its id.
func (q *Queries) CreateTeam(ctx context.Context, t *engine.Team) error {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO teams (name, leader_id) VALUES (?, ?)",
		t.Name, nullUserID(t.LeaderID))
	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read team id: %w", err)
	}
	t.ID = engine.TeamID(id)
	return nil
}

// DeleteTeam removes the team row. Run the engine's team-deleted cascade
// first, in the same transaction.
func (q *Queries) DeleteTeam(ctx context.Context, id engine.TeamID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM teams WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return nil
}

// CreateProperty inserts a property and fills in its id.
func (q *Queries) CreateProperty(ctx context.Context, p *engine.Property) error {
	res, err := q.db.ExecContext(ctx,
		"INSERT INTO properties (address, access_notes) VALUES (?, ?)",
		p.Address, p.AccessNotes)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read property id: %w", err)
	}
	p.ID = engine.PropertyID(id)
	return nil
}

// GetProperty returns a property, or nil when absent.
func (q *Queries) GetProperty(ctx context.Context, id engine.PropertyID) (*engine.Property, error) {
	var p engine.Property
	err := q.db.QueryRowContext(ctx,
		"SELECT id, address, access_notes FROM properties WHERE id = ?", id).
		Scan(&p.ID, &p.Address, &p.AccessNotes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan property: %w", err)
	}
	return &p, nil
}

// ListProperties returns all properties in ascending-id order.
func (q *Queries) ListProperties(ctx context.Context) ([]engine.Property, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, address, access_notes FROM properties ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	var list []engine.Property
	for rows.Next() {
		var p engine.Property
		if err := rows.Scan(&p.ID, &p.Address, &p.AccessNotes); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// CreateJob inserts a job and fills in its id.
func (q *Queries) CreateJob(ctx context.Context, j *engine.Job) error {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO jobs (property_id, date, start_minutes, end_minutes, arrival_utc, is_complete, job_type, notes, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.PropertyID, j.Date.String(), j.Start, j.End,
		nullInstant(j.Arrival), j.IsComplete, j.JobType, j.Notes, j.Report)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read job id: %w", err)
	}
	j.ID = engine.JobID(id)
	return nil
}

// UpdateJob rewrites the schedulable fields of a job.
func (q *Queries) UpdateJob(ctx context.Context, j *engine.Job) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE jobs
		SET property_id = ?, date = ?, start_minutes = ?, end_minutes = ?,
		    arrival_utc = ?, is_complete = ?, job_type = ?, notes = ?, report = ?
		WHERE id = ?`,
		j.PropertyID, j.Date.String(), j.Start, j.End,
		nullInstant(j.Arrival), j.IsComplete, j.JobType, j.Notes, j.Report, j.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

// DeleteJob removes the job row. Remove its bookings first, in the same
// transaction.
func (q *Queries) DeleteJob(ctx context.Context, id engine.JobID) error {
	_, err := q.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// JobsOnDate returns every job on the local date, ordered by start time.
func (q *Queries) JobsOnDate(ctx context.Context, date engine.Date) ([]engine.Job, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE date = ? ORDER BY start_minutes ASC, id ASC",
		date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"assignments", "jobs", "properties", "users", "teams"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullTeamID(id *engine.TeamID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func nullUserID(id *engine.UserID) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func nullInstant(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
