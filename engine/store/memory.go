// Package store provides an in-memory engine.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/crew-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex // held for the whole of WithTx; serializes transactions

	users       map[engine.UserID]engine.User
	teams       map[engine.TeamID]teamRow
	properties  map[engine.PropertyID]engine.Property
	jobs        map[engine.JobID]engine.Job
	assignments map[engine.AssignmentID]engine.Assignment

	nextUser       engine.UserID
	nextTeam       engine.TeamID
	nextProperty   engine.PropertyID
	nextJob        engine.JobID
	nextAssignment engine.AssignmentID
}

// teamRow is the stored shape; members are derived from users on read.
type teamRow struct {
	ID       engine.TeamID
	Name     string
	LeaderID *engine.UserID
}

func NewMemory() *Memory {
	return &Memory{
		users:       make(map[engine.UserID]engine.User),
		teams:       make(map[engine.TeamID]teamRow),
		properties:  make(map[engine.PropertyID]engine.Property),
		jobs:        make(map[engine.JobID]engine.Job),
		assignments: make(map[engine.AssignmentID]engine.Assignment),
	}
}

var _ engine.TxStore = (*Memory)(nil)

// =============================================================================
// SEEDING HELPERS - host-level creation, outside the engine interface
// =============================================================================

func (m *Memory) AddUser(name string, role engine.Role, teamID *engine.TeamID) engine.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUser++
	u := engine.User{ID: m.nextUser, Name: name, Role: role, TeamID: teamID}
	m.users[u.ID] = u
	return u
}

func (m *Memory) AddTeam(name string) engine.Team {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTeam++
	m.teams[m.nextTeam] = teamRow{ID: m.nextTeam, Name: name}
	return engine.Team{ID: m.nextTeam, Name: name}
}

func (m *Memory) AddProperty(address string) engine.Property {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProperty++
	p := engine.Property{ID: m.nextProperty, Address: address}
	m.properties[p.ID] = p
	return p
}

func (m *Memory) AddJob(job engine.Job) engine.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextJob++
	job.ID = m.nextJob
	m.jobs[job.ID] = job
	return job
}

// =============================================================================
// ROSTER DATA
// =============================================================================

func (m *Memory) GetUser(_ context.Context, id engine.UserID) (*engine.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) GetTeam(_ context.Context, id engine.TeamID) (*engine.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTeamLocked(id), nil
}

func (m *Memory) getTeamLocked(id engine.TeamID) *engine.Team {
	row, ok := m.teams[id]
	if !ok {
		return nil
	}
	t := engine.Team{ID: row.ID, Name: row.Name, LeaderID: row.LeaderID}
	for _, u := range m.users {
		if u.TeamID != nil && *u.TeamID == id {
			t.Members = append(t.Members, u)
		}
	}
	sort.Slice(t.Members, func(i, j int) bool { return t.Members[i].ID < t.Members[j].ID })
	return &t
}

func (m *Memory) ListUsers(_ context.Context) ([]engine.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]engine.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *Memory) ListTeams(_ context.Context) ([]engine.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	teams := make([]engine.Team, 0, len(m.teams))
	for id := range m.teams {
		teams = append(teams, *m.getTeamLocked(id))
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	return teams, nil
}

func (m *Memory) SetUserTeam(_ context.Context, id engine.UserID, teamID *engine.TeamID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	u.TeamID = teamID
	m.users[id] = u
	return nil
}

func (m *Memory) SetTeamLeader(_ context.Context, id engine.TeamID, leaderID *engine.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.teams[id]
	if !ok {
		return nil
	}
	row.LeaderID = leaderID
	m.teams[id] = row
	return nil
}

func (m *Memory) SetTeamName(_ context.Context, id engine.TeamID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.teams[id]
	if !ok {
		return nil
	}
	row.Name = name
	m.teams[id] = row
	return nil
}

// =============================================================================
// JOB DATA
// =============================================================================

func (m *Memory) GetJob(_ context.Context, id engine.JobID) (*engine.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	return &j, nil
}

func (m *Memory) JobsByIDs(_ context.Context, ids []engine.JobID) ([]engine.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var jobs []engine.Job
	for _, id := range ids {
		if j, ok := m.jobs[id]; ok {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		if !jobs[i].Date.Equal(jobs[j].Date) {
			return jobs[i].Date.Before(jobs[j].Date)
		}
		return jobs[i].Start < jobs[j].Start
	})
	return jobs, nil
}

func (m *Memory) UncompletedJobsBefore(_ context.Context, date engine.Date) ([]engine.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var jobs []engine.Job
	for _, j := range m.jobs {
		if !j.IsComplete && j.Date.Before(date) {
			jobs = append(jobs, j)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs, nil
}

func (m *Memory) SetJobDate(_ context.Context, id engine.JobID, date engine.Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	j.Date = date
	m.jobs[id] = j
	return nil
}

func (m *Memory) SetJobCompletion(_ context.Context, id engine.JobID, complete bool, report string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	j.IsComplete = complete
	if report != "" {
		j.Report = report
	}
	m.jobs[id] = j
	return nil
}

// =============================================================================
// ASSIGNMENT DATA
// =============================================================================

func (m *Memory) AssignmentsForJob(_ context.Context, jobID engine.JobID) ([]engine.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []engine.Assignment
	for _, a := range m.assignments {
		if a.JobID == jobID {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *Memory) AssignmentsOnDate(_ context.Context, date engine.Date) ([]engine.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []engine.Assignment
	for _, a := range m.assignments {
		if j, ok := m.jobs[a.JobID]; ok && j.Date.Equal(date) {
			rows = append(rows, a)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *Memory) CreateAssignment(_ context.Context, a *engine.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAssignment++
	a.ID = m.nextAssignment
	m.assignments[a.ID] = *a
	return nil
}

func (m *Memory) DeleteAssignment(_ context.Context, id engine.AssignmentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assignments, id)
	return nil
}

func (m *Memory) DeleteAssignmentsForJob(_ context.Context, jobID engine.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.assignments {
		if a.JobID == jobID {
			delete(m.assignments, id)
		}
	}
	return nil
}

func (m *Memory) DeleteAssignmentsForTeam(_ context.Context, teamID engine.TeamID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.assignments {
		if a.TeamID != nil && *a.TeamID == teamID {
			delete(m.assignments, id)
		}
	}
	return nil
}

func (m *Memory) DeleteAssignmentsForUser(_ context.Context, userID engine.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.assignments {
		if a.UserID != nil && *a.UserID == userID {
			delete(m.assignments, id)
		}
	}
	return nil
}

func (m *Memory) JobIDsForAssigneeOnDate(_ context.Context, ref engine.AssigneeRef, date engine.Date) ([]engine.JobID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[engine.JobID]bool)
	var ids []engine.JobID
	for _, a := range m.assignments {
		match := false
		switch {
		case ref.TeamID != nil && a.TeamID != nil:
			match = *a.TeamID == *ref.TeamID
		case ref.UserID != nil && a.UserID != nil:
			match = *a.UserID == *ref.UserID
		}
		if !match || seen[a.JobID] {
			continue
		}
		if j, ok := m.jobs[a.JobID]; ok && j.Date.Equal(date) {
			seen[a.JobID] = true
			ids = append(ids, a.JobID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// =============================================================================
// TRANSACTIONS - snapshot + rollback on error
// =============================================================================

// WithTx executes fn against the store, restoring the pre-call snapshot if
// fn fails. txMu is held from snapshot to restore, so transactions run one
// at a time: a rollback can only undo its own writes, and the
// read-then-write leadership operations get their required isolation. The
// per-operation mu stays free for reads outside transactions.
func (m *Memory) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	if err := fn(&txView{parent: m}); err != nil {
		m.mu.Lock()
		m.restoreLocked(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memorySnapshot struct {
	users       map[engine.UserID]engine.User
	teams       map[engine.TeamID]teamRow
	jobs        map[engine.JobID]engine.Job
	assignments map[engine.AssignmentID]engine.Assignment
}

func (m *Memory) snapshotLocked() memorySnapshot {
	snap := memorySnapshot{
		users:       make(map[engine.UserID]engine.User, len(m.users)),
		teams:       make(map[engine.TeamID]teamRow, len(m.teams)),
		jobs:        make(map[engine.JobID]engine.Job, len(m.jobs)),
		assignments: make(map[engine.AssignmentID]engine.Assignment, len(m.assignments)),
	}
	for k, v := range m.users {
		snap.users[k] = v
	}
	for k, v := range m.teams {
		snap.teams[k] = v
	}
	for k, v := range m.jobs {
		snap.jobs[k] = v
	}
	for k, v := range m.assignments {
		snap.assignments[k] = v
	}
	return snap
}

func (m *Memory) restoreLocked(snap memorySnapshot) {
	m.users = snap.users
	m.teams = snap.teams
	m.jobs = snap.jobs
	m.assignments = snap.assignments
}

// txView delegates to the parent; the snapshot in WithTx provides the
// rollback, so no write buffering is needed.
type txView struct {
	parent *Memory
}

var _ engine.Store = (*txView)(nil)

func (v *txView) GetUser(ctx context.Context, id engine.UserID) (*engine.User, error) {
	return v.parent.GetUser(ctx, id)
}
func (v *txView) GetTeam(ctx context.Context, id engine.TeamID) (*engine.Team, error) {
	return v.parent.GetTeam(ctx, id)
}
func (v *txView) ListUsers(ctx context.Context) ([]engine.User, error) {
	return v.parent.ListUsers(ctx)
}
func (v *txView) ListTeams(ctx context.Context) ([]engine.Team, error) {
	return v.parent.ListTeams(ctx)
}
func (v *txView) SetUserTeam(ctx context.Context, id engine.UserID, teamID *engine.TeamID) error {
	return v.parent.SetUserTeam(ctx, id, teamID)
}
func (v *txView) SetTeamLeader(ctx context.Context, id engine.TeamID, leaderID *engine.UserID) error {
	return v.parent.SetTeamLeader(ctx, id, leaderID)
}
func (v *txView) SetTeamName(ctx context.Context, id engine.TeamID, name string) error {
	return v.parent.SetTeamName(ctx, id, name)
}
func (v *txView) GetJob(ctx context.Context, id engine.JobID) (*engine.Job, error) {
	return v.parent.GetJob(ctx, id)
}
func (v *txView) JobsByIDs(ctx context.Context, ids []engine.JobID) ([]engine.Job, error) {
	return v.parent.JobsByIDs(ctx, ids)
}
func (v *txView) UncompletedJobsBefore(ctx context.Context, date engine.Date) ([]engine.Job, error) {
	return v.parent.UncompletedJobsBefore(ctx, date)
}
func (v *txView) SetJobDate(ctx context.Context, id engine.JobID, date engine.Date) error {
	return v.parent.SetJobDate(ctx, id, date)
}
func (v *txView) SetJobCompletion(ctx context.Context, id engine.JobID, complete bool, report string) error {
	return v.parent.SetJobCompletion(ctx, id, complete, report)
}
func (v *txView) AssignmentsForJob(ctx context.Context, jobID engine.JobID) ([]engine.Assignment, error) {
	return v.parent.AssignmentsForJob(ctx, jobID)
}
func (v *txView) AssignmentsOnDate(ctx context.Context, date engine.Date) ([]engine.Assignment, error) {
	return v.parent.AssignmentsOnDate(ctx, date)
}
func (v *txView) CreateAssignment(ctx context.Context, a *engine.Assignment) error {
	return v.parent.CreateAssignment(ctx, a)
}
func (v *txView) DeleteAssignment(ctx context.Context, id engine.AssignmentID) error {
	return v.parent.DeleteAssignment(ctx, id)
}
func (v *txView) DeleteAssignmentsForJob(ctx context.Context, jobID engine.JobID) error {
	return v.parent.DeleteAssignmentsForJob(ctx, jobID)
}
func (v *txView) DeleteAssignmentsForTeam(ctx context.Context, teamID engine.TeamID) error {
	return v.parent.DeleteAssignmentsForTeam(ctx, teamID)
}
func (v *txView) DeleteAssignmentsForUser(ctx context.Context, userID engine.UserID) error {
	return v.parent.DeleteAssignmentsForUser(ctx, userID)
}
func (v *txView) JobIDsForAssigneeOnDate(ctx context.Context, ref engine.AssigneeRef, date engine.Date) ([]engine.JobID, error) {
	return v.parent.JobIDsForAssigneeOnDate(ctx, ref, date)
}
