/*
store.go - Persistence interface between the engine and the database

PURPOSE:
  The engine is a library: it is handed a live transactional handle and
  never opens, commits or rolls back a transaction itself. Store is that
  handle. A request-scoped caller wraps one or more engine operations in
  TxStore.WithTx so a concurrent reader never observes a dangling leader
  or a half-replaced assignment set.

INTERFACE SHAPE:
  Store is split by entity family (RosterData, JobData, AssignmentData) so
  tests can fake a slice of it, but implementations provide the whole
  surface. Getters return (nil, nil) for a missing row; the engine layers
  the NotFound taxonomy on top.

CONCURRENCY:
  Operations that read-then-write a team (membership change followed by
  leadership auto-assignment) rely on WithTx serializing concurrent writers
  on the same rows. The SQLite implementation takes a store-wide write
  lock; a PostgreSQL implementation would use row locks instead.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - engine/store: in-memory store for tests and dev
*/
package engine

import "context"

// =============================================================================
// STORE - the transactional data-access handle
// =============================================================================

// Store is the data-access surface engine operations run against. Within
// WithTx every method sees and mutates the same uncommitted state.
type Store interface {
	RosterData
	JobData
	AssignmentData
}

// TxStore is a Store that can run a function inside one atomic transaction.
// If fn returns an error the transaction is rolled back.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// ROSTER DATA - users, teams, membership, leadership
// =============================================================================

type RosterData interface {
	// GetUser returns nil (no error) when the user does not exist.
	GetUser(ctx context.Context, id UserID) (*User, error)

	// GetTeam returns the team with Members loaded in ascending-id order,
	// or nil when the team does not exist.
	GetTeam(ctx context.Context, id TeamID) (*Team, error)

	ListUsers(ctx context.Context) ([]User, error)
	ListTeams(ctx context.Context) ([]Team, error)

	// SetUserTeam moves the user onto a team (or off every team with nil).
	SetUserTeam(ctx context.Context, id UserID, teamID *TeamID) error

	// SetTeamLeader writes the leader field. Callers are responsible for
	// the leader-is-a-member invariant; see Roster.
	SetTeamLeader(ctx context.Context, id TeamID, leaderID *UserID) error

	SetTeamName(ctx context.Context, id TeamID, name string) error
}

// =============================================================================
// JOB DATA
// =============================================================================

type JobData interface {
	// GetJob returns nil (no error) when the job does not exist.
	GetJob(ctx context.Context, id JobID) (*Job, error)

	// JobsByIDs returns the named jobs ordered by date then start time.
	// Unknown ids are skipped.
	JobsByIDs(ctx context.Context, ids []JobID) ([]Job, error)

	// UncompletedJobsBefore returns incomplete jobs dated strictly before
	// the given local date.
	UncompletedJobsBefore(ctx context.Context, date Date) ([]Job, error)

	SetJobDate(ctx context.Context, id JobID, date Date) error

	// SetJobCompletion flags a job complete/incomplete and records the
	// completion report text.
	SetJobCompletion(ctx context.Context, id JobID, complete bool, report string) error
}

// =============================================================================
// ASSIGNMENT DATA
// =============================================================================

type AssignmentData interface {
	AssignmentsForJob(ctx context.Context, jobID JobID) ([]Assignment, error)

	// AssignmentsOnDate returns every assignment whose job falls on the
	// given local date.
	AssignmentsOnDate(ctx context.Context, date Date) ([]Assignment, error)

	// CreateAssignment inserts a row and fills in its ID. The row must
	// satisfy Assignment.Valid.
	CreateAssignment(ctx context.Context, a *Assignment) error

	DeleteAssignment(ctx context.Context, id AssignmentID) error

	DeleteAssignmentsForJob(ctx context.Context, jobID JobID) error
	DeleteAssignmentsForTeam(ctx context.Context, teamID TeamID) error
	DeleteAssignmentsForUser(ctx context.Context, userID UserID) error

	// JobIDsForAssigneeOnDate returns distinct ids of jobs on the date
	// directly assigned to the referenced team or user. Team membership
	// alone does not produce a hit.
	JobIDsForAssigneeOnDate(ctx context.Context, ref AssigneeRef, date Date) ([]JobID, error)
}
