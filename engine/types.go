/*
Package engine is the team roster and job assignment core of the crew
scheduler.

PURPOSE:
  This package owns the invariant-bearing logic of the system: team
  leadership consistency, job booking uniqueness, workload categorization,
  back-to-back conflict detection, and rollover of incomplete jobs. Page
  rendering, uploads and authentication live outside and call in through
  the operations defined here.

KEY CONCEPTS IN THIS FILE (types.go):
  - User/Team/Job/Assignment: the persistent entities
  - Role: admin, supervisor, user (cleaning worker)
  - AssignmentSet: a job's current bookings, split by team and user

DESIGN PRINCIPLES:
  1. The engine never owns a transaction boundary; every operation runs
     against a Store handle supplied by the caller (see store.go).
  2. All date comparisons are local-calendar comparisons computed through
     Clock (see clock.go), never raw UTC midnights.
  3. An Assignment references exactly one of user or team, never both.

SEE ALSO:
  - roster.go: membership and leadership operations
  - assignment.go: booking operations and date-scoped queries
  - store.go: persistence interface handed in by the host
*/
package engine

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID int64
type TeamID int64
type JobID int64
type PropertyID int64
type AssignmentID int64

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleUser       Role = "user"
)

// CanLead reports whether a member with this role is eligible for
// leadership auto-assignment.
func (r Role) CanLead() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

// =============================================================================
// ENTITIES
// =============================================================================

// User is a worker or operator. A user belongs to at most one team at a
// time; TeamID is nil when unassigned.
type User struct {
	ID     UserID
	Name   string
	Email  string
	Role   Role
	TeamID *TeamID
}

// Team groups users under at most one leader. Invariant: LeaderID is nil
// or names a current member. Members are ordered by ascending id, which is
// the stable scan order for leadership auto-assignment.
type Team struct {
	ID       TeamID
	Name     string
	LeaderID *UserID
	Members  []User
}

// HasMember reports whether the given user is currently on the team.
func (t *Team) HasMember(id UserID) bool {
	for _, m := range t.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// Property is opaque to the engine; jobs reference it by id only.
type Property struct {
	ID          PropertyID
	Address     string
	AccessNotes string
}

// Job is a scheduled cleaning visit. Date, Start and End are local
// wall-clock values in the configured zone; Arrival is a UTC instant.
// Only Date and IsComplete are mutated by this engine.
type Job struct {
	ID         JobID
	PropertyID PropertyID
	Date       Date
	Start      TimeOfDay
	End        TimeOfDay
	Arrival    *time.Time
	IsComplete bool
	JobType    string
	Notes      string
	Report     string
}

// DurationMinutes is the canonical duration: elapsed minutes from Start to
// End, treating End earlier than Start as an overnight span.
func (j *Job) DurationMinutes() int {
	d := int(j.End) - int(j.Start)
	if d < 0 {
		d += 24 * 60
	}
	return d
}

// Assignment books a job against exactly one team or exactly one user.
// At most one row exists per (job, user) and per (job, team).
type Assignment struct {
	ID     AssignmentID
	JobID  JobID
	UserID *UserID
	TeamID *TeamID
}

// Valid reports whether the row satisfies the exactly-one-of rule.
func (a Assignment) Valid() bool {
	return (a.UserID == nil) != (a.TeamID == nil)
}

// AssignmentSet is a job's current bookings split by kind.
type AssignmentSet struct {
	JobID JobID
	Teams []TeamID
	Users []UserID
}

// =============================================================================
// ASSIGNEE REFERENCE - team-or-user parameter for per-assignee queries
// =============================================================================

// AssigneeRef names either a team or a user for date-scoped queries such as
// back-to-back detection. Exactly one field is set.
type AssigneeRef struct {
	UserID *UserID
	TeamID *TeamID
}

func ForUser(id UserID) AssigneeRef { return AssigneeRef{UserID: &id} }
func ForTeam(id TeamID) AssigneeRef { return AssigneeRef{TeamID: &id} }
