/*
assignment.go - Job booking operations and date-scoped queries

PURPOSE:
  An Assignment links one job to one team OR one user. This file holds the
  operations that create and destroy those links:

  - Assign: FULL REPLACE of a job's assignment set (not incremental)
  - Unassign*: idempotent single-row removal
  - ReassignJobTeam: atomic drag-and-drop swap between teams
  - RemoveAllForTeam/User: cascade hooks for entity deletion
  - date-scoped queries powering timetables and the categorizer

UNIQUENESS:
  At most one row per (job, user) and per (job, team). Duplicate ids in
  Assign's inputs are deduplicated before the set comparison. The stores
  additionally enforce uniqueness with indexes, but the logic here never
  relies on that backstop.

VISIBILITY RULE:
  A user sees a job only through a direct assignment to them or to their
  current team. A user's day view is therefore the union of their personal
  bookings and their team's bookings.
*/
package engine

import (
	"context"
	"fmt"
)

// Assignments performs booking mutations and queries against the
// transaction-scoped store it is constructed with.
type Assignments struct {
	Store Store
}

// NewAssignments binds assignment operations to a transactional store handle.
func NewAssignments(store Store) *Assignments { return &Assignments{Store: store} }

// =============================================================================
// MUTATIONS
// =============================================================================

// Assign replaces the job's assignments with exactly the given sets. Rows
// not in the new sets are deleted; missing rows are created; rows already
// present are left untouched. Inputs are deduplicated first.
func (a *Assignments) Assign(ctx context.Context, jobID JobID, teamIDs []TeamID, userIDs []UserID) (*AssignmentSet, error) {
	job, err := a.Store.GetJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading job: %w", err)
	}
	if job == nil {
		return nil, jobNotFound(jobID)
	}

	wantTeams := make(map[TeamID]bool, len(teamIDs))
	for _, id := range teamIDs {
		wantTeams[id] = true
	}
	wantUsers := make(map[UserID]bool, len(userIDs))
	for _, id := range userIDs {
		wantUsers[id] = true
	}

	current, err := a.Store.AssignmentsForJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}

	haveTeams := make(map[TeamID]bool)
	haveUsers := make(map[UserID]bool)
	for _, row := range current {
		keep := false
		switch {
		case row.TeamID != nil:
			keep = wantTeams[*row.TeamID]
			if keep {
				haveTeams[*row.TeamID] = true
			}
		case row.UserID != nil:
			keep = wantUsers[*row.UserID]
			if keep {
				haveUsers[*row.UserID] = true
			}
		}
		if !keep {
			if err := a.Store.DeleteAssignment(ctx, row.ID); err != nil {
				return nil, fmt.Errorf("removing stale assignment: %w", err)
			}
		}
	}

	for id := range wantTeams {
		if haveTeams[id] {
			continue
		}
		teamID := id
		if err := a.Store.CreateAssignment(ctx, &Assignment{JobID: jobID, TeamID: &teamID}); err != nil {
			return nil, fmt.Errorf("assigning team %d: %w", id, err)
		}
	}
	for id := range wantUsers {
		if haveUsers[id] {
			continue
		}
		userID := id
		if err := a.Store.CreateAssignment(ctx, &Assignment{JobID: jobID, UserID: &userID}); err != nil {
			return nil, fmt.Errorf("assigning user %d: %w", id, err)
		}
	}

	return a.SetForJob(ctx, jobID)
}

// UnassignJobFromTeam removes the (job, team) row. No-op when absent.
func (a *Assignments) UnassignJobFromTeam(ctx context.Context, jobID JobID, teamID TeamID) error {
	rows, err := a.Store.AssignmentsForJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading assignments: %w", err)
	}
	for _, row := range rows {
		if row.TeamID != nil && *row.TeamID == teamID {
			return a.Store.DeleteAssignment(ctx, row.ID)
		}
	}
	return nil
}

// UnassignJobFromUser removes the (job, user) row. No-op when absent.
func (a *Assignments) UnassignJobFromUser(ctx context.Context, jobID JobID, userID UserID) error {
	rows, err := a.Store.AssignmentsForJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading assignments: %w", err)
	}
	for _, row := range rows {
		if row.UserID != nil && *row.UserID == userID {
			return a.Store.DeleteAssignment(ctx, row.ID)
		}
	}
	return nil
}

// ReassignJobTeam swaps a job's booking from oldTeam to newTeam in one
// step: the old row goes if present, the new row appears unless already
// there. Within the caller's transaction the job never observes a
// zero-team intermediate state.
func (a *Assignments) ReassignJobTeam(ctx context.Context, jobID JobID, newTeamID, oldTeamID TeamID) error {
	job, err := a.Store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading job: %w", err)
	}
	if job == nil {
		return jobNotFound(jobID)
	}

	rows, err := a.Store.AssignmentsForJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("loading assignments: %w", err)
	}

	hasNew := false
	for _, row := range rows {
		if row.TeamID == nil {
			continue
		}
		switch *row.TeamID {
		case oldTeamID:
			if err := a.Store.DeleteAssignment(ctx, row.ID); err != nil {
				return fmt.Errorf("removing old team assignment: %w", err)
			}
		case newTeamID:
			hasNew = true
		}
	}

	if !hasNew {
		teamID := newTeamID
		if err := a.Store.CreateAssignment(ctx, &Assignment{JobID: jobID, TeamID: &teamID}); err != nil {
			return fmt.Errorf("adding new team assignment: %w", err)
		}
	}
	return nil
}

// RemoveAllForTeam destroys every booking of the team. Called when the
// team is deleted so no assignment dangles.
func (a *Assignments) RemoveAllForTeam(ctx context.Context, teamID TeamID) error {
	return a.Store.DeleteAssignmentsForTeam(ctx, teamID)
}

// RemoveAllForUser destroys every personal booking of the user.
func (a *Assignments) RemoveAllForUser(ctx context.Context, userID UserID) error {
	return a.Store.DeleteAssignmentsForUser(ctx, userID)
}

// RemoveAllForJob destroys a deleted job's bookings.
func (a *Assignments) RemoveAllForJob(ctx context.Context, jobID JobID) error {
	return a.Store.DeleteAssignmentsForJob(ctx, jobID)
}

// =============================================================================
// QUERIES
// =============================================================================

// SetForJob returns the job's current bookings split by kind.
func (a *Assignments) SetForJob(ctx context.Context, jobID JobID) (*AssignmentSet, error) {
	rows, err := a.Store.AssignmentsForJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}
	set := &AssignmentSet{JobID: jobID}
	for _, row := range rows {
		switch {
		case row.TeamID != nil:
			set.Teams = append(set.Teams, *row.TeamID)
		case row.UserID != nil:
			set.Users = append(set.Users, *row.UserID)
		}
	}
	return set, nil
}

// JobsForUserOnDate returns the user's day: jobs booked to them personally
// unioned with jobs booked to their current team. A user without a team
// sees only personal bookings.
func (a *Assignments) JobsForUserOnDate(ctx context.Context, userID UserID, date Date) ([]Job, error) {
	user, err := a.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, userNotFound(userID)
	}

	ids, err := a.Store.JobIDsForAssigneeOnDate(ctx, ForUser(userID), date)
	if err != nil {
		return nil, fmt.Errorf("looking up personal bookings: %w", err)
	}
	if user.TeamID != nil {
		teamIDs, err := a.Store.JobIDsForAssigneeOnDate(ctx, ForTeam(*user.TeamID), date)
		if err != nil {
			return nil, fmt.Errorf("looking up team bookings: %w", err)
		}
		seen := make(map[JobID]bool, len(ids))
		for _, id := range ids {
			seen[id] = true
		}
		for _, id := range teamIDs {
			if !seen[id] {
				ids = append(ids, id)
			}
		}
	}
	return a.Store.JobsByIDs(ctx, ids)
}

// JobsForTeamOnDate returns jobs on the date booked directly to the team.
func (a *Assignments) JobsForTeamOnDate(ctx context.Context, teamID TeamID, date Date) ([]Job, error) {
	return a.jobsForAssignee(ctx, ForTeam(teamID), date)
}

func (a *Assignments) jobsForAssignee(ctx context.Context, ref AssigneeRef, date Date) ([]Job, error) {
	ids, err := a.Store.JobIDsForAssigneeOnDate(ctx, ref, date)
	if err != nil {
		return nil, fmt.Errorf("looking up bookings: %w", err)
	}
	return a.Store.JobsByIDs(ctx, ids)
}

// AllAssignmentsOnDate returns every booking on the local date. This is
// the categorizer's input.
func (a *Assignments) AllAssignmentsOnDate(ctx context.Context, date Date) ([]Assignment, error) {
	return a.Store.AssignmentsOnDate(ctx, date)
}

// JobsGroupedByTeamOnDate maps each team with bookings on the date to its
// jobs, ordered by start time. Teams without bookings are absent; the team
// timetable view unions this with the full team list.
func (a *Assignments) JobsGroupedByTeamOnDate(ctx context.Context, date Date) (map[TeamID][]Job, error) {
	rows, err := a.Store.AssignmentsOnDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}

	byTeam := make(map[TeamID][]JobID)
	for _, row := range rows {
		if row.TeamID != nil {
			byTeam[*row.TeamID] = append(byTeam[*row.TeamID], row.JobID)
		}
	}

	grouped := make(map[TeamID][]Job, len(byTeam))
	for teamID, ids := range byTeam {
		jobs, err := a.Store.JobsByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("loading jobs for team %d: %w", teamID, err)
		}
		grouped[teamID] = jobs
	}
	return grouped, nil
}
