/*
orchestrator.go - Top-level coordination of roster and assignment changes

PURPOSE:
  The host's flows rarely touch a single concern: replacing a job's crew
  is an assignment change, moving a worker between teams is a roster change
  that ripples into leadership on two teams, and deleting a team or user
  must cascade into assignments. The Orchestrator packages those flows so
  every call site runs one engine entry point inside one transaction.

  Construct a fresh Orchestrator per transaction, over the Store handle
  WithTx provides.
*/
package engine

import (
	"context"
	"fmt"
)

// Orchestrator composes roster and assignment operations for the host's
// multi-entity flows.
type Orchestrator struct {
	roster      *Roster
	assignments *Assignments
}

// NewOrchestrator builds the orchestrator over one transactional handle.
func NewOrchestrator(store Store) *Orchestrator {
	return &Orchestrator{
		roster:      NewRoster(store),
		assignments: NewAssignments(store),
	}
}

// Roster exposes the underlying roster operations.
func (o *Orchestrator) Roster() *Roster { return o.roster }

// Assignments exposes the underlying assignment operations.
func (o *Orchestrator) Assignments() *Assignments { return o.assignments }

// ChangeJobAssignments full-replaces a job's crew and returns the
// resulting set.
func (o *Orchestrator) ChangeJobAssignments(ctx context.Context, jobID JobID, teamIDs []TeamID, userIDs []UserID) (*AssignmentSet, error) {
	return o.assignments.Assign(ctx, jobID, teamIDs, userIDs)
}

// MoveMember moves a user onto a team, with leadership repaired on both
// the new and the old team.
func (o *Orchestrator) MoveMember(ctx context.Context, userID UserID, toTeamID TeamID) (*User, error) {
	return o.roster.AddMember(ctx, toTeamID, userID)
}

// MoveJobBetweenTeams is the drag-and-drop reassignment of a job from one
// team's column to another's.
func (o *Orchestrator) MoveJobBetweenTeams(ctx context.Context, jobID JobID, fromTeamID, toTeamID TeamID) error {
	return o.assignments.ReassignJobTeam(ctx, jobID, toTeamID, fromTeamID)
}

// TeamDeleted is the cascade hook for team deletion: every booking of the
// team is destroyed and every member detached. The caller deletes the team
// row itself afterwards.
func (o *Orchestrator) TeamDeleted(ctx context.Context, teamID TeamID) error {
	team, err := o.roster.Store.GetTeam(ctx, teamID)
	if err != nil {
		return fmt.Errorf("loading team: %w", err)
	}
	if team == nil {
		return teamNotFound(teamID)
	}

	if err := o.assignments.RemoveAllForTeam(ctx, teamID); err != nil {
		return fmt.Errorf("removing team bookings: %w", err)
	}

	for _, m := range team.Members {
		if err := o.roster.Store.SetUserTeam(ctx, m.ID, nil); err != nil {
			return fmt.Errorf("detaching member %d: %w", m.ID, err)
		}
	}
	return nil
}

// UserDeleted is the cascade hook for user deletion: personal bookings are
// destroyed, and if the user led a team its leadership is repaired. The
// caller deletes the user row itself afterwards.
func (o *Orchestrator) UserDeleted(ctx context.Context, userID UserID) error {
	user, err := o.roster.Store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return userNotFound(userID)
	}

	if err := o.assignments.RemoveAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("removing user bookings: %w", err)
	}

	if user.TeamID != nil {
		if _, err := o.roster.RemoveMember(ctx, *user.TeamID, userID); err != nil {
			return err
		}
	}
	return nil
}
