/*
roster.go - Team membership and leadership operations

PURPOSE:
  Keeps the single invariant of the roster true after every operation, not
  just eventually:

      leader == nil  OR  leader is a current member

  Membership edges (User.TeamID) and the leader field are only ever
  mutated through the operations here, inside the caller's transaction.

LEADERSHIP STATE MACHINE:
  Unset -> Set(u)      explicit SetLeader, or auto-assign
  Set(u) -> Unset      u leaves the team, or explicit clear with no
                       eligible replacement
  Set(a) -> Set(b)     explicit SetLeader, or auto-assign after a left
  No other transitions occur.

AUTO-ASSIGNMENT:
  Members are scanned in ascending-id order and the first supervisor or
  admin becomes leader. Idempotent: with no intervening membership change a
  second run is a no-op.
*/
package engine

import (
	"context"
	"fmt"
)

// Roster performs membership and leadership mutations against the
// transaction-scoped store it is constructed with.
type Roster struct {
	Store Store
}

// NewRoster binds roster operations to a transactional store handle.
func NewRoster(store Store) *Roster { return &Roster{Store: store} }

// =============================================================================
// MEMBERSHIP
// =============================================================================

// AddMember moves the user into the team, detaching them from any previous
// team first. Leadership is repaired on both sides: the new team gets an
// auto-assigned leader if it had none, and the old team's leadership is
// re-validated since its leader may have just left.
func (r *Roster) AddMember(ctx context.Context, teamID TeamID, userID UserID) (*User, error) {
	team, err := r.Store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team: %w", err)
	}
	if team == nil {
		return nil, teamNotFound(teamID)
	}

	user, err := r.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil {
		return nil, userNotFound(userID)
	}

	var oldTeamID *TeamID
	if user.TeamID != nil && *user.TeamID != teamID {
		oldTeamID = user.TeamID
	}

	if err := r.Store.SetUserTeam(ctx, userID, &teamID); err != nil {
		return nil, fmt.Errorf("moving user to team: %w", err)
	}
	user.TeamID = &teamID

	// New team first: if it was leaderless the mover may qualify.
	if team.LeaderID == nil {
		if _, err := r.AutoAssignLeader(ctx, teamID); err != nil {
			return nil, err
		}
	}

	// Old team second: its leader may have been the mover.
	if oldTeamID != nil {
		if _, err := r.AutoAssignLeader(ctx, *oldTeamID); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// RemoveMember detaches the user from the team. Removing the leader clears
// the leader field and runs auto-assignment on what remains. Fails with
// NotFound when the user is not currently on that team.
func (r *Roster) RemoveMember(ctx context.Context, teamID TeamID, userID UserID) (*User, error) {
	team, err := r.Store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team: %w", err)
	}
	if team == nil {
		return nil, teamNotFound(teamID)
	}

	user, err := r.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if user == nil || user.TeamID == nil || *user.TeamID != teamID {
		return nil, userNotFound(userID)
	}

	if err := r.Store.SetUserTeam(ctx, userID, nil); err != nil {
		return nil, fmt.Errorf("detaching user from team: %w", err)
	}
	user.TeamID = nil

	if team.LeaderID != nil && *team.LeaderID == userID {
		if err := r.Store.SetTeamLeader(ctx, teamID, nil); err != nil {
			return nil, fmt.Errorf("clearing leader: %w", err)
		}
		if _, err := r.AutoAssignLeader(ctx, teamID); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// =============================================================================
// LEADERSHIP
// =============================================================================

// SetLeader sets the leader explicitly. A non-member is first added as a
// member (with AddMember's cross-team detachment), so the invariant holds
// the moment the leader field is written.
func (r *Roster) SetLeader(ctx context.Context, teamID TeamID, userID UserID) (*Team, error) {
	team, err := r.Store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team: %w", err)
	}
	if team == nil {
		return nil, teamNotFound(teamID)
	}

	if !team.HasMember(userID) {
		if _, err := r.AddMember(ctx, teamID, userID); err != nil {
			return nil, err
		}
	}

	if err := r.Store.SetTeamLeader(ctx, teamID, &userID); err != nil {
		return nil, fmt.Errorf("setting leader: %w", err)
	}

	return r.Store.GetTeam(ctx, teamID)
}

// ClearLeader removes the leader. With reassign true the orchestration
// layer wants leadership to continue if anyone is eligible; with reassign
// false the team is left deliberately leaderless.
func (r *Roster) ClearLeader(ctx context.Context, teamID TeamID, reassign bool) (*Team, error) {
	team, err := r.Store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team: %w", err)
	}
	if team == nil {
		return nil, teamNotFound(teamID)
	}

	if err := r.Store.SetTeamLeader(ctx, teamID, nil); err != nil {
		return nil, fmt.Errorf("clearing leader: %w", err)
	}

	if reassign {
		return r.AutoAssignLeader(ctx, teamID)
	}
	return r.Store.GetTeam(ctx, teamID)
}

// AutoAssignLeader repairs a team's leadership:
//  1. current leader still a member: no-op
//  2. current leader no longer a member: clear the field
//  3. no leader: first supervisor/admin in ascending-id order, if any
//
// Idempotent by construction; a second call with unchanged membership hits
// case 1 or finds the same candidate.
func (r *Roster) AutoAssignLeader(ctx context.Context, teamID TeamID) (*Team, error) {
	team, err := r.Store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team: %w", err)
	}
	if team == nil {
		return nil, teamNotFound(teamID)
	}

	if team.LeaderID != nil {
		if team.HasMember(*team.LeaderID) {
			return team, nil
		}
		if err := r.Store.SetTeamLeader(ctx, teamID, nil); err != nil {
			return nil, fmt.Errorf("clearing departed leader: %w", err)
		}
		team.LeaderID = nil
	}

	// Members arrive in ascending-id order from the store.
	for _, m := range team.Members {
		if m.Role.CanLead() {
			id := m.ID
			if err := r.Store.SetTeamLeader(ctx, teamID, &id); err != nil {
				return nil, fmt.Errorf("auto-assigning leader: %w", err)
			}
			team.LeaderID = &id
			return team, nil
		}
	}

	// No eligible member; the team stays leaderless.
	return team, nil
}

// =============================================================================
// BULK EDIT
// =============================================================================

// UpdateTeamDetails is the administrative bulk edit: rename, add the
// requested members that are missing (cross-team moves included), and
// apply the leader. Members absent from memberIDs are NOT removed; removal
// is a separate explicit operation.
func (r *Roster) UpdateTeamDetails(ctx context.Context, teamID TeamID, name string, memberIDs []UserID, leaderID *UserID) (*Team, error) {
	team, err := r.Store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("loading team: %w", err)
	}
	if team == nil {
		return nil, teamNotFound(teamID)
	}

	if name != "" && name != team.Name {
		if err := r.Store.SetTeamName(ctx, teamID, name); err != nil {
			return nil, fmt.Errorf("renaming team: %w", err)
		}
	}

	for _, id := range memberIDs {
		if team.HasMember(id) {
			continue
		}
		if _, err := r.AddMember(ctx, teamID, id); err != nil {
			return nil, err
		}
	}

	if leaderID != nil {
		if _, err := r.SetLeader(ctx, teamID, *leaderID); err != nil {
			return nil, err
		}
	} else {
		if _, err := r.ClearLeader(ctx, teamID, true); err != nil {
			return nil, err
		}
	}

	refreshed, err := r.Store.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if err := CheckLeaderInvariant(refreshed); err != nil {
		return nil, err
	}
	return refreshed, nil
}

// =============================================================================
// USER CATEGORIZATION (team edit forms)
// =============================================================================

// UserSplit buckets all users by their relation to one team.
type UserSplit struct {
	CurrentMembers   []User
	OtherTeamMembers []User
	Unassigned       []User
}

// UsersRelativeToTeam splits every user into current members of the given
// team, members of other teams, and unassigned. With teamID nil the
// current-members bucket is empty.
func (r *Roster) UsersRelativeToTeam(ctx context.Context, teamID *TeamID) (*UserSplit, error) {
	users, err := r.Store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	split := &UserSplit{}
	for _, u := range users {
		switch {
		case u.TeamID == nil:
			split.Unassigned = append(split.Unassigned, u)
		case teamID != nil && *u.TeamID == *teamID:
			split.CurrentMembers = append(split.CurrentMembers, u)
		default:
			split.OtherTeamMembers = append(split.OtherTeamMembers, u)
		}
	}
	return split, nil
}

// =============================================================================
// INVARIANT CHECK
// =============================================================================

// CheckLeaderInvariant verifies leader-is-a-member on a loaded team.
// A failure here is a bug in the operations above, not caller error.
func CheckLeaderInvariant(team *Team) error {
	if team == nil || team.LeaderID == nil {
		return nil
	}
	if !team.HasMember(*team.LeaderID) {
		return &InvariantError{
			TeamID: team.ID,
			Detail: fmt.Sprintf("leader %d is not a member", *team.LeaderID),
		}
	}
	return nil
}
