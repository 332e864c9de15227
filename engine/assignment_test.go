package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crew-engine/engine"
	"github.com/warp/crew-engine/engine/store"
)

func seedJob(mem *store.Memory, date engine.Date, start, end engine.TimeOfDay) engine.Job {
	p := mem.AddProperty("12 Harbour St")
	return mem.AddJob(engine.Job{
		PropertyID: p.ID,
		Date:       date,
		Start:      start,
		End:        end,
		JobType:    "standard",
	})
}

// =============================================================================
// FULL-REPLACE SEMANTICS
// =============================================================================

func TestAssign_FullReplace(t *testing.T) {
	// GIVEN: job assigned to team T1 and user U1
	// WHEN: Assign is called with teams={T2}, users={U1}
	// THEN: the set is exactly {T2, U1}; the T1 row is gone

	ctx := context.Background()
	mem := store.NewMemory()
	t1 := mem.AddTeam("T1")
	t2 := mem.AddTeam("T2")
	u1 := mem.AddUser("U1", engine.RoleUser, nil)
	job := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))

	assignments := engine.NewAssignments(mem)
	_, err := assignments.Assign(ctx, job.ID, []engine.TeamID{t1.ID}, []engine.UserID{u1.ID})
	require.NoError(t, err)

	set, err := assignments.Assign(ctx, job.ID, []engine.TeamID{t2.ID}, []engine.UserID{u1.ID})
	require.NoError(t, err)

	assert.Equal(t, []engine.TeamID{t2.ID}, set.Teams)
	assert.Equal(t, []engine.UserID{u1.ID}, set.Users)
}

func TestAssign_EmptySetsClearEverything(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	t1 := mem.AddTeam("T1")
	u1 := mem.AddUser("U1", engine.RoleUser, nil)
	job := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))

	assignments := engine.NewAssignments(mem)
	_, err := assignments.Assign(ctx, job.ID, []engine.TeamID{t1.ID}, []engine.UserID{u1.ID})
	require.NoError(t, err)

	set, err := assignments.Assign(ctx, job.ID, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, set.Teams)
	assert.Empty(t, set.Users)
}

func TestAssign_DuplicateInputsCollapse(t *testing.T) {
	// GIVEN: Assign called with the same team id listed twice
	// THEN: exactly one (job, team) row exists

	ctx := context.Background()
	mem := store.NewMemory()
	t1 := mem.AddTeam("T1")
	job := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))

	assignments := engine.NewAssignments(mem)
	set, err := assignments.Assign(ctx, job.ID, []engine.TeamID{t1.ID, t1.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, []engine.TeamID{t1.ID}, set.Teams)

	rows, err := mem.AssignmentsForJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAssign_SurvivingRowsKeepTheirIds(t *testing.T) {
	// Rows already in the new set are left untouched, not recreated.

	ctx := context.Background()
	mem := store.NewMemory()
	t1 := mem.AddTeam("T1")
	t2 := mem.AddTeam("T2")
	job := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))

	assignments := engine.NewAssignments(mem)
	_, err := assignments.Assign(ctx, job.ID, []engine.TeamID{t1.ID}, nil)
	require.NoError(t, err)
	before, err := mem.AssignmentsForJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, before, 1)

	_, err = assignments.Assign(ctx, job.ID, []engine.TeamID{t1.ID, t2.ID}, nil)
	require.NoError(t, err)
	after, err := mem.AssignmentsForJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, before[0].ID, after[0].ID, "surviving row was recreated")
}

func TestAssign_UnknownJob_NotFound(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	assignments := engine.NewAssignments(mem)

	_, err := assignments.Assign(ctx, 404, nil, nil)
	assert.True(t, engine.IsNotFound(err), "expected NotFound, got %v", err)
}

// =============================================================================
// SINGLE-ROW REMOVAL AND REASSIGNMENT
// =============================================================================

func TestUnassignJobFromTeam_IdempotentWhenAbsent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	t1 := mem.AddTeam("T1")
	job := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))

	assignments := engine.NewAssignments(mem)
	require.NoError(t, assignments.UnassignJobFromTeam(ctx, job.ID, t1.ID))

	_, err := assignments.Assign(ctx, job.ID, []engine.TeamID{t1.ID}, nil)
	require.NoError(t, err)
	require.NoError(t, assignments.UnassignJobFromTeam(ctx, job.ID, t1.ID))
	require.NoError(t, assignments.UnassignJobFromTeam(ctx, job.ID, t1.ID))

	set, err := assignments.SetForJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, set.Teams)
}

func TestReassignJobTeam_SwapsColumns(t *testing.T) {
	// GIVEN: a job booked to the old team, plus a personal booking
	// WHEN: the job is dragged to the new team
	// THEN: the team booking swaps; the personal booking is untouched

	ctx := context.Background()
	mem := store.NewMemory()
	oldTeam := mem.AddTeam("Old")
	newTeam := mem.AddTeam("New")
	u1 := mem.AddUser("U1", engine.RoleUser, nil)
	job := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))

	assignments := engine.NewAssignments(mem)
	_, err := assignments.Assign(ctx, job.ID, []engine.TeamID{oldTeam.ID}, []engine.UserID{u1.ID})
	require.NoError(t, err)

	require.NoError(t, assignments.ReassignJobTeam(ctx, job.ID, newTeam.ID, oldTeam.ID))

	set, err := assignments.SetForJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, []engine.TeamID{newTeam.ID}, set.Teams)
	assert.Equal(t, []engine.UserID{u1.ID}, set.Users)
}

func TestReassignJobTeam_AlreadyOnNewTeam_NoDuplicate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	oldTeam := mem.AddTeam("Old")
	newTeam := mem.AddTeam("New")
	job := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))

	assignments := engine.NewAssignments(mem)
	_, err := assignments.Assign(ctx, job.ID, []engine.TeamID{oldTeam.ID, newTeam.ID}, nil)
	require.NoError(t, err)

	require.NoError(t, assignments.ReassignJobTeam(ctx, job.ID, newTeam.ID, oldTeam.ID))

	rows, err := mem.AssignmentsForJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

// =============================================================================
// DATE-SCOPED QUERIES
// =============================================================================

func TestJobsForUserOnDate_UnionsPersonalAndTeamBookings(t *testing.T) {
	// GIVEN: U1 on T1; one job booked to T1, one to U1 personally, one to
	//        another team, and one booked to both T1 and U1
	// WHEN: U1's day is loaded
	// THEN: the T1 and personal jobs appear, the other team's does not,
	//       and the doubly-booked job appears once

	ctx := context.Background()
	mem := store.NewMemory()
	t1 := mem.AddTeam("T1")
	t2 := mem.AddTeam("T2")
	u1 := mem.AddUser("U1", engine.RoleUser, onTeam(t1.ID))
	teamJob := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))
	personalJob := seedJob(mem, jan(10), engine.NewTimeOfDay(13, 0), engine.NewTimeOfDay(15, 0))
	otherJob := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))
	bothJob := seedJob(mem, jan(10), engine.NewTimeOfDay(16, 0), engine.NewTimeOfDay(17, 0))

	assignments := engine.NewAssignments(mem)
	_, err := assignments.Assign(ctx, teamJob.ID, []engine.TeamID{t1.ID}, nil)
	require.NoError(t, err)
	_, err = assignments.Assign(ctx, personalJob.ID, nil, []engine.UserID{u1.ID})
	require.NoError(t, err)
	_, err = assignments.Assign(ctx, otherJob.ID, []engine.TeamID{t2.ID}, nil)
	require.NoError(t, err)
	_, err = assignments.Assign(ctx, bothJob.ID, []engine.TeamID{t1.ID}, []engine.UserID{u1.ID})
	require.NoError(t, err)

	jobs, err := assignments.JobsForUserOnDate(ctx, u1.ID, jan(10))
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	got := make(map[engine.JobID]bool, len(jobs))
	for _, j := range jobs {
		got[j.ID] = true
	}
	assert.True(t, got[teamJob.ID], "team-booked job missing from the user's day")
	assert.True(t, got[personalJob.ID])
	assert.True(t, got[bothJob.ID])

	// Team views stay direct bookings only.
	teamJobs, err := assignments.JobsForTeamOnDate(ctx, t1.ID, jan(10))
	require.NoError(t, err)
	assert.Len(t, teamJobs, 2)
}

func TestJobsForUserOnDate_NoTeam_PersonalOnly(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	t1 := mem.AddTeam("T1")
	u1 := mem.AddUser("U1", engine.RoleUser, nil)
	teamJob := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))
	personalJob := seedJob(mem, jan(10), engine.NewTimeOfDay(13, 0), engine.NewTimeOfDay(15, 0))

	assignments := engine.NewAssignments(mem)
	_, err := assignments.Assign(ctx, teamJob.ID, []engine.TeamID{t1.ID}, nil)
	require.NoError(t, err)
	_, err = assignments.Assign(ctx, personalJob.ID, nil, []engine.UserID{u1.ID})
	require.NoError(t, err)

	jobs, err := assignments.JobsForUserOnDate(ctx, u1.ID, jan(10))
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, personalJob.ID, jobs[0].ID)
}

func TestJobsGroupedByTeamOnDate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	t1 := mem.AddTeam("T1")
	t2 := mem.AddTeam("T2")
	idle := mem.AddTeam("Idle")
	j1 := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))
	j2 := seedJob(mem, jan(10), engine.NewTimeOfDay(12, 0), engine.NewTimeOfDay(14, 0))
	offDate := seedJob(mem, jan(11), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))

	assignments := engine.NewAssignments(mem)
	for _, pair := range []struct {
		job  engine.JobID
		team engine.TeamID
	}{{j1.ID, t1.ID}, {j2.ID, t2.ID}, {offDate.ID, t1.ID}} {
		_, err := assignments.Assign(ctx, pair.job, []engine.TeamID{pair.team}, nil)
		require.NoError(t, err)
	}

	grouped, err := assignments.JobsGroupedByTeamOnDate(ctx, jan(10))
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Equal(t, j1.ID, grouped[t1.ID][0].ID)
	assert.Equal(t, j2.ID, grouped[t2.ID][0].ID)
	assert.NotContains(t, grouped, idle.ID)
}
