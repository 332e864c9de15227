package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warp/crew-engine/engine"
	"github.com/warp/crew-engine/engine/store"
)

func bookTeamJob(t *testing.T, mem *store.Memory, teamID engine.TeamID, date engine.Date, start, end engine.TimeOfDay) engine.Job {
	t.Helper()
	job := seedJob(mem, date, start, end)
	_, err := engine.NewAssignments(mem).Assign(context.Background(), job.ID, []engine.TeamID{teamID}, nil)
	require.NoError(t, err)
	return job
}

func TestBackToBack_GapWithinThreshold_FlagsBothJobs(t *testing.T) {
	// GIVEN: team jobs 09:00-10:00 and 10:10-11:00 (10 minute gap)
	// WHEN: detection runs with threshold 15
	// THEN: both jobs are flagged

	ctx := context.Background()
	mem := store.NewMemory()
	team := mem.AddTeam("T1")
	j1 := bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(10, 0))
	j2 := bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(10, 10), engine.NewTimeOfDay(11, 0))

	detector := engine.NewConflictDetector(mem)
	flagged, err := detector.BackToBack(ctx, jan(10), engine.ForTeam(team.ID), 15)
	require.NoError(t, err)
	require.Equal(t, []engine.JobID{j1.ID, j2.ID}, flagged.IDs())
}

func TestBackToBack_GapAboveThreshold_NoFlags(t *testing.T) {
	// Same 10 minute gap with threshold 5: no conflict.

	ctx := context.Background()
	mem := store.NewMemory()
	team := mem.AddTeam("T1")
	bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(10, 0))
	bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(10, 10), engine.NewTimeOfDay(11, 0))

	detector := engine.NewConflictDetector(mem)
	flagged, err := detector.BackToBack(ctx, jan(10), engine.ForTeam(team.ID), 5)
	require.NoError(t, err)
	require.Empty(t, flagged)
}

func TestBackToBack_ZeroGapCounts(t *testing.T) {
	// Touching jobs (gap exactly zero) are back-to-back even at threshold 0.

	ctx := context.Background()
	mem := store.NewMemory()
	team := mem.AddTeam("T1")
	j1 := bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(10, 0))
	j2 := bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(10, 0), engine.NewTimeOfDay(11, 0))

	detector := engine.NewConflictDetector(mem)
	flagged, err := detector.BackToBack(ctx, jan(10), engine.ForTeam(team.ID), 0)
	require.NoError(t, err)
	require.Equal(t, []engine.JobID{j1.ID, j2.ID}, flagged.IDs())
}

func TestBackToBack_OverlapNotFlagged(t *testing.T) {
	// Overlapping jobs have a negative gap; this detector watches
	// turnaround, not double-booking.

	ctx := context.Background()
	mem := store.NewMemory()
	team := mem.AddTeam("T1")
	bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))
	bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(10, 0), engine.NewTimeOfDay(12, 0))

	detector := engine.NewConflictDetector(mem)
	flagged, err := detector.BackToBack(ctx, jan(10), engine.ForTeam(team.ID), 15)
	require.NoError(t, err)
	require.Empty(t, flagged)
}

func TestBackToBack_MiddleJobFlaggedOnce(t *testing.T) {
	// A job with close neighbors on both sides appears once in the result.

	ctx := context.Background()
	mem := store.NewMemory()
	team := mem.AddTeam("T1")
	j1 := bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(8, 0), engine.NewTimeOfDay(9, 0))
	j2 := bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(9, 5), engine.NewTimeOfDay(10, 0))
	j3 := bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(10, 5), engine.NewTimeOfDay(11, 0))

	detector := engine.NewConflictDetector(mem)
	flagged, err := detector.BackToBack(ctx, jan(10), engine.ForTeam(team.ID), 15)
	require.NoError(t, err)
	require.Equal(t, []engine.JobID{j1.ID, j2.ID, j3.ID}, flagged.IDs())
}

func TestBackToBack_DifferentAssigneesIndependent(t *testing.T) {
	// GIVEN: two teams whose jobs interleave tightly on the same date
	// THEN: each team's detection only sees its own jobs, so no flags

	ctx := context.Background()
	mem := store.NewMemory()
	alpha := mem.AddTeam("Alpha")
	beta := mem.AddTeam("Beta")
	bookTeamJob(t, mem, alpha.ID, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(10, 0))
	bookTeamJob(t, mem, beta.ID, jan(10), engine.NewTimeOfDay(10, 5), engine.NewTimeOfDay(11, 0))

	detector := engine.NewConflictDetector(mem)
	for _, ref := range []engine.AssigneeRef{engine.ForTeam(alpha.ID), engine.ForTeam(beta.ID)} {
		flagged, err := detector.BackToBack(ctx, jan(10), ref, 15)
		require.NoError(t, err)
		require.Empty(t, flagged)
	}
}

func TestBackToBack_OtherDatesExcluded(t *testing.T) {
	// A late job and an early job on the next calendar day are never
	// adjacent.

	ctx := context.Background()
	mem := store.NewMemory()
	team := mem.AddTeam("T1")
	bookTeamJob(t, mem, team.ID, jan(10), engine.NewTimeOfDay(23, 0), engine.NewTimeOfDay(23, 50))
	bookTeamJob(t, mem, team.ID, jan(11), engine.NewTimeOfDay(0, 5), engine.NewTimeOfDay(1, 0))

	detector := engine.NewConflictDetector(mem)
	flagged, err := detector.BackToBack(ctx, jan(10), engine.ForTeam(team.ID), 30)
	require.NoError(t, err)
	require.Empty(t, flagged)
}

func TestBackToBack_ForUser(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	u := mem.AddUser("U1", engine.RoleUser, nil)
	assignments := engine.NewAssignments(mem)

	j1 := seedJob(mem, jan(10), engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(10, 0))
	j2 := seedJob(mem, jan(10), engine.NewTimeOfDay(10, 10), engine.NewTimeOfDay(11, 0))
	for _, id := range []engine.JobID{j1.ID, j2.ID} {
		_, err := assignments.Assign(ctx, id, nil, []engine.UserID{u.ID})
		require.NoError(t, err)
	}

	detector := engine.NewConflictDetector(mem)
	flagged, err := detector.BackToBack(ctx, jan(10), engine.ForUser(u.ID), 15)
	require.NoError(t, err)
	require.True(t, flagged.Contains(j1.ID))
	require.True(t, flagged.Contains(j2.ID))
}
