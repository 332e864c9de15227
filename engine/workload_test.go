package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warp/crew-engine/engine"
	"github.com/warp/crew-engine/engine/store"
)

func bookTeam(t *testing.T, mem *store.Memory, teamID engine.TeamID, date engine.Date, n int) {
	t.Helper()
	assignments := engine.NewAssignments(mem)
	for i := 0; i < n; i++ {
		job := seedJob(mem, date, engine.NewTimeOfDay(8+2*i, 0), engine.NewTimeOfDay(9+2*i, 0))
		_, err := assignments.Assign(context.Background(), job.ID, []engine.TeamID{teamID}, nil)
		require.NoError(t, err)
	}
}

func bookUser(t *testing.T, mem *store.Memory, userID engine.UserID, date engine.Date, n int) {
	t.Helper()
	assignments := engine.NewAssignments(mem)
	for i := 0; i < n; i++ {
		job := seedJob(mem, date, engine.NewTimeOfDay(8+2*i, 0), engine.NewTimeOfDay(9+2*i, 0))
		_, err := assignments.Assign(context.Background(), job.ID, nil, []engine.UserID{userID})
		require.NoError(t, err)
	}
}

func TestCategorize_BucketBoundaries(t *testing.T) {
	// GIVEN: default thresholds (0 / 1-2 / 3+) and teams booked 0, 1, 2, 3
	//        times on the date
	// THEN: available={T0}, partial={T1,T2}, full={T3}

	ctx := context.Background()
	mem := store.NewMemory()
	t0 := mem.AddTeam("T0")
	t1 := mem.AddTeam("T1")
	t2 := mem.AddTeam("T2")
	t3 := mem.AddTeam("T3")
	bookTeam(t, mem, t1.ID, jan(10), 1)
	bookTeam(t, mem, t2.ID, jan(10), 2)
	bookTeam(t, mem, t3.ID, jan(10), 3)

	workload := engine.NewWorkload(mem, engine.DefaultWorkloadThresholds())
	report, err := workload.Categorize(ctx, jan(10))
	require.NoError(t, err)

	require.Equal(t, []engine.TeamID{t0.ID}, report.Teams.Available)
	require.Equal(t, []engine.TeamID{t1.ID, t2.ID}, report.Teams.Partial)
	require.Equal(t, []engine.TeamID{t3.ID}, report.Teams.Full)
}

func TestCategorize_OnlyCleaningWorkersInUserBuckets(t *testing.T) {
	// Supervisors and admins never appear in the user-side buckets, booked
	// or not.

	ctx := context.Background()
	mem := store.NewMemory()
	worker := mem.AddUser("Worker", engine.RoleUser, nil)
	sup := mem.AddUser("Sup", engine.RoleSupervisor, nil)
	admin := mem.AddUser("Admin", engine.RoleAdmin, nil)
	bookUser(t, mem, sup.ID, jan(10), 3)
	bookUser(t, mem, admin.ID, jan(10), 1)

	workload := engine.NewWorkload(mem, engine.DefaultWorkloadThresholds())
	report, err := workload.Categorize(ctx, jan(10))
	require.NoError(t, err)

	require.Equal(t, []engine.UserID{worker.ID}, report.Users.Available)
	require.Empty(t, report.Users.Partial)
	require.Empty(t, report.Users.Full)
}

func TestCategorize_OtherDatesDoNotCount(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	team := mem.AddTeam("T1")
	bookTeam(t, mem, team.ID, jan(9), 3)

	workload := engine.NewWorkload(mem, engine.DefaultWorkloadThresholds())
	report, err := workload.Categorize(ctx, jan(10))
	require.NoError(t, err)
	require.Equal(t, []engine.TeamID{team.ID}, report.Teams.Available)
}

func TestCategorize_CustomThresholds(t *testing.T) {
	// A stricter policy (full at 2) reclassifies a twice-booked team.

	ctx := context.Background()
	mem := store.NewMemory()
	team := mem.AddTeam("T1")
	bookTeam(t, mem, team.ID, jan(10), 2)

	workload := engine.NewWorkload(mem, engine.WorkloadThresholds{PartialMin: 1, FullMin: 2})
	report, err := workload.Categorize(ctx, jan(10))
	require.NoError(t, err)
	require.Equal(t, []engine.TeamID{team.ID}, report.Teams.Full)
}
