/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Team membership/leadership endpoints keeping the leader invariant
- Full-replace assignment endpoint
- Timetable view: rollover-on-read and back-to-back flags
- Workload buckets
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/warp/crew-engine/engine"
	"github.com/warp/crew-engine/store/sqlite"
)

// fixture wires a handler over an in-memory store with a frozen clock.
type fixture struct {
	store   *sqlite.Store
	handler *Handler
	router  http.Handler
}

func newFixture(t *testing.T, zone string, now time.Time) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, engine.NewClockAt(zone, now), zap.NewNop(),
		engine.DefaultWorkloadThresholds(), 15)
	return &fixture{store: store, handler: h, router: NewRouter(h, []string{"*"})}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return v
}

func (f *fixture) seedUser(t *testing.T, name string, role engine.Role) engine.User {
	t.Helper()
	u := engine.User{Name: name, Role: role}
	if err := f.store.CreateUser(context.Background(), &u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

func (f *fixture) seedTeam(t *testing.T, name string) engine.Team {
	t.Helper()
	tm := engine.Team{Name: name}
	if err := f.store.CreateTeam(context.Background(), &tm); err != nil {
		t.Fatalf("Failed to create team: %v", err)
	}
	return tm
}

func (f *fixture) seedJob(t *testing.T, date engine.Date, start, end engine.TimeOfDay) engine.Job {
	t.Helper()
	ctx := context.Background()
	p := engine.Property{Address: "12 Harbour St"}
	if err := f.store.CreateProperty(ctx, &p); err != nil {
		t.Fatalf("Failed to create property: %v", err)
	}
	j := engine.Job{PropertyID: p.ID, Date: date, Start: start, End: end}
	if err := f.store.CreateJob(ctx, &j); err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	return j
}

func aucklandNoon(d engine.Date) time.Time {
	loc, _ := time.LoadLocation("Pacific/Auckland")
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, loc)
}

// =============================================================================
// TEAM ENDPOINTS
// =============================================================================

func TestAddMember_AutoAssignsLeader(t *testing.T) {
	// GIVEN: an empty team and an unassigned supervisor
	// WHEN: POST /api/teams/{id}/members
	// THEN: the supervisor is a member and the leader

	f := newFixture(t, "Pacific/Auckland", aucklandNoon(engine.NewDate(2024, time.January, 10)))
	team := f.seedTeam(t, "Alpha")
	sup := f.seedUser(t, "Sup", engine.RoleSupervisor)

	rec := f.do(t, http.MethodPost, fmt.Sprintf("/api/teams/%d/members", team.ID),
		MemberRequest{UserID: sup.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	dto := decode[TeamDTO](t, rec)
	if dto.LeaderID == nil || *dto.LeaderID != sup.ID {
		t.Errorf("expected leader %d, got %v", sup.ID, dto.LeaderID)
	}
	if len(dto.Members) != 1 {
		t.Errorf("expected 1 member, got %d", len(dto.Members))
	}
}

func TestRemoveMember_UnknownUser_Returns404(t *testing.T) {
	f := newFixture(t, "UTC", time.Now())
	team := f.seedTeam(t, "Alpha")

	rec := f.do(t, http.MethodDelete, fmt.Sprintf("/api/teams/%d/members/99", team.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteTeam_DetachesMembersAndBookings(t *testing.T) {
	f := newFixture(t, "UTC", time.Now())
	team := f.seedTeam(t, "Alpha")
	u := f.seedUser(t, "Worker", engine.RoleUser)
	ctx := context.Background()
	if err := f.store.SetUserTeam(ctx, u.ID, &team.ID); err != nil {
		t.Fatalf("Failed to attach member: %v", err)
	}
	job := f.seedJob(t, engine.NewDate(2024, time.January, 10),
		engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))
	a := engine.Assignment{JobID: job.ID, TeamID: &team.ID}
	if err := f.store.CreateAssignment(ctx, &a); err != nil {
		t.Fatalf("Failed to create assignment: %v", err)
	}

	rec := f.do(t, http.MethodDelete, fmt.Sprintf("/api/teams/%d", team.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := f.store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("Failed to reload user: %v", err)
	}
	if got.TeamID != nil {
		t.Error("member still attached to deleted team")
	}
	rows, err := f.store.AssignmentsForJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("Failed to load assignments: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no assignments, got %d", len(rows))
	}
}

// =============================================================================
// ASSIGNMENT ENDPOINT
// =============================================================================

func TestAssignJob_FullReplace(t *testing.T) {
	// GIVEN: a job booked to team T1
	// WHEN: PUT /api/jobs/{id}/assignments with {T2}, {U1}
	// THEN: the response set is exactly {T2}, {U1}

	f := newFixture(t, "UTC", time.Now())
	t1 := f.seedTeam(t, "T1")
	t2 := f.seedTeam(t, "T2")
	u1 := f.seedUser(t, "U1", engine.RoleUser)
	job := f.seedJob(t, engine.NewDate(2024, time.January, 10),
		engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(11, 0))

	rec := f.do(t, http.MethodPut, fmt.Sprintf("/api/jobs/%d/assignments", job.ID),
		AssignRequest{TeamIDs: []engine.TeamID{t1.ID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("first assign: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPut, fmt.Sprintf("/api/jobs/%d/assignments", job.ID),
		AssignRequest{TeamIDs: []engine.TeamID{t2.ID}, UserIDs: []engine.UserID{u1.ID}})
	if rec.Code != http.StatusOK {
		t.Fatalf("replace: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	set := decode[AssignmentSetDTO](t, rec)
	if len(set.Teams) != 1 || set.Teams[0] != t2.ID {
		t.Errorf("expected teams [%d], got %v", t2.ID, set.Teams)
	}
	if len(set.Users) != 1 || set.Users[0] != u1.ID {
		t.Errorf("expected users [%d], got %v", u1.ID, set.Users)
	}
}

func TestAssignJob_UnknownJob_Returns404(t *testing.T) {
	f := newFixture(t, "UTC", time.Now())
	rec := f.do(t, http.MethodPut, "/api/jobs/404/assignments", AssignRequest{})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =============================================================================
// TIMETABLE VIEW
// =============================================================================

func TestGetTimetable_RollsOverdueJobsForwardAndFlagsConflicts(t *testing.T) {
	// GIVEN: local today is Jan 10; an overdue incomplete job from Jan 7 and
	//        a job at 10:10, both booked to the team; the overdue job ran
	//        09:00-10:00 so after rollover the two sit 10 minutes apart
	// WHEN: GET /api/timetable for today
	// THEN: both jobs appear, both flagged back-to-back, rolled_over = 1

	today := engine.NewDate(2024, time.January, 10)
	f := newFixture(t, "Pacific/Auckland", aucklandNoon(today))
	team := f.seedTeam(t, "Alpha")
	ctx := context.Background()

	overdue := f.seedJob(t, engine.NewDate(2024, time.January, 7),
		engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(10, 0))
	late := f.seedJob(t, today, engine.NewTimeOfDay(10, 10), engine.NewTimeOfDay(11, 0))
	for _, jobID := range []engine.JobID{overdue.ID, late.ID} {
		a := engine.Assignment{JobID: jobID, TeamID: &team.ID}
		if err := f.store.CreateAssignment(ctx, &a); err != nil {
			t.Fatalf("Failed to create assignment: %v", err)
		}
	}

	rec := f.do(t, http.MethodGet,
		fmt.Sprintf("/api/timetable?date=%s&team_id=%d", today, team.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	dto := decode[TimetableDTO](t, rec)
	if dto.RolledOver != 1 {
		t.Errorf("expected 1 rolled over, got %d", dto.RolledOver)
	}
	if len(dto.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(dto.Jobs))
	}
	for _, j := range dto.Jobs {
		if !j.Conflict {
			t.Errorf("job %d not flagged back-to-back", j.ID)
		}
	}
}

func TestGetTimetable_PastDateDoesNotRollover(t *testing.T) {
	today := engine.NewDate(2024, time.January, 10)
	f := newFixture(t, "Pacific/Auckland", aucklandNoon(today))
	team := f.seedTeam(t, "Alpha")
	overdue := f.seedJob(t, engine.NewDate(2024, time.January, 7),
		engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(10, 0))
	a := engine.Assignment{JobID: overdue.ID, TeamID: &team.ID}
	if err := f.store.CreateAssignment(context.Background(), &a); err != nil {
		t.Fatalf("Failed to create assignment: %v", err)
	}

	rec := f.do(t, http.MethodGet,
		fmt.Sprintf("/api/timetable?date=2024-01-07&team_id=%d", team.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	dto := decode[TimetableDTO](t, rec)
	if dto.RolledOver != 0 {
		t.Errorf("viewing a past day must not mutate; rolled %d", dto.RolledOver)
	}
	if len(dto.Jobs) != 1 {
		t.Errorf("expected the overdue job on its own date, got %d jobs", len(dto.Jobs))
	}
}

func TestGetTimetable_UserDayIncludesTeamBookings(t *testing.T) {
	// GIVEN: a user on a team, one job booked to the team and one to the
	//        user personally
	// WHEN: GET /api/timetable?user_id=...
	// THEN: both jobs appear

	today := engine.NewDate(2024, time.January, 10)
	f := newFixture(t, "Pacific/Auckland", aucklandNoon(today))
	team := f.seedTeam(t, "Alpha")
	u := f.seedUser(t, "Worker", engine.RoleUser)
	ctx := context.Background()
	if err := f.store.SetUserTeam(ctx, u.ID, &team.ID); err != nil {
		t.Fatalf("Failed to attach member: %v", err)
	}
	teamJob := f.seedJob(t, today, engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(10, 0))
	personalJob := f.seedJob(t, today, engine.NewTimeOfDay(13, 0), engine.NewTimeOfDay(14, 0))
	for job, a := range map[engine.JobID]engine.Assignment{
		teamJob.ID:     {JobID: teamJob.ID, TeamID: &team.ID},
		personalJob.ID: {JobID: personalJob.ID, UserID: &u.ID},
	} {
		a := a
		if err := f.store.CreateAssignment(ctx, &a); err != nil {
			t.Fatalf("Failed to create assignment for job %d: %v", job, err)
		}
	}

	rec := f.do(t, http.MethodGet,
		fmt.Sprintf("/api/timetable?date=%s&user_id=%d", today, u.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	dto := decode[TimetableDTO](t, rec)
	if len(dto.Jobs) != 2 {
		t.Fatalf("expected the team and personal jobs, got %d jobs", len(dto.Jobs))
	}
}

func TestGetTimetable_RequiresExactlyOneAssignee(t *testing.T) {
	f := newFixture(t, "UTC", time.Now())
	for _, q := range []string{"", "team_id=1&user_id=2"} {
		rec := f.do(t, http.MethodGet, "/api/timetable?"+q, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: expected 400, got %d", q, rec.Code)
		}
	}
}

// =============================================================================
// WORKLOAD VIEW
// =============================================================================

func TestGetWorkload_Buckets(t *testing.T) {
	today := engine.NewDate(2024, time.January, 10)
	f := newFixture(t, "Pacific/Auckland", aucklandNoon(today))
	busy := f.seedTeam(t, "Busy")
	f.seedTeam(t, "Idle")
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		job := f.seedJob(t, today,
			engine.NewTimeOfDay(8+2*i, 0), engine.NewTimeOfDay(9+2*i, 0))
		a := engine.Assignment{JobID: job.ID, TeamID: &busy.ID}
		if err := f.store.CreateAssignment(ctx, &a); err != nil {
			t.Fatalf("Failed to create assignment: %v", err)
		}
	}

	rec := f.do(t, http.MethodGet, "/api/workload?date="+today.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	dto := decode[WorkloadDTO](t, rec)
	if len(dto.Teams.Full) != 1 || dto.Teams.Full[0] != int64(busy.ID) {
		t.Errorf("expected full=[%d], got %v", busy.ID, dto.Teams.Full)
	}
	if len(dto.Teams.Available) != 1 {
		t.Errorf("expected one available team, got %v", dto.Teams.Available)
	}
}

// =============================================================================
// BACKGROUND ROLLOVER
// =============================================================================

func TestRolloverScheduler_RunNow(t *testing.T) {
	// GIVEN: local today is Jan 10 and an incomplete job sits on Jan 7
	// WHEN: the scheduler check runs
	// THEN: the job is on today's date; a second run moves nothing

	today := engine.NewDate(2024, time.January, 10)
	f := newFixture(t, "Pacific/Auckland", aucklandNoon(today))
	overdue := f.seedJob(t, engine.NewDate(2024, time.January, 7),
		engine.NewTimeOfDay(9, 0), engine.NewTimeOfDay(10, 0))

	scheduler := NewRolloverScheduler(f.store, f.handler.Clock, zap.NewNop())
	scheduler.RunNow()

	got, err := f.store.GetJob(context.Background(), overdue.ID)
	if err != nil {
		t.Fatalf("Failed to reload job: %v", err)
	}
	if !got.Date.Equal(today) {
		t.Errorf("expected job on %s, got %s", today, got.Date)
	}

	scheduler.RunNow()
	got, err = f.store.GetJob(context.Background(), overdue.ID)
	if err != nil {
		t.Fatalf("Failed to reload job: %v", err)
	}
	if !got.Date.Equal(today) {
		t.Errorf("second run must be a no-op, job now on %s", got.Date)
	}
}

// =============================================================================
// JOB PRESENTATION
// =============================================================================

func TestCreateJob_DerivesDurationFields(t *testing.T) {
	f := newFixture(t, "Pacific/Auckland", aucklandNoon(engine.NewDate(2024, time.January, 10)))
	p := engine.Property{Address: "1 Beach Rd"}
	if err := f.store.CreateProperty(context.Background(), &p); err != nil {
		t.Fatalf("Failed to create property: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/api/jobs", CreateJobRequest{
		PropertyID: p.ID,
		Date:       "2024-01-10",
		StartTime:  "09:00",
		EndTime:    "10:30",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	dto := decode[JobDTO](t, rec)
	if dto.DurationMinutes != 90 {
		t.Errorf("expected 90 minutes, got %d", dto.DurationMinutes)
	}
	if dto.DurationHours != "1.5" {
		t.Errorf("expected 1.5 hours, got %q", dto.DurationHours)
	}
}
