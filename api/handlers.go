/*
handlers.go - HTTP API handlers for the crew scheduling system

PURPOSE:
  Exposes the roster and assignment engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the engine
  operations inside store transactions.

ENDPOINTS:
  Users:
    GET    /api/users                  List all users
    POST   /api/users                  Create user
    GET    /api/users/{id}             Get user
    DELETE /api/users/{id}             Delete user (cascades bookings)

  Teams:
    GET    /api/teams                  List teams with members
    POST   /api/teams                  Create team
    GET    /api/teams/{id}             Team detail + edit-form user split
    PUT    /api/teams/{id}             Bulk edit (rename/members/leader)
    DELETE /api/teams/{id}             Delete team (cascades bookings)
    POST   /api/teams/{id}/members     Add member
    DELETE /api/teams/{id}/members/{userID}  Remove member
    PUT    /api/teams/{id}/leader      Set leader
    DELETE /api/teams/{id}/leader      Clear leader (?reassign=false to skip)

  Jobs:
    POST   /api/jobs                   Create job
    GET    /api/jobs/{id}              Job + assignment set
    DELETE /api/jobs/{id}              Delete job (cascades bookings)
    PUT    /api/jobs/{id}/assignments  Full-replace assignment set
    POST   /api/jobs/{id}/reassign     Move between team columns
    POST   /api/jobs/{id}/complete     Mark complete with report

  Schedule views:
    GET    /api/timetable              One assignee's day (+conflict flags)
    GET    /api/board                  All teams' columns for a date
    GET    /api/workload               Availability buckets for a date

TRANSACTIONS:
  Every mutation runs its engine operations inside Store.WithTx, so a
  failed leadership repair or cascade rolls the whole request back.

ERROR HANDLING:
  - 400: Validation errors, invalid input
  - 404: Missing team/user/job (engine NotFound)
  - 500: Internal errors, invariant violations

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/crew-engine/engine"
	"github.com/warp/crew-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  *sqlite.Store
	Clock  *engine.Clock
	Logger *zap.Logger

	Thresholds        engine.WorkloadThresholds
	BackToBackMinutes int
}

// NewHandler creates a handler over the store with the scheduling policy
// knobs resolved from configuration.
func NewHandler(store *sqlite.Store, clock *engine.Clock, logger *zap.Logger, thresholds engine.WorkloadThresholds, backToBackMinutes int) *Handler {
	return &Handler{
		Store:             store,
		Clock:             clock,
		Logger:            logger,
		Thresholds:        thresholds,
		BackToBackMinutes: backToBackMinutes,
	}
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// ListUsers returns all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTOs(users))
}

// GetUser returns a single user.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.Store.GetUser(r.Context(), engine.UserID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get user", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// CreateUser creates a user, running leadership repair when the user is
// created straight onto a team.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	role := req.Role
	if role == "" {
		role = engine.RoleUser
	}

	ctx := r.Context()
	user := engine.User{Name: req.Name, Email: req.Email, Role: role}
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		st := s.(*sqlite.Queries)
		if err := st.CreateUser(ctx, &user); err != nil {
			return err
		}
		if req.TeamID != nil {
			if _, err := engine.NewRoster(s).AddMember(ctx, *req.TeamID, user.ID); err != nil {
				return err
			}
			user.TeamID = req.TeamID
		}
		return nil
	})
	if err != nil {
		h.engineError(w, "Failed to create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// DeleteUser removes a user after cascading their bookings and repairing
// any team they led.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		if err := engine.NewOrchestrator(s).UserDeleted(ctx, engine.UserID(id)); err != nil {
			return err
		}
		return s.(*sqlite.Queries).DeleteUser(ctx, engine.UserID(id))
	})
	if err != nil {
		h.engineError(w, "Failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TEAM HANDLERS
// =============================================================================

// ListTeams returns all teams with members.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.Store.ListTeams(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teams", err)
		return
	}
	dtos := make([]TeamDTO, len(teams))
	for i, t := range teams {
		dtos[i] = toTeamDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetTeam returns a team plus the user split the edit form needs.
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()
	teamID := engine.TeamID(id)

	team, err := h.Store.GetTeam(ctx, teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get team", err)
		return
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "Team not found", nil)
		return
	}

	split, err := engine.NewRoster(h.Store).UsersRelativeToTeam(ctx, &teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to categorize users", err)
		return
	}

	writeJSON(w, http.StatusOK, TeamDetailDTO{
		TeamDTO:          toTeamDTO(*team),
		OtherTeamMembers: toUserDTOs(split.OtherTeamMembers),
		UnassignedUsers:  toUserDTOs(split.Unassigned),
	})
}

// CreateTeam creates a team and optionally seeds members and a leader.
func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var req CreateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	ctx := r.Context()
	var result *engine.Team
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		team := engine.Team{Name: req.Name}
		if err := s.(*sqlite.Queries).CreateTeam(ctx, &team); err != nil {
			return err
		}
		updated, err := engine.NewRoster(s).UpdateTeamDetails(ctx, team.ID, req.Name, req.MemberIDs, req.LeaderID)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		h.engineError(w, "Failed to create team", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTeamDTO(*result))
}

// UpdateTeam is the bulk edit: rename, add members, apply leader.
func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var result *engine.Team
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		updated, err := engine.NewRoster(s).UpdateTeamDetails(ctx, engine.TeamID(id), req.Name, req.MemberIDs, req.LeaderID)
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		h.engineError(w, "Failed to update team", err)
		return
	}

	writeJSON(w, http.StatusOK, toTeamDTO(*result))
}

// DeleteTeam removes a team after cascading bookings and detaching members.
func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		if err := engine.NewOrchestrator(s).TeamDeleted(ctx, engine.TeamID(id)); err != nil {
			return err
		}
		return s.(*sqlite.Queries).DeleteTeam(ctx, engine.TeamID(id))
	})
	if err != nil {
		h.engineError(w, "Failed to delete team", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMember moves a user onto the team.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		_, err := engine.NewRoster(s).AddMember(ctx, engine.TeamID(id), req.UserID)
		return err
	})
	if err != nil {
		h.engineError(w, "Failed to add member", err)
		return
	}
	h.respondWithTeam(w, r, engine.TeamID(id))
}

// RemoveMember detaches a user from the team.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return
	}

	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		_, err := engine.NewRoster(s).RemoveMember(ctx, engine.TeamID(teamID), engine.UserID(userID))
		return err
	})
	if err != nil {
		h.engineError(w, "Failed to remove member", err)
		return
	}
	h.respondWithTeam(w, r, engine.TeamID(teamID))
}

// SetLeader sets the team's leader, adding them as a member first when
// needed.
func (h *Handler) SetLeader(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req MemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var result *engine.Team
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		team, err := engine.NewRoster(s).SetLeader(ctx, engine.TeamID(id), req.UserID)
		if err != nil {
			return err
		}
		result = team
		return nil
	})
	if err != nil {
		h.engineError(w, "Failed to set leader", err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamDTO(*result))
}

// ClearLeader removes the leader; auto-reassignment runs unless the
// request asks for reassign=false.
func (h *Handler) ClearLeader(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reassign := r.URL.Query().Get("reassign") != "false"

	ctx := r.Context()
	var result *engine.Team
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		team, err := engine.NewRoster(s).ClearLeader(ctx, engine.TeamID(id), reassign)
		if err != nil {
			return err
		}
		result = team
		return nil
	})
	if err != nil {
		h.engineError(w, "Failed to clear leader", err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamDTO(*result))
}

// =============================================================================
// PROPERTY HANDLERS
// =============================================================================

// ListProperties returns all properties.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	props, err := h.Store.ListProperties(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list properties", err)
		return
	}
	dtos := make([]PropertyDTO, len(props))
	for i, p := range props {
		dtos[i] = PropertyDTO{ID: p.ID, Address: p.Address, AccessNotes: p.AccessNotes}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProperty creates a property.
func (h *Handler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Address == "" {
		writeError(w, http.StatusBadRequest, "Address is required", nil)
		return
	}

	p := engine.Property{Address: req.Address, AccessNotes: req.AccessNotes}
	if err := h.Store.CreateProperty(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create property", err)
		return
	}
	writeJSON(w, http.StatusCreated, PropertyDTO{ID: p.ID, Address: p.Address, AccessNotes: p.AccessNotes})
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

// CreateJob creates a job from local wall-clock values.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := engine.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	start, err := engine.ParseTimeOfDay(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_time (use HH:MM)", err)
		return
	}
	end, err := engine.ParseTimeOfDay(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_time (use HH:MM)", err)
		return
	}
	arrival, err := parseLocalArrival(req.Arrival, h.Clock)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid arrival (use YYYY-MM-DD HH:MM)", err)
		return
	}

	job := engine.Job{
		PropertyID: req.PropertyID,
		Date:       date,
		Start:      start,
		End:        end,
		Arrival:    arrival,
		JobType:    req.JobType,
		Notes:      req.Notes,
	}
	if err := h.Store.CreateJob(r.Context(), &job); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create job", err)
		return
	}
	writeJSON(w, http.StatusCreated, toJobDTO(job, h.Clock))
}

// GetJob returns a job with its assignment set.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ctx := r.Context()

	job, err := h.Store.GetJob(ctx, engine.JobID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get job", err)
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	set, err := engine.NewAssignments(h.Store).SetForJob(ctx, job.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load assignments", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		JobDTO
		Assignments AssignmentSetDTO `json:"assignments"`
	}{toJobDTO(*job, h.Clock), toAssignmentSetDTO(set)})
}

// DeleteJob removes a job and its bookings.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		if err := engine.NewAssignments(s).RemoveAllForJob(ctx, engine.JobID(id)); err != nil {
			return err
		}
		return s.(*sqlite.Queries).DeleteJob(ctx, engine.JobID(id))
	})
	if err != nil {
		h.engineError(w, "Failed to delete job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignJob full-replaces the job's assignment set.
func (h *Handler) AssignJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	var result *engine.AssignmentSet
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		set, err := engine.NewOrchestrator(s).ChangeJobAssignments(ctx, engine.JobID(id), req.TeamIDs, req.UserIDs)
		if err != nil {
			return err
		}
		result = set
		return nil
	})
	if err != nil {
		h.engineError(w, "Failed to assign job", err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentSetDTO(result))
}

// ReassignJob is the drag-and-drop move between team columns.
func (h *Handler) ReassignJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		return engine.NewOrchestrator(s).MoveJobBetweenTeams(ctx, engine.JobID(id), req.FromTeamID, req.ToTeamID)
	})
	if err != nil {
		h.engineError(w, "Failed to reassign job", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteJob marks a job complete with an optional report.
func (h *Handler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req CompleteJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	job, err := h.Store.GetJob(ctx, engine.JobID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get job", err)
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found", nil)
		return
	}

	if err := h.Store.SetJobCompletion(ctx, job.ID, true, req.Report); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to complete job", err)
		return
	}
	job.IsComplete = true
	if req.Report != "" {
		job.Report = req.Report
	}
	writeJSON(w, http.StatusOK, toJobDTO(*job, h.Clock))
}

// =============================================================================
// SCHEDULE VIEWS
// =============================================================================

// GetTimetable returns one assignee's day. Reading today's timetable
// first rolls overdue incomplete jobs forward, so they appear here
// instead of rotting on a past date.
func (h *Handler) GetTimetable(w http.ResponseWriter, r *http.Request) {
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}
	ref, ok := queryAssignee(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	rolled, err := h.rolloverIfToday(r, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to roll jobs forward", err)
		return
	}

	// A user's day is their personal bookings plus their team's; a team's
	// day is its direct bookings. Conflicts are flagged over the same list
	// the client sees.
	assignments := engine.NewAssignments(h.Store)
	var jobs []engine.Job
	if ref.UserID != nil {
		jobs, err = assignments.JobsForUserOnDate(ctx, *ref.UserID, date)
	} else {
		jobs, err = assignments.JobsForTeamOnDate(ctx, *ref.TeamID, date)
	}
	if err != nil {
		h.engineError(w, "Failed to load bookings", err)
		return
	}
	conflicts := engine.BackToBackAmong(jobs, h.BackToBackMinutes)

	writeJSON(w, http.StatusOK, TimetableDTO{
		Date:       date.String(),
		Jobs:       toJobDTOs(jobs, h.Clock, conflicts),
		RolledOver: rolled,
	})
}

// GetBoard returns every team's column for a date, conflict flags
// included, with teams that have no bookings shown empty.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	rolled, err := h.rolloverIfToday(r, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to roll jobs forward", err)
		return
	}

	teams, err := h.Store.ListTeams(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list teams", err)
		return
	}
	grouped, err := engine.NewAssignments(h.Store).JobsGroupedByTeamOnDate(ctx, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to group jobs", err)
		return
	}
	detector := engine.NewConflictDetector(h.Store)

	board := BoardDTO{Date: date.String(), RolledOver: rolled}
	for _, team := range teams {
		conflicts, err := detector.BackToBack(ctx, date, engine.ForTeam(team.ID), h.BackToBackMinutes)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to detect conflicts", err)
			return
		}
		jobs := grouped[team.ID]
		sort.Slice(jobs, func(i, j int) bool { return jobs[i].Start < jobs[j].Start })
		board.Columns = append(board.Columns, TeamColumnDTO{
			Team: toTeamDTO(team),
			Jobs: toJobDTOs(jobs, h.Clock, conflicts),
		})
	}

	writeJSON(w, http.StatusOK, board)
}

// GetWorkload returns the availability buckets for a date.
func (h *Handler) GetWorkload(w http.ResponseWriter, r *http.Request) {
	date, ok := h.queryDate(w, r)
	if !ok {
		return
	}

	report, err := engine.NewWorkload(h.Store, h.Thresholds).Categorize(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to categorize workload", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkloadDTO(report))
}

// rolloverIfToday runs the rollover when the requested date is the
// current local date. Views of past or future days never mutate.
func (h *Handler) rolloverIfToday(r *http.Request, date engine.Date) (int, error) {
	if !date.Equal(h.Clock.LocalToday()) {
		return 0, nil
	}

	ctx := r.Context()
	var moved int
	err := h.Store.WithTx(ctx, func(s engine.Store) error {
		n, err := engine.NewRollover(s, h.Clock).PushUncompletedJobsForward(ctx)
		if err != nil {
			return err
		}
		moved = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	if moved > 0 {
		h.Logger.Info("rolled overdue jobs forward",
			zap.Int("count", moved),
			zap.String("date", date.String()))
	}
	return moved, nil
}

// =============================================================================
// REQUEST PARSING AND RESPONSE HELPERS
// =============================================================================

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// queryDate reads ?date=YYYY-MM-DD, defaulting to the current local day.
func (h *Handler) queryDate(w http.ResponseWriter, r *http.Request) (engine.Date, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return h.Clock.LocalToday(), true
	}
	date, err := engine.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return engine.Date{}, false
	}
	return date, true
}

// queryAssignee reads exactly one of ?team_id= or ?user_id=.
func queryAssignee(w http.ResponseWriter, r *http.Request) (engine.AssigneeRef, bool) {
	teamRaw := r.URL.Query().Get("team_id")
	userRaw := r.URL.Query().Get("user_id")
	if (teamRaw == "") == (userRaw == "") {
		writeError(w, http.StatusBadRequest, "Provide exactly one of team_id or user_id", nil)
		return engine.AssigneeRef{}, false
	}
	if teamRaw != "" {
		id, err := strconv.ParseInt(teamRaw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid team_id", err)
			return engine.AssigneeRef{}, false
		}
		return engine.ForTeam(engine.TeamID(id)), true
	}
	id, err := strconv.ParseInt(userRaw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user_id", err)
		return engine.AssigneeRef{}, false
	}
	return engine.ForUser(engine.UserID(id)), true
}

func (h *Handler) respondWithTeam(w http.ResponseWriter, r *http.Request, teamID engine.TeamID) {
	team, err := h.Store.GetTeam(r.Context(), teamID)
	if err != nil || team == nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload team", err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamDTO(*team))
}

// engineError maps engine failures to HTTP statuses. Invariant breaches
// are logged loudly; they indicate a bug, not bad input.
func (h *Handler) engineError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, engine.ErrInvariantViolation):
		h.Logger.Error("leadership invariant violated", zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
