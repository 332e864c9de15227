/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract, and hold the
  presentation conversions: minutes-from-midnight to "HH:MM" strings,
  canonical duration minutes to decimal hours, UTC arrival instants to
  local wall-clock strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DURATION:
  The canonical value is whole minutes from the engine. Hours are a
  derived display field, computed in decimal so 90 minutes renders as
  "1.5" and not 1.4999999.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/clock.go: the local/UTC conversions used here
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/crew-engine/engine"
)

// =============================================================================
// TEAM AND USER TYPES
// =============================================================================

// UserDTO represents a user in API responses.
type UserDTO struct {
	ID     engine.UserID  `json:"id"`
	Name   string         `json:"name"`
	Email  string         `json:"email,omitempty"`
	Role   engine.Role    `json:"role"`
	TeamID *engine.TeamID `json:"team_id,omitempty"`
}

// TeamDTO represents a team with its members and leader.
type TeamDTO struct {
	ID       engine.TeamID  `json:"id"`
	Name     string         `json:"name"`
	LeaderID *engine.UserID `json:"leader_id,omitempty"`
	Members  []UserDTO      `json:"members"`
}

// TeamDetailDTO adds the edit-form user split to a team.
type TeamDetailDTO struct {
	TeamDTO
	OtherTeamMembers []UserDTO `json:"other_team_members"`
	UnassignedUsers  []UserDTO `json:"unassigned_users"`
}

// CreateUserRequest is the request to create a user.
type CreateUserRequest struct {
	Name   string         `json:"name"`
	Email  string         `json:"email"`
	Role   engine.Role    `json:"role"`
	TeamID *engine.TeamID `json:"team_id,omitempty"`
}

// CreateTeamRequest creates a team, optionally with members and a leader.
type CreateTeamRequest struct {
	Name      string          `json:"name"`
	MemberIDs []engine.UserID `json:"member_ids,omitempty"`
	LeaderID  *engine.UserID  `json:"leader_id,omitempty"`
}

// UpdateTeamRequest is the bulk team edit. A nil leader_id means "clear
// and auto-reassign", matching the engine's bulk-edit semantics.
type UpdateTeamRequest struct {
	Name      string          `json:"name"`
	MemberIDs []engine.UserID `json:"member_ids,omitempty"`
	LeaderID  *engine.UserID  `json:"leader_id,omitempty"`
}

// MemberRequest names a user for add-member and set-leader calls.
type MemberRequest struct {
	UserID engine.UserID `json:"user_id"`
}

// =============================================================================
// PROPERTY AND JOB TYPES
// =============================================================================

// PropertyDTO represents a property.
type PropertyDTO struct {
	ID          engine.PropertyID `json:"id"`
	Address     string            `json:"address"`
	AccessNotes string            `json:"access_notes,omitempty"`
}

// CreatePropertyRequest is the request to create a property.
type CreatePropertyRequest struct {
	Address     string `json:"address"`
	AccessNotes string `json:"access_notes"`
}

// JobDTO represents a job with display fields derived from the canonical
// local date/time values.
type JobDTO struct {
	ID              engine.JobID      `json:"id"`
	PropertyID      engine.PropertyID `json:"property_id"`
	Date            string            `json:"date"`       // YYYY-MM-DD, local
	StartTime       string            `json:"start_time"` // HH:MM, local
	EndTime         string            `json:"end_time"`
	DurationMinutes int               `json:"duration_minutes"`
	DurationHours   string            `json:"duration_hours"`
	Arrival         string            `json:"arrival,omitempty"` // local wall clock
	IsComplete      bool              `json:"is_complete"`
	JobType         string            `json:"job_type,omitempty"`
	Notes           string            `json:"notes,omitempty"`
	Report          string            `json:"report,omitempty"`
	Conflict        bool              `json:"conflict,omitempty"`
}

// CreateJobRequest is the request to create a job. Date and times are
// local wall-clock values in the application zone.
type CreateJobRequest struct {
	PropertyID engine.PropertyID `json:"property_id"`
	Date       string            `json:"date"`
	StartTime  string            `json:"start_time"`
	EndTime    string            `json:"end_time"`
	Arrival    string            `json:"arrival,omitempty"` // local "YYYY-MM-DD HH:MM"
	JobType    string            `json:"job_type"`
	Notes      string            `json:"notes"`
}

// AssignRequest full-replaces a job's assignment set.
type AssignRequest struct {
	TeamIDs []engine.TeamID `json:"team_ids"`
	UserIDs []engine.UserID `json:"user_ids"`
}

// ReassignRequest moves a job between team columns.
type ReassignRequest struct {
	FromTeamID engine.TeamID `json:"from_team_id"`
	ToTeamID   engine.TeamID `json:"to_team_id"`
}

// CompleteJobRequest marks a job done with an optional report.
type CompleteJobRequest struct {
	Report string `json:"report"`
}

// AssignmentSetDTO is a job's bookings split by kind.
type AssignmentSetDTO struct {
	JobID engine.JobID    `json:"job_id"`
	Teams []engine.TeamID `json:"team_ids"`
	Users []engine.UserID `json:"user_ids"`
}

// =============================================================================
// TIMETABLE AND WORKLOAD TYPES
// =============================================================================

// TimetableDTO is one assignee's day: jobs in start order with conflict
// flags applied, plus how many overdue jobs rolled forward on this read.
type TimetableDTO struct {
	Date       string   `json:"date"`
	Jobs       []JobDTO `json:"jobs"`
	RolledOver int      `json:"rolled_over,omitempty"`
}

// TeamColumnDTO is one team's column on the board view.
type TeamColumnDTO struct {
	Team TeamDTO  `json:"team"`
	Jobs []JobDTO `json:"jobs"`
}

// BoardDTO is the all-teams timetable for one date.
type BoardDTO struct {
	Date       string          `json:"date"`
	Columns    []TeamColumnDTO `json:"columns"`
	RolledOver int             `json:"rolled_over,omitempty"`
}

// WorkloadDTO is the availability board for one date.
type WorkloadDTO struct {
	Date  string             `json:"date"`
	Teams WorkloadBucketsDTO `json:"teams"`
	Users WorkloadBucketsDTO `json:"users"`
}

// WorkloadBucketsDTO lists ids per availability bucket.
type WorkloadBucketsDTO struct {
	Available []int64 `json:"available"`
	Partial   []int64 `json:"partial"`
	Full      []int64 `json:"full"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toUserDTO(u engine.User) UserDTO {
	return UserDTO{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, TeamID: u.TeamID}
}

func toUserDTOs(users []engine.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = toUserDTO(u)
	}
	return dtos
}

func toTeamDTO(t engine.Team) TeamDTO {
	return TeamDTO{
		ID:       t.ID,
		Name:     t.Name,
		LeaderID: t.LeaderID,
		Members:  toUserDTOs(t.Members),
	}
}

// toJobDTO derives the display fields. The clock localizes the arrival
// instant; everything else is already a local value.
func toJobDTO(j engine.Job, clock *engine.Clock) JobDTO {
	minutes := j.DurationMinutes()
	hours := decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2)

	dto := JobDTO{
		ID:              j.ID,
		PropertyID:      j.PropertyID,
		Date:            j.Date.String(),
		StartTime:       j.Start.String(),
		EndTime:         j.End.String(),
		DurationMinutes: minutes,
		DurationHours:   hours.String(),
		IsComplete:      j.IsComplete,
		JobType:         j.JobType,
		Notes:           j.Notes,
		Report:          j.Report,
	}
	if j.Arrival != nil {
		dto.Arrival = clock.ToLocal(*j.Arrival).Format("2006-01-02 15:04")
	}
	return dto
}

func toJobDTOs(jobs []engine.Job, clock *engine.Clock, conflicts engine.JobIDSet) []JobDTO {
	dtos := make([]JobDTO, len(jobs))
	for i, j := range jobs {
		dtos[i] = toJobDTO(j, clock)
		if conflicts != nil && conflicts.Contains(j.ID) {
			dtos[i].Conflict = true
		}
	}
	return dtos
}

func toAssignmentSetDTO(set *engine.AssignmentSet) AssignmentSetDTO {
	dto := AssignmentSetDTO{
		JobID: set.JobID,
		Teams: set.Teams,
		Users: set.Users,
	}
	if dto.Teams == nil {
		dto.Teams = []engine.TeamID{}
	}
	if dto.Users == nil {
		dto.Users = []engine.UserID{}
	}
	return dto
}

func toWorkloadDTO(report *engine.WorkloadReport) WorkloadDTO {
	return WorkloadDTO{
		Date: report.Date.String(),
		Teams: WorkloadBucketsDTO{
			Available: teamIDs64(report.Teams.Available),
			Partial:   teamIDs64(report.Teams.Partial),
			Full:      teamIDs64(report.Teams.Full),
		},
		Users: WorkloadBucketsDTO{
			Available: userIDs64(report.Users.Available),
			Partial:   userIDs64(report.Users.Partial),
			Full:      userIDs64(report.Users.Full),
		},
	}
}

func teamIDs64(ids []engine.TeamID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func userIDs64(ids []engine.UserID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

// parseLocalArrival parses the optional arrival field of a job request.
func parseLocalArrival(value string, clock *engine.Clock) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := clock.ParseLocal(value, "2006-01-02 15:04")
	if err != nil {
		return nil, err
	}
	return &t, nil
}
