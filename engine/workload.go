/*
workload.go - Daily workload categorization for assignment decisions

PURPOSE:
  Buckets every team and every cleaning worker into available / partial /
  full for one local date, from assignment counts alone. The scheduling UI
  uses the buckets to suggest who can still take work.

POLICY:
  The boundaries (0 booked = available, 1-2 = partial, 3+ = full) are
  scheduling policy, not law; they live in WorkloadThresholds and arrive
  via configuration.

  Only role=user workers appear in the user-side buckets. Supervisors and
  admins operate the schedule rather than clean, so counting them would
  only pollute the board. Teams are all counted.
*/
package engine

import (
	"context"
	"fmt"
	"sort"
)

// WorkloadThresholds are the booking-count boundaries between buckets.
// PartialMin..FullMin-1 bookings categorize as partially booked.
type WorkloadThresholds struct {
	PartialMin int
	FullMin    int
}

// DefaultWorkloadThresholds returns the stock 0 / 1-2 / 3+ policy.
func DefaultWorkloadThresholds() WorkloadThresholds {
	return WorkloadThresholds{PartialMin: 1, FullMin: 3}
}

func (t WorkloadThresholds) bucket(count int) Availability {
	switch {
	case count >= t.FullMin:
		return FullyBooked
	case count >= t.PartialMin:
		return PartiallyBooked
	default:
		return Available
	}
}

// Availability is a workload bucket.
type Availability string

const (
	Available       Availability = "available"
	PartiallyBooked Availability = "partial"
	FullyBooked     Availability = "full"
)

// TeamBuckets and UserBuckets list ids per bucket in ascending-id order.
type TeamBuckets struct {
	Available []TeamID
	Partial   []TeamID
	Full      []TeamID
}

type UserBuckets struct {
	Available []UserID
	Partial   []UserID
	Full      []UserID
}

// WorkloadReport is the categorizer's output for one date.
type WorkloadReport struct {
	Date  Date
	Teams TeamBuckets
	Users UserBuckets
}

// Workload categorizes daily booking load.
type Workload struct {
	Store      Store
	Thresholds WorkloadThresholds
}

// NewWorkload binds the categorizer to a store with the given policy.
func NewWorkload(store Store, thresholds WorkloadThresholds) *Workload {
	return &Workload{Store: store, Thresholds: thresholds}
}

// Categorize buckets every team and every cleaning worker for the date. A
// job booked to both a team and a user counts toward both tallies. Teams
// and workers with no bookings land in available.
func (w *Workload) Categorize(ctx context.Context, date Date) (*WorkloadReport, error) {
	rows, err := w.Store.AssignmentsOnDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}

	teamCounts := make(map[TeamID]int)
	userCounts := make(map[UserID]int)
	for _, row := range rows {
		switch {
		case row.TeamID != nil:
			teamCounts[*row.TeamID]++
		case row.UserID != nil:
			userCounts[*row.UserID]++
		}
	}

	report := &WorkloadReport{Date: date}

	teams, err := w.Store.ListTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
	for _, t := range teams {
		switch w.Thresholds.bucket(teamCounts[t.ID]) {
		case FullyBooked:
			report.Teams.Full = append(report.Teams.Full, t.ID)
		case PartiallyBooked:
			report.Teams.Partial = append(report.Teams.Partial, t.ID)
		default:
			report.Teams.Available = append(report.Teams.Available, t.ID)
		}
	}

	users, err := w.Store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	for _, u := range users {
		if u.Role != RoleUser {
			continue // operators, not cleaning workers
		}
		switch w.Thresholds.bucket(userCounts[u.ID]) {
		case FullyBooked:
			report.Users.Full = append(report.Users.Full, u.ID)
		case PartiallyBooked:
			report.Users.Partial = append(report.Users.Partial, u.ID)
		default:
			report.Users.Available = append(report.Users.Available, u.ID)
		}
	}

	return report, nil
}
