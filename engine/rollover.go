/*
rollover.go - Advancing incomplete jobs to the current local day

PURPOSE:
  A job left incomplete on a past date should show up on today's timetable,
  not rot on a day nobody looks at. Rollover moves every such job directly
  to today's local date in a single jump; there is no day-by-day stepping.

TRIGGER:
  Called opportunistically at the start of timetable reads, not on a
  timer. Idempotent within a local day: a job moved to today no longer
  satisfies date < today.

TIMEZONE:
  "Today" and "date has passed" are local-calendar judgments through
  Clock. The app zone can sit up to 11 hours off UTC, so a UTC-midnight
  comparison here would roll jobs a day early or late.
*/
package engine

import (
	"context"
	"fmt"
)

// Rollover advances incomplete past-dated jobs.
type Rollover struct {
	Store Store
	Clock *Clock
}

// NewRollover binds the scheduler to a store and clock.
func NewRollover(store Store, clock *Clock) *Rollover {
	return &Rollover{Store: store, Clock: clock}
}

// PushUncompletedJobsForward sets date = today (local) on every incomplete
// job dated before today. Returns how many jobs moved.
func (r *Rollover) PushUncompletedJobsForward(ctx context.Context) (int, error) {
	today := r.Clock.LocalToday()

	jobs, err := r.Store.UncompletedJobsBefore(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("loading overdue jobs: %w", err)
	}

	for _, job := range jobs {
		if err := r.Store.SetJobDate(ctx, job.ID, today); err != nil {
			return 0, fmt.Errorf("rolling job %d forward: %w", job.ID, err)
		}
	}
	return len(jobs), nil
}
