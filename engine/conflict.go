/*
conflict.go - Back-to-back job detection

PURPOSE:
  Flags jobs on one assignee's day that leave too little turnaround time:
  sort the day's jobs by start time and mark both halves of any adjacent
  pair whose gap (next start minus current end) is between zero and the
  threshold inclusive.

SCOPE:
  Per-date by construction: a job ending 23:50 and one starting 00:05 the
  next day are never adjacent because they are fetched for different
  dates. A job sandwiched between two close neighbors is flagged once; the
  result is a set.
*/
package engine

import (
	"context"
	"fmt"
	"sort"
)

// JobIDSet is a duplicate-free collection of job ids.
type JobIDSet map[JobID]struct{}

func (s JobIDSet) Contains(id JobID) bool { _, ok := s[id]; return ok }

// IDs returns the members in ascending order.
func (s JobIDSet) IDs() []JobID {
	ids := make([]JobID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ConflictDetector finds back-to-back bookings.
type ConflictDetector struct {
	Store Store
}

// NewConflictDetector binds the detector to a store handle.
func NewConflictDetector(store Store) *ConflictDetector {
	return &ConflictDetector{Store: store}
}

// BackToBack returns the jobs assigned to ref on the date that sit within
// thresholdMinutes of an adjacent job. Overlapping jobs (negative gap) are
// not flagged by this detector; it watches turnaround, not double-booking.
func (d *ConflictDetector) BackToBack(ctx context.Context, date Date, ref AssigneeRef, thresholdMinutes int) (JobIDSet, error) {
	ids, err := d.Store.JobIDsForAssigneeOnDate(ctx, ref, date)
	if err != nil {
		return nil, fmt.Errorf("looking up bookings: %w", err)
	}
	jobs, err := d.Store.JobsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading jobs: %w", err)
	}
	return BackToBackAmong(jobs, thresholdMinutes), nil
}

// BackToBackAmong runs the pairwise scan over an already-fetched day of
// jobs. Callers that build a day view themselves (such as a user's union
// of personal and team bookings) flag it with this. Reorders jobs by
// start time.
func BackToBackAmong(jobs []Job, thresholdMinutes int) JobIDSet {
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Start < jobs[j].Start })

	flagged := make(JobIDSet)
	for i := 0; i+1 < len(jobs); i++ {
		cur, next := jobs[i], jobs[i+1]
		gap := cur.End.MinutesUntil(next.Start)
		if gap >= 0 && gap <= thresholdMinutes {
			flagged[cur.ID] = struct{}{}
			flagged[next.ID] = struct{}{}
		}
	}
	return flagged
}
