/*
errors.go - Error taxonomy for the engine

PURPOSE:
  Three categories cover every failure the engine can produce:
  1. NotFound       - a referenced team/user/job id does not exist; the
                      caller decides what to render, nothing is retried.
  2. InvariantViolation - a state the operations should make unreachable
                      (e.g. a leader who is not a member). Indicates a bug;
                      surfaced, never swallowed.
  3. InvalidTimezone - configuration error, resolved at startup by falling
                      back to UTC with a warning (see clock.go). Exposed as
                      a sentinel so the fallback is observable in logs.

USAGE:
  if engine.IsNotFound(err) { ... render 404 ... }
  if errors.Is(err, engine.ErrInvariantViolation) { ... page someone ... }
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is the base of every missing-entity error.
	ErrNotFound = errors.New("not found")

	// ErrInvariantViolation marks states the roster operations are supposed
	// to make unreachable. Treat any occurrence as a bug.
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrInvalidTimezone marks an unresolvable IANA zone identifier. Never
	// fatal; the clock falls back to UTC.
	ErrInvalidTimezone = errors.New("invalid timezone")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the entity kind and id
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Kind string // "team", "user", "job"
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Kind, e.ID, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func teamNotFound(id TeamID) error { return &NotFoundError{Kind: "team", ID: int64(id)} }
func userNotFound(id UserID) error { return &NotFoundError{Kind: "user", ID: int64(id)} }
func jobNotFound(id JobID) error   { return &NotFoundError{Kind: "job", ID: int64(id)} }

// InvariantError describes a detected invariant breach.
type InvariantError struct {
	TeamID TeamID
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("team %d: %s: %s", e.TeamID, ErrInvariantViolation, e.Detail)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
