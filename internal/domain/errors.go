package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound        = errors.New("domain: not found")
	ErrConflict        = errors.New("domain: conflict")
	ErrInvalidArgument = errors.New("domain: invalid argument")
)

// InvalidStateError reports an operation attempted from a lifecycle state
// that does not allow it. The message carries enough context to render a
// precise error without re-querying the entity.
type InvalidStateError struct {
	Entity string
	ID     int64
	State  string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d: cannot %s while in state %q", e.Entity, e.ID, e.Op, e.State)
}

// ActiveSprintConflictError reports a start() attempt while another sprint of
// the same project is already active. Names the blocking sprint so the caller
// can resolve the conflict (close it first).
type ActiveSprintConflictError struct {
	ProjectID        int64
	ActiveSprintID   int64
	ActiveSprintName string
}

func (e *ActiveSprintConflictError) Error() string {
	return fmt.Sprintf("project %d already has an active sprint: %q (id %d)",
		e.ProjectID, e.ActiveSprintName, e.ActiveSprintID)
}

func (e *ActiveSprintConflictError) Unwrap() error { return ErrConflict }
