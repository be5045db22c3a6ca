package domain

import (
	"context"
	"errors"
	"time"
)

// SprintState is the lifecycle state of a sprint. The machine is linear:
// Planned -> Active -> Completed, no cycles, no skipping.
type SprintState string

const (
	SprintStatePlanned   SprintState = "Planned"
	SprintStateActive    SprintState = "Active"
	SprintStateCompleted SprintState = "Completed"
)

// ValidTransition checks if a sprint state transition is allowed.
func (s SprintState) ValidTransition(to SprintState) bool {
	switch s {
	case SprintStatePlanned:
		return to == SprintStateActive
	case SprintStateActive:
		return to == SprintStateCompleted
	default:
		return false
	}
}

// Sprint is a time-boxed container of user stories for one project.
// StartDate/EndDate are planned calendar days; ActualStartDate and
// ActualEndDate are the wall-clock instants the transitions happened.
type Sprint struct {
	ID              int64
	ProjectID       int64
	Name            string
	Goal            string
	StartDate       CalendarDate
	EndDate         CalendarDate
	TeamCapacity    *int
	State           SprintState
	EvidenceLink    *string
	ActualStartDate *time.Time
	ActualEndDate   *time.Time
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewSprint creates a Planned sprint with validated required fields.
func NewSprint(projectID int64, name, goal string, startDate, endDate CalendarDate, teamCapacity *int) (*Sprint, error) {
	if projectID <= 0 {
		return nil, errors.New("sprint: project ID is required")
	}
	if name == "" {
		return nil, errors.New("sprint: name is required")
	}
	if startDate.IsZero() || endDate.IsZero() {
		return nil, errors.New("sprint: start and end dates are required")
	}
	if endDate.Before(startDate) {
		return nil, errors.New("sprint: end date precedes start date")
	}
	if teamCapacity != nil && *teamCapacity < 0 {
		return nil, errors.New("sprint: team capacity cannot be negative")
	}

	now := time.Now()
	return &Sprint{
		ProjectID:    projectID,
		Name:         name,
		Goal:         goal,
		StartDate:    startDate,
		EndDate:      endDate,
		TeamCapacity: teamCapacity,
		State:        SprintStatePlanned,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *Sprint) CanStart() bool      { return s.State == SprintStatePlanned }
func (s *Sprint) CanClose() bool      { return s.State == SprintStateActive }
func (s *Sprint) CanEdit() bool       { return s.State != SprintStateCompleted }
func (s *Sprint) CanSoftDelete() bool { return s.State != SprintStateActive }

// Snapshot returns the auditable fields of the sprint as a flat field map
// for the diff engine. Bookkeeping columns are left out.
func (s *Sprint) Snapshot() map[string]any {
	snapshot := map[string]any{
		"nombre":      s.Name,
		"objetivo":    s.Goal,
		"fechaInicio": s.StartDate.String(),
		"fechaFin":    s.EndDate.String(),
		"estado":      string(s.State),
	}
	if s.TeamCapacity != nil {
		snapshot["capacidadEquipo"] = *s.TeamCapacity
	}
	if s.EvidenceLink != nil {
		snapshot["linkEvidencias"] = *s.EvidenceLink
	}
	return snapshot
}

// SprintRepository persists sprints. The transition methods take the
// pre-built audit records and commit them in the same transaction as the
// sprint row, so history can never diverge from state. Start relies on the
// storage layer to reject a second active sprint per project atomically and
// returns ActiveSprintConflictError when it does.
type SprintRepository interface {
	Create(ctx context.Context, s *Sprint, rec *ChangeRecord) error
	GetByID(ctx context.Context, id int64) (*Sprint, error)
	ListByProject(ctx context.Context, projectID int64) ([]*Sprint, error)
	GetActiveByProject(ctx context.Context, projectID int64) (*Sprint, error)
	Update(ctx context.Context, s *Sprint, recs []*ChangeRecord) error
	Start(ctx context.Context, id int64, at time.Time, rec *ChangeRecord) error
	Close(ctx context.Context, id int64, at time.Time, evidenceLink *string, rec *ChangeRecord) error
	SoftDelete(ctx context.Context, id int64, rec *ChangeRecord) error
}
