// Package sprint owns the sprint lifecycle state machine and the derived
// metrics computed from a sprint's attached stories.
package sprint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gestia/gestia/internal/audit"
	"github.com/gestia/gestia/internal/domain"
)

// Service orchestrates sprint CRUD and the start/close transitions. The
// repository is the sole writer of state, actualStartDate and actualEndDate,
// and commits the transition's audit record in the same transaction as the
// sprint row.
type Service struct {
	sprints domain.SprintRepository
	stories domain.UserStoryRepository
	audit   *audit.Service
	now     func() time.Time
}

func NewService(sprints domain.SprintRepository, stories domain.UserStoryRepository, auditSvc *audit.Service) *Service {
	return &Service{sprints: sprints, stories: stories, audit: auditSvc, now: time.Now}
}

// CreateInput carries the fields of a new sprint.
type CreateInput struct {
	ProjectID    int64
	Name         string
	Goal         string
	StartDate    domain.CalendarDate
	EndDate      domain.CalendarDate
	TeamCapacity *int
}

// Patch carries the editable fields of a sprint; nil fields are untouched.
type Patch struct {
	Name         *string
	Goal         *string
	StartDate    *domain.CalendarDate
	EndDate      *domain.CalendarDate
	TeamCapacity *int
}

// Create persists a new Planned sprint plus its Created audit record.
func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (*domain.Sprint, error) {
	sp, err := domain.NewSprint(in.ProjectID, in.Name, in.Goal, in.StartDate, in.EndDate, in.TeamCapacity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrInvalidArgument)
	}

	rec := domain.NewCreatedRecord(domain.EntitySprint, 0, actorID, sp.Snapshot(), s.now())
	if err := s.sprints.Create(ctx, sp, rec); err != nil {
		return nil, fmt.Errorf("sprint.Create: %w", err)
	}

	s.audit.Announce(ctx, rec)
	return sp, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Sprint, error) {
	return s.sprints.GetByID(ctx, id)
}

func (s *Service) ListByProject(ctx context.Context, projectID int64) ([]*domain.Sprint, error) {
	return s.sprints.ListByProject(ctx, projectID)
}

// Edit applies the patch and writes per-field audit records via the diff
// engine. Legal from Planned or Active; a Completed sprint is immutable.
func (s *Service) Edit(ctx context.Context, id int64, patch Patch, actorID int64) (*domain.Sprint, error) {
	sp, err := s.sprints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sp.CanEdit() {
		return nil, &domain.InvalidStateError{Entity: "sprint", ID: id, State: string(sp.State), Op: "edit"}
	}

	before := sp.Snapshot()
	if patch.Name != nil {
		sp.Name = *patch.Name
	}
	if patch.Goal != nil {
		sp.Goal = *patch.Goal
	}
	if patch.StartDate != nil {
		sp.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		sp.EndDate = *patch.EndDate
	}
	if patch.TeamCapacity != nil {
		sp.TeamCapacity = patch.TeamCapacity
	}

	if sp.Name == "" {
		return nil, fmt.Errorf("sprint: name is required: %w", domain.ErrInvalidArgument)
	}
	if sp.EndDate.Before(sp.StartDate) {
		return nil, fmt.Errorf("sprint: end date precedes start date: %w", domain.ErrInvalidArgument)
	}
	if sp.TeamCapacity != nil && *sp.TeamCapacity < 0 {
		return nil, fmt.Errorf("sprint: team capacity cannot be negative: %w", domain.ErrInvalidArgument)
	}

	changes := domain.Diff(before, sp.Snapshot())
	recs := domain.RecordsFromChanges(domain.EntitySprint, id, actorID, changes, s.now())

	sp.UpdatedAt = s.now()
	if err := s.sprints.Update(ctx, sp, recs); err != nil {
		return nil, fmt.Errorf("sprint.Edit: %w", err)
	}

	s.audit.Announce(ctx, recs...)
	return sp, nil
}

// Start transitions a Planned sprint to Active, stamping actualStartDate.
// At most one sprint per project may be Active: the check here gives a
// precise conflict message, and the storage layer enforces the invariant
// atomically for concurrent starts.
func (s *Service) Start(ctx context.Context, id, actorID int64) (*domain.Sprint, error) {
	sp, err := s.sprints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sp.CanStart() {
		return nil, &domain.InvalidStateError{Entity: "sprint", ID: id, State: string(sp.State), Op: "start"}
	}

	active, err := s.sprints.GetActiveByProject(ctx, sp.ProjectID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("sprint.Start: %w", err)
	}
	if active != nil {
		return nil, &domain.ActiveSprintConflictError{
			ProjectID:        sp.ProjectID,
			ActiveSprintID:   active.ID,
			ActiveSprintName: active.Name,
		}
	}

	now := s.now()
	rec := domain.NewLifecycleRecord(domain.EntitySprint, id, domain.ActionStarted,
		string(domain.SprintStatePlanned), string(domain.SprintStateActive), actorID, now)

	if err := s.sprints.Start(ctx, id, now, rec); err != nil {
		return nil, err
	}

	s.audit.Announce(ctx, rec)
	return s.sprints.GetByID(ctx, id)
}

// Close transitions an Active sprint to Completed, stamping actualEndDate
// and attaching the evidence link when provided.
func (s *Service) Close(ctx context.Context, id int64, evidenceLink *string, actorID int64) (*domain.Sprint, error) {
	sp, err := s.sprints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sp.CanClose() {
		return nil, &domain.InvalidStateError{Entity: "sprint", ID: id, State: string(sp.State), Op: "close"}
	}

	now := s.now()
	rec := domain.NewLifecycleRecord(domain.EntitySprint, id, domain.ActionClosed,
		string(domain.SprintStateActive), string(domain.SprintStateCompleted), actorID, now)

	if err := s.sprints.Close(ctx, id, now, evidenceLink, rec); err != nil {
		return nil, err
	}

	s.audit.Announce(ctx, rec)
	return s.sprints.GetByID(ctx, id)
}

// SoftDelete archives a Planned or Completed sprint. An Active sprint
// cannot be deleted.
func (s *Service) SoftDelete(ctx context.Context, id, actorID int64) error {
	sp, err := s.sprints.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !sp.CanSoftDelete() {
		return &domain.InvalidStateError{Entity: "sprint", ID: id, State: string(sp.State), Op: "delete"}
	}

	rec := domain.NewDeletedRecord(domain.EntitySprint, id, actorID, s.now())
	if err := s.sprints.SoftDelete(ctx, id, rec); err != nil {
		return fmt.Errorf("sprint.SoftDelete: %w", err)
	}

	s.audit.Announce(ctx, rec)
	return nil
}
