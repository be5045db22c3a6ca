// Package backlog manages user stories, the main producers of change
// history: every mutation is audited, with assignment and container moves
// recorded through the explicit wrappers rather than the generic diff path.
package backlog

import (
	"context"
	"fmt"
	"time"

	"github.com/gestia/gestia/internal/audit"
	"github.com/gestia/gestia/internal/domain"
)

type Service struct {
	stories domain.UserStoryRepository
	sprints domain.SprintRepository
	audit   *audit.Service
	now     func() time.Time
}

func NewService(stories domain.UserStoryRepository, sprints domain.SprintRepository, auditSvc *audit.Service) *Service {
	return &Service{stories: stories, sprints: sprints, audit: auditSvc, now: time.Now}
}

// CreateInput carries the fields of a new story.
type CreateInput struct {
	ProjectID   int64
	Title       string
	Description string
	StoryPoints int
}

// Patch carries the editable scalar fields; nil fields are untouched.
// State, assignee and container references have dedicated operations.
type Patch struct {
	Title       *string
	Description *string
	StoryPoints *int
}

func (s *Service) Create(ctx context.Context, in CreateInput, actorID int64) (*domain.UserStory, error) {
	st, err := domain.NewUserStory(in.ProjectID, in.Title, in.Description, in.StoryPoints)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrInvalidArgument)
	}

	rec := domain.NewCreatedRecord(domain.EntityUserStory, 0, actorID, st.Snapshot(), s.now())
	if err := s.stories.Create(ctx, st, rec); err != nil {
		return nil, fmt.Errorf("backlog.Create: %w", err)
	}

	s.audit.Announce(ctx, rec)
	return st, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.UserStory, error) {
	return s.stories.GetByID(ctx, id)
}

func (s *Service) ListBySprint(ctx context.Context, sprintID int64) ([]*domain.UserStory, error) {
	return s.stories.ListBySprint(ctx, sprintID)
}

// Update applies the patch and records per-field changes via the diff engine.
func (s *Service) Update(ctx context.Context, id int64, patch Patch, actorID int64) (*domain.UserStory, error) {
	st, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	before := st.Snapshot()
	if patch.Title != nil {
		st.Title = *patch.Title
	}
	if patch.Description != nil {
		st.Description = *patch.Description
	}
	if patch.StoryPoints != nil {
		st.StoryPoints = *patch.StoryPoints
	}

	if st.Title == "" {
		return nil, fmt.Errorf("story: title is required: %w", domain.ErrInvalidArgument)
	}
	if st.StoryPoints < 0 {
		return nil, fmt.Errorf("story: story points cannot be negative: %w", domain.ErrInvalidArgument)
	}

	changes := domain.Diff(before, st.Snapshot())
	recs := domain.RecordsFromChanges(domain.EntityUserStory, id, actorID, changes, s.now())

	st.UpdatedAt = s.now()
	if err := s.stories.Update(ctx, st, recs); err != nil {
		return nil, fmt.Errorf("backlog.Update: %w", err)
	}

	s.audit.Announce(ctx, recs...)
	return st, nil
}

// ChangeState moves the story through its workflow and records one explicit
// StateChanged entry.
func (s *Service) ChangeState(ctx context.Context, id int64, newState domain.StoryState, actorID int64) (*domain.UserStory, error) {
	if !newState.Valid() {
		return nil, fmt.Errorf("story: unknown state %q: %w", newState, domain.ErrInvalidArgument)
	}

	st, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.State == newState {
		return st, nil
	}

	rec := domain.NewStateChangeRecord(domain.EntityUserStory, id, string(st.State), string(newState), actorID, s.now())
	st.State = newState
	st.UpdatedAt = s.now()

	if err := s.stories.Update(ctx, st, []*domain.ChangeRecord{rec}); err != nil {
		return nil, fmt.Errorf("backlog.ChangeState: %w", err)
	}

	s.audit.Announce(ctx, rec)
	return st, nil
}

// Assign sets (or clears) the story's assignee. The record is Assigned on
// first assignment and Reassigned afterwards.
func (s *Service) Assign(ctx context.Context, id int64, assigneeID *int64, actorID int64) (*domain.UserStory, error) {
	st, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := domain.NewAssignmentRecord(domain.EntityUserStory, id, st.AssigneeID, assigneeID, actorID, s.now())
	st.AssigneeID = assigneeID
	st.UpdatedAt = s.now()

	if err := s.stories.Update(ctx, st, []*domain.ChangeRecord{rec}); err != nil {
		return nil, fmt.Errorf("backlog.Assign: %w", err)
	}

	s.audit.Announce(ctx, rec)
	return st, nil
}

// MoveToSprint attaches the story to a sprint (or detaches it with nil) and
// records a Moved entry. The target sprint must exist and accept new work,
// i.e. not be Completed.
func (s *Service) MoveToSprint(ctx context.Context, id int64, sprintID *int64, actorID int64) (*domain.UserStory, error) {
	st, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if sprintID != nil {
		target, err := s.sprints.GetByID(ctx, *sprintID)
		if err != nil {
			return nil, fmt.Errorf("backlog.MoveToSprint: target sprint: %w", err)
		}
		if !target.CanEdit() {
			return nil, &domain.InvalidStateError{Entity: "sprint", ID: target.ID, State: string(target.State), Op: "attach a story to"}
		}
	}

	rec := domain.NewMoveRecord(domain.EntityUserStory, id, "sprintId", st.SprintID, sprintID, actorID, s.now())
	st.SprintID = sprintID
	st.UpdatedAt = s.now()

	if err := s.stories.Update(ctx, st, []*domain.ChangeRecord{rec}); err != nil {
		return nil, fmt.Errorf("backlog.MoveToSprint: %w", err)
	}

	s.audit.Announce(ctx, rec)
	return st, nil
}

// MoveToEpic attaches the story to an epic (or detaches it with nil) and
// records a Moved entry.
func (s *Service) MoveToEpic(ctx context.Context, id int64, epicID *int64, actorID int64) (*domain.UserStory, error) {
	st, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := domain.NewMoveRecord(domain.EntityUserStory, id, "epicaId", st.EpicID, epicID, actorID, s.now())
	st.EpicID = epicID
	st.UpdatedAt = s.now()

	if err := s.stories.Update(ctx, st, []*domain.ChangeRecord{rec}); err != nil {
		return nil, fmt.Errorf("backlog.MoveToEpic: %w", err)
	}

	s.audit.Announce(ctx, rec)
	return st, nil
}

// SoftDelete archives the story and writes its Deleted record. History for
// the story survives the deletion.
func (s *Service) SoftDelete(ctx context.Context, id, actorID int64) error {
	if _, err := s.stories.GetByID(ctx, id); err != nil {
		return err
	}

	rec := domain.NewDeletedRecord(domain.EntityUserStory, id, actorID, s.now())
	if err := s.stories.SoftDelete(ctx, id, rec); err != nil {
		return fmt.Errorf("backlog.SoftDelete: %w", err)
	}

	s.audit.Announce(ctx, rec)
	return nil
}
