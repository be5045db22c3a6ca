package v1

import (
	"context"

	"github.com/gestia/gestia/internal/backlog"
	"github.com/gestia/gestia/internal/domain"
	"github.com/gestia/gestia/internal/sprint"
)

// SprintService abstracts sprint lifecycle operations for handler testing.
// *sprint.Service satisfies this interface.
type SprintService interface {
	Create(ctx context.Context, in sprint.CreateInput, actorID int64) (*domain.Sprint, error)
	Get(ctx context.Context, id int64) (*domain.Sprint, error)
	ListByProject(ctx context.Context, projectID int64) ([]*domain.Sprint, error)
	Edit(ctx context.Context, id int64, patch sprint.Patch, actorID int64) (*domain.Sprint, error)
	Start(ctx context.Context, id, actorID int64) (*domain.Sprint, error)
	Close(ctx context.Context, id int64, evidenceLink *string, actorID int64) (*domain.Sprint, error)
	SoftDelete(ctx context.Context, id, actorID int64) error
	Burndown(ctx context.Context, sprintID int64) (*sprint.Burndown, error)
	Metrics(ctx context.Context, sprintID int64) (*sprint.Metrics, error)
}

// BacklogService abstracts user story operations for handler testing.
// *backlog.Service satisfies this interface.
type BacklogService interface {
	Create(ctx context.Context, in backlog.CreateInput, actorID int64) (*domain.UserStory, error)
	Get(ctx context.Context, id int64) (*domain.UserStory, error)
	ListBySprint(ctx context.Context, sprintID int64) ([]*domain.UserStory, error)
	Update(ctx context.Context, id int64, patch backlog.Patch, actorID int64) (*domain.UserStory, error)
	ChangeState(ctx context.Context, id int64, newState domain.StoryState, actorID int64) (*domain.UserStory, error)
	Assign(ctx context.Context, id int64, assigneeID *int64, actorID int64) (*domain.UserStory, error)
	MoveToSprint(ctx context.Context, id int64, sprintID *int64, actorID int64) (*domain.UserStory, error)
	MoveToEpic(ctx context.Context, id int64, epicID *int64, actorID int64) (*domain.UserStory, error)
	SoftDelete(ctx context.Context, id, actorID int64) error
}

// AuditService abstracts change history queries for handler testing.
// *audit.Service satisfies this interface.
type AuditService interface {
	FindByEntity(ctx context.Context, entityType domain.EntityType, entityID int64) ([]*domain.ChangeRecord, error)
	FindRecent(ctx context.Context, limit int) ([]*domain.ChangeRecord, error)
	FindFiltered(ctx context.Context, filter domain.ChangeRecordFilter) ([]*domain.ChangeRecord, int64, error)
	Statistics(ctx context.Context, from, to *domain.CalendarDate) (*domain.ChangeStatistics, error)
}
