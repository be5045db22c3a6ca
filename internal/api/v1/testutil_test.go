package v1_test

import (
	"context"

	"github.com/gestia/gestia/internal/backlog"
	"github.com/gestia/gestia/internal/domain"
	"github.com/gestia/gestia/internal/server/middleware"
	"github.com/gestia/gestia/internal/sprint"
)

// ---------------------------------------------------------------------------
// Context helpers for injecting the actor into DoCtx requests.
// ---------------------------------------------------------------------------

func actorCtx(actorID int64) context.Context {
	return context.WithValue(context.Background(), middleware.ContextKeyActorID, actorID)
}

// ---------------------------------------------------------------------------
// Mock SprintService
// ---------------------------------------------------------------------------

type mockSprintService struct {
	createFunc        func(ctx context.Context, in sprint.CreateInput, actorID int64) (*domain.Sprint, error)
	getFunc           func(ctx context.Context, id int64) (*domain.Sprint, error)
	listByProjectFunc func(ctx context.Context, projectID int64) ([]*domain.Sprint, error)
	editFunc          func(ctx context.Context, id int64, patch sprint.Patch, actorID int64) (*domain.Sprint, error)
	startFunc         func(ctx context.Context, id, actorID int64) (*domain.Sprint, error)
	closeFunc         func(ctx context.Context, id int64, evidenceLink *string, actorID int64) (*domain.Sprint, error)
	softDeleteFunc    func(ctx context.Context, id, actorID int64) error
	burndownFunc      func(ctx context.Context, sprintID int64) (*sprint.Burndown, error)
	metricsFunc       func(ctx context.Context, sprintID int64) (*sprint.Metrics, error)
}

func (m *mockSprintService) Create(ctx context.Context, in sprint.CreateInput, actorID int64) (*domain.Sprint, error) {
	return m.createFunc(ctx, in, actorID)
}

func (m *mockSprintService) Get(ctx context.Context, id int64) (*domain.Sprint, error) {
	return m.getFunc(ctx, id)
}

func (m *mockSprintService) ListByProject(ctx context.Context, projectID int64) ([]*domain.Sprint, error) {
	return m.listByProjectFunc(ctx, projectID)
}

func (m *mockSprintService) Edit(ctx context.Context, id int64, patch sprint.Patch, actorID int64) (*domain.Sprint, error) {
	return m.editFunc(ctx, id, patch, actorID)
}

func (m *mockSprintService) Start(ctx context.Context, id, actorID int64) (*domain.Sprint, error) {
	return m.startFunc(ctx, id, actorID)
}

func (m *mockSprintService) Close(ctx context.Context, id int64, evidenceLink *string, actorID int64) (*domain.Sprint, error) {
	return m.closeFunc(ctx, id, evidenceLink, actorID)
}

func (m *mockSprintService) SoftDelete(ctx context.Context, id, actorID int64) error {
	return m.softDeleteFunc(ctx, id, actorID)
}

func (m *mockSprintService) Burndown(ctx context.Context, sprintID int64) (*sprint.Burndown, error) {
	return m.burndownFunc(ctx, sprintID)
}

func (m *mockSprintService) Metrics(ctx context.Context, sprintID int64) (*sprint.Metrics, error) {
	return m.metricsFunc(ctx, sprintID)
}

// ---------------------------------------------------------------------------
// Mock BacklogService
// ---------------------------------------------------------------------------

type mockBacklogService struct {
	createFunc       func(ctx context.Context, in backlog.CreateInput, actorID int64) (*domain.UserStory, error)
	getFunc          func(ctx context.Context, id int64) (*domain.UserStory, error)
	listBySprintFunc func(ctx context.Context, sprintID int64) ([]*domain.UserStory, error)
	updateFunc       func(ctx context.Context, id int64, patch backlog.Patch, actorID int64) (*domain.UserStory, error)
	changeStateFunc  func(ctx context.Context, id int64, newState domain.StoryState, actorID int64) (*domain.UserStory, error)
	assignFunc       func(ctx context.Context, id int64, assigneeID *int64, actorID int64) (*domain.UserStory, error)
	moveToSprintFunc func(ctx context.Context, id int64, sprintID *int64, actorID int64) (*domain.UserStory, error)
	moveToEpicFunc   func(ctx context.Context, id int64, epicID *int64, actorID int64) (*domain.UserStory, error)
	softDeleteFunc   func(ctx context.Context, id, actorID int64) error
}

func (m *mockBacklogService) Create(ctx context.Context, in backlog.CreateInput, actorID int64) (*domain.UserStory, error) {
	return m.createFunc(ctx, in, actorID)
}

func (m *mockBacklogService) Get(ctx context.Context, id int64) (*domain.UserStory, error) {
	return m.getFunc(ctx, id)
}

func (m *mockBacklogService) ListBySprint(ctx context.Context, sprintID int64) ([]*domain.UserStory, error) {
	return m.listBySprintFunc(ctx, sprintID)
}

func (m *mockBacklogService) Update(ctx context.Context, id int64, patch backlog.Patch, actorID int64) (*domain.UserStory, error) {
	return m.updateFunc(ctx, id, patch, actorID)
}

func (m *mockBacklogService) ChangeState(ctx context.Context, id int64, newState domain.StoryState, actorID int64) (*domain.UserStory, error) {
	return m.changeStateFunc(ctx, id, newState, actorID)
}

func (m *mockBacklogService) Assign(ctx context.Context, id int64, assigneeID *int64, actorID int64) (*domain.UserStory, error) {
	return m.assignFunc(ctx, id, assigneeID, actorID)
}

func (m *mockBacklogService) MoveToSprint(ctx context.Context, id int64, sprintID *int64, actorID int64) (*domain.UserStory, error) {
	return m.moveToSprintFunc(ctx, id, sprintID, actorID)
}

func (m *mockBacklogService) MoveToEpic(ctx context.Context, id int64, epicID *int64, actorID int64) (*domain.UserStory, error) {
	return m.moveToEpicFunc(ctx, id, epicID, actorID)
}

func (m *mockBacklogService) SoftDelete(ctx context.Context, id, actorID int64) error {
	return m.softDeleteFunc(ctx, id, actorID)
}

// ---------------------------------------------------------------------------
// Mock AuditService
// ---------------------------------------------------------------------------

type mockAuditService struct {
	findByEntityFunc func(ctx context.Context, entityType domain.EntityType, entityID int64) ([]*domain.ChangeRecord, error)
	findRecentFunc   func(ctx context.Context, limit int) ([]*domain.ChangeRecord, error)
	findFilteredFunc func(ctx context.Context, filter domain.ChangeRecordFilter) ([]*domain.ChangeRecord, int64, error)
	statisticsFunc   func(ctx context.Context, from, to *domain.CalendarDate) (*domain.ChangeStatistics, error)
}

func (m *mockAuditService) FindByEntity(ctx context.Context, entityType domain.EntityType, entityID int64) ([]*domain.ChangeRecord, error) {
	return m.findByEntityFunc(ctx, entityType, entityID)
}

func (m *mockAuditService) FindRecent(ctx context.Context, limit int) ([]*domain.ChangeRecord, error) {
	return m.findRecentFunc(ctx, limit)
}

func (m *mockAuditService) FindFiltered(ctx context.Context, filter domain.ChangeRecordFilter) ([]*domain.ChangeRecord, int64, error) {
	return m.findFilteredFunc(ctx, filter)
}

func (m *mockAuditService) Statistics(ctx context.Context, from, to *domain.CalendarDate) (*domain.ChangeStatistics, error) {
	return m.statisticsFunc(ctx, from, to)
}

// ---------------------------------------------------------------------------
// Mock ProjectRepository
// ---------------------------------------------------------------------------

type mockProjectRepo struct {
	createFunc  func(ctx context.Context, p *domain.Project) error
	getByIDFunc func(ctx context.Context, id int64) (*domain.Project, error)
	listFunc    func(ctx context.Context) ([]*domain.Project, error)
}

func (m *mockProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	return m.createFunc(ctx, p)
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	return m.listFunc(ctx)
}
