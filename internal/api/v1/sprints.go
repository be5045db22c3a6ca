package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gestia/gestia/internal/domain"
	"github.com/gestia/gestia/internal/server/middleware"
	"github.com/gestia/gestia/internal/sprint"
)

type CreateSprintInput struct {
	Body struct {
		ProjectID    int64  `json:"project_id" minimum:"1" doc:"Project ID"`
		Name         string `json:"name" minLength:"1" maxLength:"200" doc:"Sprint name"`
		Goal         string `json:"goal,omitempty" doc:"Sprint goal"`
		StartDate    string `json:"start_date" doc:"Planned start date (YYYY-MM-DD)"`
		EndDate      string `json:"end_date" doc:"Planned end date (YYYY-MM-DD)"`
		TeamCapacity *int   `json:"team_capacity,omitempty" minimum:"0" doc:"Team capacity in story points"`
	}
}

type CreateSprintOutput struct {
	Body *domain.Sprint
}

type GetSprintInput struct {
	ID int64 `path:"id" doc:"Sprint ID"`
}

type GetSprintOutput struct {
	Body *domain.Sprint
}

type ListSprintsInput struct {
	ProjectID int64 `query:"project_id" required:"true" doc:"Project ID"`
}

type ListSprintsOutput struct {
	Body []*domain.Sprint
}

type UpdateSprintInput struct {
	ID   int64 `path:"id" doc:"Sprint ID"`
	Body struct {
		Name         *string `json:"name,omitempty" maxLength:"200" doc:"Sprint name"`
		Goal         *string `json:"goal,omitempty" doc:"Sprint goal"`
		StartDate    *string `json:"start_date,omitempty" doc:"Planned start date (YYYY-MM-DD)"`
		EndDate      *string `json:"end_date,omitempty" doc:"Planned end date (YYYY-MM-DD)"`
		TeamCapacity *int    `json:"team_capacity,omitempty" minimum:"0" doc:"Team capacity in story points"`
	}
}

type UpdateSprintOutput struct {
	Body *domain.Sprint
}

type StartSprintInput struct {
	ID int64 `path:"id" doc:"Sprint ID"`
}

type StartSprintOutput struct {
	Body *domain.Sprint
}

type CloseSprintInput struct {
	ID   int64 `path:"id" doc:"Sprint ID"`
	Body struct {
		EvidenceLink *string `json:"evidence_link,omitempty" doc:"Link to the sprint review evidence"`
	}
}

type CloseSprintOutput struct {
	Body *domain.Sprint
}

type DeleteSprintInput struct {
	ID int64 `path:"id" doc:"Sprint ID"`
}

type SprintMetricsInput struct {
	ID int64 `path:"id" doc:"Sprint ID"`
}

type SprintMetricsOutput struct {
	Body *sprint.Metrics
}

type SprintBurndownInput struct {
	ID int64 `path:"id" doc:"Sprint ID"`
}

type SprintBurndownOutput struct {
	Body *sprint.Burndown
}

func parseDate(value, field string) (domain.CalendarDate, error) {
	d, err := domain.ParseCalendarDate(value)
	if err != nil {
		return domain.CalendarDate{}, huma.Error422UnprocessableEntity("invalid " + field + ": expected YYYY-MM-DD")
	}
	return d, nil
}

func RegisterSprintRoutes(api huma.API, sprints SprintService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-sprint",
		Method:      http.MethodPost,
		Path:        "/sprints",
		Summary:     "Create a new sprint",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *CreateSprintInput) (*CreateSprintOutput, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		startDate, err := parseDate(input.Body.StartDate, "start_date")
		if err != nil {
			return nil, err
		}
		endDate, err := parseDate(input.Body.EndDate, "end_date")
		if err != nil {
			return nil, err
		}

		s, err := sprints.Create(ctx, sprint.CreateInput{
			ProjectID:    input.Body.ProjectID,
			Name:         input.Body.Name,
			Goal:         input.Body.Goal,
			StartDate:    startDate,
			EndDate:      endDate,
			TeamCapacity: input.Body.TeamCapacity,
		}, actorID)
		if err != nil {
			return nil, mapDomainError(err, "failed to create sprint")
		}

		return &CreateSprintOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-sprint",
		Method:      http.MethodGet,
		Path:        "/sprints/{id}",
		Summary:     "Get a sprint by ID",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *GetSprintInput) (*GetSprintOutput, error) {
		s, err := sprints.Get(ctx, input.ID)
		if err != nil {
			return nil, mapDomainError(err, "failed to get sprint")
		}

		return &GetSprintOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sprints",
		Method:      http.MethodGet,
		Path:        "/sprints",
		Summary:     "List sprints for a project",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *ListSprintsInput) (*ListSprintsOutput, error) {
		list, err := sprints.ListByProject(ctx, input.ProjectID)
		if err != nil {
			return nil, mapDomainError(err, "failed to list sprints")
		}

		return &ListSprintsOutput{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-sprint",
		Method:      http.MethodPatch,
		Path:        "/sprints/{id}",
		Summary:     "Edit a planned or active sprint",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *UpdateSprintInput) (*UpdateSprintOutput, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		patch := sprint.Patch{
			Name:         input.Body.Name,
			Goal:         input.Body.Goal,
			TeamCapacity: input.Body.TeamCapacity,
		}
		if input.Body.StartDate != nil {
			d, err := parseDate(*input.Body.StartDate, "start_date")
			if err != nil {
				return nil, err
			}
			patch.StartDate = &d
		}
		if input.Body.EndDate != nil {
			d, err := parseDate(*input.Body.EndDate, "end_date")
			if err != nil {
				return nil, err
			}
			patch.EndDate = &d
		}

		s, err := sprints.Edit(ctx, input.ID, patch, actorID)
		if err != nil {
			return nil, mapDomainError(err, "failed to update sprint")
		}

		return &UpdateSprintOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-sprint",
		Method:      http.MethodPost,
		Path:        "/sprints/{id}/start",
		Summary:     "Start a planned sprint",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *StartSprintInput) (*StartSprintOutput, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		s, err := sprints.Start(ctx, input.ID, actorID)
		if err != nil {
			return nil, mapDomainError(err, "failed to start sprint")
		}

		return &StartSprintOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-sprint",
		Method:      http.MethodPost,
		Path:        "/sprints/{id}/close",
		Summary:     "Close an active sprint",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *CloseSprintInput) (*CloseSprintOutput, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		s, err := sprints.Close(ctx, input.ID, input.Body.EvidenceLink, actorID)
		if err != nil {
			return nil, mapDomainError(err, "failed to close sprint")
		}

		return &CloseSprintOutput{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-sprint",
		Method:      http.MethodDelete,
		Path:        "/sprints/{id}",
		Summary:     "Archive a sprint",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *DeleteSprintInput) (*struct{}, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		if err := sprints.SoftDelete(ctx, input.ID, actorID); err != nil {
			return nil, mapDomainError(err, "failed to delete sprint")
		}

		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sprint-metrics",
		Method:      http.MethodGet,
		Path:        "/sprints/{id}/metrics",
		Summary:     "Get sprint progress metrics",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *SprintMetricsInput) (*SprintMetricsOutput, error) {
		m, err := sprints.Metrics(ctx, input.ID)
		if err != nil {
			return nil, mapDomainError(err, "failed to compute sprint metrics")
		}

		return &SprintMetricsOutput{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sprint-burndown",
		Method:      http.MethodGet,
		Path:        "/sprints/{id}/burndown",
		Summary:     "Get the ideal burndown series for a sprint",
		Tags:        []string{"Sprints"},
	}, func(ctx context.Context, input *SprintBurndownInput) (*SprintBurndownOutput, error) {
		b, err := sprints.Burndown(ctx, input.ID)
		if err != nil {
			return nil, mapDomainError(err, "failed to compute sprint burndown")
		}

		return &SprintBurndownOutput{Body: b}, nil
	})
}
