package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gestia/gestia/internal/backlog"
	"github.com/gestia/gestia/internal/domain"
	"github.com/gestia/gestia/internal/server/middleware"
)

type CreateStoryInput struct {
	Body struct {
		ProjectID   int64  `json:"project_id" minimum:"1" doc:"Project ID"`
		Title       string `json:"title" minLength:"1" maxLength:"500" doc:"Story title"`
		Description string `json:"description,omitempty" doc:"Story description"`
		StoryPoints int    `json:"story_points,omitempty" minimum:"0" doc:"Estimated story points"`
	}
}

type CreateStoryOutput struct {
	Body *domain.UserStory
}

type GetStoryInput struct {
	ID int64 `path:"id" doc:"Story ID"`
}

type GetStoryOutput struct {
	Body *domain.UserStory
}

type ListStoriesInput struct {
	SprintID int64 `query:"sprint_id" required:"true" doc:"Sprint ID"`
}

type ListStoriesOutput struct {
	Body []*domain.UserStory
}

type UpdateStoryInput struct {
	ID   int64 `path:"id" doc:"Story ID"`
	Body struct {
		Title       *string `json:"title,omitempty" maxLength:"500" doc:"Story title"`
		Description *string `json:"description,omitempty" doc:"Story description"`
		StoryPoints *int    `json:"story_points,omitempty" minimum:"0" doc:"Estimated story points"`
	}
}

type UpdateStoryOutput struct {
	Body *domain.UserStory
}

type ChangeStoryStateInput struct {
	ID   int64 `path:"id" doc:"Story ID"`
	Body struct {
		State string `json:"state" minLength:"1" doc:"Target workflow state"`
	}
}

type ChangeStoryStateOutput struct {
	Body *domain.UserStory
}

type AssignStoryInput struct {
	ID   int64 `path:"id" doc:"Story ID"`
	Body struct {
		AssigneeID *int64 `json:"assignee_id" doc:"User to assign, null to unassign"`
	}
}

type AssignStoryOutput struct {
	Body *domain.UserStory
}

type MoveStoryInput struct {
	ID   int64 `path:"id" doc:"Story ID"`
	Body struct {
		SprintID *int64 `json:"sprint_id,omitempty" doc:"Target sprint, null to detach"`
		EpicID   *int64 `json:"epic_id,omitempty" doc:"Target epic, null to detach"`
		Target   string `json:"target" enum:"sprint,epic" doc:"Which container to move between"`
	}
}

type MoveStoryOutput struct {
	Body *domain.UserStory
}

type DeleteStoryInput struct {
	ID int64 `path:"id" doc:"Story ID"`
}

func RegisterStoryRoutes(api huma.API, stories BacklogService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-story",
		Method:      http.MethodPost,
		Path:        "/stories",
		Summary:     "Create a new user story",
		Tags:        []string{"Stories"},
	}, func(ctx context.Context, input *CreateStoryInput) (*CreateStoryOutput, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		st, err := stories.Create(ctx, backlog.CreateInput{
			ProjectID:   input.Body.ProjectID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			StoryPoints: input.Body.StoryPoints,
		}, actorID)
		if err != nil {
			return nil, mapDomainError(err, "failed to create story")
		}

		return &CreateStoryOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-story",
		Method:      http.MethodGet,
		Path:        "/stories/{id}",
		Summary:     "Get a user story by ID",
		Tags:        []string{"Stories"},
	}, func(ctx context.Context, input *GetStoryInput) (*GetStoryOutput, error) {
		st, err := stories.Get(ctx, input.ID)
		if err != nil {
			return nil, mapDomainError(err, "failed to get story")
		}

		return &GetStoryOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-stories",
		Method:      http.MethodGet,
		Path:        "/stories",
		Summary:     "List user stories in a sprint",
		Tags:        []string{"Stories"},
	}, func(ctx context.Context, input *ListStoriesInput) (*ListStoriesOutput, error) {
		list, err := stories.ListBySprint(ctx, input.SprintID)
		if err != nil {
			return nil, mapDomainError(err, "failed to list stories")
		}

		return &ListStoriesOutput{Body: list}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-story",
		Method:      http.MethodPatch,
		Path:        "/stories/{id}",
		Summary:     "Update a user story",
		Tags:        []string{"Stories"},
	}, func(ctx context.Context, input *UpdateStoryInput) (*UpdateStoryOutput, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		st, err := stories.Update(ctx, input.ID, backlog.Patch{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			StoryPoints: input.Body.StoryPoints,
		}, actorID)
		if err != nil {
			return nil, mapDomainError(err, "failed to update story")
		}

		return &UpdateStoryOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "change-story-state",
		Method:      http.MethodPost,
		Path:        "/stories/{id}/state",
		Summary:     "Move a story to another workflow state",
		Tags:        []string{"Stories"},
	}, func(ctx context.Context, input *ChangeStoryStateInput) (*ChangeStoryStateOutput, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		st, err := stories.ChangeState(ctx, input.ID, domain.StoryState(input.Body.State), actorID)
		if err != nil {
			return nil, mapDomainError(err, "failed to change story state")
		}

		return &ChangeStoryStateOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-story",
		Method:      http.MethodPost,
		Path:        "/stories/{id}/assign",
		Summary:     "Assign or unassign a user story",
		Tags:        []string{"Stories"},
	}, func(ctx context.Context, input *AssignStoryInput) (*AssignStoryOutput, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		st, err := stories.Assign(ctx, input.ID, input.Body.AssigneeID, actorID)
		if err != nil {
			return nil, mapDomainError(err, "failed to assign story")
		}

		return &AssignStoryOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "move-story",
		Method:      http.MethodPost,
		Path:        "/stories/{id}/move",
		Summary:     "Move a story between sprints or epics",
		Tags:        []string{"Stories"},
	}, func(ctx context.Context, input *MoveStoryInput) (*MoveStoryOutput, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		var (
			st  *domain.UserStory
			err error
		)
		switch input.Body.Target {
		case "sprint":
			st, err = stories.MoveToSprint(ctx, input.ID, input.Body.SprintID, actorID)
		case "epic":
			st, err = stories.MoveToEpic(ctx, input.ID, input.Body.EpicID, actorID)
		default:
			return nil, huma.Error400BadRequest("unknown move target: " + input.Body.Target)
		}
		if err != nil {
			return nil, mapDomainError(err, "failed to move story")
		}

		return &MoveStoryOutput{Body: st}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-story",
		Method:      http.MethodDelete,
		Path:        "/stories/{id}",
		Summary:     "Archive a user story",
		Tags:        []string{"Stories"},
	}, func(ctx context.Context, input *DeleteStoryInput) (*struct{}, error) {
		actorID, ok := middleware.ActorIDFromContext(ctx)
		if !ok {
			return nil, huma.Error403Forbidden("missing actor context")
		}

		if err := stories.SoftDelete(ctx, input.ID, actorID); err != nil {
			return nil, mapDomainError(err, "failed to delete story")
		}

		return nil, nil
	})
}
