package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/gestia/gestia/internal/domain"
)

type CreateProjectInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"200" doc:"Project name"`
		Code string `json:"code" minLength:"1" maxLength:"20" doc:"Short unique project code"`
	}
}

type CreateProjectOutput struct {
	Body *domain.Project
}

type GetProjectInput struct {
	ID int64 `path:"id" doc:"Project ID"`
}

type GetProjectOutput struct {
	Body *domain.Project
}

type ListProjectsOutput struct {
	Body []*domain.Project
}

func RegisterProjectRoutes(api huma.API, projects domain.ProjectRepository) {
	huma.Register(api, huma.Operation{
		OperationID: "create-project",
		Method:      http.MethodPost,
		Path:        "/projects",
		Summary:     "Create a new project",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *CreateProjectInput) (*CreateProjectOutput, error) {
		p, err := domain.NewProject(input.Body.Name, input.Body.Code)
		if err != nil {
			return nil, mapDomainError(err, "failed to create project")
		}

		if err := projects.Create(ctx, p); err != nil {
			return nil, mapDomainError(err, "failed to create project")
		}

		return &CreateProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-project",
		Method:      http.MethodGet,
		Path:        "/projects/{id}",
		Summary:     "Get a project by ID",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, input *GetProjectInput) (*GetProjectOutput, error) {
		p, err := projects.GetByID(ctx, input.ID)
		if err != nil {
			return nil, mapDomainError(err, "failed to get project")
		}

		return &GetProjectOutput{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-projects",
		Method:      http.MethodGet,
		Path:        "/projects",
		Summary:     "List projects",
		Tags:        []string{"Projects"},
	}, func(ctx context.Context, _ *struct{}) (*ListProjectsOutput, error) {
		list, err := projects.List(ctx)
		if err != nil {
			return nil, mapDomainError(err, "failed to list projects")
		}

		return &ListProjectsOutput{Body: list}, nil
	})
}
