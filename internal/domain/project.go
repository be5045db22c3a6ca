package domain

import (
	"context"
	"errors"
	"time"
)

// Project is the portfolio-level parent of sprints and stories.
type Project struct {
	ID        int64
	Name      string
	Code      string
	Active    bool
	CreatedAt time.Time
}

// NewProject creates a Project with validated required fields.
func NewProject(name, code string) (*Project, error) {
	if name == "" {
		return nil, errors.New("project: name is required")
	}
	if code == "" {
		return nil, errors.New("project: code is required")
	}
	return &Project{
		Name:      name,
		Code:      code,
		Active:    true,
		CreatedAt: time.Now(),
	}, nil
}

type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id int64) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
}
