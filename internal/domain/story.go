package domain

import (
	"context"
	"errors"
	"time"
)

// StoryState is the workflow state of a user story. Values are the
// original board labels and drive the sprint metrics buckets.
type StoryState string

const (
	StoryStatePending    StoryState = "Pendiente"
	StoryStateInDev      StoryState = "En desarrollo"
	StoryStateInTesting  StoryState = "En pruebas"
	StoryStateInReview   StoryState = "En revision"
	StoryStateDone       StoryState = "Terminada"
)

// Valid reports whether s is a known story state.
func (s StoryState) Valid() bool {
	switch s {
	case StoryStatePending, StoryStateInDev, StoryStateInTesting, StoryStateInReview, StoryStateDone:
		return true
	default:
		return false
	}
}

// Completed reports whether the story counts toward velocity.
func (s StoryState) Completed() bool { return s == StoryStateDone }

// InProgress reports whether the story is being worked on (development,
// testing or review). Everything else that is not completed is pending.
func (s StoryState) InProgress() bool {
	return s == StoryStateInDev || s == StoryStateInTesting || s == StoryStateInReview
}

// UserStory is a unit of Scrum work carrying story points and a workflow
// state. The sprint metrics engine reads stories; it never owns them.
type UserStory struct {
	ID          int64
	ProjectID   int64
	SprintID    *int64
	EpicID      *int64
	Title       string
	Description string
	State       StoryState
	StoryPoints int
	AssigneeID  *int64
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewUserStory creates a pending story with validated required fields.
func NewUserStory(projectID int64, title, description string, storyPoints int) (*UserStory, error) {
	if projectID <= 0 {
		return nil, errors.New("story: project ID is required")
	}
	if title == "" {
		return nil, errors.New("story: title is required")
	}
	if storyPoints < 0 {
		return nil, errors.New("story: story points cannot be negative")
	}

	now := time.Now()
	return &UserStory{
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		State:       StoryStatePending,
		StoryPoints: storyPoints,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Snapshot returns the auditable fields of the story as a flat field map.
func (u *UserStory) Snapshot() map[string]any {
	snapshot := map[string]any{
		"titulo":         u.Title,
		"descripcion":    u.Description,
		"estado":         string(u.State),
		"puntosHistoria": u.StoryPoints,
	}
	if u.AssigneeID != nil {
		snapshot[fieldAssignee] = *u.AssigneeID
	}
	if u.SprintID != nil {
		snapshot[fieldSprint] = *u.SprintID
	}
	if u.EpicID != nil {
		snapshot[fieldEpic] = *u.EpicID
	}
	return snapshot
}

// UserStoryRepository persists stories. Mutations take the audit records to
// commit atomically with the row, mirroring SprintRepository.
type UserStoryRepository interface {
	Create(ctx context.Context, u *UserStory, rec *ChangeRecord) error
	GetByID(ctx context.Context, id int64) (*UserStory, error)
	ListBySprint(ctx context.Context, sprintID int64) ([]*UserStory, error)
	Update(ctx context.Context, u *UserStory, recs []*ChangeRecord) error
	SoftDelete(ctx context.Context, id int64, rec *ChangeRecord) error
}
