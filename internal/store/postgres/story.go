package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestia/gestia/internal/domain"
)

const storyColumns = `id, project_id, sprint_id, epic_id, title, description, state, story_points, assignee_id, active, created_at, updated_at`

type UserStoryRepo struct {
	pool *pgxpool.Pool
}

func NewUserStoryRepo(pool *pgxpool.Pool) *UserStoryRepo {
	return &UserStoryRepo{pool: pool}
}

func (r *UserStoryRepo) Create(ctx context.Context, u *domain.UserStory, rec *domain.ChangeRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("userStoryRepo.Create: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx,
		`INSERT INTO user_stories (project_id, sprint_id, epic_id, title, description, state, story_points, assignee_id, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		u.ProjectID, u.SprintID, u.EpicID, u.Title, u.Description,
		u.State, u.StoryPoints, u.AssigneeID, u.Active,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("userStoryRepo.Create: %w", err)
	}

	rec.EntityID = u.ID
	if err := insertChangeRecord(ctx, tx, rec); err != nil {
		return fmt.Errorf("userStoryRepo.Create: audit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("userStoryRepo.Create: commit: %w", err)
	}

	return nil
}

func (r *UserStoryRepo) GetByID(ctx context.Context, id int64) (*domain.UserStory, error) {
	var u domain.UserStory
	err := r.pool.QueryRow(ctx,
		`SELECT `+storyColumns+` FROM user_stories WHERE id = $1 AND active`, id,
	).Scan(
		&u.ID, &u.ProjectID, &u.SprintID, &u.EpicID, &u.Title, &u.Description,
		&u.State, &u.StoryPoints, &u.AssigneeID, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("userStoryRepo.GetByID: %w", err)
	}

	return &u, nil
}

func (r *UserStoryRepo) ListBySprint(ctx context.Context, sprintID int64) ([]*domain.UserStory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+storyColumns+`
		 FROM user_stories
		 WHERE sprint_id = $1 AND active
		 ORDER BY id`,
		sprintID,
	)
	if err != nil {
		return nil, fmt.Errorf("userStoryRepo.ListBySprint: %w", err)
	}
	defer rows.Close()

	return scanStories(rows, "userStoryRepo.ListBySprint")
}

func (r *UserStoryRepo) Update(ctx context.Context, u *domain.UserStory, recs []*domain.ChangeRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("userStoryRepo.Update: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE user_stories
		 SET sprint_id = $2, epic_id = $3, title = $4, description = $5,
		     state = $6, story_points = $7, assignee_id = $8, updated_at = now()
		 WHERE id = $1 AND active`,
		u.ID, u.SprintID, u.EpicID, u.Title, u.Description,
		u.State, u.StoryPoints, u.AssigneeID,
	)
	if err != nil {
		return fmt.Errorf("userStoryRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	for _, rec := range recs {
		if err := insertChangeRecord(ctx, tx, rec); err != nil {
			return fmt.Errorf("userStoryRepo.Update: audit: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("userStoryRepo.Update: commit: %w", err)
	}

	return nil
}

func (r *UserStoryRepo) SoftDelete(ctx context.Context, id int64, rec *domain.ChangeRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("userStoryRepo.SoftDelete: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE user_stories SET active = FALSE, updated_at = now() WHERE id = $1 AND active`, id)
	if err != nil {
		return fmt.Errorf("userStoryRepo.SoftDelete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := insertChangeRecord(ctx, tx, rec); err != nil {
		return fmt.Errorf("userStoryRepo.SoftDelete: audit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("userStoryRepo.SoftDelete: commit: %w", err)
	}

	return nil
}

func scanStories(rows pgx.Rows, caller string) ([]*domain.UserStory, error) {
	var stories []*domain.UserStory
	for rows.Next() {
		var u domain.UserStory
		if err := rows.Scan(
			&u.ID, &u.ProjectID, &u.SprintID, &u.EpicID, &u.Title, &u.Description,
			&u.State, &u.StoryPoints, &u.AssigneeID, &u.Active, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		stories = append(stories, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return stories, nil
}
