package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestia/gestia/internal/domain"
)

const sprintColumns = `id, project_id, name, goal, start_date, end_date, team_capacity, state, evidence_link, actual_start_date, actual_end_date, active, created_at, updated_at`

type SprintRepo struct {
	pool *pgxpool.Pool
}

func NewSprintRepo(pool *pgxpool.Pool) *SprintRepo {
	return &SprintRepo{pool: pool}
}

func (r *SprintRepo) Create(ctx context.Context, s *domain.Sprint, rec *domain.ChangeRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sprintRepo.Create: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx,
		`INSERT INTO sprints (project_id, name, goal, start_date, end_date, team_capacity, state, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		s.ProjectID, s.Name, s.Goal, s.StartDate.Midnight(), s.EndDate.Midnight(),
		s.TeamCapacity, s.State, s.Active,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("sprintRepo.Create: %w", err)
	}

	rec.EntityID = s.ID
	if err := insertChangeRecord(ctx, tx, rec); err != nil {
		return fmt.Errorf("sprintRepo.Create: audit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sprintRepo.Create: commit: %w", err)
	}

	return nil
}

func (r *SprintRepo) GetByID(ctx context.Context, id int64) (*domain.Sprint, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sprintColumns+` FROM sprints WHERE id = $1 AND active`, id)

	s, err := scanSprintRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("sprintRepo.GetByID: %w", err)
	}

	return s, nil
}

func (r *SprintRepo) ListByProject(ctx context.Context, projectID int64) ([]*domain.Sprint, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sprintColumns+`
		 FROM sprints
		 WHERE project_id = $1 AND active
		 ORDER BY start_date, id`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sprintRepo.ListByProject: %w", err)
	}
	defer rows.Close()

	return scanSprints(rows, "sprintRepo.ListByProject")
}

func (r *SprintRepo) GetActiveByProject(ctx context.Context, projectID int64) (*domain.Sprint, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sprintColumns+`
		 FROM sprints
		 WHERE project_id = $1 AND state = $2 AND active`,
		projectID, domain.SprintStateActive,
	)

	s, err := scanSprintRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("sprintRepo.GetActiveByProject: %w", err)
	}

	return s, nil
}

func (r *SprintRepo) Update(ctx context.Context, s *domain.Sprint, recs []*domain.ChangeRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sprintRepo.Update: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE sprints
		 SET name = $2, goal = $3, start_date = $4, end_date = $5, team_capacity = $6, updated_at = now()
		 WHERE id = $1 AND active`,
		s.ID, s.Name, s.Goal, s.StartDate.Midnight(), s.EndDate.Midnight(), s.TeamCapacity,
	)
	if err != nil {
		return fmt.Errorf("sprintRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	for _, rec := range recs {
		if err := insertChangeRecord(ctx, tx, rec); err != nil {
			return fmt.Errorf("sprintRepo.Update: audit: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sprintRepo.Update: commit: %w", err)
	}

	return nil
}

// Start moves a planned sprint to Active. The conditional UPDATE together
// with the partial unique index on (project_id) WHERE state = 'Active'
// makes the single-active-sprint rule hold even under concurrent starts.
func (r *SprintRepo) Start(ctx context.Context, id int64, at time.Time, rec *domain.ChangeRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sprintRepo.Start: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE sprints
		 SET state = $2, actual_start_date = $3, updated_at = now()
		 WHERE id = $1 AND state = $4 AND active`,
		id, domain.SprintStateActive, at, domain.SprintStatePlanned,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return r.activeConflict(ctx, id)
		}
		return fmt.Errorf("sprintRepo.Start: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.diagnoseTransition(ctx, id, "start")
	}

	if err := insertChangeRecord(ctx, tx, rec); err != nil {
		return fmt.Errorf("sprintRepo.Start: audit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return r.activeConflict(ctx, id)
		}
		return fmt.Errorf("sprintRepo.Start: commit: %w", err)
	}

	return nil
}

func (r *SprintRepo) Close(ctx context.Context, id int64, at time.Time, evidenceLink *string, rec *domain.ChangeRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sprintRepo.Close: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE sprints
		 SET state = $2, actual_end_date = $3, evidence_link = COALESCE($4, evidence_link), updated_at = now()
		 WHERE id = $1 AND state = $5 AND active`,
		id, domain.SprintStateCompleted, at, evidenceLink, domain.SprintStateActive,
	)
	if err != nil {
		return fmt.Errorf("sprintRepo.Close: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.diagnoseTransition(ctx, id, "close")
	}

	if err := insertChangeRecord(ctx, tx, rec); err != nil {
		return fmt.Errorf("sprintRepo.Close: audit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sprintRepo.Close: commit: %w", err)
	}

	return nil
}

func (r *SprintRepo) SoftDelete(ctx context.Context, id int64, rec *domain.ChangeRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sprintRepo.SoftDelete: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE sprints
		 SET active = FALSE, updated_at = now()
		 WHERE id = $1 AND state <> $2 AND active`,
		id, domain.SprintStateActive,
	)
	if err != nil {
		return fmt.Errorf("sprintRepo.SoftDelete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.diagnoseTransition(ctx, id, "delete")
	}

	if err := insertChangeRecord(ctx, tx, rec); err != nil {
		return fmt.Errorf("sprintRepo.SoftDelete: audit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sprintRepo.SoftDelete: commit: %w", err)
	}

	return nil
}

// activeConflict reports which sprint already holds the Active slot for the
// same project as the sprint that failed to start.
func (r *SprintRepo) activeConflict(ctx context.Context, id int64) error {
	var conflict domain.ActiveSprintConflictError
	err := r.pool.QueryRow(ctx,
		`SELECT a.project_id, a.id, a.name
		 FROM sprints s
		 JOIN sprints a ON a.project_id = s.project_id AND a.state = $2 AND a.active
		 WHERE s.id = $1`,
		id, domain.SprintStateActive,
	).Scan(&conflict.ProjectID, &conflict.ActiveSprintID, &conflict.ActiveSprintName)
	if err != nil {
		return domain.ErrConflict
	}

	return &conflict
}

// diagnoseTransition turns a zero-row conditional update into the precise
// domain error: the sprint is gone, or it sits in a state the operation
// does not allow.
func (r *SprintRepo) diagnoseTransition(ctx context.Context, id int64, op string) error {
	var state domain.SprintState
	err := r.pool.QueryRow(ctx,
		`SELECT state FROM sprints WHERE id = $1 AND active`, id,
	).Scan(&state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("sprintRepo.diagnoseTransition: %w", err)
	}

	return &domain.InvalidStateError{Entity: "sprint", ID: id, State: string(state), Op: op}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSprintRow(row rowScanner) (*domain.Sprint, error) {
	var s domain.Sprint
	var startDate, endDate time.Time
	err := row.Scan(
		&s.ID, &s.ProjectID, &s.Name, &s.Goal, &startDate, &endDate,
		&s.TeamCapacity, &s.State, &s.EvidenceLink,
		&s.ActualStartDate, &s.ActualEndDate, &s.Active,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.StartDate = domain.DateOf(startDate)
	s.EndDate = domain.DateOf(endDate)

	return &s, nil
}

func scanSprints(rows pgx.Rows, caller string) ([]*domain.Sprint, error) {
	var sprints []*domain.Sprint
	for rows.Next() {
		s, err := scanSprintRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		sprints = append(sprints, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return sprints, nil
}
