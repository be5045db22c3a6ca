package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestia/gestia/internal/domain"
)

type ProjectRepo struct {
	pool *pgxpool.Pool
}

func NewProjectRepo(pool *pgxpool.Pool) *ProjectRepo {
	return &ProjectRepo{pool: pool}
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO projects (name, code, active)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		p.Name, p.Code, p.Active,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrConflict
		}
		return fmt.Errorf("projectRepo.Create: %w", err)
	}

	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	var p domain.Project
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, code, active, created_at FROM projects WHERE id = $1 AND active`, id,
	).Scan(&p.ID, &p.Name, &p.Code, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("projectRepo.GetByID: %w", err)
	}

	return &p, nil
}

func (r *ProjectRepo) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, code, active, created_at FROM projects WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("projectRepo.List: %w", err)
	}
	defer rows.Close()

	var projects []*domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("projectRepo.List: scan: %w", err)
		}
		projects = append(projects, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projectRepo.List: rows: %w", err)
	}

	return projects, nil
}
