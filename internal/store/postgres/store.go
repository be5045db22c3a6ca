// Package postgres implements the domain repositories on pgx. Mutations
// that carry audit records commit the domain row and its change-history
// rows in one transaction.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestia/gestia/internal/domain"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so repository
// helpers can run inside or outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool          *pgxpool.Pool
	projects      *ProjectRepo
	sprints       *SprintRepo
	stories       *UserStoryRepo
	changeRecords *ChangeRecordRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:          pool,
		projects:      NewProjectRepo(pool),
		sprints:       NewSprintRepo(pool),
		stories:       NewUserStoryRepo(pool),
		changeRecords: NewChangeRecordRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Projects() domain.ProjectRepository           { return s.projects }
func (s *Store) Sprints() domain.SprintRepository             { return s.sprints }
func (s *Store) Stories() domain.UserStoryRepository          { return s.stories }
func (s *Store) ChangeRecords() domain.ChangeRecordRepository { return s.changeRecords }
