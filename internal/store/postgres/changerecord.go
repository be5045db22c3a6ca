package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gestia/gestia/internal/domain"
)

const changeRecordColumns = `id, entity_type, entity_id, action, field_changed, previous_value, new_value, actor_id, occurred_at`

type ChangeRecordRepo struct {
	pool *pgxpool.Pool
}

func NewChangeRecordRepo(pool *pgxpool.Pool) *ChangeRecordRepo {
	return &ChangeRecordRepo{pool: pool}
}

func (r *ChangeRecordRepo) Insert(ctx context.Context, records ...*domain.ChangeRecord) error {
	switch len(records) {
	case 0:
		return nil
	case 1:
		if err := insertChangeRecord(ctx, r.pool, records[0]); err != nil {
			return fmt.Errorf("changeRecordRepo.Insert: %w", err)
		}
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("changeRecordRepo.Insert: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	for _, rec := range records {
		if err := insertChangeRecord(ctx, tx, rec); err != nil {
			return fmt.Errorf("changeRecordRepo.Insert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("changeRecordRepo.Insert: commit: %w", err)
	}

	return nil
}

// insertChangeRecord appends one audit row, filling in the generated id.
// Shared with the sprint and story repos so their mutations can commit
// audit rows inside their own transactions.
func insertChangeRecord(ctx context.Context, q querier, rec *domain.ChangeRecord) error {
	return q.QueryRow(ctx,
		`INSERT INTO change_records (entity_type, entity_id, action, field_changed, previous_value, new_value, actor_id, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		rec.EntityType, rec.EntityID, rec.Action, rec.FieldChanged,
		rec.PreviousValue, rec.NewValue, rec.ActorID, rec.OccurredAt,
	).Scan(&rec.ID)
}

func (r *ChangeRecordRepo) ListByEntity(ctx context.Context, entityType domain.EntityType, entityID int64) ([]*domain.ChangeRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+changeRecordColumns+`
		 FROM change_records
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY occurred_at DESC, id DESC`,
		entityType, entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("changeRecordRepo.ListByEntity: %w", err)
	}
	defer rows.Close()

	return scanChangeRecords(rows, "changeRecordRepo.ListByEntity")
}

func (r *ChangeRecordRepo) ListRecent(ctx context.Context, limit int) ([]*domain.ChangeRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+changeRecordColumns+`
		 FROM change_records
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("changeRecordRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	return scanChangeRecords(rows, "changeRecordRepo.ListRecent")
}

func (r *ChangeRecordRepo) ListFiltered(ctx context.Context, filter domain.ChangeRecordFilter) ([]*domain.ChangeRecord, int64, error) {
	where, args := buildRecordFilter(filter)

	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM change_records WHERE `+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("changeRecordRepo.ListFiltered: count: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM change_records WHERE %s
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT $%d OFFSET $%d`, changeRecordColumns, where, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("changeRecordRepo.ListFiltered: %w", err)
	}
	defer rows.Close()

	records, err := scanChangeRecords(rows, "changeRecordRepo.ListFiltered")
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func buildRecordFilter(filter domain.ChangeRecordFilter) (string, []any) {
	clauses := []string{"TRUE"}
	var args []any

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.EntityType != nil {
		add("entity_type = $%d", *filter.EntityType)
	}
	if filter.EntityID != nil {
		add("entity_id = $%d", *filter.EntityID)
	}
	if filter.ActorID != nil {
		add("actor_id = $%d", *filter.ActorID)
	}
	if filter.Action != nil {
		add("action = $%d", *filter.Action)
	}
	if filter.From != nil {
		add("occurred_at >= $%d", filter.From.Midnight())
	}
	if filter.To != nil {
		add("occurred_at < $%d", filter.To.Next().Midnight())
	}

	return strings.Join(clauses, " AND "), args
}

func (r *ChangeRecordRepo) Statistics(ctx context.Context, from, to domain.CalendarDate) (*domain.ChangeStatistics, error) {
	stats := &domain.ChangeStatistics{
		From:         from,
		To:           to,
		ByEntityType: make(map[domain.EntityType]int64),
		ByAction:     make(map[domain.ChangeAction]int64),
	}
	lo, hi := from.Midnight(), to.Next().Midnight()

	rows, err := r.pool.Query(ctx,
		`SELECT entity_type, COUNT(*)
		 FROM change_records
		 WHERE occurred_at >= $1 AND occurred_at < $2
		 GROUP BY entity_type`,
		lo, hi,
	)
	if err != nil {
		return nil, fmt.Errorf("changeRecordRepo.Statistics: by entity type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entityType domain.EntityType
		var count int64
		if err := rows.Scan(&entityType, &count); err != nil {
			return nil, fmt.Errorf("changeRecordRepo.Statistics: scan: %w", err)
		}
		stats.ByEntityType[entityType] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changeRecordRepo.Statistics: rows: %w", err)
	}

	rows, err = r.pool.Query(ctx,
		`SELECT action, COUNT(*)
		 FROM change_records
		 WHERE occurred_at >= $1 AND occurred_at < $2
		 GROUP BY action`,
		lo, hi,
	)
	if err != nil {
		return nil, fmt.Errorf("changeRecordRepo.Statistics: by action: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action domain.ChangeAction
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("changeRecordRepo.Statistics: scan: %w", err)
		}
		stats.ByAction[action] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changeRecordRepo.Statistics: rows: %w", err)
	}

	rows, err = r.pool.Query(ctx,
		`SELECT actor_id, COUNT(*) AS records
		 FROM change_records
		 WHERE occurred_at >= $1 AND occurred_at < $2
		 GROUP BY actor_id
		 ORDER BY records DESC, actor_id
		 LIMIT 10`,
		lo, hi,
	)
	if err != nil {
		return nil, fmt.Errorf("changeRecordRepo.Statistics: top actors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var actor domain.ActorActivity
		if err := rows.Scan(&actor.ActorID, &actor.Records); err != nil {
			return nil, fmt.Errorf("changeRecordRepo.Statistics: scan: %w", err)
		}
		stats.TopActors = append(stats.TopActors, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("changeRecordRepo.Statistics: rows: %w", err)
	}

	return stats, nil
}

func scanChangeRecords(rows pgx.Rows, caller string) ([]*domain.ChangeRecord, error) {
	var records []*domain.ChangeRecord
	for rows.Next() {
		var rec domain.ChangeRecord
		if err := rows.Scan(
			&rec.ID, &rec.EntityType, &rec.EntityID, &rec.Action, &rec.FieldChanged,
			&rec.PreviousValue, &rec.NewValue, &rec.ActorID, &rec.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return records, nil
}
