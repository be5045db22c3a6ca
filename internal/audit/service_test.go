package audit_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestia/gestia/internal/audit"
	"github.com/gestia/gestia/internal/domain"
)

// ---------------------------------------------------------------------------
// In-memory ChangeRecordRepository
// ---------------------------------------------------------------------------

type memRecordRepo struct {
	nextID  int64
	records []*domain.ChangeRecord
	failing bool
}

func (m *memRecordRepo) Insert(_ context.Context, recs ...*domain.ChangeRecord) error {
	if m.failing {
		return assert.AnError
	}
	for _, rec := range recs {
		m.nextID++
		rec.ID = m.nextID
		m.records = append(m.records, rec)
	}
	return nil
}

func (m *memRecordRepo) ListByEntity(_ context.Context, entityType domain.EntityType, entityID int64) ([]*domain.ChangeRecord, error) {
	var out []*domain.ChangeRecord
	for _, rec := range m.records {
		if rec.EntityType == entityType && rec.EntityID == entityID {
			out = append(out, rec)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *memRecordRepo) ListRecent(_ context.Context, limit int) ([]*domain.ChangeRecord, error) {
	out := append([]*domain.ChangeRecord(nil), m.records...)
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRecordRepo) ListFiltered(_ context.Context, filter domain.ChangeRecordFilter) ([]*domain.ChangeRecord, int64, error) {
	var matched []*domain.ChangeRecord
	for _, rec := range m.records {
		if filter.EntityType != nil && rec.EntityType != *filter.EntityType {
			continue
		}
		if filter.EntityID != nil && rec.EntityID != *filter.EntityID {
			continue
		}
		if filter.ActorID != nil && rec.ActorID != *filter.ActorID {
			continue
		}
		if filter.Action != nil && rec.Action != *filter.Action {
			continue
		}
		matched = append(matched, rec)
	}
	sortNewestFirst(matched)

	total := int64(len(matched))
	offset := (filter.Page - 1) * filter.PageSize
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func (m *memRecordRepo) Statistics(_ context.Context, from, to domain.CalendarDate) (*domain.ChangeStatistics, error) {
	stats := &domain.ChangeStatistics{
		From:         from,
		To:           to,
		ByEntityType: map[domain.EntityType]int64{},
		ByAction:     map[domain.ChangeAction]int64{},
	}
	lo, hi := from.Midnight(), to.Next().Midnight()
	for _, rec := range m.records {
		if rec.OccurredAt.Before(lo) || !rec.OccurredAt.Before(hi) {
			continue
		}
		stats.Total++
		stats.ByEntityType[rec.EntityType]++
		stats.ByAction[rec.Action]++
	}
	return stats, nil
}

func sortNewestFirst(recs []*domain.ChangeRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].OccurredAt.Equal(recs[j].OccurredAt) {
			return recs[i].ID > recs[j].ID
		}
		return recs[i].OccurredAt.After(recs[j].OccurredAt)
	})
}

// ---------------------------------------------------------------------------
// Write path
// ---------------------------------------------------------------------------

func TestService_RecordFieldChanges(t *testing.T) {
	t.Parallel()

	t.Run("state_transition_emits_single_record", func(t *testing.T) {
		t.Parallel()

		repo := &memRecordRepo{}
		svc := audit.NewService(repo, nil)

		recs, err := svc.RecordFieldChanges(context.Background(), domain.EntityTask, 42,
			map[string]any{"estado": "Pendiente", "titulo": "X"},
			map[string]any{"estado": "En desarrollo", "titulo": "X"},
			7,
		)
		require.NoError(t, err)
		require.Len(t, recs, 1)

		rec := recs[0]
		assert.Equal(t, domain.ActionStateChanged, rec.Action)
		assert.Equal(t, "estado", *rec.FieldChanged)
		assert.Equal(t, "Pendiente", *rec.PreviousValue)
		assert.Equal(t, "En desarrollo", *rec.NewValue)
		assert.Equal(t, int64(7), rec.ActorID)
		assert.Len(t, repo.records, 1)
	})

	t.Run("no_changes_writes_nothing", func(t *testing.T) {
		t.Parallel()

		repo := &memRecordRepo{}
		svc := audit.NewService(repo, nil)

		recs, err := svc.RecordFieldChanges(context.Background(), domain.EntityTask, 42,
			map[string]any{"titulo": "X"},
			map[string]any{"titulo": "X"},
			7,
		)
		require.NoError(t, err)
		assert.Empty(t, recs)
		assert.Empty(t, repo.records)
	})

	t.Run("multi_field_records_share_occurred_at", func(t *testing.T) {
		t.Parallel()

		repo := &memRecordRepo{}
		svc := audit.NewService(repo, nil)

		recs, err := svc.RecordFieldChanges(context.Background(), domain.EntityUserStory, 9,
			map[string]any{"titulo": "a", "puntosHistoria": 3},
			map[string]any{"titulo": "b", "puntosHistoria": 5},
			1,
		)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, recs[0].OccurredAt, recs[1].OccurredAt)
	})

	t.Run("unknown_entity_type_is_invalid_argument", func(t *testing.T) {
		t.Parallel()

		svc := audit.NewService(&memRecordRepo{}, nil)
		_, err := svc.RecordFieldChanges(context.Background(), "Gremlin", 1, nil, nil, 1)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestService_RecordCreationAndDeletion(t *testing.T) {
	t.Parallel()

	repo := &memRecordRepo{}
	svc := audit.NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.RecordCreation(ctx, domain.EntitySprint, 12, 7, map[string]any{"nombre": "Sprint 7"})
	require.NoError(t, err)
	assert.Equal(t, domain.ActionCreated, created.Action)
	assert.Nil(t, created.FieldChanged)
	assert.JSONEq(t, `{"nombre":"Sprint 7"}`, *created.NewValue)

	deleted, err := svc.RecordDeletion(ctx, domain.EntitySprint, 12, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionDeleted, deleted.Action)
	assert.Nil(t, deleted.FieldChanged)
	assert.Nil(t, deleted.PreviousValue)
	assert.Nil(t, deleted.NewValue)

	assert.Len(t, repo.records, 2)
}

func TestService_ExplicitWrappers(t *testing.T) {
	t.Parallel()

	repo := &memRecordRepo{}
	svc := audit.NewService(repo, nil)
	ctx := context.Background()

	rec, err := svc.RecordStateChange(ctx, domain.EntityUserStory, 5, "Pendiente", "En desarrollo", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStateChanged, rec.Action)

	seven := int64(7)
	rec, err = svc.RecordAssignment(ctx, domain.EntityUserStory, 5, nil, &seven, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionAssigned, rec.Action)

	one, two := int64(1), int64(2)
	rec, err = svc.RecordMove(ctx, domain.EntityUserStory, 5, "sprintId", &one, &two, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionMoved, rec.Action)
	assert.Equal(t, "sprintId", *rec.FieldChanged)
}

// ---------------------------------------------------------------------------
// Query surface
// ---------------------------------------------------------------------------

func TestService_FindRecent_ClampsLimit(t *testing.T) {
	t.Parallel()

	repo := &memRecordRepo{}
	svc := audit.NewService(repo, nil)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 120; i++ {
		require.NoError(t, repo.Insert(ctx, &domain.ChangeRecord{
			EntityType: domain.EntityTask,
			EntityID:   int64(i),
			Action:     domain.ActionUpdated,
			ActorID:    1,
			OccurredAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	recs, err := svc.FindRecent(ctx, 500)
	require.NoError(t, err)
	assert.Len(t, recs, audit.MaxPageSize)

	// Newest first.
	assert.Equal(t, int64(119), recs[0].EntityID)

	recs, err = svc.FindRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 10)
}

func TestService_FindFiltered(t *testing.T) {
	t.Parallel()

	repo := &memRecordRepo{}
	svc := audit.NewService(repo, nil)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.Insert(ctx,
		&domain.ChangeRecord{EntityType: domain.EntityTask, EntityID: 1, Action: domain.ActionUpdated, ActorID: 1, OccurredAt: now},
		&domain.ChangeRecord{EntityType: domain.EntityTask, EntityID: 1, Action: domain.ActionStateChanged, ActorID: 2, OccurredAt: now.Add(time.Second)},
		&domain.ChangeRecord{EntityType: domain.EntitySprint, EntityID: 3, Action: domain.ActionStarted, ActorID: 2, OccurredAt: now.Add(2 * time.Second)},
	))

	entityType := domain.EntityTask
	recs, total, err := svc.FindFiltered(ctx, domain.ChangeRecordFilter{EntityType: &entityType})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.ActionStateChanged, recs[0].Action)

	bogus := domain.ChangeAction("Exploded")
	_, _, err = svc.FindFiltered(ctx, domain.ChangeRecordFilter{Action: &bogus})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestService_Statistics_RequiresBothBounds(t *testing.T) {
	t.Parallel()

	svc := audit.NewService(&memRecordRepo{}, nil)
	ctx := context.Background()

	to := domain.NewCalendarDate(2025, time.January, 31)

	_, err := svc.Statistics(ctx, nil, &to)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	from := domain.NewCalendarDate(2025, time.January, 1)
	_, err = svc.Statistics(ctx, &from, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Statistics(ctx, &to, &from)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestService_Statistics_CountsWithinRange(t *testing.T) {
	t.Parallel()

	repo := &memRecordRepo{}
	svc := audit.NewService(repo, nil)
	ctx := context.Background()

	inRange := time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)
	lastInstant := time.Date(2025, time.January, 31, 23, 59, 59, 999000000, time.UTC)
	outOfRange := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Insert(ctx,
		&domain.ChangeRecord{EntityType: domain.EntityTask, EntityID: 1, Action: domain.ActionUpdated, ActorID: 1, OccurredAt: inRange},
		&domain.ChangeRecord{EntityType: domain.EntitySprint, EntityID: 2, Action: domain.ActionStarted, ActorID: 1, OccurredAt: lastInstant},
		&domain.ChangeRecord{EntityType: domain.EntityTask, EntityID: 3, Action: domain.ActionUpdated, ActorID: 1, OccurredAt: outOfRange},
	))

	from := domain.NewCalendarDate(2025, time.January, 1)
	to := domain.NewCalendarDate(2025, time.January, 31)

	stats, err := svc.Statistics(ctx, &from, &to)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.ByEntityType[domain.EntityTask])
	assert.Equal(t, int64(1), stats.ByEntityType[domain.EntitySprint])
	assert.Equal(t, int64(1), stats.ByAction[domain.ActionStarted])
}
