// Package audit is the change-history engine: the write path into the
// append-only change-record store and its read-side query surface.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gestia/gestia/internal/domain"
)

// MaxPageSize bounds every history query.
const MaxPageSize = 100

// ActivityChannel is the pub/sub channel live consumers subscribe to.
const ActivityChannel = "activity"

// FeedPublisher pushes committed change records to live consumers.
// *redis.Feed satisfies this interface.
type FeedPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Service records and queries change history. Writes through the service are
// single-row inserts; domain mutations that must commit audit rows atomically
// with their own row build records via the domain constructors, pass them to
// the repository, and announce them here after the transaction commits.
type Service struct {
	records domain.ChangeRecordRepository
	feed    FeedPublisher // nil disables the live feed
	now     func() time.Time
}

func NewService(records domain.ChangeRecordRepository, feed FeedPublisher) *Service {
	return &Service{records: records, feed: feed, now: time.Now}
}

// RecordCreation writes one Created record carrying the initial snapshot.
func (s *Service) RecordCreation(ctx context.Context, entityType domain.EntityType, entityID, actorID int64, snapshot map[string]any) (*domain.ChangeRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	rec := domain.NewCreatedRecord(entityType, entityID, actorID, snapshot, s.now())
	if err := s.records.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("audit.RecordCreation: %w", err)
	}

	s.Announce(ctx, rec)
	return rec, nil
}

// RecordDeletion writes one Deleted record with no field data.
func (s *Service) RecordDeletion(ctx context.Context, entityType domain.EntityType, entityID, actorID int64) (*domain.ChangeRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	rec := domain.NewDeletedRecord(entityType, entityID, actorID, s.now())
	if err := s.records.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("audit.RecordDeletion: %w", err)
	}

	s.Announce(ctx, rec)
	return rec, nil
}

// RecordFieldChanges diffs the two snapshots and writes one record per
// changed field, all sharing the same occurredAt. Returns the records
// written; the slice is empty when no fields differed.
func (s *Service) RecordFieldChanges(ctx context.Context, entityType domain.EntityType, entityID int64, before, after map[string]any, actorID int64) ([]*domain.ChangeRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	changes := domain.Diff(before, after)
	if len(changes) == 0 {
		return nil, nil
	}

	recs := domain.RecordsFromChanges(entityType, entityID, actorID, changes, s.now())
	if err := s.records.Insert(ctx, recs...); err != nil {
		return nil, fmt.Errorf("audit.RecordFieldChanges: %w", err)
	}

	s.Announce(ctx, recs...)
	return recs, nil
}

// RecordStateChange writes one explicit StateChanged record, bypassing the
// diff path when the caller already knows the transition.
func (s *Service) RecordStateChange(ctx context.Context, entityType domain.EntityType, entityID int64, previousState, newState string, actorID int64) (*domain.ChangeRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	rec := domain.NewStateChangeRecord(entityType, entityID, previousState, newState, actorID, s.now())
	if err := s.records.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("audit.RecordStateChange: %w", err)
	}

	s.Announce(ctx, rec)
	return rec, nil
}

// RecordAssignment writes an Assigned record (previous nil) or a Reassigned
// record.
func (s *Service) RecordAssignment(ctx context.Context, entityType domain.EntityType, entityID int64, previous, next *int64, actorID int64) (*domain.ChangeRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	rec := domain.NewAssignmentRecord(entityType, entityID, previous, next, actorID, s.now())
	if err := s.records.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("audit.RecordAssignment: %w", err)
	}

	s.Announce(ctx, rec)
	return rec, nil
}

// RecordMove writes one Moved record for a container change; field names the
// reference that moved ("sprintId" or "epicaId").
func (s *Service) RecordMove(ctx context.Context, entityType domain.EntityType, entityID int64, field string, previous, next *int64, actorID int64) (*domain.ChangeRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	rec := domain.NewMoveRecord(entityType, entityID, field, previous, next, actorID, s.now())
	if err := s.records.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("audit.RecordMove: %w", err)
	}

	s.Announce(ctx, rec)
	return rec, nil
}

// feedEvent is the envelope published to the activity channel.
type feedEvent struct {
	EventID string               `json:"event_id"`
	Record  *domain.ChangeRecord `json:"record"`
}

// Announce publishes already-persisted records to the live activity feed.
// Best-effort: the durable row is the source of truth, so publish failures
// are logged and never propagated to the caller.
func (s *Service) Announce(ctx context.Context, recs ...*domain.ChangeRecord) {
	if s.feed == nil {
		return
	}

	for _, rec := range recs {
		payload, err := json.Marshal(feedEvent{EventID: uuid.NewString(), Record: rec})
		if err != nil {
			log.Warn().Err(err).Msg("audit: marshal feed event")
			continue
		}
		if err := s.feed.Publish(ctx, ActivityChannel, payload); err != nil {
			log.Warn().Err(err).
				Str("entity_type", string(rec.EntityType)).
				Int64("entity_id", rec.EntityID).
				Msg("audit: publish feed event")
		}
	}
}

// FindByEntity returns all records for one entity, newest first.
func (s *Service) FindByEntity(ctx context.Context, entityType domain.EntityType, entityID int64) ([]*domain.ChangeRecord, error) {
	if err := validateEntityType(entityType); err != nil {
		return nil, err
	}

	recs, err := s.records.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("audit.FindByEntity: %w", err)
	}
	return recs, nil
}

// FindRecent returns the newest records system-wide, at most MaxPageSize.
func (s *Service) FindRecent(ctx context.Context, limit int) ([]*domain.ChangeRecord, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	recs, err := s.records.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("audit.FindRecent: %w", err)
	}
	return recs, nil
}

// FindFiltered returns a filtered, paginated page of records, newest first,
// plus the total match count.
func (s *Service) FindFiltered(ctx context.Context, filter domain.ChangeRecordFilter) ([]*domain.ChangeRecord, int64, error) {
	if filter.EntityType != nil {
		if err := validateEntityType(*filter.EntityType); err != nil {
			return nil, 0, err
		}
	}
	if filter.Action != nil && !filter.Action.Valid() {
		return nil, 0, fmt.Errorf("audit.FindFiltered: unknown action %q: %w", *filter.Action, domain.ErrInvalidArgument)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}

	recs, total, err := s.records.ListFiltered(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("audit.FindFiltered: %w", err)
	}
	return recs, total, nil
}

// Statistics aggregates counts by entity type, by action and by actor over
// the inclusive calendar-day range [from, to]. Both bounds are required.
func (s *Service) Statistics(ctx context.Context, from, to *domain.CalendarDate) (*domain.ChangeStatistics, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("audit.Statistics: both date bounds are required: %w", domain.ErrInvalidArgument)
	}
	if to.Before(*from) {
		return nil, fmt.Errorf("audit.Statistics: dateTo precedes dateFrom: %w", domain.ErrInvalidArgument)
	}

	stats, err := s.records.Statistics(ctx, *from, *to)
	if err != nil {
		return nil, fmt.Errorf("audit.Statistics: %w", err)
	}
	return stats, nil
}

func validateEntityType(entityType domain.EntityType) error {
	if !entityType.Valid() {
		return fmt.Errorf("audit: unknown entity type %q: %w", entityType, domain.ErrInvalidArgument)
	}
	return nil
}
