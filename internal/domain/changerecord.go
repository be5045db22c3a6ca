package domain

import (
	"context"
	"time"
)

// EntityType tags the domain class of an audited entity. String tags, not
// polymorphic references: the referenced entity may be deleted later while
// its history remains.
type EntityType string

const (
	EntityUserStory    EntityType = "HistoriaUsuario"
	EntityTask         EntityType = "Tarea"
	EntitySubtask      EntityType = "Subtarea"
	EntitySprint       EntityType = "Sprint"
	EntityEpic         EntityType = "Epica"
	EntityDailyMeeting EntityType = "DailyMeeting"
)

// Valid reports whether t is a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityUserStory, EntityTask, EntitySubtask, EntitySprint, EntityEpic, EntityDailyMeeting:
		return true
	default:
		return false
	}
}

// ChangeAction classifies what a change record describes.
type ChangeAction string

const (
	ActionCreated      ChangeAction = "Created"
	ActionUpdated      ChangeAction = "Updated"
	ActionDeleted      ChangeAction = "Deleted"
	ActionStateChanged ChangeAction = "StateChanged"
	ActionAssigned     ChangeAction = "Assigned"
	ActionReassigned   ChangeAction = "Reassigned"
	ActionMoved        ChangeAction = "Moved"
	ActionStarted      ChangeAction = "Started"
	ActionClosed       ChangeAction = "Closed"
	ActionValidated    ChangeAction = "Validated"
)

// Valid reports whether a is a known action.
func (a ChangeAction) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionStateChanged,
		ActionAssigned, ActionReassigned, ActionMoved, ActionStarted,
		ActionClosed, ActionValidated:
		return true
	default:
		return false
	}
}

// ChangeRecord is one immutable audit-log row: a single detected field change
// or lifecycle event. Records are never updated or deleted after creation.
type ChangeRecord struct {
	ID            int64
	EntityType    EntityType
	EntityID      int64
	Action        ChangeAction
	FieldChanged  *string
	PreviousValue *string
	NewValue      *string
	ActorID       int64
	OccurredAt    time.Time
}

const fieldState = "estado"

// NewCreatedRecord builds the single Created record for a new entity,
// carrying the initial snapshot instead of per-field diffs. EntityID may be
// zero when the identifier is assigned by the store at insert time.
func NewCreatedRecord(entityType EntityType, entityID, actorID int64, snapshot map[string]any, at time.Time) *ChangeRecord {
	return &ChangeRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     ActionCreated,
		NewValue:   EncodeValue(snapshot),
		ActorID:    actorID,
		OccurredAt: at,
	}
}

// NewDeletedRecord builds the single Deleted record for a removed entity.
func NewDeletedRecord(entityType EntityType, entityID, actorID int64, at time.Time) *ChangeRecord {
	return &ChangeRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     ActionDeleted,
		ActorID:    actorID,
		OccurredAt: at,
	}
}

// NewStateChangeRecord builds an explicit StateChanged record, used when the
// caller already knows the transition and bypasses the generic diff path.
func NewStateChangeRecord(entityType EntityType, entityID int64, previous, next string, actorID int64, at time.Time) *ChangeRecord {
	return newTransitionRecord(entityType, entityID, ActionStateChanged, previous, next, actorID, at)
}

// NewLifecycleRecord builds a transition record with a lifecycle action
// (Started, Closed, Validated) instead of the generic StateChanged.
func NewLifecycleRecord(entityType EntityType, entityID int64, action ChangeAction, previous, next string, actorID int64, at time.Time) *ChangeRecord {
	return newTransitionRecord(entityType, entityID, action, previous, next, actorID, at)
}

func newTransitionRecord(entityType EntityType, entityID int64, action ChangeAction, previous, next string, actorID int64, at time.Time) *ChangeRecord {
	field := fieldState
	return &ChangeRecord{
		EntityType:    entityType,
		EntityID:      entityID,
		Action:        action,
		FieldChanged:  &field,
		PreviousValue: EncodeValue(previous),
		NewValue:      EncodeValue(next),
		ActorID:       actorID,
		OccurredAt:    at,
	}
}

// NewAssignmentRecord builds an Assigned record when previous is nil
// (first assignment) and a Reassigned record otherwise.
func NewAssignmentRecord(entityType EntityType, entityID int64, previous, next *int64, actorID int64, at time.Time) *ChangeRecord {
	action := ActionAssigned
	if previous != nil {
		action = ActionReassigned
	}
	field := fieldAssignee
	return &ChangeRecord{
		EntityType:    entityType,
		EntityID:      entityID,
		Action:        action,
		FieldChanged:  &field,
		PreviousValue: EncodeValue(int64PtrValue(previous)),
		NewValue:      EncodeValue(int64PtrValue(next)),
		ActorID:       actorID,
		OccurredAt:    at,
	}
}

// NewMoveRecord builds a Moved record for a container change (sprint or epic
// reference). field names the reference that moved, e.g. "sprintId".
func NewMoveRecord(entityType EntityType, entityID int64, field string, previous, next *int64, actorID int64, at time.Time) *ChangeRecord {
	return &ChangeRecord{
		EntityType:    entityType,
		EntityID:      entityID,
		Action:        ActionMoved,
		FieldChanged:  &field,
		PreviousValue: EncodeValue(int64PtrValue(previous)),
		NewValue:      EncodeValue(int64PtrValue(next)),
		ActorID:       actorID,
		OccurredAt:    at,
	}
}

// RecordsFromChanges converts diff output into change records, all sharing
// the same occurredAt instant.
func RecordsFromChanges(entityType EntityType, entityID, actorID int64, changes []FieldChange, at time.Time) []*ChangeRecord {
	records := make([]*ChangeRecord, 0, len(changes))
	for _, c := range changes {
		field := c.Field
		records = append(records, &ChangeRecord{
			EntityType:    entityType,
			EntityID:      entityID,
			Action:        c.Action,
			FieldChanged:  &field,
			PreviousValue: c.Previous,
			NewValue:      c.New,
			ActorID:       actorID,
			OccurredAt:    at,
		})
	}
	return records
}

func int64PtrValue(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// ChangeRecordFilter narrows a filtered history query. Nil fields match
// everything. Page is 1-based; PageSize is clamped by the audit service.
type ChangeRecordFilter struct {
	EntityType *EntityType
	EntityID   *int64
	ActorID    *int64
	Action     *ChangeAction
	From       *CalendarDate
	To         *CalendarDate
	Page       int
	PageSize   int
}

// ActorActivity is one row of the top-actors statistic.
type ActorActivity struct {
	ActorID int64
	Records int64
}

// ChangeStatistics aggregates record counts over a closed date range.
type ChangeStatistics struct {
	From         CalendarDate
	To           CalendarDate
	Total        int64
	ByEntityType map[EntityType]int64
	ByAction     map[ChangeAction]int64
	TopActors    []ActorActivity
}

// ChangeRecordRepository is the append-only store of audit rows. There is
// deliberately no update or delete.
type ChangeRecordRepository interface {
	Insert(ctx context.Context, records ...*ChangeRecord) error
	ListByEntity(ctx context.Context, entityType EntityType, entityID int64) ([]*ChangeRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*ChangeRecord, error)
	ListFiltered(ctx context.Context, filter ChangeRecordFilter) ([]*ChangeRecord, int64, error)
	Statistics(ctx context.Context, from, to CalendarDate) (*ChangeStatistics, error)
}
