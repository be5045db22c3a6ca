package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	fieldAssignee = "asignadoA"
	fieldSprint   = "sprintId"
	fieldEpic     = "epicaId"
)

// excludedFields are bookkeeping columns that never produce audit records,
// whatever their values.
var excludedFields = map[string]struct{}{
	"createdAt": {},
	"updatedAt": {},
	"createdBy": {},
	"updatedBy": {},
}

// FieldChange is one semantically meaningful difference between two
// snapshots of the same entity, already classified and serialized.
type FieldChange struct {
	Field    string
	Action   ChangeAction
	Previous *string
	New      *string
}

// Diff compares a before and an after field map of the same entity and
// returns one FieldChange per changed, non-excluded field, in field-name
// order. A nil before map means every after field is new; a nil after map
// means every before field was cleared. Values are compared by their
// canonical serialized form, so composites (maps, slices) count as equal
// only when byte-identical after encoding.
func Diff(before, after map[string]any) []FieldChange {
	fields := make([]string, 0, len(after))
	if after == nil {
		for field := range before {
			fields = append(fields, field)
		}
	} else {
		for field := range after {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	var changes []FieldChange
	for _, field := range fields {
		if _, excluded := excludedFields[field]; excluded {
			continue
		}

		prev := EncodeValue(before[field])
		next := EncodeValue(after[field])
		if encodedEqual(prev, next) {
			continue
		}

		changes = append(changes, FieldChange{
			Field:    field,
			Action:   classifyField(field, prev),
			Previous: prev,
			New:      next,
		})
	}

	return changes
}

// classifyField maps a changed field to its semantic action. Priority:
// state change, then assignment, then container move, then plain update.
func classifyField(field string, previous *string) ChangeAction {
	switch field {
	case fieldState:
		return ActionStateChanged
	case fieldAssignee:
		if previous == nil {
			return ActionAssigned
		}
		return ActionReassigned
	case fieldSprint, fieldEpic:
		return ActionMoved
	default:
		return ActionUpdated
	}
}

// EncodeValue serializes an arbitrary field value to its stored text form.
// nil stays nil, strings are stored as-is, everything else (numbers, bools,
// slices, maps) is JSON-encoded. encoding/json sorts map keys, which makes
// the encoding canonical and usable as an equality check for composites.
func EncodeValue(v any) *string {
	switch typed := v.(type) {
	case nil:
		return nil
	case string:
		return &typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			fallback := fmt.Sprintf("%v", typed)
			return &fallback
		}
		s := string(encoded)
		return &s
	}
}

func encodedEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
