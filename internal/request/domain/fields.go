package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	FieldTitle           = "title"
	FieldDetails         = "details"
	FieldPriority        = "priority"
	FieldDueDate         = "dueDate"
	FieldInternalDueDate = "internalDueDate"
	FieldStatus          = "status"
	FieldAssignees       = "assignees"
	FieldService         = "serviceId"
	FieldCredits         = "credits"
	FieldCompletedAt     = "completedAt"
	FieldArchivedAt      = "archivedAt"
	FieldParentRequest   = "parentRequestId"
)

// FieldValues holds tracked values keyed by field key. A missing key means
// the field was not part of the input.
type FieldValues map[string]any

type EqualFunc func(before, after any) bool

// FieldDescriptor declares a tracked field. Adding a field to the audit
// trail only takes a new descriptor.
type FieldDescriptor struct {
	Key   string
	Label string
	Equal EqualFunc
}

// TrackedFields is the user-facing whitelist, in display order.
var TrackedFields = []FieldDescriptor{
	{Key: FieldTitle, Label: "Title", Equal: EqualText},
	{Key: FieldDetails, Label: "Details", Equal: EqualText},
	{Key: FieldPriority, Label: "Priority", Equal: EqualText},
	{Key: FieldDueDate, Label: "Due Date", Equal: EqualInstant},
	{Key: FieldStatus, Label: "Status", Equal: EqualText},
	{Key: FieldAssignees, Label: "Assignees", Equal: EqualIDSet},
}

// Change is the outcome of a diff: ordered labels plus the new values of
// the changed fields.
type Change struct {
	Labels   []string
	Keys     []string
	Snapshot map[string]any
}

func (c Change) Empty() bool {
	return len(c.Labels) == 0
}

func (c Change) Has(key string) bool {
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Diff compares before against the fields present in after.
func Diff(fields []FieldDescriptor, before, after FieldValues) Change {
	change := Change{Snapshot: map[string]any{}}
	for _, field := range fields {
		next, ok := after[field.Key]
		if !ok {
			continue
		}
		if field.Equal(before[field.Key], next) {
			continue
		}
		change.Labels = append(change.Labels, field.Label)
		change.Keys = append(change.Keys, field.Key)
		change.Snapshot[field.Key] = SnapshotValue(next)
	}
	return change
}

func EqualText(before, after any) bool {
	return textOf(before) == textOf(after)
}

// EqualInstant compares dates by instant so the same moment in two zones
// is not a change.
func EqualInstant(before, after any) bool {
	a, aok := timeOf(before)
	b, bok := timeOf(after)
	if !aok || !bok {
		return aok == bok
	}
	return a.Equal(b)
}

// EqualIDSet ignores order and duplicates.
func EqualIDSet(before, after any) bool {
	a := idSet(before)
	b := idSet(after)
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// SnapshotValue converts a field value into its JSON form.
func SnapshotValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if val == nil {
			return nil
		}
		return val.UTC().Format(time.RFC3339Nano)
	case snowflake.ID:
		return val.String()
	case *snowflake.ID:
		if val == nil {
			return nil
		}
		return val.String()
	case []snowflake.ID:
		ids := make([]string, 0, len(val))
		for _, id := range val {
			ids = append(ids, id.String())
		}
		sort.Strings(ids)
		return ids
	case Status:
		return string(val)
	case Priority:
		return string(val)
	case *string:
		if val == nil {
			return nil
		}
		return *val
	default:
		return val
	}
}

func textOf(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case *string:
		if val == nil {
			return ""
		}
		return strings.TrimSpace(*val)
	case Status:
		return string(val)
	case *Status:
		if val == nil {
			return ""
		}
		return string(*val)
	case Priority:
		return string(val)
	case *Priority:
		if val == nil {
			return ""
		}
		return string(*val)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func timeOf(v any) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, !val.IsZero()
	case *time.Time:
		if val == nil || val.IsZero() {
			return time.Time{}, false
		}
		return *val, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, val)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}

func idSet(v any) map[snowflake.ID]struct{} {
	set := map[snowflake.ID]struct{}{}
	if ids, ok := v.([]snowflake.ID); ok {
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	return set
}

// TrackedValues returns the whitelist values of r. assignees is included
// only when non-nil.
func (r *Request) TrackedValues(assignees []snowflake.ID) FieldValues {
	values := FieldValues{
		FieldTitle:    r.Title,
		FieldDetails:  r.Details,
		FieldPriority: r.Priority,
		FieldDueDate:  r.DueDate,
		FieldStatus:   r.Status,
	}
	if assignees != nil {
		values[FieldAssignees] = assignees
	}
	return values
}

// CreationChange is the audit payload of a new request: every tracked
// field that has a value plus the booking fields.
func (r *Request) CreationChange(assignees []snowflake.ID) Change {
	change := Diff(TrackedFields, FieldValues{}, r.TrackedValues(assignees))
	change.Snapshot[FieldInternalDueDate] = SnapshotValue(r.InternalDueDate)
	change.Snapshot[FieldService] = SnapshotValue(r.ServiceID)
	change.Snapshot[FieldCredits] = r.Credits
	if r.ParentRequestID != nil {
		change.Snapshot[FieldParentRequest] = SnapshotValue(r.ParentRequestID)
	}
	return change
}

// TerminalSnapshot captures the values a request was archived with.
func (r *Request) TerminalSnapshot() map[string]any {
	return map[string]any{
		FieldTitle:       r.Title,
		FieldStatus:      string(r.Status),
		FieldPriority:    string(r.Priority),
		FieldDueDate:     SnapshotValue(r.DueDate),
		FieldCredits:     r.Credits,
		FieldCompletedAt: SnapshotValue(r.CompletedAt),
		FieldArchivedAt:  SnapshotValue(r.ArchivedAt),
	}
}
