package domain

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
)

func TestDiffKeepsDisplayOrderAndOnlyPresentFields(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := FieldValues{
		FieldTitle:    "Logo",
		FieldDetails:  "Vector logo",
		FieldPriority: PriorityMedium,
		FieldDueDate:  &due,
		FieldStatus:   StatusQueued,
	}
	after := FieldValues{
		FieldStatus:   StatusInProgress,
		FieldTitle:    "Logo refresh",
		FieldPriority: PriorityMedium,
	}

	change := Diff(TrackedFields, before, after)

	assert.Equal(t, []string{"Title", "Status"}, change.Labels)
	assert.Equal(t, []string{FieldTitle, FieldStatus}, change.Keys)
	assert.Equal(t, map[string]any{FieldTitle: "Logo refresh", FieldStatus: "in_progress"}, change.Snapshot)
	assert.True(t, change.Has(FieldStatus))
	assert.False(t, change.Has(FieldDetails))
}

func TestDiffOfIdenticalValuesIsEmpty(t *testing.T) {
	values := FieldValues{FieldTitle: "Logo", FieldAssignees: []snowflake.ID{2, 1}}

	change := Diff(TrackedFields, values, FieldValues{FieldTitle: " Logo ", FieldAssignees: []snowflake.ID{1, 2, 2}})

	assert.True(t, change.Empty())
	assert.Empty(t, change.Snapshot)
}

func TestEqualInstant(t *testing.T) {
	utc := time.Date(2026, 4, 10, 3, 0, 0, 0, time.UTC)
	local := utc.In(time.FixedZone("PHT", 8*60*60))
	later := utc.Add(time.Second)

	tests := []struct {
		name   string
		before any
		after  any
		equal  bool
	}{
		{name: "same instant other zone", before: &utc, after: &local, equal: true},
		{name: "value and pointer", before: utc, after: &local, equal: true},
		{name: "rfc3339 string", before: "2026-04-10T03:00:00Z", after: local, equal: true},
		{name: "different instant", before: &utc, after: &later},
		{name: "both unset", before: (*time.Time)(nil), after: nil, equal: true},
		{name: "cleared", before: &utc, after: (*time.Time)(nil)},
		{name: "set", before: nil, after: utc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, EqualInstant(tt.before, tt.after))
		})
	}
}

func TestEqualIDSetIgnoresOrderAndDuplicates(t *testing.T) {
	assert.True(t, EqualIDSet([]snowflake.ID{3, 1}, []snowflake.ID{1, 3, 3}))
	assert.True(t, EqualIDSet(nil, []snowflake.ID{}))
	assert.False(t, EqualIDSet([]snowflake.ID{1}, []snowflake.ID{1, 2}))
	assert.False(t, EqualIDSet([]snowflake.ID{1, 4}, []snowflake.ID{1, 2}))
}

func TestEqualTextTrimsAndHandlesPointers(t *testing.T) {
	title := "  Brief "
	assert.True(t, EqualText("Brief", &title))
	assert.True(t, EqualText(StatusQueued, "queued"))
	assert.True(t, EqualText(nil, ""))
	assert.False(t, EqualText(PriorityHigh, PriorityLow))
}

func TestSnapshotValueNormalizesTypes(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	id := snowflake.ID(77)

	assert.Equal(t, "2026-01-02T02:04:05Z", SnapshotValue(&at))
	assert.Equal(t, "77", SnapshotValue(&id))
	assert.Equal(t, []string{"1", "2"}, SnapshotValue([]snowflake.ID{2, 1}))
	assert.Equal(t, "high", SnapshotValue(PriorityHigh))
	assert.Nil(t, SnapshotValue((*time.Time)(nil)))
}

func TestCreationChangeIncludesBookingFields(t *testing.T) {
	parent := snowflake.ID(9)
	r := &Request{
		Title:           "Banner",
		Priority:        PriorityLow,
		Status:          StatusQueued,
		ServiceID:       5,
		Credits:         2,
		ParentRequestID: &parent,
	}

	change := r.CreationChange([]snowflake.ID{8})

	assert.Equal(t, []string{"Title", "Priority", "Status", "Assignees"}, change.Labels)
	assert.Equal(t, "5", change.Snapshot[FieldService])
	assert.Equal(t, int64(2), change.Snapshot[FieldCredits])
	assert.Equal(t, "9", change.Snapshot[FieldParentRequest])
	assert.Nil(t, change.Snapshot[FieldInternalDueDate])
}
