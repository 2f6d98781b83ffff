package domain

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusQueued      Status = "queued"
	StatusInProgress  Status = "in_progress"
	StatusForReview   Status = "for_review"
	StatusForApproval Status = "for_approval"
	StatusRevision    Status = "revision"
	StatusNeedsInfo   Status = "needs_info"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// StatusPending is a filter-only value that expands to the statuses
// waiting on someone other than the assignee.
const StatusPending = "pending"

var allStatuses = []Status{
	StatusQueued,
	StatusInProgress,
	StatusForReview,
	StatusForApproval,
	StatusRevision,
	StatusNeedsInfo,
	StatusCompleted,
	StatusCancelled,
}

func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range allStatuses {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidState, raw)
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// DefaultPendingStatuses is what "pending" expands to unless configured
// otherwise.
func DefaultPendingStatuses() []Status {
	return []Status{StatusRevision, StatusNeedsInfo, StatusForReview, StatusForApproval}
}

// DefaultActiveStatuses are the statuses counted against a plan quota.
func DefaultActiveStatuses() []Status {
	return []Status{StatusQueued, StatusInProgress, StatusForReview, StatusForApproval, StatusRevision, StatusNeedsInfo}
}

// CanTransition reports whether from may move to to. Staying put is
// always allowed. Non-terminal statuses may move anywhere; terminal ones
// are closed.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	return !from.Terminal()
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case PriorityHigh, PriorityMedium, PriorityLow, PriorityNone:
		return p, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, raw)
	}
}

func (p Priority) Valid() bool {
	_, err := ParsePriority(string(p))
	return err == nil
}
