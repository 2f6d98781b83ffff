package domain

import (
	"errors"
	"fmt"

	ledgerdomain "github.com/smallbiznis/servicedesk/internal/ledger/domain"
)

var (
	ErrNotFound     = errors.New("not_found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid_state")
	ErrInvalidInput = errors.New("invalid_input")
	// ErrInsufficientCredits is the ledger sentinel so both packages'
	// errors.Is checks agree.
	ErrInsufficientCredits = ledgerdomain.ErrInsufficientCredits
)

// Kind is the caller-facing class of an engine error.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindInvalidState        Kind = "invalid_state"
	KindInvalidInput        Kind = "invalid_input"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindInternal            Kind = "internal"
)

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientCredits):
		return KindInsufficientCredits
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// NotFound wraps ErrNotFound with the missing resource.
func NotFound(resource string, id fmt.Stringer) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
}

func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrForbidden, fmt.Sprintf(format, args...))
}
