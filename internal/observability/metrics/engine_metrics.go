package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/servicedesk/internal/authorization"
	requestdomain "github.com/smallbiznis/servicedesk/internal/request/domain"
	"gorm.io/gorm"
)

const (
	EngineOutcomeCommitted = "committed"
	EngineOutcomeRejected  = "rejected"
	EngineOutcomeFailed    = "failed"
	EngineOutcomeNoop      = "noop"
)

const (
	EngineReasonDeadlineExceeded     = "deadline_exceeded"
	EngineReasonForbidden            = "forbidden"
	EngineReasonNotFound             = "not_found"
	EngineReasonInvalidState         = "invalid_state"
	EngineReasonInvalidInput         = "invalid_input"
	EngineReasonInsufficientCredits  = "insufficient_credits"
	EngineReasonDBLockTimeout        = "db_lock_timeout"
	EngineReasonSerializationFailure = "serialization_failure"
	EngineReasonUniqueViolation      = "unique_violation"
	EngineReasonUnknown              = "unknown"
)

// EngineMetrics exposes request lifecycle outcomes on /metrics.
type EngineMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	lockWait   *prometheus.HistogramVec
}

func NewEngineMetrics(cfg Config) *EngineMetrics {
	return NewEngineMetricsWithRegisterer(prometheus.DefaultRegisterer, cfg)
}

func NewEngineMetricsWithRegisterer(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	constLabels := constLabelsFor(cfg)

	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "servicedesk_request_operations_total",
		Help:        "Request lifecycle operations by outcome.",
		ConstLabels: constLabels,
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "servicedesk_request_operation_duration_seconds",
		Help:        "Request lifecycle unit-of-work latency, commit included.",
		Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		ConstLabels: constLabels,
	}, []string{"operation"})
	errorsVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "servicedesk_request_operation_errors_total",
		Help:        "Request lifecycle errors by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"operation", "reason"})
	lockWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "servicedesk_db_lock_wait_seconds",
		Help:        "Time spent acquiring SELECT FOR UPDATE row locks.",
		Buckets:     []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		ConstLabels: constLabels,
	}, []string{"resource"})

	return &EngineMetrics{
		operations: registerCollector(registerer, operations),
		duration:   registerCollector(registerer, duration),
		errors:     registerCollector(registerer, errorsVec),
		lockWait:   registerCollector(registerer, lockWait),
	}
}

// ObserveOperation records one finished engine call. A nil err counts as
// committed unless outcome overrides it.
func (m *EngineMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if outcome == "" {
		outcome = EngineOutcomeFor(err)
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if err != nil {
		m.errors.WithLabelValues(operation, ClassifyEngineReason(err)).Inc()
	}
}

func (m *EngineMetrics) ObserveLockWait(resource string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(strings.TrimSpace(resource)).Observe(elapsed.Seconds())
}

// EngineOutcomeFor separates business-rule rejections from infrastructure
// failures.
func EngineOutcomeFor(err error) string {
	if err == nil {
		return EngineOutcomeCommitted
	}
	switch ClassifyEngineReason(err) {
	case EngineReasonForbidden, EngineReasonNotFound, EngineReasonInvalidState,
		EngineReasonInvalidInput, EngineReasonInsufficientCredits:
		return EngineOutcomeRejected
	default:
		return EngineOutcomeFailed
	}
}

// ClassifyEngineReason maps engine errors to low-cardinality reasons.
func ClassifyEngineReason(err error) string {
	if err == nil {
		return EngineReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return EngineReasonDeadlineExceeded
	}
	if isAuthorizationError(err) {
		return EngineReasonForbidden
	}
	if isDBLockTimeout(err) {
		return EngineReasonDBLockTimeout
	}
	if isSerializationFailure(err) {
		return EngineReasonSerializationFailure
	}
	if isUniqueViolation(err) {
		return EngineReasonUniqueViolation
	}
	switch requestdomain.KindOf(err) {
	case requestdomain.KindNotFound:
		return EngineReasonNotFound
	case requestdomain.KindForbidden:
		return EngineReasonForbidden
	case requestdomain.KindInvalidState:
		return EngineReasonInvalidState
	case requestdomain.KindInvalidInput:
		return EngineReasonInvalidInput
	case requestdomain.KindInsufficientCredits:
		return EngineReasonInsufficientCredits
	}
	return EngineReasonUnknown
}

func isDBLockTimeout(err error) bool {
	return hasPGCode(err, "55P03")
}

func isSerializationFailure(err error) bool {
	return hasPGCode(err, "40001") || hasPGCode(err, "40P01")
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return hasPGCode(err, "23505")
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

func isAuthorizationError(err error) bool {
	return errors.Is(err, authorization.ErrForbidden) ||
		errors.Is(err, authorization.ErrInvalidActor) ||
		errors.Is(err, authorization.ErrInvalidObject) ||
		errors.Is(err, authorization.ErrInvalidAction)
}
