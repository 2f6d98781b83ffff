package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	requestMutations metric.Int64Counter
	creditMovements  metric.Int64Counter
	creditAmount     metric.Int64Counter
	notifications    metric.Int64Counter
	versions         metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "servicedesk"
	}
	meter := provider.Meter(name)

	requestMutations, err := meter.Int64Counter("servicedesk_request_mutations_total")
	if err != nil {
		return nil, err
	}
	creditMovements, err := meter.Int64Counter("servicedesk_credit_movements_total")
	if err != nil {
		return nil, err
	}
	creditAmount, err := meter.Int64Counter("servicedesk_credit_amount_total")
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("servicedesk_notifications_total")
	if err != nil {
		return nil, err
	}
	versions, err := meter.Int64Counter("servicedesk_request_versions_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestMutations: requestMutations,
		creditMovements:  creditMovements,
		creditAmount:     creditAmount,
		notifications:    notifications,
		versions:         versions,
	}, nil
}

// RecordRequestMutation counts committed or rejected engine operations.
func (m *Metrics) RecordRequestMutation(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.requestMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCreditMovement counts ledger postings and the credits they moved.
func (m *Metrics) RecordCreditMovement(ctx context.Context, direction string, amount int64) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("direction", strings.TrimSpace(direction)))
	m.creditMovements.Add(ctx, 1, metric.WithAttributes(attrs...))
	if amount > 0 {
		m.creditAmount.Add(ctx, amount, metric.WithAttributes(attrs...))
	}
}

// RecordNotification counts notification rows by category.
func (m *Metrics) RecordNotification(ctx context.Context, category string, recipients int) {
	if m == nil || recipients <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("category", strings.TrimSpace(category)))
	m.notifications.Add(ctx, int64(recipients), metric.WithAttributes(attrs...))
}

// RecordVersion counts version entries by action.
func (m *Metrics) RecordVersion(ctx context.Context, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("action", strings.TrimSpace(action)))
	m.versions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":   {},
	"outcome":     {},
	"direction":   {},
	"category":    {},
	"action":      {},
	"reason":      {},
	"status_code": {},
	"route":       {},
	"method":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
