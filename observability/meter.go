package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/linetally/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name reported in the service.name resource attribute.
	ServiceName string
	// ServiceVersion is the build version.
	ServiceVersion string
	// Environment is the deployment environment (development, production).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure disables TLS for the exporter.
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults suited to a local collector.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "dev",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP HTTP.
// The returned provider must be shut down on exit to flush pending points.
func InitMeter(ctx context.Context, cfg *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Debug("meter initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"interval", cfg.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the source and the driver.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	linesRead     metric.Int64Counter
	linesCounted  metric.Int64Counter
	linesRejected metric.Int64Counter
	reopenTotal   metric.Int64Counter
	runDuration   metric.Float64Histogram
	errorTotal    metric.Int64Counter
}

// NewMetrics creates the instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	linesRead, err := meter.Int64Counter("lines.read",
		metric.WithDescription("Complete lines handed out by the source"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lines.read counter: %w", err)
	}

	linesCounted, err := meter.Int64Counter("lines.counted",
		metric.WithDescription("Lines accepted by the filter and added to the table"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lines.counted counter: %w", err)
	}

	linesRejected, err := meter.Int64Counter("lines.rejected",
		metric.WithDescription("Lines dropped by the filter"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lines.rejected counter: %w", err)
	}

	reopenTotal, err := meter.Int64Counter("source.reopen.total",
		metric.WithDescription("Release and reopen cycles of a tailed file"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating source.reopen.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("run.duration",
		metric.WithDescription("Duration of batch and stream runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		linesRead:     linesRead,
		linesCounted:  linesCounted,
		linesRejected: linesRejected,
		reopenTotal:   reopenTotal,
		runDuration:   runDuration,
		errorTotal:    errorTotal,
	}, nil
}

// RecordLineRead counts one line handed out by the source at path.
func (m *Metrics) RecordLineRead(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.linesRead.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrPath, path)))
}

// RecordLine counts one processed line as counted or rejected.
func (m *Metrics) RecordLine(ctx context.Context, mode string, counted bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrMode, mode))
	if counted {
		m.linesCounted.Add(ctx, 1, attrs)
		return
	}
	m.linesRejected.Add(ctx, 1, attrs)
}

// RecordReopen counts one release and reopen cycle.
func (m *Metrics) RecordReopen(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.reopenTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrPath, path)))
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(ctx context.Context, mode, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String(AttrStatus, status),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
