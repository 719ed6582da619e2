package bootstrap

import (
	"context"
	"fmt"

	"github.com/kbukum/linetally/logger"
	"github.com/kbukum/linetally/observability"
)

// startTelemetry installs the OTLP tracer and meter providers and creates
// the line metrics. Their shutdown is registered as stop hooks so buffered
// spans and points are flushed when the task ends.
func (a *App) startTelemetry(ctx context.Context) error {
	tc := a.Cfg.Telemetry
	env := a.Cfg.Environment
	version := a.Version
	if version == "" {
		version = "dev"
	}

	tp, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    a.Name,
		ServiceVersion: version,
		Environment:    env,
		Endpoint:       tc.Endpoint,
		Insecure:       tc.Insecure,
		SampleRate:     tc.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	a.OnStop(tp.Shutdown)

	mp, err := observability.InitMeter(ctx, &observability.MeterConfig{
		ServiceName:    a.Name,
		ServiceVersion: version,
		Environment:    env,
		Endpoint:       tc.Endpoint,
		Insecure:       tc.Insecure,
		Interval:       tc.Interval,
	})
	if err != nil {
		return fmt.Errorf("meter: %w", err)
	}
	a.OnStop(mp.Shutdown)

	metrics, err := observability.NewMetrics(observability.Meter(a.Name))
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	a.Metrics = metrics

	logger.Get(logger.ComponentObservability).Info("telemetry enabled", logger.Fields("endpoint", tc.Endpoint))
	return nil
}
