// Package observability provides OpenTelemetry tracing and metrics for
// linetally runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("linetally"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	cfg := observability.DefaultMeterConfig("linetally")
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("linetally"))
//	metrics.RecordLine(ctx, "batch", true)
//
// A nil *Metrics records nothing, so callers never need to guard.
package observability
