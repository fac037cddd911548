// Package observability wires OpenTelemetry tracing and metrics for the
// API. When disabled, the global no-op providers remain installed and the
// instruments created here record nothing.
//
//	comp := observability.NewComponent(cfg, observability.ServiceInfo{Name: "asthma-api"}, log)
//	registry.Register(comp)
//
//	metrics, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
//	metrics.RecordRequestEnd(ctx, "POST", "/api/auth/login", 200, elapsed)
package observability
