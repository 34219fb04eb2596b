// Package telemetry wires AuroraView's OpenTelemetry metrics: IPC
// dispatch latency, supervisor spawn/kill counts, packer stage
// durations, and registry liveness sweeps, exported for Prometheus
// scraping.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics bundles every instrument AuroraView's subsystems record to.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	meter    metric.Meter

	IPCDispatchDuration   metric.Float64Histogram
	SupervisorSpawnCount  metric.Int64Counter
	SupervisorKillCount   metric.Int64Counter
	PackerStageDuration   metric.Float64Histogram
	RegistrySweepCount    metric.Int64Counter
	RegistryStaleDropped  metric.Int64Counter
}

// New builds a Metrics bundle backed by a Prometheus exporter. Callers
// expose the exporter's default registry through an HTTP handler
// (e.g. promhttp.Handler()) on whatever port they choose.
func New() (*Metrics, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter("auroraview")

	m := &Metrics{provider: provider, meter: meter}

	if m.IPCDispatchDuration, err = meter.Float64Histogram("auroraview.ipc.dispatch_duration",
		metric.WithDescription("Duration of a single Plane A request dispatch"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.SupervisorSpawnCount, err = meter.Int64Counter("auroraview.supervisor.spawns",
		metric.WithDescription("Number of child processes spawned by the Process Supervisor Plugin")); err != nil {
		return nil, err
	}
	if m.SupervisorKillCount, err = meter.Int64Counter("auroraview.supervisor.kills",
		metric.WithDescription("Number of child processes killed by the Process Supervisor Plugin")); err != nil {
		return nil, err
	}
	if m.PackerStageDuration, err = meter.Float64Histogram("auroraview.packer.stage_duration",
		metric.WithDescription("Duration of one Packer Pipeline stage"), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.RegistrySweepCount, err = meter.Int64Counter("auroraview.registry.sweeps",
		metric.WithDescription("Number of Instance Registry get_all sweeps performed")); err != nil {
		return nil, err
	}
	if m.RegistryStaleDropped, err = meter.Int64Counter("auroraview.registry.stale_dropped",
		metric.WithDescription("Number of stale or unparsable registry records dropped during a sweep")); err != nil {
		return nil, err
	}

	return m, nil
}

// Shutdown flushes and stops the underlying MeterProvider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

// ObserveDispatch satisfies ipc.DispatchMetrics.
func (m *Metrics) ObserveDispatch(plugin, command string, ok bool, seconds float64) {
	m.IPCDispatchDuration.Record(context.Background(), seconds, metric.WithAttributes(
		attribute.String("plugin", plugin),
		attribute.String("command", command),
		attribute.Bool("ok", ok),
	))
}

// IncSpawn satisfies supervisor.Metrics.
func (m *Metrics) IncSpawn() { m.SupervisorSpawnCount.Add(context.Background(), 1) }

// IncKill satisfies supervisor.Metrics.
func (m *Metrics) IncKill() { m.SupervisorKillCount.Add(context.Background(), 1) }

// ObserveStage satisfies packer.StageMetrics.
func (m *Metrics) ObserveStage(stage string, seconds float64) {
	m.PackerStageDuration.Record(context.Background(), seconds, metric.WithAttributes(attribute.String("stage", stage)))
}

// IncSweep satisfies registry.Metrics.
func (m *Metrics) IncSweep() { m.RegistrySweepCount.Add(context.Background(), 1) }

// AddStaleDropped satisfies registry.Metrics.
func (m *Metrics) AddStaleDropped(n int) {
	if n > 0 {
		m.RegistryStaleDropped.Add(context.Background(), int64(n))
	}
}
