package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/linerds/timetable-go/internal/telemetry"
	"github.com/linerds/timetable-go/syncer"
	"github.com/linerds/timetable-go/timetable/oteladapters"
	"github.com/linerds/timetable-go/timetable/sqlengine"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func (a *app) initTelemetry(ctx context.Context) error {
	if !a.cfg.Telemetry.Enabled {
		return nil
	}

	providers, err := telemetry.New(ctx, a.cfg.Telemetry, version)
	if err != nil {
		return err
	}

	a.setTelemetry(providers)

	return nil
}

// setTelemetry builds the adapters every store and syncer of this run reports through.
func (a *app) setTelemetry(providers *telemetry.Providers) {
	a.telemetry = providers
	a.metrics = oteladapters.NewMetricsCollector(providers.Meter())
	a.tracing = oteladapters.NewTracingCollector(providers.Tracer())
	a.contextualLogger = oteladapters.NewSlogBridgeLoggerWithProvider(telemetry.InstrumentationName, providers.LoggerProvider)
}

// shutdownTelemetry flushes whatever the run recorded, bounded by telemetry.shutdown_timeout.
func (a *app) shutdownTelemetry() error {
	if a.telemetry == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Telemetry.ShutdownTimeout)
	defer cancel()

	err := a.telemetry.Shutdown(ctx)
	a.telemetry = nil

	return err
}

// flushTelemetryAfter wraps the RunE of cmd so providers are shut down whether the command fails or not.
func (a *app) flushTelemetryAfter(cmd *cobra.Command) {
	run := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return errors.Join(run(cmd, args), a.shutdownTelemetry())
	}
}

func (a *app) storeTelemetryOptions() []sqlengine.Option {
	if a.telemetry == nil {
		return []sqlengine.Option{sqlengine.WithContextualLogger(a.logger)}
	}

	return []sqlengine.Option{
		sqlengine.WithContextualLogger(a.contextualLogger),
		sqlengine.WithMetrics(a.metrics),
		sqlengine.WithTracing(a.tracing),
	}
}

func (a *app) syncerTelemetryOptions() []syncer.Option {
	if a.telemetry == nil {
		return nil
	}

	return []syncer.Option{syncer.WithMetrics(a.metrics)}
}
