package internal

import (
	"context"
	"fmt"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
)

// initTelemetry inicializa el cliente de telemetría del Agent.
//
// Sin OTLP endpoint configurado, los logs van a stdout y métricas y
// trazas quedan deshabilitadas: un agent junto al terminal no siempre
// tiene un collector a mano.
func initTelemetry(ctx context.Context, config *Config) (*telemetry.Client, error) {
	opts := []telemetry.Option{
		telemetry.WithVersion(config.ServiceVersion),
	}

	if config.OTLPEndpoint != "" {
		opts = append(opts, telemetry.WithOTLPEndpoint(config.OTLPEndpoint))
		if config.MetricsEndpoint != "" {
			opts = append(opts, telemetry.WithMetricsEndpoint(config.MetricsEndpoint))
		}
	} else {
		opts = append(opts,
			telemetry.WithMetricsDisabled(),
			telemetry.WithTracesDisabled(),
		)
	}

	client, err := telemetry.New(ctx, config.ServiceName, config.Environment, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}

	return client, nil
}
