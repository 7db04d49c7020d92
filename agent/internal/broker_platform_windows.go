//go:build windows
// +build windows

package internal

import (
	"context"
)

// newPlatformBroker elige el broker según la plataforma.
//
// En Windows, con agent/pipe_name configurado, conecta al terminal real
// por Named Pipe; sin pipe configurado cae al simulador.
func newPlatformBroker(ctx context.Context, cfg *Config) (Broker, error) {
	if cfg.PipeName != "" {
		return NewPipeBroker(ctx, cfg.PipeName)
	}
	return NewSimBroker(0), nil
}
