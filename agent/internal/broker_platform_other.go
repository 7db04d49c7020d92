//go:build !windows
// +build !windows

package internal

import (
	"context"
)

// newPlatformBroker elige el broker según la plataforma.
//
// Fuera de Windows no hay Named Pipes del terminal; siempre simulador.
func newPlatformBroker(ctx context.Context, cfg *Config) (Broker, error) {
	return NewSimBroker(0), nil
}
