//go:build !windows

package ipc

import (
	"fmt"
)

// Los Named Pipes del terminal solo existen en Windows. En otras
// plataformas los constructores retornan error y el agent usa el broker
// simulado.

// NewWindowsPipeServer crea un servidor de Named Pipe (solo Windows).
func NewWindowsPipeServer(name string) (PipeServer, error) {
	return nil, fmt.Errorf("named pipes are only supported on windows (pipe %q)", name)
}

// NewWindowsPipeServerWithConfig crea un servidor con configuración custom (solo Windows).
func NewWindowsPipeServerWithConfig(config *PipeConfig) (PipeServer, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return nil, fmt.Errorf("named pipes are only supported on windows (pipe %q)", config.Name)
}

// NewWindowsPipeClient crea un cliente de Named Pipe (solo Windows).
func NewWindowsPipeClient(name string) (Pipe, error) {
	return nil, fmt.Errorf("named pipes are only supported on windows (pipe %q)", name)
}

// NewWindowsPipeClientWithConfig crea un cliente con configuración custom (solo Windows).
func NewWindowsPipeClientWithConfig(config *PipeConfig) (Pipe, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return nil, fmt.Errorf("named pipes are only supported on windows (pipe %q)", config.Name)
}
