package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Nishanttwho/Tradingview-to-bridge/agent/internal"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := internal.LoadConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error cargando configuración: %v\n", err)
		os.Exit(1)
	}

	agent, err := internal.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error inicializando agent: %v\n", err)
		os.Exit(1)
	}

	// Run bloquea; las señales disparan el shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := agent.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error en el loop del agent: %v\n", err)
	}

	if err := agent.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "error cerrando agent: %v\n", err)
		os.Exit(1)
	}
}
