package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Nishanttwho/Tradingview-to-bridge/core/internal"
)

func main() {
	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		runServe(args)
	case "status":
		runStatus(args)
	default:
		fmt.Fprintf(os.Stderr, "comando desconocido: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	usage := `bridge-core - core del bridge de señales

Uso:
  bridge-core serve
  bridge-core status [--addr http://localhost:8077] [--json]

Comandos:
  serve    Arranca el core: webhook, canal de agent y sweep de timeouts.
  status   Consulta el estado operacional de un core en ejecución.
`
	fmt.Fprintln(os.Stderr, usage)
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := internal.LoadConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error cargando configuración: %v\n", err)
		os.Exit(1)
	}

	core, err := internal.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error inicializando core: %v\n", err)
		os.Exit(1)
	}

	if err := core.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error arrancando core: %v\n", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := core.Shutdown(); err != nil {
		fmt.Fprintf(os.Stderr, "error cerrando core: %v\n", err)
		os.Exit(1)
	}
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8077", "Dirección base del core")
	jsonOutput := fs.Bool("json", false, "Imprimir la respuesta JSON cruda")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(*addr + "/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error consultando status: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error leyendo respuesta: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		fmt.Println(string(body))
		return
	}

	var status struct {
		AgentConnected bool `json:"agent_connected"`
		PendingCount   int  `json:"pending_count"`
		RecentFailed   []struct {
			CommandID    string `json:"command_id"`
			Action       string `json:"action"`
			Symbol       string `json:"symbol"`
			ErrorMessage string `json:"error_message"`
		} `json:"recent_failed"`
	}
	if err := json.Unmarshal(body, &status); err != nil {
		fmt.Fprintf(os.Stderr, "respuesta inesperada: %s\n", string(body))
		os.Exit(1)
	}

	fmt.Printf("Agent conectado: %v\n", status.AgentConnected)
	fmt.Printf("Comandos pending: %d\n", status.PendingCount)
	if len(status.RecentFailed) > 0 {
		fmt.Println("Fallos recientes:")
		for _, cmd := range status.RecentFailed {
			fmt.Printf("  - %s %s %s: %s\n", cmd.CommandID, cmd.Action, cmd.Symbol, cmd.ErrorMessage)
		}
	}
}
