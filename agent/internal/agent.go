// Package internal contiene la lógica interna del Agent.
//
// El Agent corre junto al terminal del broker: mantiene la conexión
// WebSocket con el core, ejecuta los comandos que llegan por ella y
// gestiona el plan de salida por etapas de cada posición abierta.
package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/metricbundle"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"
)

// Agent representa el servicio de Agent.
//
// Responsabilidades:
//   - Cliente WebSocket al core (recibe comandos, envía reportes y
//     heartbeats, reconecta con backoff)
//   - Ejecución de comandos contra el broker, con idempotencia durable
//   - Gestión de salidas por etapas (cierre parcial + break-even)
type Agent struct {
	config *Config

	broker    Broker
	ledger    *Ledger
	executor  *Executor
	positions *PositionManager
	stream    *Stream

	telemetry *telemetry.Client
	metrics   *metricbundle.BridgeMetrics

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Estado del loop (solo lo toca el tick, sin lock)
	lastDial      time.Time
	lastHeartbeat time.Time

	mu     sync.Mutex
	closed bool
}

// New crea una nueva instancia de Agent.
//
// Example:
//
//	cfg, err := internal.LoadConfig(ctx)
//	if err != nil {
//	    return err
//	}
//	agent, err := internal.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer agent.Shutdown()
func New(ctx context.Context, cfg *Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	agentCtx, cancel := context.WithCancel(ctx)

	telClient, err := initTelemetry(agentCtx, cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}

	meter := telClient.Meter()
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(cfg.ServiceName)
	}
	metrics, err := metricbundle.NewBridgeMetrics(meter)
	if err != nil {
		cancel()
		_ = telClient.Shutdown(agentCtx)
		return nil, fmt.Errorf("failed to create metrics bundle: %w", err)
	}

	agentCtx = telemetry.AppendCommonAttrs(agentCtx,
		semconv.Bridge.Component.String(semconv.ComponentValues.Agent),
	)

	broker, err := newPlatformBroker(agentCtx, cfg)
	if err != nil {
		cancel()
		_ = telClient.Shutdown(agentCtx)
		return nil, fmt.Errorf("failed to create broker: %w", err)
	}

	ledger, err := OpenLedger(cfg.LedgerPath)
	if err != nil {
		cancel()
		_ = broker.Close()
		_ = telClient.Shutdown(agentCtx)
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	agent := &Agent{
		config:    cfg,
		broker:    broker,
		ledger:    ledger,
		executor:  NewExecutor(broker, ledger, cfg, telClient),
		positions: NewPositionManager(broker, ledger, cfg, telClient, metrics),
		stream:    NewStream(cfg, telClient),
		telemetry: telClient,
		metrics:   metrics,
		ctx:       agentCtx,
		cancel:    cancel,
	}

	return agent, nil
}

// Run arranca el loop principal y bloquea hasta Shutdown.
//
// Cada tick, en orden:
//  1. Liveness: descarta una conexión que dejó de dar señales de vida.
//  2. Reconexión con backoff si no hay conexión.
//  3. Drena los comandos pendientes del core (ejecutar + reportar).
//  4. Tick del gestor de posiciones (salidas por etapas).
//  5. Heartbeat si tocó.
//
// El orden importa: los comandos recién llegados se ejecutan antes de
// evaluar posiciones, y el heartbeat va al final para reflejar un tick
// completo y sano.
func (a *Agent) Run() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("agent already closed")
	}
	a.mu.Unlock()

	a.telemetry.Info(a.ctx, "Agent starting",
		attribute.String("core_url", a.config.CoreURL),
		attribute.String("version", a.config.ServiceVersion),
	)

	// Primer intento de conexión inmediato; los fallos se reintentan
	// desde el loop
	if err := a.stream.Connect(a.ctx); err != nil {
		a.telemetry.Warn(a.ctx, "Initial connect failed, will retry",
			attribute.String("error", err.Error()),
		)
	}
	a.lastDial = time.Now()

	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			a.telemetry.Info(a.ctx, "Agent loop stopped")
			return nil
		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *Agent) tick() {
	now := time.Now()

	// 1. Liveness: una conexión muda es una conexión muerta
	if a.stream.Connected() && !a.stream.Alive() {
		a.telemetry.Warn(a.ctx, "Core connection stale, dropping")
		a.stream.Disconnect()
	}

	// 2. Reconectar con backoff
	if !a.stream.Connected() && now.Sub(a.lastDial) >= a.config.ReconnectBackoff {
		a.lastDial = now
		if err := a.stream.Connect(a.ctx); err != nil {
			a.telemetry.Warn(a.ctx, "Reconnect failed",
				attribute.String("error", err.Error()),
			)
		}
	}

	// 3. Drenar comandos entrantes
	a.drainCommands()

	// 4. Gestionar salidas por etapas
	a.positions.Tick(a.ctx)

	// 5. Heartbeat
	if a.stream.Connected() && now.Sub(a.lastHeartbeat) >= a.config.HeartbeatInterval {
		if err := a.stream.SendHeartbeat(a.ctx); err != nil {
			a.telemetry.Warn(a.ctx, "Heartbeat failed",
				attribute.String("error", err.Error()),
			)
		} else {
			a.lastHeartbeat = now
		}
	}
}

// drainCommands ejecuta todos los comandos acumulados en el canal.
//
// El reporte siempre queda en el ledger antes de intentar enviarlo: si
// el envío falla, el core lo marcará por timeout y un eventual replay
// re-emitirá este mismo reporte sin tocar el broker.
func (a *Agent) drainCommands() {
	for {
		select {
		case cmd := <-a.stream.Commands():
			report := a.executor.Execute(a.ctx, cmd)
			if err := a.stream.SendReport(a.ctx, report); err != nil {
				a.telemetry.Warn(a.ctx, "Failed to send report",
					semconv.Bridge.CommandID.String(cmd.ID),
					attribute.String("error", err.Error()),
				)
			}
		default:
			return
		}
	}
}

// Shutdown detiene el Agent gracefully.
func (a *Agent) Shutdown() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.telemetry.Info(a.ctx, "Agent shutdown initiated")

	a.cancel()
	a.wg.Wait()

	a.stream.Disconnect()

	if err := a.broker.Close(); err != nil {
		a.telemetry.Error(a.ctx, "Failed to close broker", err)
	}
	if err := a.ledger.Close(); err != nil {
		a.telemetry.Error(a.ctx, "Failed to close ledger", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("telemetry shutdown: %w", err)
	}

	return nil
}
