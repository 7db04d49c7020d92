// Package internal contiene la lógica interna del core del bridge.
//
// El core es una thin layer de orquestación: webhook de alertas, store de
// comandos, canal WebSocket hacia el agent y sweep de timeouts. Toda la
// lógica de dominio vive en el SDK.
package internal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Nishanttwho/Tradingview-to-bridge/core/internal/repository"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/etcd"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/metricbundle"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"
)

// maxAlertBodySize limita el payload del webhook. Las alertas reales
// pesan cientos de bytes; cualquier cosa mayor es ruido.
const maxAlertBodySize = 64 * 1024

// Core representa el servicio principal del bridge.
//
// Responsabilidades:
//   - Webhook HTTP de alertas (POST /webhook)
//   - Canal WebSocket con el agent (GET /ws)
//   - Store durable de señales/comandos/resultados en PostgreSQL
//   - Sweep periódico de timeouts de acknowledgment
//   - Telemetría (logs + métricas + trazas)
type Core struct {
	config *Config

	// Persistencia
	db      *sql.DB
	factory domain.RepositoryFactory

	// Servicios
	resolver *SymbolResolver
	dedupe   *DedupeService
	commands *CommandService
	pipeline *Pipeline
	hub      *Hub

	// HTTP
	httpServer *http.Server

	// Infra
	etcdClient *etcd.Client
	telemetry  *telemetry.Client
	metrics    *metricbundle.BridgeMetrics

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New crea una nueva instancia del core.
//
// Example:
//
//	cfg, err := internal.LoadConfig(ctx)
//	if err != nil {
//	    return err
//	}
//	core, err := internal.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer core.Shutdown()
func New(ctx context.Context, cfg *Config) (*Core, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	coreCtx, cancel := context.WithCancel(ctx)

	telOpts := []telemetry.Option{
		telemetry.WithVersion(cfg.ServiceVersion),
	}
	if cfg.OTLPEndpoint != "" {
		telOpts = append(telOpts, telemetry.WithOTLPEndpoint(cfg.OTLPEndpoint))
	} else {
		telOpts = append(telOpts,
			telemetry.WithMetricsDisabled(),
			telemetry.WithTracesDisabled(),
		)
	}
	if cfg.MetricsEndpoint != "" {
		telOpts = append(telOpts, telemetry.WithMetricsEndpoint(cfg.MetricsEndpoint))
	}

	telClient, err := telemetry.New(coreCtx, cfg.ServiceName, cfg.Environment, telOpts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	meter := telClient.Meter()
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(cfg.ServiceName)
	}
	metrics, err := metricbundle.NewBridgeMetrics(meter)
	if err != nil {
		cancel()
		_ = telClient.Shutdown(coreCtx)
		return nil, fmt.Errorf("failed to create metrics bundle: %w", err)
	}

	coreCtx = telemetry.AppendCommonAttrs(coreCtx,
		semconv.Bridge.Component.String(semconv.ComponentValues.Core),
	)

	// PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresConnStr())
	if err != nil {
		cancel()
		_ = telClient.Shutdown(coreCtx)
		return nil, fmt.Errorf("failed to open PostgreSQL: %w", err)
	}
	db.SetMaxOpenConns(cfg.PostgresPoolMaxConn)
	db.SetMaxIdleConns(cfg.PostgresPoolMinConn)

	pingCtx, pingCancel := context.WithTimeout(coreCtx, 10*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		_ = db.Close()
		_ = telClient.Shutdown(coreCtx)
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	if err := repository.EnsureSchema(coreCtx, db); err != nil {
		cancel()
		_ = db.Close()
		_ = telClient.Shutdown(coreCtx)
		return nil, err
	}

	factory := repository.NewPostgresFactory(db)

	// ETCD es opcional en runtime: sin él no hay middleware de config
	// dinámica, pero el core opera con la configuración cargada.
	etcdClient, err := etcd.New(
		etcd.WithApp("bridge"),
		etcd.WithEnv(cfg.Environment),
	)
	if err != nil {
		telClient.Warn(coreCtx, "ETCD unavailable, dynamic config disabled",
			attribute.String("error", err.Error()),
		)
		etcdClient = nil
	}

	core := &Core{
		config:     cfg,
		db:         db,
		factory:    factory,
		etcdClient: etcdClient,
		telemetry:  telClient,
		metrics:    metrics,
		ctx:        coreCtx,
		cancel:     cancel,
	}

	core.resolver = NewSymbolResolver(coreCtx, factory.SymbolRepository(), telClient, 256)
	core.dedupe = NewDedupeService(factory.SignalRepository(), cfg.DedupeWindow.Milliseconds(), cfg.RecentWindow)
	core.commands = NewCommandService(factory.CommandRepository(), cfg.AckTimeout.Milliseconds())

	// Hub y pipeline se referencian mutuamente: el hub entrega reportes
	// al pipeline y el pipeline empuja comandos por el hub.
	core.pipeline = NewPipeline(
		factory.SignalRepository(),
		factory.ResultRepository(),
		core.commands,
		core.dedupe,
		core.resolver,
		nil, // pusher se resuelve abajo
		cfg.RiskFraction,
		cfg.AccountBalance,
		telClient,
		metrics,
	)
	core.hub = NewHub(cfg.AuthSecret, cfg.PingInterval, cfg.DeadAfter, core.pipeline, telClient, metrics)
	core.pipeline.pusher = core.hub

	telClient.Info(coreCtx, "Core initialized",
		attribute.String("listen_addr", cfg.ListenAddr),
		attribute.Int64("dedupe_window_ms", cfg.DedupeWindow.Milliseconds()),
		attribute.Int64("ack_timeout_ms", cfg.AckTimeout.Milliseconds()),
	)

	return core, nil
}

// Start inicia el core: servidor HTTP, resolver y sweep de timeouts.
func (c *Core) Start() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("core already closed")
	}
	c.mu.Unlock()

	c.resolver.Start()
	c.resolver.Seed(c.ctx, c.config.SymbolDefaults)

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", c.handleWebhook)
	mux.HandleFunc("/ws", c.hub.ServeWS)
	mux.HandleFunc("/healthz", c.handleHealthz)
	mux.HandleFunc("/status", c.handleStatus)

	var handler http.Handler = mux
	if c.etcdClient != nil {
		handler = etcd.EtcdMiddleware(c.etcdClient, c.telemetry)(mux)
	}

	c.httpServer = &http.Server{
		Addr:    c.config.ListenAddr,
		Handler: handler,
		// Sin WriteTimeout global: /ws es long-lived y gestiona sus
		// propios deadlines por frame
		ReadHeaderTimeout: 10 * time.Second,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.telemetry.Error(c.ctx, "HTTP server failed", err)
		}
	}()

	c.wg.Add(1)
	go c.sweepLoop()

	c.telemetry.Info(c.ctx, "Core started",
		attribute.String("listen_addr", c.config.ListenAddr),
	)

	return nil
}

// handleWebhook procesa alertas entrantes.
//
// Respuestas:
//   - 200 {"status":"accepted"}: señal persistida y comando encolado
//   - 200 {"status":"duplicate"}: descartada por dedupe (200 para que el
//     origen no reintente lo que ya procesamos)
//   - 400: payload inválido
//   - 500: fallo de persistencia
func (c *Core) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		c.telemetry.Debug(r.Context(), "Webhook request completed",
			semconv.HTTP.Method.String(r.Method),
			semconv.HTTP.Path.String(r.URL.Path),
			semconv.HTTP.ClientIP.String(r.RemoteAddr),
			semconv.HTTP.StatusCode.Int(status),
			semconv.HTTP.DurationMs.Int64(time.Since(start).Milliseconds()),
		)
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		http.Error(w, "method not allowed", status)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxAlertBodySize))
	if err != nil {
		status = http.StatusBadRequest
		http.Error(w, "failed to read body", status)
		return
	}

	signal, err := c.pipeline.IngestAlert(r.Context(), body)
	if err != nil {
		var dup *DedupeError
		var validation *domain.ValidationError
		switch {
		case errors.As(err, &dup):
			writeJSON(w, http.StatusOK, map[string]string{
				"status":    "duplicate",
				"signal_id": dup.SignalID,
			})
		case errors.As(err, &validation):
			status = http.StatusBadRequest
			writeJSON(w, status, map[string]string{
				"status": "rejected",
				"error":  validation.Error(),
			})
		default:
			status = http.StatusInternalServerError
			writeJSON(w, status, map[string]string{
				"status": "error",
				"error":  err.Error(),
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "accepted",
		"signal_id": signal.SignalID,
	})
}

// handleHealthz responde al probe de liveness.
func (c *Core) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := c.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus expone el estado operacional para diagnóstico.
func (c *Core) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := c.commands.Pending(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	failed, err := c.commands.Failed(ctx, 20)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	status := map[string]interface{}{
		"agent_connected": c.hub.Connected(),
		"pending_count":   len(pending),
		"recent_failed":   failed,
	}
	if last := c.hub.LastContact(); !last.IsZero() {
		status["last_contact"] = last.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// sweepLoop ejecuta el sweep de timeouts periódicamente.
func (c *Core) sweepLoop() {
	defer c.wg.Done()

	interval := c.config.SweepInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.pipeline.SweepTimeouts(c.ctx)

		case <-c.ctx.Done():
			return
		}
	}
}

// Shutdown detiene el core gracefully.
func (c *Core) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.telemetry.Info(c.ctx, "Core shutting down")

	if c.httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = c.httpServer.Shutdown(shutdownCtx)
	}

	c.hub.Close()
	c.cancel()
	c.wg.Wait()
	c.resolver.Stop()

	if c.etcdClient != nil {
		_ = c.etcdClient.Close()
	}
	if err := c.db.Close(); err != nil {
		c.telemetry.Error(context.Background(), "Failed to close PostgreSQL", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := c.telemetry.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown telemetry: %w", err)
	}

	return nil
}
