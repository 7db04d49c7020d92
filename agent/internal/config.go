// Package internal contiene configuración del Agent cargada desde ETCD.
package internal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/etcd"
)

// Config configuración del Agent.
//
// Cargada desde ETCD en namespace bridge/{environment}, con defaults
// locales para desarrollo.
type Config struct {
	// Core
	CoreURL    string // agent/core_url (ws://host:port/ws)
	AuthSecret string // core/auth_secret (secreto compartido con el core)

	// Loop
	TickInterval      time.Duration // agent/tick_interval_ms
	HeartbeatInterval time.Duration // agent/heartbeat_s
	ReconnectBackoff  time.Duration // agent/reconnect_backoff_s
	DeadAfter         time.Duration // core/dead_after_s (liveness del canal)

	// Trading
	//
	// HedgingEnabled sigue la convención de las cuentas MT: true significa
	// que la cuenta sostiene posiciones en ambas direcciones del mismo
	// símbolo a la vez. Con false el executor cierra las posiciones
	// contrarias del símbolo antes de abrir la nueva.
	RiskFraction     float64 // agent/risk_fraction
	MaxPositions     int     // agent/max_positions
	HedgingEnabled   bool    // agent/hedging_enabled
	PartialExitRatio float64 // agent/partial_exit_ratio

	// Salida por etapas: con UseFixedExit la distancia del stage 1 es
	// fija en pips; sin él se deriva del target out-of-band del comando.
	UseFixedExit  bool    // agent/use_fixed_exit
	FixedExitPips float64 // agent/fixed_exit_pips

	// Broker
	PipeName string // agent/pipe_name (named pipe del terminal en Windows)

	// Persistencia local
	LedgerPath string // agent/ledger_path (archivo bbolt)

	// Telemetry
	ServiceName     string // telemetry/service_name
	ServiceVersion  string // telemetry/service_version
	Environment     string // telemetry/environment
	OTLPEndpoint    string // endpoints/otel/otlp_endpoint
	MetricsEndpoint string // endpoints/otel/metrics_endpoint
}

// LoadConfig carga configuración desde ETCD.
//
// Environment se determina desde la variable de entorno ENV (default:
// development). Si ETCD no define una clave, aplica el default local.
func LoadConfig(ctx context.Context) (*Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	etcdClient, err := etcd.New(
		etcd.WithApp("bridge"),
		etcd.WithEnv(env),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ETCD client: %w", err)
	}
	defer etcdClient.Close()

	cfg := DefaultConfig(env)

	// Core
	if val, err := etcdClient.GetVarWithDefault(ctx, "agent/core_url", ""); err == nil && val != "" {
		cfg.CoreURL = val
	}
	if val, err := etcdClient.GetVarWithDefault(ctx, "core/auth_secret", ""); err == nil && val != "" {
		cfg.AuthSecret = val
	}

	// Loop
	if val, err := etcdClient.GetVarIntWithDefault(ctx, "agent/tick_interval_ms", 0); err == nil && val > 0 {
		cfg.TickInterval = time.Duration(val) * time.Millisecond
	}
	if val, err := etcdClient.GetVarIntWithDefault(ctx, "agent/heartbeat_s", 0); err == nil && val > 0 {
		cfg.HeartbeatInterval = time.Duration(val) * time.Second
	}
	if val, err := etcdClient.GetVarIntWithDefault(ctx, "agent/reconnect_backoff_s", 0); err == nil && val > 0 {
		cfg.ReconnectBackoff = time.Duration(val) * time.Second
	}
	if val, err := etcdClient.GetVarIntWithDefault(ctx, "core/dead_after_s", 0); err == nil && val > 0 {
		cfg.DeadAfter = time.Duration(val) * time.Second
	}

	// Trading
	if val, err := etcdClient.GetVarWithDefault(ctx, "agent/risk_fraction", ""); err == nil && val != "" {
		if fraction, err := strconv.ParseFloat(val, 64); err == nil && fraction > 0 {
			cfg.RiskFraction = fraction
		}
	}
	if val, err := etcdClient.GetVarIntWithDefault(ctx, "agent/max_positions", 0); err == nil && val > 0 {
		cfg.MaxPositions = val
	}
	if val, err := etcdClient.GetVarBoolWithDefault(ctx, "agent/hedging_enabled", cfg.HedgingEnabled); err == nil {
		cfg.HedgingEnabled = val
	}
	if val, err := etcdClient.GetVarWithDefault(ctx, "agent/partial_exit_ratio", ""); err == nil && val != "" {
		if ratio, err := strconv.ParseFloat(val, 64); err == nil && ratio > 0 && ratio < 1 {
			cfg.PartialExitRatio = ratio
		}
	}
	if val, err := etcdClient.GetVarBoolWithDefault(ctx, "agent/use_fixed_exit", cfg.UseFixedExit); err == nil {
		cfg.UseFixedExit = val
	}
	if val, err := etcdClient.GetVarWithDefault(ctx, "agent/fixed_exit_pips", ""); err == nil && val != "" {
		if pips, err := strconv.ParseFloat(val, 64); err == nil && pips > 0 {
			cfg.FixedExitPips = pips
		}
	}

	// Broker
	if val, err := etcdClient.GetVarWithDefault(ctx, "agent/pipe_name", ""); err == nil && val != "" {
		cfg.PipeName = val
	}

	// Persistencia local
	if val, err := etcdClient.GetVarWithDefault(ctx, "agent/ledger_path", ""); err == nil && val != "" {
		cfg.LedgerPath = val
	}

	// Telemetry
	if val, err := etcdClient.GetVarWithDefault(ctx, "telemetry/service_name", ""); err == nil && val != "" {
		cfg.ServiceName = val
	}
	if val, err := etcdClient.GetVarWithDefault(ctx, "telemetry/service_version", ""); err == nil && val != "" {
		cfg.ServiceVersion = val
	}
	if val, err := etcdClient.GetVarWithDefault(ctx, "telemetry/environment", ""); err == nil && val != "" {
		cfg.Environment = val
	}
	if val, err := etcdClient.GetVarWithDefault(ctx, "endpoints/otel/otlp_endpoint", ""); err == nil && val != "" {
		cfg.OTLPEndpoint = val
	}
	if val, err := etcdClient.GetVarWithDefault(ctx, "endpoints/otel/metrics_endpoint", ""); err == nil && val != "" {
		cfg.MetricsEndpoint = val
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultConfig retorna la configuración por defecto para un environment.
func DefaultConfig(env string) *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		CoreURL:           "ws://localhost:8077/ws",
		TickInterval:      1 * time.Second,
		HeartbeatInterval: 20 * time.Second,
		ReconnectBackoff:  5 * time.Second,
		DeadAfter:         90 * time.Second,
		RiskFraction:      0.01,
		MaxPositions:      5,
		HedgingEnabled:    false,
		PartialExitRatio:  0.75,
		UseFixedExit:      false,
		FixedExitPips:     50,
		LedgerPath:        filepath.Join(home, ".bridge-agent", "ledger.db"),
		ServiceName:       "bridge-agent",
		ServiceVersion:    "1.0.0",
		Environment:       env,
	}
}

// Validate verifica la configuración mínima requerida.
func (c *Config) Validate() error {
	if c.CoreURL == "" {
		return fmt.Errorf("agent/core_url not configured")
	}
	if c.AuthSecret == "" {
		return fmt.Errorf("core/auth_secret not configured")
	}
	if c.PartialExitRatio <= 0 || c.PartialExitRatio >= 1 {
		return fmt.Errorf("agent/partial_exit_ratio must be in (0, 1)")
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("agent/ledger_path not configured")
	}
	return nil
}
