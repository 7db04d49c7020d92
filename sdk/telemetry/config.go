package telemetry

import (
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
)

// Config contiene la configuración para el cliente de telemetría
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLP Collector endpoints
	// Traces y métricas pueden vivir en endpoints/puertos distintos
	OTLPEndpoint        string // Si se setea, aplica a ambos si los específicos están vacíos
	OTLPTracesEndpoint  string
	OTLPMetricsEndpoint string

	// Nivel mínimo de logs emitidos por el handler JSON
	LogLevel slog.Level

	// Atributos comunes a todos los logs, métricas y trazas
	CommonAttributes []attribute.KeyValue

	// Habilitar/deshabilitar componentes
	EnableLogs    bool
	EnableMetrics bool
	EnableTraces  bool
}

// DefaultConfig retorna una configuración con valores por defecto
func DefaultConfig(serviceName, environment string) Config {
	return Config{
		ServiceName:         serviceName,
		ServiceVersion:      "0.0.1",
		Environment:         environment,
		OTLPEndpoint:        "localhost:4317",
		OTLPTracesEndpoint:  "",
		OTLPMetricsEndpoint: "",
		LogLevel:            slog.LevelInfo,
		EnableLogs:          true,
		EnableMetrics:       true,
		EnableTraces:        true,
		CommonAttributes:    []attribute.KeyValue{},
	}
}

// tracesEndpoint resuelve el endpoint efectivo para trazas.
func (c *Config) tracesEndpoint() string {
	if c.OTLPTracesEndpoint != "" {
		return c.OTLPTracesEndpoint
	}
	return c.OTLPEndpoint
}

// metricsEndpoint resuelve el endpoint efectivo para métricas.
func (c *Config) metricsEndpoint() string {
	if c.OTLPMetricsEndpoint != "" {
		return c.OTLPMetricsEndpoint
	}
	return c.OTLPEndpoint
}

// Option es una función que modifica la configuración
type Option func(*Config)

// WithVersion establece la versión del servicio
func WithVersion(version string) Option {
	return func(c *Config) {
		c.ServiceVersion = version
	}
}

// WithOTLPEndpoint establece el endpoint del collector
func WithOTLPEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.OTLPEndpoint = endpoint
	}
}

// WithTracesEndpoint establece endpoint específico para trazas
func WithTracesEndpoint(endpoint string) Option {
	return func(c *Config) { c.OTLPTracesEndpoint = endpoint }
}

// WithMetricsEndpoint establece endpoint específico para métricas
func WithMetricsEndpoint(endpoint string) Option {
	return func(c *Config) { c.OTLPMetricsEndpoint = endpoint }
}

// WithLogLevel establece el nivel mínimo de logs
func WithLogLevel(level slog.Level) Option {
	return func(c *Config) { c.LogLevel = level }
}

// WithCommonAttributes añade atributos comunes
func WithCommonAttributes(attrs ...attribute.KeyValue) Option {
	return func(c *Config) {
		c.CommonAttributes = append(c.CommonAttributes, attrs...)
	}
}

// WithLogsDisabled deshabilita logs
func WithLogsDisabled() Option {
	return func(c *Config) {
		c.EnableLogs = false
	}
}

// WithMetricsDisabled deshabilita métricas
func WithMetricsDisabled() Option {
	return func(c *Config) {
		c.EnableMetrics = false
	}
}

// WithTracesDisabled deshabilita trazas
func WithTracesDisabled() Option {
	return func(c *Config) {
		c.EnableTraces = false
	}
}
