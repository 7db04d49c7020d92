package metricbundle

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// MetricsClient define la interfaz mínima que un bundle necesita para
// registrar métricas. La implementa telemetry.Client.
type MetricsClient interface {
	// RecordCounter incrementa un contador con un valor específico.
	RecordCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue)

	// RecordHistogram registra un valor en un histograma.
	RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue)

	// Shutdown cierra el cliente y libera los recursos asociados.
	Shutdown(ctx context.Context) error
}

// BaseMetrics contiene contadores y histogramas comunes a todos los bundles.
// Proporciona funcionalidad base para registrar resultados y duraciones de
// operaciones de una entidad concreta (command, signal, channel, ...).
type BaseMetrics struct {
	// client es la implementación de MetricsClient para registrar métricas.
	client MetricsClient

	// entity representa el tipo de entidad que este bundle monitorea.
	entity string

	// namespace es el prefijo principal de todas las métricas (e.g., "bridge").
	namespace string
}

// NewBaseMetrics crea una nueva instancia de BaseMetrics.
// Cada bundle específico utiliza esta base y añade sus propias métricas.
//
// Parámetros:
//   - client: implementación de MetricsClient para registrar métricas
//   - namespace: espacio de nombres para agrupar métricas (ej. "bridge")
//   - entity: tipo de entidad que este bundle monitorea (ej. "command")
func NewBaseMetrics(client MetricsClient, namespace, entity string) *BaseMetrics {
	return &BaseMetrics{
		client:    client,
		entity:    entity,
		namespace: namespace,
	}
}

// RecordResult incrementa el contador de resultados para un evento específico.
//
// Atributos comunes a incluir:
//   - semconv.Metrics.Action.String("upsert")
//   - semconv.Metrics.Result.String("success"/"error")
func (bm *BaseMetrics) RecordResult(ctx context.Context, attrs ...attribute.KeyValue) {
	name := MetricName(bm.namespace, bm.entity, "result")
	bm.client.RecordCounter(ctx, name, 1, attrs...)
}

// StartDurationTimer mide la duración de una operación y retorna una función
// que debe llamarse al finalizar para registrar el tiempo transcurrido.
//
// Ejemplo de uso:
//
//	done := metrics.StartDurationTimer(ctx,
//	    semconv.Metrics.Action.String("upsert"),
//	)
//	// Realizar operación...
//	done() // Registra automáticamente la duración
func (bm *BaseMetrics) StartDurationTimer(ctx context.Context, attrs ...attribute.KeyValue) func() {
	start := time.Now()
	return func() {
		duration := time.Since(start).Seconds()
		name := MetricName(bm.namespace, bm.entity, "duration")
		bm.client.RecordHistogram(ctx, name, duration, attrs...)
	}
}

// MetricName genera un nombre de métrica con formato estándar
// <namespace>.<entity>.<metric_type>. Debe usarse para mantener la
// consistencia en los nombres de todas las métricas.
func MetricName(namespace, entity string, metricType string) string {
	return strings.Join([]string{namespace, entity, metricType}, ".")
}
