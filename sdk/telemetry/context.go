package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

// contextKey evita colisiones con claves de contexto de otros paquetes.
type contextKey string

const (
	commonAttrsKey contextKey = "telemetry_common_attrs"
	eventAttrsKey  contextKey = "telemetry_event_attrs"
	metricAttrsKey contextKey = "telemetry_metric_attrs"
)

// AppendCommonAttrs agrega atributos que acompañan a logs, métricas y
// trazas derivados de este contexto. Los servicios lo usan al arrancar
// para fijar el componente una sola vez.
func AppendCommonAttrs(ctx context.Context, attrs ...attribute.KeyValue) context.Context {
	return appendAttrs(ctx, commonAttrsKey, attrs...)
}

// AppendEventAttrs agrega atributos solo para logs y spans.
func AppendEventAttrs(ctx context.Context, attrs ...attribute.KeyValue) context.Context {
	return appendAttrs(ctx, eventAttrsKey, attrs...)
}

// AppendMetricAttrs agrega atributos solo para métricas.
func AppendMetricAttrs(ctx context.Context, attrs ...attribute.KeyValue) context.Context {
	return appendAttrs(ctx, metricAttrsKey, attrs...)
}

// GetCommonAttrs extrae los atributos comunes acumulados en el contexto.
func GetCommonAttrs(ctx context.Context) []attribute.KeyValue {
	return getAttrs(ctx, commonAttrsKey)
}

// GetEventAttrs extrae los atributos de eventos del contexto.
func GetEventAttrs(ctx context.Context) []attribute.KeyValue {
	return getAttrs(ctx, eventAttrsKey)
}

// GetMetricAttrs extrae los atributos de métricas del contexto.
func GetMetricAttrs(ctx context.Context) []attribute.KeyValue {
	return getAttrs(ctx, metricAttrsKey)
}

func appendAttrs(ctx context.Context, key contextKey, attrs ...attribute.KeyValue) context.Context {
	if len(attrs) == 0 {
		return ctx
	}

	existing := getAttrs(ctx, key)
	merged := make([]attribute.KeyValue, 0, len(existing)+len(attrs))
	merged = append(merged, existing...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, key, merged)
}

func getAttrs(ctx context.Context, key contextKey) []attribute.KeyValue {
	attrs, ok := ctx.Value(key).([]attribute.KeyValue)
	if !ok {
		return nil
	}
	return attrs
}
