package semconv

import (
	"go.opentelemetry.io/otel/attribute"
)

// Metrics define los atributos con que se dimensionan las métricas de
// los bundles (ver metricbundle). Cada métrica agregable lleva al menos
// la acción medida y su resultado.
var Metrics struct {
	// Result es el desenlace de la operación medida.
	// Valores: "success", "error".
	Result attribute.Key

	// Action es la operación que se midió.
	// Ejemplos: "upsert", "enqueue", "push".
	Action attribute.Key
}

func init() {
	Metrics.Result = attribute.Key("result")
	Metrics.Action = attribute.Key("action")
}
