package semconv

import (
	"go.opentelemetry.io/otel/attribute"
)

// Logs define los atributos que acompañan a todo mensaje de log para
// poder filtrar y correlacionar registros en Loki/Grafana.
var Logs struct {
	// Feature es el componente funcional que genera el log.
	// Ejemplos: "EtcdMiddleware", "Pipeline", "Hub".
	Feature attribute.Key

	// Event es la acción concreta que ocurrió dentro del componente.
	// Ejemplos: "config_refresh", "request_complete".
	Event attribute.Key
}

func init() {
	Logs.Feature = attribute.Key("feature")
	Logs.Event = attribute.Key("event")
}
