// Package semconv define las convenciones semánticas de atributos
// OpenTelemetry del bridge.
//
// Cada dominio (Bridge, Logs, HTTP, Metrics) expone su conjunto de
// claves predefinidas para que logs, métricas y trazas usen los mismos
// nombres y se puedan correlacionar entre sí.
//
// Uso básico:
//
//	// Para logs
//	attrs := []attribute.KeyValue{
//	    semconv.Logs.Feature.String("Pipeline"),
//	    semconv.Logs.Event.String("signal_ingested"),
//	}
//
//	// Para HTTP
//	httpAttrs := []attribute.KeyValue{
//	    semconv.HTTP.Method.String("POST"),
//	    semconv.HTTP.Path.String("/webhook"),
//	    semconv.HTTP.StatusCode.Int(200),
//	}
package semconv
