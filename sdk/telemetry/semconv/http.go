package semconv

import (
	"go.opentelemetry.io/otel/attribute"
)

// HTTP define los atributos de instrumentación de las superficies HTTP
// del bridge: el webhook de alertas y el middleware de config dinámica.
// Los nombres siguen la convención http.* de OpenTelemetry.
var HTTP struct {
	// Method es el método HTTP de la petición (GET, POST, ...).
	Method attribute.Key

	// Path es la ruta de la URL sin query string.
	Path attribute.Key

	// ClientIP es la dirección remota del cliente.
	ClientIP attribute.Key

	// StatusCode es el código de estado de la respuesta.
	StatusCode attribute.Key

	// DurationMs es la duración del procesamiento en milisegundos.
	DurationMs attribute.Key

	// Middleware identifica el middleware que procesó la petición.
	Middleware attribute.Key
}

func init() {
	HTTP.Method = attribute.Key("http.method")
	HTTP.Path = attribute.Key("http.path")
	HTTP.ClientIP = attribute.Key("http.client_ip")
	HTTP.StatusCode = attribute.Key("http.status_code")
	HTTP.DurationMs = attribute.Key("http.duration_ms")
	HTTP.Middleware = attribute.Key("http.middleware")
}
