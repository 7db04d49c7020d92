package etcd

import (
	"context"
	"net/http"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// contextKey se usa para almacenar el cliente etcd en el Context
type etcdContextKey string

const (
	etcdClientKey etcdContextKey = "etcd_client"
)

// SetEtcdClient establece el cliente etcd en el contexto
func SetEtcdClient(ctx context.Context, client *Client) context.Context {
	return context.WithValue(ctx, etcdClientKey, client)
}

// GetEtcdClient obtiene el cliente etcd desde el contexto
func GetEtcdClient(ctx context.Context) *Client {
	value, ok := ctx.Value(etcdClientKey).(*Client)
	if !ok {
		return nil
	}
	return value
}

// EtcdMiddleware crea un middleware que añade el cliente etcd al contexto de
// cada request, instrumentado con el cliente de telemetría del servicio.
func EtcdMiddleware(client *Client, t *telemetry.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := t.StartSpan(r.Context(), "middleware.etcd")
			defer span.End()

			baseAttrs := []attribute.KeyValue{
				semconv.Logs.Feature.String("EtcdMiddleware"),
				semconv.HTTP.Path.String(r.URL.Path),
				semconv.HTTP.Method.String(r.Method),
				semconv.HTTP.Middleware.String("etcd"),
			}

			if client == nil {
				errAttrs := append(baseAttrs,
					semconv.Logs.Event.String("etcd_client_nil"))
				t.Error(ctx, "etcd client is nil in middleware", nil, errAttrs...)

				span.SetStatus(codes.Error, "Etcd client is nil")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			// Añadir el cliente etcd al contexto y reemplazar en la request
			newCtx := SetEtcdClient(ctx, client)
			r = r.WithContext(newCtx)

			next.ServeHTTP(w, r)
		})
	}
}
