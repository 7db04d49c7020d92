// Package telemetry proporciona observabilidad completa para el bridge mediante los tres pilares:
//
// 1. Logs: Registro estructurado JSON compatible con Loki
// 2. Métricas: OpenTelemetry exportables a Prometheus
// 3. Trazas: Trazado distribuido con OpenTelemetry/Jaeger
//
// Uso básico:
//
//	import (
//	    "context"
//	    "github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
//	)
//
//	func main() {
//	    ctx := context.Background()
//
//	    // Inicializar telemetría
//	    client, err := telemetry.New(ctx, "bridge-core", "production")
//	    if err != nil {
//	        panic(err)
//	    }
//	    defer client.Shutdown(ctx)
//
//	    // Registrar logs
//	    client.Info(ctx, "Señal procesada")
//
//	    // Crear span
//	    ctx, span := client.StartSpan(ctx, "process_signal")
//	    defer span.End()
//
//	    // Registrar métricas
//	    client.RecordCounter(ctx, "signals.processed", 1)
//	}
//
// El paquete sigue las mejores prácticas de observabilidad y es compatible
// con el ecosistema OpenTelemetry estándar.
package telemetry
