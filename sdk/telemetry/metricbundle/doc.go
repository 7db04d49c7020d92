// Package metricbundle agrupa instrumentos de métricas OpenTelemetry por
// dominio para evitar la creación dispersa de contadores e histogramas.
//
// BridgeMetrics cubre el funnel señal → comando → envío → reporte y la
// gestión de posiciones del agent. BaseMetrics provee resultado/duración
// genéricos para entidades auxiliares (repositorios, canal, ledger).
//
// Uso básico:
//
//	metrics, err := metricbundle.NewBridgeMetrics(client.Meter())
//	if err != nil {
//	    return err
//	}
//
//	metrics.RecordCommandCreated(ctx,
//	    semconv.Bridge.CommandID.String(cmd.ID),
//	    semconv.Bridge.Action.String(string(cmd.Action)),
//	)
package metricbundle
