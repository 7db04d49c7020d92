package metricbundle

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BridgeMetrics bundle de métricas para el bridge de señales.
//
// Cubre el funnel completo señal → comando → envío → reporte más la
// gestión de posiciones del agent:
//
// # Métricas de Conteo
//
//   - bridge.signal.received: Señales recibidas del webhook
//   - bridge.signal.duplicate: Señales descartadas por dedupe
//   - bridge.signal.rejected: Señales rechazadas en validación
//   - bridge.command.created: Comandos encolados (pending)
//   - bridge.command.sent: Comandos empujados por el canal
//   - bridge.command.acknowledged: Comandos confirmados por el agent
//   - bridge.command.failed: Comandos fallidos (ejecución o timeout)
//   - bridge.command.replayed: Comandos reenviados en reconexión
//   - bridge.report.received: Reportes recibidos del agent
//   - bridge.report.unknown: Reportes para comandos desconocidos
//   - bridge.heartbeat.received: Heartbeats recibidos
//   - bridge.channel.connected: Conexiones de canal aceptadas
//   - bridge.channel.disconnected: Canales caídos o reemplazados
//   - bridge.channel.rejected: Conexiones rechazadas por auth
//   - bridge.position.partial_exit: Cierres parciales ejecutados
//   - bridge.position.break_even: Stops movidos a break-even
//
// # Métricas de Latencia
//
//   - bridge.latency.ingest: Señal → comando creado
//   - bridge.latency.delivery: Comando creado → enviado (incluye cola)
//   - bridge.latency.ack: Enviado → reporte recibido
//   - bridge.latency.e2e: Señal → fill del broker
//
// # Uso
//
//	metrics, err := metricbundle.NewBridgeMetrics(client.Meter())
//	if err != nil {
//	    return err
//	}
//
//	metrics.RecordSignalReceived(ctx,
//	    attribute.String("symbol", "EURUSD"),
//	    attribute.String("direction", "BUY"),
//	)
type BridgeMetrics struct {
	// Counters
	SignalReceived      metric.Int64Counter
	SignalDuplicate     metric.Int64Counter
	SignalRejected      metric.Int64Counter
	CommandCreated      metric.Int64Counter
	CommandSent         metric.Int64Counter
	CommandAcknowledged metric.Int64Counter
	CommandFailed       metric.Int64Counter
	CommandReplayed     metric.Int64Counter
	ReportReceived      metric.Int64Counter
	ReportUnknown       metric.Int64Counter
	HeartbeatReceived   metric.Int64Counter
	ChannelConnected    metric.Int64Counter
	ChannelDisconnected metric.Int64Counter
	ChannelRejected     metric.Int64Counter
	PositionPartialExit metric.Int64Counter
	PositionBreakEven   metric.Int64Counter

	// Histograms
	LatencyIngest   metric.Float64Histogram
	LatencyDelivery metric.Float64Histogram
	LatencyAck      metric.Float64Histogram
	LatencyE2E      metric.Float64Histogram
}

// NewBridgeMetrics crea un nuevo bundle de métricas del bridge.
func NewBridgeMetrics(meter metric.Meter) (*BridgeMetrics, error) {
	// Counters
	signalReceived, err := meter.Int64Counter(
		"bridge.signal.received",
		metric.WithDescription("Señales recibidas del webhook"),
		metric.WithUnit("{signal}"),
	)
	if err != nil {
		return nil, err
	}

	signalDuplicate, err := meter.Int64Counter(
		"bridge.signal.duplicate",
		metric.WithDescription("Señales descartadas por dedupe"),
		metric.WithUnit("{signal}"),
	)
	if err != nil {
		return nil, err
	}

	signalRejected, err := meter.Int64Counter(
		"bridge.signal.rejected",
		metric.WithDescription("Señales rechazadas en validación"),
		metric.WithUnit("{signal}"),
	)
	if err != nil {
		return nil, err
	}

	commandCreated, err := meter.Int64Counter(
		"bridge.command.created",
		metric.WithDescription("Comandos encolados en estado pending"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	commandSent, err := meter.Int64Counter(
		"bridge.command.sent",
		metric.WithDescription("Comandos empujados por el canal al agent"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	commandAcknowledged, err := meter.Int64Counter(
		"bridge.command.acknowledged",
		metric.WithDescription("Comandos confirmados por el agent"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	commandFailed, err := meter.Int64Counter(
		"bridge.command.failed",
		metric.WithDescription("Comandos fallidos por ejecución o timeout"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	commandReplayed, err := meter.Int64Counter(
		"bridge.command.replayed",
		metric.WithDescription("Comandos pending reenviados en reconexión"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	reportReceived, err := meter.Int64Counter(
		"bridge.report.received",
		metric.WithDescription("Reportes de ejecución recibidos del agent"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, err
	}

	reportUnknown, err := meter.Int64Counter(
		"bridge.report.unknown",
		metric.WithDescription("Reportes para comandos desconocidos o stale"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, err
	}

	heartbeatReceived, err := meter.Int64Counter(
		"bridge.heartbeat.received",
		metric.WithDescription("Heartbeats recibidos del agent"),
		metric.WithUnit("{heartbeat}"),
	)
	if err != nil {
		return nil, err
	}

	channelConnected, err := meter.Int64Counter(
		"bridge.channel.connected",
		metric.WithDescription("Conexiones de canal autenticadas y aceptadas"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	channelDisconnected, err := meter.Int64Counter(
		"bridge.channel.disconnected",
		metric.WithDescription("Canales caídos, cerrados o reemplazados"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	channelRejected, err := meter.Int64Counter(
		"bridge.channel.rejected",
		metric.WithDescription("Conexiones rechazadas por secreto inválido"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	positionPartialExit, err := meter.Int64Counter(
		"bridge.position.partial_exit",
		metric.WithDescription("Cierres parciales stage-1 ejecutados"),
		metric.WithUnit("{position}"),
	)
	if err != nil {
		return nil, err
	}

	positionBreakEven, err := meter.Int64Counter(
		"bridge.position.break_even",
		metric.WithDescription("Stops movidos a break-even en stage-2"),
		metric.WithUnit("{position}"),
	)
	if err != nil {
		return nil, err
	}

	// Histograms
	latencyIngest, err := meter.Float64Histogram(
		"bridge.latency.ingest",
		metric.WithDescription("Latencia señal → comando creado"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	latencyDelivery, err := meter.Float64Histogram(
		"bridge.latency.delivery",
		metric.WithDescription("Latencia comando creado → enviado"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	latencyAck, err := meter.Float64Histogram(
		"bridge.latency.ack",
		metric.WithDescription("Latencia enviado → reporte recibido"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	latencyE2E, err := meter.Float64Histogram(
		"bridge.latency.e2e",
		metric.WithDescription("Latencia señal → fill del broker"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &BridgeMetrics{
		SignalReceived:      signalReceived,
		SignalDuplicate:     signalDuplicate,
		SignalRejected:      signalRejected,
		CommandCreated:      commandCreated,
		CommandSent:         commandSent,
		CommandAcknowledged: commandAcknowledged,
		CommandFailed:       commandFailed,
		CommandReplayed:     commandReplayed,
		ReportReceived:      reportReceived,
		ReportUnknown:       reportUnknown,
		HeartbeatReceived:   heartbeatReceived,
		ChannelConnected:    channelConnected,
		ChannelDisconnected: channelDisconnected,
		ChannelRejected:     channelRejected,
		PositionPartialExit: positionPartialExit,
		PositionBreakEven:   positionBreakEven,
		LatencyIngest:       latencyIngest,
		LatencyDelivery:     latencyDelivery,
		LatencyAck:          latencyAck,
		LatencyE2E:          latencyE2E,
	}, nil
}

// RecordSignalReceived registra una señal recibida.
func (m *BridgeMetrics) RecordSignalReceived(ctx context.Context, attrs ...attribute.KeyValue) {
	m.SignalReceived.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSignalDuplicate registra una señal descartada por dedupe.
func (m *BridgeMetrics) RecordSignalDuplicate(ctx context.Context, attrs ...attribute.KeyValue) {
	m.SignalDuplicate.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSignalRejected registra una señal rechazada en validación.
func (m *BridgeMetrics) RecordSignalRejected(ctx context.Context, attrs ...attribute.KeyValue) {
	m.SignalRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCommandCreated registra un comando encolado.
func (m *BridgeMetrics) RecordCommandCreated(ctx context.Context, attrs ...attribute.KeyValue) {
	m.CommandCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCommandSent registra un comando enviado por el canal.
func (m *BridgeMetrics) RecordCommandSent(ctx context.Context, attrs ...attribute.KeyValue) {
	m.CommandSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCommandAcknowledged registra un comando confirmado.
func (m *BridgeMetrics) RecordCommandAcknowledged(ctx context.Context, attrs ...attribute.KeyValue) {
	m.CommandAcknowledged.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCommandFailed registra un comando fallido.
func (m *BridgeMetrics) RecordCommandFailed(ctx context.Context, attrs ...attribute.KeyValue) {
	m.CommandFailed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCommandReplayed registra un comando reenviado en reconexión.
func (m *BridgeMetrics) RecordCommandReplayed(ctx context.Context, attrs ...attribute.KeyValue) {
	m.CommandReplayed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReportReceived registra un reporte recibido.
func (m *BridgeMetrics) RecordReportReceived(ctx context.Context, attrs ...attribute.KeyValue) {
	m.ReportReceived.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordReportUnknown registra un reporte para un comando desconocido.
func (m *BridgeMetrics) RecordReportUnknown(ctx context.Context, attrs ...attribute.KeyValue) {
	m.ReportUnknown.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordHeartbeatReceived registra un heartbeat recibido.
func (m *BridgeMetrics) RecordHeartbeatReceived(ctx context.Context, attrs ...attribute.KeyValue) {
	m.HeartbeatReceived.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordChannelConnected registra una conexión de canal aceptada.
func (m *BridgeMetrics) RecordChannelConnected(ctx context.Context, attrs ...attribute.KeyValue) {
	m.ChannelConnected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordChannelDisconnected registra un canal caído o reemplazado.
func (m *BridgeMetrics) RecordChannelDisconnected(ctx context.Context, attrs ...attribute.KeyValue) {
	m.ChannelDisconnected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordChannelRejected registra una conexión rechazada por auth.
func (m *BridgeMetrics) RecordChannelRejected(ctx context.Context, attrs ...attribute.KeyValue) {
	m.ChannelRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPositionPartialExit registra un cierre parcial stage-1.
func (m *BridgeMetrics) RecordPositionPartialExit(ctx context.Context, attrs ...attribute.KeyValue) {
	m.PositionPartialExit.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordPositionBreakEven registra un stop movido a break-even.
func (m *BridgeMetrics) RecordPositionBreakEven(ctx context.Context, attrs ...attribute.KeyValue) {
	m.PositionBreakEven.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordLatencyIngest registra la latencia señal → comando en ms.
func (m *BridgeMetrics) RecordLatencyIngest(ctx context.Context, latencyMs float64, attrs ...attribute.KeyValue) {
	m.LatencyIngest.Record(ctx, latencyMs, metric.WithAttributes(attrs...))
}

// RecordLatencyDelivery registra la latencia comando → enviado en ms.
func (m *BridgeMetrics) RecordLatencyDelivery(ctx context.Context, latencyMs float64, attrs ...attribute.KeyValue) {
	m.LatencyDelivery.Record(ctx, latencyMs, metric.WithAttributes(attrs...))
}

// RecordLatencyAck registra la latencia enviado → reporte en ms.
func (m *BridgeMetrics) RecordLatencyAck(ctx context.Context, latencyMs float64, attrs ...attribute.KeyValue) {
	m.LatencyAck.Record(ctx, latencyMs, metric.WithAttributes(attrs...))
}

// RecordLatencyE2E registra la latencia señal → fill en ms.
func (m *BridgeMetrics) RecordLatencyE2E(ctx context.Context, latencyMs float64, attrs ...attribute.KeyValue) {
	m.LatencyE2E.Record(ctx, latencyMs, metric.WithAttributes(attrs...))
}
