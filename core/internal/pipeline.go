package internal

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/metricbundle"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/utils"
)

// CommandPusher empuja comandos por el canal hacia el agent.
//
// Lo implementa el Hub; los tests inyectan stubs.
type CommandPusher interface {
	Push(ctx context.Context, cmd *domain.Command) error
	Connected() bool
}

// Pipeline orquesta el flujo señal → comando → envío → reporte.
//
// Es el AgentHandler del hub y el único punto que toca señales, comandos
// y resultados en conjunto. Flujo de ingestión:
//
//	alerta JSON → parse → resolver símbolo → validar → dedupe →
//	persistir señal → encolar comando → push (si hay canal)
//
// Un push fallido por canal ausente no es error: el comando queda
// pending y HandleConnect lo replay-ea en la próxima conexión.
type Pipeline struct {
	signals  domain.SignalRepository
	results  domain.ResultRepository
	commands *CommandService
	dedupe   *DedupeService
	resolver *SymbolResolver
	pusher   CommandPusher

	riskFraction   float64
	accountBalance float64

	tel     *telemetry.Client
	metrics *metricbundle.BridgeMetrics
}

// NewPipeline crea el orquestador del core.
func NewPipeline(
	signals domain.SignalRepository,
	results domain.ResultRepository,
	commands *CommandService,
	dedupe *DedupeService,
	resolver *SymbolResolver,
	pusher CommandPusher,
	riskFraction, accountBalance float64,
	tel *telemetry.Client,
	metrics *metricbundle.BridgeMetrics,
) *Pipeline {
	return &Pipeline{
		signals:        signals,
		results:        results,
		commands:       commands,
		dedupe:         dedupe,
		resolver:       resolver,
		pusher:         pusher,
		riskFraction:   riskFraction,
		accountBalance: accountBalance,
		tel:            tel,
		metrics:        metrics,
	}
}

// IngestAlert procesa una alerta cruda del webhook.
//
// Retorna la señal persistida. Los rechazos retornan error tipado:
// ValidationError para payloads inválidos, DedupeError para duplicados.
// Una alerta rechazada no deja señal en BD.
func (p *Pipeline) IngestAlert(ctx context.Context, payload []byte) (*domain.Signal, error) {
	ctx, span := p.tel.StartSpan(ctx, "pipeline.ingest")
	defer span.End()

	signal, err := domain.ParseAlert(payload)
	if err != nil {
		p.tel.RecordError(ctx, err)
		p.metrics.RecordSignalRejected(ctx, semconv.Bridge.Reason.String("parse"))
		p.tel.Warn(ctx, "Alert rejected: malformed payload",
			attribute.String("error", err.Error()),
		)
		return nil, err
	}

	p.tel.SetSpanAttributes(ctx,
		semconv.Bridge.ExternalSymbol.String(signal.ExternalSymbol),
		semconv.Bridge.Direction.String(signal.Direction.String()),
	)

	p.metrics.RecordSignalReceived(ctx,
		semconv.Bridge.ExternalSymbol.String(signal.ExternalSymbol),
		semconv.Bridge.Direction.String(signal.Direction.String()),
	)

	signal.SignalID = utils.GenerateUUIDv7()
	signal.CreatedAtMs = utils.NowUnixMilli()
	signal.BrokerSymbol = p.resolver.Resolve(ctx, signal.ExternalSymbol)

	if err := domain.ValidateSignal(signal); err != nil {
		p.tel.RecordError(ctx, err)
		p.metrics.RecordSignalRejected(ctx, semconv.Bridge.Reason.String("validation"))
		p.tel.Warn(ctx, "Alert rejected: validation failed",
			semconv.Bridge.SignalID.String(signal.SignalID),
			attribute.String("error", err.Error()),
		)
		return nil, err
	}

	if err := p.dedupe.Check(ctx, signal); err != nil {
		var dup *DedupeError
		if errors.As(err, &dup) {
			p.metrics.RecordSignalDuplicate(ctx,
				semconv.Bridge.ExternalSymbol.String(signal.ExternalSymbol),
			)
			p.tel.Info(ctx, "Alert discarded as duplicate",
				semconv.Bridge.SignalID.String(signal.SignalID),
				semconv.Bridge.ExternalSymbol.String(signal.ExternalSymbol),
			)
		}
		return nil, err
	}

	if err := p.signals.Create(ctx, signal); err != nil {
		p.tel.RecordError(ctx, err)
		return nil, fmt.Errorf("failed to persist signal: %w", err)
	}

	cmd := p.buildTradeCommand(signal)
	enqueued, err := p.commands.Enqueue(ctx, cmd)
	if err != nil {
		// Señal sin comando: marcarla failed para no dejarla colgada
		_ = p.signals.UpdateStatus(ctx, signal.SignalID, domain.SignalStatusFailed, err.Error())
		return nil, err
	}

	p.metrics.RecordCommandCreated(ctx,
		semconv.Bridge.CommandID.String(enqueued.CommandID),
		semconv.Bridge.Action.String(enqueued.Action.String()),
	)
	p.metrics.RecordLatencyIngest(ctx, float64(utils.NowUnixMilli()-signal.CreatedAtMs))

	p.tel.Info(ctx, "Signal ingested",
		semconv.Bridge.SignalID.String(signal.SignalID),
		semconv.Bridge.CommandID.String(enqueued.CommandID),
		semconv.Bridge.Symbol.String(signal.BrokerSymbol),
		semconv.Bridge.Direction.String(signal.Direction.String()),
	)

	p.deliver(ctx, enqueued, false)

	return signal, nil
}

// defaultTradeVolume es el volumen cuando la señal no trae datos para
// dimensionar por riesgo. Mínimo universal de brokers MT; el agent
// aplica el clamp final contra la especificación real.
const defaultTradeVolume = 0.01

// buildTradeCommand construye el comando TRADE de una señal.
//
// El volumen se dimensiona aquí cuando la señal trae stop (riesgo fijo
// sobre el balance configurado); el agent aplica el clamp final contra
// la especificación del broker. El take profit viaja en el comando solo
// como target stage-1 out-of-band: el agent jamás lo fija como TP
// nativo al abrir.
func (p *Pipeline) buildTradeCommand(signal *domain.Signal) *domain.Command {
	sid := signal.SignalID
	cmd := &domain.Command{
		Action:     domain.ActionTrade,
		Symbol:     signal.BrokerSymbol,
		Direction:  signal.Direction,
		Volume:     defaultTradeVolume,
		StopLoss:   signal.StopLoss,
		TakeProfit: signal.TakeProfit,
		SignalID:   &sid,
	}

	entry := signal.EntryPrice
	if entry == nil {
		entry = signal.Price
	}
	if entry != nil && signal.StopLoss != nil {
		stopPips := domain.PriceDistanceToPips(signal.BrokerSymbol, *entry-*signal.StopLoss)
		if stopPips < 0 {
			stopPips = -stopPips
		}
		volume, err := domain.CalculateVolumeByRisk(
			p.accountBalance,
			p.riskFraction,
			stopPips,
			domain.PipValuePerLot(signal.BrokerSymbol),
		)
		if err == nil {
			cmd.Volume = volume
		}
	}

	return cmd
}

// deliver empuja un comando y lo transiciona a sent tras el push exitoso.
//
// replayed distingue la métrica de reenvío en reconexión del primer push.
func (p *Pipeline) deliver(ctx context.Context, cmd *domain.Command, replayed bool) {
	if err := p.pusher.Push(ctx, cmd); err != nil {
		if errors.Is(err, ErrNotConnected) {
			// Señal y comando quedan pending con el diagnóstico visible
			if cmd.SignalID != nil {
				_ = p.signals.UpdateStatus(ctx, *cmd.SignalID, domain.SignalStatusPending, "agent not connected")
			}
		} else {
			p.tel.Warn(ctx, "Command push failed, kept pending",
				semconv.Bridge.CommandID.String(cmd.CommandID),
				attribute.String("error", err.Error()),
			)
		}
		return
	}

	sent, err := p.commands.MarkSent(ctx, cmd.CommandID)
	if err != nil {
		p.tel.Error(ctx, "Failed to mark command sent", err,
			semconv.Bridge.CommandID.String(cmd.CommandID),
		)
		return
	}

	p.metrics.RecordCommandSent(ctx,
		semconv.Bridge.CommandID.String(cmd.CommandID),
	)
	if replayed {
		p.metrics.RecordCommandReplayed(ctx,
			semconv.Bridge.CommandID.String(cmd.CommandID),
		)
	}
	p.metrics.RecordLatencyDelivery(ctx, float64(sent.SentAtMs-sent.CreatedAtMs))
}

// HandleConnect replay-ea los comandos pending al conectar un canal.
//
// Solo pending, en orden de creación ascendente: un comando sent puede
// estar ejecutándose en el broker y reenviarlo duplicaría la orden.
func (p *Pipeline) HandleConnect(ctx context.Context) {
	pending, err := p.commands.Pending(ctx)
	if err != nil {
		p.tel.Error(ctx, "Failed to load pending commands for replay", err)
		return
	}

	for _, cmd := range pending {
		if !p.pusher.Connected() {
			return
		}
		p.deliver(ctx, cmd, true)
	}

	if len(pending) > 0 {
		p.tel.Info(ctx, "Pending commands replayed",
			attribute.Int("count", len(pending)),
		)
	}
}

// HandleReport procesa un reporte de ejecución del agent.
//
// Reglas:
//   - Comando desconocido: se registra la anomalía y se ignora (el agent
//     ya hizo su trabajo; no hay nada que transicionar).
//   - Resultado idempotente: el primer reporte por comando gana; los
//     duplicados no alteran timestamps ni estado.
//   - success → acknowledged y señal executed; failure → failed con el
//     diagnóstico del broker y señal failed.
//
// raw es el frame original del canal; queda junto al resultado para
// auditar qué reportó exactamente el agent.
func (p *Pipeline) HandleReport(ctx context.Context, report *domain.ReportMessage, raw []byte) {
	ctx, span := p.tel.StartSpan(ctx, "pipeline.report")
	defer span.End()

	p.tel.SetSpanAttributes(ctx,
		semconv.Bridge.CommandID.String(report.CommandID),
	)
	p.metrics.RecordReportReceived(ctx,
		semconv.Bridge.CommandID.String(report.CommandID),
	)

	cmd, err := p.commands.GetByID(ctx, report.CommandID)
	if err != nil {
		p.tel.RecordError(ctx, err)
		p.tel.Error(ctx, "Failed to load command for report", err,
			semconv.Bridge.CommandID.String(report.CommandID),
		)
		return
	}
	if cmd == nil {
		p.metrics.RecordReportUnknown(ctx,
			semconv.Bridge.CommandID.String(report.CommandID),
		)
		p.tel.Warn(ctx, "Report for unknown command ignored",
			semconv.Bridge.CommandID.String(report.CommandID),
		)
		return
	}

	result := &domain.ExecutionResult{
		ResultID:     utils.GenerateUUIDv7(),
		CommandID:    report.CommandID,
		Success:      report.Success,
		OrderID:      report.OrderID,
		PositionID:   report.PositionID,
		ErrorMessage: report.Error,
		RawPayload:   string(raw),
		ReceivedAtMs: utils.NowUnixMilli(),
	}
	recorded, err := p.results.Record(ctx, result)
	if err != nil {
		p.tel.Error(ctx, "Failed to record execution result", err,
			semconv.Bridge.CommandID.String(report.CommandID),
		)
		return
	}
	if recorded.ResultID != result.ResultID {
		// Reporte duplicado: el primero ya decidió el desenlace
		p.tel.Debug(ctx, "Duplicate report ignored",
			semconv.Bridge.CommandID.String(report.CommandID),
		)
		return
	}

	if report.Success {
		acked, err := p.commands.MarkAcknowledged(ctx, cmd.CommandID)
		if err != nil {
			p.tel.Warn(ctx, "Report arrived for non-transitionable command",
				semconv.Bridge.CommandID.String(cmd.CommandID),
				semconv.Bridge.Status.String(cmd.Status.String()),
				attribute.String("error", err.Error()),
			)
			return
		}

		p.metrics.RecordCommandAcknowledged(ctx,
			semconv.Bridge.CommandID.String(cmd.CommandID),
		)
		if acked.SentAtMs > 0 {
			p.metrics.RecordLatencyAck(ctx, float64(acked.AcknowledgedAtMs-acked.SentAtMs))
		}

		if cmd.SignalID != nil {
			if err := p.signals.UpdateStatus(ctx, *cmd.SignalID, domain.SignalStatusExecuted, ""); err != nil {
				p.tel.Error(ctx, "Failed to mark signal executed", err,
					semconv.Bridge.SignalID.String(*cmd.SignalID),
				)
			} else if sig, err := p.signals.GetByID(ctx, *cmd.SignalID); err == nil && sig != nil {
				p.metrics.RecordLatencyE2E(ctx, float64(utils.NowUnixMilli()-sig.CreatedAtMs))
			}
		}

		p.tel.Info(ctx, "Command acknowledged",
			semconv.Bridge.CommandID.String(cmd.CommandID),
			semconv.Bridge.OrderID.String(report.OrderID),
			semconv.Bridge.PositionTicket.String(report.PositionID),
		)
		return
	}

	if _, err := p.commands.MarkFailed(ctx, cmd.CommandID, report.Error); err != nil {
		p.tel.Warn(ctx, "Failure report arrived for non-transitionable command",
			semconv.Bridge.CommandID.String(cmd.CommandID),
			attribute.String("error", err.Error()),
		)
		return
	}

	p.metrics.RecordCommandFailed(ctx,
		semconv.Bridge.CommandID.String(cmd.CommandID),
		semconv.Bridge.Reason.String("execution"),
	)

	if cmd.SignalID != nil {
		if err := p.signals.UpdateStatus(ctx, *cmd.SignalID, domain.SignalStatusFailed, report.Error); err != nil {
			p.tel.Error(ctx, "Failed to mark signal failed", err,
				semconv.Bridge.SignalID.String(*cmd.SignalID),
			)
		}
	}

	p.tel.Warn(ctx, "Command failed at broker",
		semconv.Bridge.CommandID.String(cmd.CommandID),
		semconv.Bridge.Reason.String(report.Error),
	)
}

// SweepTimeouts falla los comandos sent cuya ventana de acknowledgment
// expiró y propaga el fallo a sus señales.
func (p *Pipeline) SweepTimeouts(ctx context.Context) {
	failed, err := p.commands.RetryTimedOut(ctx, utils.NowUnixMilli())
	if err != nil {
		p.tel.Error(ctx, "Timeout sweep failed", err)
	}

	for _, cmd := range failed {
		p.metrics.RecordCommandFailed(ctx,
			semconv.Bridge.CommandID.String(cmd.CommandID),
			semconv.Bridge.Reason.String("ack_timeout"),
		)
		p.tel.Warn(ctx, "Command timed out waiting for report",
			semconv.Bridge.CommandID.String(cmd.CommandID),
		)

		if cmd.SignalID != nil {
			if err := p.signals.UpdateStatus(ctx, *cmd.SignalID, domain.SignalStatusFailed, cmd.ErrorMessage); err != nil {
				p.tel.Error(ctx, "Failed to mark signal failed after timeout", err,
					semconv.Bridge.SignalID.String(*cmd.SignalID),
				)
			}
		}
	}
}
