package internal

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/metricbundle"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"
)

// PositionManager ejecuta el plan de salida por etapas.
//
// Para una posición con entry P y distancia D (|entry - stop|):
//
//	Etapa 1: al alcanzar P ± D, cierra la fracción configurada (75%).
//	Etapa 2: en un único modify, mueve el stop a break-even (P) y fija
//	         el target del runner en P ± 2D.
//
// Garantías:
//   - El cierre parcial nunca se reintenta a ciegas: el volumen a
//     cerrar se deriva del volumen actual del broker, y una reducción
//     ya observada salta directo al modify.
//   - Un modify fallido se reintenta en el siguiente tick sin repetir
//     el cierre.
//   - Una posición desaparecida (stop, target o cierre manual) limpia
//     su plan sin tocar el broker.
type PositionManager struct {
	broker  Broker
	ledger  *Ledger
	config  *Config
	tel     *telemetry.Client
	metrics *metricbundle.BridgeMetrics
}

// NewPositionManager crea el gestor de posiciones.
func NewPositionManager(broker Broker, ledger *Ledger, cfg *Config, tel *telemetry.Client, metrics *metricbundle.BridgeMetrics) *PositionManager {
	return &PositionManager{
		broker:  broker,
		ledger:  ledger,
		config:  cfg,
		tel:     tel,
		metrics: metrics,
	}
}

// Tick revisa todos los planes activos una vez.
//
// Los errores de un plan no frenan a los demás; cada uno se reintenta
// en el siguiente tick.
func (m *PositionManager) Tick(ctx context.Context) {
	targets, err := m.ledger.ActiveTargets()
	if err != nil {
		m.tel.Error(ctx, "Failed to load exit plans", err)
		return
	}

	for _, target := range targets {
		if err := m.manage(ctx, target); err != nil {
			m.tel.Warn(ctx, "Exit plan step failed, will retry",
				semconv.Bridge.PositionTicket.String(target.Ticket),
				attribute.String("error", err.Error()),
			)
		}
	}
}

func (m *PositionManager) manage(ctx context.Context, target *PositionTarget) error {
	pos, err := m.broker.Position(ctx, target.Ticket)
	if err != nil {
		return err
	}
	if pos == nil {
		// Cerrada por stop, target o manualmente: plan terminado
		m.tel.Info(ctx, "Position gone, exit plan discarded",
			semconv.Bridge.PositionTicket.String(target.Ticket),
		)
		return m.ledger.DeleteTarget(target.Ticket)
	}

	switch target.Stage {
	case StageArmed:
		return m.stageOne(ctx, target, pos)
	case StagePartialDone:
		return m.stageTwo(ctx, target)
	}
	return nil
}

// stageOne cierra la fracción configurada cuando el precio alcanza D.
func (m *PositionManager) stageOne(ctx context.Context, target *PositionTarget, pos *domain.Position) error {
	// Reducción ya observada: el cierre parcial ocurrió (por nosotros o
	// por el operador) y se perdió la transición. No cerrar de nuevo.
	if pos.Volume < target.InitialVolume {
		target.Stage = StagePartialDone
		if err := m.ledger.PutTarget(target); err != nil {
			return err
		}
		return m.stageTwo(ctx, target)
	}

	bid, ask, err := m.broker.Quote(ctx, target.Symbol)
	if err != nil {
		return err
	}

	// La salida de un BUY ejecuta contra bid; la de un SELL contra ask
	reached := false
	if target.Direction == domain.DirectionSell {
		reached = ask <= target.StageOnePrice()
	} else {
		reached = bid >= target.StageOnePrice()
	}
	if !reached {
		return nil
	}

	spec, err := m.broker.VolumeSpec(ctx, target.Symbol)
	if err != nil {
		return err
	}

	closeVolume, _ := domain.ClampVolume(spec, m.config.PartialExitRatio*pos.Volume)

	// Si el remanente quedaría por debajo del mínimo operable, cerrar
	// todo: un runner inoperable no sirve
	if pos.Volume-closeVolume < spec.MinVolume {
		if err := m.broker.ClosePartial(ctx, target.Ticket, 0); err != nil {
			return err
		}
		m.metrics.RecordPositionPartialExit(ctx,
			semconv.Bridge.PositionTicket.String(target.Ticket),
			semconv.Bridge.Reason.String("full_close_below_min"),
		)
		return m.ledger.DeleteTarget(target.Ticket)
	}

	if err := m.broker.ClosePartial(ctx, target.Ticket, closeVolume); err != nil {
		return err
	}

	m.metrics.RecordPositionPartialExit(ctx,
		semconv.Bridge.PositionTicket.String(target.Ticket),
		semconv.Bridge.Symbol.String(target.Symbol),
	)
	m.tel.Info(ctx, "Partial exit executed",
		semconv.Bridge.PositionTicket.String(target.Ticket),
		semconv.Bridge.Symbol.String(target.Symbol),
		attribute.Float64("closed_volume", closeVolume),
		attribute.Float64("remaining_volume", pos.Volume-closeVolume),
	)

	target.Stage = StagePartialDone
	if err := m.ledger.PutTarget(target); err != nil {
		return err
	}

	// Intentar el modify de inmediato; si falla, queda para el próximo tick
	return m.stageTwo(ctx, target)
}

// stageTwo arma el runner: break-even y target extendido en un modify.
func (m *PositionManager) stageTwo(ctx context.Context, target *PositionTarget) error {
	if err := m.broker.Modify(ctx, target.Ticket, target.EntryPrice, target.RunnerTargetPrice()); err != nil {
		return err
	}

	m.metrics.RecordPositionBreakEven(ctx,
		semconv.Bridge.PositionTicket.String(target.Ticket),
		semconv.Bridge.Symbol.String(target.Symbol),
	)
	m.tel.Info(ctx, "Runner armed: break-even stop and extended target",
		semconv.Bridge.PositionTicket.String(target.Ticket),
		semconv.Bridge.StopLoss.Float64(target.EntryPrice),
		semconv.Bridge.TakeProfit.Float64(target.RunnerTargetPrice()),
	)

	target.Stage = StageComplete
	return m.ledger.PutTarget(target)
}
