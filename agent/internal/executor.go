package internal

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"
)

// Executor traduce comandos del core a operaciones del broker.
//
// Reglas:
//   - Idempotencia: un comando ya procesado (presente en el ledger)
//     retorna su reporte original sin tocar el broker. Los replays del
//     core nunca duplican órdenes.
//   - TRADE nunca abre con take profit: el plan de salida se registra
//     en el ledger y lo ejecuta el PositionManager.
//   - Cuenta sin hedging: una señal opuesta cierra primero las
//     posiciones contrarias del símbolo.
//   - Todo comando produce exactamente un reporte, éxito o fallo.
type Executor struct {
	broker Broker
	ledger *Ledger
	config *Config
	tel    *telemetry.Client
}

// NewExecutor crea el ejecutor de comandos.
func NewExecutor(broker Broker, ledger *Ledger, cfg *Config, tel *telemetry.Client) *Executor {
	return &Executor{
		broker: broker,
		ledger: ledger,
		config: cfg,
		tel:    tel,
	}
}

// Execute procesa un comando y retorna su reporte.
//
// Nunca retorna nil: los fallos del broker se convierten en reportes
// con success=false y diagnóstico.
func (e *Executor) Execute(ctx context.Context, msg *domain.CommandMessage) *domain.ReportMessage {
	// Comando ya procesado: re-emitir el desenlace original
	if prior, err := e.ledger.GetReport(msg.ID); err == nil && prior != nil {
		e.tel.Info(ctx, "Duplicate command, re-reporting original outcome",
			semconv.Bridge.CommandID.String(msg.ID),
		)
		return prior
	}

	var report *domain.ReportMessage
	switch msg.Action {
	case domain.ActionTrade:
		report = e.executeTrade(ctx, msg)
	case domain.ActionClose:
		report = e.executeClose(ctx, msg)
	case domain.ActionPing:
		report = &domain.ReportMessage{CommandID: msg.ID, Success: true}
	default:
		report = &domain.ReportMessage{
			CommandID: msg.ID,
			Success:   false,
			Error:     fmt.Sprintf("unknown action: %s", msg.Action),
		}
	}

	if err := e.ledger.PutReport(report); err != nil {
		e.tel.Error(ctx, "Failed to persist report in ledger", err,
			semconv.Bridge.CommandID.String(msg.ID),
		)
	}

	return report
}

func (e *Executor) executeTrade(ctx context.Context, msg *domain.CommandMessage) *domain.ReportMessage {
	fail := func(format string, args ...interface{}) *domain.ReportMessage {
		return &domain.ReportMessage{
			CommandID: msg.ID,
			Success:   false,
			Error:     fmt.Sprintf(format, args...),
		}
	}

	if msg.Symbol == "" {
		return fail("trade without symbol")
	}
	if err := domain.ValidateDirection(msg.Type); err != nil {
		return fail("invalid direction: %v", err)
	}

	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return fail("failed to read positions: %v", err)
	}

	// Cuenta sin hedging: cerrar las contrarias del símbolo primero
	if !e.config.HedgingEnabled {
		opposite := msg.Type.Opposite()
		for _, pos := range positions {
			if pos.Symbol != msg.Symbol || pos.Direction != opposite {
				continue
			}
			if err := e.broker.ClosePartial(ctx, pos.Ticket, 0); err != nil {
				return fail("failed to close opposite position %s: %v", pos.Ticket, err)
			}
			_ = e.ledger.DeleteTarget(pos.Ticket)
			e.tel.Info(ctx, "Opposite position closed before trade",
				semconv.Bridge.PositionTicket.String(pos.Ticket),
				semconv.Bridge.Symbol.String(pos.Symbol),
			)
		}
		// Releer: el cierre cambió el conteo
		positions, err = e.broker.Positions(ctx)
		if err != nil {
			return fail("failed to re-read positions: %v", err)
		}
	}

	// El cap es por símbolo, no global
	sameSymbol := 0
	for _, pos := range positions {
		if pos.Symbol == msg.Symbol {
			sameSymbol++
		}
	}
	if e.config.MaxPositions > 0 && sameSymbol >= e.config.MaxPositions {
		return fail("max positions reached for %s (%d)", msg.Symbol, e.config.MaxPositions)
	}

	volume, err := e.sizeVolume(ctx, msg)
	if err != nil {
		return fail("failed to size volume: %v", err)
	}

	req := &OpenRequest{
		Symbol:    msg.Symbol,
		Direction: msg.Type,
		Volume:    volume,
	}
	if msg.StopLoss != nil {
		req.StopLoss = *msg.StopLoss
	}

	result, err := e.broker.Open(ctx, req)
	if err != nil {
		return fail("broker rejected open: %v", err)
	}

	// Registrar el plan de salida por etapas. La distancia del stage 1
	// sale de la config (pips fijos) o del target out-of-band que trae
	// el comando; sin ninguna de las dos la posición queda sin plan.
	distance := 0.0
	if e.config.UseFixedExit && e.config.FixedExitPips > 0 {
		distance = e.config.FixedExitPips * domain.PipSize(msg.Symbol)
	} else if msg.TakeProfit != nil && *msg.TakeProfit > 0 {
		distance = math.Abs(*msg.TakeProfit - result.Price)
	}
	if distance > 0 {
		target := &PositionTarget{
			Ticket:        result.Ticket,
			Symbol:        msg.Symbol,
			Direction:     msg.Type,
			EntryPrice:    result.Price,
			Distance:      distance,
			InitialVolume: volume,
			Stage:         StageArmed,
			CommandID:     msg.ID,
		}
		if err := e.ledger.PutTarget(target); err != nil {
			e.tel.Error(ctx, "Failed to persist exit plan", err,
				semconv.Bridge.PositionTicket.String(result.Ticket),
			)
		}
	}

	e.tel.Info(ctx, "Trade executed",
		semconv.Bridge.CommandID.String(msg.ID),
		semconv.Bridge.Symbol.String(msg.Symbol),
		semconv.Bridge.Direction.String(msg.Type.String()),
		semconv.Bridge.Volume.Float64(volume),
		semconv.Bridge.PositionTicket.String(result.Ticket),
	)

	return &domain.ReportMessage{
		CommandID:  msg.ID,
		Success:    true,
		OrderID:    result.OrderID,
		PositionID: result.Ticket,
	}
}

// sizeVolume decide el volumen final de un trade.
//
// El volumen del core es la referencia; si falta, se dimensiona aquí
// por riesgo con el balance real de la cuenta. En ambos casos el clamp
// contra la especificación del broker es la palabra final.
func (e *Executor) sizeVolume(ctx context.Context, msg *domain.CommandMessage) (float64, error) {
	volume := 0.0
	if msg.Volume != nil {
		volume = *msg.Volume
	}

	if volume <= 0 && msg.StopLoss != nil {
		balance, err := e.broker.Balance(ctx)
		if err != nil {
			return 0, err
		}
		bid, ask, err := e.broker.Quote(ctx, msg.Symbol)
		if err != nil {
			return 0, err
		}
		price := ask
		if msg.Type == domain.DirectionSell {
			price = bid
		}
		stopPips := math.Abs(domain.PriceDistanceToPips(msg.Symbol, price-*msg.StopLoss))
		volume, err = domain.CalculateVolumeByRisk(
			balance,
			e.config.RiskFraction,
			stopPips,
			domain.PipValuePerLot(msg.Symbol),
		)
		if err != nil {
			return 0, err
		}
	}

	spec, err := e.broker.VolumeSpec(ctx, msg.Symbol)
	if err != nil {
		return 0, err
	}

	clamped, clampErr := domain.ClampVolume(spec, volume)
	if clampErr != nil {
		e.tel.Warn(ctx, "Volume clamped to broker spec",
			semconv.Bridge.CommandID.String(msg.ID),
			attribute.Float64("requested", volume),
			attribute.Float64("clamped", clamped),
		)
	}
	if clamped <= 0 {
		return 0, fmt.Errorf("volume %f not executable", volume)
	}
	return clamped, nil
}

func (e *Executor) executeClose(ctx context.Context, msg *domain.CommandMessage) *domain.ReportMessage {
	if msg.PositionID == "" {
		return &domain.ReportMessage{
			CommandID: msg.ID,
			Success:   false,
			Error:     "close without positionId",
		}
	}

	pos, err := e.broker.Position(ctx, msg.PositionID)
	if err != nil {
		return &domain.ReportMessage{
			CommandID: msg.ID,
			Success:   false,
			Error:     fmt.Sprintf("failed to read position: %v", err),
		}
	}
	if pos == nil {
		// Ya cerrada (stop, target o manual): el objetivo del comando
		// se cumplió de todas formas
		_ = e.ledger.DeleteTarget(msg.PositionID)
		return &domain.ReportMessage{
			CommandID:  msg.ID,
			Success:    true,
			PositionID: msg.PositionID,
		}
	}

	if err := e.broker.ClosePartial(ctx, msg.PositionID, 0); err != nil {
		return &domain.ReportMessage{
			CommandID: msg.ID,
			Success:   false,
			Error:     fmt.Sprintf("broker rejected close: %v", err),
		}
	}
	_ = e.ledger.DeleteTarget(msg.PositionID)

	e.tel.Info(ctx, "Position closed",
		semconv.Bridge.CommandID.String(msg.ID),
		semconv.Bridge.PositionTicket.String(msg.PositionID),
	)

	return &domain.ReportMessage{
		CommandID:  msg.ID,
		Success:    true,
		PositionID: msg.PositionID,
	}
}
