package internal

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/metricbundle"
)

type managerFixture struct {
	manager *PositionManager
	broker  *SimBroker
	ledger  *Ledger
	config  *Config
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	broker := NewSimBroker(10_000)
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })

	metrics, err := metricbundle.NewBridgeMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics bundle: %v", err)
	}

	cfg := newTestConfig()
	return &managerFixture{
		manager: NewPositionManager(broker, ledger, cfg, newTestTelemetry(t), metrics),
		broker:  broker,
		ledger:  ledger,
		config:  cfg,
	}
}

// openWithPlan abre una posición en el simulador y registra su plan de
// salida con la distancia stage-1 dada, igual que lo haría el executor
// tras un TRADE con target out-of-band.
func (f *managerFixture) openWithPlan(t *testing.T, direction domain.Direction, entry, distance, volume float64) *PositionTarget {
	t.Helper()
	ctx := context.Background()

	f.broker.SetQuote("EURUSD", entry, entry)
	result, err := f.broker.Open(ctx, &OpenRequest{
		Symbol:    "EURUSD",
		Direction: direction,
		Volume:    volume,
	})
	if err != nil {
		t.Fatalf("failed to open position: %v", err)
	}

	target := &PositionTarget{
		Ticket:        result.Ticket,
		Symbol:        "EURUSD",
		Direction:     direction,
		EntryPrice:    result.Price,
		Distance:      distance,
		InitialVolume: volume,
		Stage:         StageArmed,
	}
	if err := f.ledger.PutTarget(target); err != nil {
		t.Fatalf("failed to put target: %v", err)
	}
	return target
}

func TestManagerStagedExit(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	// Entrada 1.10000 con D = 50 pips
	target := f.openWithPlan(t, domain.DirectionBuy, 1.10000, 0.00500, 1.00)

	// Por debajo del trigger no pasa nada
	f.broker.SetQuote("EURUSD", 1.10400, 1.10402)
	f.manager.Tick(ctx)

	pos, _ := f.broker.Position(ctx, target.Ticket)
	if pos == nil || pos.Volume != 1.00 {
		t.Fatalf("expected untouched position, got %+v", pos)
	}

	// En 1.10500 (entry + D) dispara el cierre parcial y el modify
	f.broker.SetQuote("EURUSD", 1.10500, 1.10502)
	f.manager.Tick(ctx)

	pos, _ = f.broker.Position(ctx, target.Ticket)
	if pos == nil {
		t.Fatal("expected runner position to survive")
	}
	if math.Abs(pos.Volume-0.25) > 1e-9 {
		t.Fatalf("expected 75%% closed leaving 0.25, got %f", pos.Volume)
	}

	stopLoss, takeProfit, ok := f.broker.LastModify(target.Ticket)
	if !ok {
		t.Fatal("expected modify applied to runner")
	}
	if math.Abs(stopLoss-1.10000) > 1e-9 {
		t.Fatalf("expected break-even stop 1.10000, got %f", stopLoss)
	}
	if math.Abs(takeProfit-1.11000) > 1e-9 {
		t.Fatalf("expected runner target 1.11000, got %f", takeProfit)
	}

	stored, err := f.ledger.GetTarget(target.Ticket)
	if err != nil {
		t.Fatalf("failed to read target: %v", err)
	}
	if stored == nil || stored.Stage != StageComplete {
		t.Fatalf("expected stage complete, got %+v", stored)
	}

	// Un tick posterior no vuelve a tocar la posición
	f.manager.Tick(ctx)
	pos, _ = f.broker.Position(ctx, target.Ticket)
	if pos == nil || math.Abs(pos.Volume-0.25) > 1e-9 {
		t.Fatalf("expected runner untouched on later ticks, got %+v", pos)
	}
}

func TestManagerStagedExitSell(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	// SELL en 1.20000 con D = 100 pips hacia abajo
	target := f.openWithPlan(t, domain.DirectionSell, 1.20000, 0.01000, 0.40)

	f.broker.SetQuote("EURUSD", 1.18998, 1.19000)
	f.manager.Tick(ctx)

	pos, _ := f.broker.Position(ctx, target.Ticket)
	if pos == nil {
		t.Fatal("expected runner position to survive")
	}
	if math.Abs(pos.Volume-0.10) > 1e-9 {
		t.Fatalf("expected 75%% closed leaving 0.10, got %f", pos.Volume)
	}

	stopLoss, takeProfit, ok := f.broker.LastModify(target.Ticket)
	if !ok {
		t.Fatal("expected modify applied to runner")
	}
	if math.Abs(stopLoss-1.20000) > 1e-9 {
		t.Fatalf("expected break-even stop 1.20000, got %f", stopLoss)
	}
	if math.Abs(takeProfit-1.18000) > 1e-9 {
		t.Fatalf("expected runner target 1.18000, got %f", takeProfit)
	}
}

// failingModifyBroker fuerza fallos de modify para probar el reintento.
type failingModifyBroker struct {
	*SimBroker
	failures int
}

func (b *failingModifyBroker) Modify(ctx context.Context, ticket string, stopLoss, takeProfit float64) error {
	if b.failures > 0 {
		b.failures--
		return fmt.Errorf("broker busy")
	}
	return b.SimBroker.Modify(ctx, ticket, stopLoss, takeProfit)
}

func TestManagerModifyFailureRetriesWithoutSecondPartial(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	broker := &failingModifyBroker{SimBroker: f.broker, failures: 1}
	f.manager = NewPositionManager(broker, f.ledger, f.config, newTestTelemetry(t), f.manager.metrics)

	target := f.openWithPlan(t, domain.DirectionBuy, 1.10000, 0.00500, 1.00)
	f.broker.SetQuote("EURUSD", 1.10500, 1.10502)

	// Primer tick: parcial ejecuta, modify falla
	f.manager.Tick(ctx)

	pos, _ := f.broker.Position(ctx, target.Ticket)
	if pos == nil || math.Abs(pos.Volume-0.25) > 1e-9 {
		t.Fatalf("expected partial executed once, got %+v", pos)
	}
	stored, _ := f.ledger.GetTarget(target.Ticket)
	if stored == nil || stored.Stage != StagePartialDone {
		t.Fatalf("expected stage partial-done pending modify, got %+v", stored)
	}

	// Segundo tick: reintenta solo el modify, sin segundo cierre
	f.manager.Tick(ctx)

	pos, _ = f.broker.Position(ctx, target.Ticket)
	if pos == nil || math.Abs(pos.Volume-0.25) > 1e-9 {
		t.Fatalf("expected no second partial close, got %+v", pos)
	}
	stopLoss, takeProfit, ok := f.broker.LastModify(target.Ticket)
	if !ok || math.Abs(stopLoss-1.10000) > 1e-9 || math.Abs(takeProfit-1.11000) > 1e-9 {
		t.Fatalf("expected retried modify with break-even levels, got %f/%f (%v)", stopLoss, takeProfit, ok)
	}
	stored, _ = f.ledger.GetTarget(target.Ticket)
	if stored == nil || stored.Stage != StageComplete {
		t.Fatalf("expected stage complete after retry, got %+v", stored)
	}
}

func TestManagerSkipsPartialWhenVolumeAlreadyReduced(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	target := f.openWithPlan(t, domain.DirectionBuy, 1.10000, 0.00500, 1.00)

	// Reducción externa (operador o crash tras el parcial): el manager
	// no debe cerrar de nuevo
	if err := f.broker.ClosePartial(ctx, target.Ticket, 0.75); err != nil {
		t.Fatalf("failed to reduce position: %v", err)
	}

	f.broker.SetQuote("EURUSD", 1.10500, 1.10502)
	f.manager.Tick(ctx)

	pos, _ := f.broker.Position(ctx, target.Ticket)
	if pos == nil || math.Abs(pos.Volume-0.25) > 1e-9 {
		t.Fatalf("expected volume untouched at 0.25, got %+v", pos)
	}
	stopLoss, takeProfit, ok := f.broker.LastModify(target.Ticket)
	if !ok || math.Abs(stopLoss-1.10000) > 1e-9 || math.Abs(takeProfit-1.11000) > 1e-9 {
		t.Fatalf("expected modify despite skipped partial, got %f/%f (%v)", stopLoss, takeProfit, ok)
	}
}

func TestManagerDiscardsPlanWhenPositionGone(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	target := f.openWithPlan(t, domain.DirectionBuy, 1.10000, 0.00500, 1.00)

	// Cerrada por completo fuera del manager (stop o cierre manual)
	if err := f.broker.ClosePartial(ctx, target.Ticket, 0); err != nil {
		t.Fatalf("failed to close position: %v", err)
	}

	f.manager.Tick(ctx)

	stored, err := f.ledger.GetTarget(target.Ticket)
	if err != nil {
		t.Fatalf("failed to read target: %v", err)
	}
	if stored != nil {
		t.Fatalf("expected plan discarded, got %+v", stored)
	}
}

func TestManagerClosesAllWhenRemainderBelowMinimum(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	// Con 0.01 lotes el 75% clampa al mínimo y el remanente quedaría en
	// cero: se cierra todo
	target := f.openWithPlan(t, domain.DirectionBuy, 1.10000, 0.00500, 0.01)

	f.broker.SetQuote("EURUSD", 1.10500, 1.10502)
	f.manager.Tick(ctx)

	pos, _ := f.broker.Position(ctx, target.Ticket)
	if pos != nil {
		t.Fatalf("expected full close, got %+v", pos)
	}
	stored, _ := f.ledger.GetTarget(target.Ticket)
	if stored != nil {
		t.Fatalf("expected plan removed after full close, got %+v", stored)
	}
}
