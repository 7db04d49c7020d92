package internal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/metricbundle"
)

type stubResultRepo struct {
	results map[string]*domain.ExecutionResult
}

func newStubResultRepo() *stubResultRepo {
	return &stubResultRepo{results: make(map[string]*domain.ExecutionResult)}
}

func (s *stubResultRepo) Record(ctx context.Context, result *domain.ExecutionResult) (*domain.ExecutionResult, error) {
	if existing, ok := s.results[result.CommandID]; ok {
		clone := *existing
		return &clone, nil
	}
	clone := *result
	s.results[result.CommandID] = &clone
	return result, nil
}

func (s *stubResultRepo) GetByCommandID(ctx context.Context, commandID string) (*domain.ExecutionResult, error) {
	result, ok := s.results[commandID]
	if !ok {
		return nil, nil
	}
	clone := *result
	return &clone, nil
}

func (s *stubResultRepo) List(ctx context.Context, limit, offset int) ([]*domain.ExecutionResult, error) {
	var out []*domain.ExecutionResult
	for _, r := range s.results {
		clone := *r
		out = append(out, &clone)
	}
	return out, nil
}

type stubPusher struct {
	connected bool
	pushed    []*domain.Command
	err       error
}

func (s *stubPusher) Push(ctx context.Context, cmd *domain.Command) error {
	if !s.connected {
		return ErrNotConnected
	}
	if s.err != nil {
		return s.err
	}
	clone := *cmd
	s.pushed = append(s.pushed, &clone)
	return nil
}

func (s *stubPusher) Connected() bool {
	return s.connected
}

type pipelineFixture struct {
	pipeline *Pipeline
	signals  *stubSignalRepo
	commands *stubCommandRepo
	results  *stubResultRepo
	pusher   *stubPusher
	resolver *SymbolResolver
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	ctx := context.Background()

	tel, err := telemetry.New(ctx, "bridge-core-test", "test",
		telemetry.WithLogsDisabled(),
		telemetry.WithMetricsDisabled(),
		telemetry.WithTracesDisabled(),
	)
	if err != nil {
		t.Fatalf("failed to create telemetry client: %v", err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(ctx) })

	metrics, err := metricbundle.NewBridgeMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics bundle: %v", err)
	}

	signals := newStubSignalRepo()
	commands := newStubCommandRepo()
	results := newStubResultRepo()
	pusher := &stubPusher{connected: true}

	symbols := newStubSymbolRepo()
	resolver := NewSymbolResolver(ctx, symbols, tel, 16)
	resolver.Start()
	t.Cleanup(resolver.Stop)

	pipeline := NewPipeline(
		signals,
		results,
		NewCommandService(commands, 60_000),
		NewDedupeService(signals, 60_000, 200),
		resolver,
		pusher,
		0.01, 10_000,
		tel,
		metrics,
	)

	return &pipelineFixture{
		pipeline: pipeline,
		signals:  signals,
		commands: commands,
		results:  results,
		pusher:   pusher,
		resolver: resolver,
	}
}

// stubSymbolRepo es goroutine-safe: el worker de persistencia del
// resolver lo toca desde su propia goroutine.
type stubSymbolRepo struct {
	mu       sync.Mutex
	mappings map[string]*domain.SymbolMapping
}

func newStubSymbolRepo() *stubSymbolRepo {
	return &stubSymbolRepo{mappings: make(map[string]*domain.SymbolMapping)}
}

func (s *stubSymbolRepo) Upsert(ctx context.Context, mapping *domain.SymbolMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *mapping
	s.mappings[mapping.ExternalSymbol] = &clone
	return nil
}

func (s *stubSymbolRepo) GetByExternal(ctx context.Context, externalSymbol string) (*domain.SymbolMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mappings[externalSymbol]
	if !ok {
		return nil, nil
	}
	clone := *m
	return &clone, nil
}

func (s *stubSymbolRepo) List(ctx context.Context) ([]*domain.SymbolMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.SymbolMapping
	for _, m := range s.mappings {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

const buyAlert = `{
	"symbol": "OANDA:EURUSD",
	"direction": "buy",
	"price": 1.10500,
	"stopLoss": 1.10000,
	"source": "trend-follower"
}`

func TestPipelineIngestAlert(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	signal, err := f.pipeline.IngestAlert(ctx, []byte(buyAlert))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.SignalID == "" {
		t.Fatalf("expected generated signal id")
	}
	if signal.BrokerSymbol != "EURUSD" {
		t.Fatalf("expected resolved symbol EURUSD, got %s", signal.BrokerSymbol)
	}

	stored, err := f.signals.GetByID(ctx, signal.SignalID)
	if err != nil || stored == nil {
		t.Fatalf("expected persisted signal, got %v, %v", stored, err)
	}

	if len(f.pusher.pushed) != 1 {
		t.Fatalf("expected 1 pushed command, got %d", len(f.pusher.pushed))
	}
	pushed := f.pusher.pushed[0]
	if pushed.Action != domain.ActionTrade {
		t.Fatalf("expected TRADE, got %s", pushed.Action)
	}
	if pushed.TakeProfit != nil {
		t.Fatalf("expected no stage-1 target without alert takeProfit, got %v", *pushed.TakeProfit)
	}

	// 10000 * 0.01 / (50 pips * 10 USD/pip) = 0.2 lots
	if pushed.Volume < 0.199 || pushed.Volume > 0.201 {
		t.Fatalf("expected risk-sized volume 0.2, got %f", pushed.Volume)
	}

	cmd, err := f.commands.GetByID(ctx, pushed.CommandID)
	if err != nil || cmd == nil {
		t.Fatalf("expected persisted command, got %v, %v", cmd, err)
	}
	if cmd.Status != domain.CommandStatusSent {
		t.Fatalf("expected sent after push, got %s", cmd.Status)
	}
}

func TestPipelineIngestCarriesTarget(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	alert := `{
		"symbol": "OANDA:EURUSD",
		"direction": "buy",
		"price": 1.10500,
		"stopLoss": 1.10000,
		"takeProfit": 1.11000,
		"source": "trend-follower"
	}`

	if _, err := f.pipeline.IngestAlert(ctx, []byte(alert)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.pusher.pushed) != 1 {
		t.Fatalf("expected 1 pushed command, got %d", len(f.pusher.pushed))
	}
	pushed := f.pusher.pushed[0]
	if pushed.TakeProfit == nil || *pushed.TakeProfit != 1.11000 {
		t.Fatalf("expected stage-1 target 1.11000 carried on command, got %v", pushed.TakeProfit)
	}
}

func TestPipelineIngestDuplicate(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	if _, err := f.pipeline.IngestAlert(ctx, []byte(buyAlert)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.pipeline.IngestAlert(ctx, []byte(buyAlert))
	var dup *DedupeError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DedupeError, got %v", err)
	}

	if len(f.pusher.pushed) != 1 {
		t.Fatalf("expected duplicate not pushed, got %d pushes", len(f.pusher.pushed))
	}
}

func TestPipelineIngestRejectsMalformed(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "not json at all"},
		{"missing direction", `{"symbol": "EURUSD"}`},
		{"unknown direction", `{"symbol": "EURUSD", "direction": "hold"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.pipeline.IngestAlert(ctx, []byte(tc.payload)); err == nil {
				t.Fatalf("expected rejection for %q", tc.payload)
			}
		})
	}

	if len(f.pusher.pushed) != 0 {
		t.Fatalf("expected no pushes for rejected alerts")
	}
}

func TestPipelineOfflineThenReplay(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.pusher.connected = false

	signal, err := f.pipeline.IngestAlert(ctx, []byte(buyAlert))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending, err := f.commands.Pending(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending command while offline, got %d", len(pending))
	}
	original := pending[0]

	// El canal conecta: el comando viaja idéntico y pasa a sent
	f.pusher.connected = true
	f.pipeline.HandleConnect(ctx)

	if len(f.pusher.pushed) != 1 {
		t.Fatalf("expected 1 replayed command, got %d", len(f.pusher.pushed))
	}
	replayed := f.pusher.pushed[0]
	if replayed.CommandID != original.CommandID {
		t.Fatalf("expected replay of %s, got %s", original.CommandID, replayed.CommandID)
	}
	if replayed.Symbol != original.Symbol || replayed.Volume != original.Volume {
		t.Fatalf("expected command replayed verbatim")
	}

	cmd, err := f.commands.GetByID(ctx, original.CommandID)
	if err != nil || cmd == nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Status != domain.CommandStatusSent {
		t.Fatalf("expected sent after replay, got %s", cmd.Status)
	}

	// La señal sigue pending hasta el reporte
	sig, err := f.signals.GetByID(ctx, signal.SignalID)
	if err != nil || sig == nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig.Status != domain.SignalStatusPending {
		t.Fatalf("expected signal pending, got %s", sig.Status)
	}
}

func TestPipelineReplayOrderAndScope(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	f.pusher.connected = false

	alerts := []string{
		`{"symbol": "EURUSD", "direction": "buy"}`,
		`{"symbol": "GBPUSD", "direction": "sell"}`,
		`{"symbol": "USDJPY", "direction": "buy"}`,
	}
	for _, alert := range alerts {
		if _, err := f.pipeline.IngestAlert(ctx, []byte(alert)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	pending, err := f.commands.Pending(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(pending))
	}

	// El segundo ya viajó en una conexión anterior: no se replay-ea
	stored := f.commands.commands[pending[1].CommandID]
	stored.Status = domain.CommandStatusSent
	stored.SentAtMs = stored.CreatedAtMs + 1

	f.pusher.connected = true
	f.pipeline.HandleConnect(ctx)

	if len(f.pusher.pushed) != 2 {
		t.Fatalf("expected 2 replayed commands, got %d", len(f.pusher.pushed))
	}
	if f.pusher.pushed[0].Symbol != "EURUSD" || f.pusher.pushed[1].Symbol != "USDJPY" {
		t.Fatalf("expected creation order EURUSD, USDJPY; got %s, %s",
			f.pusher.pushed[0].Symbol, f.pusher.pushed[1].Symbol)
	}
}

func TestPipelineHandleReportSuccess(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	signal, err := f.pipeline.IngestAlert(ctx, []byte(buyAlert))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	commandID := f.pusher.pushed[0].CommandID

	rawReport := `{"commandId": "` + commandID + `", "success": true, "orderId": "ord-1", "positionId": "184523"}`
	f.pipeline.HandleReport(ctx, &domain.ReportMessage{
		CommandID:  commandID,
		Success:    true,
		OrderID:    "ord-1",
		PositionID: "184523",
	}, []byte(rawReport))

	cmd, _ := f.commands.GetByID(ctx, commandID)
	if cmd.Status != domain.CommandStatusAcknowledged {
		t.Fatalf("expected acknowledged, got %s", cmd.Status)
	}

	sig, _ := f.signals.GetByID(ctx, signal.SignalID)
	if sig.Status != domain.SignalStatusExecuted {
		t.Fatalf("expected signal executed, got %s", sig.Status)
	}

	result, err := f.results.GetByCommandID(ctx, commandID)
	if err != nil || result == nil {
		t.Fatalf("expected recorded result, got %v, %v", result, err)
	}
	if !result.Success || result.PositionID != "184523" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.RawPayload != rawReport {
		t.Fatalf("expected raw frame stored with result, got %q", result.RawPayload)
	}
}

func TestPipelineHandleReportFailure(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	signal, err := f.pipeline.IngestAlert(ctx, []byte(buyAlert))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	commandID := f.pusher.pushed[0].CommandID

	f.pipeline.HandleReport(ctx, &domain.ReportMessage{
		CommandID: commandID,
		Success:   false,
		Error:     "not enough money",
	}, nil)

	cmd, _ := f.commands.GetByID(ctx, commandID)
	if cmd.Status != domain.CommandStatusFailed {
		t.Fatalf("expected failed, got %s", cmd.Status)
	}
	if cmd.ErrorMessage != "not enough money" {
		t.Fatalf("expected broker diagnostic, got %q", cmd.ErrorMessage)
	}

	sig, _ := f.signals.GetByID(ctx, signal.SignalID)
	if sig.Status != domain.SignalStatusFailed {
		t.Fatalf("expected signal failed, got %s", sig.Status)
	}
}

func TestPipelineHandleReportUnknownCommand(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	// No debe pánico ni persistir nada
	f.pipeline.HandleReport(ctx, &domain.ReportMessage{
		CommandID: "cmd-from-previous-life",
		Success:   true,
	}, nil)

	if len(f.results.results) != 0 {
		t.Fatalf("expected no result recorded for unknown command")
	}
}

func TestPipelineHandleReportIdempotent(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	if _, err := f.pipeline.IngestAlert(ctx, []byte(buyAlert)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	commandID := f.pusher.pushed[0].CommandID

	f.pipeline.HandleReport(ctx, &domain.ReportMessage{
		CommandID:  commandID,
		Success:    true,
		PositionID: "184523",
	}, nil)

	first, _ := f.results.GetByCommandID(ctx, commandID)
	cmdAfterFirst, _ := f.commands.GetByID(ctx, commandID)

	// Replay del mismo reporte: el primero ya decidió
	f.pipeline.HandleReport(ctx, &domain.ReportMessage{
		CommandID:  commandID,
		Success:    false,
		Error:      "stale replay",
		PositionID: "184523",
	}, nil)

	second, _ := f.results.GetByCommandID(ctx, commandID)
	if second.ResultID != first.ResultID || !second.Success {
		t.Fatalf("expected first result preserved, got %+v", second)
	}

	cmd, _ := f.commands.GetByID(ctx, commandID)
	if cmd.Status != domain.CommandStatusAcknowledged {
		t.Fatalf("expected acknowledged preserved, got %s", cmd.Status)
	}
	if cmd.AcknowledgedAtMs != cmdAfterFirst.AcknowledgedAtMs {
		t.Fatalf("expected ack timestamp preserved")
	}
}

func TestPipelineSweepTimeouts(t *testing.T) {
	f := newPipelineFixture(t)
	ctx := context.Background()

	signal, err := f.pipeline.IngestAlert(ctx, []byte(buyAlert))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	commandID := f.pusher.pushed[0].CommandID

	// Simular que el reporte nunca llegó y la ventana expiró
	stored := f.commands.commands[commandID]
	stored.SentAtMs -= 120_000

	f.pipeline.SweepTimeouts(ctx)

	cmd, _ := f.commands.GetByID(ctx, commandID)
	if cmd.Status != domain.CommandStatusFailed {
		t.Fatalf("expected failed after timeout, got %s", cmd.Status)
	}

	sig, _ := f.signals.GetByID(ctx, signal.SignalID)
	if sig.Status != domain.SignalStatusFailed {
		t.Fatalf("expected signal failed after timeout, got %s", sig.Status)
	}

	// El comando failed no se re-encola ni se reenvía
	pending, _ := f.commands.Pending(ctx)
	if len(pending) != 0 {
		t.Fatalf("expected no pending after timeout, got %d", len(pending))
	}
}
