package internal

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/utils"
)

// SimBroker es un broker in-memory.
//
// Sirve de fallback en plataformas sin terminal y de doble en tests.
// Los precios se fijan con SetQuote; las posiciones viven en un mapa.
// No simula slippage ni ejecución de stops: el PositionManager observa
// precios, no fills.
type SimBroker struct {
	mu         sync.Mutex
	balance    float64
	quotes     map[string][2]float64 // symbol → {bid, ask}
	positions  map[string]*domain.Position
	modifies   map[string][2]float64 // ticket → {stopLoss, takeProfit}
	nextTicket int
}

// NewSimBroker crea un broker simulado con el balance dado.
func NewSimBroker(balance float64) *SimBroker {
	if balance <= 0 {
		balance = 10_000
	}
	return &SimBroker{
		balance:    balance,
		quotes:     make(map[string][2]float64),
		positions:  make(map[string]*domain.Position),
		modifies:   make(map[string][2]float64),
		nextTicket: 100_000,
	}
}

// SetQuote fija el precio de un símbolo.
func (b *SimBroker) SetQuote(symbol string, bid, ask float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[symbol] = [2]float64{bid, ask}
}

func (b *SimBroker) Open(ctx context.Context, req *OpenRequest) (*OpenResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if req.Volume <= 0 {
		return nil, fmt.Errorf("invalid volume %f", req.Volume)
	}

	quote, ok := b.quotes[req.Symbol]
	if !ok {
		return nil, fmt.Errorf("no quote for symbol %s", req.Symbol)
	}

	price := quote[1] // ask
	if req.Direction == domain.DirectionSell {
		price = quote[0] // bid
	}

	b.nextTicket++
	ticket := strconv.Itoa(b.nextTicket)

	b.positions[ticket] = &domain.Position{
		Ticket:        ticket,
		Symbol:        req.Symbol,
		Direction:     req.Direction,
		OpenPrice:     price,
		Volume:        req.Volume,
		InitialVolume: req.Volume,
		OpenedAtMs:    utils.NowUnixMilli(),
	}

	return &OpenResult{
		OrderID: "sim-" + ticket,
		Ticket:  ticket,
		Price:   price,
	}, nil
}

func (b *SimBroker) ClosePartial(ctx context.Context, ticket string, volume float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[ticket]
	if !ok {
		return fmt.Errorf("position %s not found", ticket)
	}

	if volume <= 0 || volume >= pos.Volume {
		delete(b.positions, ticket)
		return nil
	}

	pos.Volume -= volume
	return nil
}

func (b *SimBroker) Modify(ctx context.Context, ticket string, stopLoss, takeProfit float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.positions[ticket]; !ok {
		return fmt.Errorf("position %s not found", ticket)
	}
	// El simulador no ejecuta stops; solo registra los niveles pedidos
	b.modifies[ticket] = [2]float64{stopLoss, takeProfit}
	return nil
}

// LastModify retorna los niveles del último modify aplicado al ticket.
func (b *SimBroker) LastModify(ticket string) (stopLoss, takeProfit float64, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	levels, ok := b.modifies[ticket]
	return levels[0], levels[1], ok
}

func (b *SimBroker) Positions(ctx context.Context) ([]*domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*domain.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		clone := *pos
		out = append(out, &clone)
	}
	return out, nil
}

func (b *SimBroker) Position(ctx context.Context, ticket string) (*domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	pos, ok := b.positions[ticket]
	if !ok {
		return nil, nil
	}
	clone := *pos
	return &clone, nil
}

func (b *SimBroker) Quote(ctx context.Context, symbol string) (float64, float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	quote, ok := b.quotes[symbol]
	if !ok {
		return 0, 0, fmt.Errorf("no quote for symbol %s", symbol)
	}
	return quote[0], quote[1], nil
}

func (b *SimBroker) VolumeSpec(ctx context.Context, symbol string) (domain.VolumeSpec, error) {
	return domain.DefaultVolumeSpec(), nil
}

func (b *SimBroker) Balance(ctx context.Context) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balance, nil
}

func (b *SimBroker) Close() error {
	return nil
}
