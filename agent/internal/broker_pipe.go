//go:build windows
// +build windows

package internal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/ipc"
)

// pipeCallTimeout limita cada request/response con el terminal.
const pipeCallTimeout = 10 * time.Second

// PipeBroker habla con el terminal MT por Named Pipe.
//
// El agent crea el pipe server; el EA del terminal conecta como cliente
// y atiende requests JSON línea a línea:
//
//	→ {"op": "open", "symbol": "EURUSD", "type": "BUY", "volume": 0.2, "stopLoss": 1.1}
//	← {"ok": true, "orderId": "12345", "ticket": "184523", "price": 1.10502}
//
// El protocolo es estrictamente request/response: un mutex serializa las
// llamadas para que cada respuesta corresponda al request en vuelo.
type PipeBroker struct {
	server ipc.PipeServer
	reader *ipc.JSONReader
	writer *ipc.JSONWriter

	mu sync.Mutex
}

// NewPipeBroker crea el pipe y espera la conexión del terminal.
func NewPipeBroker(ctx context.Context, pipeName string) (*PipeBroker, error) {
	server, err := ipc.NewWindowsPipeServer(pipeName)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe server: %w", err)
	}

	if err := server.WaitForConnection(ctx); err != nil {
		_ = server.Close()
		return nil, fmt.Errorf("terminal never connected to pipe %s: %w", pipeName, err)
	}

	return &PipeBroker{
		server: server,
		reader: ipc.NewJSONReaderWithTimeout(server, pipeCallTimeout),
		writer: ipc.NewJSONWriterWithTimeout(server, pipeCallTimeout),
	}, nil
}

// call ejecuta un request y espera su response.
func (b *PipeBroker) call(request map[string]interface{}) (map[string]interface{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.writer.WriteMessage(request); err != nil {
		return nil, fmt.Errorf("failed to write pipe request: %w", err)
	}

	response, err := b.reader.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read pipe response: %w", err)
	}

	if ok, _ := response["ok"].(bool); !ok {
		return nil, terminalError(response)
	}

	return response, nil
}

func asString(m map[string]interface{}, key string) string {
	v, _ := m[key].(string)
	return v
}

func asFloat(m map[string]interface{}, key string) float64 {
	v, _ := m[key].(float64)
	return v
}

func (b *PipeBroker) Open(ctx context.Context, req *OpenRequest) (*OpenResult, error) {
	request := map[string]interface{}{
		"op":     "open",
		"symbol": req.Symbol,
		"type":   string(req.Direction),
		"volume": req.Volume,
	}
	if req.StopLoss > 0 {
		request["stopLoss"] = req.StopLoss
	}

	response, err := b.call(request)
	if err != nil {
		return nil, err
	}

	return &OpenResult{
		OrderID: asString(response, "orderId"),
		Ticket:  asString(response, "ticket"),
		Price:   asFloat(response, "price"),
	}, nil
}

func (b *PipeBroker) ClosePartial(ctx context.Context, ticket string, volume float64) error {
	request := map[string]interface{}{
		"op":     "close",
		"ticket": ticket,
	}
	if volume > 0 {
		request["volume"] = volume
	}

	_, err := b.call(request)
	return err
}

func (b *PipeBroker) Modify(ctx context.Context, ticket string, stopLoss, takeProfit float64) error {
	_, err := b.call(map[string]interface{}{
		"op":         "modify",
		"ticket":     ticket,
		"stopLoss":   stopLoss,
		"takeProfit": takeProfit,
	})
	return err
}

func (b *PipeBroker) Positions(ctx context.Context) ([]*domain.Position, error) {
	response, err := b.call(map[string]interface{}{"op": "positions"})
	if err != nil {
		return nil, err
	}

	raw, _ := response["positions"].([]interface{})
	positions := make([]*domain.Position, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		positions = append(positions, &domain.Position{
			Ticket:    asString(m, "ticket"),
			Symbol:    asString(m, "symbol"),
			Direction: domain.Direction(asString(m, "type")),
			OpenPrice: asFloat(m, "openPrice"),
			Volume:    asFloat(m, "volume"),
		})
	}
	return positions, nil
}

func (b *PipeBroker) Position(ctx context.Context, ticket string) (*domain.Position, error) {
	positions, err := b.Positions(ctx)
	if err != nil {
		return nil, err
	}
	for _, pos := range positions {
		if pos.Ticket == ticket {
			return pos, nil
		}
	}
	return nil, nil
}

func (b *PipeBroker) Quote(ctx context.Context, symbol string) (float64, float64, error) {
	response, err := b.call(map[string]interface{}{
		"op":     "quote",
		"symbol": symbol,
	})
	if err != nil {
		return 0, 0, err
	}
	return asFloat(response, "bid"), asFloat(response, "ask"), nil
}

func (b *PipeBroker) VolumeSpec(ctx context.Context, symbol string) (domain.VolumeSpec, error) {
	response, err := b.call(map[string]interface{}{
		"op":     "spec",
		"symbol": symbol,
	})
	if err != nil {
		return domain.VolumeSpec{}, err
	}

	spec := domain.VolumeSpec{
		MinVolume:  asFloat(response, "minVolume"),
		MaxVolume:  asFloat(response, "maxVolume"),
		VolumeStep: asFloat(response, "volumeStep"),
	}
	if spec.MinVolume <= 0 || spec.MaxVolume <= 0 || spec.VolumeStep <= 0 {
		return domain.DefaultVolumeSpec(), nil
	}
	return spec, nil
}

func (b *PipeBroker) Balance(ctx context.Context) (float64, error) {
	response, err := b.call(map[string]interface{}{"op": "balance"})
	if err != nil {
		return 0, err
	}
	return asFloat(response, "balance"), nil
}

func (b *PipeBroker) Close() error {
	return b.server.Close()
}
