package internal

import (
	"context"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
)

// OpenRequest describe una apertura de posición en el broker.
//
// Nunca lleva take profit: los targets los gestiona el PositionManager
// por etapas sobre la posición ya abierta.
type OpenRequest struct {
	Symbol    string
	Direction domain.Direction
	Volume    float64
	StopLoss  float64 // 0 = sin stop
}

// OpenResult es el resultado de una apertura exitosa.
type OpenResult struct {
	OrderID string // ID de la orden ejecutada
	Ticket  string // Ticket de la posición abierta
	Price   float64
}

// terminalError convierte una respuesta fallida del terminal en un error
// tipado del dominio. El EA incluye el código numérico MT cuando lo tiene;
// sin código (o con uno desconocido) el fallo queda como ejecución genérica.
func terminalError(response map[string]interface{}) error {
	msg, _ := response["error"].(string)
	if msg == "" {
		msg = "terminal rejected request"
	}

	code := domain.ErrExecutionFailed
	if raw, ok := response["code"].(float64); ok {
		if mapped := domain.ErrorFromTerminalCode(int(raw)); mapped != domain.ErrUnknown {
			code = mapped
		}
	}
	return domain.NewError(code, msg)
}

// Broker abstrae el terminal de trading.
//
// Implementaciones:
//   - PipeBroker: named pipe hacia el terminal MT (solo Windows)
//   - SimBroker: simulador in-memory (tests y plataformas sin terminal)
//
// Todas las operaciones son sincrónicas: retornan cuando el broker
// confirmó o rechazó. El executor las envuelve en reportes.
type Broker interface {
	// Open abre una posición a mercado.
	Open(ctx context.Context, req *OpenRequest) (*OpenResult, error)

	// ClosePartial cierra parte de una posición. volume <= 0 cierra todo.
	ClosePartial(ctx context.Context, ticket string, volume float64) error

	// Modify actualiza stop loss y take profit de una posición en una
	// sola operación. Un valor 0 limpia el nivel correspondiente.
	Modify(ctx context.Context, ticket string, stopLoss, takeProfit float64) error

	// Positions retorna las posiciones abiertas.
	Positions(ctx context.Context) ([]*domain.Position, error)

	// Position retorna una posición por ticket. Nil si no existe
	// (cerrada por stop, target o manualmente).
	Position(ctx context.Context, ticket string) (*domain.Position, error)

	// Quote retorna el precio actual (bid, ask) de un símbolo.
	Quote(ctx context.Context, symbol string) (bid, ask float64, err error)

	// VolumeSpec retorna los límites de volumen de un símbolo.
	VolumeSpec(ctx context.Context, symbol string) (domain.VolumeSpec, error)

	// Balance retorna el balance de la cuenta.
	Balance(ctx context.Context) (float64, error)

	// Close libera recursos del broker.
	Close() error
}
