package domain

import (
	"time"
)

// SignalStatus representa el estado de una señal en el pipeline.
type SignalStatus string

const (
	SignalStatusPending  SignalStatus = "pending"  // Señal recibida, comando no confirmado aún
	SignalStatusExecuted SignalStatus = "executed" // Comando ejecutado con éxito en el broker
	SignalStatusFailed   SignalStatus = "failed"   // Ejecución fallida o timeout
)

// CommandStatus representa el estado de un comando en el store.
//
// Transiciones válidas:
//
//	pending → sent → acknowledged
//	pending → failed
//	sent    → failed
type CommandStatus string

const (
	CommandStatusPending      CommandStatus = "pending"      // Creado, no empujado aún por el canal
	CommandStatusSent         CommandStatus = "sent"         // Empujado al agent, sin reporte todavía
	CommandStatusAcknowledged CommandStatus = "acknowledged" // Reporte de éxito recibido (terminal)
	CommandStatusFailed       CommandStatus = "failed"       // Reporte de error o timeout (terminal)
)

// CommandAction representa la acción que el agent debe ejecutar.
type CommandAction string

const (
	ActionTrade CommandAction = "TRADE" // Abrir posición
	ActionClose CommandAction = "CLOSE" // Cerrar posición existente
	ActionPing  CommandAction = "PING"  // Sondeo de liveness, sin efecto en el broker
)

// Direction representa la dirección de una señal u orden.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Signal representa un evento de trading observado desde el origen de
// alertas. Corresponde a la tabla `bridge.signals` en PostgreSQL.
//
// Las señales nunca se borran (audit trail); solo mutan por transición de
// estado. Una vez executed o failed terminal, el único campo mutable es el
// texto de diagnóstico.
type Signal struct {
	// Identidad
	SignalID string `json:"signal_id" db:"signal_id"` // UUIDv7 único

	// Contenido
	Direction      Direction `json:"direction" db:"direction"`             // BUY/SELL
	ExternalSymbol string    `json:"external_symbol" db:"external_symbol"` // Símbolo según el origen (ej: OANDA:EURUSD)
	BrokerSymbol   string    `json:"broker_symbol" db:"broker_symbol"`     // Símbolo resuelto para el broker

	// Niveles opcionales
	Price      *float64 `json:"price,omitempty" db:"price"`             // Precio observado en la alerta
	EntryPrice *float64 `json:"entry_price,omitempty" db:"entry_price"` // Precio de entrada sugerido
	StopLoss   *float64 `json:"stop_loss,omitempty" db:"stop_loss"`     // Stop sugerido
	TakeProfit *float64 `json:"take_profit,omitempty" db:"take_profit"` // Target sugerido

	// Origen
	Source string `json:"source" db:"source"` // Tag del indicador/estrategia

	// Estado
	Status       SignalStatus `json:"status" db:"status"`
	ErrorMessage string       `json:"error_message" db:"error_message"` // Diagnóstico si aplica

	// Timestamps
	CreatedAtMs int64     `json:"created_at_ms" db:"created_at_ms"` // Unix ms de ingestión
	CreatedAt   time.Time `json:"created_at" db:"created_at"`       // Timestamp de creación en BD
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Command representa una unidad de trabajo para el agent remoto.
// Corresponde a la tabla `bridge.commands` en PostgreSQL.
//
// Invariante: como máximo un comando no terminal (pending/sent) puede
// existir por señal de origen. Las mutaciones pasan únicamente por las
// transiciones del CommandService (single-writer por comando).
type Command struct {
	// Identidad
	CommandID string        `json:"command_id" db:"command_id"` // UUIDv7 único
	Action    CommandAction `json:"action" db:"action"`         // TRADE/CLOSE/PING

	// Payload TRADE
	Symbol     string    `json:"symbol,omitempty" db:"symbol"`
	Direction  Direction `json:"direction,omitempty" db:"direction"`
	Volume     float64   `json:"volume,omitempty" db:"volume"`           // Lotes
	StopLoss   *float64  `json:"stop_loss,omitempty" db:"stop_loss"`     // Stop nativo al abrir
	TakeProfit *float64  `json:"take_profit,omitempty" db:"take_profit"` // Target stage-1; viaja out-of-band, nunca nativo

	// Payload CLOSE
	PositionID string `json:"position_id,omitempty" db:"position_id"` // Ticket de la posición a cerrar

	// Correlación
	SignalID *string `json:"signal_id,omitempty" db:"signal_id"` // Señal de origen (nullable)

	// Estado
	Status       CommandStatus `json:"status" db:"status"`
	ErrorMessage string        `json:"error_message" db:"error_message"`

	// Timestamps (Unix ms; cero = no alcanzado)
	CreatedAtMs      int64 `json:"created_at_ms" db:"created_at_ms"`
	SentAtMs         int64 `json:"sent_at_ms" db:"sent_at_ms"`
	AcknowledgedAtMs int64 `json:"acknowledged_at_ms" db:"acknowledged_at_ms"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ExecutionResult representa el reporte del agent para un comando.
// Corresponde a la tabla `bridge.execution_results` en PostgreSQL.
//
// Append-only con idempotencia por command_id: reportes duplicados se
// toleran sin crear una segunda fila efectiva.
type ExecutionResult struct {
	// Identidad
	ResultID  string `json:"result_id" db:"result_id"`   // UUIDv7
	CommandID string `json:"command_id" db:"command_id"` // FK a commands

	// Resultado
	Success      bool   `json:"success" db:"success"`
	OrderID      string `json:"order_id" db:"order_id"`         // ID de orden del broker ("" si fallo)
	PositionID   string `json:"position_id" db:"position_id"`   // Ticket de posición abierta ("" si no aplica)
	ErrorMessage string `json:"error_message" db:"error_message"`
	RawPayload   string `json:"raw_payload" db:"raw_payload"` // Reporte JSON original, para diagnóstico

	// Timestamps
	ReceivedAtMs int64     `json:"received_at_ms" db:"received_at_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Position representa una posición viva en el broker, conocida solo por el
// agent (no se persiste centralmente). El target stage-1 viaja fuera de
// banda porque un take-profit nativo haría que el broker cierre la posición
// completa en el primer objetivo.
type Position struct {
	Ticket    string    `json:"ticket"` // Ticket del broker
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	OpenPrice float64   `json:"open_price"`
	Volume    float64   `json:"volume"` // Lotes actuales

	// Metadata satélite del staged exit
	StageTarget   float64 `json:"stage_target"`   // Precio target stage-1 (0 = sin target)
	InitialVolume float64 `json:"initial_volume"` // Lotes al abrir, para detectar reducción parcial
	PartialExited bool    `json:"partial_exited"`
	BreakEven     bool    `json:"break_even"`

	OpenedAtMs int64 `json:"opened_at_ms"`
}

// SymbolMapping representa un par símbolo externo → símbolo del broker.
// Único por símbolo externo. Corresponde a `bridge.symbol_mappings`.
type SymbolMapping struct {
	ExternalSymbol string    `json:"external_symbol" db:"external_symbol"`
	BrokerSymbol   string    `json:"broker_symbol" db:"broker_symbol"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// IsTerminal indica si un CommandStatus es terminal (no cambiará más).
func (s CommandStatus) IsTerminal() bool {
	return s == CommandStatusAcknowledged || s == CommandStatusFailed
}

// IsTerminal indica si un SignalStatus es terminal.
func (s SignalStatus) IsTerminal() bool {
	return s == SignalStatusExecuted || s == SignalStatusFailed
}

// CanTransitionTo valida una transición de la máquina de estados.
func (s CommandStatus) CanTransitionTo(next CommandStatus) bool {
	switch s {
	case CommandStatusPending:
		return next == CommandStatusSent || next == CommandStatusFailed
	case CommandStatusSent:
		return next == CommandStatusAcknowledged || next == CommandStatusFailed
	default:
		return false
	}
}

// String implementa fmt.Stringer para CommandStatus.
func (s CommandStatus) String() string {
	return string(s)
}

// String implementa fmt.Stringer para SignalStatus.
func (s SignalStatus) String() string {
	return string(s)
}

// String implementa fmt.Stringer para Direction.
func (d Direction) String() string {
	return string(d)
}

// Opposite retorna la dirección contraria.
func (d Direction) Opposite() Direction {
	if d == DirectionBuy {
		return DirectionSell
	}
	return DirectionBuy
}

// String implementa fmt.Stringer para CommandAction.
func (a CommandAction) String() string {
	return string(a)
}
