package semconv

import "go.opentelemetry.io/otel/attribute"

// Bridge contiene atributos semánticos específicos del bridge de señales.
//
// # Identificadores
//
//   - bridge.signal_id: UUID de la señal (UUIDv7)
//   - bridge.command_id: UUID del comando
//   - bridge.agent_id: ID del agent remoto conectado
//   - bridge.position_ticket: Ticket de la posición en el broker
//
// # Trading
//
//   - bridge.symbol: Símbolo del instrumento (EURUSD, etc.)
//   - bridge.direction: Dirección de la señal (BUY/SELL)
//   - bridge.action: Acción del comando (TRADE/CLOSE/PING)
//   - bridge.volume: Volumen en lotes
//   - bridge.price: Precio de referencia
//
// # Estado
//
//   - bridge.status: Estado (pending/sent/acknowledged/failed)
//   - bridge.error_code: Código de error si aplica
//   - bridge.component: Componente (core/agent/hub/position_manager)
//
// # Uso
//
//	import "github.com/Nishanttwho/Tradingview-to-bridge/sdk/telemetry/semconv"
//
//	// Logs
//	client.Info(ctx, "Signal received",
//	    semconv.Bridge.SignalID.String("01HKQV8Y..."),
//	    semconv.Bridge.Symbol.String("EURUSD"),
//	    semconv.Bridge.Direction.String("BUY"),
//	)
var Bridge = bridgeAttributes{
	// Identificadores
	SignalID:       attribute.Key("bridge.signal_id"),
	CommandID:      attribute.Key("bridge.command_id"),
	AgentID:        attribute.Key("bridge.agent_id"),
	PositionTicket: attribute.Key("bridge.position_ticket"),
	OrderID:        attribute.Key("bridge.order_id"),

	// Trading
	Symbol:         attribute.Key("bridge.symbol"),
	ExternalSymbol: attribute.Key("bridge.external_symbol"),
	Direction:      attribute.Key("bridge.direction"),
	Action:         attribute.Key("bridge.action"),
	Volume:         attribute.Key("bridge.volume"),
	Price:          attribute.Key("bridge.price"),
	StopLoss:       attribute.Key("bridge.stop_loss"),
	TakeProfit:     attribute.Key("bridge.take_profit"),

	// Estado
	Status:    attribute.Key("bridge.status"),
	ErrorCode: attribute.Key("bridge.error_code"),
	Component: attribute.Key("bridge.component"),

	// Adicionales
	Source:       attribute.Key("bridge.source"),
	Attempt:      attribute.Key("bridge.attempt"),
	Decision:     attribute.Key("bridge.decision"),
	Reason:       attribute.Key("bridge.reason"),
	Stage:        attribute.Key("bridge.stage"),
	PipValue:     attribute.Key("bridge.pip_value"),
	StopPips:     attribute.Key("bridge.stop_pips"),
	RiskFraction: attribute.Key("bridge.risk_fraction"),
}

type bridgeAttributes struct {
	// Identificadores
	SignalID       attribute.Key // UUID de la señal (UUIDv7)
	CommandID      attribute.Key // UUID del comando
	AgentID        attribute.Key // ID del agent remoto
	PositionTicket attribute.Key // Ticket de posición en el broker
	OrderID        attribute.Key // ID de orden en el broker

	// Trading
	Symbol         attribute.Key // Símbolo del broker
	ExternalSymbol attribute.Key // Símbolo externo (TradingView)
	Direction      attribute.Key // Dirección (BUY/SELL)
	Action         attribute.Key // Acción del comando (TRADE/CLOSE/PING)
	Volume         attribute.Key // Volumen en lotes
	Price          attribute.Key // Precio de referencia
	StopLoss       attribute.Key // Stop loss
	TakeProfit     attribute.Key // Take profit

	// Estado
	Status    attribute.Key // Estado (pending/sent/acknowledged/failed)
	ErrorCode attribute.Key // Código de error
	Component attribute.Key // Componente (core/agent/hub/position_manager)

	// Adicionales
	Source       attribute.Key // Tag indicador de origen de la señal
	Attempt      attribute.Key // Número de intento (reintentos)
	Decision     attribute.Key // Decisión (duplicate/rejected/accepted)
	Reason       attribute.Key // Razón asociada a la decisión
	Stage        attribute.Key // Etapa del staged exit (1/2)
	PipValue     attribute.Key // Valor de pip por lote usado en sizing
	StopPips     attribute.Key // Distancia de stop en pips
	RiskFraction attribute.Key // Fracción de balance arriesgada
}

// Values pre-definidos para atributos comunes

// ComponentValues valores válidos para bridge.component
var ComponentValues = struct {
	Core            string
	Agent           string
	Hub             string
	Pipeline        string
	PositionManager string
	Executor        string
}{
	Core:            "core",
	Agent:           "agent",
	Hub:             "hub",
	Pipeline:        "pipeline",
	PositionManager: "position_manager",
	Executor:        "executor",
}

// DirectionValues valores válidos para bridge.direction
var DirectionValues = struct {
	Buy  string
	Sell string
}{
	Buy:  "BUY",
	Sell: "SELL",
}

// ActionValues valores válidos para bridge.action
var ActionValues = struct {
	Trade string
	Close string
	Ping  string
}{
	Trade: "TRADE",
	Close: "CLOSE",
	Ping:  "PING",
}

// StatusValues valores válidos para bridge.status
var StatusValues = struct {
	Pending      string
	Sent         string
	Acknowledged string
	Failed       string
}{
	Pending:      "pending",
	Sent:         "sent",
	Acknowledged: "acknowledged",
	Failed:       "failed",
}

// Helper functions para crear atributos comunes

// SignalAttributes crea un conjunto de atributos para una señal.
//
// Example:
//
//	attrs := semconv.SignalAttributes("01HKQV8Y...", "EURUSD", "BUY")
//	client.Info(ctx, "Signal received", attrs...)
func SignalAttributes(signalID, symbol, direction string) []attribute.KeyValue {
	return []attribute.KeyValue{
		Bridge.SignalID.String(signalID),
		Bridge.Symbol.String(symbol),
		Bridge.Direction.String(direction),
	}
}

// CommandAttributes crea atributos para un comando.
//
// Example:
//
//	attrs := semconv.CommandAttributes("cmd123", "TRADE", "pending")
//	client.Info(ctx, "Command enqueued", attrs...)
func CommandAttributes(commandID, action, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		Bridge.CommandID.String(commandID),
		Bridge.Action.String(action),
		Bridge.Status.String(status),
	}
}

// PositionAttributes crea atributos para una posición del broker.
//
// Example:
//
//	attrs := semconv.PositionAttributes("184523", "EURUSD", "BUY")
//	client.Info(ctx, "Partial exit executed", attrs...)
func PositionAttributes(ticket, symbol, direction string) []attribute.KeyValue {
	return []attribute.KeyValue{
		Bridge.PositionTicket.String(ticket),
		Bridge.Symbol.String(symbol),
		Bridge.Direction.String(direction),
	}
}

// ErrorAttributes crea atributos para un error.
//
// Example:
//
//	attrs := semconv.ErrorAttributes("EXECUTION_ERROR", "failed")
//	client.Error(ctx, "Command failed", err, attrs...)
func ErrorAttributes(errorCode, status string) []attribute.KeyValue {
	return []attribute.KeyValue{
		Bridge.ErrorCode.String(errorCode),
		Bridge.Status.String(status),
	}
}
