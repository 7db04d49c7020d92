package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Protocolo de aplicación sobre el canal WebSocket.
//
// Core → Agent: CommandMessage (JSON).
// Agent → Core: ReportMessage o HeartbeatMessage (JSON).
//
// El framing lo resuelve el transporte; aquí solo viven las formas de los
// mensajes y su clasificación.

// MessageTypeHeartbeat es el discriminador del mensaje de heartbeat.
const MessageTypeHeartbeat = "HEARTBEAT"

// CommandMessage es el comando empujado al agent.
//
//	{ "id": "...", "action": "TRADE", "symbol": "EURUSD", "type": "BUY",
//	  "volume": 0.10, "stopLoss": 1.08500, "takeProfit": 1.08800 }
type CommandMessage struct {
	ID     string        `json:"id"`
	Action CommandAction `json:"action"`

	// TRADE
	Symbol     string    `json:"symbol,omitempty"`
	Type       Direction `json:"type,omitempty"`
	Volume     *float64  `json:"volume,omitempty"`
	StopLoss   *float64  `json:"stopLoss,omitempty"`
	TakeProfit *float64  `json:"takeProfit,omitempty"` // Target stage-1; el agent lo guarda out-of-band

	// CLOSE
	PositionID string `json:"positionId,omitempty"`
}

// ReportMessage es el reporte del agent para un comando.
//
//	{ "commandId": "...", "success": true, "orderId": "184523",
//	  "positionId": "184523" }
type ReportMessage struct {
	CommandID  string `json:"commandId"`
	Success    bool   `json:"success"`
	OrderID    string `json:"orderId,omitempty"`
	PositionID string `json:"positionId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// HeartbeatMessage señala liveness sin semántica de comando.
//
//	{ "type": "HEARTBEAT" }
type HeartbeatMessage struct {
	Type string `json:"type"`
}

// NewHeartbeat crea un mensaje de heartbeat listo para serializar.
func NewHeartbeat() *HeartbeatMessage {
	return &HeartbeatMessage{Type: MessageTypeHeartbeat}
}

// CommandToWire convierte un Command del store al mensaje del canal.
func CommandToWire(cmd *Command) *CommandMessage {
	msg := &CommandMessage{
		ID:     cmd.CommandID,
		Action: cmd.Action,
	}

	switch cmd.Action {
	case ActionTrade:
		msg.Symbol = cmd.Symbol
		msg.Type = cmd.Direction
		volume := cmd.Volume
		msg.Volume = &volume
		msg.StopLoss = cmd.StopLoss
		msg.TakeProfit = cmd.TakeProfit
	case ActionClose:
		msg.PositionID = cmd.PositionID
	}

	return msg
}

// Encode serializa el mensaje a JSON.
func (m *CommandMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Encode serializa el reporte a JSON.
func (m *ReportMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Encode serializa el heartbeat a JSON.
func (m *HeartbeatMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeCommandMessage parsea y valida un comando recibido por el agent.
func DecodeCommandMessage(data []byte) (*CommandMessage, error) {
	var msg CommandMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode command message: %w", err)
	}

	if strings.TrimSpace(msg.ID) == "" {
		return nil, NewError(ErrInvalidCommandID, "command message without id")
	}

	switch msg.Action {
	case ActionTrade, ActionClose, ActionPing:
		// Acción conocida; el dispatch es exhaustivo en el executor
	default:
		return nil, NewValidationError("action", msg.Action, "unknown command action")
	}

	return &msg, nil
}

// AgentMessage clasifica un mensaje entrante del agent en el core.
type AgentMessage struct {
	Report    *ReportMessage
	Heartbeat bool
}

// DecodeAgentMessage clasifica y parsea un mensaje del agent.
//
// Acepta el heartbeat {"type":"HEARTBEAT"} o un reporte con commandId.
// Cualquier otra forma es un error de protocolo.
func DecodeAgentMessage(data []byte) (*AgentMessage, error) {
	var probe struct {
		Type      string `json:"type"`
		CommandID string `json:"commandId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode agent message: %w", err)
	}

	if strings.EqualFold(probe.Type, MessageTypeHeartbeat) {
		return &AgentMessage{Heartbeat: true}, nil
	}

	if strings.TrimSpace(probe.CommandID) == "" {
		return nil, NewValidationError("commandId", probe.CommandID, "agent message is neither report nor heartbeat")
	}

	var report ReportMessage
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report message: %w", err)
	}

	return &AgentMessage{Report: &report}, nil
}
