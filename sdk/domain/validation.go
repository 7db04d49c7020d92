package domain

import (
	"fmt"
	"strings"
)

// ValidationError representa un error de validación.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implementa la interfaz error.
func (v *ValidationError) Error() string {
	return fmt.Sprintf("validation error: field '%s' with value '%v': %s", v.Field, v.Value, v.Message)
}

// NewValidationError crea un nuevo ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ValidateDirection valida que la dirección sea BUY o SELL.
func ValidateDirection(direction Direction) error {
	if direction != DirectionBuy && direction != DirectionSell {
		return NewValidationError("direction", direction, "direction must be BUY or SELL")
	}
	return nil
}

// ValidateSignal valida una señal antes de entrar al pipeline.
//
// Una señal malformada se rechaza en ingestión y nunca genera comando.
func ValidateSignal(signal *Signal) error {
	if signal == nil {
		return NewValidationError("signal", nil, "signal is nil")
	}
	if strings.TrimSpace(signal.SignalID) == "" {
		return NewValidationError("signal_id", signal.SignalID, "signal_id is required")
	}
	if err := ValidateDirection(signal.Direction); err != nil {
		return err
	}
	if strings.TrimSpace(signal.ExternalSymbol) == "" {
		return NewValidationError("external_symbol", signal.ExternalSymbol, "external_symbol is required")
	}
	if signal.StopLoss != nil && *signal.StopLoss < 0 {
		return NewValidationError("stop_loss", *signal.StopLoss, "stop_loss cannot be negative")
	}
	if signal.TakeProfit != nil && *signal.TakeProfit < 0 {
		return NewValidationError("take_profit", *signal.TakeProfit, "take_profit cannot be negative")
	}
	return nil
}

// ValidateCommand valida un comando antes de encolarlo.
func ValidateCommand(cmd *Command) error {
	if cmd == nil {
		return NewValidationError("command", nil, "command is nil")
	}
	if strings.TrimSpace(cmd.CommandID) == "" {
		return NewValidationError("command_id", cmd.CommandID, "command_id is required")
	}

	switch cmd.Action {
	case ActionTrade:
		if strings.TrimSpace(cmd.Symbol) == "" {
			return NewValidationError("symbol", cmd.Symbol, "symbol is required for TRADE")
		}
		if err := ValidateDirection(cmd.Direction); err != nil {
			return err
		}
		if cmd.Volume <= 0 {
			return NewValidationError("volume", cmd.Volume, "volume must be greater than zero")
		}
	case ActionClose:
		if strings.TrimSpace(cmd.PositionID) == "" {
			return NewValidationError("position_id", cmd.PositionID, "position_id is required for CLOSE")
		}
	case ActionPing:
		// Sin payload
	default:
		return NewValidationError("action", cmd.Action, "unknown command action")
	}

	return nil
}
