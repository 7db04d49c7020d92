package domain

import (
	"errors"
	"fmt"
)

// ErrorCode representa un código de error del dominio del bridge.
type ErrorCode string

// Códigos de error estándar
const (
	// ErrNoError indica éxito (sin error)
	ErrNoError ErrorCode = "NO_ERROR"

	// Errores de validación (la señal nunca entra al pipeline)
	ErrInvalidDirection     ErrorCode = "INVALID_DIRECTION"
	ErrInvalidSymbol        ErrorCode = "INVALID_SYMBOL"
	ErrInvalidVolume        ErrorCode = "INVALID_VOLUME"
	ErrInvalidPrice         ErrorCode = "INVALID_PRICE"
	ErrInvalidStops         ErrorCode = "INVALID_STOPS"
	ErrInvalidCommandID     ErrorCode = "INVALID_COMMAND_ID"
	ErrMissingRequiredField ErrorCode = "MISSING_REQUIRED_FIELD"

	// Duplicado (reconocido, no es un error del pipeline)
	ErrDuplicateSignal ErrorCode = "DUPLICATE_SIGNAL"

	// Errores de transporte (el comando queda pending para el próximo connect)
	ErrNotConnected   ErrorCode = "NOT_CONNECTED"
	ErrConnectionLost ErrorCode = "CONNECTION_LOST"
	ErrChannelClosed  ErrorCode = "CHANNEL_CLOSED"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"

	// Errores de ejecución (el broker rechazó la orden)
	ErrExecutionFailed ErrorCode = "EXECUTION_FAILED"
	ErrMarketClosed    ErrorCode = "MARKET_CLOSED"
	ErrNoMoney         ErrorCode = "NO_MONEY"
	ErrPriceChanged    ErrorCode = "PRICE_CHANGED"
	ErrOffQuotes       ErrorCode = "OFF_QUOTES"
	ErrBrokerBusy      ErrorCode = "BROKER_BUSY"
	ErrRequote         ErrorCode = "REQUOTE"
	ErrTradeDisabled   ErrorCode = "TRADE_DISABLED"
	ErrMaxPositions    ErrorCode = "MAX_POSITIONS"

	// Timeout (sin reporte dentro del umbral; distinto de un rechazo del broker)
	ErrAckTimeout ErrorCode = "ACK_TIMEOUT"

	// Errores de reconciliación (partial close parcial, modify fallido)
	ErrReconciliation ErrorCode = "RECONCILIATION"

	// Errores de sistema
	ErrUnknown  ErrorCode = "UNKNOWN"
	ErrNotFound ErrorCode = "NOT_FOUND"

	// Conflicto de escritura: otro escritor movió la entidad primero.
	// El caller debe releer y reevaluar la transición.
	ErrStateConflict ErrorCode = "STATE_CONFLICT"
)

// TradingError representa un error del dominio con contexto.
type TradingError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implementa la interfaz error.
func (e *TradingError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implementa la interfaz errors.Unwrap.
func (e *TradingError) Unwrap() error {
	return e.Wrapped
}

// WithDetail agrega un detalle al error.
func (e *TradingError) WithDetail(key string, value interface{}) *TradingError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewError crea un nuevo TradingError.
//
// Example:
//
//	err := domain.NewError(domain.ErrInvalidSymbol, "no mapping for symbol NAS100")
func NewError(code ErrorCode, message string) *TradingError {
	return &TradingError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// WrapError envuelve un error existente con contexto del dominio.
//
// Example:
//
//	err := domain.WrapError(domain.ErrConnectionLost, "websocket write failed", originalErr)
func WrapError(code ErrorCode, message string, wrapped error) *TradingError {
	return &TradingError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: wrapped,
	}
}

// IsErrorCode indica si err (o algo en su cadena) es un TradingError
// con el código dado.
func IsErrorCode(err error, code ErrorCode) bool {
	var terr *TradingError
	return errors.As(err, &terr) && terr.Code == code
}

// IsRetryable indica si un error es retriable (puede reintentarse).
func IsRetryable(code ErrorCode) bool {
	switch code {
	case ErrBrokerBusy, ErrRequote, ErrOffQuotes, ErrPriceChanged,
		ErrNotConnected, ErrConnectionLost, ErrChannelClosed:
		return true
	default:
		return false
	}
}

// IsFatal indica si un error es fatal (no se debe reintentar).
func IsFatal(code ErrorCode) bool {
	switch code {
	case ErrInvalidDirection, ErrInvalidSymbol, ErrInvalidVolume,
		ErrInvalidCommandID, ErrMissingRequiredField, ErrUnauthorized,
		ErrDuplicateSignal:
		return true
	default:
		return false
	}
}

// ErrorFromTerminalCode convierte un código de error MT4/MT5 a ErrorCode.
//
// Códigos comunes:
// - 129: ERR_INVALID_PRICE
// - 130: ERR_INVALID_STOPS
// - 131: ERR_INVALID_TRADE_VOLUME
// - 132: ERR_MARKET_CLOSED
// - 133: ERR_TRADE_DISABLED
// - 134: ERR_NOT_ENOUGH_MONEY
// - 135: ERR_PRICE_CHANGED
// - 136: ERR_OFF_QUOTES
// - 137: ERR_BROKER_BUSY
// - 138: ERR_REQUOTE
func ErrorFromTerminalCode(code int) ErrorCode {
	switch code {
	case 0:
		return ErrNoError
	case 129:
		return ErrInvalidPrice
	case 130:
		return ErrInvalidStops
	case 131:
		return ErrInvalidVolume
	case 132:
		return ErrMarketClosed
	case 133:
		return ErrTradeDisabled
	case 134:
		return ErrNoMoney
	case 135:
		return ErrPriceChanged
	case 136:
		return ErrOffQuotes
	case 137:
		return ErrBrokerBusy
	case 138:
		return ErrRequote
	case 4108: // ERR_UNKNOWN_TICKET
		return ErrNotFound
	default:
		return ErrUnknown
	}
}
