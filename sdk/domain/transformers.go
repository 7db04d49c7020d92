package domain

import (
	"strings"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/utils"
)

// Parser tolerante de alertas webhook.
//
// Las plantillas de alerta serializan el mismo concepto bajo nombres
// distintos según la versión del indicador. La tabla de alias es data, no
// branching: añadir un spelling nuevo es añadir una entrada.

// alertAliases mapea cada campo del registro interno a los spellings
// aceptados en el JSON entrante, en orden de prioridad.
var alertAliases = map[string][]string{
	"direction":   {"direction", "side", "order", "action", "signal"},
	"symbol":      {"symbol", "ticker", "pair", "instrument"},
	"price":       {"price", "close", "current_price", "currentPrice"},
	"entry_price": {"entryPrice", "entry_price", "entry", "open"},
	"stop_loss":   {"stopLoss", "stop_loss", "sl", "stop", "stoploss"},
	"take_profit": {"takeProfit", "take_profit", "tp", "target", "tp1"},
	"source":      {"source", "indicator", "strategy", "tag"},
}

// directionAliases normaliza los valores de dirección aceptados.
var directionAliases = map[string]Direction{
	"buy":   DirectionBuy,
	"long":  DirectionBuy,
	"sell":  DirectionSell,
	"short": DirectionSell,
}

// aliasString busca el primer alias presente con valor string no vacío.
func aliasString(m map[string]interface{}, field string) string {
	for _, alias := range alertAliases[field] {
		if v := utils.ExtractString(m, alias); strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// aliasFloat busca el primer alias presente con valor numérico positivo.
// Retorna nil si ningún alias aparece.
func aliasFloat(m map[string]interface{}, field string) *float64 {
	for _, alias := range alertAliases[field] {
		if utils.ExtractField(m, alias) == nil {
			continue
		}
		if v := utils.ExtractFloat64(m, alias); v > 0 {
			return &v
		}
	}
	return nil
}

// ParseDirection normaliza un valor de dirección de la alerta.
func ParseDirection(raw string) (Direction, error) {
	direction, ok := directionAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", NewValidationError("direction", raw, "unrecognized direction value")
	}
	return direction, nil
}

// ParseAlert convierte el JSON crudo de una alerta webhook en una señal
// estricta sin identidad ni timestamps (los asigna el pipeline).
//
// Retorna ValidationError si faltan los campos obligatorios (dirección y
// símbolo) o si la dirección no es reconocible; la señal nunca entra al
// pipeline en ese caso.
//
// Example:
//
//	signal, err := domain.ParseAlert([]byte(`{"side":"buy","ticker":"EURUSD","sl":1.085}`))
func ParseAlert(data []byte) (*Signal, error) {
	m, err := utils.JSONToMap(data)
	if err != nil {
		return nil, NewValidationError("payload", string(data), "alert payload is not valid JSON")
	}
	return ParseAlertMap(m)
}

// ParseAlertMap es como ParseAlert sobre un JSON ya parseado.
func ParseAlertMap(m map[string]interface{}) (*Signal, error) {
	rawDirection := aliasString(m, "direction")
	if rawDirection == "" {
		return nil, NewValidationError("direction", nil, "alert has no direction field")
	}

	direction, err := ParseDirection(rawDirection)
	if err != nil {
		return nil, err
	}

	symbol := aliasString(m, "symbol")
	if symbol == "" {
		return nil, NewValidationError("symbol", nil, "alert has no symbol field")
	}

	signal := &Signal{
		Direction:      direction,
		ExternalSymbol: symbol,
		Price:          aliasFloat(m, "price"),
		EntryPrice:     aliasFloat(m, "entry_price"),
		StopLoss:       aliasFloat(m, "stop_loss"),
		TakeProfit:     aliasFloat(m, "take_profit"),
		Source:         aliasString(m, "source"),
		Status:         SignalStatusPending,
	}

	return signal, nil
}
