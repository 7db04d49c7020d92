package domain

import (
	"strings"
)

// DefaultDedupeWindowMs es la ventana de deduplicación por defecto.
//
// Los orígenes de alertas suelen re-disparar dentro de la misma barra;
// sin esta guarda el pipeline ejecutaría doble.
const DefaultDedupeWindowMs = 60_000

// NormalizeSymbol reduce un símbolo a su forma canónica comparable:
// mayúsculas, sin prefijo de exchange (OANDA:, FX:, ...) y sin
// separadores (/, -, _, .).
//
// Example:
//
//	domain.NormalizeSymbol("OANDA:EUR/USD") // => "EURUSD"
//	domain.NormalizeSymbol("eurusd")        // => "EURUSD"
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))

	// Prefijo de exchange
	if idx := strings.LastIndex(s, ":"); idx >= 0 {
		s = s[idx+1:]
	}

	// Separadores
	replacer := strings.NewReplacer("/", "", "-", "", "_", "", ".", "", " ", "")
	return replacer.Replace(s)
}

// SymbolsEquivalent es el predicado de equivalencia entre esquemas de
// nombres. Dos símbolos son equivalentes si sus formas canónicas coinciden.
func SymbolsEquivalent(a, b string) bool {
	na := NormalizeSymbol(a)
	nb := NormalizeSymbol(b)
	if na == "" || nb == "" {
		return false
	}
	return na == nb
}

// IsDuplicate decide si una señal es una repetición dentro de la ventana.
//
// Dos señales son duplicadas si y solo si:
//   - mismo símbolo resuelto (o símbolos externos equivalentes),
//   - misma dirección,
//   - el timestamp de la anterior está dentro de windowMs del arrival de
//     la nueva, y
//   - la anterior NO está en estado failed (las señales fallidas son
//     elegibles para reintento y no deben bloquear un reenvío).
//
// Decisión pura sobre la ventana de historia reciente; sin efectos.
func IsDuplicate(signal *Signal, recentSignals []*Signal, windowMs int64) bool {
	if signal == nil {
		return false
	}

	for _, prev := range recentSignals {
		if prev == nil || prev.SignalID == signal.SignalID {
			continue
		}
		if prev.Direction != signal.Direction {
			continue
		}
		if prev.Status == SignalStatusFailed {
			continue
		}

		sameSymbol := false
		if prev.BrokerSymbol != "" && signal.BrokerSymbol != "" {
			sameSymbol = prev.BrokerSymbol == signal.BrokerSymbol
		}
		if !sameSymbol {
			sameSymbol = SymbolsEquivalent(prev.ExternalSymbol, signal.ExternalSymbol)
		}
		if !sameSymbol {
			continue
		}

		age := signal.CreatedAtMs - prev.CreatedAtMs
		if age >= 0 && age < windowMs {
			return true
		}
	}

	return false
}
