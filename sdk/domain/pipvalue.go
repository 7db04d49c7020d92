package domain

import (
	"strings"
)

// SymbolClass clasifica un instrumento para el cálculo de pip.
type SymbolClass string

const (
	ClassJPYPair     SymbolClass = "jpy_pair"
	ClassMetal       SymbolClass = "metal"
	ClassCryptoMajor SymbolClass = "crypto_major"
	ClassCryptoMinor SymbolClass = "crypto_minor"
	ClassIndex       SymbolClass = "index"
	ClassForex       SymbolClass = "forex" // Default
)

// PipSpec describe el pip de una clase de instrumento.
type PipSpec struct {
	Class SymbolClass

	// PipSize es el tamaño de un pip en unidades de precio.
	PipSize float64

	// ValuePerLot es el valor monetario aproximado de un pip por lote
	// estándar, en divisa de la cuenta.
	ValuePerLot float64
}

// classRule es una fila de la tabla de clasificación. La primera regla
// que matchea gana; la última es el fallback forex.
type classRule struct {
	spec PipSpec

	// Criterios (cualquiera que aplique sobre el símbolo normalizado)
	exact    []string // Igualdad exacta
	prefixes []string // El símbolo comienza con
	suffixes []string // El símbolo termina con
}

// pipTable es la tabla de clasificación de instrumentos. Es data, no
// código: añadir una clase o un instrumento es añadir una fila.
var pipTable = []classRule{
	{
		spec:     PipSpec{Class: ClassJPYPair, PipSize: 0.01, ValuePerLot: 9.0},
		suffixes: []string{"JPY"},
	},
	{
		spec:     PipSpec{Class: ClassMetal, PipSize: 0.10, ValuePerLot: 10.0},
		prefixes: []string{"XAU", "XAG", "XPT", "XPD", "GOLD", "SILVER"},
	},
	{
		spec:     PipSpec{Class: ClassCryptoMajor, PipSize: 1.0, ValuePerLot: 1.0},
		prefixes: []string{"BTC", "ETH"},
	},
	{
		spec:     PipSpec{Class: ClassCryptoMinor, PipSize: 0.01, ValuePerLot: 1.0},
		prefixes: []string{"XRP", "LTC", "ADA", "SOL", "DOT", "DOGE", "BNB"},
	},
	{
		spec: PipSpec{Class: ClassIndex, PipSize: 1.0, ValuePerLot: 1.0},
		exact: []string{
			"US30", "US100", "US500", "NAS100", "SPX500", "DJ30",
			"GER40", "DAX40", "UK100", "FRA40", "JPN225", "AUS200",
		},
	},
	// Fallback: par de divisas estándar
	{
		spec: PipSpec{Class: ClassForex, PipSize: 0.0001, ValuePerLot: 10.0},
	},
}

// ClassifySymbol determina la clase de un instrumento.
//
// Función pura sobre la tabla de clasificación; el símbolo se normaliza
// antes de evaluar las reglas.
func ClassifySymbol(symbol string) PipSpec {
	s := NormalizeSymbol(symbol)

	for _, rule := range pipTable {
		if matchesRule(s, rule) {
			return rule.spec
		}
	}

	// Unreachable: la última fila no tiene criterios y siempre matchea
	return pipTable[len(pipTable)-1].spec
}

func matchesRule(symbol string, rule classRule) bool {
	// La fila fallback (sin criterios) matchea todo
	if len(rule.exact) == 0 && len(rule.prefixes) == 0 && len(rule.suffixes) == 0 {
		return true
	}

	for _, e := range rule.exact {
		if symbol == e {
			return true
		}
	}
	for _, p := range rule.prefixes {
		if strings.HasPrefix(symbol, p) {
			return true
		}
	}
	for _, suf := range rule.suffixes {
		if strings.HasSuffix(symbol, suf) {
			return true
		}
	}
	return false
}

// PipValuePerLot retorna el valor monetario de un pip por lote para un
// instrumento.
func PipValuePerLot(symbol string) float64 {
	return ClassifySymbol(symbol).ValuePerLot
}

// PipSize retorna el tamaño de un pip en unidades de precio.
func PipSize(symbol string) float64 {
	return ClassifySymbol(symbol).PipSize
}

// PriceDistanceToPips convierte una distancia de precio a pips.
func PriceDistanceToPips(symbol string, distance float64) float64 {
	size := PipSize(symbol)
	if size <= 0 {
		return 0
	}
	return distance / size
}
