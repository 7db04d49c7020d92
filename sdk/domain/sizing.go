package domain

import (
	"math"
)

const floatTolerance = 1e-9

// VolumeSpec describe los límites de volumen de un instrumento en el broker.
type VolumeSpec struct {
	MinVolume  float64
	MaxVolume  float64
	VolumeStep float64
}

// DefaultVolumeSpec retorna los límites habituales de una cuenta retail.
func DefaultVolumeSpec() VolumeSpec {
	return VolumeSpec{
		MinVolume:  0.01,
		MaxVolume:  100.0,
		VolumeStep: 0.01,
	}
}

// CalculateVolumeByRisk calcula el volumen en lotes para arriesgar una
// fracción del balance con un stop conocido.
//
// Fórmula:
//
//	volume = (balance * riskFraction) / (stopPips * pipValuePerLot)
//
// Donde:
//   - balance: balance de la cuenta en divisa base
//   - riskFraction: fracción del balance a arriesgar (ej: 0.01 = 1%)
//   - stopPips: distancia al stop en pips (> 0)
//   - pipValuePerLot: valor monetario de un pip por lote estándar
func CalculateVolumeByRisk(balance, riskFraction, stopPips, pipValuePerLot float64) (float64, error) {
	if balance <= 0 {
		return 0, NewValidationError("balance", balance, "balance must be greater than zero")
	}
	if riskFraction <= 0 || riskFraction >= 1 {
		return 0, NewValidationError("risk_fraction", riskFraction, "risk_fraction must be in (0, 1)")
	}
	if stopPips <= 0 {
		return 0, NewValidationError("stop_pips", stopPips, "stop_pips must be greater than zero")
	}
	if pipValuePerLot <= 0 {
		return 0, NewValidationError("pip_value_per_lot", pipValuePerLot, "pip_value_per_lot must be greater than zero")
	}

	riskPerLot := stopPips * pipValuePerLot
	volume := (balance * riskFraction) / riskPerLot
	if volume <= 0 {
		return 0, NewValidationError("volume", volume, "calculated volume must be greater than zero")
	}

	return volume, nil
}

// ClampVolume valida un volumen contra una VolumeSpec y retorna el valor
// ajustado a límites y step.
//
// Si el volumen ya es válido se retorna sin modificar y error nil. Cuando
// se ajusta por mínimos/máximos o por step, retorna el valor ajustado junto
// a un ValidationError que describe la causa.
func ClampVolume(spec VolumeSpec, volume float64) (float64, error) {
	if spec.MinVolume <= 0 {
		return 0, NewValidationError("min_volume", spec.MinVolume, "min_volume must be > 0")
	}
	if spec.MaxVolume <= 0 {
		return 0, NewValidationError("max_volume", spec.MaxVolume, "max_volume must be > 0")
	}
	if spec.VolumeStep <= 0 {
		return 0, NewValidationError("volume_step", spec.VolumeStep, "volume_step must be > 0")
	}
	if spec.MinVolume > spec.MaxVolume {
		return 0, NewValidationError("min_volume", spec.MinVolume, "min_volume cannot exceed max_volume")
	}

	original := volume
	if volume <= 0 {
		volume = spec.MinVolume
	}

	// Clamp por límites
	var validationErr error
	if volume < spec.MinVolume {
		validationErr = NewValidationError("volume", original, "volume below minimum")
		volume = spec.MinVolume
	}
	if volume > spec.MaxVolume {
		validationErr = NewValidationError("volume", original, "volume above maximum")
		volume = spec.MaxVolume
	}

	// Ajustar al múltiplo más cercano del step
	normalized := normalizeToStep(volume, spec.VolumeStep)
	if normalized < spec.MinVolume-floatTolerance {
		normalized = spec.MinVolume
	}
	if normalized > spec.MaxVolume+floatTolerance {
		normalized = spec.MaxVolume
	}

	if validationErr == nil && !almostEqual(original, normalized) {
		validationErr = NewValidationError("volume", original, "volume clamped to spec")
	}

	return normalized, validationErr
}

func normalizeToStep(value, step float64) float64 {
	if step <= 0 {
		return value
	}
	quotient := math.Round(value / step)
	return quotient * step
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= floatTolerance
}
