package internal

import (
	"context"
	"fmt"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
)

// DedupeService decide si una señal entrante es un duplicado reciente.
//
// La decisión es una función pura sobre la ventana de señales recientes
// (domain.IsDuplicate); este servicio solo resuelve la ventana contra el
// repositorio y expone el error tipado.
type DedupeService struct {
	repo         domain.SignalRepository
	windowMs     int64
	recentWindow int
}

// DedupeError indica que una señal fue rechazada por duplicado.
type DedupeError struct {
	SignalID string
	Symbol   string
	Message  string
}

func (e *DedupeError) Error() string {
	return fmt.Sprintf("duplicate signal %s (%s): %s", e.SignalID, e.Symbol, e.Message)
}

// NewDedupeService crea un servicio de deduplicación.
//
// windowMs es la ventana de duplicados en milisegundos; recentWindow el
// número de señales recientes consultadas para decidir.
func NewDedupeService(repo domain.SignalRepository, windowMs int64, recentWindow int) *DedupeService {
	if windowMs <= 0 {
		windowMs = domain.DefaultDedupeWindowMs
	}
	if recentWindow <= 0 {
		recentWindow = 200
	}
	return &DedupeService{
		repo:         repo,
		windowMs:     windowMs,
		recentWindow: recentWindow,
	}
}

// Check verifica si la señal es duplicado de alguna señal reciente.
//
// Retorna DedupeError si hay una señal equivalente (mismo símbolo y
// dirección) dentro de la ventana cuyo estado no es failed. Las señales
// fallidas no bloquean el reenvío.
func (s *DedupeService) Check(ctx context.Context, signal *domain.Signal) error {
	recent, err := s.repo.Recent(ctx, s.recentWindow)
	if err != nil {
		return fmt.Errorf("failed to load recent signals: %w", err)
	}

	if domain.IsDuplicate(signal, recent, s.windowMs) {
		return &DedupeError{
			SignalID: signal.SignalID,
			Symbol:   signal.ExternalSymbol,
			Message:  fmt.Sprintf("equivalent signal within %dms window", s.windowMs),
		}
	}

	return nil
}

// WindowMs retorna la ventana de deduplicación configurada.
func (s *DedupeService) WindowMs() int64 {
	return s.windowMs
}
