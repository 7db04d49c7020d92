package internal

import (
	"context"
	"fmt"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/utils"
)

// CommandService es el único escritor de la máquina de estados de comandos.
//
// Transiciones:
//
//	pending → sent → acknowledged
//	pending → failed
//	sent    → failed
//
// Garantías:
//   - A lo sumo un comando no terminal por señal (Enqueue es idempotente).
//   - MarkSent solo después de un push exitoso por el canal.
//   - Un comando failed nunca se re-encola automáticamente; el operador
//     decide con la información de diagnóstico.
type CommandService struct {
	repo         domain.CommandRepository
	ackTimeoutMs int64
}

// ackTimeoutReason es el diagnóstico sintético del sweep de timeout,
// distinguible de los errores reportados por el broker.
const ackTimeoutReason = "ACK_TIMEOUT: no report received within window"

// NewCommandService crea el servicio de comandos.
func NewCommandService(repo domain.CommandRepository, ackTimeoutMs int64) *CommandService {
	if ackTimeoutMs <= 0 {
		ackTimeoutMs = 60_000
	}
	return &CommandService{
		repo:         repo,
		ackTimeoutMs: ackTimeoutMs,
	}
}

// Enqueue persiste un comando nuevo en estado pending.
//
// Si la señal de origen ya tiene un comando no terminal, retorna ese
// comando existente sin crear otro (idempotencia por señal). El comando
// recibe identidad UUIDv7 y timestamp de creación aquí.
func (s *CommandService) Enqueue(ctx context.Context, cmd *domain.Command) (*domain.Command, error) {
	if cmd.SignalID != nil {
		existing, err := s.repo.GetNonTerminalBySignal(ctx, *cmd.SignalID)
		if err != nil {
			return nil, fmt.Errorf("failed to check active command: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	if cmd.CommandID == "" {
		cmd.CommandID = utils.GenerateUUIDv7()
	}
	if cmd.CreatedAtMs == 0 {
		cmd.CreatedAtMs = utils.NowUnixMilli()
	}
	cmd.Status = domain.CommandStatusPending

	if err := domain.ValidateCommand(cmd); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, cmd); err != nil {
		return nil, err
	}

	return cmd, nil
}

// MarkSent transiciona un comando pending → sent tras un push exitoso.
//
// Nunca debe llamarse antes de confirmar la escritura en el canal: un
// comando sent que no viajó quedaría esperando un reporte imposible.
func (s *CommandService) MarkSent(ctx context.Context, commandID string) (*domain.Command, error) {
	return s.transition(ctx, commandID, domain.CommandStatusSent, "")
}

// MarkAcknowledged transiciona un comando sent → acknowledged.
//
// Idempotente: si el comando ya está acknowledged retorna sin modificar
// (el timestamp del primer acknowledgment se preserva).
func (s *CommandService) MarkAcknowledged(ctx context.Context, commandID string) (*domain.Command, error) {
	return s.transition(ctx, commandID, domain.CommandStatusAcknowledged, "")
}

// MarkFailed transiciona un comando a failed con su diagnóstico.
func (s *CommandService) MarkFailed(ctx context.Context, commandID, reason string) (*domain.Command, error) {
	return s.transition(ctx, commandID, domain.CommandStatusFailed, reason)
}

// transition aplica una transición validada de la máquina de estados.
//
// Una transición hacia el estado actual es un no-op (reportes duplicados);
// una transición inválida desde estado terminal retorna el comando sin
// modificar junto a un error tipado.
//
// La escritura es un compare-and-swap sobre el estado de partida: el sweep
// de timeouts y el read-loop del canal transicionan desde goroutines
// distintas, y ambos pueden leer el mismo comando sent. El perdedor del
// swap relee y reevalúa contra el estado fresco, así un comando nunca
// alcanza dos estados terminales.
func (s *CommandService) transition(ctx context.Context, commandID string, next domain.CommandStatus, reason string) (*domain.Command, error) {
	for {
		cmd, err := s.repo.GetByID(ctx, commandID)
		if err != nil {
			return nil, fmt.Errorf("failed to load command: %w", err)
		}
		if cmd == nil {
			return nil, domain.NewError(domain.ErrNotFound, fmt.Sprintf("command not found: %s", commandID))
		}

		if cmd.Status == next {
			return cmd, nil
		}

		if !cmd.Status.CanTransitionTo(next) {
			return cmd, domain.NewError(domain.ErrUnknown,
				fmt.Sprintf("invalid transition %s -> %s for command %s", cmd.Status, next, commandID))
		}

		from := cmd.Status
		now := utils.NowUnixMilli()
		cmd.Status = next
		switch next {
		case domain.CommandStatusSent:
			cmd.SentAtMs = now
		case domain.CommandStatusAcknowledged:
			cmd.AcknowledgedAtMs = now
		case domain.CommandStatusFailed:
			cmd.ErrorMessage = reason
		}

		err = s.repo.UpdateStatus(ctx, cmd, from)
		if err == nil {
			return cmd, nil
		}
		if domain.IsErrorCode(err, domain.ErrStateConflict) {
			continue
		}
		return nil, err
	}
}

// RetryTimedOut barre los comandos sent cuyo reporte no llegó dentro de
// la ventana de acknowledgment y los transiciona a failed con la razón
// sintética de timeout.
//
// Un comando enviado hace exactamente la ventana completa ya expiró; uno
// enviado un milisegundo más tarde todavía no. Retorna los comandos que
// fueron marcados en esta pasada.
func (s *CommandService) RetryTimedOut(ctx context.Context, nowMs int64) ([]*domain.Command, error) {
	threshold := nowMs - s.ackTimeoutMs

	expired, err := s.repo.SentBefore(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load expired commands: %w", err)
	}

	var failed []*domain.Command
	for _, cmd := range expired {
		updated, err := s.MarkFailed(ctx, cmd.CommandID, ackTimeoutReason)
		if err != nil {
			return failed, err
		}
		failed = append(failed, updated)
	}

	return failed, nil
}

// Pending retorna los comandos pending en orden de creación ascendente.
//
// Es exactamente el conjunto que se replay-ea al reconectar un canal:
// los comandos sent no se reenvían para no duplicar ejecuciones.
func (s *CommandService) Pending(ctx context.Context) ([]*domain.Command, error) {
	return s.repo.Pending(ctx)
}

// PendingForDelivery retorna pending ∪ sent en orden de creación ascendente.
func (s *CommandService) PendingForDelivery(ctx context.Context) ([]*domain.Command, error) {
	return s.repo.PendingForDelivery(ctx)
}

// Failed retorna los últimos comandos fallidos para diagnóstico.
func (s *CommandService) Failed(ctx context.Context, limit int) ([]*domain.Command, error) {
	return s.repo.Failed(ctx, limit)
}

// GetByID retorna un comando por id. Nil si no existe.
func (s *CommandService) GetByID(ctx context.Context, commandID string) (*domain.Command, error) {
	return s.repo.GetByID(ctx, commandID)
}
