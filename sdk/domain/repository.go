package domain

import (
	"context"
)

// SignalRepository define operaciones de persistencia para Signal.
//
// Implementaciones:
//   - PostgreSQL: en core/internal/repository/postgres.go
//
// Uso:
//
//	repo := factory.SignalRepository()
//	err := repo.Create(ctx, signal)
type SignalRepository interface {
	// Create inserta una nueva señal.
	// Retorna error si el signal_id ya existe.
	Create(ctx context.Context, signal *Signal) error

	// GetByID obtiene una señal por su signal_id.
	// Retorna nil si no existe.
	GetByID(ctx context.Context, signalID string) (*Signal, error)

	// UpdateStatus actualiza el estado de una señal con su diagnóstico.
	UpdateStatus(ctx context.Context, signalID string, status SignalStatus, errorMessage string) error

	// Recent obtiene las últimas señales ordenadas por created_at DESC.
	// Es la ventana sobre la que decide el deduplicador.
	Recent(ctx context.Context, limit int) ([]*Signal, error)
}

// CommandRepository define operaciones de persistencia para Command.
//
// Las transiciones de estado pasan por el CommandService; el repositorio
// solo persiste lo que el servicio decide (single-writer por comando).
type CommandRepository interface {
	// Create inserta un nuevo comando.
	Create(ctx context.Context, cmd *Command) error

	// GetByID obtiene un comando por su command_id.
	// Retorna nil si no existe.
	GetByID(ctx context.Context, commandID string) (*Command, error)

	// GetNonTerminalBySignal obtiene el comando no terminal (pending/sent)
	// de una señal. Retorna nil si no hay ninguno. Soporta la garantía de
	// a-lo-sumo-un-comando-activo por señal.
	GetNonTerminalBySignal(ctx context.Context, signalID string) (*Command, error)

	// UpdateStatus persiste una transición con sus timestamps y diagnóstico.
	// Es un compare-and-swap: la fila solo se escribe si su estado actual
	// sigue siendo from. Si otro escritor la movió primero retorna
	// TradingError con código ErrStateConflict sin modificar nada; el
	// caller relee y reevalúa.
	UpdateStatus(ctx context.Context, cmd *Command, from CommandStatus) error

	// Pending obtiene los comandos en estado pending en orden de creación
	// ascendente. Es el conjunto que se reenvía en reconexión.
	Pending(ctx context.Context) ([]*Command, error)

	// PendingForDelivery obtiene pending ∪ sent en orden de creación
	// ascendente. Un comando sent no está confirmado y debe considerarse
	// para redelivery si el canal cae antes del acknowledgment.
	PendingForDelivery(ctx context.Context) ([]*Command, error)

	// SentBefore obtiene comandos sent cuyo sent_at_ms es anterior al
	// umbral dado. Alimenta el sweep de timeout.
	SentBefore(ctx context.Context, thresholdMs int64) ([]*Command, error)

	// Failed obtiene los últimos comandos fallidos para diagnóstico.
	Failed(ctx context.Context, limit int) ([]*Command, error)
}

// ResultRepository define operaciones de persistencia para ExecutionResult.
type ResultRepository interface {
	// Record inserta el resultado de un comando de forma idempotente:
	// si ya existe un resultado para el command_id, la llamada es un no-op
	// y retorna el existente.
	Record(ctx context.Context, result *ExecutionResult) (*ExecutionResult, error)

	// GetByCommandID obtiene el resultado de un comando.
	// Retorna nil si no existe.
	GetByCommandID(ctx context.Context, commandID string) (*ExecutionResult, error)

	// List obtiene resultados con paginación, ordenados por created_at DESC.
	List(ctx context.Context, limit, offset int) ([]*ExecutionResult, error)
}

// SymbolRepository define operaciones de persistencia para SymbolMapping.
type SymbolRepository interface {
	// Upsert inserta o actualiza un mapeo (único por external_symbol).
	Upsert(ctx context.Context, mapping *SymbolMapping) error

	// GetByExternal obtiene el mapeo de un símbolo externo.
	// Retorna nil si no existe.
	GetByExternal(ctx context.Context, externalSymbol string) (*SymbolMapping, error)

	// List obtiene todos los mapeos.
	List(ctx context.Context) ([]*SymbolMapping, error)
}

// RepositoryFactory crea instancias de repositorios.
//
// Uso:
//
//	factory := repository.NewPostgresFactory(db)
//	signalRepo := factory.SignalRepository()
//	commandRepo := factory.CommandRepository()
type RepositoryFactory interface {
	SignalRepository() SignalRepository
	CommandRepository() CommandRepository
	ResultRepository() ResultRepository
	SymbolRepository() SymbolRepository
}
