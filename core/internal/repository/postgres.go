// Package repository provee implementaciones de persistencia para el core del bridge.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"

	_ "github.com/lib/pq" // Driver PostgreSQL
)

// PostgresFactory implementa domain.RepositoryFactory para PostgreSQL.
type PostgresFactory struct {
	db *sql.DB

	// Repositorios inicializados lazy
	signalRepo  domain.SignalRepository
	commandRepo domain.CommandRepository
	resultRepo  domain.ResultRepository
	symbolRepo  domain.SymbolRepository
}

// NewPostgresFactory crea un factory de repositorios PostgreSQL.
//
// Uso:
//
//	db, err := sql.Open("postgres", connStr)
//	factory := repository.NewPostgresFactory(db)
//	signalRepo := factory.SignalRepository()
func NewPostgresFactory(db *sql.DB) *PostgresFactory {
	return &PostgresFactory{
		db: db,
	}
}

// SignalRepository retorna el repositorio de señales.
func (f *PostgresFactory) SignalRepository() domain.SignalRepository {
	if f.signalRepo == nil {
		f.signalRepo = &postgresSignalRepo{db: f.db}
	}
	return f.signalRepo
}

// CommandRepository retorna el repositorio de comandos.
func (f *PostgresFactory) CommandRepository() domain.CommandRepository {
	if f.commandRepo == nil {
		f.commandRepo = &postgresCommandRepo{db: f.db}
	}
	return f.commandRepo
}

// ResultRepository retorna el repositorio de resultados de ejecución.
func (f *PostgresFactory) ResultRepository() domain.ResultRepository {
	if f.resultRepo == nil {
		f.resultRepo = &postgresResultRepo{db: f.db}
	}
	return f.resultRepo
}

// SymbolRepository retorna el repositorio de mapeos de símbolos.
func (f *PostgresFactory) SymbolRepository() domain.SymbolRepository {
	if f.symbolRepo == nil {
		f.symbolRepo = &postgresSymbolRepo{db: f.db}
	}
	return f.symbolRepo
}

// ===========================================================================
// postgresSignalRepo
// ===========================================================================

type postgresSignalRepo struct {
	db *sql.DB
}

func (r *postgresSignalRepo) Create(ctx context.Context, signal *domain.Signal) error {
	query := `
		INSERT INTO bridge.signals (
			signal_id, direction, external_symbol, broker_symbol,
			price, entry_price, stop_loss, take_profit,
			source, status, error_message, created_at_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		signal.SignalID,
		signal.Direction,
		signal.ExternalSymbol,
		signal.BrokerSymbol,
		signal.Price,
		signal.EntryPrice,
		signal.StopLoss,
		signal.TakeProfit,
		signal.Source,
		signal.Status,
		signal.ErrorMessage,
		signal.CreatedAtMs,
	)
	if err != nil {
		return fmt.Errorf("failed to create signal: %w", err)
	}
	return nil
}

func (r *postgresSignalRepo) GetByID(ctx context.Context, signalID string) (*domain.Signal, error) {
	query := `
		SELECT signal_id, direction, external_symbol, broker_symbol,
		       price, entry_price, stop_loss, take_profit,
		       source, status, error_message, created_at_ms, created_at, updated_at
		FROM bridge.signals
		WHERE signal_id = $1
	`
	signals, err := r.querySignals(ctx, query, signalID)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, nil
	}
	return signals[0], nil
}

func (r *postgresSignalRepo) UpdateStatus(ctx context.Context, signalID string, status domain.SignalStatus, errorMessage string) error {
	query := `
		UPDATE bridge.signals
		SET status = $1, error_message = $2, updated_at = NOW()
		WHERE signal_id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, errorMessage, signalID)
	if err != nil {
		return fmt.Errorf("failed to update signal status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("signal not found: %s", signalID)
	}
	return nil
}

func (r *postgresSignalRepo) Recent(ctx context.Context, limit int) ([]*domain.Signal, error) {
	query := `
		SELECT signal_id, direction, external_symbol, broker_symbol,
		       price, entry_price, stop_loss, take_profit,
		       source, status, error_message, created_at_ms, created_at, updated_at
		FROM bridge.signals
		ORDER BY created_at_ms DESC
		LIMIT $1
	`
	return r.querySignals(ctx, query, limit)
}

func (r *postgresSignalRepo) querySignals(ctx context.Context, query string, args ...interface{}) ([]*domain.Signal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []*domain.Signal
	for rows.Next() {
		var signal domain.Signal
		err := rows.Scan(
			&signal.SignalID,
			&signal.Direction,
			&signal.ExternalSymbol,
			&signal.BrokerSymbol,
			&signal.Price,
			&signal.EntryPrice,
			&signal.StopLoss,
			&signal.TakeProfit,
			&signal.Source,
			&signal.Status,
			&signal.ErrorMessage,
			&signal.CreatedAtMs,
			&signal.CreatedAt,
			&signal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		signals = append(signals, &signal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return signals, nil
}

// ===========================================================================
// postgresCommandRepo
// ===========================================================================

type postgresCommandRepo struct {
	db *sql.DB
}

const commandColumns = `
	command_id, action, symbol, direction, volume, stop_loss, take_profit,
	position_id, signal_id, status, error_message,
	created_at_ms, sent_at_ms, acknowledged_at_ms, created_at, updated_at
`

func (r *postgresCommandRepo) Create(ctx context.Context, cmd *domain.Command) error {
	query := `
		INSERT INTO bridge.commands (
			command_id, action, symbol, direction, volume, stop_loss, take_profit,
			position_id, signal_id, status, error_message,
			created_at_ms, sent_at_ms, acknowledged_at_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`
	_, err := r.db.ExecContext(ctx, query,
		cmd.CommandID,
		cmd.Action,
		cmd.Symbol,
		cmd.Direction,
		cmd.Volume,
		cmd.StopLoss,
		cmd.TakeProfit,
		cmd.PositionID,
		cmd.SignalID,
		cmd.Status,
		cmd.ErrorMessage,
		cmd.CreatedAtMs,
		cmd.SentAtMs,
		cmd.AcknowledgedAtMs,
	)
	if err != nil {
		return fmt.Errorf("failed to create command: %w", err)
	}
	return nil
}

func (r *postgresCommandRepo) GetByID(ctx context.Context, commandID string) (*domain.Command, error) {
	query := `
		SELECT ` + commandColumns + `
		FROM bridge.commands
		WHERE command_id = $1
	`
	cmds, err := r.queryCommands(ctx, query, commandID)
	if err != nil {
		return nil, err
	}
	if len(cmds) == 0 {
		return nil, nil
	}
	return cmds[0], nil
}

func (r *postgresCommandRepo) GetNonTerminalBySignal(ctx context.Context, signalID string) (*domain.Command, error) {
	query := `
		SELECT ` + commandColumns + `
		FROM bridge.commands
		WHERE signal_id = $1 AND status IN ('pending', 'sent')
		ORDER BY created_at_ms ASC
		LIMIT 1
	`
	cmds, err := r.queryCommands(ctx, query, signalID)
	if err != nil {
		return nil, err
	}
	if len(cmds) == 0 {
		return nil, nil
	}
	return cmds[0], nil
}

// UpdateStatus escribe la transición con guarda de estado: el WHERE exige
// el estado de partida, de modo que dos escritores concurrentes (sweep de
// timeouts y reportes del agent) nunca pisan una transición ya aplicada.
func (r *postgresCommandRepo) UpdateStatus(ctx context.Context, cmd *domain.Command, from domain.CommandStatus) error {
	query := `
		UPDATE bridge.commands
		SET status = $1, error_message = $2, sent_at_ms = $3,
		    acknowledged_at_ms = $4, updated_at = NOW()
		WHERE command_id = $5 AND status = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		cmd.Status,
		cmd.ErrorMessage,
		cmd.SentAtMs,
		cmd.AcknowledgedAtMs,
		cmd.CommandID,
		from,
	)
	if err != nil {
		return fmt.Errorf("failed to update command status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.NewError(domain.ErrStateConflict,
			fmt.Sprintf("command %s is no longer %s", cmd.CommandID, from))
	}
	return nil
}

func (r *postgresCommandRepo) Pending(ctx context.Context) ([]*domain.Command, error) {
	query := `
		SELECT ` + commandColumns + `
		FROM bridge.commands
		WHERE status = 'pending'
		ORDER BY created_at_ms ASC
	`
	return r.queryCommands(ctx, query)
}

func (r *postgresCommandRepo) PendingForDelivery(ctx context.Context) ([]*domain.Command, error) {
	query := `
		SELECT ` + commandColumns + `
		FROM bridge.commands
		WHERE status IN ('pending', 'sent')
		ORDER BY created_at_ms ASC
	`
	return r.queryCommands(ctx, query)
}

func (r *postgresCommandRepo) SentBefore(ctx context.Context, thresholdMs int64) ([]*domain.Command, error) {
	query := `
		SELECT ` + commandColumns + `
		FROM bridge.commands
		WHERE status = 'sent' AND sent_at_ms <= $1
		ORDER BY sent_at_ms ASC
	`
	return r.queryCommands(ctx, query, thresholdMs)
}

func (r *postgresCommandRepo) Failed(ctx context.Context, limit int) ([]*domain.Command, error) {
	query := `
		SELECT ` + commandColumns + `
		FROM bridge.commands
		WHERE status = 'failed'
		ORDER BY updated_at DESC
		LIMIT $1
	`
	return r.queryCommands(ctx, query, limit)
}

func (r *postgresCommandRepo) queryCommands(ctx context.Context, query string, args ...interface{}) ([]*domain.Command, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var cmds []*domain.Command
	for rows.Next() {
		var cmd domain.Command
		err := rows.Scan(
			&cmd.CommandID,
			&cmd.Action,
			&cmd.Symbol,
			&cmd.Direction,
			&cmd.Volume,
			&cmd.StopLoss,
			&cmd.TakeProfit,
			&cmd.PositionID,
			&cmd.SignalID,
			&cmd.Status,
			&cmd.ErrorMessage,
			&cmd.CreatedAtMs,
			&cmd.SentAtMs,
			&cmd.AcknowledgedAtMs,
			&cmd.CreatedAt,
			&cmd.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		cmds = append(cmds, &cmd)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return cmds, nil
}

// ===========================================================================
// postgresResultRepo
// ===========================================================================

type postgresResultRepo struct {
	db *sql.DB
}

func (r *postgresResultRepo) Record(ctx context.Context, result *domain.ExecutionResult) (*domain.ExecutionResult, error) {
	// Idempotencia por command_id: el primer resultado gana, los reintentos
	// del agent retornan el existente sin tocar la fila.
	query := `
		INSERT INTO bridge.execution_results (
			result_id, command_id, success, order_id, position_id,
			error_message, raw_payload, received_at_ms
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (command_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		result.ResultID,
		result.CommandID,
		result.Success,
		result.OrderID,
		result.PositionID,
		result.ErrorMessage,
		result.RawPayload,
		result.ReceivedAtMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record result: %w", err)
	}

	return r.GetByCommandID(ctx, result.CommandID)
}

func (r *postgresResultRepo) GetByCommandID(ctx context.Context, commandID string) (*domain.ExecutionResult, error) {
	query := `
		SELECT result_id, command_id, success, order_id, position_id,
		       error_message, raw_payload, received_at_ms, created_at
		FROM bridge.execution_results
		WHERE command_id = $1
	`
	var result domain.ExecutionResult
	err := r.db.QueryRowContext(ctx, query, commandID).Scan(
		&result.ResultID,
		&result.CommandID,
		&result.Success,
		&result.OrderID,
		&result.PositionID,
		&result.ErrorMessage,
		&result.RawPayload,
		&result.ReceivedAtMs,
		&result.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return &result, nil
}

func (r *postgresResultRepo) List(ctx context.Context, limit, offset int) ([]*domain.ExecutionResult, error) {
	query := `
		SELECT result_id, command_id, success, order_id, position_id,
		       error_message, raw_payload, received_at_ms, created_at
		FROM bridge.execution_results
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []*domain.ExecutionResult
	for rows.Next() {
		var result domain.ExecutionResult
		err := rows.Scan(
			&result.ResultID,
			&result.CommandID,
			&result.Success,
			&result.OrderID,
			&result.PositionID,
			&result.ErrorMessage,
			&result.RawPayload,
			&result.ReceivedAtMs,
			&result.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return results, nil
}

// ===========================================================================
// postgresSymbolRepo
// ===========================================================================

type postgresSymbolRepo struct {
	db *sql.DB
}

func (r *postgresSymbolRepo) Upsert(ctx context.Context, mapping *domain.SymbolMapping) error {
	query := `
		INSERT INTO bridge.symbol_mappings (external_symbol, broker_symbol)
		VALUES ($1, $2)
		ON CONFLICT (external_symbol) DO UPDATE
		SET broker_symbol = EXCLUDED.broker_symbol, updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, mapping.ExternalSymbol, mapping.BrokerSymbol)
	if err != nil {
		return fmt.Errorf("failed to upsert symbol mapping: %w", err)
	}
	return nil
}

func (r *postgresSymbolRepo) GetByExternal(ctx context.Context, externalSymbol string) (*domain.SymbolMapping, error) {
	query := `
		SELECT external_symbol, broker_symbol, created_at, updated_at
		FROM bridge.symbol_mappings
		WHERE external_symbol = $1
	`
	var mapping domain.SymbolMapping
	err := r.db.QueryRowContext(ctx, query, externalSymbol).Scan(
		&mapping.ExternalSymbol,
		&mapping.BrokerSymbol,
		&mapping.CreatedAt,
		&mapping.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol mapping: %w", err)
	}
	return &mapping, nil
}

func (r *postgresSymbolRepo) List(ctx context.Context) ([]*domain.SymbolMapping, error) {
	query := `
		SELECT external_symbol, broker_symbol, created_at, updated_at
		FROM bridge.symbol_mappings
		ORDER BY external_symbol ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbol mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*domain.SymbolMapping
	for rows.Next() {
		var mapping domain.SymbolMapping
		err := rows.Scan(
			&mapping.ExternalSymbol,
			&mapping.BrokerSymbol,
			&mapping.CreatedAt,
			&mapping.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol mapping: %w", err)
		}
		mappings = append(mappings, &mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return mappings, nil
}
