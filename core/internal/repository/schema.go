package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema crea el esquema y las tablas del bridge si no existen.
//
// Es idempotente: se ejecuta en cada arranque del core antes de aceptar
// tráfico. Las migraciones destructivas quedan fuera; solo CREATE IF NOT
// EXISTS.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE SCHEMA IF NOT EXISTS bridge`,

		`CREATE TABLE IF NOT EXISTS bridge.signals (
			signal_id       TEXT PRIMARY KEY,
			direction       TEXT NOT NULL,
			external_symbol TEXT NOT NULL,
			broker_symbol   TEXT NOT NULL,
			price           DOUBLE PRECISION,
			entry_price     DOUBLE PRECISION,
			stop_loss       DOUBLE PRECISION,
			take_profit     DOUBLE PRECISION,
			source          TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT 'pending',
			error_message   TEXT NOT NULL DEFAULT '',
			created_at_ms   BIGINT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_signals_created_at_ms
			ON bridge.signals (created_at_ms DESC)`,

		`CREATE TABLE IF NOT EXISTS bridge.commands (
			command_id         TEXT PRIMARY KEY,
			action             TEXT NOT NULL,
			symbol             TEXT NOT NULL DEFAULT '',
			direction          TEXT NOT NULL DEFAULT '',
			volume             DOUBLE PRECISION NOT NULL DEFAULT 0,
			stop_loss          DOUBLE PRECISION,
			take_profit        DOUBLE PRECISION,
			position_id        TEXT NOT NULL DEFAULT '',
			signal_id          TEXT REFERENCES bridge.signals (signal_id),
			status             TEXT NOT NULL DEFAULT 'pending',
			error_message      TEXT NOT NULL DEFAULT '',
			created_at_ms      BIGINT NOT NULL,
			sent_at_ms         BIGINT NOT NULL DEFAULT 0,
			acknowledged_at_ms BIGINT NOT NULL DEFAULT 0,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_commands_status_created
			ON bridge.commands (status, created_at_ms ASC)`,

		// Como máximo un comando no terminal por señal
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_commands_signal_active
			ON bridge.commands (signal_id)
			WHERE status IN ('pending', 'sent') AND signal_id IS NOT NULL`,

		`CREATE TABLE IF NOT EXISTS bridge.execution_results (
			result_id      TEXT PRIMARY KEY,
			command_id     TEXT NOT NULL UNIQUE REFERENCES bridge.commands (command_id),
			success        BOOLEAN NOT NULL,
			order_id       TEXT NOT NULL DEFAULT '',
			position_id    TEXT NOT NULL DEFAULT '',
			error_message  TEXT NOT NULL DEFAULT '',
			raw_payload    TEXT NOT NULL DEFAULT '',
			received_at_ms BIGINT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS bridge.symbol_mappings (
			external_symbol TEXT PRIMARY KEY,
			broker_symbol   TEXT NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return nil
}
