package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Nishanttwho/Tradingview-to-bridge/sdk/domain"
)

const (
	reportsBucketName = "reports" // command_id → ReportMessage (idempotencia)
	targetsBucketName = "targets" // ticket → PositionTarget (staged exits)
)

// ExitStage es la etapa del staged exit de una posición.
type ExitStage int

const (
	// StageArmed: target registrado, esperando que el precio alcance D.
	StageArmed ExitStage = iota
	// StagePartialDone: cierre parcial ejecutado, falta el modify de
	// break-even + target extendido (reintento pendiente).
	StagePartialDone
	// StageComplete: runner armado; la posición ya no se gestiona.
	StageComplete
)

// PositionTarget es el estado durable del staged exit de una posición.
//
// Sobrevive reinicios del agent: sin él, una caída después de abrir
// perdería los niveles del plan de salida.
type PositionTarget struct {
	Ticket        string           `json:"ticket"`
	Symbol        string           `json:"symbol"`
	Direction     domain.Direction `json:"direction"`
	EntryPrice    float64          `json:"entry_price"`
	Distance      float64          `json:"distance"` // |entry - stop| en precio
	InitialVolume float64          `json:"initial_volume"`
	Stage         ExitStage        `json:"stage"`
	CommandID     string           `json:"command_id"`
	UpdatedAtMs   int64            `json:"updated_at_ms"`
}

// StageOnePrice retorna el precio que dispara el cierre parcial.
func (t *PositionTarget) StageOnePrice() float64 {
	if t.Direction == domain.DirectionSell {
		return t.EntryPrice - t.Distance
	}
	return t.EntryPrice + t.Distance
}

// RunnerTargetPrice retorna el take profit del runner (2x la distancia).
func (t *PositionTarget) RunnerTargetPrice() float64 {
	if t.Direction == domain.DirectionSell {
		return t.EntryPrice - 2*t.Distance
	}
	return t.EntryPrice + 2*t.Distance
}

// Ledger es el estado durable local del agent sobre bbolt.
//
// Guarda dos cosas:
//   - Reportes emitidos por comando: detecta comandos duplicados tras un
//     replay del core y permite re-reportar el desenlace original.
//   - Targets de posiciones: el plan de salida por etapas.
type Ledger struct {
	db *bolt.DB
}

// OpenLedger abre (o crea) el ledger en la ruta dada.
func OpenLedger(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir ledger path: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(reportsBucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(targetsBucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close cierra el ledger.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// PutReport persiste el reporte emitido para un comando.
func (l *Ledger) PutReport(report *domain.ReportMessage) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(reportsBucketName))
		data, err := json.Marshal(report)
		if err != nil {
			return err
		}
		return b.Put([]byte(report.CommandID), data)
	})
}

// GetReport retorna el reporte previamente emitido para un comando.
// Nil si el comando nunca se procesó.
func (l *Ledger) GetReport(commandID string) (*domain.ReportMessage, error) {
	var report *domain.ReportMessage
	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(reportsBucketName)).Get([]byte(commandID))
		if len(data) == 0 {
			return nil
		}
		var r domain.ReportMessage
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		report = &r
		return nil
	})
	return report, err
}

// PutTarget persiste el plan de salida de una posición.
func (l *Ledger) PutTarget(target *PositionTarget) error {
	target.UpdatedAtMs = time.Now().UnixMilli()
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(targetsBucketName))
		data, err := json.Marshal(target)
		if err != nil {
			return err
		}
		return b.Put([]byte(target.Ticket), data)
	})
}

// GetTarget retorna el plan de salida de una posición. Nil si no hay.
func (l *Ledger) GetTarget(ticket string) (*PositionTarget, error) {
	var target *PositionTarget
	err := l.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(targetsBucketName)).Get([]byte(ticket))
		if len(data) == 0 {
			return nil
		}
		var t PositionTarget
		if err := json.Unmarshal(data, &t); err != nil {
			return err
		}
		target = &t
		return nil
	})
	return target, err
}

// DeleteTarget elimina el plan de salida de una posición.
func (l *Ledger) DeleteTarget(ticket string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(targetsBucketName)).Delete([]byte(ticket))
	})
}

// ActiveTargets retorna los planes de salida que todavía requieren
// gestión (stage < complete).
func (l *Ledger) ActiveTargets() ([]*PositionTarget, error) {
	var targets []*PositionTarget
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(targetsBucketName)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if len(v) == 0 {
				continue
			}
			var t PositionTarget
			if err := json.Unmarshal(v, &t); err != nil {
				continue
			}
			if t.Stage == StageComplete {
				continue
			}
			targets = append(targets, &t)
		}
		return nil
	})
	return targets, err
}
