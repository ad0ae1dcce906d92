// Package postgresql journals ingestion and proving activity to PostgreSQL.
package postgresql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hyle-oof/oofprover/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	insertBlock = `INSERT INTO blocks (height, hash, tx_count, processed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (height) DO UPDATE SET hash = EXCLUDED.hash, tx_count = EXCLUDED.tx_count, processed_at = EXCLUDED.processed_at`

	insertTxEvent = `INSERT INTO tx_events (tx_hash, kind, reason, created_at) VALUES ($1, $2, $3, $4)`

	insertProof = `INSERT INTO proofs (task_id, contract_name, tx_hash, proof_tx_hash, error, duration_ms, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (task_id) DO NOTHING`

	selectLatestBlock = `SELECT height, hash, tx_count, processed_at FROM blocks ORDER BY height DESC LIMIT 1`
)

type PostgresOutputHandler struct {
	db *sql.DB
}

// NewPostgresOutputHandler connects to connString and applies pending migrations.
func NewPostgresOutputHandler(ctx context.Context, connString string) (*PostgresOutputHandler, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sql.DB) *PostgresOutputHandler {
	return &PostgresOutputHandler{db: db}
}

// Migrate brings the schema up to date.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err == nil {
		slog.Info("Database schema ready", "version", version, "dirty", dirty)
	}
	return nil
}

func (h *PostgresOutputHandler) WriteBlock(ctx context.Context, rec models.BlockRecord) error {
	if _, err := h.db.ExecContext(ctx, insertBlock, int64(rec.Height), rec.Hash, rec.TxCount, rec.ProcessedAt); err != nil {
		return fmt.Errorf("failed to write block %d: %w", rec.Height, err)
	}
	return nil
}

func (h *PostgresOutputHandler) WriteTxEvent(ctx context.Context, rec models.TxEventRecord) error {
	if _, err := h.db.ExecContext(ctx, insertTxEvent, string(rec.TxHash), rec.Kind, rec.Reason, rec.CreatedAt); err != nil {
		return fmt.Errorf("failed to write %s event for tx %s: %w", rec.Kind, rec.TxHash, err)
	}
	return nil
}

func (h *PostgresOutputHandler) WriteProofResult(ctx context.Context, rec models.ProofRecord) error {
	_, err := h.db.ExecContext(ctx, insertProof,
		rec.TaskID,
		string(rec.ContractName),
		string(rec.TxHash),
		string(rec.ProofTxHash),
		rec.Error,
		rec.Duration.Milliseconds(),
		rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write proof result for task %s: %w", rec.TaskID, err)
	}
	return nil
}

func (h *PostgresOutputHandler) GetLatestBlock(ctx context.Context) (*models.BlockRecord, error) {
	var (
		rec    models.BlockRecord
		height int64
	)
	err := h.db.QueryRowContext(ctx, selectLatestBlock).Scan(&height, &rec.Hash, &rec.TxCount, &rec.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}
	rec.Height = models.BlockHeight(height)
	return &rec, nil
}

func (h *PostgresOutputHandler) Close() error {
	return h.db.Close()
}
