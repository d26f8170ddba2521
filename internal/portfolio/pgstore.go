package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultLedgerID names the single-user ledger row
const DefaultLedgerID = "default"

const ledgerSchema = `
	CREATE SCHEMA IF NOT EXISTS portfolio;

	CREATE TABLE IF NOT EXISTS portfolio.ledger_state (
		ledger_id  TEXT PRIMARY KEY,
		version    INT NOT NULL,
		state      JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS portfolio.ledger_snapshots (
		ledger_id       TEXT NOT NULL,
		snapshot_date   DATE NOT NULL,
		cash            NUMERIC NOT NULL,
		total_positions INT NOT NULL,
		total_txns      INT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (ledger_id, snapshot_date)
	);
`

// PGStore keeps the ledger as a JSONB document in Postgres
// ⭐ SSOT: Ledger DB 저장/조회는 여기서만
type PGStore struct {
	pool *pgxpool.Pool
	id   string
}

// NewPGStore creates a Postgres-backed ledger store
func NewPGStore(pool *pgxpool.Pool, ledgerID string) *PGStore {
	if ledgerID == "" {
		ledgerID = DefaultLedgerID
	}
	return &PGStore{pool: pool, id: ledgerID}
}

// EnsureSchema creates the ledger tables if needed
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, ledgerSchema); err != nil {
		return fmt.Errorf("failed to create ledger schema: %w", err)
	}
	return nil
}

// Load reads the ledger document. No row is an empty ledger.
func (s *PGStore) Load(ctx context.Context) (*State, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		"SELECT state FROM portfolio.ledger_state WHERE ledger_id = $1",
		s.id,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return Decode(raw)
}

// Save replaces the ledger document and upserts today's snapshot row
// in one transaction
func (s *PGStore) Save(ctx context.Context, state *State) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO portfolio.ledger_state (ledger_id, version, state, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (ledger_id) DO UPDATE SET
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			updated_at = NOW()
	`, s.id, state.Version, doc)
	if err != nil {
		return fmt.Errorf("failed to save ledger: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO portfolio.ledger_snapshots (
			ledger_id, snapshot_date, cash, total_positions, total_txns, created_at
		) VALUES ($1, CURRENT_DATE, $2, $3, $4, NOW())
		ON CONFLICT (ledger_id, snapshot_date) DO UPDATE SET
			cash = EXCLUDED.cash,
			total_positions = EXCLUDED.total_positions,
			total_txns = EXCLUDED.total_txns,
			created_at = NOW()
	`, s.id, state.Cash, len(state.Positions), len(state.History))
	if err != nil {
		return fmt.Errorf("failed to save ledger snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
