package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/tourney/internal/bracket"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"
)

// SQLStore keeps snapshots in sqlite, one row per scope plus a trimmed history table.
type SQLStore struct {
	db    *sqlx.DB
	clock clockwork.Clock
	keep  int
}

func NewSQLStore(db *sqlx.DB, clock clockwork.Clock) *SQLStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SQLStore{db: db, clock: clock, keep: HistoryLimit}
}

type snapshotRow struct {
	Scope        string    `db:"scope"`
	TournamentID string    `db:"tournament_id"`
	Data         []byte    `db:"data"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (s *SQLStore) Save(ctx context.Context, scope string, t *bracket.Tournament) error {
	scope, err := ValidateScope(scope)
	if err != nil {
		return err
	}
	data, err := encode(t)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := snapshotRow{
		Scope:        scope,
		TournamentID: t.Meta.ID,
		Data:         data,
		UpdatedAt:    s.clock.Now().UTC(),
	}

	_, err = tx.NamedExecContext(ctx, `INSERT INTO snapshots (scope, tournament_id, data, updated_at)
		VALUES (:scope, :tournament_id, :data, :updated_at)
		ON CONFLICT(scope) DO UPDATE SET tournament_id = excluded.tournament_id, data = excluded.data, updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	_, err = tx.NamedExecContext(ctx, `INSERT INTO snapshot_history (scope, tournament_id, data, created_at)
		VALUES (:scope, :tournament_id, :data, :updated_at)`, row)
	if err != nil {
		return fmt.Errorf("insert snapshot history: %w", err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM snapshot_history WHERE scope = ? AND id NOT IN (
		SELECT id FROM snapshot_history WHERE scope = ? ORDER BY id DESC LIMIT ?)`, scope, scope, s.keep)
	if err != nil {
		return fmt.Errorf("prune snapshot history: %w", err)
	}

	return tx.Commit()
}

func (s *SQLStore) Load(ctx context.Context, scope string) (*bracket.Tournament, error) {
	scope, err := ValidateScope(scope)
	if err != nil {
		return nil, err
	}
	var row snapshotRow
	err = s.db.GetContext(ctx, &row, "SELECT scope, tournament_id, data, updated_at FROM snapshots WHERE scope = ?", scope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return decode(row.Data)
}

func (s *SQLStore) History(ctx context.Context, scope string) ([]Revision, error) {
	scope, err := ValidateScope(scope)
	if err != nil {
		return nil, err
	}
	var revisions []Revision
	err = s.db.SelectContext(ctx, &revisions, `SELECT 'history-' || id AS name, created_at FROM snapshot_history
		WHERE scope = ? ORDER BY id DESC`, scope)
	return revisions, err
}
