package stats

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

const (
	recordCanonical = "user_database"
	recordLegacy    = "users"
)

const (
	selectRecordSQL = `SELECT body FROM stats_records WHERE name = $1`
	upsertRecordSQL = `INSERT INTO stats_records (name, body, updated_at) VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = now()`
	deleteRecordSQL = `DELETE FROM stats_records WHERE name = $1`
)

// PostgresBackend keeps each record as one row of the stats_records table.
// The body column is TEXT so the users object keeps its key order.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend wraps an open connection pool.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Name implements Backend.
func (b *PostgresBackend) Name() string { return "postgres" }

func recordName(loc Location) string {
	if loc == LocationLegacy {
		return recordLegacy
	}
	return recordCanonical
}

// Read implements Backend.
func (b *PostgresBackend) Read(ctx context.Context, loc Location) ([]byte, bool, error) {
	var body string
	err := b.db.GetContext(ctx, &body, selectRecordSQL, recordName(loc))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(body), true, nil
}

// Write implements Backend.
func (b *PostgresBackend) Write(ctx context.Context, loc Location, data []byte) error {
	_, err := b.db.ExecContext(ctx, upsertRecordSQL, recordName(loc), string(data))
	return err
}

// Delete implements Backend.
func (b *PostgresBackend) Delete(ctx context.Context, loc Location) error {
	_, err := b.db.ExecContext(ctx, deleteRecordSQL, recordName(loc))
	return err
}
