package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of *pgxpool.Pool the journal needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const journalSchema = `
        CREATE TABLE IF NOT EXISTS command_journal (
            id          UUID PRIMARY KEY,
            kind        TEXT NOT NULL,
            session_id  TEXT NOT NULL,
            operation   TEXT NOT NULL,
            param_types BIGINT NOT NULL,
            code        BIGINT NOT NULL,
            detail      TEXT NOT NULL,
            recorded_at TIMESTAMPTZ NOT NULL
        )`

// PostgresJournal appends entries to the command_journal table. The table is
// write-only from the component's point of view; wallet state is never
// rebuilt from it.
type PostgresJournal struct {
	db      Execer
	timeout time.Duration
}

// NewPostgresJournal constructs a Postgres-backed journal.
func NewPostgresJournal(db Execer) *PostgresJournal {
	return &PostgresJournal{db: db, timeout: 2 * time.Second}
}

// EnsureSchema creates the journal table when it does not exist.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, journalSchema); err != nil {
		return fmt.Errorf("create command_journal: %w", err)
	}
	return nil
}

// Record inserts one journal row.
func (j *PostgresJournal) Record(ctx context.Context, entry Entry) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	at := entry.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := j.db.Exec(ctx, `INSERT INTO command_journal
        (id, kind, session_id, operation, param_types, code, detail, recorded_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New(), entry.Kind, entry.SessionID, entry.Operation,
		int64(entry.ParamTypes), int64(entry.Code), entry.Detail, at.UTC())
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}
