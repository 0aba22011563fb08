package storage

import "database/sql"

// migrateV001 creates the trace schema. The records table rejects updates
// and deletes so the log stays append-only.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			ts          INTEGER NOT NULL,
			kind        TEXT NOT NULL CHECK (kind IN ('click', 'keyup', 'scroll')),
			payload     TEXT NOT NULL,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_records_ts      ON records(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_records_kind_ts ON records(kind, ts)`,

		`CREATE TRIGGER IF NOT EXISTS records_no_update
			BEFORE UPDATE ON records
		BEGIN
			SELECT RAISE(ABORT, 'records are append-only');
		END`,

		`CREATE TRIGGER IF NOT EXISTS records_no_delete
			BEFORE DELETE ON records
		BEGIN
			SELECT RAISE(ABORT, 'records are append-only');
		END`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
