// Package storage backs a document's event log with a private in-memory
// SQLite database, queryable by kind and time range. The database is dropped
// when the log is closed, so no trace outlives its document.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/pagetrace/internal/recorder"
)

// RecordLog implements recorder.Log on SQLite.
type RecordLog struct {
	db *sql.DB

	// Prepared statements
	insertRecord *sql.Stmt
	countRecords *sql.Stmt
}

var _ recorder.Log = (*RecordLog)(nil)

// OpenMemory opens a fresh in-memory database named name, runs migrations and
// returns a ready log. Distinct names give distinct databases.
func OpenMemory(name string) (*RecordLog, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The database exists only while a connection holds it open.
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)

	runner := NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log, err := NewRecordLog(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create record log: %w", err)
	}
	return log, nil
}

// NewRecordLog creates a RecordLog from an already-opened and migrated
// database. The log takes ownership of db.
func NewRecordLog(db *sql.DB) (*RecordLog, error) {
	l := &RecordLog{db: db}
	if err := l.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return l, nil
}

func (l *RecordLog) prepareStatements() error {
	var err error

	l.insertRecord, err = l.db.Prepare(`INSERT INTO records (ts, kind, payload) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}

	l.countRecords, err = l.db.Prepare(`SELECT COUNT(*) FROM records`)
	if err != nil {
		return err
	}

	return nil
}

// Append stores rec after every record already stored.
func (l *RecordLog) Append(ctx context.Context, rec recorder.Record) error {
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if _, err := l.insertRecord.ExecContext(ctx, rec.Timestamp, string(rec.Kind), string(payload)); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// Records returns every record in append order.
func (l *RecordLog) Records(ctx context.Context) ([]recorder.Record, error) {
	return l.scanRecords(ctx, `SELECT ts, kind, payload FROM records ORDER BY seq`)
}

// Len returns the number of stored records.
func (l *RecordLog) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.countRecords.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Query returns records matching q in append order.
func (l *RecordLog) Query(ctx context.Context, q RecordQuery) ([]recorder.Record, error) {
	var clauses []string
	var args []interface{}

	if q.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "ts >= ?")
		args = append(args, q.Since.UnixMilli())
	}
	if !q.Until.IsZero() {
		clauses = append(clauses, "ts <= ?")
		args = append(args, q.Until.UnixMilli())
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	query := "SELECT ts, kind, payload FROM records" + where + " ORDER BY seq"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	}

	return l.scanRecords(ctx, query, args...)
}

// Stats returns aggregate counts for the trace.
func (l *RecordLog) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByKind: make(map[recorder.Kind]int64)}

	rows, err := l.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM records GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("count by kind: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		stats.ByKind[recorder.Kind(kind)] = n
		stats.TotalRecords += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Time range (handle empty trace)
	if stats.TotalRecords > 0 {
		var first, last int64
		err := l.db.QueryRowContext(ctx, "SELECT MIN(ts), MAX(ts) FROM records").Scan(&first, &last)
		if err != nil {
			return nil, fmt.Errorf("record time range: %w", err)
		}
		stats.First = time.UnixMilli(first)
		stats.Last = time.UnixMilli(last)
	}

	return stats, nil
}

// scanRecords executes a query and decodes the rows.
func (l *RecordLog) scanRecords(ctx context.Context, query string, args ...interface{}) ([]recorder.Record, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []recorder.Record{}
	for rows.Next() {
		var ts int64
		var kind, payload string
		if err := rows.Scan(&ts, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		k, err := recorder.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		p, err := recorder.DecodePayload(k, []byte(payload))
		if err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", k, err)
		}
		records = append(records, recorder.Record{Timestamp: ts, Kind: k, Payload: p})
	}

	return records, rows.Err()
}

// Close releases the prepared statements and the database; the in-memory
// trace is gone afterwards.
func (l *RecordLog) Close() error {
	for _, stmt := range []*sql.Stmt{l.insertRecord, l.countRecords} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return l.db.Close()
}
