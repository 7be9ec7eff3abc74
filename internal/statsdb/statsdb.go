// Package statsdb exports the telemetry event log into a SQLite database
// for offline ad-hoc SQL. The live core never reads this database; it is a
// one-way export target.
package statsdb

import (
	"bufio"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/keyfold/keyfold/internal/telemetry"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the SQLite export database.
type DB struct {
	db *sql.DB
}

// Open creates or opens the export database at path and applies the schema.
// Idempotent.
//
// The database is configured with WAL mode, NORMAL synchronous, a 5-second
// busy timeout, and foreign key enforcement. SQLite allows one writer at a
// time, so the pool is pinned to a single connection.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open stats database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to stats database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply stats schema: %w", err)
	}
	return &DB{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// ExportFile streams the JSON-Lines log at logPath into the executions
// table inside one transaction. Corrupt lines are skipped with a
// diagnostic, matching the telemetry replay behavior. Returns the number
// of rows inserted.
func (d *DB) ExportFile(ctx context.Context, logPath string) (int, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return 0, fmt.Errorf("open telemetry log %s: %w", logPath, err)
	}
	defer f.Close()
	return d.Export(ctx, f)
}

// Export streams JSON-Lines records from r into the executions table.
func (d *DB) Export(ctx context.Context, r io.Reader) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin export transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO executions (action_type, action_value, action_label, key_path, event_type, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	lineNo := 0
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e telemetry.Execution
		if err := json.Unmarshal(line, &e); err != nil {
			slog.Warn("skipping corrupt telemetry line during export", "line", lineNo, "error", err)
			continue
		}
		var label any
		if e.ActionLabel != "" {
			label = e.ActionLabel
		}
		_, err := stmt.ExecContext(ctx,
			e.ActionType, e.ActionValue, label, e.KeyPath,
			string(e.EventType), e.Timestamp.Format(time.RFC3339Nano))
		if err != nil {
			return 0, fmt.Errorf("insert line %d: %w", lineNo, err)
		}
		inserted++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("scan telemetry log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit export: %w", err)
	}
	return inserted, nil
}

// Count returns the number of exported rows.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM executions").Scan(&n); err != nil {
		return 0, fmt.Errorf("count executions: %w", err)
	}
	return n, nil
}
