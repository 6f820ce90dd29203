// Package history is an audit-only ledger of upload attempts: what ran,
// when, and how it ended. It never feeds back into resumption — the
// engine resumes solely from the server's reported uploadedChunks
// (spec's Non-goals explicitly exclude persisting upload state across
// restarts). This package exists purely so a user can ask "what did I
// upload last week" without grepping log files, grounded on the teacher's
// internal/sync SQLiteStore.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, registers as "sqlite"
)

// Store is a small SQLite-backed ledger of upload attempts.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	insertStmt *sql.Stmt
	finishStmt *sql.Stmt
	recentStmt *sql.Stmt
}

// Record is one logged upload attempt.
type Record struct {
	ID         int64
	FileName   string
	FileSize   int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string // running, finished, aborted, failed
	Detail     string
}

// Open opens (creating if needed) the ledger database at dbPath, applying
// migrations and preparing statements. Use ":memory:" for tests.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening upload history database", slog.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()

		return nil, fmt.Errorf("history: setting WAL mode: %w", err)
	}

	if err := migrate(ctx, db, logger); err != nil {
		db.Close()

		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepare(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *Store) prepare() error {
	var err error

	s.insertStmt, err = s.db.Prepare(
		`INSERT INTO uploads (file_name, file_size, started_at, status) VALUES (?, ?, ?, 'running')`,
	)
	if err != nil {
		return fmt.Errorf("history: preparing insert statement: %w", err)
	}

	s.finishStmt, err = s.db.Prepare(
		`UPDATE uploads SET status = ?, detail = ?, finished_at = ? WHERE id = ?`,
	)
	if err != nil {
		return fmt.Errorf("history: preparing finish statement: %w", err)
	}

	s.recentStmt, err = s.db.Prepare(
		`SELECT id, file_name, file_size, started_at, finished_at, status, detail
		 FROM uploads ORDER BY started_at DESC LIMIT ?`,
	)
	if err != nil {
		return fmt.Errorf("history: preparing recent statement: %w", err)
	}

	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin logs the start of an upload attempt and returns its row ID.
func (s *Store) Begin(ctx context.Context, fileName string, fileSize int64) (int64, error) {
	res, err := s.insertStmt.ExecContext(ctx, fileName, fileSize, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("history: recording upload start: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: reading inserted id: %w", err)
	}

	return id, nil
}

// Finish records the terminal status of an upload attempt previously
// opened with Begin.
func (s *Store) Finish(ctx context.Context, id int64, status, detail string) error {
	_, err := s.finishStmt.ExecContext(ctx, status, detail, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("history: recording upload finish: %w", err)
	}

	return nil
}

// Recent returns the limit most recent upload attempts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.recentStmt.QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("history: querying recent uploads: %w", err)
	}
	defer rows.Close()

	var records []Record

	for rows.Next() {
		var (
			rec        Record
			finishedAt sql.NullTime
			detail     sql.NullString
		)

		if err := rows.Scan(&rec.ID, &rec.FileName, &rec.FileSize, &rec.StartedAt, &finishedAt, &rec.Status, &detail); err != nil {
			return nil, fmt.Errorf("history: scanning upload row: %w", err)
		}

		if finishedAt.Valid {
			rec.FinishedAt = &finishedAt.Time
		}

		rec.Detail = detail.String

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating upload rows: %w", err)
	}

	return records, nil
}
