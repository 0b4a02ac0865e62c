// Package history keeps an optional SQLite journal of asks. The journal is
// write-mostly: it is never consulted to answer a question.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/llmemo/pkg/models"
)

// maxResponseLen truncates stored responses.
const maxResponseLen = 8192

// Journal records asks in a SQLite database.
type Journal struct {
	db   *sql.DB
	keep int
}

const createTable = `
CREATE TABLE IF NOT EXISTS asks (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	question TEXT NOT NULL,
	model TEXT NOT NULL,
	variant TEXT NOT NULL,
	cache_hit INTEGER NOT NULL DEFAULT 0,
	latency_ms INTEGER NOT NULL DEFAULT 0,
	response TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_asks_created ON asks(created_at);
`

// Open opens (or creates) the journal at dbPath. When keep > 0 every Record
// drops all but the newest keep asks; keep <= 0 never prunes on its own.
func Open(dbPath string, keep int) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Journal{db: db, keep: keep}, nil
}

// Record stores one ask. Empty ID and CreatedAt are filled in.
func (j *Journal) Record(ctx context.Context, rec models.HistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	resp := rec.Response
	if len(resp) > maxResponseLen {
		n := maxResponseLen
		for n > 0 && !utf8.RuneStart(resp[n]) {
			n--
		}
		resp = resp[:n]
	}

	_, err := j.db.ExecContext(ctx,
		`INSERT INTO asks (id, question, model, variant, cache_hit, latency_ms, response, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Question, rec.Model, rec.Variant, rec.CacheHit, rec.LatencyMs, resp, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record ask: %w", err)
	}
	if j.keep > 0 {
		if _, err := j.Prune(ctx, j.keep); err != nil {
			return err
		}
	}
	return nil
}

// Recent returns up to limit records, newest first. limit <= 0 means 20.
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.HistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, question, model, variant, cache_hit, latency_ms, response, error, created_at
		 FROM asks ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRecord
	for rows.Next() {
		var r models.HistoryRecord
		if err := rows.Scan(&r.ID, &r.Question, &r.Model, &r.Variant, &r.CacheHit,
			&r.LatencyMs, &r.Response, &r.Error, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of journaled asks.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM asks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return n, nil
}

// Prune keeps the newest keep records and deletes the rest.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM asks WHERE seq <= (SELECT seq FROM asks ORDER BY seq DESC LIMIT 1 OFFSET ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
