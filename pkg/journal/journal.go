// Package journal keeps a per-process record of tool invocations in an
// in-memory SQLite database. Nothing is written to disk; the journal lives
// and dies with the server process.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tuesdays-dev/mcp-stdio-server/pkg/models"
)

// Journal records and queries tool invocations.
type Journal interface {
	// Record stores one invocation. A missing CallID is generated.
	Record(ctx context.Context, inv models.Invocation) error
	// Summary aggregates invocations per tool, ordered by tool name.
	Summary(ctx context.Context) ([]models.ToolStat, error)
	// Recent returns the newest invocations matching q.
	Recent(ctx context.Context, q models.InvocationQuery) ([]models.Invocation, error)
	// Prune drops the oldest rows beyond the configured capacity.
	Prune(ctx context.Context) (int64, error)
	// Close releases resources.
	Close() error
}

// Options tunes a SQLiteJournal.
type Options struct {
	// MaxEntries caps the number of retained rows; zero disables pruning.
	MaxEntries int
	// PruneInterval is how often the background loop prunes; zero disables it.
	PruneInterval time.Duration
}

var _ Journal = (*SQLiteJournal)(nil)

// SQLiteJournal implements Journal on an in-memory SQLite database.
type SQLiteJournal struct {
	db   *sql.DB
	opts Options
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the in-memory database, creates the schema and starts the prune
// loop when configured.
func New(opts Options) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal db: %w", err)
	}

	j := &SQLiteJournal{db: db, opts: opts, done: make(chan struct{})}
	if opts.MaxEntries > 0 && opts.PruneInterval > 0 {
		j.wg.Add(1)
		go j.pruneLoop()
	}
	return j, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS invocations (
		call_id     TEXT PRIMARY KEY,
		request_id  TEXT NOT NULL DEFAULT '',
		tool        TEXT NOT NULL,
		is_error    INTEGER NOT NULL DEFAULT 0,
		failure     TEXT NOT NULL DEFAULT '',
		duration_us INTEGER NOT NULL,
		created_at  INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool, created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_invocations_created ON invocations(created_at)`)
	return err
}

// Record stores an invocation.
func (j *SQLiteJournal) Record(ctx context.Context, inv models.Invocation) error {
	if inv.CallID == "" {
		inv.CallID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO invocations (call_id, request_id, tool, is_error, failure, duration_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inv.CallID, inv.RequestID, inv.Tool, inv.IsError, inv.Failure,
		inv.Duration.Microseconds(), inv.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record invocation: %w", err)
	}
	return nil
}

// Summary returns per-tool aggregates.
func (j *SQLiteJournal) Summary(ctx context.Context) ([]models.ToolStat, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT tool, COUNT(*), SUM(is_error),
		        SUM(CASE WHEN failure != '' THEN 1 ELSE 0 END),
		        AVG(duration_us), MAX(created_at)
		 FROM invocations GROUP BY tool ORDER BY tool`)
	if err != nil {
		return nil, fmt.Errorf("journal summary: %w", err)
	}
	defer rows.Close()

	var stats []models.ToolStat
	for rows.Next() {
		var (
			s      models.ToolStat
			meanUS float64
			lastNS int64
		)
		if err := rows.Scan(&s.Tool, &s.Calls, &s.Errors, &s.Failures, &meanUS, &lastNS); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.MeanDuration = time.Duration(meanUS * float64(time.Microsecond))
		s.LastCalledAt = time.Unix(0, lastNS).UTC()
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Recent returns the newest invocations matching q, newest first.
func (j *SQLiteJournal) Recent(ctx context.Context, q models.InvocationQuery) ([]models.Invocation, error) {
	query := `SELECT call_id, request_id, tool, is_error, failure, duration_us, created_at
		FROM invocations WHERE 1=1`
	var args []any

	if q.Tool != "" {
		query += " AND tool = ?"
		args = append(args, q.Tool)
	}
	if !q.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, q.Since.UnixNano())
	}
	if q.Errors {
		query += " AND (is_error = 1 OR failure != '')"
	}
	query += " ORDER BY created_at DESC"

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	var out []models.Invocation
	for rows.Next() {
		var (
			inv       models.Invocation
			durUS     int64
			createdNS int64
		)
		if err := rows.Scan(&inv.CallID, &inv.RequestID, &inv.Tool, &inv.IsError, &inv.Failure, &durUS, &createdNS); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		inv.Duration = time.Duration(durUS) * time.Microsecond
		inv.CreatedAt = time.Unix(0, createdNS).UTC()
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Prune deletes the oldest rows beyond MaxEntries.
func (j *SQLiteJournal) Prune(ctx context.Context) (int64, error) {
	if j.opts.MaxEntries <= 0 {
		return 0, nil
	}
	res, err := j.db.ExecContext(ctx,
		`DELETE FROM invocations WHERE call_id NOT IN (
			SELECT call_id FROM invocations ORDER BY created_at DESC LIMIT ?
		)`, j.opts.MaxEntries)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the prune loop and closes the database.
func (j *SQLiteJournal) Close() error {
	close(j.done)
	j.wg.Wait()
	return j.db.Close()
}

func (j *SQLiteJournal) pruneLoop() {
	defer j.wg.Done()
	ticker := time.NewTicker(j.opts.PruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			_, _ = j.Prune(context.Background())
		}
	}
}
