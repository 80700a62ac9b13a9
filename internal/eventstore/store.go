package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loqalabs/loqa-sing/internal/config"
)

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = errors.New("render not found")

// Render is one completed (or rejected) sing request.
type Render struct {
	JobID      string    `json:"job_id"`
	Lyric      string    `json:"lyric"`
	Notes      string    `json:"notes"`
	Durations  string    `json:"durations"`
	Voice      string    `json:"voice,omitempty"`
	EngineUsed string    `json:"engine_used,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationS  float64   `json:"duration_s"`
	Path       string    `json:"path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Attempt is one engine state tried while rendering.
type Attempt struct {
	Engine    string `json:"engine"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Store wraps a SQLite-backed render history.
type Store struct {
	db    *sql.DB
	cfg   config.EventStoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the event store according to config.
func Open(ctx context.Context, cfg config.EventStoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("event store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("event store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS renders (
    job_id TEXT PRIMARY KEY,
    lyric TEXT,
    notes TEXT,
    durations TEXT,
    voice TEXT,
    engine_used TEXT,
    status TEXT NOT NULL,
    error TEXT,
    duration_s REAL,
    path TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS attempts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    engine TEXT NOT NULL,
    outcome TEXT NOT NULL,
    error TEXT,
    elapsed_ms INTEGER,
    FOREIGN KEY(job_id) REFERENCES renders(job_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_renders_created ON renders(created_at);
CREATE INDEX IF NOT EXISTS idx_attempts_job ON attempts(job_id, seq);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) disabled() bool {
	return s.cfg.RetentionMode == "ephemeral" || s.db == nil
}

// RecordRender stores a render and its engine attempts atomically. A
// repeated job id replaces the earlier record.
func (s *Store) RecordRender(ctx context.Context, r Render, attempts []Attempt) (err error) {
	if s.disabled() {
		return nil
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock().UTC()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM renders WHERE job_id = ?`, r.JobID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO renders(job_id, lyric, notes, durations, voice, engine_used, status, error, duration_s, path, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.JobID, r.Lyric, r.Notes, r.Durations, r.Voice, r.EngineUsed, r.Status, r.Error, r.DurationS, r.Path, r.CreatedAt)
	if err != nil {
		return err
	}
	for i, a := range attempts {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO attempts(job_id, seq, engine, outcome, error, elapsed_ms) VALUES(?, ?, ?, ?, ?, ?)`,
			r.JobID, i, a.Engine, a.Outcome, a.Error, a.ElapsedMS)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// GetRender loads one render with its attempts in the order they ran.
func (s *Store) GetRender(ctx context.Context, jobID string) (Render, []Attempt, error) {
	if s.disabled() {
		return Render{}, nil, ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, selectRender+` WHERE job_id = ?`, jobID)
	r, err := scanRender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Render{}, nil, ErrNotFound
	}
	if err != nil {
		return Render{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT engine, outcome, error, elapsed_ms FROM attempts WHERE job_id = ? ORDER BY seq ASC`, jobID)
	if err != nil {
		return Render{}, nil, err
	}
	defer rows.Close()
	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var errText sql.NullString
		if err := rows.Scan(&a.Engine, &a.Outcome, &errText, &a.ElapsedMS); err != nil {
			return Render{}, nil, err
		}
		a.Error = errText.String
		attempts = append(attempts, a)
	}
	return r, attempts, rows.Err()
}

// ListRenders retrieves up to limit renders, newest first.
func (s *Store) ListRenders(ctx context.Context, limit int) ([]Render, error) {
	if s.disabled() {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, selectRender+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renders []Render
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			return nil, err
		}
		renders = append(renders, r)
	}
	return renders, rows.Err()
}

const selectRender = `SELECT job_id, lyric, notes, durations, voice, engine_used, status, error, duration_s, path, created_at FROM renders`

type scanner interface {
	Scan(dest ...any) error
}

func scanRender(row scanner) (Render, error) {
	var r Render
	var lyric, notes, durations, voice, engine, errText, path sql.NullString
	var duration sql.NullFloat64
	var created string
	if err := row.Scan(&r.JobID, &lyric, &notes, &durations, &voice, &engine, &r.Status, &errText, &duration, &path, &created); err != nil {
		return Render{}, err
	}
	r.Lyric, r.Notes, r.Durations, r.Voice = lyric.String, notes.String, durations.String, voice.String
	r.EngineUsed, r.Error, r.Path = engine.String, errText.String, path.String
	r.DurationS = duration.Float64
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		r.CreatedAt = ts
	}
	return r, nil
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) (err error) {
	if s.disabled() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM renders WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxRenders > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM renders WHERE job_id IN (
			SELECT job_id FROM renders ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRenders)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// Ensure supplies a no-op store when persistence disabled.
func (s *Store) Ensure() error {
	if s.cfg.RetentionMode == "ephemeral" && s.db != nil {
		return errors.New("ephemeral store should not have database connection")
	}
	return nil
}
