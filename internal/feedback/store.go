package feedback

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one piece of user feedback on an answer.
type Entry struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	AnswerSummary string    `json:"answerSummary,omitempty"`
	Helpful       bool      `json:"helpful"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store is a local SQLite-backed feedback table.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	p := filepath.Clean(strings.TrimSpace(path))
	if p == "" {
		return nil, errors.New("missing db path")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			question TEXT NOT NULL,
			answer_summary TEXT NOT NULL DEFAULT '',
			helpful INTEGER NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			created_at_unix_ms INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at_unix_ms);
	`)
	if err != nil {
		return fmt.Errorf("init feedback schema: %w", err)
	}
	return nil
}

// Add inserts a feedback entry and returns it with ID and timestamp set.
func (s *Store) Add(ctx context.Context, e Entry) (*Entry, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()

	helpful := 0
	if e.Helpful {
		helpful = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback (id, question, answer_summary, helpful, comment, created_at_unix_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Question, e.AnswerSummary, helpful, e.Comment, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert feedback: %w", err)
	}
	return &e, nil
}

// Recent lists the newest feedback entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question, answer_summary, helpful, comment, created_at_unix_ms
		 FROM feedback ORDER BY created_at_unix_ms DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var helpful int
		var createdMs int64
		if err := rows.Scan(&e.ID, &e.Question, &e.AnswerSummary, &helpful, &e.Comment, &createdMs); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		e.Helpful = helpful != 0
		e.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
