// Package database is the session-scoped proposal store. It is backed by
// an in-memory SQLite database, so every record lives exactly as long as
// the running process and is discarded on restart.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection
type DB struct {
	*sql.DB
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// NewDB opens the in-memory database and runs migrations. A single
// connection is enforced because each sqlite :memory: connection gets
// its own database.
func NewDB() (*DB, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &DB{
		DB:       db,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("In-memory proposal store initialized")

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS proposals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			submitter TEXT NOT NULL,
			title TEXT,
			body TEXT NOT NULL,
			budget TEXT NOT NULL,    -- JSON rows
			scores TEXT NOT NULL,    -- JSON score card
			status TEXT NOT NULL,
			evaluator TEXT NOT NULL,
			eval_comment TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS reviews (
			id TEXT PRIMARY KEY,
			proposal_id INTEGER NOT NULL,
			evaluator TEXT NOT NULL,
			status TEXT NOT NULL,
			comment TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (proposal_id) REFERENCES proposals(id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_proposals_submitter ON proposals(submitter)`,
		`CREATE INDEX IF NOT EXISTS idx_proposals_evaluator ON proposals(evaluator)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_proposal ON reviews(proposal_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"insert_proposal": `INSERT INTO proposals (
			submitter, title, body, budget, scores, status, evaluator,
			eval_comment, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,

		"get_proposal": `SELECT id, submitter, title, body, budget, scores,
			status, evaluator, eval_comment, created_at, updated_at
			FROM proposals WHERE id = ?`,

		"list_all": `SELECT id, submitter, title, body, budget, scores,
			status, evaluator, eval_comment, created_at, updated_at
			FROM proposals ORDER BY id ASC`,

		"list_by_submitter": `SELECT id, submitter, title, body, budget, scores,
			status, evaluator, eval_comment, created_at, updated_at
			FROM proposals WHERE submitter = ? ORDER BY id ASC`,

		"list_by_evaluator": `SELECT id, submitter, title, body, budget, scores,
			status, evaluator, eval_comment, created_at, updated_at
			FROM proposals WHERE evaluator = ? ORDER BY id ASC`,

		"update_review": `UPDATE proposals
			SET status = ?, eval_comment = ?, updated_at = ?
			WHERE id = ?`,

		"insert_review": `INSERT INTO reviews (
			id, proposal_id, evaluator, status, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt
	}

	return nil
}

// stmt retrieves a prepared statement by name
func (db *DB) stmt(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}
	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
