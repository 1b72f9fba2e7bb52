// Package store implements the SQLite-backed knowledge store holding the two
// retrieval corpora: reference documents and prompt templates. Records carry
// embedding blobs for similarity search and usage counters that are bumped
// off the read path.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"promptforge/internal/logging"
)

// KnowledgeStore provides access to the document and template corpora.
type KnowledgeStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewKnowledgeStore initializes the SQLite database at the given path.
func NewKnowledgeStore(path string) (*KnowledgeStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewKnowledgeStore")
	defer timer.Stop()

	logging.Store("Initializing KnowledgeStore at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	// NORMAL is safe with WAL and much faster than FULL.
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	store := &KnowledgeStore{db: db, dbPath: path}
	if err := store.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("KnowledgeStore ready")
	return store, nil
}

// initialize creates the corpus tables if they do not exist.
func (s *KnowledgeStore) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL,
			content         TEXT NOT NULL,
			document_type   TEXT NOT NULL,
			target_tools    TEXT NOT NULL DEFAULT '[]',
			categories      TEXT NOT NULL DEFAULT '[]',
			complexity      TEXT NOT NULL DEFAULT 'intermediate',
			embedding       BLOB,
			content_hash    TEXT NOT NULL UNIQUE,
			quality_score   REAL NOT NULL DEFAULT 0.5,
			retrieval_count INTEGER NOT NULL DEFAULT 0,
			is_active       INTEGER NOT NULL DEFAULT 1,
			created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS templates (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			content       TEXT NOT NULL,
			template_type TEXT NOT NULL,
			target_tool   TEXT NOT NULL DEFAULT '',
			use_case      TEXT NOT NULL DEFAULT '',
			complexity    TEXT NOT NULL DEFAULT 'intermediate',
			embedding     BLOB,
			content_hash  TEXT NOT NULL UNIQUE,
			required_vars TEXT NOT NULL DEFAULT '[]',
			optional_vars TEXT NOT NULL DEFAULT '[]',
			usage_count   INTEGER NOT NULL DEFAULT 0,
			success_rate  REAL NOT NULL DEFAULT 0.5,
			is_active     INTEGER NOT NULL DEFAULT 1,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_active ON documents(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_complexity ON documents(complexity)`,
		`CREATE INDEX IF NOT EXISTS idx_templates_active ON templates(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_templates_tool ON templates(target_tool)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *KnowledgeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
