package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/docqa/backend/internal/documents"
	"github.com/docqa/backend/internal/storage/models"
	"github.com/docqa/backend/pkg/logger"
)

// Client is a documents.Store backed by SQLite. It also keeps the query
// history.
type Client struct {
	db *sql.DB
}

var _ documents.Store = (*Client)(nil)

func NewClient(dbPath string) (*Client, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err = db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err = db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		text TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		top_k INTEGER NOT NULL,
		cache_hit INTEGER NOT NULL DEFAULT 0,
		source_count INTEGER NOT NULL DEFAULT 0,
		processing_time_ms REAL NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) List(ctx context.Context) ([]documents.Document, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, text, metadata FROM documents ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []documents.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

func (c *Client) Get(ctx context.Context, id string) (documents.Document, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, text, metadata FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return documents.Document{}, fmt.Errorf("%w: %s", documents.ErrNotFound, id)
	}
	return doc, err
}

func (c *Client) Add(ctx context.Context, doc documents.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	res, err := c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO documents (id, text, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Text, metadata, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", documents.ErrAlreadyExists, doc.ID)
	}

	logger.Debug("Document inserted", zap.String("doc_id", doc.ID))
	return nil
}

func (c *Client) Update(ctx context.Context, doc documents.Document) (documents.Document, error) {
	if err := doc.Validate(); err != nil {
		return documents.Document{}, err
	}

	metadata, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return documents.Document{}, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return documents.Document{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	old, err := scanDocument(tx.QueryRowContext(ctx, `SELECT id, text, metadata FROM documents WHERE id = ?`, doc.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return documents.Document{}, fmt.Errorf("%w: %s", documents.ErrNotFound, doc.ID)
	}
	if err != nil {
		return documents.Document{}, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET text = ?, metadata = ?, updated_at = ? WHERE id = ?`,
		doc.Text, metadata, time.Now().Unix(), doc.ID,
	)
	if err != nil {
		return documents.Document{}, fmt.Errorf("failed to update document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return documents.Document{}, fmt.Errorf("failed to commit update: %w", err)
	}

	return old, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", documents.ErrNotFound, id)
	}
	return nil
}

func (c *Client) InsertQueryRecord(ctx context.Context, record *models.QueryRecord) error {
	cacheHit := 0
	if record.CacheHit {
		cacheHit = 1
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO query_history (id, question, top_k, cache_hit, source_count, processing_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Question,
		record.TopK,
		cacheHit,
		record.SourceCount,
		record.ProcessingTimeMS,
		record.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Debug("Query recorded", zap.String("query_id", record.ID), zap.Bool("cache_hit", record.CacheHit))
	return nil
}

func (c *Client) GetQueryHistory(ctx context.Context, limit int) ([]models.QueryRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, question, top_k, cache_hit, source_count, processing_time_ms, created_at
		FROM query_history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get query history: %w", err)
	}
	defer rows.Close()

	records := []models.QueryRecord{}
	for rows.Next() {
		var r models.QueryRecord
		var cacheHit int
		var createdAt int64

		if err := rows.Scan(&r.ID, &r.Question, &r.TopK, &cacheHit, &r.SourceCount, &r.ProcessingTimeMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CacheHit = cacheHit == 1
		r.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, r)
	}

	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (documents.Document, error) {
	var doc documents.Document
	var metadata string
	if err := s.Scan(&doc.ID, &doc.Text, &metadata); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return documents.Document{}, err
		}
		return documents.Document{}, fmt.Errorf("failed to scan document: %w", err)
	}

	doc.Metadata = map[string]any{}
	if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
		return documents.Document{}, fmt.Errorf("failed to decode metadata for %s: %w", doc.ID, err)
	}
	return doc, nil
}

func encodeMetadata(md map[string]any) (string, error) {
	if md == nil {
		return "{}", nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}
