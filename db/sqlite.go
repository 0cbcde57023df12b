package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNotInitialized = errors.New("database not initialized")

// Store keeps the history of served predictions.
type Store struct {
	database *sql.DB
}

// PredictionRecord is one stored prediction. BatchID is empty for single
// predictions.
type PredictionRecord struct {
	ID        int64              `json:"id"`
	BatchID   string             `json:"batch_id,omitempty"`
	RowIndex  int                `json:"row_index"`
	Source    string             `json:"source"`
	Features  map[string]float64 `json:"features"`
	Predicted float64            `json:"predicted_sales"`
	CreatedAt time.Time          `json:"created_at"`
}

// BatchSummary describes one stored upload.
type BatchSummary struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	SourceSingle = "single"
	SourceBatch  = "batch"
)

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// A single connection keeps :memory: databases shared across queries.
	database.SetMaxOpenConns(1)

	query := `
    CREATE TABLE IF NOT EXISTS batches (
        id TEXT PRIMARY KEY,
        filename TEXT,
        row_count INTEGER NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        batch_id TEXT REFERENCES batches(id),
        row_index INTEGER NOT NULL DEFAULT 0,
        source TEXT NOT NULL,
        features TEXT NOT NULL,
        predicted_sales REAL NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{database: database}, nil
}

func (s *Store) Close() error {
	if s == nil || s.database == nil {
		return nil
	}
	return s.database.Close()
}

// RecordSingle stores one form prediction.
func (s *Store) RecordSingle(ctx context.Context, features map[string]float64, predicted float64) error {
	if s == nil || s.database == nil {
		return ErrNotInitialized
	}
	payload, err := json.Marshal(features)
	if err != nil {
		return err
	}
	_, err = s.database.ExecContext(ctx, `
        INSERT INTO predictions (batch_id, row_index, source, features, predicted_sales, created_at)
        VALUES (NULL, 0, ?, ?, ?, ?)`,
		SourceSingle, string(payload), predicted, time.Now().UTC())
	return err
}

// RecordBatch stores an upload and its predictions in one transaction and
// returns the generated batch id.
func (s *Store) RecordBatch(ctx context.Context, filename string, features []map[string]float64, predicted []float64) (string, error) {
	if s == nil || s.database == nil {
		return "", ErrNotInitialized
	}
	if len(features) != len(predicted) {
		return "", errors.New("features/predictions length mismatch")
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.database.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (id, filename, row_count, created_at) VALUES (?, ?, ?, ?)`,
		id, filename, len(predicted), now); err != nil {
		tx.Rollback()
		return "", err
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO predictions (batch_id, row_index, source, features, predicted_sales, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return "", err
	}
	defer stmt.Close()

	for i, row := range features {
		payload, err := json.Marshal(row)
		if err != nil {
			tx.Rollback()
			return "", err
		}
		if _, err := stmt.ExecContext(ctx, id, i, SourceBatch, string(payload), predicted[i], now); err != nil {
			tx.Rollback()
			return "", err
		}
	}
	return id, tx.Commit()
}

// RecentPredictions returns up to limit predictions, newest first.
func (s *Store) RecentPredictions(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if s == nil || s.database == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT id, batch_id, row_index, source, features, predicted_sales, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]PredictionRecord, 0)
	for rows.Next() {
		var r PredictionRecord
		var batchID sql.NullString
		var payload string
		if err := rows.Scan(&r.ID, &batchID, &r.RowIndex, &r.Source, &payload, &r.Predicted, &r.CreatedAt); err != nil {
			return nil, err
		}
		if batchID.Valid {
			r.BatchID = batchID.String
		}
		if err := json.Unmarshal([]byte(payload), &r.Features); err != nil {
			return nil, fmt.Errorf("prediction %d: %w", r.ID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Batches lists stored uploads, newest first.
func (s *Store) Batches(ctx context.Context, limit int) ([]BatchSummary, error) {
	if s == nil || s.database == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.database.QueryContext(ctx, `
        SELECT id, filename, row_count, created_at
        FROM batches
        ORDER BY created_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]BatchSummary, 0)
	for rows.Next() {
		var b BatchSummary
		var filename sql.NullString
		if err := rows.Scan(&b.ID, &filename, &b.Rows, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Filename = filename.String
		batches = append(batches, b)
	}
	return batches, rows.Err()
}
