package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storybook_backend/finetune"
)

// SQLiteStore implements finetune.RecordStore on sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an opened, migrated database.
func NewSQLiteStore(database *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: database}
}

// Timestamps are stored as RFC3339Nano text so lexicographic order
// matches chronological order.
const timeLayout = time.RFC3339Nano

// Save inserts or replaces a record.
func (s *SQLiteStore) Save(ctx context.Context, record finetune.TrainingJobRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_records
			(id, owner, model_name, trigger_word, input_url, status, error, version, weights, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			version = excluded.version,
			weights = excluded.weights,
			updated_at = excluded.updated_at`,
		record.ID, record.Owner, record.ModelName, record.TriggerWord, record.InputURL,
		record.Status, record.Error, record.Version, record.Weights,
		record.CreatedAt.UTC().Format(timeLayout), record.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("saving training record %q: %w", record.ID, err)
	}
	return nil
}

// Get fetches one record by ID, returning finetune.ErrNotFound when it
// does not exist.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*finetune.TrainingJobRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, model_name, trigger_word, input_url, status, error, version, weights, created_at, updated_at
		FROM training_records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finetune.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading training record %q: %w", id, err)
	}
	return record, nil
}

// List returns all records, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]finetune.TrainingJobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner, model_name, trigger_word, input_url, status, error, version, weights, created_at, updated_at
		FROM training_records ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing training records: %w", err)
	}
	defer rows.Close()

	var out []finetune.TrainingJobRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning training record: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating training records: %w", err)
	}
	return out, nil
}

// TriggerWordExists reports whether any record already uses the word.
func (s *SQLiteStore) TriggerWordExists(ctx context.Context, word string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM training_records WHERE trigger_word = ?`, word).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking trigger word: %w", err)
	}
	return count > 0, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*finetune.TrainingJobRecord, error) {
	var record finetune.TrainingJobRecord
	var createdAt, updatedAt string
	err := s.Scan(
		&record.ID, &record.Owner, &record.ModelName, &record.TriggerWord, &record.InputURL,
		&record.Status, &record.Error, &record.Version, &record.Weights,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if record.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if record.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	return &record, nil
}
