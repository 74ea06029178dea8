package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

// Sources identify what triggered a recorded transition.
const (
	SourcePoll = "poll"
)

// Entry is one recorded state transition.
type Entry struct {
	ID        int64
	Power     string
	Input     string
	Source    string
	CreatedAt time.Time
}

// Repository stores state transitions in the state_history table.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a transition repository on an open connection.
// The state_history table must exist (see database.Migrate).
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// RecordTransition appends a transition row.
//
// Power and input are the raw hex tokens reported by the projector.
// An empty source defaults to SourcePoll.
func (r *Repository) RecordTransition(ctx context.Context, power, input string) error {
	return r.RecordTransitionFrom(ctx, power, input, SourcePoll)
}

// RecordTransitionFrom appends a transition row with an explicit source.
func (r *Repository) RecordTransitionFrom(ctx context.Context, power, input, source string) error {
	if power == "" && input == "" {
		return fmt.Errorf("history: nothing to record")
	}
	if source == "" {
		source = SourcePoll
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO state_history (power, input, source, created_at) VALUES (?, ?, ?, ?)",
		power,
		input,
		source,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}

	return nil
}

// Recent returns the newest transitions, most recent first.
//
// Limit defaults to 50 and is capped at 200.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, power, input, source, created_at
		 FROM state_history
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Power, &entry.Input, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}

		timestamp, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than the given duration.
// Returns the number of rows removed.
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM state_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return timestamp, nil
}
