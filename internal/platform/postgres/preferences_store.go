// Package postgres implements durable storage for notification
// preferences on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kanbanflow/herald/internal/domain"
	"github.com/kanbanflow/herald/internal/platform/logger"
	"github.com/kanbanflow/herald/internal/settings"
)

// DBTX is the common interface of *sql.DB and *sql.Tx, letting the store
// run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PreferencesStore implements settings.Store on PostgreSQL. One row per
// (user, category); absent rows mean enabled, so the table only ever needs
// rows the user has actually touched.
type PreferencesStore struct {
	db DBTX
}

// NewPreferencesStore creates a PreferencesStore.
func NewPreferencesStore(db DBTX) *PreferencesStore {
	return &PreferencesStore{db: db}
}

// WithTx returns a store bound to the given transaction.
func (s *PreferencesStore) WithTx(tx *sql.Tx) *PreferencesStore {
	return &PreferencesStore{db: tx}
}

// Load returns the stored preferences for the user. Rows with categories
// this build does not know are skipped.
func (s *PreferencesStore) Load(ctx context.Context, userID string) (settings.Preferences, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT category, enabled
		FROM notification_preferences
		WHERE user_id = $1
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to load notification preferences",
			"user_id", userID,
			"error", err)
		return nil, fmt.Errorf("failed to load notification preferences: %w", err)
	}
	defer func() { _ = rows.Close() }()

	prefs := settings.Preferences{}
	for rows.Next() {
		var (
			category string
			enabled  bool
		)
		if err := rows.Scan(&category, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan notification preference row: %w", err)
		}
		if !domain.Category(category).Valid() {
			log.Debug("skipping stored preference with unknown category",
				"category", category)
			continue
		}
		prefs[domain.Category(category)] = enabled
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notification preference rows: %w", err)
	}

	return prefs, nil
}

// Save upserts every preference in the map. Categories the map does not
// mention keep their stored value; the settings service always writes the
// full current map, so nothing needs deleting.
func (s *PreferencesStore) Save(ctx context.Context, userID string, prefs settings.Preferences) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO notification_preferences (user_id, category, enabled, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, category)
		DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	for category, enabled := range prefs {
		if _, err := s.db.ExecContext(ctx, query, userID, string(category), enabled, now); err != nil {
			log.Error("failed to save notification preference",
				"user_id", userID,
				"category", string(category),
				"error", err)
			return fmt.Errorf("failed to save notification preference: %w", err)
		}
	}

	return nil
}
