package factory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Repository persists factory-level deployment records
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new factory repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// RecordDeployment tags a bot row with its source template. The row
// itself is written by the bot's state mirror during Init.
func (r *Repository) RecordDeployment(ctx context.Context, botID uint64, template string) error {
	query := `
		UPDATE bots
		SET template = $2, updated_at = $3
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, botID, template, time.Now()); err != nil {
		return fmt.Errorf("failed to record deployment: %w", err)
	}
	return nil
}

// MaxBotID returns the highest stored bot identifier, zero when none
// exist. Used to seed the identifier sequence after restart.
func (r *Repository) MaxBotID(ctx context.Context) (uint64, error) {
	query := `SELECT COALESCE(MAX(id), 0) FROM bots`

	var max uint64
	err := r.db.QueryRowContext(ctx, query).Scan(&max)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load max bot id: %w", err)
	}
	return max, nil
}

// DeployedCount returns the number of stored bots
func (r *Repository) DeployedCount(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM bots`

	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count bots: %w", err)
	}
	return count, nil
}
