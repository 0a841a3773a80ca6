package dabot

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Repository persists bot snapshots to PostgreSQL. Each save replaces the
// bot's rows wholesale inside one transaction; the in-memory ledgers stay
// the source of truth.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new bot state repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// SaveSnapshot writes the full bot state in one transaction
func (r *Repository) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	botQuery := `
		INSERT INTO bots (id, address, name, owner, phase,
			ibo_start_time, ibo_end_time, warmup, cooldown,
			price_mul, commission_fee, profit_sharing,
			init_deposit, init_founder_share, max_share_cap, ibo_share_supply,
			total_supply, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			owner = EXCLUDED.owner,
			phase = EXCLUDED.phase,
			ibo_start_time = EXCLUDED.ibo_start_time,
			ibo_end_time = EXCLUDED.ibo_end_time,
			warmup = EXCLUDED.warmup,
			cooldown = EXCLUDED.cooldown,
			price_mul = EXCLUDED.price_mul,
			commission_fee = EXCLUDED.commission_fee,
			profit_sharing = EXCLUDED.profit_sharing,
			init_deposit = EXCLUDED.init_deposit,
			init_founder_share = EXCLUDED.init_founder_share,
			max_share_cap = EXCLUDED.max_share_cap,
			ibo_share_supply = EXCLUDED.ibo_share_supply,
			total_supply = EXCLUDED.total_supply,
			updated_at = EXCLUDED.updated_at
	`

	d := snap.Details
	if _, err := tx.ExecContext(ctx, botQuery,
		d.ID, d.Address, d.Name, d.Owner, d.Phase,
		d.IBOStartTime, d.IBOEndTime, d.Warmup, d.Cooldown,
		d.PriceMul, d.CommissionFee, d.ProfitSharing,
		d.InitDeposit, d.InitFounderShare, d.MaxShareCap, d.IBOShareSupply,
		d.TotalSupply, time.Now(),
	); err != nil {
		return fmt.Errorf("failed to save bot row: %w", err)
	}

	if err := r.replacePortfolio(ctx, tx, d.ID, snap.Portfolio); err != nil {
		return err
	}
	if err := r.replaceStakes(ctx, tx, d.ID, snap.Stakes); err != nil {
		return err
	}
	if err := r.replaceShares(ctx, tx, d.ID, snap.Shares); err != nil {
		return err
	}
	if err := r.replaceReleases(ctx, tx, d.ID, snap.Releases); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

func (r *Repository) replacePortfolio(ctx context.Context, tx *sqlx.Tx, botID uint64, assets []PortfolioAsset) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bot_portfolio WHERE bot_id = $1`, botID); err != nil {
		return fmt.Errorf("failed to clear portfolio rows: %w", err)
	}

	query := `
		INSERT INTO bot_portfolio (bot_id, asset, cap, ibo_cap, weight, total_staked)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, asset := range assets {
		if _, err := tx.ExecContext(ctx, query,
			botID, asset.Asset, asset.Cap, asset.IBOCap, asset.Weight, asset.TotalStaked,
		); err != nil {
			return fmt.Errorf("failed to save portfolio row %d: %w", i, err)
		}
	}
	return nil
}

func (r *Repository) replaceStakes(ctx context.Context, tx *sqlx.Tx, botID uint64, stakes []StakeRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bot_stakes WHERE bot_id = $1`, botID); err != nil {
		return fmt.Errorf("failed to clear stake rows: %w", err)
	}

	query := `
		INSERT INTO bot_stakes (bot_id, holder, asset, amount, shares, ibo_shares, staked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, stake := range stakes {
		if _, err := tx.ExecContext(ctx, query,
			botID, stake.Holder, stake.Asset, stake.Amount, stake.Shares, stake.IBOShares, stake.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to save stake row: %w", err)
		}
	}
	return nil
}

func (r *Repository) replaceShares(ctx context.Context, tx *sqlx.Tx, botID uint64, shares map[string]decimal.Decimal) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bot_shares WHERE bot_id = $1`, botID); err != nil {
		return fmt.Errorf("failed to clear share rows: %w", err)
	}

	query := `
		INSERT INTO bot_shares (bot_id, holder, balance)
		VALUES ($1, $2, $3)
	`
	for holder, balance := range shares {
		if _, err := tx.ExecContext(ctx, query, botID, holder, balance); err != nil {
			return fmt.Errorf("failed to save share row: %w", err)
		}
	}
	return nil
}

func (r *Repository) replaceReleases(ctx context.Context, tx *sqlx.Tx, botID uint64, releases []PendingRelease) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM bot_releases WHERE bot_id = $1`, botID); err != nil {
		return fmt.Errorf("failed to clear release rows: %w", err)
	}

	query := `
		INSERT INTO bot_releases (bot_id, holder, asset, amount, release_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, release := range releases {
		if _, err := tx.ExecContext(ctx, query,
			botID, release.Holder, release.Asset, release.Amount, release.ReleaseAt,
		); err != nil {
			return fmt.Errorf("failed to save release row: %w", err)
		}
	}
	return nil
}
