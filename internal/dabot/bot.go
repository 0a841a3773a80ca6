package dabot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/robofi/dabot/internal/adapters/token"
	"github.com/robofi/dabot/pkg/logger"
)

// Persister mirrors bot state to durable storage. Saves are best-effort:
// the in-memory ledgers are the source of truth and a failed save never
// fails the originating call.
type Persister interface {
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
}

// Notifier receives accounting events for operator alerting
type Notifier interface {
	StakeAccepted(botName, holder, asset string, amount, shares decimal.Decimal)
	UnstakeRequested(botName, holder, asset string, amount decimal.Decimal, releaseAt time.Time)
}

// Snapshot is the full observable state of a bot instance at one point in
// time, used for persistence and read-only projections.
type Snapshot struct {
	Details   Details
	Portfolio []PortfolioAsset
	Stakes    []StakeRecord
	Shares    map[string]decimal.Decimal
	Releases  []PendingRelease
}

// Bot is one deployed investment vehicle: lifecycle controller, portfolio
// registry, stake book and share ledger behind a single mutex. Every
// mutating call runs to completion atomically; failures leave all ledgers
// untouched.
type Bot struct {
	mu sync.Mutex

	id        uint64
	address   string
	baseAsset string
	tokens    token.Transferor

	cfg         BotConfig
	initialized bool
	renounced   bool

	portfolio *portfolio
	stakes    *stakeBook
	shares    *shareLedger
	iboMinted decimal.Decimal
	// shares minted for stakes per holder, founder seed excluded; backs
	// AvailableSharesFor across window changes
	stakeMinted map[string]decimal.Decimal

	repo     Persister
	notifier Notifier
	now      func() time.Time
}

// New creates an uninitialized bot instance. The address is the custody
// account the bot holds assets under; baseAsset is the platform token the
// init deposit is denominated in.
func New(id uint64, address, baseAsset string, tokens token.Transferor) *Bot {
	return &Bot{
		id:          id,
		address:     address,
		baseAsset:   baseAsset,
		tokens:      tokens,
		portfolio:   newPortfolio(),
		stakes:      newStakeBook(),
		shares:      newShareLedger(),
		stakeMinted: make(map[string]decimal.Decimal),
		now:         time.Now,
	}
}

// SetPersister attaches a storage mirror
func (b *Bot) SetPersister(repo Persister) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.repo = repo
}

// SetNotifier attaches an event notifier
func (b *Bot) SetNotifier(n Notifier) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notifier = n
}

// SetClock overrides the wall clock, for tests
func (b *Bot) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// ID returns the factory-assigned bot id
func (b *Bot) ID() uint64 {
	return b.id
}

// Address returns the custody account identity
func (b *Bot) Address() string {
	return b.address
}

// Init records the configuration, moves the operator's initial deposit
// into custody and mints the founder share seed. Callable exactly once.
func (b *Bot) Init(params InitParams) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return ErrAlreadyInitialized
	}
	if err := params.Validate(); err != nil {
		return err
	}

	// Seed the custody account before any ledger mutation so a failed
	// transfer leaves the bot uninitialized
	if params.InitDeposit.IsPositive() {
		if err := b.tokens.TransferFrom(b.baseAsset, b.address, params.Owner, b.address, params.InitDeposit); err != nil {
			return fmt.Errorf("%w: init deposit: %v", ErrTransferFailed, err)
		}
	}

	b.cfg = BotConfig{
		Name:             params.Name,
		Owner:            params.Owner,
		IBOStartTime:     params.IBOStartTime,
		IBOEndTime:       params.IBOEndTime,
		Warmup:           params.Warmup,
		Cooldown:         params.Cooldown,
		PriceMul:         params.PriceMul,
		CommissionFee:    params.CommissionFee,
		ProfitSharing:    params.ProfitSharing,
		InitDeposit:      params.InitDeposit,
		InitFounderShare: params.InitFounderShare,
		MaxShareCap:      params.MaxShareCap,
		IBOShareSupply:   params.IBOShareSupply,
	}
	b.shares.mint(params.Owner, params.InitFounderShare)
	b.initialized = true

	logger.Info("bot initialized",
		zap.Uint64("bot_id", b.id),
		zap.String("name", params.Name),
		zap.String("owner", params.Owner),
		zap.String("founder_share", params.InitFounderShare.String()),
	)

	b.mirror()
	return nil
}

// requireOperator checks the caller holds the operator capability.
// Renouncing ownership disables it permanently.
func (b *Bot) requireOperator(caller string) error {
	if !b.initialized {
		return ErrNotInitialized
	}
	if b.renounced || caller != b.cfg.Owner {
		return ErrUnauthorized
	}
	return nil
}

// requireConfiguring checks the bot has not opened its offering yet
func (b *Bot) requireConfiguring() error {
	if b.cfg.PhaseAt(b.now()) != PhaseConfiguring {
		return ErrInvalidState
	}
	return nil
}

// SetIBOTime updates the offering window. Legal only before the current
// window opens: parameters must not change mid-offering.
func (b *Bot) SetIBOTime(caller string, start, end int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOperator(caller); err != nil {
		return err
	}
	if err := b.requireConfiguring(); err != nil {
		return err
	}
	if end < start {
		return fmt.Errorf("%w: ibo end before start", ErrInvalidConfig)
	}

	b.cfg.IBOStartTime = start
	b.cfg.IBOEndTime = end
	b.mirror()
	return nil
}

// SetStakingTime updates the warmup and cooldown durations (seconds)
func (b *Bot) SetStakingTime(caller string, warmup, cooldown uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOperator(caller); err != nil {
		return err
	}
	if err := b.requireConfiguring(); err != nil {
		return err
	}

	b.cfg.Warmup = warmup
	b.cfg.Cooldown = cooldown
	b.mirror()
	return nil
}

// SetPricePolicy updates the price multiplier and deposit commission
func (b *Bot) SetPricePolicy(caller string, priceMul, commissionFee uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOperator(caller); err != nil {
		return err
	}
	if err := b.requireConfiguring(); err != nil {
		return err
	}

	b.cfg.PriceMul = priceMul
	b.cfg.CommissionFee = commissionFee
	b.mirror()
	return nil
}

// SetProfitSharing updates the operator's profit split (basis points)
func (b *Bot) SetProfitSharing(caller string, value uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOperator(caller); err != nil {
		return err
	}
	if err := b.requireConfiguring(); err != nil {
		return err
	}

	b.cfg.ProfitSharing = value
	b.mirror()
	return nil
}

// RenounceOwnership permanently disables every operator-gated mutation.
// One-way: the instance is trustless afterwards.
func (b *Bot) RenounceOwnership(caller string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOperator(caller); err != nil {
		return err
	}

	b.renounced = true
	logger.Info("bot ownership renounced",
		zap.Uint64("bot_id", b.id),
		zap.String("name", b.cfg.Name),
	)
	b.mirror()
	return nil
}

// UpdatePortfolio inserts or updates one supported asset
func (b *Bot) UpdatePortfolio(caller, asset string, cap, iboCap decimal.Decimal, weight uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOperator(caller); err != nil {
		return err
	}
	if err := b.portfolio.upsert(asset, cap, iboCap, weight); err != nil {
		return err
	}

	logger.Info("portfolio updated",
		zap.Uint64("bot_id", b.id),
		zap.String("asset", asset),
		zap.String("cap", cap.String()),
		zap.String("ibo_cap", iboCap.String()),
		zap.Uint32("weight", weight),
	)
	b.mirror()
	return nil
}

// RemoveAsset deletes an asset from the portfolio. Assets with
// outstanding stake are rejected with ErrAssetInUse.
func (b *Bot) RemoveAsset(caller, asset string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOperator(caller); err != nil {
		return err
	}
	if err := b.portfolio.remove(asset); err != nil {
		return err
	}

	b.mirror()
	return nil
}

// Portfolio returns the supported assets in insertion order with their
// live stake totals
func (b *Bot) Portfolio() []PortfolioAsset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.portfolio.snapshot()
}

// Stake deposits amount of asset into bot custody and mints the holder's
// proportional share entitlement. The deposit commission is routed to the
// operator; minting is capped by the window share supply.
func (b *Bot) Stake(holder, asset string, amount decimal.Decimal) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return decimal.Zero, ErrNotInitialized
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	now := b.now()
	phase := b.cfg.PhaseAt(now)
	if phase == PhaseConfiguring {
		return decimal.Zero, ErrNotInWindow
	}
	ibo := phase == PhaseIBO

	entry, ok := b.portfolio.get(asset)
	if !ok {
		return decimal.Zero, ErrUnknownAsset
	}

	net, fee := commission(amount, b.cfg.CommissionFee)

	// The applicable ceiling for the current window; partial fills are
	// not auto-truncated
	ceiling := entry.Cap
	if ibo {
		ceiling = entry.IBOCap
	}
	if entry.TotalStaked.Add(net).GreaterThan(ceiling) {
		return decimal.Zero, ErrCapacityExceeded
	}

	// Custody moves happen before any ledger mutation so a failed
	// transfer is a clean no-op
	if err := b.tokens.TransferFrom(asset, b.address, holder, b.address, amount); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	if fee.IsPositive() {
		if err := b.tokens.Transfer(asset, b.address, b.cfg.Owner, fee); err != nil {
			// Undo the deposit; custody still holds the full amount
			if refundErr := b.tokens.Transfer(asset, b.address, holder, amount); refundErr != nil {
				logger.Error("failed to refund stake after fee transfer failure",
					zap.Uint64("bot_id", b.id),
					zap.String("holder", holder),
					zap.Error(refundErr),
				)
			}
			return decimal.Zero, fmt.Errorf("%w: commission: %v", ErrTransferFailed, err)
		}
	}

	record := b.stakes.add(holder, asset, net, now)
	entry.TotalStaked = entry.TotalStaked.Add(net)

	shares := entitlement(&b.cfg, b.portfolio, asset, net, ibo)
	if ibo {
		if remaining := b.cfg.IBOShareSupply.Sub(b.iboMinted); shares.GreaterThan(remaining) {
			shares = remaining
		}
	}
	if remaining := b.cfg.MaxShareCap.Sub(b.shares.totalSupply); shares.GreaterThan(remaining) {
		shares = remaining
	}
	b.shares.mint(holder, shares)
	record.Shares = record.Shares.Add(shares)
	b.stakeMinted[holder] = b.stakeMinted[holder].Add(shares)
	if ibo {
		b.iboMinted = b.iboMinted.Add(shares)
		record.IBOShares = record.IBOShares.Add(shares)
	}

	logger.Info("stake accepted",
		zap.Uint64("bot_id", b.id),
		zap.String("holder", holder),
		zap.String("asset", asset),
		zap.String("amount", amount.String()),
		zap.String("fee", fee.String()),
		zap.String("shares", shares.String()),
		zap.String("phase", phase.String()),
	)

	if b.notifier != nil {
		b.notifier.StakeAccepted(b.cfg.Name, holder, asset, amount, shares)
	}
	b.mirror()
	return shares, nil
}

// Unstake requests withdrawal of amount from a stake. The stake record,
// capacity and shares are released immediately; custody of the funds
// moves only after the cooldown, via ClaimUnstaked. Two-phase release
// blocks flash exits around profit distribution.
func (b *Bot) Unstake(holder, asset string, amount decimal.Decimal) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return ErrNotInitialized
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	entry, ok := b.portfolio.get(asset)
	if !ok {
		return ErrUnknownAsset
	}
	record, ok := b.stakes.get(holder, asset)
	if !ok || record.Amount.LessThan(amount) {
		return ErrInsufficientStake
	}

	now := b.now()
	warmupEnd := record.Timestamp.Add(time.Duration(b.cfg.Warmup) * time.Second)
	if now.Before(warmupEnd) {
		return ErrWarmupNotElapsed
	}

	// Burn pro-rata against the shares this record minted, never at the
	// current window's rate: a full exit returns exactly what was minted
	burned := record.Shares
	iboBurn := record.IBOShares
	if amount.LessThan(record.Amount) {
		burned = record.Shares.Mul(amount).Div(record.Amount).Floor()
		iboBurn = record.IBOShares.Mul(amount).Div(record.Amount).Floor()
	}
	b.shares.burn(holder, burned)
	record.Shares = record.Shares.Sub(burned)
	record.IBOShares = record.IBOShares.Sub(iboBurn)
	b.stakeMinted[holder] = b.stakeMinted[holder].Sub(burned)
	if b.stakeMinted[holder].IsNegative() {
		b.stakeMinted[holder] = decimal.Zero
	}
	b.iboMinted = b.iboMinted.Sub(iboBurn)
	if b.iboMinted.IsNegative() {
		b.iboMinted = decimal.Zero
	}

	if err := b.stakes.reduce(holder, asset, amount); err != nil {
		return err
	}
	entry.TotalStaked = entry.TotalStaked.Sub(amount)

	releaseAt := now.Add(time.Duration(b.cfg.Cooldown) * time.Second)
	b.stakes.pushRelease(holder, asset, amount, releaseAt)

	logger.Info("unstake requested",
		zap.Uint64("bot_id", b.id),
		zap.String("holder", holder),
		zap.String("asset", asset),
		zap.String("amount", amount.String()),
		zap.String("burned", burned.String()),
		zap.Time("release_at", releaseAt),
	)

	if b.notifier != nil {
		b.notifier.UnstakeRequested(b.cfg.Name, holder, asset, amount, releaseAt)
	}
	b.mirror()
	return nil
}

// ClaimUnstaked releases the holder's matured unstake requests for one
// asset out of custody. Returns ErrCooldownNotElapsed while requests
// exist but none has matured.
func (b *Bot) ClaimUnstaked(holder, asset string) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return decimal.Zero, ErrNotInitialized
	}

	now := b.now()
	due, found := b.stakes.popDueReleases(holder, asset, now)
	if !found {
		return decimal.Zero, ErrNoPendingRelease
	}
	if len(due) == 0 {
		return decimal.Zero, ErrCooldownNotElapsed
	}

	total := decimal.Zero
	for _, release := range due {
		total = total.Add(release.Amount)
	}

	if err := b.tokens.Transfer(asset, b.address, holder, total); err != nil {
		// Requeue so a later claim can retry
		for _, release := range due {
			b.stakes.pushRelease(release.Holder, release.Asset, release.Amount, release.ReleaseAt)
		}
		return decimal.Zero, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	logger.Info("unstake claimed",
		zap.Uint64("bot_id", b.id),
		zap.String("holder", holder),
		zap.String("asset", asset),
		zap.String("amount", total.String()),
	)

	b.mirror()
	return total, nil
}

// Settle records realized profit on one asset and routes the operator's
// profit-sharing slice out of custody; the remainder stays in the pool
// and accrues to shareholders.
func (b *Bot) Settle(caller, asset string, profit decimal.Decimal) (decimal.Decimal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.requireOperator(caller); err != nil {
		return decimal.Zero, err
	}
	if !profit.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	if _, ok := b.portfolio.get(asset); !ok {
		return decimal.Zero, ErrUnknownAsset
	}

	cut := operatorCut(profit, b.cfg.ProfitSharing)
	if cut.IsPositive() {
		if err := b.tokens.Transfer(asset, b.address, b.cfg.Owner, cut); err != nil {
			return decimal.Zero, fmt.Errorf("%w: operator cut: %v", ErrTransferFailed, err)
		}
	}

	logger.Info("profit settled",
		zap.Uint64("bot_id", b.id),
		zap.String("asset", asset),
		zap.String("profit", profit.String()),
		zap.String("operator_cut", cut.String()),
	)

	b.mirror()
	return cut, nil
}

// AvailableSharesFor returns the share entitlement the holder's current
// stakes carry: the shares minted for them so far, founder seed excluded.
// Zero while the bot is still configuring: no entitlement accrues before
// the offering opens.
func (b *Bot) AvailableSharesFor(holder string) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return decimal.Zero
	}
	if b.cfg.PhaseAt(b.now()) == PhaseConfiguring {
		return decimal.Zero
	}
	return b.stakeMinted[holder]
}

// StakeBalanceOf returns the holder's staked amount in one asset
func (b *Bot) StakeBalanceOf(holder, asset string) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.stakes.get(holder, asset)
	if !ok {
		return decimal.Zero
	}
	return record.Amount
}

// ShareBalanceOf returns the holder's share balance
func (b *Bot) ShareBalanceOf(holder string) decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shares.balanceOf(holder)
}

// TotalSupply returns the outstanding share supply, founder seed included
func (b *Bot) TotalSupply() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shares.totalSupply
}

// PendingReleases returns the queued unstake releases
func (b *Bot) PendingReleases() []PendingRelease {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stakes.pendingReleases()
}

// Details returns a read-only projection of the configuration plus
// live-computed fields. No side effects.
func (b *Bot) Details() Details {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.details()
}

// details requires b.mu held
func (b *Bot) details() Details {
	return Details{
		ID:               b.id,
		Address:          b.address,
		Name:             b.cfg.Name,
		Owner:            b.cfg.Owner,
		Phase:            b.cfg.PhaseAt(b.now()).String(),
		IBOStartTime:     b.cfg.IBOStartTime,
		IBOEndTime:       b.cfg.IBOEndTime,
		Warmup:           b.cfg.Warmup,
		Cooldown:         b.cfg.Cooldown,
		PriceMul:         b.cfg.PriceMul,
		CommissionFee:    b.cfg.CommissionFee,
		ProfitSharing:    b.cfg.ProfitSharing,
		InitDeposit:      b.cfg.InitDeposit,
		InitFounderShare: b.cfg.InitFounderShare,
		MaxShareCap:      b.cfg.MaxShareCap,
		IBOShareSupply:   b.cfg.IBOShareSupply,
		TotalSupply:      b.shares.totalSupply,
	}
}

// Snapshot returns the full observable state for persistence
func (b *Bot) Snapshot() *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshot()
}

// snapshot requires b.mu held
func (b *Bot) snapshot() *Snapshot {
	stakes := make([]StakeRecord, 0, len(b.stakes.records))
	for _, record := range b.stakes.all() {
		stakes = append(stakes, *record)
	}

	return &Snapshot{
		Details:   b.details(),
		Portfolio: b.portfolio.snapshot(),
		Stakes:    stakes,
		Shares:    b.shares.holders(),
		Releases:  b.stakes.pendingReleases(),
	}
}

// mirror saves the current state through the persister, best-effort.
// Requires b.mu held.
func (b *Bot) mirror() {
	if b.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.repo.SaveSnapshot(ctx, b.snapshot()); err != nil {
		logger.Error("failed to persist bot state",
			zap.Uint64("bot_id", b.id),
			zap.Error(err),
		)
	}
}
