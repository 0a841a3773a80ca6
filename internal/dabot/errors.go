package dabot

import "errors"

// Operation errors. Every failed operation leaves all ledgers untouched;
// callers match with errors.Is.
var (
	// ErrAlreadyInitialized is returned when Init is called twice
	ErrAlreadyInitialized = errors.New("bot already initialized")
	// ErrNotInitialized is returned when operating on an uninitialized bot
	ErrNotInitialized = errors.New("bot not initialized")
	// ErrInvalidState is returned when an operation is illegal at the
	// current lifecycle phase
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrUnauthorized is returned when the caller lacks the operator
	// capability, including permanently after ownership renunciation
	ErrUnauthorized = errors.New("caller is not the bot operator")
	// ErrUnknownAsset is returned for assets absent from the portfolio
	ErrUnknownAsset = errors.New("asset not in portfolio")
	// ErrInvalidCapacity is returned when iboCap exceeds cap
	ErrInvalidCapacity = errors.New("ibo cap exceeds asset cap")
	// ErrAssetInUse is returned when removing an asset with outstanding stake
	ErrAssetInUse = errors.New("asset has outstanding stake")
	// ErrCapacityExceeded is returned when a stake would breach the
	// applicable per-asset ceiling
	ErrCapacityExceeded = errors.New("stake exceeds asset capacity")
	// ErrNotInWindow is returned for deposits before the IBO window opens
	ErrNotInWindow = errors.New("not in offering or staking window")
	// ErrTransferFailed wraps a failed external asset movement
	ErrTransferFailed = errors.New("asset transfer failed")
	// ErrWarmupNotElapsed is returned when unstaking before the minimum
	// holding period
	ErrWarmupNotElapsed = errors.New("warmup period not elapsed")
	// ErrCooldownNotElapsed is returned when claiming an unstake release
	// before its cooldown expires
	ErrCooldownNotElapsed = errors.New("cooldown period not elapsed")
	// ErrInvalidConfig is returned for malformed configuration records
	ErrInvalidConfig = errors.New("invalid bot configuration")
	// ErrInvalidAmount is returned for non-positive stake/unstake amounts
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInsufficientStake is returned when unstaking more than staked
	ErrInsufficientStake = errors.New("unstake amount exceeds staked balance")
	// ErrNoPendingRelease is returned when claiming with nothing requested
	ErrNoPendingRelease = errors.New("no pending unstake release")
)
