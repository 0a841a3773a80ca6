package dabot

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the lifecycle state of a bot instance. It is never stored:
// every call derives it fresh from the wall clock and the config record,
// so stored state can never drift from the clock.
type Phase int

const (
	// PhaseConfiguring covers init until the offering opens; timing and
	// pricing setters are legal only here
	PhaseConfiguring Phase = iota
	// PhaseIBO is the public offering window; deposits are capped by the
	// per-asset iboCap and the iboShareSupply
	PhaseIBO
	// PhaseWarmup follows the offering; deposits run against the full
	// caps but unstaking is not yet possible
	PhaseWarmup
	// PhaseActive is the steady staking state; unstake requests are
	// accepted subject to warmup/cooldown
	PhaseActive
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case PhaseConfiguring:
		return "configuring"
	case PhaseIBO:
		return "ibo"
	case PhaseWarmup:
		return "warmup"
	case PhaseActive:
		return "active"
	default:
		return "unknown"
	}
}

// BotConfig is the per-instance configuration record, set at Init and
// partially mutable while the bot is still configuring.
type BotConfig struct {
	Name             string
	Owner            string
	IBOStartTime     int64
	IBOEndTime       int64
	Warmup           uint32
	Cooldown         uint32
	PriceMul         uint32
	CommissionFee    uint32
	ProfitSharing    uint32
	InitDeposit      decimal.Decimal
	InitFounderShare decimal.Decimal
	MaxShareCap      decimal.Decimal
	IBOShareSupply   decimal.Decimal
}

// PhaseAt derives the lifecycle phase at the given instant
func (c *BotConfig) PhaseAt(now time.Time) Phase {
	ts := now.Unix()
	switch {
	case ts < c.IBOStartTime:
		return PhaseConfiguring
	case ts < c.IBOEndTime:
		return PhaseIBO
	case ts < c.IBOEndTime+int64(c.Warmup):
		return PhaseWarmup
	default:
		return PhaseActive
	}
}

// priceMulOrDefault treats a zero multiplier as unset. Existing
// deployments pass a zero price policy and expect par pricing.
func (c *BotConfig) priceMulOrDefault() decimal.Decimal {
	if c.PriceMul == 0 {
		return decimal.NewFromInt(priceMulScale)
	}
	return decimal.NewFromInt(int64(c.PriceMul))
}

// Details is a read-only projection of the configuration plus
// live-computed fields.
type Details struct {
	ID               uint64          `json:"id"`
	Address          string          `json:"address"`
	Name             string          `json:"name"`
	Owner            string          `json:"owner"`
	Phase            string          `json:"phase"`
	IBOStartTime     int64           `json:"ibo_start_time"`
	IBOEndTime       int64           `json:"ibo_end_time"`
	Warmup           uint32          `json:"warmup"`
	Cooldown         uint32          `json:"cooldown"`
	PriceMul         uint32          `json:"price_mul"`
	CommissionFee    uint32          `json:"commission_fee"`
	ProfitSharing    uint32          `json:"profit_sharing"`
	InitDeposit      decimal.Decimal `json:"init_deposit"`
	InitFounderShare decimal.Decimal `json:"init_founder_share"`
	MaxShareCap      decimal.Decimal `json:"max_share_cap"`
	IBOShareSupply   decimal.Decimal `json:"ibo_share_supply"`
	TotalSupply      decimal.Decimal `json:"total_supply"`
}
