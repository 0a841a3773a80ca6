package dabot

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// InitParams is the structured form of the creation-time configuration
// record. The factory decodes it from the fixed-order deploy array; direct
// callers may build it by hand.
type InitParams struct {
	Name             string
	Owner            string
	IBOStartTime     int64 // unix seconds
	IBOEndTime       int64 // unix seconds
	Warmup           uint32
	Cooldown         uint32
	PriceMul         uint32 // base-100 multiplier, 0 means unset (100)
	CommissionFee    uint32 // basis points
	ProfitSharing    uint32 // basis points routed to the operator
	InitDeposit      decimal.Decimal
	InitFounderShare decimal.Decimal
	MaxShareCap      decimal.Decimal
	IBOShareSupply   decimal.Decimal
}

// Validate checks the structural invariants of the record
func (p *InitParams) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if p.Owner == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidConfig)
	}
	if p.IBOEndTime < p.IBOStartTime {
		return fmt.Errorf("%w: ibo end before start", ErrInvalidConfig)
	}
	if p.InitDeposit.IsNegative() || p.InitFounderShare.IsNegative() {
		return fmt.Errorf("%w: negative seed allocation", ErrInvalidConfig)
	}
	if p.IBOShareSupply.IsNegative() || p.IBOShareSupply.GreaterThan(p.MaxShareCap) {
		return fmt.Errorf("%w: ibo share supply exceeds max share cap", ErrInvalidConfig)
	}
	if p.CommissionFee > bpsScale {
		return fmt.Errorf("%w: commission fee exceeds %d basis points", ErrInvalidConfig, bpsScale)
	}
	if p.ProfitSharing > bpsScale {
		return fmt.Errorf("%w: profit sharing exceeds %d basis points", ErrInvalidConfig, bpsScale)
	}
	return nil
}

// PackIBOTime packs the offering window into a single 64-bit word,
// end in the high 32 bits and start in the low 32 bits. This is the exact
// layout existing deployments encode.
func PackIBOTime(start, end int64) uint64 {
	return uint64(end)<<32 | uint64(start)&0xFFFFFFFF
}

// UnpackIBOTime splits a packed offering window
func UnpackIBOTime(packed uint64) (start, end int64) {
	return int64(packed & 0xFFFFFFFF), int64(packed >> 32)
}

// PackStakingTime packs cooldown (32-bit) and warmup (16-bit) into one word
func PackStakingTime(warmup, cooldown uint32) uint64 {
	return uint64(cooldown)<<16 | uint64(warmup)&0xFFFF
}

// UnpackStakingTime splits a packed staking-time word
func UnpackStakingTime(packed uint64) (warmup, cooldown uint32) {
	return uint32(packed & 0xFFFF), uint32(packed >> 16)
}

// PackPricePolicy packs commission fee (bps) and price multiplier into one
// word, fee in the high half. The original encoding used a 144-bit field;
// compatibility with that width is not preserved.
func PackPricePolicy(priceMul, commissionFee uint32) uint64 {
	return uint64(commissionFee)<<32 | uint64(priceMul)
}

// UnpackPricePolicy splits a packed price policy word
func UnpackPricePolicy(packed uint64) (priceMul, commissionFee uint32) {
	return uint32(packed & 0xFFFFFFFF), uint32(packed >> 32)
}

// Deploy array slots, in wire order
const (
	slotIBOTime = iota
	slotStakingTime
	slotPricePolicy
	slotProfitSharing
	slotInitDeposit
	slotInitFounderShare
	slotMaxShareCap
	slotIBOShareSupply
	deploySlots
)

// ParamsFromArray decodes the fixed-order deploy parameter array
// [iboTimePacked, stakingTimePacked, pricePolicyPacked, profitSharing,
// initDeposit, initFounderShare, maxShareCap, iboShareSupply] into a
// structured record.
func ParamsFromArray(name, owner string, raw []uint64) (InitParams, error) {
	if len(raw) != deploySlots {
		return InitParams{}, fmt.Errorf("%w: expected %d deploy parameters, got %d",
			ErrInvalidConfig, deploySlots, len(raw))
	}

	if raw[slotProfitSharing] > math.MaxUint32 {
		return InitParams{}, fmt.Errorf("%w: profit sharing out of range", ErrInvalidConfig)
	}

	start, end := UnpackIBOTime(raw[slotIBOTime])
	warmup, cooldown := UnpackStakingTime(raw[slotStakingTime])
	priceMul, commissionFee := UnpackPricePolicy(raw[slotPricePolicy])

	p := InitParams{
		Name:             name,
		Owner:            owner,
		IBOStartTime:     start,
		IBOEndTime:       end,
		Warmup:           warmup,
		Cooldown:         cooldown,
		PriceMul:         priceMul,
		CommissionFee:    commissionFee,
		ProfitSharing:    uint32(raw[slotProfitSharing]),
		InitDeposit:      decimal.NewFromUint64(raw[slotInitDeposit]),
		InitFounderShare: decimal.NewFromUint64(raw[slotInitFounderShare]),
		MaxShareCap:      decimal.NewFromUint64(raw[slotMaxShareCap]),
		IBOShareSupply:   decimal.NewFromUint64(raw[slotIBOShareSupply]),
	}

	if err := p.Validate(); err != nil {
		return InitParams{}, err
	}
	return p, nil
}
