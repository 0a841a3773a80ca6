package dabot

import "github.com/shopspring/decimal"

const (
	// priceMulScale is the fixed-point base of the price multiplier:
	// PriceMul=100 means par pricing
	priceMulScale = 100
	// bpsScale is the basis-point denominator for fees and profit sharing
	bpsScale = 10000
)

// commission splits a staked amount into the net custody credit and the
// operator fee, charged at deposit time in basis points.
func commission(amount decimal.Decimal, feeBps uint32) (net, fee decimal.Decimal) {
	if feeBps == 0 {
		return amount, decimal.Zero
	}
	fee = amount.Mul(decimal.NewFromInt(int64(feeBps))).Div(decimal.NewFromInt(bpsScale))
	return amount.Sub(fee), fee
}

// operatorCut returns the basis-point slice of realized profit routed to
// the operator at settlement; the remainder stays in custody and accrues
// to the share pool.
func operatorCut(profit decimal.Decimal, sharingBps uint32) decimal.Decimal {
	if sharingBps == 0 {
		return decimal.Zero
	}
	return profit.Mul(decimal.NewFromInt(int64(sharingBps))).Div(decimal.NewFromInt(bpsScale))
}

// entitlement computes the shares minted for a net stake:
//
//	shares = floor(net * priceMul/100 * weight * windowSupply / sum_j(weight_j * windowCap_j))
//
// During the IBO window the supply is IBOShareSupply over the iboCaps;
// afterwards MaxShareCap over the full caps. The denominator normalizes
// so that filling every asset to its window capacity mints exactly the
// window supply, which keeps the share price consistent across assets and
// makes the cap binding exact. Fractional shares are floored.
func entitlement(cfg *BotConfig, p *portfolio, asset string, net decimal.Decimal, ibo bool) decimal.Decimal {
	entry, ok := p.get(asset)
	if !ok {
		return decimal.Zero
	}

	denom := p.weightedCapacity(ibo)
	if !denom.IsPositive() {
		return decimal.Zero
	}

	supply := cfg.MaxShareCap
	if ibo {
		supply = cfg.IBOShareSupply
	}

	weight := decimal.NewFromInt(int64(entry.Weight))
	priced := net.Mul(cfg.priceMulOrDefault()).Div(decimal.NewFromInt(priceMulScale))

	return priced.Mul(weight).Mul(supply).Div(denom).Floor()
}
