package dabot

import "github.com/shopspring/decimal"

// PortfolioAsset is one external asset the bot accepts, with its capacity
// limits and relative weight. TotalStaked is mutated only by the
// accounting engine.
type PortfolioAsset struct {
	Asset       string          `json:"asset"`
	Cap         decimal.Decimal `json:"cap"`
	IBOCap      decimal.Decimal `json:"ibo_cap"`
	Weight      uint32          `json:"weight"`
	TotalStaked decimal.Decimal `json:"total_staked"`
}

// portfolio holds the ordered set of supported assets for one bot
// instance. It carries no lock of its own: the owning Bot serializes all
// access.
type portfolio struct {
	order  []string
	assets map[string]*PortfolioAsset
}

func newPortfolio() *portfolio {
	return &portfolio{
		assets: make(map[string]*PortfolioAsset),
	}
}

// upsert inserts or updates one asset, preserving its running stake total
func (p *portfolio) upsert(asset string, cap, iboCap decimal.Decimal, weight uint32) error {
	if iboCap.GreaterThan(cap) {
		return ErrInvalidCapacity
	}
	if cap.IsNegative() || iboCap.IsNegative() {
		return ErrInvalidCapacity
	}

	if existing, ok := p.assets[asset]; ok {
		existing.Cap = cap
		existing.IBOCap = iboCap
		existing.Weight = weight
		return nil
	}

	p.assets[asset] = &PortfolioAsset{
		Asset:  asset,
		Cap:    cap,
		IBOCap: iboCap,
		Weight: weight,
	}
	p.order = append(p.order, asset)
	return nil
}

// remove deletes an asset. Assets with outstanding stake cannot be
// removed: that would orphan holder claims.
func (p *portfolio) remove(asset string) error {
	entry, ok := p.assets[asset]
	if !ok {
		return ErrUnknownAsset
	}
	if entry.TotalStaked.IsPositive() {
		return ErrAssetInUse
	}

	delete(p.assets, asset)
	for i, name := range p.order {
		if name == asset {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return nil
}

func (p *portfolio) get(asset string) (*PortfolioAsset, bool) {
	entry, ok := p.assets[asset]
	return entry, ok
}

// snapshot returns the assets in insertion order, copied
func (p *portfolio) snapshot() []PortfolioAsset {
	out := make([]PortfolioAsset, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, *p.assets[name])
	}
	return out
}

// weightedCapacity sums weight_j * windowCap_j over all assets. It is the
// normalization denominator of the entitlement formula: a full fill of
// every asset's window capacity mints exactly the window share supply.
func (p *portfolio) weightedCapacity(ibo bool) decimal.Decimal {
	total := decimal.Zero
	for _, name := range p.order {
		entry := p.assets[name]
		cap := entry.Cap
		if ibo {
			cap = entry.IBOCap
		}
		total = total.Add(cap.Mul(decimal.NewFromInt(int64(entry.Weight))))
	}
	return total
}
