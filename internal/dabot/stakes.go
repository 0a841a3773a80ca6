package dabot

import (
	"time"

	"github.com/shopspring/decimal"
)

// StakeRecord is the deposited-value record for one (holder, asset) pair.
// Shares is the minted entitlement the record carries; burns on unstake
// are pro-rata against it, so the exit rate always matches the mint rate
// regardless of the window the exit happens in. IBOShares is the portion
// minted during the offering, tracked so exits release offering supply.
// Timestamp is the last stake time and gates unstake eligibility against
// the warmup period.
type StakeRecord struct {
	Holder    string          `json:"holder"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	Shares    decimal.Decimal `json:"shares"`
	IBOShares decimal.Decimal `json:"ibo_shares"`
	Timestamp time.Time       `json:"timestamp"`
}

// PendingRelease is a requested unstake waiting out its cooldown. Shares
// and capacity are released at request time; custody of the funds moves
// only at claim time.
type PendingRelease struct {
	Holder    string          `json:"holder"`
	Asset     string          `json:"asset"`
	Amount    decimal.Decimal `json:"amount"`
	ReleaseAt time.Time       `json:"release_at"`
}

type stakeKey struct {
	holder string
	asset  string
}

// stakeBook tracks per-(holder, asset) stake records and pending unstake
// releases. The owning Bot serializes access.
type stakeBook struct {
	records  map[stakeKey]*StakeRecord
	releases []*PendingRelease
}

func newStakeBook() *stakeBook {
	return &stakeBook{
		records: make(map[stakeKey]*StakeRecord),
	}
}

// add accumulates a stake, refreshes the record timestamp and returns the
// record so the caller can attribute minted shares to it
func (b *stakeBook) add(holder, asset string, amount decimal.Decimal, at time.Time) *StakeRecord {
	key := stakeKey{holder: holder, asset: asset}
	if record, ok := b.records[key]; ok {
		record.Amount = record.Amount.Add(amount)
		record.Timestamp = at
		return record
	}
	record := &StakeRecord{
		Holder:    holder,
		Asset:     asset,
		Amount:    amount,
		Timestamp: at,
	}
	b.records[key] = record
	return record
}

// reduce lowers a stake record, dropping it when fully unstaked
func (b *stakeBook) reduce(holder, asset string, amount decimal.Decimal) error {
	key := stakeKey{holder: holder, asset: asset}
	record, ok := b.records[key]
	if !ok || record.Amount.LessThan(amount) {
		return ErrInsufficientStake
	}
	record.Amount = record.Amount.Sub(amount)
	if record.Amount.IsZero() {
		delete(b.records, key)
	}
	return nil
}

func (b *stakeBook) get(holder, asset string) (*StakeRecord, bool) {
	record, ok := b.records[stakeKey{holder: holder, asset: asset}]
	return record, ok
}

// all returns every stake record
func (b *stakeBook) all() []*StakeRecord {
	out := make([]*StakeRecord, 0, len(b.records))
	for _, record := range b.records {
		out = append(out, record)
	}
	return out
}

// pushRelease queues a cooldown-delayed release
func (b *stakeBook) pushRelease(holder, asset string, amount decimal.Decimal, releaseAt time.Time) {
	b.releases = append(b.releases, &PendingRelease{
		Holder:    holder,
		Asset:     asset,
		Amount:    amount,
		ReleaseAt: releaseAt,
	})
}

// popDueReleases removes and returns the releases of (holder, asset) whose
// cooldown has expired at the given instant. The second result reports
// whether any release exists for the pair at all.
func (b *stakeBook) popDueReleases(holder, asset string, now time.Time) ([]*PendingRelease, bool) {
	var due []*PendingRelease
	var remaining []*PendingRelease
	found := false

	for _, release := range b.releases {
		if release.Holder == holder && release.Asset == asset {
			found = true
			if !release.ReleaseAt.After(now) {
				due = append(due, release)
				continue
			}
		}
		remaining = append(remaining, release)
	}

	if len(due) > 0 {
		b.releases = remaining
	}
	return due, found
}

// pendingReleases returns a copy of the queued releases
func (b *stakeBook) pendingReleases() []PendingRelease {
	out := make([]PendingRelease, 0, len(b.releases))
	for _, release := range b.releases {
		out = append(out, *release)
	}
	return out
}
