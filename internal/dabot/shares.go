package dabot

import "github.com/shopspring/decimal"

// shareLedger is the fungible-ownership ledger of one bot instance:
// holder balances plus total supply. Only the accounting engine mutates
// it; the owning Bot serializes access.
type shareLedger struct {
	balances    map[string]decimal.Decimal
	totalSupply decimal.Decimal
}

func newShareLedger() *shareLedger {
	return &shareLedger{
		balances: make(map[string]decimal.Decimal),
	}
}

func (l *shareLedger) mint(holder string, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	l.balances[holder] = l.balances[holder].Add(amount)
	l.totalSupply = l.totalSupply.Add(amount)
}

// burn removes up to the holder's balance; amounts are clamped, never
// driven negative
func (l *shareLedger) burn(holder string, amount decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	balance := l.balances[holder]
	if amount.GreaterThan(balance) {
		amount = balance
	}
	l.balances[holder] = balance.Sub(amount)
	l.totalSupply = l.totalSupply.Sub(amount)
	return amount
}

func (l *shareLedger) balanceOf(holder string) decimal.Decimal {
	return l.balances[holder]
}

// holders returns every holder with a positive balance
func (l *shareLedger) holders() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.balances))
	for holder, balance := range l.balances {
		if balance.IsPositive() {
			out[holder] = balance
		}
	}
	return out
}
