package token

import (
	"sync"

	"github.com/shopspring/decimal"
)

type accountKey struct {
	asset   string
	account string
}

type allowanceKey struct {
	asset   string
	owner   string
	spender string
}

// Ledger is an in-memory Transferor. It backs standalone runs and tests;
// a production deployment would swap in an adapter over the real asset
// custody service.
type Ledger struct {
	mu         sync.RWMutex
	balances   map[accountKey]decimal.Decimal
	allowances map[allowanceKey]decimal.Decimal
}

// NewLedger creates an empty in-memory token ledger
func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[accountKey]decimal.Decimal),
		allowances: make(map[allowanceKey]decimal.Decimal),
	}
}

// Mint credits freshly created units to an account
func (l *Ledger) Mint(asset, account string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := accountKey{asset: asset, account: account}
	l.balances[key] = l.balances[key].Add(amount)
	return nil
}

// BalanceOf returns the balance of account in asset
func (l *Ledger) BalanceOf(asset, account string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[accountKey{asset: asset, account: account}]
}

// Allowance returns spender's allowance over owner's balance
func (l *Ledger) Allowance(asset, owner, spender string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[allowanceKey{asset: asset, owner: owner, spender: spender}]
}

// Approve sets spender's allowance over owner's balance
func (l *Ledger) Approve(asset, owner, spender string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.allowances[allowanceKey{asset: asset, owner: owner, spender: spender}] = amount
	return nil
}

// Transfer moves amount between accounts
func (l *Ledger) Transfer(asset, from, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.move(asset, from, to, amount)
}

// TransferFrom moves amount from owner to recipient, consuming spender's
// allowance
func (l *Ledger) TransferFrom(asset, spender, owner, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	akey := allowanceKey{asset: asset, owner: owner, spender: spender}
	allowed := l.allowances[akey]
	if allowed.LessThan(amount) {
		return ErrInsufficientAllowance
	}

	if err := l.move(asset, owner, to, amount); err != nil {
		return err
	}

	l.allowances[akey] = allowed.Sub(amount)
	return nil
}

// move requires l.mu held
func (l *Ledger) move(asset, from, to string, amount decimal.Decimal) error {
	fromKey := accountKey{asset: asset, account: from}
	if l.balances[fromKey].LessThan(amount) {
		return ErrInsufficientBalance
	}

	toKey := accountKey{asset: asset, account: to}
	l.balances[fromKey] = l.balances[fromKey].Sub(amount)
	l.balances[toKey] = l.balances[toKey].Add(amount)
	return nil
}
