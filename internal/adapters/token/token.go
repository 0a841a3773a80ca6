package token

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Transfer errors
var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidAmount         = errors.New("amount must be positive")
)

// Transferor moves fungible assets between accounts. The bot core never
// implements token movement itself, it only orchestrates calls on this
// interface. All methods are keyed by asset symbol and account identity.
type Transferor interface {
	// BalanceOf returns the balance of account in asset
	BalanceOf(asset, account string) decimal.Decimal
	// Allowance returns how much spender may move out of owner's balance
	Allowance(asset, owner, spender string) decimal.Decimal
	// Approve sets spender's allowance over owner's balance
	Approve(asset, owner, spender string, amount decimal.Decimal) error
	// Transfer moves amount from one account to another
	Transfer(asset, from, to string, amount decimal.Decimal) error
	// TransferFrom moves amount from owner to recipient, consuming
	// spender's allowance
	TransferFrom(asset, spender, owner, to string, amount decimal.Decimal) error
}
