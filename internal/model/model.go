package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashSymbol is the ledger symbol recorded for deposits.
const CashSymbol = "CASH"

// User represents a user in the database
type User struct {
	ID       int64
	Username string
	Cash     decimal.Decimal
}

// Quote is a current price for a ticker symbol from the quote source.
type Quote struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
	Time   time.Time
}

// Transaction is one append-only row of the ledger.
//
// Quantity is positive for buys, negative for sells and zero for deposits,
// where Price holds the deposited amount.
type Transaction struct {
	ID       int64
	UserID   int64
	Symbol   string
	Quantity int64
	Price    decimal.Decimal
	Time     time.Time
}

// IsDeposit returns true for cash movements recorded against CashSymbol.
func (transaction Transaction) IsDeposit() bool {
	return transaction.Symbol == CashSymbol && transaction.Quantity == 0
}

// Total returns the signed cash amount of the transaction, negative for buys.
func (transaction Transaction) Total() decimal.Decimal {
	if transaction.IsDeposit() {
		return transaction.Price
	}

	return transaction.Price.Mul(decimal.NewFromInt(transaction.Quantity)).Neg()
}

// Holding is the aggregate number of shares of a symbol owned by a user.
type Holding struct {
	Symbol string
	Shares int64
}

// Position is a Holding valued with a current quote.
type Position struct {
	Holding
	Name  string
	Price decimal.Decimal
	Value decimal.Decimal
}
