// Package trade validates and executes buys, sells and deposits, and values portfolios.
//
// Every mutation runs inside one database transaction which first locks the
// user's row, so the cash and holdings checks can't race with another
// request for the same user. Quotes are fetched before the transaction opens
// and the fetched price is the price the trade executes at.
package trade

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/dense-analysis/tradewarp/internal/account"
	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/ledger"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/dense-analysis/tradewarp/internal/quote"
	"github.com/shopspring/decimal"
)

// PricePlaces is the number of decimal places stored for share prices.
const PricePlaces = 4

// Service executes trades for users against the ledger.
type Service struct {
	conn   *database.Conn
	quotes quote.Source
	now    func() time.Time
}

func NewService(conn *database.Conn, quotes quote.Source) *Service {
	return &Service{conn: conn, quotes: quotes, now: time.Now}
}

// Receipt describes an executed trade or deposit.
type Receipt struct {
	Transaction model.Transaction
	Name        string
	// Cash is the user's cash balance after the trade.
	Cash decimal.Decimal
}

// Portfolio is the current value of everything a user owns.
type Portfolio struct {
	Positions     []model.Position
	HoldingsValue decimal.Decimal
	Cash          decimal.Decimal
	Total         decimal.Decimal
}

// ParseQuantity reads a whole, positive number of shares from form input.
func ParseQuantity(text string) (int64, error) {
	quantity, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)

	if err != nil || quantity <= 0 {
		return 0, ErrInvalidQuantity
	}

	return quantity, nil
}

func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

// ParseAmount reads a positive amount of cash with at most two decimal places.
func ParseAmount(text string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(text))

	if err != nil || !validAmount(amount) {
		return decimal.Zero, ErrInvalidAmount
	}

	return amount, nil
}

// Lookup resolves a symbol with the quote source.
//
// Any failure, including the quote source being unavailable, is reported as
// UnknownSymbol. The CASH sentinel is never tradable.
func (service *Service) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = quote.NormalizeSymbol(symbol)

	if symbol == "" || symbol == model.CashSymbol {
		return model.Quote{}, unknownSymbol(symbol, quote.ErrNotFound)
	}

	found, err := service.quotes.Lookup(ctx, symbol)

	if err != nil {
		return model.Quote{}, unknownSymbol(symbol, err)
	}

	// The ledger stores prices with PricePlaces decimal places, so trades
	// execute at the rounded price.
	found.Price = found.Price.Round(PricePlaces)

	if found.Symbol == "" || found.Symbol == model.CashSymbol || !found.Price.IsPositive() {
		return model.Quote{}, unknownSymbol(symbol, quote.ErrNotFound)
	}

	return found, nil
}

// Buy buys shares of a symbol for a user at the current quote price.
func (service *Service) Buy(ctx context.Context, userID int64, symbol string, quantity int64) (Receipt, error) {
	if quantity <= 0 {
		return Receipt{}, ErrInvalidQuantity
	}

	found, err := service.Lookup(ctx, symbol)

	if err != nil {
		return Receipt{}, err
	}

	return service.buyAt(ctx, userID, found, quantity)
}

func (service *Service) buyAt(ctx context.Context, userID int64, found model.Quote, quantity int64) (Receipt, error) {
	cost := found.Price.Mul(decimal.NewFromInt(quantity))
	receipt := Receipt{
		Name: found.Name,
		Transaction: model.Transaction{
			UserID:   userID,
			Symbol:   found.Symbol,
			Quantity: quantity,
			Price:    found.Price,
			Time:     service.now().UTC(),
		},
	}

	err := service.conn.Transaction(ctx, func(tx *database.Tx) error {
		cash, err := account.LockCash(tx, userID)

		if err != nil {
			return err
		}

		if cash.LessThan(cost) {
			return ErrInsufficientFunds
		}

		receipt.Cash = cash.Sub(cost)

		if err := account.SetCash(tx, userID, receipt.Cash); err != nil {
			return err
		}

		return service.record(tx, &receipt.Transaction)
	})

	if err != nil {
		return Receipt{}, err
	}

	return receipt, nil
}

// Sell sells shares of a symbol for a user at the current quote price.
//
// The symbol is resolved before shares owned are checked.
func (service *Service) Sell(ctx context.Context, userID int64, symbol string, quantity int64) (Receipt, error) {
	if quantity <= 0 {
		return Receipt{}, ErrInvalidQuantity
	}

	found, err := service.Lookup(ctx, symbol)

	if err != nil {
		return Receipt{}, err
	}

	return service.sellAt(ctx, userID, found, quantity)
}

func (service *Service) sellAt(ctx context.Context, userID int64, found model.Quote, quantity int64) (Receipt, error) {
	proceeds := found.Price.Mul(decimal.NewFromInt(quantity))
	receipt := Receipt{
		Name: found.Name,
		Transaction: model.Transaction{
			UserID:   userID,
			Symbol:   found.Symbol,
			Quantity: -quantity,
			Price:    found.Price,
			Time:     service.now().UTC(),
		},
	}

	err := service.conn.Transaction(ctx, func(tx *database.Tx) error {
		cash, err := account.LockCash(tx, userID)

		if err != nil {
			return err
		}

		shares, err := ledger.HoldingsFor(tx, userID, found.Symbol)

		if err != nil {
			return err
		}

		if shares < quantity {
			return ErrInsufficientShares
		}

		receipt.Cash = cash.Add(proceeds)

		if err := account.SetCash(tx, userID, receipt.Cash); err != nil {
			return err
		}

		return service.record(tx, &receipt.Transaction)
	})

	if err != nil {
		return Receipt{}, err
	}

	return receipt, nil
}

// Deposit adds cash to a user's account and records it against the CASH symbol.
func (service *Service) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (Receipt, error) {
	if !validAmount(amount) {
		return Receipt{}, ErrInvalidAmount
	}

	receipt := Receipt{
		Name: "Cash",
		Transaction: model.Transaction{
			UserID:   userID,
			Symbol:   model.CashSymbol,
			Quantity: 0,
			Price:    amount,
			Time:     service.now().UTC(),
		},
	}

	err := service.conn.Transaction(ctx, func(tx *database.Tx) error {
		cash, err := account.LockCash(tx, userID)

		if err != nil {
			return err
		}

		receipt.Cash = cash.Add(amount)

		if err := account.SetCash(tx, userID, receipt.Cash); err != nil {
			return err
		}

		return service.record(tx, &receipt.Transaction)
	})

	if err != nil {
		return Receipt{}, err
	}

	return receipt, nil
}

func (service *Service) record(tx *database.Tx, transaction *model.Transaction) error {
	return ledger.Record(
		tx,
		transaction.UserID,
		transaction.Symbol,
		transaction.Quantity,
		transaction.Price,
		transaction.Time,
	)
}

// HoldingsFor returns the number of shares of a symbol a user owns.
func (service *Service) HoldingsFor(userID int64, symbol string) (int64, error) {
	return ledger.HoldingsFor(service.conn, userID, quote.NormalizeSymbol(symbol))
}

// HistoryFor returns every ledger row for a user, most recent first.
func (service *Service) HistoryFor(userID int64) ([]model.Transaction, error) {
	var history []model.Transaction
	err := ledger.HistoryFor(service.conn, userID, &history)

	return history, err
}

// HoldingList returns every symbol a user holds a positive number of shares of.
func (service *Service) HoldingList(userID int64) ([]model.Holding, error) {
	var holdingList []model.Holding
	err := ledger.HoldingList(service.conn, userID, &holdingList)

	return holdingList, err
}

// Cash returns a user's current cash balance.
func (service *Service) Cash(userID int64) (decimal.Decimal, error) {
	var user model.User

	if err := account.LoadByID(service.conn, userID, &user); err != nil {
		return decimal.Zero, err
	}

	return user.Cash, nil
}

// PortfolioValue values every positive holding of a user at current quote prices.
func (service *Service) PortfolioValue(ctx context.Context, userID int64) (Portfolio, error) {
	portfolio := Portfolio{HoldingsValue: decimal.Zero}
	var holdingList []model.Holding

	// Read cash and holdings together, then release the database before
	// calling the quote source.
	err := service.conn.Transaction(ctx, func(tx *database.Tx) error {
		var user model.User

		if err := account.LoadByID(tx, userID, &user); err != nil {
			return err
		}

		portfolio.Cash = user.Cash

		return ledger.HoldingList(tx, userID, &holdingList)
	})

	if err != nil {
		return Portfolio{}, err
	}

	portfolio.Positions = make([]model.Position, 0, len(holdingList))

	for _, holding := range holdingList {
		found, err := service.Lookup(ctx, holding.Symbol)

		if err != nil {
			return Portfolio{}, err
		}

		position := model.Position{
			Holding: holding,
			Name:    found.Name,
			Price:   found.Price,
			Value:   found.Price.Mul(decimal.NewFromInt(holding.Shares)),
		}

		portfolio.HoldingsValue = portfolio.HoldingsValue.Add(position.Value)
		portfolio.Positions = append(portfolio.Positions, position)
	}

	portfolio.Total = portfolio.Cash.Add(portfolio.HoldingsValue)

	return portfolio, nil
}
