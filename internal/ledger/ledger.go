// Package ledger reads and appends the append-only transaction table.
//
// Nothing in this package validates trades. Callers check the economic
// invariants and call Record inside the same transaction.
package ledger

import (
	"time"

	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/shopspring/decimal"
)

var recordQuery = `
insert into trade_transaction
	(user_id, symbol, quantity, price, time)
values ($1, $2, $3, $4, $5)
`

// Record appends one row to the ledger.
func Record(
	conn database.Queryable,
	userID int64,
	symbol string,
	quantity int64,
	price decimal.Decimal,
	at time.Time,
) error {
	return conn.Exec(recordQuery, userID, symbol, quantity, price, at.UTC())
}

// HoldingsFor returns the signed sum of quantity for a user and symbol, 0 without rows.
func HoldingsFor(conn database.Queryable, userID int64, symbol string) (int64, error) {
	row := conn.QueryRow(
		`select coalesce(sum(quantity), 0)
		from trade_transaction
		where user_id = $1 and symbol = $2`,
		userID,
		symbol,
	)

	var shares int64
	err := row.Scan(&shares)

	return shares, err
}

func scanTransaction(row database.Row, transaction *model.Transaction) error {
	return row.Scan(
		&transaction.ID,
		&transaction.UserID,
		&transaction.Symbol,
		&transaction.Quantity,
		&transaction.Price,
		&transaction.Time,
	)
}

// HistoryFor loads every row for a user, most recent first.
func HistoryFor(conn database.Queryable, userID int64, history *[]model.Transaction) error {
	return model.LoadList(
		conn,
		history,
		16,
		scanTransaction,
		`select id, user_id, symbol, quantity, price, time
		from trade_transaction
		where user_id = $1
		order by time desc, id desc`,
		userID,
	)
}

func scanHolding(row database.Row, holding *model.Holding) error {
	return row.Scan(&holding.Symbol, &holding.Shares)
}

// HoldingList loads every symbol a user currently holds a positive number of shares of.
func HoldingList(conn database.Queryable, userID int64, holdingList *[]model.Holding) error {
	return model.LoadList(
		conn,
		holdingList,
		8,
		scanHolding,
		`select symbol, sum(quantity)
		from trade_transaction
		where user_id = $1 and symbol <> $2
		group by symbol
		having sum(quantity) > 0
		order by symbol`,
		userID,
		model.CashSymbol,
	)
}

func scanSymbol(row database.Row, symbol *string) error {
	return row.Scan(symbol)
}

// HeldSymbols loads every symbol held by at least one user.
func HeldSymbols(conn database.Queryable, symbolList *[]string) error {
	return model.LoadList(
		conn,
		symbolList,
		32,
		scanSymbol,
		`select symbol
		from (
			select user_id, symbol
			from trade_transaction
			where symbol <> $1
			group by user_id, symbol
			having sum(quantity) > 0
		) as held
		group by symbol
		order by symbol`,
		model.CashSymbol,
	)
}
