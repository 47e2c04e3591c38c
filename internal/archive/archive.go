// Package archive keeps every observed share price in ClickHouse.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/dense-analysis/tradewarp/internal/env"
	"github.com/dense-analysis/tradewarp/internal/model"
)

var createTableQuery = `
create table if not exists stock_quote_prices (
	time DateTime64(9),
	symbol LowCardinality(String),
	name String,
	price Decimal(20, 4)
)
engine = MergeTree
partition by toYYYYMM(time)
order by (symbol, time)
`

// Archive records quotes in a ClickHouse table.
type Archive struct {
	chConn clickhouse.Conn
}

// Enabled returns true if ClickHouse is configured with the environment variables.
func Enabled() bool {
	return env.Get("CLICKHOUSE_HOST", "") != ""
}

// Connect connects to ClickHouse with the project environment variables.
//
// The price table is created if it doesn't exist yet.
func Connect() (*Archive, error) {
	address := fmt.Sprintf("%s:%s", env.Get("CLICKHOUSE_HOST", ""), env.Get("CLICKHOUSE_PORT", "9000"))
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{address},
		Auth: clickhouse.Auth{
			Database: env.Get("CLICKHOUSE_DB", ""),
			Username: env.Get("CLICKHOUSE_USERNAME", ""),
			Password: env.Get("CLICKHOUSE_PASSWORD", ""),
		},
		DialTimeout: time.Second * 5,
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, err
	}

	if err := conn.Exec(context.Background(), createTableQuery); err != nil {
		return nil, err
	}

	return &Archive{chConn: conn}, nil
}

// Close closes the ClickHouse connection.
func (archive *Archive) Close() error {
	return archive.chConn.Close()
}

// RecordQuote inserts a single quote.
func (archive *Archive) RecordQuote(ctx context.Context, quote model.Quote) error {
	return archive.chConn.Exec(
		ctx,
		`insert into stock_quote_prices (time, symbol, name, price)
		values (?, ?, ?, ?)`,
		quote.Time,
		quote.Symbol,
		quote.Name,
		quote.Price,
	)
}

// RecordQuotes inserts quotes in a single batch.
func (archive *Archive) RecordQuotes(ctx context.Context, quoteList []model.Quote) error {
	if len(quoteList) == 0 {
		return nil
	}

	batch, err := archive.chConn.PrepareBatch(
		ctx,
		`insert into stock_quote_prices (time, symbol, name, price)`,
	)

	if err != nil {
		return err
	}

	for _, quote := range quoteList {
		if err := batch.Append(quote.Time, quote.Symbol, quote.Name, quote.Price); err != nil {
			return err
		}
	}

	return batch.Send()
}

// Recent loads the latest recorded quotes for a symbol, most recent first.
func (archive *Archive) Recent(ctx context.Context, symbol string, limit int) ([]model.Quote, error) {
	rows, err := archive.chConn.Query(
		ctx,
		`select time, symbol, name, price
		from stock_quote_prices
		where symbol = ?
		order by time desc
		limit ?`,
		symbol,
		limit,
	)

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	quoteList := make([]model.Quote, 0, limit)

	for rows.Next() {
		var quote model.Quote

		if err := rows.Scan(&quote.Time, &quote.Symbol, &quote.Name, &quote.Price); err != nil {
			return nil, err
		}

		quoteList = append(quoteList, quote)
	}

	return quoteList, rows.Err()
}
