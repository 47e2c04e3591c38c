// Record a price snapshot of every held share in the quote archive
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dense-analysis/tradewarp/internal/archive"
	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/env"
	"github.com/dense-analysis/tradewarp/internal/ledger"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/dense-analysis/tradewarp/internal/quote"
)

// lookupTimeout bounds each request to the quote source.
const lookupTimeout = 15 * time.Second

// readQuotes looks up every symbol, reporting the symbols which failed.
func readQuotes(source quote.Source, symbolList []string) ([]model.Quote, []string) {
	quoteList := make([]model.Quote, 0, len(symbolList))
	var failedList []string

	for _, symbol := range symbolList {
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		found, err := source.Lookup(ctx, symbol)
		cancel()

		if err != nil {
			fmt.Fprintf(os.Stderr, "Quote error for %s: %s\n", symbol, err)
			failedList = append(failedList, symbol)

			continue
		}

		quoteList = append(quoteList, found)
	}

	return quoteList, failedList
}

func main() {
	env.LoadEnvironmentVariables()

	conn, err := database.Connect()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %s\n", err)
		os.Exit(1)
	}

	defer conn.Close()

	quoteArchive, err := archive.Connect()

	if err != nil {
		fmt.Fprintf(os.Stderr, "ClickHouse connection error: %s\n", err)
		os.Exit(1)
	}

	defer quoteArchive.Close()

	source, err := quote.Connect(nil)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Quote source error: %s\n", err)
		os.Exit(1)
	}

	var symbolList []string

	if err := ledger.HeldSymbols(conn, &symbolList); err != nil {
		fmt.Fprintf(os.Stderr, "SQL error: %s\n", err)
		os.Exit(1)
	}

	quoteList, failedList := readQuotes(source, symbolList)

	if err := quoteArchive.RecordQuotes(context.Background(), quoteList); err != nil {
		fmt.Fprintf(os.Stderr, "ClickHouse error: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Recorded %d of %d prices\n", len(quoteList), len(symbolList))

	if len(failedList) > 0 {
		os.Exit(1)
	}
}
