package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dense-analysis/tradewarp/internal/account"
	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/dense-analysis/tradewarp/internal/quote"
	"github.com/dense-analysis/tradewarp/internal/template"
	"github.com/dense-analysis/tradewarp/internal/trade"
	"github.com/google/subcommands"
)

// openService connects to the database and loads the user named by the first argument.
//
// The quote source is only connected when needed, since it requires an API key.
func openService(f *flag.FlagSet, withQuotes bool) (*database.Conn, *trade.Service, *model.User, subcommands.ExitStatus) {
	if f.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Missing username\n")
		return nil, nil, nil, subcommands.ExitUsageError
	}

	conn, err := database.Connect()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %s\n", err)
		return nil, nil, nil, subcommands.ExitFailure
	}

	var user model.User

	if err := account.LoadByUsername(conn, f.Arg(0), &user); err != nil {
		conn.Close()

		if err == database.ErrNoRows {
			fmt.Fprintf(os.Stderr, "Unknown user: %s\n", f.Arg(0))
		} else {
			fmt.Fprintf(os.Stderr, "Query error: %s\n", err)
		}

		return nil, nil, nil, subcommands.ExitFailure
	}

	var source quote.Source = quote.Static{}

	if withQuotes {
		source, err = quote.Connect(nil)

		if err != nil {
			conn.Close()
			fmt.Fprintf(os.Stderr, "Quote source error: %s\n", err)

			return nil, nil, nil, subcommands.ExitFailure
		}
	}

	return conn, trade.NewService(conn, source), &user, subcommands.ExitSuccess
}

type historyCmd struct{}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "print every transaction for a user" }
func (*historyCmd) Usage() string {
	return `ledger history <username>

  Prints the ledger for a user, most recent first.
`
}

func (*historyCmd) SetFlags(_ *flag.FlagSet) {}

func (*historyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conn, service, user, status := openService(f, false)

	if status != subcommands.ExitSuccess {
		return status
	}

	defer conn.Close()

	history, err := service.HistoryFor(user.ID)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Query error: %s\n", err)
		return subcommands.ExitFailure
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "TIME\tSYMBOL\tSHARES\tPRICE\tCASH")

	for _, transaction := range history {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\t%s\n",
			transaction.Time.Format("2006-01-02 15:04:05"),
			transaction.Symbol,
			transaction.Quantity,
			template.USD(transaction.Price),
			template.USD(transaction.Total()),
		)
	}

	writer.Flush()

	return subcommands.ExitSuccess
}

type holdingsCmd struct {
	value bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "print the shares and cash a user holds" }
func (*holdingsCmd) Usage() string {
	return `ledger holdings [-value] <username>

  Prints the positive holdings of a user. With -value, every holding is
  valued with the quote source.
`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.value, "value", false, "value holdings at current quote prices")
}

func (c *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	conn, service, user, status := openService(f, c.value)

	if status != subcommands.ExitSuccess {
		return status
	}

	defer conn.Close()

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	if !c.value {
		holdingList, err := service.HoldingList(user.ID)

		if err != nil {
			fmt.Fprintf(os.Stderr, "Query error: %s\n", err)
			return subcommands.ExitFailure
		}

		fmt.Fprintln(writer, "SYMBOL\tSHARES")

		for _, holding := range holdingList {
			fmt.Fprintf(writer, "%s\t%d\n", holding.Symbol, holding.Shares)
		}

		fmt.Fprintf(writer, "CASH\t%s\n", template.USD(user.Cash))
		writer.Flush()

		return subcommands.ExitSuccess
	}

	portfolio, err := service.PortfolioValue(ctx, user.ID)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Valuation error: %s\n", err)
		return subcommands.ExitFailure
	}

	fmt.Fprintln(writer, "SYMBOL\tNAME\tSHARES\tPRICE\tVALUE")

	for _, position := range portfolio.Positions {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%d\t%s\t%s\n",
			position.Symbol,
			position.Name,
			position.Shares,
			template.USD(position.Price),
			template.USD(position.Value),
		)
	}

	fmt.Fprintf(writer, "CASH\t\t\t\t%s\n", template.USD(portfolio.Cash))
	fmt.Fprintf(writer, "TOTAL\t\t\t\t%s\n", template.USD(portfolio.Total))
	writer.Flush()

	return subcommands.ExitSuccess
}

type depositCmd struct{}

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "add cash to a user's account" }
func (*depositCmd) Usage() string {
	return `ledger deposit <username> <amount>

  Deposits cash for a user and records it in the ledger.
`
}

func (*depositCmd) SetFlags(_ *flag.FlagSet) {}

func (*depositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "Usage: ledger deposit <username> <amount>\n")
		return subcommands.ExitUsageError
	}

	amount, err := trade.ParseAmount(f.Arg(1))

	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid amount: %s\n", err)
		return subcommands.ExitUsageError
	}

	conn, service, user, status := openService(f, false)

	if status != subcommands.ExitSuccess {
		return status
	}

	defer conn.Close()

	receipt, err := service.Deposit(ctx, user.ID, amount)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Deposit error: %s\n", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Deposited %s, %s now has %s\n", template.USD(amount), user.Username, template.USD(receipt.Cash))

	return subcommands.ExitSuccess
}
