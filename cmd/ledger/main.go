// Inspect and adjust user ledgers from the command line
package main

import (
	"context"
	"flag"
	"os"

	"github.com/dense-analysis/tradewarp/internal/env"
	"github.com/google/subcommands"
)

func main() {
	env.LoadEnvironmentVariables()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&historyCmd{}, "ledger")
	subcommands.Register(&holdingsCmd{}, "ledger")
	subcommands.Register(&depositCmd{}, "ledger")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}
