// Create a user for logging in to the trading simulator
package main

import (
	"fmt"
	"os"

	"github.com/dense-analysis/tradewarp/internal/account"
	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/env"
	"github.com/dense-analysis/tradewarp/internal/model"
)

func main() {
	env.LoadEnvironmentVariables()

	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: adduser <username> <password>\n")
		os.Exit(1)
	}

	initialCash, err := env.InitialCash()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}

	conn, err := database.Connect()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %s\n", err)
		os.Exit(1)
	}

	defer conn.Close()

	var user model.User

	if err := account.Create(conn, os.Args[1], os.Args[2], initialCash, &user); err != nil {
		fmt.Fprintf(os.Stderr, "Query error: %s\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created user %s (%d) with %s cash\n", user.Username, user.ID, user.Cash.StringFixed(2))
}
