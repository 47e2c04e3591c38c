package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dense-analysis/tradewarp/internal/archive"
	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/env"
	"github.com/dense-analysis/tradewarp/internal/quote"
	"github.com/dense-analysis/tradewarp/internal/route/auth"
	"github.com/dense-analysis/tradewarp/internal/route/order"
	"github.com/dense-analysis/tradewarp/internal/route/portfolio"
	routequote "github.com/dense-analysis/tradewarp/internal/route/quote"
	"github.com/dense-analysis/tradewarp/internal/route/util"
	"github.com/dense-analysis/tradewarp/internal/session"
	"github.com/dense-analysis/tradewarp/internal/template"
	"github.com/dense-analysis/tradewarp/internal/trade"
	"github.com/gorilla/mux"
)

// buildRouter routes every page. NoCache wraps the whole router so that
// unmatched routes get the headers too.
func buildRouter(services *util.Services) http.Handler {
	router := mux.NewRouter().StrictSlash(true)

	router.HandleFunc("/", services.Wrap(portfolio.HandlePortfolio)).Methods("GET")
	router.HandleFunc("/login", services.Wrap(auth.HandleViewLoginForm)).Methods("GET")
	router.HandleFunc("/login", services.Wrap(auth.HandleLogin)).Methods("POST")
	router.HandleFunc("/logout", services.Wrap(auth.HandleLogout)).Methods("GET", "POST")
	router.HandleFunc("/register", services.Wrap(auth.HandleViewRegisterForm)).Methods("GET")
	router.HandleFunc("/register", services.Wrap(auth.HandleRegister)).Methods("POST")
	router.HandleFunc("/check", auth.CheckHandler(services)).Methods("GET")
	router.HandleFunc("/quote", services.Wrap(routequote.HandleViewQuoteForm)).Methods("GET")
	router.HandleFunc("/quote", services.Wrap(routequote.HandleQuote)).Methods("POST")
	router.HandleFunc("/quote/{symbol}/history", services.Wrap(routequote.HandleQuoteHistory)).Methods("GET")
	router.HandleFunc("/buy", services.Wrap(order.HandleViewBuyForm)).Methods("GET")
	router.HandleFunc("/buy", services.Wrap(order.HandleBuy)).Methods("POST")
	router.HandleFunc("/sell", services.Wrap(order.HandleViewSellForm)).Methods("GET")
	router.HandleFunc("/sell", services.Wrap(order.HandleSell)).Methods("POST")
	router.HandleFunc("/deposit", services.Wrap(order.HandleViewDepositForm)).Methods("GET")
	router.HandleFunc("/deposit", services.Wrap(order.HandleDeposit)).Methods("POST")
	router.HandleFunc("/history", services.Wrap(portfolio.HandleHistory)).Methods("GET")

	return util.NoCache(router)
}

func main() {
	env.LoadEnvironmentVariables()
	session.InitSessionStorage()
	template.Init()

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

	services := &util.Services{Conn: conn, InitialCash: initialCash}
	var recorder quote.Recorder

	if archive.Enabled() {
		quoteArchive, err := archive.Connect()

		if err != nil {
			fmt.Fprintf(os.Stderr, "ClickHouse connection error: %s\n", err)
			os.Exit(1)
		}

		defer quoteArchive.Close()

		recorder = quoteArchive
		services.Archive = quoteArchive
	}

	quoteSource, err := quote.Connect(recorder)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Quote source error: %s\n", err)
		os.Exit(1)
	}

	services.Trade = trade.NewService(conn, quoteSource)

	server := http.Server{
		Addr:              ":" + env.Get("PORT", "8000"),
		Handler:           buildRouter(services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %s \n", err)
		}
	}()

	log.Printf("Server started on %s\n", server.Addr)
	<-done

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer func() {
		cancel()
	}()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shut down failed: %+v", err)
	}

	log.Println("Server shut down successfully")
}
