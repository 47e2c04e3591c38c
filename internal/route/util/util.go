package util

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/dense-analysis/tradewarp/internal/session"
	"github.com/dense-analysis/tradewarp/internal/template"
	"github.com/dense-analysis/tradewarp/internal/trade"
	"github.com/shopspring/decimal"
)

// QuoteArchive reads back recorded quotes.
type QuoteArchive interface {
	Recent(ctx context.Context, symbol string, limit int) ([]model.Quote, error)
}

// Services are the dependencies every handler is called with.
type Services struct {
	Conn        *database.Conn
	Trade       *trade.Service
	InitialCash decimal.Decimal
	// Archive is nil when no quote archive is configured.
	Archive QuoteArchive
}

// Handler is an HTTP handler which needs Services.
type Handler func(services *Services, writer http.ResponseWriter, request *http.Request)

// Wrap creates an http.HandlerFunc from a Handler.
func (services *Services) Wrap(handler Handler) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		handler(services, writer, request)
	}
}

// NoCache stops browsers caching any response.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		writer.Header().Set("Expires", "0")
		writer.Header().Set("Pragma", "no-cache")
		next.ServeHTTP(writer, request)
	})
}

// RequireUser loads the user for the session, returning false once it has responded.
//
// Without a user, GET requests are redirected to the login page and other
// requests are forbidden. Store failures get a 500 and nothing else.
func RequireUser(conn database.Queryable, writer http.ResponseWriter, request *http.Request, user *model.User) bool {
	found, err := session.LoadUserFromSession(conn, request, user)

	if err != nil {
		RespondInternalServerError(writer, err)

		return false
	}

	if found {
		return true
	}

	if request.Method == http.MethodGet {
		http.Redirect(writer, request, "/login", http.StatusFound)
	} else {
		RespondForbidden(writer)
	}

	return false
}

func RespondInternalServerError(writer http.ResponseWriter, err error) {
	writer.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(writer, "Internal Server Error\n")
	log.Printf("internal error: %+v\n", err)
}

// ApologyPageData is the data for an error page.
type ApologyPageData struct {
	User    model.User
	Status  int
	Message string
}

// RespondApology renders an error page with a status code.
func RespondApology(writer http.ResponseWriter, user *model.User, status int, message string) {
	data := ApologyPageData{User: *user, Status: status, Message: message}
	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	writer.WriteHeader(status)
	template.Render(template.Apology, writer, data)
}

func RespondValidationError(writer http.ResponseWriter, user *model.User, message string) {
	RespondApology(writer, user, http.StatusBadRequest, message)
}

// RespondTradeError renders trade failures as validation errors and anything else as a 500.
func RespondTradeError(writer http.ResponseWriter, user *model.User, err error) {
	var tradeErr *trade.Error

	if errors.As(err, &tradeErr) {
		RespondValidationError(writer, user, tradeErr.Message)
	} else {
		RespondInternalServerError(writer, err)
	}
}

func RespondNotFound(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(writer, "404: Not Found\n")
}

func RespondForbidden(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusForbidden)
	fmt.Fprintf(writer, "403: Forbidden\n")
}
