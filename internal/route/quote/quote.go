// Package quote defines routes for looking up share prices
package quote

import (
	"net/http"
	"strings"

	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/dense-analysis/tradewarp/internal/route/util"
	"github.com/dense-analysis/tradewarp/internal/template"
	"github.com/gorilla/mux"
)

// historyLimit is the number of archived prices shown for a symbol.
const historyLimit = 50

type QuotePageData struct {
	User model.User
}

type QuotedPageData struct {
	User           model.User
	Quote          model.Quote
	ArchiveEnabled bool
}

type QuoteHistoryPageData struct {
	User      model.User
	Symbol    string
	QuoteList []model.Quote
}

func HandleViewQuoteForm(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	data := QuotePageData{}

	if !util.RequireUser(services.Conn, writer, request, &data.User) {
		return
	}

	template.Render(template.Quote, writer, data)
}

// HandleQuote shows the current price for a symbol.
func HandleQuote(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	data := QuotedPageData{ArchiveEnabled: services.Archive != nil}

	if !util.RequireUser(services.Conn, writer, request, &data.User) {
		return
	}

	request.ParseForm()

	var err error
	data.Quote, err = services.Trade.Lookup(request.Context(), request.Form.Get("symbol"))

	if err != nil {
		util.RespondTradeError(writer, &data.User, err)

		return
	}

	template.Render(template.Quoted, writer, data)
}

// HandleQuoteHistory lists the latest archived prices for a symbol.
func HandleQuoteHistory(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	data := QuoteHistoryPageData{}

	if !util.RequireUser(services.Conn, writer, request, &data.User) {
		return
	}

	if services.Archive == nil {
		util.RespondNotFound(writer)

		return
	}

	data.Symbol = strings.ToUpper(mux.Vars(request)["symbol"])

	var err error
	data.QuoteList, err = services.Archive.Recent(request.Context(), data.Symbol, historyLimit)

	if err != nil {
		util.RespondInternalServerError(writer, err)

		return
	}

	template.Render(template.QuoteHistory, writer, data)
}
