// Package portfolio defines the portfolio and transaction history pages
package portfolio

import (
	"net/http"

	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/dense-analysis/tradewarp/internal/route/util"
	"github.com/dense-analysis/tradewarp/internal/template"
	"github.com/dense-analysis/tradewarp/internal/trade"
)

type PortfolioPageData struct {
	User      model.User
	Portfolio trade.Portfolio
}

// HandlePortfolio shows the shares and cash a user has, valued at current prices.
func HandlePortfolio(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	data := PortfolioPageData{}

	if !util.RequireUser(services.Conn, writer, request, &data.User) {
		return
	}

	var err error
	data.Portfolio, err = services.Trade.PortfolioValue(request.Context(), data.User.ID)

	if err != nil {
		util.RespondTradeError(writer, &data.User, err)

		return
	}

	template.Render(template.Index, writer, data)
}

type HistoryPageData struct {
	User    model.User
	History []model.Transaction
}

// HandleHistory lists every transaction for a user, most recent first.
func HandleHistory(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	data := HistoryPageData{}

	if !util.RequireUser(services.Conn, writer, request, &data.User) {
		return
	}

	var err error
	data.History, err = services.Trade.HistoryFor(data.User.ID)

	if err != nil {
		util.RespondInternalServerError(writer, err)

		return
	}

	template.Render(template.History, writer, data)
}
