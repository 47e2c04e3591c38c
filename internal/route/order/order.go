// Package order defines routes for buying and selling shares and depositing cash
package order

import (
	"net/http"

	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/dense-analysis/tradewarp/internal/route/util"
	"github.com/dense-analysis/tradewarp/internal/template"
	"github.com/dense-analysis/tradewarp/internal/trade"
	"github.com/shopspring/decimal"
)

type CashPageData struct {
	User model.User
	Cash decimal.Decimal
}

type SellPageData struct {
	User        model.User
	HoldingList []model.Holding
}

func HandleViewBuyForm(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	data := CashPageData{}

	if !util.RequireUser(services.Conn, writer, request, &data.User) {
		return
	}

	data.Cash = data.User.Cash
	template.Render(template.Buy, writer, data)
}

// HandleBuy buys shares at the price quoted when the form is submitted.
func HandleBuy(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	var user model.User

	if !util.RequireUser(services.Conn, writer, request, &user) {
		return
	}

	request.ParseForm()

	quantity, err := trade.ParseQuantity(request.Form.Get("shares"))

	if err != nil {
		util.RespondTradeError(writer, &user, err)

		return
	}

	if _, err := services.Trade.Buy(request.Context(), user.ID, request.Form.Get("symbol"), quantity); err != nil {
		util.RespondTradeError(writer, &user, err)

		return
	}

	http.Redirect(writer, request, "/", http.StatusFound)
}

func HandleViewSellForm(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	data := SellPageData{}

	if !util.RequireUser(services.Conn, writer, request, &data.User) {
		return
	}

	var err error
	data.HoldingList, err = services.Trade.HoldingList(data.User.ID)

	if err != nil {
		util.RespondInternalServerError(writer, err)

		return
	}

	template.Render(template.Sell, writer, data)
}

// HandleSell sells shares at the price quoted when the form is submitted.
func HandleSell(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	var user model.User

	if !util.RequireUser(services.Conn, writer, request, &user) {
		return
	}

	request.ParseForm()

	quantity, err := trade.ParseQuantity(request.Form.Get("shares"))

	if err != nil {
		util.RespondTradeError(writer, &user, err)

		return
	}

	if _, err := services.Trade.Sell(request.Context(), user.ID, request.Form.Get("symbol"), quantity); err != nil {
		util.RespondTradeError(writer, &user, err)

		return
	}

	http.Redirect(writer, request, "/", http.StatusFound)
}

func HandleViewDepositForm(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	data := CashPageData{}

	if !util.RequireUser(services.Conn, writer, request, &data.User) {
		return
	}

	data.Cash = data.User.Cash
	template.Render(template.Deposit, writer, data)
}

// HandleDeposit adds cash to the user's account.
func HandleDeposit(services *util.Services, writer http.ResponseWriter, request *http.Request) {
	var user model.User

	if !util.RequireUser(services.Conn, writer, request, &user) {
		return
	}

	request.ParseForm()

	amount, err := trade.ParseAmount(request.Form.Get("deposit"))

	if err != nil {
		util.RespondTradeError(writer, &user, err)

		return
	}

	if _, err := services.Trade.Deposit(request.Context(), user.ID, amount); err != nil {
		util.RespondTradeError(writer, &user, err)

		return
	}

	http.Redirect(writer, request, "/", http.StatusFound)
}
