package trade

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dense-analysis/tradewarp/internal/account"
	"github.com/dense-analysis/tradewarp/internal/database"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/dense-analysis/tradewarp/internal/quote"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func dec(text string) decimal.Decimal {
	return decimal.RequireFromString(text)
}

type fixture struct {
	conn    *database.Conn
	quotes  quote.Static
	service *Service
	user    model.User
}

func setup(t *testing.T) *fixture {
	t.Helper()

	account.PasswordCost = bcrypt.MinCost

	conn, err := database.OpenInMemory()

	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}

	t.Cleanup(func() { conn.Close() })

	f := &fixture{
		conn: conn,
		quotes: quote.Static{
			"ABC": {Symbol: "ABC", Name: "ABC Corp", Price: dec("50.00")},
			"XYZ": {Symbol: "XYZ", Name: "XYZ Inc", Price: dec("12.34")},
		},
	}
	f.service = NewService(conn, f.quotes)

	clock := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	var clockLock sync.Mutex
	f.service.now = func() time.Time {
		clockLock.Lock()
		defer clockLock.Unlock()

		clock = clock.Add(time.Second)

		return clock
	}

	if err := account.Create(conn, "alice", "secret", dec("10000.00"), &f.user); err != nil {
		t.Fatalf("account.Create() error = %v", err)
	}

	return f
}

func (f *fixture) setPrice(symbol string, price string) {
	found := f.quotes[symbol]
	found.Price = dec(price)
	f.quotes[symbol] = found
}

func (f *fixture) cash(t *testing.T) decimal.Decimal {
	t.Helper()

	cash, err := f.service.Cash(f.user.ID)

	if err != nil {
		t.Fatalf("Cash() error = %v", err)
	}

	return cash
}

func (f *fixture) shares(t *testing.T, symbol string) int64 {
	t.Helper()

	shares, err := f.service.HoldingsFor(f.user.ID, symbol)

	if err != nil {
		t.Fatalf("HoldingsFor() error = %v", err)
	}

	return shares
}

func assertKind(t *testing.T, err error, want *Error) {
	t.Helper()

	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %s", err, want.Kind)
	}
}

func TestParseQuantity(t *testing.T) {
	valid := map[string]int64{"1": 1, " 10 ": 10, "250": 250}

	for text, want := range valid {
		got, err := ParseQuantity(text)

		if err != nil || got != want {
			t.Errorf("ParseQuantity(%q) = %d, %v, want %d", text, got, err, want)
		}
	}

	for _, text := range []string{"", "0", "-3", "1.5", "abc", "1e3"} {
		if _, err := ParseQuantity(text); !errors.Is(err, ErrInvalidQuantity) {
			t.Errorf("ParseQuantity(%q) error = %v, want InvalidQuantity", text, err)
		}
	}
}

func TestParseAmount(t *testing.T) {
	valid := map[string]string{"500": "500", "0.01": "0.01", " 12.50 ": "12.5"}

	for text, want := range valid {
		got, err := ParseAmount(text)

		if err != nil || !got.Equal(dec(want)) {
			t.Errorf("ParseAmount(%q) = %s, %v, want %s", text, got, err, want)
		}
	}

	for _, text := range []string{"", "0", "-5", "0.001", "ten"} {
		if _, err := ParseAmount(text); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("ParseAmount(%q) error = %v, want InvalidAmount", text, err)
		}
	}
}

func TestBuyThenSell(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	receipt, err := f.service.Buy(ctx, f.user.ID, "abc", 10)

	if err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if !receipt.Cash.Equal(dec("9500")) {
		t.Errorf("Buy() cash = %s, want 9500", receipt.Cash)
	}

	if receipt.Transaction.Symbol != "ABC" || receipt.Transaction.Quantity != 10 {
		t.Errorf("Buy() transaction = %+v", receipt.Transaction)
	}

	if receipt.Name != "ABC Corp" {
		t.Errorf("Buy() name = %q, want ABC Corp", receipt.Name)
	}

	if got := f.cash(t); !got.Equal(dec("9500")) {
		t.Errorf("cash after buy = %s, want 9500", got)
	}

	if got := f.shares(t, "ABC"); got != 10 {
		t.Errorf("shares after buy = %d, want 10", got)
	}

	f.setPrice("ABC", "60.00")

	receipt, err = f.service.Sell(ctx, f.user.ID, "ABC", 10)

	if err != nil {
		t.Fatalf("Sell() error = %v", err)
	}

	if receipt.Transaction.Quantity != -10 || !receipt.Transaction.Price.Equal(dec("60")) {
		t.Errorf("Sell() transaction = %+v", receipt.Transaction)
	}

	if got := f.cash(t); !got.Equal(dec("10100")) {
		t.Errorf("cash after sell = %s, want 10100", got)
	}

	holdingList, err := f.service.HoldingList(f.user.ID)

	if err != nil {
		t.Fatalf("HoldingList() error = %v", err)
	}

	if len(holdingList) != 0 {
		t.Errorf("HoldingList() = %+v, want no positions", holdingList)
	}

	history, err := f.service.HistoryFor(f.user.ID)

	if err != nil {
		t.Fatalf("HistoryFor() error = %v", err)
	}

	if len(history) != 2 || history[0].Quantity != -10 || history[1].Quantity != 10 {
		t.Errorf("HistoryFor() = %+v, want the sell then the buy", history)
	}
}

func TestBuyAndSellWithSameQuoteRestoresCash(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.service.Buy(ctx, f.user.ID, "XYZ", 7); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if _, err := f.service.Sell(ctx, f.user.ID, "XYZ", 7); err != nil {
		t.Fatalf("Sell() error = %v", err)
	}

	if got := f.cash(t); !got.Equal(dec("10000")) {
		t.Errorf("cash = %s, want 10000", got)
	}

	if got := f.shares(t, "XYZ"); got != 0 {
		t.Errorf("shares = %d, want 0", got)
	}
}

func TestBuyRejectsInvalidQuantity(t *testing.T) {
	f := setup(t)

	for _, quantity := range []int64{0, -1} {
		_, err := f.service.Buy(context.Background(), f.user.ID, "ABC", quantity)
		assertKind(t, err, ErrInvalidQuantity)
	}

	if got := f.cash(t); !got.Equal(dec("10000")) {
		t.Errorf("cash = %s, want 10000", got)
	}
}

func TestQuantityIsCheckedBeforeSymbol(t *testing.T) {
	f := setup(t)

	_, err := f.service.Buy(context.Background(), f.user.ID, "NOPE", 0)
	assertKind(t, err, ErrInvalidQuantity)

	_, err = f.service.Sell(context.Background(), f.user.ID, "NOPE", -2)
	assertKind(t, err, ErrInvalidQuantity)
}

func TestBuyRejectsUnknownSymbol(t *testing.T) {
	f := setup(t)

	for _, symbol := range []string{"NOPE", "", "  ", "CASH", "cash"} {
		_, err := f.service.Buy(context.Background(), f.user.ID, symbol, 1)
		assertKind(t, err, ErrUnknownSymbol)
	}

	history, err := f.service.HistoryFor(f.user.ID)

	if err != nil {
		t.Fatalf("HistoryFor() error = %v", err)
	}

	if len(history) != 0 {
		t.Errorf("HistoryFor() = %+v, want nothing recorded", history)
	}
}

func TestBuyRejectsInsufficientFunds(t *testing.T) {
	f := setup(t)

	// 201 * 50 = 10050
	_, err := f.service.Buy(context.Background(), f.user.ID, "ABC", 201)
	assertKind(t, err, ErrInsufficientFunds)

	if got := f.cash(t); !got.Equal(dec("10000")) {
		t.Errorf("cash = %s, want 10000", got)
	}

	if got := f.shares(t, "ABC"); got != 0 {
		t.Errorf("shares = %d, want 0", got)
	}
}

func TestBuyCanSpendEveryCent(t *testing.T) {
	f := setup(t)

	receipt, err := f.service.Buy(context.Background(), f.user.ID, "ABC", 200)

	if err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if !receipt.Cash.IsZero() {
		t.Errorf("cash = %s, want 0", receipt.Cash)
	}
}

func TestSellRejectsInsufficientShares(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.service.Buy(ctx, f.user.ID, "ABC", 5); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	_, err := f.service.Sell(ctx, f.user.ID, "ABC", 6)
	assertKind(t, err, ErrInsufficientShares)

	_, err = f.service.Sell(ctx, f.user.ID, "XYZ", 1)
	assertKind(t, err, ErrInsufficientShares)

	if got := f.shares(t, "ABC"); got != 5 {
		t.Errorf("shares = %d, want 5", got)
	}

	if got := f.cash(t); !got.Equal(dec("9750")) {
		t.Errorf("cash = %s, want 9750", got)
	}
}

func TestSellChecksSymbolBeforeShares(t *testing.T) {
	f := setup(t)

	_, err := f.service.Sell(context.Background(), f.user.ID, "NOPE", 1)
	assertKind(t, err, ErrUnknownSymbol)

	_, err = f.service.Sell(context.Background(), f.user.ID, "CASH", 1)
	assertKind(t, err, ErrUnknownSymbol)
}

func TestDeposit(t *testing.T) {
	f := setup(t)

	receipt, err := f.service.Deposit(context.Background(), f.user.ID, dec("500"))

	if err != nil {
		t.Fatalf("Deposit() error = %v", err)
	}

	if !receipt.Cash.Equal(dec("10500")) {
		t.Errorf("Deposit() cash = %s, want 10500", receipt.Cash)
	}

	history, err := f.service.HistoryFor(f.user.ID)

	if err != nil {
		t.Fatalf("HistoryFor() error = %v", err)
	}

	if len(history) != 1 {
		t.Fatalf("HistoryFor() = %+v, want one row", history)
	}

	row := history[0]

	if row.Symbol != model.CashSymbol || row.Quantity != 0 || !row.Price.Equal(dec("500")) {
		t.Errorf("deposit row = %+v", row)
	}

	if got := f.shares(t, model.CashSymbol); got != 0 {
		t.Errorf("CASH shares = %d, want 0", got)
	}
}

func TestDepositRejectsInvalidAmount(t *testing.T) {
	f := setup(t)

	for _, amount := range []string{"0", "-10", "0.005"} {
		_, err := f.service.Deposit(context.Background(), f.user.ID, dec(amount))
		assertKind(t, err, ErrInvalidAmount)
	}

	if got := f.cash(t); !got.Equal(dec("10000")) {
		t.Errorf("cash = %s, want 10000", got)
	}
}

func TestCashMatchesLedger(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	steps := []func() error{
		func() error { _, err := f.service.Buy(ctx, f.user.ID, "ABC", 3); return err },
		func() error { _, err := f.service.Deposit(ctx, f.user.ID, dec("250.75")); return err },
		func() error { f.setPrice("ABC", "55.55"); return nil },
		func() error { _, err := f.service.Buy(ctx, f.user.ID, "XYZ", 11); return err },
		func() error { _, err := f.service.Sell(ctx, f.user.ID, "ABC", 2); return err },
		func() error { _, err := f.service.Sell(ctx, f.user.ID, "ABC", 9); return err },
	}

	for i, step := range steps {
		if err := step(); err != nil && !errors.Is(err, ErrInsufficientShares) {
			t.Fatalf("step %d error = %v", i, err)
		}
	}

	history, err := f.service.HistoryFor(f.user.ID)

	if err != nil {
		t.Fatalf("HistoryFor() error = %v", err)
	}

	want := dec("10000")

	for _, row := range history {
		want = want.Add(row.Total())
	}

	if got := f.cash(t); !got.Equal(want) {
		t.Errorf("cash = %s, want initial cash plus ledger totals %s", got, want)
	}

	if len(history) != 4 {
		t.Errorf("len(history) = %d, want 4", len(history))
	}
}

func TestConcurrentBuysCannotOverspend(t *testing.T) {
	f := setup(t)
	f.setPrice("ABC", "600.00")

	var wait sync.WaitGroup
	errs := make([]error, 2)

	for i := range errs {
		wait.Add(1)

		go func(i int) {
			defer wait.Done()

			_, errs[i] = f.service.Buy(context.Background(), f.user.ID, "ABC", 10)
		}(i)
	}

	wait.Wait()

	failed := 0

	for _, err := range errs {
		if err != nil {
			assertKind(t, err, ErrInsufficientFunds)
			failed++
		}
	}

	if failed != 1 {
		t.Fatalf("%d buys failed, want exactly 1", failed)
	}

	if got := f.cash(t); !got.Equal(dec("4000")) {
		t.Errorf("cash = %s, want 4000", got)
	}

	if got := f.shares(t, "ABC"); got != 10 {
		t.Errorf("shares = %d, want 10", got)
	}
}

func TestPortfolioValue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.service.Buy(ctx, f.user.ID, "ABC", 10); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if _, err := f.service.Buy(ctx, f.user.ID, "XYZ", 2); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	f.setPrice("ABC", "60.00")

	portfolio, err := f.service.PortfolioValue(ctx, f.user.ID)

	if err != nil {
		t.Fatalf("PortfolioValue() error = %v", err)
	}

	if len(portfolio.Positions) != 2 {
		t.Fatalf("Positions = %+v, want 2", portfolio.Positions)
	}

	abc := portfolio.Positions[0]

	if abc.Symbol != "ABC" || abc.Shares != 10 || abc.Name != "ABC Corp" || !abc.Value.Equal(dec("600")) {
		t.Errorf("Positions[0] = %+v", abc)
	}

	// 10000 - 500 - 24.68
	wantCash := dec("9475.32")

	if !portfolio.Cash.Equal(wantCash) {
		t.Errorf("Cash = %s, want %s", portfolio.Cash, wantCash)
	}

	if !portfolio.HoldingsValue.Equal(dec("624.68")) {
		t.Errorf("HoldingsValue = %s, want 624.68", portfolio.HoldingsValue)
	}

	if !portfolio.Total.Equal(dec("10100")) {
		t.Errorf("Total = %s, want 10100", portfolio.Total)
	}
}

func TestPortfolioValueWithoutHoldings(t *testing.T) {
	f := setup(t)

	portfolio, err := f.service.PortfolioValue(context.Background(), f.user.ID)

	if err != nil {
		t.Fatalf("PortfolioValue() error = %v", err)
	}

	if len(portfolio.Positions) != 0 || !portfolio.Total.Equal(dec("10000")) {
		t.Errorf("PortfolioValue() = %+v", portfolio)
	}
}

func TestPortfolioValueFailsWhenQuoteIsMissing(t *testing.T) {
	f := setup(t)

	if _, err := f.service.Buy(context.Background(), f.user.ID, "ABC", 1); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	delete(f.quotes, "ABC")

	_, err := f.service.PortfolioValue(context.Background(), f.user.ID)
	assertKind(t, err, ErrUnknownSymbol)
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := unknownSymbol("FOO", quote.ErrNotFound)

	if !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("errors.Is(%v, ErrUnknownSymbol) = false", err)
	}

	if errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("errors.Is(%v, ErrInsufficientFunds) = true", err)
	}

	if !errors.Is(err, quote.ErrNotFound) {
		t.Errorf("errors.Is(%v, quote.ErrNotFound) = false", err)
	}
}

func TestSellThenBuyRestoresPosition(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.service.Buy(ctx, f.user.ID, "ABC", 10); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	f.setPrice("ABC", "61.37")
	cashBefore := f.cash(t)

	if _, err := f.service.Sell(ctx, f.user.ID, "ABC", 4); err != nil {
		t.Fatalf("Sell() error = %v", err)
	}

	if got := f.shares(t, "ABC"); got != 6 {
		t.Errorf("shares after sell = %d, want 6", got)
	}

	if _, err := f.service.Buy(ctx, f.user.ID, "ABC", 4); err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if got := f.shares(t, "ABC"); got != 10 {
		t.Errorf("shares = %d, want 10", got)
	}

	if got := f.cash(t); !got.Equal(cashBefore) {
		t.Errorf("cash = %s, want %s", got, cashBefore)
	}
}

func TestTradesExecuteAtStoredPricePrecision(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.setPrice("ABC", "10.123456")

	receipt, err := f.service.Buy(ctx, f.user.ID, "ABC", 3)

	if err != nil {
		t.Fatalf("Buy() error = %v", err)
	}

	if !receipt.Transaction.Price.Equal(dec("10.1235")) {
		t.Errorf("price = %s, want 10.1235", receipt.Transaction.Price)
	}

	// 10000 - 3 * 10.1235
	if !receipt.Cash.Equal(dec("9969.6295")) {
		t.Errorf("cash = %s, want 9969.6295", receipt.Cash)
	}

	history, err := f.service.HistoryFor(f.user.ID)

	if err != nil {
		t.Fatalf("HistoryFor() error = %v", err)
	}

	if len(history) != 1 || !history[0].Price.Equal(receipt.Transaction.Price) {
		t.Fatalf("HistoryFor() = %+v, want the executed price", history)
	}

	if got := dec("10000").Add(history[0].Total()); !got.Equal(f.cash(t)) {
		t.Errorf("initial cash plus ledger = %s, want %s", got, f.cash(t))
	}

	found, err := f.service.Lookup(ctx, "ABC")

	if err != nil || !found.Price.Equal(dec("10.1235")) {
		t.Errorf("Lookup() = %+v, %v", found, err)
	}
}

func TestPricesRoundingToZeroAreUnknown(t *testing.T) {
	f := setup(t)
	f.setPrice("ABC", "0.00004")

	_, err := f.service.Buy(context.Background(), f.user.ID, "ABC", 1)
	assertKind(t, err, ErrUnknownSymbol)
}
