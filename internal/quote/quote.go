// Package quote looks up current share prices for ticker symbols.
package quote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/dense-analysis/tradewarp/internal/model"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a quote source can't resolve a symbol.
var ErrNotFound = errors.New("symbol not found")

// Source resolves a ticker symbol to a current quote.
type Source interface {
	Lookup(ctx context.Context, symbol string) (model.Quote, error)
}

// NormalizeSymbol trims and capitalizes a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

var DefaultURL = "https://www.alphavantage.co/query?function=GLOBAL_QUOTE&symbol={symbol}&apikey={apikey}"
var DefaultSymbolPath = `$["Global Quote"]["01. symbol"]`
var DefaultPricePath = `$["Global Quote"]["05. price"]`

// HTTPSource reads quotes from a JSON HTTP API.
//
// URL may contain {symbol} and {apikey} placeholders. The paths are JSONPath
// expressions into the response body. An empty NamePath uses the symbol as
// the name, since some APIs don't report one.
type HTTPSource struct {
	URL        string
	APIKey     string
	SymbolPath string
	NamePath   string
	PricePath  string
	Client     *http.Client
}

// NewHTTPSource creates a source for Alpha Vantage style GLOBAL_QUOTE responses.
func NewHTTPSource(apiKey string) *HTTPSource {
	return &HTTPSource{
		URL:        DefaultURL,
		APIKey:     apiKey,
		SymbolPath: DefaultSymbolPath,
		PricePath:  DefaultPricePath,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (source *HTTPSource) requestURL(symbol string) string {
	replacer := strings.NewReplacer(
		"{symbol}", url.QueryEscape(symbol),
		"{apikey}", url.QueryEscape(source.APIKey),
	)

	return replacer.Replace(source.URL)
}

func (source *HTTPSource) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	symbol = NormalizeSymbol(symbol)

	if symbol == "" {
		return model.Quote{}, ErrNotFound
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, source.requestURL(symbol), nil)

	if err != nil {
		return model.Quote{}, err
	}

	client := source.Client

	if client == nil {
		client = http.DefaultClient
	}

	response, err := client.Do(request)

	if err != nil {
		return model.Quote{}, err
	}

	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		return model.Quote{}, ErrNotFound
	}

	if response.StatusCode != http.StatusOK {
		return model.Quote{}, fmt.Errorf("quote api returned %s for %s", response.Status, symbol)
	}

	content, err := io.ReadAll(response.Body)

	if err != nil {
		return model.Quote{}, err
	}

	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()
	var payload any

	if err := decoder.Decode(&payload); err != nil {
		return model.Quote{}, fmt.Errorf("quote api returned unexpected response: %s", string(content))
	}

	return source.readQuote(payload, symbol)
}

func (source *HTTPSource) readQuote(payload any, symbol string) (model.Quote, error) {
	quote := model.Quote{Symbol: symbol, Name: symbol, Time: time.Now()}

	priceValue, err := jsonpath.Get(source.PricePath, payload)

	if err != nil {
		return model.Quote{}, ErrNotFound
	}

	price, ok := toDecimal(priceValue)

	if !ok || !price.IsPositive() {
		return model.Quote{}, ErrNotFound
	}

	quote.Price = price

	if source.SymbolPath != "" {
		if value, err := jsonpath.Get(source.SymbolPath, payload); err == nil {
			if text, ok := value.(string); ok && text != "" {
				quote.Symbol = NormalizeSymbol(text)
			}
		}
	}

	if source.NamePath != "" {
		if value, err := jsonpath.Get(source.NamePath, payload); err == nil {
			if text, ok := value.(string); ok && text != "" {
				quote.Name = text
			}
		}
	}

	return quote, nil
}

func toDecimal(value any) (decimal.Decimal, bool) {
	// jsonpath wraps single results in a list for some expressions.
	if list, ok := value.([]any); ok && len(list) > 0 {
		value = list[0]
	}

	switch v := value.(type) {
	case json.Number:
		price, err := decimal.NewFromString(v.String())

		return price, err == nil
	case string:
		price, err := decimal.NewFromString(strings.TrimSpace(v))

		return price, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	default:
		return decimal.Zero, false
	}
}

// Static is a fixed set of quotes keyed by symbol.
type Static map[string]model.Quote

func (static Static) Lookup(_ context.Context, symbol string) (model.Quote, error) {
	if quote, ok := static[NormalizeSymbol(symbol)]; ok {
		return quote, nil
	}

	return model.Quote{}, ErrNotFound
}

// Recorder stores quotes as they are observed.
type Recorder interface {
	RecordQuote(ctx context.Context, quote model.Quote) error
}

// Recording is a Source which passes every successful lookup to a Recorder.
type Recording struct {
	source   Source
	recorder Recorder
}

func NewRecording(source Source, recorder Recorder) *Recording {
	return &Recording{source, recorder}
}

func (recording *Recording) Lookup(ctx context.Context, symbol string) (model.Quote, error) {
	quote, err := recording.source.Lookup(ctx, symbol)

	if err != nil {
		return quote, err
	}

	if err := recording.recorder.RecordQuote(ctx, quote); err != nil {
		log.Printf("quote archive error for %s: %s\n", quote.Symbol, err)
	}

	return quote, nil
}
