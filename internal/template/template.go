package template

import (
	"embed"
	"html/template"
	"io"
	"log"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

//go:embed templates
var templateFiles embed.FS

var Login *template.Template
var Register *template.Template
var Index *template.Template
var Quote *template.Template
var Quoted *template.Template
var QuoteHistory *template.Template
var Buy *template.Template
var Sell *template.Template
var Deposit *template.Template
var History *template.Template
var Apology *template.Template

var hundred = decimal.NewFromInt(100)

// USD formats an amount of dollars, such as "$1,234.56".
func USD(amount decimal.Decimal) string {
	cents := amount.Mul(hundred).Round(0).IntPart()

	return money.New(cents, money.USD).Display()
}

func parse(pages ...string) *template.Template {
	patterns := make([]string, 0, len(pages)+1)
	patterns = append(patterns, "templates/base.tmpl")

	for _, page := range pages {
		patterns = append(patterns, "templates/"+page)
	}

	return template.Must(
		template.New("page").
			Funcs(template.FuncMap{"usd": USD}).
			ParseFS(templateFiles, patterns...),
	)
}

func Init() {
	Login = parse("login.tmpl")
	Register = parse("register.tmpl")
	Index = parse("index.tmpl")
	Quote = parse("quote.tmpl")
	Quoted = parse("quoted.tmpl")
	QuoteHistory = parse("quote-history.tmpl")
	Buy = parse("buy.tmpl")
	Sell = parse("sell.tmpl")
	Deposit = parse("deposit.tmpl")
	History = parse("history.tmpl")
	Apology = parse("apology.tmpl")
}

func Render(tmpl *template.Template, writer io.Writer, data interface{}) {
	if err := tmpl.ExecuteTemplate(writer, "base", data); err != nil {
		log.Printf("template error: %+v\n", err)
	}
}
