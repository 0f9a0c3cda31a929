package billing

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// MoneyFormatter renders amounts rounded to two decimals with the locale's
// grouping and the currency symbol.
type MoneyFormatter struct {
	printer *message.Printer
	symbol  string
}

// NewMoneyFormatter parses a BCP 47 locale and an ISO 4217 currency code.
func NewMoneyFormatter(locale, code string) (*MoneyFormatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", code, err)
	}
	p := message.NewPrinter(tag)
	return &MoneyFormatter{
		printer: p,
		symbol:  p.Sprint(currency.Symbol(unit)),
	}, nil
}

// Format returns e.g. "€1,234.50". Rounding happens here and nowhere else.
func (f *MoneyFormatter) Format(amount float64) string {
	v := Round2(amount)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + f.symbol + f.printer.Sprint(number.Decimal(v, number.Scale(2)))
}

// Plain formats the rounded amount without the currency symbol.
func (f *MoneyFormatter) Plain(amount float64) string {
	return f.printer.Sprint(number.Decimal(Round2(amount), number.Scale(2)))
}
