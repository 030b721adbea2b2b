package currency

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"salesboard/config"
)

// digits per currency code when printing; unknown codes get 2.
var digits = map[string]int{
	"EUR":  2,
	"USD":  2,
	"FCFA": 0,
	"XOF":  0,
	"XAF":  0,
}

var symbols = map[string]string{
	"EUR": "€",
	"USD": "$",
}

// Converter turns base-currency amounts into the local currency and prints
// both. The rate is always configuration, never a constant.
type Converter struct {
	rate    decimal.Decimal
	base    string
	local   string
	printer *message.Printer
}

func NewConverter(rate decimal.Decimal, base, local, locale string) (*Converter, error) {
	if !rate.IsPositive() {
		return nil, fmt.Errorf("currency rate must be positive, got %s", rate)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.French
	}
	return &Converter{
		rate:    rate,
		base:    strings.ToUpper(base),
		local:   strings.ToUpper(local),
		printer: message.NewPrinter(tag),
	}, nil
}

// FromConfig builds the converter for the loaded configuration.
func FromConfig(cfg config.Config) (*Converter, error) {
	return NewConverter(decimal.NewFromFloat(cfg.CurrencyRate), cfg.BaseCurrency, cfg.LocalCurrency, cfg.Locale)
}

func (c *Converter) Rate() decimal.Decimal { return c.rate }
func (c *Converter) Base() string          { return c.base }
func (c *Converter) Local() string         { return c.local }

// ToLocal converts and rounds to the local currency's printed precision.
func (c *Converter) ToLocal(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(c.rate).Round(int32(places(c.local)))
}

// Number prints d with locale grouping and a fixed number of decimals.
func (c *Converter) Number(d decimal.Decimal, scale int) string {
	return c.printer.Sprint(number.Decimal(d.Round(int32(scale)).InexactFloat64(), number.Scale(scale)))
}

// FormatBase prints an amount already in the base currency.
func (c *Converter) FormatBase(amount decimal.Decimal) string {
	return c.format(amount, c.base)
}

// FormatLocal converts amount from the base currency and prints it.
func (c *Converter) FormatLocal(amount decimal.Decimal) string {
	return c.format(c.ToLocal(amount), c.local)
}

// Percent prints a share already expressed in percent.
func (c *Converter) Percent(share decimal.Decimal) string {
	return c.Number(share, 2) + " %"
}

func (c *Converter) format(amount decimal.Decimal, code string) string {
	unit := code
	if s, ok := symbols[code]; ok {
		unit = s
	}
	return c.Number(amount, places(code)) + " " + unit
}

func places(code string) int {
	if d, ok := digits[code]; ok {
		return d
	}
	return 2
}
