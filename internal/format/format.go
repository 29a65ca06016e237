// Package format renders account figures for a fixed locale, independent of
// the locale the process runs under.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Locale struct {
	tag    language.Tag
	symbol string
}

var (
	// Pound renders OANDA account figures.
	Pound = NewLocale(language.BritishEnglish, "£")
	// Dollar renders QuantConnect equity.
	Dollar = NewLocale(language.AmericanEnglish, "$")
)

func NewLocale(tag language.Tag, symbol string) Locale {
	return Locale{tag: tag, symbol: symbol}
}

// Currency formats v with two decimals, digit grouping and the sign ahead of
// the symbol, e.g. -£1,204.50.
func (l Locale) Currency(v float64) string {
	cents := math.Round(v * 100)
	sign := ""
	if cents < 0 {
		sign = "-"
	}
	return sign + l.symbol + l.printer().Sprintf("%.2f", math.Abs(cents)/100)
}

// Percent formats a ratio (0.42) as a percentage (42.00%).
func (l Locale) Percent(ratio float64) string {
	basis := math.Round(ratio * 10000)
	sign := ""
	if basis < 0 {
		sign = "-"
	}
	return sign + l.printer().Sprintf("%.2f", math.Abs(basis)/100) + "%"
}

// Integer formats n with digit grouping.
func (l Locale) Integer(n int64) string {
	return l.printer().Sprintf("%d", n)
}

func (l Locale) printer() *message.Printer {
	return message.NewPrinter(l.tag)
}
