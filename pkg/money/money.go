// Package money formats prices for display.
//
//	money.Format(1234.5) // "₹ 1,234.50"
package money

import (
	"math"
	"sync"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/shashiranjanraj/kisanbazaar/config"
)

var (
	once    sync.Once
	printer *message.Printer
	unit    currency.Unit
)

func setup() {
	printer = message.NewPrinter(language.MustParse("en-IN"))
	u, err := currency.ParseISO(config.PaymentCurrency())
	if err != nil {
		u = currency.INR
	}
	unit = u
}

// Format renders amount in the configured payment currency with its symbol
// and locale grouping.
func Format(amount float64) string {
	once.Do(setup)
	return printer.Sprint(currency.Symbol(unit.Amount(amount)))
}

// FormatIn renders amount in the ISO 4217 currency code. Unknown codes fall
// back to the configured currency.
func FormatIn(code string, amount float64) string {
	once.Do(setup)
	u, err := currency.ParseISO(code)
	if err != nil {
		u = unit
	}
	return printer.Sprint(currency.Symbol(u.Amount(amount)))
}

// MinorUnits converts a major-unit amount to the gateway's smallest unit
// (paise for INR), rounding half away from zero.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromMinorUnits is the inverse of MinorUnits.
func FromMinorUnits(minor float64) float64 {
	return minor / 100
}
