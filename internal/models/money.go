package models

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var nairaPrinter = message.NewPrinter(language.English)

// FormatNaira renders an amount the way the storefront shows prices: "₦12,500"
// for whole amounts and "₦12,500.50" otherwise.
func FormatNaira(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return nairaPrinter.Sprintf("₦%d", d.IntPart())
	}
	f, _ := d.Round(2).Float64()
	return nairaPrinter.Sprintf("₦%.2f", f)
}
