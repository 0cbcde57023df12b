package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatSales renders a predicted sales figure, e.g. "1,234.50 units".
func FormatSales(v float64) string {
	return printer.Sprintf("%.2f units", v)
}

// FormatNumber renders v with grouping and two decimals.
func FormatNumber(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatCount renders an integer with grouping.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}
