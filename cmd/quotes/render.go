package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"quotefeed/internal/provider"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	upStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	downStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

const rowFormat = "%-8s %12s %10s %9s  %s"

// renderTable writes one row per quote. Padding is applied before styling so
// escape codes do not break column alignment.
func renderTable(w io.Writer, quotes []provider.Quote) error {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf(rowFormat, "SYMBOL", "PRICE", "CHANGE", "CHANGE%", "UPDATED")))
	b.WriteByte('\n')
	for _, q := range quotes {
		style := upStyle
		if q.Change < 0 {
			style = downStyle
		}
		change := fmt.Sprintf("%10s", signed(q.Change))
		pct := fmt.Sprintf("%9s", signed(q.ChangePercent)+"%")
		fmt.Fprintf(&b, "%-8s %12s %s %s  %s\n",
			q.Symbol,
			fixed(q.Price),
			style.Render(change),
			style.Render(pct),
			q.LastUpdated,
		)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// fixed formats v with two decimals. decimal panics on NaN and infinities,
// which are printed as n/a instead.
func fixed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// signed formats v with two decimals and an explicit sign.
func signed(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}
