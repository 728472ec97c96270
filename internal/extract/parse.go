package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"RendaBot/internal/model"
)

// DefaultMinInvestment is used when the minimum-investment cell can't be read.
const DefaultMinInvestment = 1000

var (
	firstNumber  = regexp.MustCompile(`([0-9]+[,.]?[0-9]*)`)
	moneyCleaner = strings.NewReplacer("R$", "", " ", "", "\u00a0", "", ".", "")
	exemptCodes  = []string{"LCA", "LCI", "LCD"}
)

// ClassifyRate derives the index class from the rate description.
func ClassifyRate(text string) model.IndexClass {
	up := strings.ToUpper(text)
	switch {
	case strings.Contains(up, "IPCA"):
		return model.ClassIPCA
	case strings.Contains(up, "CDI"):
		return model.ClassCDI
	default:
		return model.ClassFixed
	}
}

// FirstRate returns the first decimal number in the text, comma read as decimal separator.
func FirstRate(text string) (float64, error) {
	m := firstNumber.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w: no number in %q", model.ErrParseFailure, text)
	}
	v, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", model.ErrParseFailure, text, err)
	}
	return v, nil
}

// ParseMoney reads pt-BR currency text ("R$ 1.234,56").
func ParseMoney(text string) (decimal.Decimal, error) {
	s := strings.Replace(moneyCleaner.Replace(strings.TrimSpace(text)), ",", ".", 1)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: money %q", model.ErrParseFailure, text)
	}
	return d, nil
}

// MinInvestment reads the minimum-investment cell, falling back to DefaultMinInvestment.
func MinInvestment(text string) float64 {
	d, err := ParseMoney(text)
	if err != nil || !d.IsPositive() {
		return DefaultMinInvestment
	}
	return d.InexactFloat64()
}

// FormatMoney renders an amount as pt-BR currency, "R$ 1.234,56".
func FormatMoney(v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "R$ " + b.String() + "," + frac
	if neg {
		out = "-" + out
	}
	return out
}

// DateToISO converts "DD/MM/YYYY" to "YYYY-MM-DD". It returns "" for malformed input.
func DateToISO(text string) string {
	parts := strings.Split(strings.TrimSpace(text), "/")
	if len(parts) != 3 {
		return ""
	}
	day, month, year := parts[0], parts[1], parts[2]
	if !digits(day, 1, 2) || !digits(month, 1, 2) || !digits(year, 4, 4) {
		return ""
	}
	return year + "-" + pad2(month) + "-" + pad2(day)
}

// DateToBR converts "YYYY-MM-DD" back to "DD/MM/YYYY". It returns "" for malformed input.
func DateToBR(iso string) string {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 || !digits(parts[0], 4, 4) || !digits(parts[1], 2, 2) || !digits(parts[2], 2, 2) {
		return ""
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}

// IsTaxExempt reports whether the asset name marks an income-tax exempt instrument.
func IsTaxExempt(name string) bool {
	up := strings.ToUpper(name)
	for _, code := range exemptCodes {
		if strings.Contains(up, code) {
			return true
		}
	}
	return false
}

func digits(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
