package yield

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"RendaBot/internal/model"
)

var (
	ipcaSpread = regexp.MustCompile(`IPCA\s*\+?\s*([\d,.]+)`)
	cdiSpread  = regexp.MustCompile(`CDI\s*\+\s*([\d,.]+)`)
	percentOf  = regexp.MustCompile(`([\d,.]+)\s*%`)
)

// Comparable parses a displayed rate into the single number used to compare
// offers of the same class:
//   - ipca: the spread, "IPCA + 6,2%" → 6.2
//   - cdi: percent of CDI, "110% do CDI" → 110; "CDI + 2%" → (cdi+2)/cdi*100
//   - fixed: the annual rate, "12,5%" → 12.5
//
// reference is the current CDI rate in percent a year.
func Comparable(class model.IndexClass, text string, reference float64) (float64, bool) {
	t := strings.ToUpper(text)
	switch class {
	case model.ClassIPCA:
		return match(ipcaSpread, t)
	case model.ClassCDI:
		if m := cdiSpread.FindStringSubmatch(t); m != nil {
			spread, ok := number(m[1])
			if !ok || reference <= 0 {
				return 0, false
			}
			return (reference + spread) / reference * 100, true
		}
		return match(percentOf, t)
	default:
		return match(percentOf, t)
	}
}

// FormatAverage renders a class average the way the class is quoted.
func FormatAverage(class model.IndexClass, mean float64) string {
	switch class {
	case model.ClassIPCA:
		return fmt.Sprintf("IPCA + %.2f%%", mean)
	case model.ClassCDI:
		return fmt.Sprintf("%.2f%% do CDI", mean)
	default:
		return fmt.Sprintf("%.2f%%", mean)
	}
}

func match(re *regexp.Regexp, t string) (float64, bool) {
	m := re.FindStringSubmatch(t)
	if m == nil {
		return 0, false
	}
	return number(m[1])
}

func number(s string) (float64, bool) {
	s = strings.Trim(s, ".,")
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
