// Package yield computes tax-equivalent rates and per-class averages.
package yield

import (
	"math"
	"time"

	"RendaBot/internal/model"
)

// Bracket returns the regressive income-tax withholding rate for a holding period.
// Zero and negative day counts fall into the shortest bracket.
func Bracket(days int) float64 {
	switch {
	case days <= 180:
		return 0.225
	case days <= 360:
		return 0.20
	case days <= 720:
		return 0.175
	default:
		return 0.15
	}
}

// GrossUp converts an exempt net rate into the taxed-equivalent rate, rounded to 2 decimals.
func GrossUp(rate float64, days int) float64 {
	return Round2(rate / (1 - Bracket(days)))
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// DaysToMaturity is the ceiling of the days between now and the ISO maturity date.
// An unparseable date counts as 0 days.
func DaysToMaturity(maturity string, now time.Time) int {
	venc, err := time.ParseInLocation("2006-01-02", maturity, now.Location())
	if err != nil {
		return 0
	}
	return int(math.Ceil(venc.Sub(now).Hours() / 24))
}

// Normalizer attaches effective rates to offers.
type Normalizer struct {
	// Reference is the current floating reference (CDI) rate, used by NormalizeFloating.
	Reference float64
	// NormalizeFloating grosses up CDI offers from their percent-of-CDI value
	// instead of the first number in the rate text.
	NormalizeFloating bool
	Now               func() time.Time
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// Effective computes the effective offer for one scraped offer.
func (n *Normalizer) Effective(o model.AssetOffer) model.EffectiveOffer {
	days := DaysToMaturity(o.Maturity, n.now())
	if n.NormalizeFloating && o.Class == model.ClassCDI {
		// the nominal rate moves to the percent-of-CDI scale; RateText keeps the original
		if v, ok := Comparable(o.Class, o.RateText, n.Reference); ok {
			o.NominalRate = v
		}
	}
	eff := o.NominalRate
	if o.TaxExempt {
		// rounding must never push the grossed-up rate below its base
		eff = math.Max(GrossUp(o.NominalRate, days), o.NominalRate)
	}
	return model.EffectiveOffer{AssetOffer: o, EffectiveRate: eff, DaysToMaturity: days}
}

// All normalizes every offer, preserving order.
func (n *Normalizer) All(offers []model.AssetOffer) []model.EffectiveOffer {
	out := make([]model.EffectiveOffer, len(offers))
	for i, o := range offers {
		out[i] = n.Effective(o)
	}
	return out
}
