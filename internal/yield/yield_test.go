package yield

import (
	"math"
	"testing"
	"time"

	"RendaBot/internal/model"
)

var now = time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return now }

func maturityIn(days int) string {
	return now.AddDate(0, 0, days).Format("2006-01-02")
}

func TestBracket_Boundaries(t *testing.T) {
	tests := []struct {
		days int
		want float64
	}{
		{-30, 0.225},
		{0, 0.225},
		{180, 0.225},
		{181, 0.20},
		{360, 0.20},
		{361, 0.175},
		{720, 0.175},
		{721, 0.15},
		{5000, 0.15},
	}
	for _, tt := range tests {
		if got := Bracket(tt.days); got != tt.want {
			t.Errorf("days %d: expected %.3f, got %.3f", tt.days, tt.want, got)
		}
	}
}

func TestBracket_ConstantWithinBucket(t *testing.T) {
	buckets := [][2]int{{-100, 180}, {181, 360}, {361, 720}, {721, 3000}}
	for _, b := range buckets {
		first := Bracket(b[0])
		for d := b[0]; d <= b[1]; d++ {
			if Bracket(d) != first {
				t.Fatalf("bracket changed inside bucket %v at day %d", b, d)
			}
		}
	}
}

func TestGrossUp_NeverBelowNominal(t *testing.T) {
	for _, days := range []int{-1, 0, 100, 200, 400, 800} {
		for r := 0.5; r < 20; r += 0.75 {
			if g := GrossUp(r, days); g < r {
				t.Errorf("gross-up %.2f below nominal %.2f at %d days", g, r, days)
			}
		}
	}
}

func TestEffective_ScenarioExempt(t *testing.T) {
	n := &Normalizer{Now: fixedNow}
	eff := n.Effective(model.AssetOffer{NominalRate: 12, TaxExempt: true, Maturity: maturityIn(200)})
	if eff.DaysToMaturity != 200 {
		t.Fatalf("expected 200 days, got %d", eff.DaysToMaturity)
	}
	if eff.EffectiveRate != 15.00 {
		t.Errorf("expected 15.00, got %.4f", eff.EffectiveRate)
	}
}

func TestEffective_ScenarioTaxed(t *testing.T) {
	n := &Normalizer{Now: fixedNow}
	for _, days := range []int{10, 200, 500, 1000} {
		eff := n.Effective(model.AssetOffer{NominalRate: 12, Maturity: maturityIn(days)})
		if eff.EffectiveRate != 12 {
			t.Errorf("days %d: expected 12.00, got %.4f", days, eff.EffectiveRate)
		}
	}
}

func TestEffective_MalformedMaturity(t *testing.T) {
	n := &Normalizer{Now: fixedNow}
	eff := n.Effective(model.AssetOffer{NominalRate: 10, TaxExempt: true})
	if eff.DaysToMaturity != 0 {
		t.Errorf("expected 0 days, got %d", eff.DaysToMaturity)
	}
	if eff.EffectiveRate != GrossUp(10, 0) {
		t.Errorf("expected shortest bracket, got %.2f", eff.EffectiveRate)
	}
}

func TestEffective_NormalizeFloating(t *testing.T) {
	n := &Normalizer{Now: fixedNow, Reference: 10, NormalizeFloating: true}
	eff := n.Effective(model.AssetOffer{
		Class: model.ClassCDI, RateText: "CDI + 1,00%", NominalRate: 1, Maturity: maturityIn(800),
	})
	if math.Abs(eff.EffectiveRate-110) > 1e-9 {
		t.Errorf("expected 110 (percent of CDI), got %.4f", eff.EffectiveRate)
	}
	// taxed offers keep effective == nominal on the normalized scale
	if eff.NominalRate != eff.EffectiveRate || eff.RateText != "CDI + 1,00%" {
		t.Errorf("nominal %.4f, effective %.4f, text %q", eff.NominalRate, eff.EffectiveRate, eff.RateText)
	}
}

func TestDaysToMaturity_DecreasesOverTime(t *testing.T) {
	mat := maturityIn(400)
	prev := math.MaxInt
	for h := 0; h < 24*30; h += 7 {
		d := DaysToMaturity(mat, now.Add(time.Duration(h)*time.Hour))
		if d > prev {
			t.Fatalf("days increased from %d to %d", prev, d)
		}
		prev = d
	}
}

func TestComparable(t *testing.T) {
	tests := []struct {
		class model.IndexClass
		text  string
		want  float64
		ok    bool
	}{
		{model.ClassIPCA, "IPCA + 6,20%", 6.2, true},
		{model.ClassIPCA, "ipca+5,5%", 5.5, true},
		{model.ClassCDI, "110,00% do CDI", 110, true},
		{model.ClassCDI, "98% CDI", 98, true},
		{model.ClassCDI, "CDI + 1,10%", 110, true},
		{model.ClassFixed, "13,25%", 13.25, true},
		{model.ClassFixed, "a definir", 0, false},
	}
	for _, tt := range tests {
		got, ok := Comparable(tt.class, tt.text, 11)
		if ok != tt.ok || math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s %q: expected (%.4f, %v), got (%.4f, %v)", tt.class, tt.text, tt.want, tt.ok, got, ok)
		}
	}
}

func TestAverage_GroupsAndEmpty(t *testing.T) {
	offers := []model.AssetOffer{
		{RateText: "IPCA + 6,00%", TaxExempt: true},
		{RateText: "IPCA + 7,00%", TaxExempt: true},
		{RateText: "indisponível", TaxExempt: false},
	}
	avg := Average(model.ClassIPCA, offers, 11)
	if !avg.Exempt.OK || avg.Exempt.Mean != 6.5 || avg.Exempt.Count != 2 {
		t.Errorf("unexpected exempt group: %+v", avg.Exempt)
	}
	if avg.Taxed.OK {
		t.Errorf("taxed group has no parseable rate, expected no average: %+v", avg.Taxed)
	}
}

func TestFormatAverage(t *testing.T) {
	if got := FormatAverage(model.ClassIPCA, 6.5); got != "IPCA + 6.50%" {
		t.Errorf("got %q", got)
	}
	if got := FormatAverage(model.ClassCDI, 104.123); got != "104.12% do CDI" {
		t.Errorf("got %q", got)
	}
	if got := FormatAverage(model.ClassFixed, 12); got != "12.00%" {
		t.Errorf("got %q", got)
	}
}
