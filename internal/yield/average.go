package yield

import (
	"RendaBot/internal/model"
)

// Group is the mean of the parseable rates of one exemption group.
type Group struct {
	Mean  float64
	Count int
	OK    bool // false when no rate in the group could be parsed
}

// Averages holds the exempt and taxed group means of one class.
type Averages struct {
	Exempt Group
	Taxed  Group
}

// Average splits offers by tax exemption and averages their comparable rates.
func Average(class model.IndexClass, offers []model.AssetOffer, reference float64) Averages {
	var exempt, taxed []float64
	for _, o := range offers {
		v, ok := Comparable(class, o.RateText, reference)
		if !ok {
			continue
		}
		if o.TaxExempt {
			exempt = append(exempt, v)
		} else {
			taxed = append(taxed, v)
		}
	}
	return Averages{Exempt: mean(exempt), Taxed: mean(taxed)}
}

func mean(vs []float64) Group {
	if len(vs) == 0 {
		return Group{}
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return Group{Mean: sum / float64(len(vs)), Count: len(vs), OK: true}
}
