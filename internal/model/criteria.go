package model

// Filter categories as stored in the user's selections.
const (
	CategoryMaturity   = "vencimento"
	CategoryLiquidity  = "liquidez"
	CategoryIndex      = "indexador"
	CategoryMinApplied = "aplicacao_minima"
	CategoryOther      = "outros"
)

// FilterCriteria is the user's most recent purchase configuration.
type FilterCriteria struct {
	Selections    map[string][]string
	ClassOrder    []IndexClass
	MinRates      map[IndexClass]float64
	PurchaseLimit float64
	Signature     string // decrypted numeric transaction signature
}

// EnabledClasses returns the classes selected in the index category, in selection order.
func (f *FilterCriteria) EnabledClasses() []IndexClass {
	var out []IndexClass
	for _, v := range f.Selections[CategoryIndex] {
		if c, ok := ParseIndexClass(v); ok {
			out = append(out, c)
		}
	}
	return out
}

// MinRate returns the effective-rate floor configured for a class.
func (f *FilterCriteria) MinRate(c IndexClass) float64 {
	if f.MinRates == nil {
		return 0
	}
	return f.MinRates[c]
}
