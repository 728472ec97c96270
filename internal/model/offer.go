package model

import "strings"

// IndexClass is the rate-indexing convention of an offer.
type IndexClass string

const (
	ClassFixed IndexClass = "pre_fixado"
	ClassCDI   IndexClass = "cdi"
	ClassIPCA  IndexClass = "ipca"
)

// DefaultClass is used when the user enabled no index class at all.
const DefaultClass = ClassCDI

// AllClasses lists every index class the brokerage table can show.
var AllClasses = []IndexClass{ClassFixed, ClassCDI, ClassIPCA}

// ParseIndexClass maps a stored class key to an IndexClass.
func ParseIndexClass(s string) (IndexClass, bool) {
	switch IndexClass(strings.ToLower(strings.TrimSpace(s))) {
	case ClassFixed:
		return ClassFixed, true
	case ClassCDI:
		return ClassCDI, true
	case ClassIPCA:
		return ClassIPCA, true
	}
	return "", false
}

// Upper is the upper-case code used in reports ("CDI", "IPCA", "PRE_FIXADO").
func (c IndexClass) Upper() string { return strings.ToUpper(string(c)) }

// AssetOffer is one row scraped from the brokerage's results table.
type AssetOffer struct {
	Name          string
	Class         IndexClass
	RateText      string
	NominalRate   float64
	MinInvestment float64
	Maturity      string // ISO YYYY-MM-DD, empty when the cell was malformed
	TaxExempt     bool
	Handle        int // row index of the "invest" control
}

// EffectiveOffer is an AssetOffer with its tax-adjusted yield attached.
type EffectiveOffer struct {
	AssetOffer
	EffectiveRate  float64
	DaysToMaturity int
}

// PurchaseIntent is the amount and unit count chosen for one offer.
type PurchaseIntent struct {
	Offer  EffectiveOffer
	Amount float64
	Units  int
}
