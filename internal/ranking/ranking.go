// Package ranking filters and orders offers to pick one purchase candidate per class.
package ranking

import (
	"sort"

	"RendaBot/internal/model"
)

// MinApplicationBuckets are the named minimum-investment eligibility predicates.
var MinApplicationBuckets = map[string]func(float64) bool{
	"ate_5k":    func(v float64) bool { return v <= 5000 },
	"ate_10k":   func(v float64) bool { return v <= 10000 },
	"ate_50k":   func(v float64) bool { return v <= 50000 },
	"acima_50k": func(v float64) bool { return v > 50000 },
}

// PassesBuckets reports whether a minimum investment satisfies any selected bucket.
// With no bucket selected every value passes.
func PassesBuckets(selected []string, minInvestment float64) bool {
	if len(selected) == 0 {
		return true
	}
	for _, key := range selected {
		if pred, ok := MinApplicationBuckets[key]; ok && pred(minInvestment) {
			return true
		}
	}
	return false
}

// Input is everything the engine needs to rank one class.
type Input struct {
	Offers  []model.EffectiveOffer
	Balance float64
	Buckets []string
	MinRate float64
}

// Rank returns the eligible offers, best first. Ties keep scrape order.
func Rank(in Input) []model.EffectiveOffer {
	eligible := make([]model.EffectiveOffer, 0, len(in.Offers))
	for _, o := range in.Offers {
		if o.MinInvestment > in.Balance {
			continue
		}
		if !PassesBuckets(in.Buckets, o.MinInvestment) {
			continue
		}
		if o.EffectiveRate < in.MinRate {
			continue
		}
		eligible = append(eligible, o)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].EffectiveRate > eligible[j].EffectiveRate
	})
	return eligible
}

// Best returns the top-ranked offer, if any.
func Best(in Input) (model.EffectiveOffer, bool) {
	ranked := Rank(in)
	if len(ranked) == 0 {
		return model.EffectiveOffer{}, false
	}
	return ranked[0], true
}

// ClassOrder is the configured priority list restricted to enabled classes.
// Without an explicit order the enabled classes keep their selection order;
// with nothing enabled the single fallback class is used.
func ClassOrder(order, enabled []model.IndexClass) []model.IndexClass {
	if len(order) == 0 {
		if len(enabled) == 0 {
			return []model.IndexClass{model.DefaultClass}
		}
		return dedupe(enabled)
	}
	on := make(map[model.IndexClass]bool, len(enabled))
	for _, c := range enabled {
		on[c] = true
	}
	var out []model.IndexClass
	for _, c := range order {
		if on[c] {
			out = append(out, c)
		}
	}
	return dedupe(out)
}

func dedupe(cs []model.IndexClass) []model.IndexClass {
	seen := make(map[model.IndexClass]bool, len(cs))
	out := make([]model.IndexClass, 0, len(cs))
	for _, c := range cs {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// Intent computes the purchase amount and units for an offer:
// amount = max(minInvestment, min(balance, limit)), units = floor(amount / minInvestment).
func Intent(o model.EffectiveOffer, balance, limit float64) model.PurchaseIntent {
	amount := max(o.MinInvestment, min(balance, limit))
	units := 0
	if o.MinInvestment > 0 {
		units = int(amount / o.MinInvestment)
	}
	return model.PurchaseIntent{Offer: o, Amount: amount, Units: units}
}
