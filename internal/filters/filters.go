// Package filters applies the user's visual filter chips on the results page.
package filters

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"RendaBot/internal/model"
	"RendaBot/internal/page"
	"RendaBot/internal/poll"
)

// Labels maps each category key to the visible chip text.
var Labels = map[string]map[string]string{
	model.CategoryLiquidity: {
		"no_venc":  "No Vencimento",
		"diaria":   "Diária",
		"carencia": "Com Carência",
	},
	model.CategoryOther: {
		"garantia_fgc":            "Proteção FGC",
		"isento_ir":               "Isento de IR",
		"oferta_primaria":         "Oferta primária",
		"investidor_qualificado":  "Investidor qualificado",
		"investidor_profissional": "Investidor profissional",
		"publico_geral":           "Público geral",
	},
	model.CategoryMaturity: {
		"ate_6_meses":  "De 1 mês a 6 meses",
		"ate_1_ano":    "De 6 meses a 12 meses",
		"ate_2_anos":   "de 1 ano a 2 anos",
		"ate_3_anos":   "de 2 anos a 3 anos",
		"ate_5_anos":   "de 3 anos a 5 anos",
		"acima_5_anos": "Acima de 5 anos",
	},
	model.CategoryMinApplied: {
		"ate_5k":    "Até R$ 5.000",
		"ate_10k":   "Até 10.000",
		"ate_50k":   "Até R$ 50.000",
		"acima_50k": "Acima de R$ 50.000",
	},
}

// maturityOrder ranks the maturity buckets; selecting one implies all shorter ones.
var maturityOrder = []string{"ate_6_meses", "ate_1_ano", "ate_2_anos", "ate_3_anos", "ate_5_anos", "acima_5_anos"}

// categoryOrder fixes the application order so runs are reproducible.
var categoryOrder = []string{model.CategoryMaturity, model.CategoryLiquidity, model.CategoryMinApplied, model.CategoryOther}

// ChipLabels returns the chip labels to activate for the criteria, without
// duplicates. The index category is left out: classes are activated one at a
// time by the purchase flow.
func ChipLabels(c *model.FilterCriteria) []string {
	seen := map[string]bool{}
	var out []string
	add := func(l string) {
		if l != "" && !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}

	for _, cat := range categoryOrder {
		labels := Labels[cat]
		for _, key := range c.Selections[cat] {
			if cat != model.CategoryMaturity {
				add(labels[key])
				continue
			}
			idx := indexOf(maturityOrder, key)
			for _, k := range maturityOrder[:idx+1] {
				add(labels[k])
			}
		}
	}
	return out
}

// UnknownKeys lists selection keys that have no chip, sorted, for logging.
func UnknownKeys(c *model.FilterCriteria) []string {
	var out []string
	for cat, keys := range c.Selections {
		if cat == model.CategoryIndex {
			continue
		}
		for _, k := range keys {
			if _, ok := Labels[cat][k]; !ok {
				out = append(out, cat+"."+k)
			}
		}
	}
	sort.Strings(out)
	return out
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

// Pacing is the wait before the panel appears and the pauses between clicks.
type Pacing struct {
	OpenWait   time.Duration `yaml:"open_wait"`
	ChipPause  time.Duration `yaml:"chip_pause"`
	PanelPause time.Duration `yaml:"panel_pause"`
}

// DefaultPacing matches the page's chip animations.
func DefaultPacing() Pacing {
	return Pacing{
		OpenWait:   3500 * time.Millisecond,
		ChipPause:  300 * time.Millisecond,
		PanelPause: 500 * time.Millisecond,
	}
}

// Applier opens the filter panel and activates chips.
type Applier struct {
	Page   page.Page
	Log    logrus.FieldLogger
	Pacing Pacing
}

func NewApplier(p page.Page, pacing Pacing, log logrus.FieldLogger) *Applier {
	return &Applier{Page: p, Log: log, Pacing: pacing}
}

// Apply clicks "Filtrar" and then every criteria chip not yet selected.
// A missing panel chip is an error; a missing criteria chip is logged and skipped.
// It returns the labels that were activated.
func (a *Applier) Apply(ctx context.Context, c *model.FilterCriteria) ([]string, error) {
	target := poll.Target{What: "soma-chip " + page.LabelFilter, Timeout: a.Pacing.OpenWait, Interval: 250 * time.Millisecond}
	if err := poll.Until(ctx, target, func(ctx context.Context) (bool, error) {
		st, err := a.Page.Chip(ctx, page.LabelFilter)
		return st.Found, err
	}); err != nil {
		return nil, fmt.Errorf("open filter panel: %w", err)
	}
	if err := a.Page.ClickChip(ctx, page.LabelFilter); err != nil {
		return nil, fmt.Errorf("open filter panel: %w", err)
	}
	if err := poll.Sleep(ctx, a.Pacing.PanelPause); err != nil {
		return nil, err
	}

	if unknown := UnknownKeys(c); len(unknown) > 0 {
		a.Log.WithField("keys", unknown).Warn("filter selections without a chip")
	}

	var applied []string
	for _, label := range ChipLabels(c) {
		st, err := a.Page.Chip(ctx, label)
		if err != nil {
			return applied, err
		}
		switch {
		case !st.Found:
			a.Log.WithField("label", label).Warn("filter chip not found")
		case st.Selected:
			applied = append(applied, label)
		default:
			if err := a.Page.ClickChip(ctx, label); err != nil {
				return applied, err
			}
			applied = append(applied, label)
			a.Log.WithField("label", label).Debug("filter applied")
		}
		if err := poll.Sleep(ctx, a.Pacing.ChipPause); err != nil {
			return applied, err
		}
	}
	a.Log.WithField("count", len(applied)).Info("visual filters applied")
	return applied, nil
}
