// Package extract turns the brokerage results table into asset offers.
package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"RendaBot/internal/model"
)

// MinColumns is the number of cells a row needs to be considered an offer.
const MinColumns = 10

// Column positions inside a results row.
const (
	colName     = 0
	colMaturity = 1
	colRate     = 2
	colMinimum  = 8
)

const (
	rowSelector    = "soma-table-row"
	cellSelector   = "soma-table-cell"
	investSelector = "soma-button[aria-label='Investir']"
)

// Extractor reads offers out of a table snapshot.
type Extractor struct {
	Log logrus.FieldLogger
}

// New creates an Extractor.
func New(log logrus.FieldLogger) *Extractor {
	return &Extractor{Log: log}
}

// FromHTML parses the outer HTML of the results table.
func (e *Extractor) FromHTML(html string) ([]model.AssetOffer, error) {
	return e.FromReader(strings.NewReader(html))
}

// FromReader parses a results table. Rows with fewer than MinColumns cells,
// without an invest control or without a readable rate are skipped.
func (e *Extractor) FromReader(r io.Reader) ([]model.AssetOffer, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}

	var offers []model.AssetOffer
	doc.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		cells := row.Find(cellSelector)
		if cells.Length() < MinColumns {
			return
		}
		if row.Find(investSelector).Length() == 0 {
			e.Log.WithField("row", i).Debug("row has no invest control")
			return
		}

		text := func(idx int) string {
			return strings.Join(strings.Fields(cells.Eq(idx).Text()), " ")
		}

		name := text(colName)
		if name == "" {
			name = "Ativo sem nome"
		}
		rateText := text(colRate)
		rate, err := FirstRate(rateText)
		if err != nil {
			e.Log.WithFields(logrus.Fields{"row": i, "asset": name, "rate_text": rateText}).
				Warn("rate not readable, row skipped")
			return
		}

		offers = append(offers, model.AssetOffer{
			Name:          name,
			Class:         ClassifyRate(rateText),
			RateText:      rateText,
			NominalRate:   rate,
			MinInvestment: MinInvestment(text(colMinimum)),
			Maturity:      DateToISO(text(colMaturity)),
			TaxExempt:     IsTaxExempt(name),
			Handle:        i,
		})
	})
	return offers, nil
}

// OfClass keeps the offers of one index class, preserving scrape order.
func OfClass(offers []model.AssetOffer, c model.IndexClass) []model.AssetOffer {
	var out []model.AssetOffer
	for _, o := range offers {
		if o.Class == c {
			out = append(out, o)
		}
	}
	return out
}
