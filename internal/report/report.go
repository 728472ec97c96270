// Package report accumulates a run's purchases and class averages and
// publishes them to the backing store.
package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"RendaBot/internal/model"
	"RendaBot/internal/yield"
)

// Writer persists run results for one user.
type Writer interface {
	InsertPurchases(ctx context.Context, userID string, recs []model.PurchaseRecord) error
	UpsertAverage(ctx context.Context, userID string, avg model.AverageRate) error
}

// Trigger fires the post-purchase billing action.
type Trigger interface {
	Fire(ctx context.Context, userID string) error
}

// ClassAverages computes the exempt and taxed means of a class. When a winner
// exists only offers maturing no later than it are counted; an offer whose
// maturity could not be read always counts. Empty groups produce no row.
func ClassAverages(class model.IndexClass, offers []model.AssetOffer, winner *model.AssetOffer, reference float64, day time.Time) []model.AverageRate {
	subset := offers
	if winner != nil && winner.Maturity != "" {
		subset = make([]model.AssetOffer, 0, len(offers))
		for _, o := range offers {
			if o.Maturity == "" || o.Maturity <= winner.Maturity {
				subset = append(subset, o)
			}
		}
	}

	avg := yield.Average(class, subset, reference)
	date := day.Format("2006-01-02")
	var out []model.AverageRate
	for _, g := range []struct {
		exempt bool
		group  yield.Group
	}{{true, avg.Exempt}, {false, avg.Taxed}} {
		if !g.group.OK {
			continue
		}
		out = append(out, model.AverageRate{
			Date:      date,
			Class:     class.Upper(),
			Formatted: yield.FormatAverage(class, g.group.Mean),
			TaxExempt: g.exempt,
			Mean:      g.group.Mean,
			Count:     g.group.Count,
		})
	}
	return out
}

// NewRecord builds the record of a finalized purchase.
func NewRecord(in model.PurchaseIntent, at time.Time) model.PurchaseRecord {
	o := in.Offer
	eff := fmt.Sprintf("%.2f%%", o.EffectiveRate)
	if o.TaxExempt {
		eff += " (isento IR)"
	}
	return model.PurchaseRecord{
		AssetName:      o.Name,
		Class:          string(o.Class),
		ContractedRate: fmt.Sprintf("%.2f%%", o.NominalRate),
		EffectiveRate:  eff,
		MinInvestment:  o.MinInvestment,
		AppliedAmount:  in.Amount,
		Maturity:       o.Maturity,
		PurchasedAt:    at.UTC(),
	}
}

// Reporter collects a run's results. Safe for concurrent use.
type Reporter struct {
	w       Writer
	trigger Trigger
	userID  string
	log     logrus.FieldLogger

	mu        sync.Mutex
	purchases []model.PurchaseRecord
	averages  []model.AverageRate
}

func New(w Writer, trigger Trigger, userID string, log logrus.FieldLogger) *Reporter {
	return &Reporter{w: w, trigger: trigger, userID: userID, log: log}
}

// PublishAverages upserts each row on its own. A failed row is logged and the
// rest still go out. It returns how many rows were written.
func (r *Reporter) PublishAverages(ctx context.Context, avgs []model.AverageRate) int {
	r.mu.Lock()
	r.averages = append(r.averages, avgs...)
	r.mu.Unlock()

	written := 0
	for _, a := range avgs {
		fields := logrus.Fields{"class": a.Class, "exempt": a.TaxExempt, "average": a.Formatted}
		if err := r.w.UpsertAverage(ctx, r.userID, a); err != nil {
			r.log.WithFields(fields).WithError(err).Error("average upsert failed")
			continue
		}
		written++
		r.log.WithFields(fields).Info("average published")
	}
	return written
}

// AddPurchase appends a finalized purchase for the end-of-run batch.
func (r *Reporter) AddPurchase(rec model.PurchaseRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchases = append(r.purchases, rec)
}

// Purchases returns a copy of the collected records.
func (r *Reporter) Purchases() []model.PurchaseRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.PurchaseRecord(nil), r.purchases...)
}

// Averages returns a copy of every average computed during the run.
func (r *Reporter) Averages() []model.AverageRate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AverageRate(nil), r.averages...)
}

// Flush submits all purchases in one batch, then fires the billing trigger.
// Nothing is sent when no purchase happened. The trigger fires even when the
// batch fails since the purchases did happen; its own failure is only logged.
func (r *Reporter) Flush(ctx context.Context) error {
	recs := r.Purchases()
	if len(recs) == 0 {
		r.log.Info("no purchases to report")
		return nil
	}
	var batchErr error
	if err := r.w.InsertPurchases(ctx, r.userID, recs); err != nil {
		r.log.WithField("count", len(recs)).WithError(err).Error("purchase batch failed")
		batchErr = fmt.Errorf("insert %d purchases: %w", len(recs), err)
	} else {
		r.log.WithField("count", len(recs)).Info("purchases recorded")
	}

	if r.trigger != nil {
		if err := r.trigger.Fire(ctx, r.userID); err != nil {
			r.log.WithError(err).Warn("billing trigger failed")
		}
	}
	return batchErr
}
