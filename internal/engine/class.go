package engine

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"RendaBot/internal/extract"
	"RendaBot/internal/loader"
	"RendaBot/internal/model"
	"RendaBot/internal/purchase"
	"RendaBot/internal/ranking"
	"RendaBot/internal/recorder"
	"RendaBot/internal/report"
	"RendaBot/internal/yield"
)

func (r *Run) classOrder() []model.IndexClass {
	order := ranking.ClassOrder(r.criteria.ClassOrder, r.criteria.EnabledClasses())
	r.log.WithField("order", order).Info("class priority")
	return order
}

// processClass activates one class, publishes its averages and tries to buy
// its best affordable offers.
func (r *Run) processClass(ctx context.Context, class model.IndexClass) ClassResult {
	d := r.engine.deps
	o := r.engine.opts
	log := r.log.WithField("class", class)
	res := ClassResult{Class: class, Outcome: OutcomeSkipped}

	machine := purchase.New(d.Page, o.Purchase, log)
	flow := machine.Start(class)
	if err := flow.SelectClass(ctx); err != nil {
		res.Reason = err.Error()
		log.WithError(err).Warn("class unavailable, skipping")
		return res
	}
	// the class chip re-filters the table, which renders lazily again
	if _, err := loader.New(d.Page, o.Loader, log).Load(ctx); err != nil {
		res.Reason = err.Error()
		log.WithError(err).Warn("class table did not load, skipping")
		return res
	}

	html, err := d.Page.TableHTML(ctx)
	if err != nil {
		res.Reason = err.Error()
		log.WithError(err).Warn("table snapshot failed")
		return res
	}
	all, err := extract.New(log).FromHTML(html)
	if err != nil {
		res.Reason = err.Error()
		log.WithError(err).Warn("table extraction failed")
		return res
	}
	offers := extract.OfClass(all, class)
	res.Offers = len(offers)

	norm := &yield.Normalizer{Reference: r.cdi, NormalizeFloating: o.NormalizeFloating, Now: d.Now}
	ranked := ranking.Rank(ranking.Input{
		Offers:  norm.All(offers),
		Balance: r.available,
		Buckets: r.criteria.Selections[model.CategoryMinApplied],
		MinRate: r.criteria.MinRate(class),
	})
	res.Eligible = len(ranked)

	var winner *model.AssetOffer
	if len(ranked) > 0 {
		winner = &ranked[0].AssetOffer
	}
	avgs := report.ClassAverages(class, offers, winner, r.cdi, d.Now())
	r.reporter.PublishAverages(ctx, avgs)
	for i := range avgs {
		if err := d.Recorder.RecordAverage(r.ID, &avgs[i]); err != nil {
			log.WithError(err).Warn("journal average")
		}
	}

	if len(ranked) == 0 {
		res.Reason = "no eligible offer"
		log.WithFields(logrus.Fields{"offers": len(offers), "balance": r.available}).Info("no eligible offer")
		return res
	}

	limit := min(len(ranked), o.MaxCandidatesPerClass)
	for i, cand := range ranked[:limit] {
		if i > 0 {
			flow = machine.Start(class)
			if err := flow.SelectClass(ctx); err != nil {
				res.Reason = err.Error()
				return res
			}
		}
		intent := ranking.Intent(cand, r.available, r.criteria.PurchaseLimit)
		alog := log.WithFields(logrus.Fields{"asset": cand.Name, "amount": intent.Amount, "rate": cand.EffectiveRate})
		alog.Info("attempting purchase")

		if err := flow.Purchase(ctx, intent, r.available, r.criteria.Signature); err != nil {
			res.FailedAttempts++
			res.Reason = err.Error()
			r.recordAttempt(class, intent, err)
			if ctx.Err() != nil || errors.Is(err, model.ErrInsufficientBalance) {
				res.Outcome = OutcomeFailed
				return res
			}
			continue
		}

		rec := report.NewRecord(intent, d.Now())
		r.reporter.AddPurchase(rec)
		if err := d.Recorder.RecordPurchase(r.ID, &rec); err != nil {
			alog.WithError(err).Warn("journal purchase")
		}
		r.available = d.Balance.Deduct(intent.Amount)
		res.Outcome = OutcomePurchased
		res.Purchase = &rec
		res.Reason = ""
		return res
	}
	res.Outcome = OutcomeFailed
	return res
}

func (r *Run) recordAttempt(class model.IndexClass, in model.PurchaseIntent, err error) {
	evt := &recorder.AttemptEvent{
		RunID:  r.ID,
		Class:  string(class),
		Asset:  in.Offer.Name,
		Reason: err.Error(),
		Amount: in.Amount,
	}
	var se *purchase.StepError
	if errors.As(err, &se) {
		evt.Reached = se.From.String()
	}
	if jerr := r.engine.deps.Recorder.RecordAttempt(evt); jerr != nil {
		r.log.WithError(jerr).Warn("journal attempt")
	}
}
