// Package engine runs the daily purchase pipeline end to end.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"RendaBot/internal/balance"
	"RendaBot/internal/credentials"
	"RendaBot/internal/filters"
	"RendaBot/internal/loader"
	"RendaBot/internal/model"
	"RendaBot/internal/page"
	"RendaBot/internal/purchase"
	"RendaBot/internal/rates"
	"RendaBot/internal/recorder"
	"RendaBot/internal/report"
	"RendaBot/internal/store"
)

const flushTimeout = 30 * time.Second

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// StoreOpener connects the backing store for a user session.
type StoreOpener func(ctx context.Context, creds model.Credentials) (store.Store, error)

// Navigator loads a URL in the page. Only the live browser implements it.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Options tune a run.
type Options struct {
	// StatementURL, when set with a Navigator, is visited first to read the balance.
	StatementURL string
	// TargetURL is the offers page, loaded before filters are applied.
	TargetURL          string
	CredentialAttempts int
	CredentialInterval time.Duration
	BalanceTimeout     time.Duration
	// NormalizeFloating compares "CDI + x%" and "x% do CDI" offers on one scale.
	NormalizeFloating bool
	// MaxCandidatesPerClass is how many ranked offers are tried when checkout fails.
	MaxCandidatesPerClass int
	Purchase              purchase.Options
	Loader                loader.Options
	Filters               filters.Pacing
}

// Deps are the collaborators of a run.
type Deps struct {
	Page        page.Page
	Navigator   Navigator
	Credentials credentials.Source
	OpenStore   StoreOpener
	Rates       *rates.Lookup
	Billing     report.Trigger
	Balance     *balance.Manager
	Recorder    recorder.Recorder
	Log         logrus.FieldLogger
	Now         func() time.Time
}

// Engine serializes runs over one page.
type Engine struct {
	deps Deps
	opts Options
	mu   sync.Mutex
	last *Summary
	lmu  sync.Mutex
}

func New(deps Deps, opts Options) *Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if opts.MaxCandidatesPerClass < 1 {
		opts.MaxCandidatesPerClass = 1
	}
	return &Engine{deps: deps, opts: opts}
}

// Last returns the summary of the most recent finished run, nil before the first.
func (e *Engine) Last() *Summary {
	e.lmu.Lock()
	defer e.lmu.Unlock()
	return e.last
}

// Run executes one full pass. Identity, criteria and page preparation failures
// abort it; failures scoped to one class or asset are counted and skipped.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	if !e.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.mu.Unlock()

	r := &Run{
		ID:      uuid.NewString(),
		engine:  e,
		started: e.deps.Now(),
	}
	r.log = e.deps.Log.WithField("run_id", r.ID)
	r.log.Info("run started")

	err := r.execute(ctx)
	sum := r.summary(e.deps.Now(), err)

	evt := &recorder.RunEvent{
		ID: r.ID, UserID: r.creds.UserID, StartedAt: sum.StartedAt, FinishedAt: sum.FinishedAt,
		Balance: sum.StartBalance, CDI: sum.CDI,
		Purchased: sum.Purchased, Failed: sum.Failed, Skipped: sum.Skipped, Error: sum.Error,
	}
	if rerr := e.deps.Recorder.RecordRun(evt); rerr != nil {
		r.log.WithError(rerr).Error("record run")
	}

	e.lmu.Lock()
	e.last = sum
	e.lmu.Unlock()

	fields := logrus.Fields{"purchased": sum.Purchased, "failed": sum.Failed, "skipped": sum.Skipped}
	if err != nil {
		r.log.WithFields(fields).WithError(err).Error("run aborted")
		return sum, err
	}
	r.log.WithFields(fields).Info("run finished")
	return sum, nil
}

// Run is the state of one pass, passed explicitly instead of held in globals.
type Run struct {
	ID      string
	engine  *Engine
	log     logrus.FieldLogger
	started time.Time

	creds    model.Credentials
	criteria *model.FilterCriteria
	store    store.Store
	reporter *report.Reporter
	cdi      float64

	startBalance float64
	available    float64
	classes      []ClassResult
	flushErr     error
}

func (r *Run) execute(ctx context.Context) error {
	d := r.engine.deps
	o := r.engine.opts

	creds, err := credentials.Wait(ctx, d.Credentials, o.CredentialInterval, o.CredentialAttempts, r.log)
	if err != nil {
		return err
	}
	r.creds = creds
	r.log = r.log.WithField("user_id", creds.UserID)

	st, err := d.OpenStore(ctx, creds)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	r.store = st

	criteria, err := st.LatestCriteria(ctx, creds.UserID)
	if err != nil {
		return fmt.Errorf("load criteria: %w", err)
	}
	r.criteria = criteria
	r.reporter = report.New(st, d.Billing, creds.UserID, r.log)
	// purchases that reached the broker are reported even when the run is cancelled
	defer func() {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		r.flushErr = r.reporter.Flush(fctx)
	}()

	r.cdi = rates.DefaultFallback
	if d.Rates != nil {
		r.cdi = d.Rates.CDI(ctx)
	}

	bal, captured := 0.0, false
	if d.Navigator != nil && o.StatementURL != "" {
		if err := d.Navigator.Navigate(ctx, o.StatementURL); err != nil {
			r.log.WithError(err).Warn("statement page unavailable")
		} else if v, err := d.Balance.Capture(ctx, d.Page, o.BalanceTimeout); err == nil {
			bal, captured = v, true
		}
	}
	if d.Navigator != nil && o.TargetURL != "" {
		if err := d.Navigator.Navigate(ctx, o.TargetURL); err != nil {
			return fmt.Errorf("open offers page: %w", err)
		}
	}

	if _, err := filters.NewApplier(d.Page, o.Filters, r.log).Apply(ctx, criteria); err != nil {
		return fmt.Errorf("apply filters: %w", err)
	}
	if _, err := loader.New(d.Page, o.Loader, r.log).Load(ctx); err != nil {
		return fmt.Errorf("load table: %w", err)
	}

	if !captured {
		bal, err = d.Balance.Capture(ctx, d.Page, o.BalanceTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			r.log.WithError(err).Warn("no balance available, nothing will be bought")
		}
	}
	r.startBalance, r.available = bal, bal

	for _, class := range r.classOrder() {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := r.processClass(ctx, class)
		r.classes = append(r.classes, res)
	}
	return nil
}

func (r *Run) summary(finished time.Time, err error) *Summary {
	s := &Summary{
		RunID:        r.ID,
		UserID:       r.creds.UserID,
		StartedAt:    r.started,
		FinishedAt:   finished,
		CDI:          r.cdi,
		StartBalance: r.startBalance,
		EndBalance:   r.available,
		Classes:      r.classes,
	}
	if r.reporter != nil {
		s.Purchases = r.reporter.Purchases()
		s.Averages = r.reporter.Averages()
	}
	for _, c := range r.classes {
		switch c.Outcome {
		case OutcomePurchased:
			s.Purchased++
		case OutcomeSkipped:
			s.Skipped++
		}
		s.Failed += c.FailedAttempts
	}
	switch {
	case err != nil:
		s.Error = err.Error()
	case r.flushErr != nil:
		s.Error = r.flushErr.Error()
	}
	return s
}
