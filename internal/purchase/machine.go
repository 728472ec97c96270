package purchase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"RendaBot/internal/model"
	"RendaBot/internal/page"
	"RendaBot/internal/poll"
)

// Timeouts bound every polled precondition of the flow.
type Timeouts struct {
	Chip         time.Duration `yaml:"chip"`
	Table        time.Duration `yaml:"table"`
	Invest       time.Duration `yaml:"invest"`
	Quantity     time.Duration `yaml:"quantity"`
	Checkbox     time.Duration `yaml:"checkbox"`
	Advance      time.Duration `yaml:"advance"`
	TermsAdvance time.Duration `yaml:"terms_advance"`
	Keypad       time.Duration `yaml:"keypad"`
	Final        time.Duration `yaml:"final"`
	Interval     time.Duration `yaml:"interval"`
	KeyPause     time.Duration `yaml:"key_pause"`
	Settle       time.Duration `yaml:"settle"`
}

// DefaultTimeouts matches how long the brokerage UI usually takes per step.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Chip:         3500 * time.Millisecond,
		Table:        2 * time.Second,
		Invest:       2 * time.Second,
		Quantity:     7 * time.Second,
		Checkbox:     2 * time.Second,
		Advance:      7 * time.Second,
		TermsAdvance: 2500 * time.Millisecond,
		Keypad:       2500 * time.Millisecond,
		Final:        2 * time.Second,
		Interval:     500 * time.Millisecond,
		KeyPause:     100 * time.Millisecond,
		Settle:       500 * time.Millisecond,
	}
}

// Options parameterize the flow.
type Options struct {
	Timeouts Timeouts
	// DeselectOtherClasses turns off the chips of the other index classes before
	// activating the target class.
	DeselectOtherClasses bool
}

// Machine runs checkout flows against a page. Flows must not run concurrently.
type Machine struct {
	Page page.Page
	Opts Options
	Log  logrus.FieldLogger
}

// New creates a Machine.
func New(p page.Page, opts Options, log logrus.FieldLogger) *Machine {
	return &Machine{Page: p, Opts: opts, Log: log}
}

// Flow is one pass through the checkout for one index class.
type Flow struct {
	m     *Machine
	class model.IndexClass
	state State
	err   *StepError
	log   logrus.FieldLogger
}

// Start begins a flow in SelectingClass.
func (m *Machine) Start(class model.IndexClass) *Flow {
	return &Flow{m: m, class: class, state: SelectingClass, log: m.Log.WithField("class", class)}
}

// State is the current state.
func (f *Flow) State() State { return f.state }

// Err is the failure that moved the flow to Failed, nil otherwise.
func (f *Flow) Err() error {
	if f.err == nil {
		return nil
	}
	return f.err
}

func (f *Flow) target(what string, timeout time.Duration) poll.Target {
	return poll.Target{What: what, Timeout: timeout, Interval: f.m.Opts.Timeouts.Interval}
}

// step runs one transition. Any error moves the flow to Failed.
func (f *Flow) step(ctx context.Context, to State, reason string, fn func(ctx context.Context) error) error {
	if f.state.Terminal() {
		return fmt.Errorf("flow already %s", f.state)
	}
	if to != f.state+1 {
		return fmt.Errorf("invalid transition %s -> %s", f.state, to)
	}
	if err := fn(ctx); err != nil {
		return f.fail(to, reason, err)
	}
	f.log.WithField("state", to).Debug("purchase step done")
	f.state = to
	return nil
}

func (f *Flow) fail(to State, reason string, err error) error {
	f.err = &StepError{From: f.state, To: to, Reason: reason, Err: err}
	f.log.WithFields(logrus.Fields{"from": f.state, "to": to, "reason": reason}).
		WithError(err).Warn("purchase step failed")
	f.state = Failed
	return f.err
}

// SelectClass activates the class filter and waits for the table to show rows.
func (f *Flow) SelectClass(ctx context.Context) error {
	label, ok := page.ClassChipLabels[f.class]
	if !ok {
		return f.fail(TableLoaded, "unknown class", fmt.Errorf("no chip label for %q", f.class))
	}
	return f.step(ctx, TableLoaded, fmt.Sprintf("activating chip %q", label), func(ctx context.Context) error {
		t := f.m.Opts.Timeouts
		p := f.m.Page

		if f.m.Opts.DeselectOtherClasses {
			for c, other := range page.ClassChipLabels {
				if c == f.class {
					continue
				}
				st, err := p.Chip(ctx, other)
				if err != nil {
					return err
				}
				if st.Found && st.Selected {
					if err := p.ClickChip(ctx, other); err != nil {
						return err
					}
					f.log.WithField("label", other).Debug("deselected class chip")
				}
			}
		}

		st, err := poll.Value(ctx, f.target("chip "+label, t.Chip), func(ctx context.Context) (page.ChipState, bool, error) {
			st, err := p.Chip(ctx, label)
			return st, st.Found, err
		})
		if err != nil {
			return err
		}
		if !st.Selected {
			if err := p.ClickChip(ctx, label); err != nil {
				return err
			}
		}
		if err := poll.Sleep(ctx, t.Settle); err != nil {
			return err
		}
		return poll.Until(ctx, f.target("soma-table-body soma-table-row", t.Table), func(ctx context.Context) (bool, error) {
			n, err := p.RowCount(ctx)
			return n > 0, err
		})
	})
}

// Purchase runs the remaining transitions from TableLoaded to Finalized.
// The balance check happens before any UI mutation.
func (f *Flow) Purchase(ctx context.Context, intent model.PurchaseIntent, balance float64, signature string) error {
	if f.state != TableLoaded {
		return fmt.Errorf("purchase from %s: table not loaded", f.state)
	}
	if intent.Amount > balance {
		return f.fail(AssetChosen, "pre-flight balance check",
			fmt.Errorf("%w: amount %.2f > balance %.2f", model.ErrInsufficientBalance, intent.Amount, balance))
	}
	if intent.Units < 1 {
		return f.fail(AssetChosen, "pre-flight unit check",
			fmt.Errorf("%w: amount %.2f buys no unit of %.2f", model.ErrInsufficientBalance, intent.Amount, intent.Offer.MinInvestment))
	}
	if signature == "" {
		return f.fail(AssetChosen, "pre-flight signature check", errors.New("no transaction signature configured"))
	}
	if i := strings.IndexFunc(signature, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		return f.fail(AssetChosen, "pre-flight signature check", fmt.Errorf("signature has a non-digit at position %d", i))
	}

	t := f.m.Opts.Timeouts
	p := f.m.Page
	invest := page.Control{Kind: page.InvestButton, Label: page.LabelInvest, Row: intent.Offer.Handle}
	quantity := page.Control{Kind: page.QuantityField, Label: page.LabelQuantity}
	risk := page.Control{Kind: page.Checkbox, Label: page.LabelRisk}
	terms := page.Control{Kind: page.Checkbox, Label: page.LabelTerms}
	advance := page.Control{Kind: page.AdvanceButton, Label: page.LabelAdvance}

	steps := []struct {
		to     State
		reason string
		fn     func(ctx context.Context) error
	}{
		{AssetChosen, "clicking invest on " + intent.Offer.Name, func(ctx context.Context) error {
			if _, err := f.ready(ctx, invest, t.Invest); err != nil {
				return err
			}
			if err := p.PointerClick(ctx, invest); err != nil {
				return err
			}
			return poll.Sleep(ctx, t.Settle)
		}},
		{QuantityEntered, "filling quantity", func(ctx context.Context) error {
			if _, err := f.ready(ctx, quantity, t.Quantity); err != nil {
				return err
			}
			if err := p.SetValue(ctx, quantity, strconv.Itoa(intent.Units)); err != nil {
				return err
			}
			f.log.WithField("units", intent.Units).Info("quantity filled")
			return poll.Sleep(ctx, t.KeyPause)
		}},
		{RiskAcknowledged, "checking risk disclosure", func(ctx context.Context) error {
			st, err := f.ready(ctx, risk, t.Checkbox)
			if err != nil {
				return err
			}
			if st.Checked {
				return nil
			}
			return p.SetChecked(ctx, risk)
		}},
		{AdvancedStep1, "advancing after risk disclosure", func(ctx context.Context) error {
			if err := f.clickWhenEnabled(ctx, advance, t.Advance); err != nil {
				return err
			}
			return poll.Sleep(ctx, t.Settle)
		}},
		{TermsAcknowledged, "accepting terms and advancing", func(ctx context.Context) error {
			st, err := f.ready(ctx, terms, t.Checkbox)
			if err != nil {
				return err
			}
			if !st.Checked {
				if err := p.PointerClick(ctx, terms); err != nil {
					return err
				}
			}
			return f.clickWhenEnabled(ctx, advance, t.TermsAdvance)
		}},
		{SignatureEntered, "typing signature", func(ctx context.Context) error {
			return f.typeSignature(ctx, signature)
		}},
		{Finalized, "final advance", func(ctx context.Context) error {
			return f.clickWhenEnabled(ctx, advance, t.Final)
		}},
	}

	for _, s := range steps {
		if err := f.step(ctx, s.to, s.reason, s.fn); err != nil {
			return err
		}
	}
	f.log.WithFields(logrus.Fields{"asset": intent.Offer.Name, "amount": intent.Amount}).Info("purchase finalized")
	return nil
}

// ready waits until the control exists and its sub-DOM rendered.
func (f *Flow) ready(ctx context.Context, c page.Control, timeout time.Duration) (page.ControlState, error) {
	return poll.Value(ctx, f.target(c.String(), timeout), func(ctx context.Context) (page.ControlState, bool, error) {
		st, err := f.m.Page.State(ctx, c)
		return st, st.Present && st.Ready, err
	})
}

// clickWhenEnabled waits until the control is enabled, not just present, then clicks it.
func (f *Flow) clickWhenEnabled(ctx context.Context, c page.Control, timeout time.Duration) error {
	_, err := poll.Value(ctx, f.target(c.String()+" enabled", timeout), func(ctx context.Context) (page.ControlState, bool, error) {
		st, err := f.m.Page.State(ctx, c)
		return st, st.Present && st.Ready && st.Enabled, err
	})
	if err != nil {
		return err
	}
	return f.m.Page.PointerClick(ctx, c)
}

func (f *Flow) typeSignature(ctx context.Context, signature string) error {
	t := f.m.Opts.Timeouts
	for i, r := range signature {
		key := page.Control{Kind: page.KeypadKey, Label: string(r)}
		timeout := time.Duration(0)
		if i == 0 {
			// the keypad renders lazily; later keys are on screen already
			timeout = t.Keypad
		}
		if _, err := f.ready(ctx, key, timeout); err != nil {
			return err
		}
		if err := f.m.Page.PointerClick(ctx, key); err != nil {
			return err
		}
		if err := poll.Sleep(ctx, t.KeyPause); err != nil {
			return err
		}
	}
	f.log.WithField("digits", len(signature)).Info("signature typed")
	return nil
}
