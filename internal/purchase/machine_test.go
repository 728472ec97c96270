package purchase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"RendaBot/internal/model"
	"RendaBot/internal/page"
	"RendaBot/internal/page/pagetest"
)

func fastOptions() Options {
	return Options{Timeouts: Timeouts{
		Chip:         20 * time.Millisecond,
		Table:        20 * time.Millisecond,
		Invest:       20 * time.Millisecond,
		Quantity:     20 * time.Millisecond,
		Checkbox:     20 * time.Millisecond,
		Advance:      20 * time.Millisecond,
		TermsAdvance: 20 * time.Millisecond,
		Keypad:       20 * time.Millisecond,
		Final:        20 * time.Millisecond,
		Interval:     time.Millisecond,
	}}
}

func newMachine(p page.Page) *Machine {
	log, _ := test.NewNullLogger()
	return New(p, fastOptions(), log)
}

func intent() model.PurchaseIntent {
	return model.PurchaseIntent{
		Offer: model.EffectiveOffer{AssetOffer: model.AssetOffer{
			Name: "CDB BANCO X", Class: model.ClassCDI, MinInvestment: 1000, Handle: 3,
		}},
		Amount: 5000,
		Units:  5,
	}
}

func TestPurchaseHappyPath(t *testing.T) {
	fake := pagetest.New()
	f := newMachine(fake).Start(model.ClassCDI)
	ctx := context.Background()

	if err := f.SelectClass(ctx); err != nil {
		t.Fatalf("SelectClass: %v", err)
	}
	if f.State() != TableLoaded {
		t.Fatalf("state = %s, want TableLoaded", f.State())
	}
	if !fake.Chips["Pós-fixado (CDI)"].Selected {
		t.Error("CDI chip should be selected")
	}

	if err := f.Purchase(ctx, intent(), 8000, "4321"); err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if f.State() != Finalized {
		t.Fatalf("state = %s, want Finalized", f.State())
	}
	if got := fake.Values[page.LabelQuantity]; got != "5" {
		t.Errorf("quantity = %q, want 5", got)
	}
	if got := fake.Digits(); got != "4321" {
		t.Errorf("digits = %q, want 4321", got)
	}
	if !fake.Checked[page.LabelRisk] || !fake.Checked[page.LabelTerms] {
		t.Errorf("checkboxes = %v, want both checked", fake.Checked)
	}
	if n := fake.Count("click:advance-button"); n != 3 {
		t.Errorf("advance clicks = %d, want 3", n)
	}
	if fake.Clicks[0].Kind != page.InvestButton || fake.Clicks[0].Row != 3 {
		t.Errorf("first click = %v, want invest on row 3", fake.Clicks[0])
	}
}

func TestAlreadySelectedChipNotToggled(t *testing.T) {
	fake := pagetest.New()
	fake.Chips["Inflação"].Selected = true
	f := newMachine(fake).Start(model.ClassIPCA)
	if err := f.SelectClass(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := fake.Count("chip:"); n != 0 {
		t.Errorf("chip clicks = %d, want 0", n)
	}
}

func TestDeselectOtherClasses(t *testing.T) {
	fake := pagetest.New()
	fake.Chips["Pré-fixado"].Selected = true
	m := newMachine(fake)
	m.Opts.DeselectOtherClasses = true
	if err := m.Start(model.ClassCDI).SelectClass(context.Background()); err != nil {
		t.Fatal(err)
	}
	if fake.Chips["Pré-fixado"].Selected {
		t.Error("fixed chip should have been deselected")
	}
	if !fake.Chips["Pós-fixado (CDI)"].Selected {
		t.Error("CDI chip should be selected")
	}
}

func TestRiskCheckboxIdempotent(t *testing.T) {
	fake := pagetest.New()
	fake.Checked[page.LabelRisk] = true
	f := newMachine(fake).Start(model.ClassCDI)
	ctx := context.Background()
	if err := f.SelectClass(ctx); err != nil {
		t.Fatal(err)
	}
	if err := f.Purchase(ctx, intent(), 8000, "1"); err != nil {
		t.Fatal(err)
	}
	if n := fake.Count("check:"); n != 0 {
		t.Errorf("check calls = %d, want 0 for an already checked box", n)
	}
}

func TestInsufficientBalanceBeforeAnyMutation(t *testing.T) {
	fake := pagetest.New()
	f := newMachine(fake).Start(model.ClassCDI)
	ctx := context.Background()
	if err := f.SelectClass(ctx); err != nil {
		t.Fatal(err)
	}
	calls := len(fake.Calls)

	err := f.Purchase(ctx, intent(), 900, "1234")
	if !errors.Is(err, model.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if f.State() != Failed {
		t.Errorf("state = %s, want Failed", f.State())
	}
	if len(fake.Calls) != calls {
		t.Errorf("page calls after check = %v", fake.Calls[calls:])
	}
}

func TestGateFailures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *pagetest.Fake)
		failedAt State
	}{
		{"no invest button", func(f *pagetest.Fake) { f.Missing[page.InvestButton] = true }, AssetChosen},
		{"no quantity field", func(f *pagetest.Fake) { f.Missing[page.QuantityField] = true }, QuantityEntered},
		{"no checkbox", func(f *pagetest.Fake) { f.Missing[page.Checkbox] = true }, RiskAcknowledged},
		{"advance stays disabled", func(f *pagetest.Fake) { f.Disabled[page.AdvanceButton] = true }, AdvancedStep1},
		{"keypad lacks a digit", func(f *pagetest.Fake) { f.Keys = "0123" }, SignatureEntered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := pagetest.New()
			tt.setup(fake)
			f := newMachine(fake).Start(model.ClassCDI)
			ctx := context.Background()
			if err := f.SelectClass(ctx); err != nil {
				t.Fatal(err)
			}
			err := f.Purchase(ctx, intent(), 8000, "0129")
			if !errors.Is(err, model.ErrElementNotFound) {
				t.Fatalf("err = %v, want ErrElementNotFound", err)
			}
			var se *StepError
			if !errors.As(err, &se) || se.To != tt.failedAt {
				t.Fatalf("err = %v, want failure entering %s", err, tt.failedAt)
			}
			if f.State() != Failed {
				t.Errorf("state = %s, want Failed", f.State())
			}
		})
	}
}

func TestEmptyTableFails(t *testing.T) {
	fake := pagetest.New()
	fake.Rows = 0
	f := newMachine(fake).Start(model.ClassFixed)
	err := f.SelectClass(context.Background())
	if !errors.Is(err, model.ErrElementNotFound) {
		t.Fatalf("err = %v, want ErrElementNotFound", err)
	}
}

func TestFailedFlowRejectsFurtherSteps(t *testing.T) {
	fake := pagetest.New()
	fake.Rows = 0
	f := newMachine(fake).Start(model.ClassFixed)
	_ = f.SelectClass(context.Background())
	if err := f.Purchase(context.Background(), intent(), 8000, "1"); err == nil {
		t.Fatal("expected error purchasing from a failed flow")
	}
	if f.State() != Failed {
		t.Errorf("state = %s", f.State())
	}
}

func TestNonNumericSignatureBeforeAnyMutation(t *testing.T) {
	fake := pagetest.New()
	f := newMachine(fake).Start(model.ClassCDI)
	ctx := context.Background()
	if err := f.SelectClass(ctx); err != nil {
		t.Fatal(err)
	}
	calls := len(fake.Calls)

	err := f.Purchase(ctx, intent(), 8000, "12a4")
	var se *StepError
	if !errors.As(err, &se) || se.To != AssetChosen {
		t.Fatalf("err = %v, want a pre-flight StepError", err)
	}
	if f.State() != Failed {
		t.Errorf("state = %s, want Failed", f.State())
	}
	if len(fake.Calls) != calls || len(fake.Clicks) != 0 || fake.Digits() != "" {
		t.Errorf("page touched after check: calls %v, digits %q", fake.Calls[calls:], fake.Digits())
	}
}
