// Package pagetest provides an in-memory page.Page for tests.
package pagetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"RendaBot/internal/page"
)

// Fake is a scripted page. All controls are present, ready and enabled unless
// listed in Missing or Disabled.
type Fake struct {
	mu sync.Mutex

	Chips    map[string]*page.ChipState
	Rows     int
	HTML     string
	Balance  string
	Missing  map[page.ControlKind]bool
	Disabled map[page.ControlKind]bool
	Keys     string // digits present on the keypad; empty means 0-9

	// ScrollOffsets are returned in order by ScrollTable, the last one repeating.
	ScrollOffsets []int

	Calls   []string
	Clicks  []page.Control
	Values  map[string]string
	Checked map[string]bool
}

// New returns a fake whose class chips all exist and are unselected.
func New() *Fake {
	f := &Fake{
		Chips:    map[string]*page.ChipState{},
		Rows:     1,
		Missing:  map[page.ControlKind]bool{},
		Disabled: map[page.ControlKind]bool{},
		Values:   map[string]string{},
		Checked:  map[string]bool{},
	}
	f.Chips[page.LabelFilter] = &page.ChipState{Found: true}
	for _, l := range page.ClassChipLabels {
		f.Chips[l] = &page.ChipState{Found: true}
	}
	return f
}

func (f *Fake) record(format string, args ...any) {
	f.Calls = append(f.Calls, fmt.Sprintf(format, args...))
}

func (f *Fake) Chip(_ context.Context, label string) (page.ChipState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for l, st := range f.Chips {
		if strings.Contains(l, label) {
			return *st, nil
		}
	}
	return page.ChipState{}, nil
}

func (f *Fake) ClickChip(_ context.Context, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("chip:%s", label)
	st, ok := f.Chips[label]
	if !ok || !st.Found {
		return fmt.Errorf("chip %q not on page", label)
	}
	st.Selected = !st.Selected
	return nil
}

func (f *Fake) RowCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Rows, nil
}

func (f *Fake) ScrollTable(_ context.Context, dy int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("scroll-table:%d", dy)
	if len(f.ScrollOffsets) == 0 {
		return 0, nil
	}
	v := f.ScrollOffsets[0]
	if len(f.ScrollOffsets) > 1 {
		f.ScrollOffsets = f.ScrollOffsets[1:]
	}
	return v, nil
}

func (f *Fake) ScrollPage(_ context.Context, fraction float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("scroll-page:%.1f", fraction)
	return nil
}

func (f *Fake) TableHTML(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.HTML, nil
}

func (f *Fake) State(_ context.Context, c page.Control) (page.ControlState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Missing[c.Kind] {
		return page.ControlState{}, nil
	}
	if c.Kind == page.KeypadKey && !strings.Contains(f.keys(), c.Label) {
		return page.ControlState{}, nil
	}
	return page.ControlState{
		Present: true,
		Ready:   true,
		Enabled: !f.Disabled[c.Kind],
		Checked: f.Checked[c.Label],
	}, nil
}

func (f *Fake) keys() string {
	if f.Keys == "" {
		return "0123456789"
	}
	return f.Keys
}

func (f *Fake) PointerClick(_ context.Context, c page.Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("click:%s", c)
	f.Clicks = append(f.Clicks, c)
	if c.Kind == page.Checkbox {
		f.Checked[c.Label] = true
	}
	return nil
}

func (f *Fake) SetValue(_ context.Context, c page.Control, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("value:%s=%s", c, value)
	f.Values[c.Label] = value
	return nil
}

func (f *Fake) SetChecked(_ context.Context, c page.Control) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("check:%s", c)
	f.Checked[c.Label] = true
	return nil
}

func (f *Fake) BalanceText(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Balance, nil
}

// Digits returns the keypad keys clicked, in order.
func (f *Fake) Digits() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b strings.Builder
	for _, c := range f.Clicks {
		if c.Kind == page.KeypadKey {
			b.WriteString(c.Label)
		}
	}
	return b.String()
}

// Count returns how many recorded calls start with prefix.
func (f *Fake) Count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
