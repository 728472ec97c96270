// Package page defines the capabilities the purchase engine needs from the brokerage page.
package page

import (
	"context"
	"fmt"

	"RendaBot/internal/model"
)

// Labels of the checkout controls on the brokerage page.
const (
	LabelFilter   = "Filtrar"
	LabelQuantity = "Digite a quantidade que deseja investir"
	LabelRisk     = "ciente dos riscos"
	LabelTerms    = "declaro que li"
	LabelAdvance  = "avançar etapa"
	LabelInvest   = "Investir"
)

// ClassChipLabels maps each index class to the visible text of its filter chip.
var ClassChipLabels = map[model.IndexClass]string{
	model.ClassFixed: "Pré-fixado",
	model.ClassIPCA:  "Inflação",
	model.ClassCDI:   "Pós-fixado (CDI)",
}

// ControlKind says how a control is located.
type ControlKind int

const (
	InvestButton  ControlKind = iota // by row index
	QuantityField                    // by exact label
	Checkbox                         // by label substring, case-insensitive
	AdvanceButton                    // by aria-label substring, case-insensitive
	KeypadKey                        // by digit text on the signature keypad
)

func (k ControlKind) String() string {
	switch k {
	case InvestButton:
		return "invest-button"
	case QuantityField:
		return "quantity-field"
	case Checkbox:
		return "checkbox"
	case AdvanceButton:
		return "advance-button"
	case KeypadKey:
		return "keypad-key"
	}
	return "unknown"
}

// Control addresses one interactive element.
type Control struct {
	Kind  ControlKind
	Label string
	Row   int
}

func (c Control) String() string {
	if c.Kind == InvestButton {
		return fmt.Sprintf("%s[row=%d]", c.Kind, c.Row)
	}
	return fmt.Sprintf("%s[%q]", c.Kind, c.Label)
}

// ControlState is a snapshot of a control. Ready means its isolated sub-DOM has rendered.
type ControlState struct {
	Present bool
	Ready   bool
	Enabled bool
	Checked bool
}

// ChipState is a snapshot of a filter chip.
type ChipState struct {
	Found    bool
	Selected bool
}

// Page is the live brokerage page, exclusively owned by one run.
type Page interface {
	Chip(ctx context.Context, label string) (ChipState, error)
	ClickChip(ctx context.Context, label string) error

	RowCount(ctx context.Context) (int, error)
	// ScrollTable scrolls the results container by dy pixels and returns the new offset.
	ScrollTable(ctx context.Context, dy int) (int, error)
	// ScrollPage scrolls the window to fraction (0..1) of the document height.
	ScrollPage(ctx context.Context, fraction float64) error
	// TableHTML returns the outer HTML of the results table body.
	TableHTML(ctx context.Context) (string, error)

	State(ctx context.Context, c Control) (ControlState, error)
	// PointerClick dispatches pointerdown, pointerup and click on the control.
	PointerClick(ctx context.Context, c Control) error
	// SetValue sets the control's value and dispatches input and change.
	SetValue(ctx context.Context, c Control, value string) error
	// SetChecked checks the control and dispatches input and change.
	SetChecked(ctx context.Context, c Control) error

	// BalanceText returns the text holding the available balance, "" if not rendered yet.
	BalanceText(ctx context.Context) (string, error)
}
