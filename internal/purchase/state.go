// Package purchase drives the brokerage checkout flow for one offer.
package purchase

import "fmt"

// State is a stage of the checkout flow.
type State int

const (
	SelectingClass State = iota
	TableLoaded
	AssetChosen
	QuantityEntered
	RiskAcknowledged
	AdvancedStep1
	TermsAcknowledged
	SignatureEntered
	Finalized
	Failed
)

var stateNames = [...]string{
	"SelectingClass",
	"TableLoaded",
	"AssetChosen",
	"QuantityEntered",
	"RiskAcknowledged",
	"AdvancedStep1",
	"TermsAcknowledged",
	"SignatureEntered",
	"Finalized",
	"Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == Finalized || s == Failed }

// StepError records why a transition failed.
type StepError struct {
	From, To State
	Reason   string
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s -> %s: %s: %v", e.From, e.To, e.Reason, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
