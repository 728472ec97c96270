package engine

import (
	"time"

	"RendaBot/internal/model"
)

// Outcome of one class within a run.
type Outcome string

const (
	OutcomePurchased Outcome = "purchased"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// ClassResult describes what happened to one index class.
type ClassResult struct {
	Class          model.IndexClass
	Outcome        Outcome
	Offers         int // offers of the class on the page
	Eligible       int // offers left after balance, bucket and floor filters
	FailedAttempts int
	Purchase       *model.PurchaseRecord
	Reason         string
}

// Summary is what a run reports to its caller.
type Summary struct {
	RunID        string
	UserID       string
	StartedAt    time.Time
	FinishedAt   time.Time
	CDI          float64
	StartBalance float64
	EndBalance   float64
	Purchased    int
	Failed       int
	Skipped      int
	Classes      []ClassResult
	Purchases    []model.PurchaseRecord
	Averages     []model.AverageRate
	Error        string
}

// Duration is how long the run took.
func (s *Summary) Duration() time.Duration { return s.FinishedAt.Sub(s.StartedAt) }
