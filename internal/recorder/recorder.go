package recorder

import (
	"time"

	"RendaBot/internal/model"
)

// RunEvent summarizes one purchase run.
type RunEvent struct {
	ID         string
	UserID     string
	StartedAt  time.Time
	FinishedAt time.Time
	Balance    float64
	CDI        float64
	Purchased  int
	Failed     int
	Skipped    int
	Error      string
}

// AttemptEvent records a purchase attempt that did not finalize.
type AttemptEvent struct {
	RunID   string
	Class   string
	Asset   string
	Reached string // last state reached before failing
	Reason  string
	Amount  float64
}

// Recorder keeps a local journal of runs for later inspection.
type Recorder interface {
	RecordRun(evt *RunEvent) error
	RecordPurchase(runID string, rec *model.PurchaseRecord) error
	RecordAverage(runID string, avg *model.AverageRate) error
	RecordAttempt(evt *AttemptEvent) error
	// LastRun returns the most recent run, nil if none was recorded.
	LastRun() (*RunEvent, error)
	Close() error
}
