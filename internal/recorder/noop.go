package recorder

import "RendaBot/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *RunEvent) error                            { return nil }
func (n *NoopRecorder) RecordPurchase(_ string, _ *model.PurchaseRecord) error { return nil }
func (n *NoopRecorder) RecordAverage(_ string, _ *model.AverageRate) error     { return nil }
func (n *NoopRecorder) RecordAttempt(_ *AttemptEvent) error                    { return nil }
func (n *NoopRecorder) LastRun() (*RunEvent, error)                            { return nil, nil }
func (n *NoopRecorder) Close() error                                           { return nil }
